package deal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"deal_underwriting/pkg/core/config"
	coreDeal "deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/engine"
	"deal_underwriting/pkg/core/report"
	"deal_underwriting/pkg/core/sensitivity"
	"deal_underwriting/pkg/core/sharelink"
	"deal_underwriting/pkg/core/store"
	"deal_underwriting/pkg/core/validate"
)

// HandleValidate returns the validation result without running the engine.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") || !allowed(w, r, http.MethodPost) {
		return
	}
	d, mode, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, validate.Validate(d, mode))
}

// HandleRun underwrites the deal, serving repeats from the result cache.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") || !allowed(w, r, http.MethodPost) {
		return
	}
	d, mode, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	log := h.requestLog("run", mode, d)

	opts := make([]engine.Option, 0, len(h.Options)+1)
	opts = append(opts, h.Options...)
	opts = append(opts, engine.WithLogger(log))
	entry, hit, err := store.Cached(r.Context(), h.Cache, d, mode, opts...)
	if err != nil && entry == nil {
		log.Info("run rejected", zap.Error(err))
		writeRunError(w, err)
		return
	}
	if err != nil {
		log.Warn("result not cached", zap.Error(err))
	}
	log.Info("run served", zap.Bool("cache_hit", hit))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Deal-Fingerprint", entry.Key)
	w.Header().Set("X-Cache", cacheHeader(hit))
	w.WriteHeader(http.StatusOK)
	w.Write(entry.Results)
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// ShareResponse carries an encoded deal, or a decoded one.
type ShareResponse struct {
	Query    string                `json:"query,omitempty"`
	Deal     *coreDeal.Assumptions `json:"deal,omitempty"`
	Rejected []string              `json:"rejected,omitempty"`
}

// HandleShare encodes a posted deal into a share query (POST) or decodes
// the request's own query string back into a deal (GET).
func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET, POST") || !allowed(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		d, rejected := sharelink.Decode(r.URL.RawQuery)
		writeJSON(w, http.StatusOK, ShareResponse{Deal: &d, Rejected: rejected})
		return
	}

	d, _, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	q, err := sharelink.Encode(d)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, ShareResponse{Query: q})
}

// SensitivityRequest is a Request plus the two grid axes.
type SensitivityRequest struct {
	Request
	Rows sensitivity.Axis `json:"rows"`
	Cols sensitivity.Axis `json:"cols"`
}

// HandleSensitivity runs a two-axis grid.
func (h *Handler) HandleSensitivity(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") || !allowed(w, r, http.MethodPost) {
		return
	}
	req := SensitivityRequest{Request: Request{Deal: coreDeal.Defaults()}}
	if err := readBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err, nil)
		return
	}
	d, mode, _, err := h.resolve(req.Request)
	if err != nil {
		writeError(w, http.StatusNotFound, err, nil)
		return
	}
	log := h.requestLog("sensitivity", mode, d)

	grid := sensitivity.Grid{Rows: req.Rows, Cols: req.Cols, Mode: mode, Workers: h.Workers}
	table, err := sensitivity.Run(r.Context(), d, grid, h.Options...)
	switch {
	case errors.Is(err, sensitivity.ErrGridTooLarge),
		errors.Is(err, sensitivity.ErrEmptyAxis),
		errors.Is(err, sensitivity.ErrUnknownVariable):
		writeError(w, http.StatusBadRequest, err, nil)
		return
	case err != nil:
		log.Warn("sensitivity aborted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err, nil)
		return
	}
	log.Info("sensitivity served",
		zap.Int("rows", len(req.Rows.Values)),
		zap.Int("cols", len(req.Cols.Values)),
	)
	writeJSON(w, http.StatusOK, table)
}

// HandleReport renders the run as Markdown, or HTML with ?format=html.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") || !allowed(w, r, http.MethodPost) {
		return
	}
	d, mode, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	log := h.requestLog("report", mode, d)

	entry, _, err := store.Cached(r.Context(), h.Cache, d, mode, h.Options...)
	if err != nil && entry == nil {
		writeRunError(w, err)
		return
	}
	res, err := entry.Decode()
	if err != nil {
		log.Error("cached result unreadable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err, nil)
		return
	}

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, report.Markdown(d.Name, res))
	case "html":
		html, err := report.HTML(d.Name, res)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err, nil)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown report format %q", format), nil)
	}
}

// HandlePresets lists the configured presets.
func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") || !allowed(w, r, http.MethodGet) {
		return
	}
	presets := h.Presets
	if presets == nil {
		presets = []config.Preset{}
	}
	writeJSON(w, http.StatusOK, presets)
}
