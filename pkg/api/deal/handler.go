// Package deal serves the underwriting engine over HTTP.
package deal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"deal_underwriting/pkg/core/config"
	coreDeal "deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/engine"
	"deal_underwriting/pkg/core/logging"
	"deal_underwriting/pkg/core/sharelink"
	"deal_underwriting/pkg/core/store"
	"deal_underwriting/pkg/core/utils"
)

const maxBody = 1 << 20

// Handler holds the dependencies shared by the deal endpoints.
type Handler struct {
	Cache   store.ResultCache
	Presets []config.Preset
	Log     *logging.Logger
	Workers int // sensitivity fan-out; 0 = GOMAXPROCS
	Options []engine.Option
}

// NewHandler wires a handler. A nil cache gets an in-memory one and a nil
// logger discards output.
func NewHandler(cache store.ResultCache, presets []config.Preset, log *logging.Logger) *Handler {
	if cache == nil {
		cache = store.NewMemoryCache()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{Cache: cache, Presets: presets, Log: log}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/deal/validate", h.HandleValidate)
	mux.HandleFunc("/api/deal/run", h.HandleRun)
	mux.HandleFunc("/api/deal/share", h.HandleShare)
	mux.HandleFunc("/api/deal/sensitivity", h.HandleSensitivity)
	mux.HandleFunc("/api/deal/report", h.HandleReport)
	mux.HandleFunc("/api/deal/presets", h.HandlePresets)
}

// Request names the deal to work on. Exactly one source is used, in this
// order: Share (a share-link query), Preset, then Deal. Deal fields that are
// left out keep their defaults.
type Request struct {
	Mode   coreDeal.Mode        `json:"mode"`
	Share  string               `json:"share,omitempty"`
	Preset string               `json:"preset,omitempty"`
	Deal   coreDeal.Assumptions `json:"deal"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string      `json:"error"`
	Issues interface{} `json:"issues,omitempty"`
}

// cors sets the headers and reports whether the request was a preflight
// that has been answered.
func cors(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func allowed(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method), nil)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error, issues interface{}) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Issues: issues})
}

// writeRunError maps engine errors onto status codes.
func writeRunError(w http.ResponseWriter, err error) {
	var inputErr *engine.InputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusUnprocessableEntity, engine.ErrInvalidInput, inputErr.Issues)
		return
	}
	writeError(w, http.StatusInternalServerError, err, nil)
}

// readBody reads a JSON, HJSON or repairable JSON body into v.
func readBody(r *http.Request, v interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	data, _, err := utils.SmartParse(string(raw))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// resolve turns a request into the deal and mode to run.
func (h *Handler) resolve(req Request) (coreDeal.Assumptions, coreDeal.Mode, []string, error) {
	mode := coreDeal.ParseMode(string(req.Mode))
	switch {
	case req.Share != "":
		d, rejected := sharelink.Decode(req.Share)
		return d, mode, rejected, nil
	case req.Preset != "":
		p, ok := config.Find(h.Presets, req.Preset)
		if !ok {
			return coreDeal.Assumptions{}, "", nil, fmt.Errorf("unknown preset %q", req.Preset)
		}
		if req.Mode == "" {
			mode = p.Mode
		}
		return p.Deal.Clone(), mode, nil, nil
	default:
		return req.Deal, mode, nil, nil
	}
}

// decodeRequest reads the body into a Request whose deal starts from the
// defaults.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (coreDeal.Assumptions, coreDeal.Mode, bool) {
	req := Request{Deal: coreDeal.Defaults()}
	if err := readBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err, nil)
		return coreDeal.Assumptions{}, "", false
	}
	d, mode, rejected, err := h.resolve(req)
	if err != nil {
		writeError(w, http.StatusNotFound, err, nil)
		return coreDeal.Assumptions{}, "", false
	}
	if len(rejected) > 0 {
		w.Header().Set("X-Share-Rejected", strings.Join(rejected, ","))
	}
	return d, mode, true
}

func (h *Handler) requestLog(operation string, mode coreDeal.Mode, d coreDeal.Assumptions) *zap.Logger {
	return h.Log.WithOperation(operation).With(
		zap.String("mode", string(mode)),
		zap.String("fingerprint", coreDeal.Fingerprint(d, mode)),
	)
}
