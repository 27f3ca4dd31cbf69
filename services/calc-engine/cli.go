package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"deal_underwriting/pkg/core/config"
	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/engine"
	"deal_underwriting/pkg/core/logging"
	"deal_underwriting/pkg/core/report"
	"deal_underwriting/pkg/core/sensitivity"
	"deal_underwriting/pkg/core/sharelink"
	"deal_underwriting/pkg/core/utils"
	"deal_underwriting/pkg/core/validate"
)

// Exit codes
const (
	exitOK      = 0
	exitError   = 1
	exitInvalid = 2
)

type options struct {
	action      string
	mode        string
	file        string
	data        string
	preset      string
	presetsPath string
	share       string
	format      string
	rows        string
	cols        string
	discount    float64
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("calc-engine", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.action, "action", "run", "validate | run | report | share | sensitivity")
	fs.StringVar(&o.mode, "mode", "", "simple | syndication (default simple, or the preset's mode)")
	fs.StringVar(&o.file, "file", "", "deal file (JSON or HJSON)")
	fs.StringVar(&o.data, "data", "", "inline deal JSON")
	fs.StringVar(&o.preset, "preset", "", "preset name")
	fs.StringVar(&o.presetsPath, "presets", "config/presets.yaml", "presets file")
	fs.StringVar(&o.share, "share", "", "share-link query string")
	fs.StringVar(&o.format, "format", "markdown", "report format: markdown | html")
	fs.StringVar(&o.rows, "rows", "exit_cap_rate=0.05,0.055,0.06", "sensitivity rows: variable=v1,v2,...")
	fs.StringVar(&o.cols, "cols", "rent_growth=0.01,0.02,0.03", "sensitivity columns: variable=v1,v2,...")
	fs.Float64Var(&o.discount, "discount", 0, "annual discount rate for NPV")
	fs.BoolVar(&o.verbose, "v", false, "debug logging to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: calc-engine [flags]")
		fs.PrintDefaults()
		names := make([]string, 0, len(sensitivity.Variables()))
		for _, v := range sensitivity.Variables() {
			names = append(names, string(v))
		}
		fmt.Fprintf(stderr, "\nSensitivity variables: %s\n", strings.Join(names, ", "))
	}
	return o, fs.Parse(args)
}

// loadDeal picks the deal source: share, preset, file, inline data, or the
// default deal.
func loadDeal(o options, stderr io.Writer) (deal.Assumptions, deal.Mode, error) {
	mode := deal.ParseMode(o.mode)
	switch {
	case o.share != "":
		d, rejected := sharelink.Decode(o.share)
		if len(rejected) > 0 {
			fmt.Fprintf(stderr, "[WARNING] share link values ignored: %s\n", strings.Join(rejected, ", "))
		}
		return d, mode, nil
	case o.preset != "":
		presets, err := config.LoadPresets(o.presetsPath)
		if err != nil {
			return deal.Assumptions{}, "", err
		}
		p, ok := config.Find(presets, o.preset)
		if !ok {
			return deal.Assumptions{}, "", fmt.Errorf("unknown preset %q", o.preset)
		}
		if o.mode == "" {
			mode = p.Mode
		}
		return p.Deal, mode, nil
	case o.file != "":
		d, _, err := utils.ParseDealFile(o.file)
		return d, mode, err
	case o.data != "":
		d, _, err := utils.ParseDeal(o.data)
		return d, mode, err
	default:
		return deal.Defaults(), mode, nil
	}
}

func parseAxis(arg string) (sensitivity.Axis, error) {
	name, list, ok := strings.Cut(arg, "=")
	if !ok || name == "" || list == "" {
		return sensitivity.Axis{}, fmt.Errorf("axis %q: want variable=v1,v2,...", arg)
	}
	ax := sensitivity.Axis{Variable: sensitivity.Variable(strings.TrimSpace(name))}
	for _, s := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return sensitivity.Axis{}, fmt.Errorf("axis %q: %w", arg, err)
		}
		ax.Values = append(ax.Values, v)
	}
	return ax, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return exitError
	}

	logCfg := logging.DefaultConfig()
	logCfg.Development = true
	logCfg.Stderr = true
	logger := logging.Nop()
	if o.verbose {
		if l, err := logging.New(logCfg); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	d, mode, err := loadDeal(o, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	opts := []engine.Option{engine.WithLogger(logger.WithOperation(o.action))}
	if o.discount != 0 {
		opts = append(opts, engine.WithDiscountRate(o.discount))
	}

	switch o.action {
	case "validate":
		res := validate.Validate(d, mode)
		if err := printJSON(stdout, res); err != nil {
			return exitError
		}
		if !res.IsValid {
			return exitInvalid
		}
		return exitOK

	case "run":
		res, err := engine.Run(d, mode, opts...)
		if err != nil {
			return reportRunError(stderr, err)
		}
		if err := printJSON(stdout, res); err != nil {
			return exitError
		}
		return exitOK

	case "report":
		res, err := engine.Run(d, mode, opts...)
		if err != nil {
			return reportRunError(stderr, err)
		}
		switch o.format {
		case "markdown", "md":
			fmt.Fprint(stdout, report.Markdown(d.Name, res))
		case "html":
			html, err := report.HTML(d.Name, res)
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitError
			}
			fmt.Fprint(stdout, html)
		default:
			fmt.Fprintf(stderr, "Error: unknown format %q\n", o.format)
			return exitError
		}
		return exitOK

	case "share":
		q, err := sharelink.Encode(d)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, q)
		return exitOK

	case "sensitivity":
		rows, err := parseAxis(o.rows)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		cols, err := parseAxis(o.cols)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		tbl, err := sensitivity.Run(context.Background(), d, sensitivity.Grid{Rows: rows, Cols: cols, Mode: mode}, opts...)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		if err := printJSON(stdout, tbl); err != nil {
			return exitError
		}
		return exitOK

	default:
		fmt.Fprintf(stderr, "Unknown action: %s\n", o.action)
		return exitError
	}
}

func reportRunError(stderr io.Writer, err error) int {
	var inputErr *engine.InputError
	if errors.As(err, &inputErr) {
		fmt.Fprintln(stderr, "Invalid inputs:")
		for _, i := range inputErr.Issues {
			fmt.Fprintf(stderr, "  - %s\n", i)
		}
		return exitInvalid
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}
