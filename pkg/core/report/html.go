package report

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"deal_underwriting/pkg/core/engine"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the Markdown report as an HTML fragment.
func HTML(name string, res *engine.Results) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(name, res)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
