// Package utils reads hand-written deal files. People paste deals from
// chat windows and spreadsheets, so the parser accepts strict JSON, HJSON
// (comments, unquoted keys) and JSON that needs repair, in that order.
package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"deal_underwriting/pkg/core/deal"
)

// Format records which strategy accepted the input
type Format string

const (
	FormatJSON     Format = "json"
	FormatHJSON    Format = "hjson"
	FormatRepaired Format = "repaired"
)

// ErrUnparseable is returned when no strategy produced a JSON object.
var ErrUnparseable = errors.New("input is not JSON, HJSON or repairable JSON")

// RepairJSON fixes common hand-editing mistakes: missing quotes, trailing
// commas, unclosed brackets, Python-style literals.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair: %w", err)
	}
	return repaired, nil
}

// ParseHJSON converts Hjson to standard JSON.
func ParseHJSON(data string) (string, error) {
	var v interface{}
	if err := hjson.Unmarshal([]byte(data), &v); err != nil {
		return "", fmt.Errorf("hjson: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hjson to json: %w", err)
	}
	return string(out), nil
}

// SmartParse normalises input to a JSON object. Hjson runs before repair
// because the repairer also "fixes" valid Hjson, into the wrong shape.
func SmartParse(input string) ([]byte, Format, error) {
	input = StripCodeFence(input)
	if input == "" {
		return nil, "", ErrUnparseable
	}

	if isObject(input) {
		return []byte(input), FormatJSON, nil
	}
	if out, err := ParseHJSON(input); err == nil && isObject(out) {
		return []byte(out), FormatHJSON, nil
	}
	if out, err := RepairJSON(input); err == nil && isObject(out) {
		return []byte(out), FormatRepaired, nil
	}
	return nil, "", ErrUnparseable
}

func isObject(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

// ParseDeal reads a deal from text. Fields the input omits keep their
// default values. Unknown keys are an error so typos do not pass silently.
func ParseDeal(input string) (deal.Assumptions, Format, error) {
	data, format, err := SmartParse(input)
	if err != nil {
		return deal.Assumptions{}, "", err
	}

	d := deal.Defaults()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return deal.Assumptions{}, format, fmt.Errorf("decode deal (%s): %w", format, err)
	}
	return d, format, nil
}

// ParseDealFile is ParseDeal over a file's contents.
func ParseDealFile(path string) (deal.Assumptions, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deal.Assumptions{}, "", fmt.Errorf("read deal file: %w", err)
	}
	return ParseDeal(string(data))
}
