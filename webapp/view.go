package webapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"diagserve/metadata"
	"diagserve/predict"
)

const (
	schemaUnavailable = "No features found. Check that the API is running."
	disclaimer        = "For educational use only. This tool is not a medical device and its output is not a diagnosis."
)

// Casers keep state between calls, so each use gets a fresh one.
var (
	malignant = cases.Fold().String("malignant")
	benign    = cases.Fold().String("benign")
)

type field struct {
	Name  string
	Value string
}

// outcome is how a predicted label is presented.
type outcome struct {
	Label         string
	Tone          string // danger, success or neutral
	Icon          string
	Probabilities string
}

type page struct {
	APIBaseURL  string
	Disclaimer  string
	SchemaError string
	Detail      string
	Columns     [][]field
	Outcome     *outcome
	Error       string
}

// layout spreads fields over n columns, field i landing in column i mod n.
func layout(schema metadata.Schema, values map[string]string, n int) [][]field {
	if n <= 0 {
		n = 1
	}
	columns := make([][]field, n)
	for i, d := range schema {
		value, ok := values[d.Name]
		if !ok {
			value = fmt.Sprintf("%.5f", d.Default)
		}
		columns[i%n] = append(columns[i%n], field{Name: d.Name, Value: value})
	}
	return columns
}

func outcomeFor(result *predict.Result) (*outcome, error) {
	probabilities, err := json.MarshalIndent(result.Probabilities, "", "  ")
	if err != nil {
		return nil, err
	}
	label := strings.TrimSpace(result.Label)
	out := &outcome{
		Label:         cases.Title(language.English).String(label),
		Tone:          "neutral",
		Icon:          "ℹ️",
		Probabilities: string(probabilities),
	}
	switch cases.Fold().String(label) {
	case malignant:
		out.Tone, out.Icon = "danger", "⚠️"
	case benign:
		out.Tone, out.Icon = "success", "✅"
	}
	return out, nil
}

// errorMessage renders a client failure as a banner line.
func errorMessage(err error) string {
	var transport *TransportError
	if errors.As(err, &transport) {
		return "API unavailable: " + transport.Error()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

// parseValues reads one number per schema field from the submitted form.
func parseValues(schema metadata.Schema, get func(string) (string, bool)) (map[string]float64, map[string]string, error) {
	values := make(map[string]float64, len(schema))
	raw := make(map[string]string, len(schema))
	var bad []string
	for _, d := range schema {
		s, ok := get(d.Name)
		if !ok {
			s = fmt.Sprintf("%.5f", d.Default)
		}
		raw[d.Name] = s
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bad = append(bad, d.Name)
			continue
		}
		values[d.Name] = v
	}
	if len(bad) > 0 {
		return nil, raw, fmt.Errorf("invalid number for %q", bad)
	}
	return values, raw, nil
}
