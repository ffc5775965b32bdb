package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Input is a feature vector in one of two shapes: ByName or ByPosition. Both
// resolve to a dense row in schema order before anything else looks at them.
type Input interface {
	dense(names []string) ([]float64, error)
}

// ByName maps feature names to values. Keys outside the schema are ignored.
type ByName map[string]any

// ByPosition lists values in schema order. The order itself is the caller's
// responsibility and is not checked.
type ByPosition []any

func (in ByName) dense(names []string) ([]float64, error) {
	var missing []string
	for _, name := range names {
		if _, ok := in[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Kind: KindMissingFields, Missing: missing}
	}

	row := make([]float64, len(names))
	for i, name := range names {
		v, reason := coerce(in[name])
		if reason != "" {
			return nil, &ValidationError{Kind: KindNotNumeric, Field: name, Reason: reason}
		}
		row[i] = v
	}
	return row, nil
}

func (in ByPosition) dense(names []string) ([]float64, error) {
	if len(in) != len(names) {
		return nil, &ValidationError{Kind: KindLengthMismatch, Expected: len(names), Received: len(in)}
	}
	row := make([]float64, len(in))
	for i, raw := range in {
		v, reason := coerce(raw)
		if reason != "" {
			pos := i
			return nil, &ValidationError{Kind: KindNotNumeric, Position: &pos, Reason: reason}
		}
		row[i] = v
	}
	return row, nil
}

// Payload is the body of POST /predict.
type Payload struct {
	Features json.RawMessage `json:"features"`
}

// ParseInput decodes a POST /predict body into ByName or ByPosition.
func ParseInput(body []byte) (Input, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ValidationError{Kind: KindMalformed, Reason: "invalid JSON body: " + err.Error()}
	}
	raw := bytes.TrimSpace(payload.Features)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, &ValidationError{Kind: KindMalformed, Reason: `field "features" is required`}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &ValidationError{Kind: KindMalformed, Reason: "invalid features: " + err.Error()}
	}
	switch v := value.(type) {
	case map[string]any:
		return ByName(v), nil
	case []any:
		return ByPosition(v), nil
	default:
		return nil, &ValidationError{Kind: KindMalformed, Reason: `"features" must be an object of name to value or an array of values`}
	}
}

// coerce converts a decoded value to a finite float. A non-empty reason means
// the value was rejected.
func coerce(raw any) (float64, string) {
	var (
		v   float64
		err error
	)
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case json.Number:
		v, err = x.Float64()
	case string:
		v, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Sprintf("value %s is not a number", describe(raw))
	}
	if err != nil {
		return 0, fmt.Sprintf("value %s is not a number", describe(raw))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Sprintf("value %s is not a finite number", describe(raw))
	}
	return v, ""
}

func describe(raw any) string {
	if raw == nil {
		return "null"
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(payload)
}
