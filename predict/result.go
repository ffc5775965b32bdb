package predict

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Result is the answer to one prediction request.
type Result struct {
	Label         string        `json:"prediction_label"`
	Probabilities Probabilities `json:"probabilities"`
	FeatureOrder  []string      `json:"feature_order"`
}

// Probabilities maps class labels to probabilities and keeps the class order
// when encoded as a JSON object.
type Probabilities struct {
	Labels []string
	Values []float64
}

func (p Probabilities) Get(label string) (float64, bool) {
	for i, l := range p.Labels {
		if l == label {
			return p.Values[i], true
		}
	}
	return 0, false
}

func (p Probabilities) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range p.Labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Probabilities) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("probabilities must be a JSON object")
	}
	p.Labels, p.Values = nil, nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var value float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("probability for %q: %w", label, err)
		}
		p.Labels = append(p.Labels, label)
		p.Values = append(p.Values, value)
	}
	_, err = dec.Token()
	return err
}

// Argmax returns the index of the largest value; the lowest index wins ties.
// It returns -1 for an empty slice.
func Argmax(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
