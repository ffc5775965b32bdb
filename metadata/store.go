// Package metadata holds the feature schema and class labels the model was fitted with.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FeatureDescriptor is one entry of features_metadata.json. Fields other than
// name and default are kept in raw and served back untouched.
type FeatureDescriptor struct {
	Name    string  `json:"name" validate:"required"`
	Default float64 `json:"default"`

	raw json.RawMessage
}

func (d FeatureDescriptor) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	type plain struct {
		Name    string  `json:"name"`
		Default float64 `json:"default"`
	}
	return json.Marshal(plain{Name: d.Name, Default: d.Default})
}

func (d *FeatureDescriptor) UnmarshalJSON(data []byte) error {
	var fields struct {
		Name    string   `json:"name"`
		Default *float64 `json:"default"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	d.Name = fields.Name
	d.Default = 0
	if fields.Default != nil {
		d.Default = *fields.Default
	}
	d.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

// Schema is the canonical feature order expected by the model.
type Schema []FeatureDescriptor

func (s Schema) Len() int { return len(s) }

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.Name
	}
	return names
}

func (s Schema) Defaults() map[string]float64 {
	defaults := make(map[string]float64, len(s))
	for _, d := range s {
		defaults[d.Name] = d.Default
	}
	return defaults
}

// ClassLabels is index-aligned with the model's probability output.
type ClassLabels []string

// Store is built once by Load and never mutated afterwards.
type Store struct {
	schema Schema
	labels ClassLabels
}

type document struct {
	Features Schema      `validate:"required,min=1,unique=Name,dive"`
	Classes  ClassLabels `validate:"required,min=1,unique,dive,required"`
}

var validate = validator.New()

// Load reads the schema and class label files. Any missing, malformed or empty
// source is an error.
func Load(featuresPath, classesPath string) (*Store, error) {
	var doc document
	if err := readJSON(featuresPath, &doc.Features); err != nil {
		return nil, fmt.Errorf("feature metadata: %w", err)
	}
	if err := readJSON(classesPath, &doc.Classes); err != nil {
		return nil, fmt.Errorf("class names: %w", err)
	}
	return New(doc.Features, doc.Classes)
}

// New validates an in-memory schema and label set.
func New(schema Schema, labels ClassLabels) (*Store, error) {
	doc := document{Features: schema, Classes: labels}
	if err := validate.Struct(doc); err != nil {
		return nil, describe(err)
	}
	return &Store{
		schema: append(Schema(nil), schema...),
		labels: append(ClassLabels(nil), labels...),
	}, nil
}

// Schema returns a copy, callers cannot reorder the canonical schema.
func (s *Store) Schema() Schema { return append(Schema(nil), s.schema...) }

func (s *Store) Labels() ClassLabels { return append(ClassLabels(nil), s.labels...) }

func readJSON(path string, out any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch {
	case fe.StructField() == "Features" && fe.Tag() == "unique":
		return errors.New("feature names must be unique")
	case fe.StructField() == "Features":
		return errors.New("feature metadata is empty")
	case fe.StructField() == "Classes" && fe.Tag() == "unique":
		return errors.New("class names must be unique")
	case fe.StructField() == "Classes":
		return errors.New("class names are empty")
	case fe.StructField() == "Name":
		return fmt.Errorf("%s: feature name is required", strings.TrimPrefix(fe.Namespace(), "document."))
	default:
		// e.g. an empty class label inside the list
		return fmt.Errorf("invalid metadata at %s", strings.TrimPrefix(fe.Namespace(), "document."))
	}
}
