package predict

import (
	"fmt"
	"strings"
)

type ValidationKind string

const (
	KindMissingFields  ValidationKind = "missing_fields"
	KindLengthMismatch ValidationKind = "length_mismatch"
	KindNotNumeric     ValidationKind = "not_numeric"
	KindMalformed      ValidationKind = "malformed_body"
)

// ValidationError reports caller input that cannot be turned into a feature
// vector. It is never retried and no partial result accompanies it.
type ValidationError struct {
	Kind     ValidationKind `json:"kind"`
	Missing  []string       `json:"missing,omitempty"`
	Expected int            `json:"expected,omitempty"`
	Received int            `json:"received,omitempty"`
	Field    string         `json:"field,omitempty"`
	Position *int           `json:"position,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingFields:
		quoted := make([]string, len(e.Missing))
		for i, name := range e.Missing {
			quoted[i] = fmt.Sprintf("%q", name)
		}
		return "missing fields: [" + strings.Join(quoted, ", ") + "]"
	case KindLengthMismatch:
		return fmt.Sprintf("expected length %d, received length %d", e.Expected, e.Received)
	case KindNotNumeric:
		if e.Position != nil {
			return fmt.Sprintf("position %d: %s", *e.Position, e.Reason)
		}
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

// StartupError means the service cannot begin serving.
type StartupError struct {
	Component string
	Path      string
	Err       error
}

func (e *StartupError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("startup: %s (%s): %v", e.Component, e.Path, e.Err)
	}
	return fmt.Sprintf("startup: %s: %v", e.Component, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
