package metric

import (
	"fmt"
	"time"
)

// Type is the metric type declared by a handler. Matching is exact and
// case-sensitive; anything outside this set is a validation error.
type Type string

const (
	TypeGauge   Type = "gauge"
	TypeCounter Type = "counter"
	TypeInfo    Type = "info"
)

// ParseType validates a metric type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeGauge, TypeCounter, TypeInfo:
		return Type(s), nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("metric type %q not supported", s)}
	}
}

// Record is one fully resolved and validated metric sample. Value carries
// the sample for gauge and counter records; Info carries the flat label map
// for info records.
type Record struct {
	Name      string
	Help      string
	Type      Type
	Labels    map[string]string
	Value     float64
	Info      map[string]string
	Timestamp time.Time
}

// ValidationError reports a type/value mismatch. The record it belongs to is
// discarded; sibling fields and other events are unaffected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
