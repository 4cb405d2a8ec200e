package metric

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hooksink/hooksink/internal/extract"
)

// Resolved holds the raw JSON results of the extractor pipelines for one
// event. An empty string means the field's extractor was absent or failed;
// the empty string is never a valid JSON fragment, so no flag is needed.
type Resolved struct {
	Name      string
	Help      string
	Type      string
	Timestamp string
	Value     string
	Labels    map[string]string
}

// Builder assembles metric records from resolved extractor output, applying
// type-specific value coercion and validation.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Build validates and coerces the resolved fields into a Record.
//
// Defaults: type gauge, empty help, empty label set, current processing time.
// A missing or malformed value discards the whole record with a
// ValidationError; nothing here aborts other fields or events.
func (b *Builder) Build(eventTitle string, res Resolved) (Record, error) {
	rec := Record{
		Name:   SanitizeName(eventTitle),
		Labels: res.Labels,
	}
	if rec.Labels == nil {
		rec.Labels = map[string]string{}
	}
	if res.Name != "" {
		rec.Name = SanitizeName(asString(res.Name))
	}
	if res.Help != "" {
		rec.Help = asString(res.Help)
	}

	rec.Type = TypeGauge
	if res.Type != "" {
		typ, err := ParseType(asString(res.Type))
		if err != nil {
			return Record{}, err
		}
		rec.Type = typ
	}

	if res.Value == "" {
		return Record{}, &ValidationError{Field: "value", Reason: "no value extracted"}
	}

	switch rec.Type {
	case TypeGauge, TypeCounter:
		v, err := strconv.ParseFloat(asString(res.Value), 64)
		if err != nil {
			return Record{}, &ValidationError{Field: "value", Reason: fmt.Sprintf("%s is not numeric", res.Value)}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Record{}, &ValidationError{Field: "value", Reason: fmt.Sprintf("%s is not finite", res.Value)}
		}
		rec.Value = v
	case TypeInfo:
		info, err := extract.StringMap(res.Value)
		if err != nil {
			return Record{}, &ValidationError{Field: "value", Reason: fmt.Sprintf("info value must be a flat string map: %v", err)}
		}
		rec.Info = info
	}

	rec.Timestamp = b.now()
	if res.Timestamp != "" {
		ts, err := parseTimestamp(asString(res.Timestamp))
		if err != nil {
			return Record{}, &ValidationError{Field: "timestamp", Reason: err.Error()}
		}
		rec.Timestamp = ts
	}

	return rec, nil
}

// parseTimestamp accepts RFC3339 strings or Unix seconds (integer or
// fractional).
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}, fmt.Errorf("timestamp %q is neither RFC3339 nor unix seconds", s)
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))), nil
}

// asString unwraps a raw JSON string fragment; non-string fragments are
// returned as their JSON text.
func asString(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	return strings.TrimSpace(raw)
}

// SanitizeName maps an arbitrary event title onto the Prometheus metric name
// charset [a-zA-Z_:][a-zA-Z0-9_:]*.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
