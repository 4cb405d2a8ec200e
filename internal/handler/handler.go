package handler

import (
	"fmt"
	"regexp"

	"github.com/hooksink/hooksink/internal/extract"
)

// Definition declares how events whose title matches EventTitle become
// metrics. Loaded once from configuration and immutable afterwards.
type Definition struct {
	EventTitle string     `yaml:"event_title"`
	Extractors Extractors `yaml:"extractors"`
}

// Extractors maps metric fields to extractor specifications. Absent fields
// stay unset; the metric builder decides per field whether that matters.
// Name, Help, Type, Timestamp and Value each take a single pipeline; Labels
// takes a list of sibling pipelines merged by key union.
type Extractors struct {
	Name      *extract.Node    `yaml:"name"`
	Help      *extract.Node    `yaml:"help"`
	Type      *extract.Node    `yaml:"type"`
	Timestamp *extract.Node    `yaml:"timestamp"`
	Labels    extract.NodeList `yaml:"labels"`
	Value     *extract.Node    `yaml:"value"`
}

// Matcher selects the handler definition for an event title. Definitions are
// tried in configuration order and the first match wins; this ordering is a
// contract, so overlapping patterns behave deterministically.
type Matcher struct {
	defs     []Definition
	patterns []*regexp.Regexp
}

// NewMatcher compiles every title pattern up front. Patterns match anchored
// against the full event title.
func NewMatcher(defs []Definition) (*Matcher, error) {
	m := &Matcher{
		defs:     defs,
		patterns: make([]*regexp.Regexp, len(defs)),
	}
	for i, def := range defs {
		re, err := regexp.Compile("^(?:" + def.EventTitle + ")$")
		if err != nil {
			return nil, fmt.Errorf("event handler %d: invalid event_title pattern %q: %w", i, def.EventTitle, err)
		}
		m.patterns[i] = re
	}
	return m, nil
}

// Match returns the first definition whose title pattern matches the event
// title, or false when no definition matches.
func (m *Matcher) Match(eventTitle string) (*Definition, bool) {
	for i, re := range m.patterns {
		if re.MatchString(eventTitle) {
			return &m.defs[i], true
		}
	}
	return nil, false
}

// Patterns returns the configured title patterns in order, for diagnostics.
func (m *Matcher) Patterns() []string {
	out := make([]string, len(m.defs))
	for i, def := range m.defs {
		out[i] = def.EventTitle
	}
	return out
}
