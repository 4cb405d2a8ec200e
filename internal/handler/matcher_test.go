package handler

import (
	"testing"
)

func TestMatcherFirstMatchWins(t *testing.T) {
	// Both patterns match "deploy-prod"; configuration order decides.
	m, err := NewMatcher([]Definition{
		{EventTitle: "deploy.*"},
		{EventTitle: "deploy-prod"},
	})
	if err != nil {
		t.Fatal(err)
	}

	def, ok := m.Match("deploy-prod")
	if !ok {
		t.Fatal("expected a match")
	}
	if def.EventTitle != "deploy.*" {
		t.Errorf("matched %q, want first configured pattern %q", def.EventTitle, "deploy.*")
	}
}

func TestMatcherAnchoring(t *testing.T) {
	m, err := NewMatcher([]Definition{{EventTitle: "deploy"}})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := m.Match("deploy-prod"); ok {
		t.Error("pattern without wildcards must match the full title only")
	}
	if _, ok := m.Match("deploy"); !ok {
		t.Error("exact title should match")
	}
}

func TestMatcherNoMatch(t *testing.T) {
	m, err := NewMatcher([]Definition{{EventTitle: "deploy.*"}})
	if err != nil {
		t.Fatal(err)
	}

	if def, ok := m.Match("build-123"); ok {
		t.Errorf("expected no match, got %q", def.EventTitle)
	}
}

func TestNewMatcherInvalidPattern(t *testing.T) {
	if _, err := NewMatcher([]Definition{{EventTitle: "deploy-("}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestMatcherPatterns(t *testing.T) {
	m, err := NewMatcher([]Definition{{EventTitle: "a.*"}, {EventTitle: "b.*"}})
	if err != nil {
		t.Fatal(err)
	}

	got := m.Patterns()
	if len(got) != 2 || got[0] != "a.*" || got[1] != "b.*" {
		t.Errorf("Patterns() = %v, want [a.* b.*]", got)
	}
}
