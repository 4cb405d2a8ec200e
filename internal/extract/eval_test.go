package extract

import (
	"errors"
	"reflect"
	"testing"
)

const testContext = `{
	"req": {"method": "POST", "path": "/webhook/deploy-prod"},
	"data": {
		"count": 3,
		"message": "load (12.5) exceeded",
		"l1": {"x": "1", "a": "1"},
		"l2": {"x": "2", "b": "2"},
		"nested": {"deep": {"leaf": "ok"}}
	}
}`

func leaf(expr string) Node { return Node{Expr: expr} }

func pipeline(nodes ...Node) Node { return Node{Steps: nodes} }

func TestEvaluate(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name    string
		node    Node
		want    string
		wantErr bool
	}{
		{
			name: "path query",
			node: leaf("data.count"),
			want: "3",
		},
		{
			name:    "path query with no value fails",
			node:    leaf("data.missing"),
			wantErr: true,
		},
		{
			name: "regex first capture group",
			node: leaf(`/\((\d+\.\d+)\)/`),
			want: `"12.5"`,
		},
		{
			name: "regex full match without groups",
			node: leaf(`/exceeded/`),
			want: `"exceeded"`,
		},
		{
			name:    "regex matching nothing fails",
			node:    leaf(`/nowhere-to-be-seen/`),
			wantErr: true,
		},
		{
			name: "string literal",
			node: leaf("'counter'"),
			want: `"counter"`,
		},
		{
			name: "pipeline pipes step output into next step",
			node: pipeline(leaf("data.message"), leaf(`/\((\d+\.\d+)\)/`)),
			want: `"12.5"`,
		},
		{
			name: "nested lists splice as sequential steps",
			node: pipeline(pipeline(leaf("data.nested")), pipeline(leaf("deep"), leaf("leaf"))),
			want: `"ok"`,
		},
		{
			name: "single-step pipeline equals bare leaf",
			node: pipeline(leaf("data.count")),
			want: "3",
		},
		{
			name: "double-nested single step equals bare leaf",
			node: pipeline(pipeline(leaf("data.count"))),
			want: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(&tt.node, testContext)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Evaluate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	e := NewEvaluator()

	// Step 2 fails, so the pipeline must fail with step 2's expression and
	// never reach step 3.
	node := pipeline(leaf("data.message"), leaf("data.missing"), leaf(`/never-evaluated/`))

	_, err := e.Evaluate(&node, testContext)
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if exErr.Expr != "data.missing" {
		t.Errorf("pipeline failed at %q, want failure at step 2 %q", exErr.Expr, "data.missing")
	}
}

func TestEvaluateLabels(t *testing.T) {
	e := NewEvaluator()

	t.Run("later sibling wins on key collision", func(t *testing.T) {
		got, err := e.EvaluateLabels(NodeList{leaf("data.l1"), leaf("data.l2")}, testContext)
		if err != nil {
			t.Fatalf("EvaluateLabels() error = %v", err)
		}
		want := map[string]string{"x": "2", "a": "1", "b": "2"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("EvaluateLabels() = %v, want %v", got, want)
		}
	})

	t.Run("failing sibling fails the label set", func(t *testing.T) {
		_, err := e.EvaluateLabels(NodeList{leaf("data.l1"), leaf("data.missing")}, testContext)
		if err == nil {
			t.Fatal("expected error for failing sibling pipeline")
		}
	})

	t.Run("non-mapping result fails", func(t *testing.T) {
		_, err := e.EvaluateLabels(NodeList{leaf("data.count")}, testContext)
		if err == nil {
			t.Fatal("expected error for scalar label result")
		}
	})
}

func TestStringMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "flat object",
			raw:  `{"a":"1","b":"2"}`,
			want: map[string]string{"a": "1", "b": "2"},
		},
		{
			name: "scalars coerce to strings",
			raw:  `{"n":3,"ok":true}`,
			want: map[string]string{"n": "3", "ok": "true"},
		},
		{
			name: "pair list",
			raw:  `[["a","1"],["b",2]]`,
			want: map[string]string{"a": "1", "b": "2"},
		},
		{
			name:    "nested object fails",
			raw:     `{"a":{"b":"1"}}`,
			wantErr: true,
		},
		{
			name:    "scalar fails",
			raw:     `3`,
			wantErr: true,
		},
		{
			name:    "malformed pair fails",
			raw:     `[["a","1","extra"]]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StringMap(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StringMap() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StringMap() = %v, want %v", got, tt.want)
			}
		})
	}
}
