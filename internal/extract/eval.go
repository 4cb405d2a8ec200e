package extract

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Evaluate resolves an extractor node against a raw JSON input. Pipelines
// pipe each step's output into the next step; the first failing step
// short-circuits the whole pipeline with an ExtractionError. No default is
// ever substituted for a missing result.
func (e *Evaluator) Evaluate(n *Node, input string) (string, error) {
	if n.IsLeaf() {
		return e.evalExpr(n.Expr, input)
	}

	cur := input
	for i := range n.Steps {
		res, err := e.Evaluate(&n.Steps[i], cur)
		if err != nil {
			return "", err
		}
		cur = res
	}
	return cur, nil
}

// EvaluateLabels resolves sibling label pipelines against the same input and
// merges the resulting flat string maps by key union. Later pipelines win on
// key collision, so list order is the tie-break. A failing sibling fails the
// whole label set.
func (e *Evaluator) EvaluateLabels(siblings NodeList, input string) (map[string]string, error) {
	merged := make(map[string]string)
	for i := range siblings {
		raw, err := e.Evaluate(&siblings[i], input)
		if err != nil {
			return nil, err
		}
		m, err := StringMap(raw)
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged, nil
}

// StringMap coerces a raw JSON result into a flat string-to-string map.
// Accepted shapes: an object of scalars, or a list of [key, value] scalar
// pairs. Anything nested fails.
func StringMap(raw string) (map[string]string, error) {
	parsed := gjson.Parse(raw)

	switch {
	case parsed.IsObject():
		m := make(map[string]string)
		var convErr error
		parsed.ForEach(func(k, v gjson.Result) bool {
			s, err := scalarString(v)
			if err != nil {
				convErr = fmt.Errorf("key %q: %w", k.String(), err)
				return false
			}
			m[k.String()] = s
			return true
		})
		return m, convErr
	case parsed.IsArray():
		m := make(map[string]string)
		var convErr error
		parsed.ForEach(func(_, pair gjson.Result) bool {
			if !pair.IsArray() {
				convErr = fmt.Errorf("expected a [key, value] pair, got %s", pair.Raw)
				return false
			}
			items := pair.Array()
			if len(items) != 2 {
				convErr = fmt.Errorf("expected a [key, value] pair, got %d elements", len(items))
				return false
			}
			k, err := scalarString(items[0])
			if err != nil {
				convErr = err
				return false
			}
			v, err := scalarString(items[1])
			if err != nil {
				convErr = fmt.Errorf("key %q: %w", k, err)
				return false
			}
			m[k] = v
			return true
		})
		return m, convErr
	default:
		return nil, fmt.Errorf("expected an object or a pair list, got %s", parsed.Raw)
	}
}

func scalarString(v gjson.Result) (string, error) {
	switch v.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return v.String(), nil
	default:
		return "", fmt.Errorf("value %s is not a scalar", v.Raw)
	}
}
