package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// ExtractionError reports a pipeline step that yielded no result. The field
// being extracted stays unset; the error never aborts sibling fields.
type ExtractionError struct {
	Expr   string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %s", e.Expr, e.Reason)
}

// Evaluator evaluates extractor expressions against raw JSON values.
// Expressions come from trusted configuration; the values they run against
// (webhook payloads) are not trusted. Regexes run on Go's RE2 engine, so a
// hostile payload cannot trigger catastrophic backtracking.
//
// Compiled regexes are cached per expression, same as the pattern matcher
// caches compiled patterns.
type Evaluator struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		compiled: make(map[string]*regexp.Regexp),
	}
}

// evalExpr evaluates a single leaf expression. A `/…/`-delimited expression
// is a regex over the JSON text of the input, a `'…'`-quoted expression is a
// string literal, and anything else is a gjson path query. All of them
// return raw JSON so results can feed the next pipeline step.
func (e *Evaluator) evalExpr(expr, input string) (string, error) {
	if isRegex(expr) {
		return e.evalRegex(expr, input)
	}
	if lit, ok := literal(expr); ok {
		quoted, err := json.Marshal(lit)
		if err != nil {
			return "", &ExtractionError{Expr: expr, Reason: err.Error()}
		}
		return string(quoted), nil
	}

	res := gjson.Get(input, expr)
	if !res.Exists() {
		return "", &ExtractionError{Expr: expr, Reason: "path query yielded no value"}
	}
	return res.Raw, nil
}

func (e *Evaluator) evalRegex(expr, input string) (string, error) {
	re, err := e.compile(strings.TrimSuffix(strings.TrimPrefix(expr, "/"), "/"))
	if err != nil {
		return "", &ExtractionError{Expr: expr, Reason: err.Error()}
	}

	m := re.FindStringSubmatch(input)
	if m == nil {
		return "", &ExtractionError{Expr: expr, Reason: "regex matched nothing"}
	}

	// First capture group if present, full match otherwise.
	matched := m[0]
	if len(m) > 1 {
		matched = m[1]
	}

	quoted, err := json.Marshal(matched)
	if err != nil {
		return "", &ExtractionError{Expr: expr, Reason: err.Error()}
	}
	return string(quoted), nil
}

func (e *Evaluator) compile(pattern string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	re, ok := e.compiled[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		e.compiled[pattern] = re
	}
	return re, nil
}

func isRegex(expr string) bool {
	return len(expr) >= 2 && strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/")
}

// literal recognizes `'…'`-quoted string literals, the form configurations
// use for constant fields like a fixed metric type.
func literal(expr string) (string, bool) {
	if len(expr) >= 2 && strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'") {
		return expr[1 : len(expr)-1], true
	}
	return "", false
}
