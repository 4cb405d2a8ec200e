package server

import (
	"encoding/json"
	"net/http"
)

// requestProps is the flattened request half of the evaluation context.
// These keys are a documented, stable contract for configuration authors:
// extractors address them as req.method, req.headers.<Name>, req.query.<k>.
type requestProps struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	RemoteAddr string            `json:"remote_addr"`
	Headers    map[string]string `json:"headers"`
	Query      map[string]string `json:"query"`
}

type evalContext struct {
	Req  requestProps    `json:"req"`
	Data json.RawMessage `json:"data"`
}

// buildContext assembles the per-request evaluation context document
// {req: …, data: …}. A missing or malformed body becomes data: null, so
// data extractors fail individually instead of failing the request.
func buildContext(r *http.Request, body []byte) (string, error) {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	query := make(map[string]string)
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	data := json.RawMessage("null")
	if len(body) > 0 && json.Valid(body) {
		data = body
	}

	ctx, err := json.Marshal(evalContext{
		Req: requestProps{
			Method:     r.Method,
			Path:       r.URL.Path,
			RemoteAddr: r.RemoteAddr,
			Headers:    headers,
			Query:      query,
		},
		Data: data,
	})
	if err != nil {
		return "", err
	}
	return string(ctx), nil
}
