// Package estest provides a fake Elasticsearch transport for tests.
package estest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Request is a request received by a Transport.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// JSON decodes the request body into a map.
func (r Request) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

// Handler produces the status code and body for a request.
type Handler func(Request) (int, string)

// Transport records every request and answers it with a Handler. It
// satisfies esapi.Transport.
type Transport struct {
	mu       sync.Mutex
	handler  Handler
	requests []Request
}

// NewTransport returns a transport answering with handler.
func NewTransport(handler Handler) *Transport {
	return &Transport{handler: handler}
}

// Static returns a handler answering every request with status and body.
func Static(status int, body string) Handler {
	return func(Request) (int, string) {
		return status, body
	}
}

// Perform records req and returns the handler's response.
func (t *Transport) Perform(req *http.Request) (*http.Response, error) {
	r := Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.RawQuery,
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		r.Body = body
	}

	t.mu.Lock()
	t.requests = append(t.requests, r)
	t.mu.Unlock()

	status, body := t.handler(r)
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

// Requests returns the recorded requests in arrival order.
func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

// Last returns the most recent request.
func (t *Transport) Last() Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return Request{}
	}
	return t.requests[len(t.requests)-1]
}

// BulkResponse builds a successful bulk response for an NDJSON bulk body.
// Every action line gets an item with status 200.
func BulkResponse(body []byte) string {
	type item map[string]map[string]any
	items := []item{}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	expectSource := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if expectSource {
			expectSource = false
			continue
		}

		var action map[string]map[string]any
		if err := json.Unmarshal(line, &action); err != nil {
			continue
		}
		for name, meta := range action {
			items = append(items, item{name: {"_id": meta["_id"], "status": 200, "result": "updated"}})
			expectSource = name != "delete"
		}
	}

	data, _ := json.Marshal(map[string]any{"took": 1, "errors": false, "items": items})
	return string(data)
}
