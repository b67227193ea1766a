package treesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reveald/treesearch/internal/estest"
)

type fakeNode struct {
	id   string
	path string
	ctx  Context
}

func (n *fakeNode) Identifier() string { return n.id }
func (n *fakeNode) Path() string       { return n.path }
func (n *fakeNode) Context() Context   { return n.ctx }

type fakeResolver struct {
	nodes map[string]Node
	errs  map[string]error
}

func (r *fakeResolver) Resolve(_ context.Context, path string, _ Context) (Node, error) {
	if err, ok := r.errs[path]; ok {
		return nil, err
	}
	if n, ok := r.nodes[path]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNodeNotFound)
}

type fakePresets map[string]DimensionPresets

func (p fakePresets) AllPresets() map[string]DimensionPresets { return p }

func liveRoot() *fakeNode {
	return &fakeNode{
		id:   "root",
		path: "/sites/demo",
		ctx:  NewContext(NewWorkspace(LiveWorkspace, nil), nil),
	}
}

// dig walks m along keys and fails the test when a key is missing.
func dig(t *testing.T, m map[string]any, keys ...string) any {
	t.Helper()

	var current any = m
	for _, k := range keys {
		obj, ok := current.(map[string]any)
		require.True(t, ok, "expected object at %q", k)
		current, ok = obj[k]
		require.True(t, ok, "missing key %q", k)
	}
	return current
}

func filterBool(t *testing.T, m map[string]any) map[string]any {
	t.Helper()
	return dig(t, m, "query", "filtered", "filter", "bool").(map[string]any)
}

func queryBool(t *testing.T, m map[string]any) map[string]any {
	t.Helper()
	return dig(t, m, "query", "filtered", "query", "bool").(map[string]any)
}

func requestMap(t *testing.T, qb *QueryBuilder) map[string]any {
	t.Helper()
	m, err := qb.BackendRequest()
	require.NoError(t, err)
	return m
}

func hitJSON(id, nodePath string, sort ...any) map[string]any {
	h := map[string]any{
		"_id":    id,
		"_index": "treesearch",
		"fields": map[string]any{PathField: []any{nodePath}},
	}
	if len(sort) > 0 {
		h["sort"] = sort
	}
	return h
}

func searchBody(total int, hits []map[string]any, extra map[string]any) string {
	body := map[string]any{
		"took": 3,
		"hits": map[string]any{
			"total": map[string]any{"value": total, "relation": "eq"},
			"hits":  hits,
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	data, _ := json.Marshal(body)
	return string(data)
}

// searchBackend answers searches with search and counts with count.
func searchBackend(search string, count int, opts ...BackendOption) (*Backend, *estest.Transport) {
	transport := estest.NewTransport(func(r estest.Request) (int, string) {
		if len(r.Path) >= 7 && r.Path[len(r.Path)-7:] == "/_count" {
			return 200, fmt.Sprintf(`{"count":%d}`, count)
		}
		return 200, search
	})
	return NewBackend(transport, opts...), transport
}
