package featureset

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/internal/estest"
)

type testNode struct {
	id   string
	path string
	ctx  treesearch.Context
}

func (n *testNode) Identifier() string          { return n.id }
func (n *testNode) Path() string                { return n.path }
func (n *testNode) Context() treesearch.Context { return n.ctx }

type testResolver map[string]treesearch.Node

func (r testResolver) Resolve(_ context.Context, path string, _ treesearch.Context) (treesearch.Node, error) {
	if n, ok := r[path]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%s: %w", path, treesearch.ErrNodeNotFound)
}

func siteNode(dimensions map[string][]string) *testNode {
	return &testNode{
		id:   "site",
		path: "/sites/demo",
		ctx:  treesearch.NewContext(treesearch.NewWorkspace(treesearch.LiveWorkspace, nil), dimensions),
	}
}

// build runs feature against an empty result and returns the request it
// produced.
func build(t *testing.T, feature treesearch.Feature, params ...treesearch.Parameter) map[string]any {
	t.Helper()

	qb := treesearch.NewQueryBuilder(nil, treesearch.WithRequest(treesearch.NewRequest(params...)))
	_, err := feature.Process(qb, func(*treesearch.QueryBuilder) (*treesearch.Result, error) {
		return &treesearch.Result{}, nil
	})
	require.NoError(t, err)

	m, err := qb.BackendRequest()
	require.NoError(t, err)
	return m
}

// execute runs features through an endpoint whose backend answers every
// search with response.
func execute(t *testing.T, response string, request *treesearch.Request, features ...treesearch.Feature) (*treesearch.Result, map[string]any) {
	t.Helper()

	transport := estest.NewTransport(estest.Static(200, response))
	backend := treesearch.NewBackend(transport, treesearch.WithResolver(testResolver{
		"/sites/demo/a": &testNode{id: "a", path: "/sites/demo/a"},
		"/sites/demo/b": &testNode{id: "b", path: "/sites/demo/b"},
	}))

	result, err := treesearch.NewEndpoint(backend, features...).Execute(t.Context(), siteNode(nil), request)
	require.NoError(t, err)
	return result, transport.Last().JSON()
}

// facetResponse builds a search response with a single facet result.
func facetResponse(name string, facet map[string]any) string {
	body := map[string]any{
		"took": 1,
		"hits": map[string]any{
			"total": map[string]any{"value": 2},
			"hits": []any{
				map[string]any{"_id": "1", "fields": map[string]any{treesearch.PathField: []any{"/sites/demo/a"}}},
				map[string]any{"_id": "2", "fields": map[string]any{treesearch.PathField: []any{"/sites/demo/b"}}},
			},
		},
		"aggregations": map[string]any{
			treesearch.FacetsAggregation: map[string]any{
				"doc_count": 2,
				name:        map[string]any{"doc_count": 2, name: facet},
			},
		},
	}

	data, _ := json.Marshal(body)
	return string(data)
}

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

func filters(t *testing.T, m map[string]any, clause string) string {
	t.Helper()

	b := dig(t, m, "query", "filtered", "filter", "bool").(map[string]any)
	data, err := json.Marshal(b[clause])
	require.NoError(t, err)
	return string(data)
}

func facet(t *testing.T, m map[string]any, name string) map[string]any {
	t.Helper()
	return dig(t, m, "aggregations", treesearch.FacetsAggregation, "aggregations", name, "aggregations", name).(map[string]any)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
