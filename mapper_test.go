package treesearch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, body string) *searchResponse {
	t.Helper()

	var sr searchResponse
	require.NoError(t, json.Unmarshal([]byte(body), &sr))
	return &sr
}

func nodeIDs(nodes []Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.Identifier())
	}
	return ids
}

func Test_MapResultDeduplicates(t *testing.T) {
	a := &fakeNode{id: "A", path: "/sites/demo/a"}
	b := &fakeNode{id: "B", path: "/sites/demo/b"}
	resolver := &fakeResolver{nodes: map[string]Node{a.path: a, b.path: b}}

	sr := decodeResponse(t, searchBody(3, []map[string]any{
		hitJSON("a-live", a.path, 1.5),
		hitJSON("a-user", a.path, 0.5),
		hitJSON("b-live", b.path, 2.5),
	}, nil))

	m, err := mapResult(t.Context(), sr, resolver, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, nodeIDs(m.nodes))
	assert.Equal(t, "a-live", m.hits["A"].ID)
	assert.Equal(t, 1.5, m.distances["A"])
	assert.Equal(t, 2.5, m.distances["B"])
}

func Test_MapResultLimit(t *testing.T) {
	nodes := map[string]Node{}
	var hits []map[string]any
	for _, id := range []string{"a", "b", "c", "d"} {
		n := &fakeNode{id: id, path: "/sites/demo/" + id}
		nodes[n.path] = n
		hits = append(hits, hitJSON(id, n.path))
	}
	sr := decodeResponse(t, searchBody(4, hits, nil))

	table := []struct {
		name     string
		limit    int
		expected []string
	}{
		{"unlimited", 0, []string{"a", "b", "c", "d"}},
		{"negative", -1, []string{"a", "b", "c", "d"}},
		{"two", 2, []string{"a", "b"}},
		{"more than available", 10, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			m, err := mapResult(t.Context(), sr, &fakeResolver{nodes: nodes}, nil, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, nodeIDs(m.nodes))
		})
	}
}

func Test_MapResultSkipsUnresolved(t *testing.T) {
	a := &fakeNode{id: "A", path: "/sites/demo/a"}
	resolver := &fakeResolver{
		nodes: map[string]Node{a.path: a, "/sites/demo/nil": nil},
	}

	sr := decodeResponse(t, searchBody(4, []map[string]any{
		hitJSON("gone", "/sites/demo/deleted"),
		hitJSON("nil", "/sites/demo/nil"),
		{"_id": "pathless"},
		hitJSON("a", a.path),
	}, nil))

	m, err := mapResult(t.Context(), sr, resolver, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, nodeIDs(m.nodes))
}

func Test_MapResultResolverError(t *testing.T) {
	boom := errors.New("repository unavailable")
	resolver := &fakeResolver{errs: map[string]error{"/sites/demo/a": boom}}

	sr := decodeResponse(t, searchBody(1, []map[string]any{hitJSON("a", "/sites/demo/a")}, nil))

	_, err := mapResult(t.Context(), sr, resolver, nil, 0)
	assert.ErrorIs(t, err, boom)
}

func Test_SplitFacets(t *testing.T) {
	sr := decodeResponse(t, searchBody(0, nil, map[string]any{
		"aggregations": map[string]any{
			"authors": map[string]any{"buckets": []any{}},
			FacetsAggregation: map[string]any{
				"doc_count": 42,
				"color": map[string]any{
					"doc_count": 10,
					"color": map[string]any{"buckets": []any{
						map[string]any{"key": "red", "doc_count": 7},
					}},
				},
			},
		},
	}))

	m, err := mapResult(t.Context(), sr, &fakeResolver{}, nil, 0)
	require.NoError(t, err)

	assert.Contains(t, m.aggregations, "authors")
	assert.NotContains(t, m.aggregations, FacetsAggregation)
	assert.Len(t, m.facets, 1)

	buckets := Buckets(m.facets["color"])
	require.Len(t, buckets, 1)
	assert.Equal(t, "red", buckets[0].Value)
	assert.Equal(t, int64(7), buckets[0].HitCount)
}

func Test_Buckets(t *testing.T) {
	agg := map[string]any{
		"buckets": []any{
			map[string]any{
				"key":           float64(1700000000000),
				"key_as_string": "2023-11-14",
				"doc_count":     float64(3),
				"authors": map[string]any{"buckets": []any{
					map[string]any{"key": "jane", "doc_count": float64(2)},
				}},
			},
		},
	}

	buckets := Buckets(agg)
	require.Len(t, buckets, 1)
	assert.Equal(t, "2023-11-14", buckets[0].Value)
	assert.Equal(t, int64(3), buckets[0].HitCount)
	require.Len(t, buckets[0].SubResultBuckets["authors"], 1)
	assert.Equal(t, "jane", buckets[0].SubResultBuckets["authors"][0].Value)

	keyed := Buckets(map[string]any{"buckets": map[string]any{
		"cheap":     map[string]any{"doc_count": float64(4)},
		"expensive": map[string]any{"doc_count": float64(1)},
	}})
	require.Len(t, keyed, 2)
	assert.Equal(t, "cheap", keyed[0].Value)

	assert.Nil(t, Buckets(map[string]any{"min": 1.0, "max": 2.0}))
	assert.Nil(t, Buckets("nope"))
}

func Test_Total(t *testing.T) {
	table := []struct {
		name  string
		body  string
		total int64
	}{
		{"object", `{"hits":{"total":{"value":12,"relation":"eq"},"hits":[]}}`, 12},
		{"number", `{"hits":{"total":7,"hits":[]}}`, 7},
		{"missing", `{"hits":{"hits":[]}}`, 0},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.total, decodeResponse(t, tt.body).total())
		})
	}
}

func Test_HitPath(t *testing.T) {
	fromFields := Hit{Fields: map[string][]any{PathField: {"/a"}}}
	fromSource := Hit{Source: map[string]any{PathField: "/b"}}

	assert.Equal(t, "/a", fromFields.Path())
	assert.Equal(t, "/b", fromSource.Path())
	assert.Equal(t, "", Hit{}.Path())
}
