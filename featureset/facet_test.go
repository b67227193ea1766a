package featureset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/treesearch"
)

func Test_FacetFeature_Build(t *testing.T) {
	m := build(t, NewFacetFeature("color",
		WithFacetField("color.keyword"),
		WithAggregationSize(20),
	), treesearch.NewParameter("color", "red", "blue"))

	terms := dig(t, facet(t, m, "color"), "terms").(map[string]any)
	assert.Equal(t, "color.keyword", terms["field"])
	assert.Equal(t, float64(20), terms["size"])

	assert.Contains(t, filters(t, m, "must"), `"color.keyword":["red","blue"]`)
}

func Test_FacetFeature_ProtectedFrom(t *testing.T) {
	qb := treesearch.NewQueryBuilder(nil)
	_, err := NewFacetFeature("color", WithProtectedFrom("size")).Process(qb, func(qb *treesearch.QueryBuilder) (*treesearch.Result, error) {
		qb.ExactMatch("size", "xl")
		qb.ExactMatch("brand", "acme")
		return &treesearch.Result{}, nil
	})
	require.NoError(t, err)

	var fields []string
	for _, f := range qb.FacetFilters() {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"size", "brand"}, fields)

	m, err := qb.BackendRequest()
	require.NoError(t, err)

	scoped := dig(t, m, "aggregations", treesearch.FacetsAggregation, "aggregations", "color", "filter")
	assert.Contains(t, mustJSON(t, scoped), `"brand"`)
	assert.NotContains(t, mustJSON(t, scoped), `"size"`)
}

func Test_FacetFeature_Handle(t *testing.T) {
	response := facetResponse("color", map[string]any{
		"buckets": []any{
			map[string]any{"key": "red", "doc_count": 2},
			map[string]any{"key": "blue", "doc_count": 1},
		},
	})

	result, _ := execute(t, response, treesearch.NewRequest(), NewFacetFeature("color"))

	require.Len(t, result.Buckets["color"], 2)
	assert.Equal(t, "red", result.Buckets["color"][0].Value)
	assert.Equal(t, int64(2), result.Buckets["color"][0].HitCount)
	assert.Len(t, result.Nodes(), 2)
}
