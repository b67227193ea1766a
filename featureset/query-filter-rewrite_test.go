package featureset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/treesearch"
)

func Test_QueryFilterRewriteFeature(t *testing.T) {
	table := []struct {
		name   string
		params []treesearch.Parameter
		query  []string
		colors []string
	}{
		{"no query", nil, nil, nil},
		{"no match", []treesearch.Parameter{treesearch.NewParameter("q", "running shoes")}, []string{"running shoes"}, nil},
		{"match", []treesearch.Parameter{treesearch.NewParameter("q", "red  shoes")}, []string{"shoes"}, []string{"red"}},
		{"case insensitive", []treesearch.Parameter{treesearch.NewParameter("q", "Blue shoes")}, []string{"shoes"}, []string{"Blue"}},
		{"only filters", []treesearch.Parameter{treesearch.NewParameter("q", "red blue")}, nil, []string{"red", "blue"}},
		{"already selected", []treesearch.Parameter{treesearch.NewParameter("q", "red shoes"), treesearch.NewParameter("color", "red")}, []string{"shoes"}, []string{"red"}},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			feature := NewQueryFilterRewriteFeature(WithRewriteMatcher("color", "red", "blue"))

			qb := treesearch.NewQueryBuilder(nil, treesearch.WithRequest(treesearch.NewRequest(tt.params...)))
			_, err := feature.Process(qb, func(*treesearch.QueryBuilder) (*treesearch.Result, error) {
				return &treesearch.Result{}, nil
			})
			require.NoError(t, err)

			q, err := qb.Request().Get("q")
			if tt.query == nil {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.query, q.Values())
			}

			color, err := qb.Request().Get("color")
			if tt.colors == nil {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.ElementsMatch(t, tt.colors, color.Values())
			}
		})
	}
}

func Test_QueryFilterRewriteFeature_BeforeFacet(t *testing.T) {
	m := build(t, chainFeatures(
		NewQueryFilterRewriteFeature(WithRewriteQueryParam("search"), WithRewriteMatcher("color", "red")),
		NewFulltextFeature(WithQueryParam("search")),
		NewFacetFeature("color"),
	), treesearch.NewParameter("search", "red shoes"))

	assert.Contains(t, filters(t, m, "must"), `"color":["red"]`)
	assert.Contains(t, mustJSON(t, dig(t, m, "query", "filtered", "query")), `"query":"shoes"`)
}

type chain []treesearch.Feature

func chainFeatures(features ...treesearch.Feature) chain {
	return features
}

func (c chain) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	if len(c) == 0 {
		return next(builder)
	}
	return c[0].Process(builder, func(qb *treesearch.QueryBuilder) (*treesearch.Result, error) {
		return c[1:].Process(qb, next)
	})
}
