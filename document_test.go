package treesearch

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CountBody(t *testing.T) {
	field := "author"
	qb := NewQueryBuilder(nil).
		Context(liveRoot()).
		Fulltext("hello").
		SortAscending("title").
		Limit(10).
		Offset(10).
		TermSuggestion("spelling", "helo", "title")
	require.NoError(t, qb.Aggregation("authors", types.Aggregations{Terms: &types.TermsAggregation{Field: &field}}, ""))

	full := requestMap(t, qb)
	for _, key := range countExcludedKeys {
		if key == "aggs" {
			continue
		}
		require.Contains(t, full, key)
	}

	body, err := qb.countBody()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	assert.Equal(t, []string{"query", "suggest"}, keys)
	assert.Equal(t, full["query"], m["query"])
}

func Test_AggregationsAt(t *testing.T) {
	d := newRequestDocument()
	d.aggregations["outer"] = types.Aggregations{Global: &types.GlobalAggregation{}}

	top, err := d.aggregationsAt("test", "")
	require.NoError(t, err)
	assert.Contains(t, top, "outer")

	inner, err := d.aggregationsAt("test", "outer")
	require.NoError(t, err)
	inner["middle"] = types.Aggregations{}

	_, err = d.aggregationsAt("test", "outer.middle")
	assert.NoError(t, err)

	_, err = d.aggregationsAt("test", "outer.missing.deeper")
	var qbe *QueryBuildingError
	require.ErrorAs(t, err, &qbe)
	assert.Equal(t, "test", qbe.Op)
	assert.Contains(t, qbe.Reason, `"missing"`)
}

func Test_NoAggregationsSection(t *testing.T) {
	m, err := newRequestDocument().Map()
	require.NoError(t, err)

	assert.NotContains(t, m, "aggregations")
	assert.NotContains(t, m, "highlight")
	assert.NotContains(t, m, "sort")
}
