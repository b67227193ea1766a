package featureset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/treesearch"
)

func Test_FulltextFeature(t *testing.T) {
	table := []struct {
		name      string
		feature   *FulltextFeature
		params    []treesearch.Parameter
		query     string
		highlight string
	}{
		{"no param", NewFulltextFeature(), nil, "", ""},
		{"empty param", NewFulltextFeature(), []treesearch.Parameter{treesearch.NewParameter("q", "")}, "", ""},
		{"default fields", NewFulltextFeature(), []treesearch.Parameter{treesearch.NewParameter("q", "shoes")}, `"query":"shoes"`, treesearch.FulltextFieldPattern},
		{"custom param", NewFulltextFeature(WithQueryParam("search")), []treesearch.Parameter{treesearch.NewParameter("search", "boots")}, `"query":"boots"`, treesearch.FulltextFieldPattern},
		{"fields", NewFulltextFeature(WithFields("title")), []treesearch.Parameter{treesearch.NewParameter("q", "shoes")}, `"fields":["title"]`, "title"},
		{"without highlight", NewFulltextFeature(WithoutHighlight()), []treesearch.Parameter{treesearch.NewParameter("q", "shoes")}, `"query":"shoes"`, ""},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			m := build(t, tt.feature, tt.params...)

			query, err := json.Marshal(dig(t, m, "query", "filtered", "query", "bool", "must"))
			require.NoError(t, err)

			if tt.query == "" {
				assert.NotContains(t, string(query), "query_string")
			} else {
				assert.Contains(t, string(query), tt.query)
			}

			if tt.highlight == "" {
				assert.NotContains(t, m, "highlight")
			} else {
				assert.Contains(t, dig(t, m, "highlight", "fields"), tt.highlight)
			}
		})
	}
}
