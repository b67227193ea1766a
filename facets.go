package treesearch

import (
	"slices"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// FacetFilter records a filter added through QueryFilter so it can be
// applied to facets registered before and after it.
type FacetFilter struct {
	Clause     ClauseType
	FilterType string
	Field      string
	Query      types.Query
}

type facet struct {
	name       string
	parentPath string
	filter     *types.BoolQuery
	protected  map[string]struct{}
}

// protects reports whether the facet must ignore filters on field. A facet
// is always protected from its own name.
func (f *facet) protects(field string) bool {
	_, ok := f.protected[field]
	return ok
}

func (f *facet) apply(clause ClauseType, query types.Query) {
	switch clause {
	case Must:
		f.filter.Must = append(f.filter.Must, query)
	case Should:
		f.filter.Should = append(f.filter.Should, query)
	case MustNot:
		f.filter.MustNot = append(f.filter.MustNot, query)
	}
}

// facetRegistry keeps the filter history of a builder and the filter clause
// of every facet aggregation in sync with it.
type facetRegistry struct {
	facets   []*facet
	filters  []FacetFilter
	fulltext []types.Query
}

func newFacetRegistry() *facetRegistry {
	return &facetRegistry{}
}

// register creates the filter of a new facet from the current full-text
// clauses and every recorded filter the facet is not protected from.
// Registering a name twice replaces the earlier facet.
func (r *facetRegistry) register(name string, protectedFields []string) *facet {
	f := &facet{
		name:      name,
		filter:    &types.BoolQuery{},
		protected: map[string]struct{}{name: {}},
	}
	for _, field := range protectedFields {
		f.protected[field] = struct{}{}
	}

	f.filter.Must = append(f.filter.Must, r.fulltext...)
	for _, ff := range r.filters {
		if !f.protects(ff.Field) {
			f.apply(ff.Clause, ff.Query)
		}
	}

	r.facets = slices.DeleteFunc(r.facets, func(existing *facet) bool {
		return existing.name == name
	})
	r.facets = append(r.facets, f)
	return f
}

// addFilter records ff and appends it to every registered facet that is not
// protected from its field.
func (r *facetRegistry) addFilter(ff FacetFilter) {
	r.filters = append(r.filters, ff)

	for _, f := range r.facets {
		if !f.protects(ff.Field) {
			f.apply(ff.Clause, ff.Query)
		}
	}
}

// addFulltext scopes every facet, protected or not, to a full-text clause.
func (r *facetRegistry) addFulltext(query types.Query) {
	r.fulltext = append(r.fulltext, query)

	for _, f := range r.facets {
		f.filter.Must = append(f.filter.Must, query)
	}
}

func (r *facetRegistry) lookup(name string) (*facet, bool) {
	for _, f := range r.facets {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

// history returns the recorded filters in insertion order.
func (r *facetRegistry) history() []FacetFilter {
	return slices.Clone(r.filters)
}

// filterField returns the filter type and the field a filter applies to.
//
// Term, range and match style filters have a single field. For a terms
// filter the first field in sorted order is used, so filters spanning
// several fields are only protection-checked against one of them.
func filterField(q types.Query) (string, string) {
	switch {
	case len(q.Term) > 0:
		return "term", firstKey(q.Term)
	case q.Terms != nil && len(q.Terms.TermsQuery) > 0:
		return "terms", firstKey(q.Terms.TermsQuery)
	case len(q.Range) > 0:
		return "range", firstKey(q.Range)
	case len(q.MatchPhrase) > 0:
		return "match_phrase", firstKey(q.MatchPhrase)
	case len(q.MatchPhrasePrefix) > 0:
		return "match_phrase_prefix", firstKey(q.MatchPhrasePrefix)
	case len(q.Match) > 0:
		return "match", firstKey(q.Match)
	case len(q.Prefix) > 0:
		return "prefix", firstKey(q.Prefix)
	case q.Exists != nil:
		return "exists", q.Exists.Field
	}

	return "", ""
}

func firstKey[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys[0]
}
