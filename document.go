package treesearch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// Fields written by the indexer and matched by the query builder.
const (
	IdentifierField            = "__identifier"
	PathField                  = "__path"
	ParentPathField            = "__parentPath"
	TypeAndSupertypesField     = "__typeAndSupertypes"
	WorkspaceField             = "__workspace"
	DimensionCombinationsField = "__dimensionCombinations"
	DimensionHashField         = "__dimensionCombinationHash"
	FulltextField              = "__fulltext"
	FulltextFieldPattern       = "__fulltext*"
	HiddenField                = "_hidden"
	HiddenBeforeDateTimeField  = "_hiddenBeforeDateTime"
	HiddenAfterDateTimeField   = "_hiddenAfterDateTime"
	AccessRolesField           = "_accessRoles"
)

// FacetsAggregation is the reserved aggregation wrapping every facet.
const FacetsAggregation = "facets"

// countExcludedKeys are the request sections Elasticsearch rejects in a
// count request.
var countExcludedKeys = []string{"fields", "sort", "from", "size", "highlight", "aggs", "aggregations"}

// ClauseType selects the bool clause a query or filter is appended to.
type ClauseType string

const (
	Must    ClauseType = "must"
	Should  ClauseType = "should"
	MustNot ClauseType = "must_not"
)

func (c ClauseType) valid() bool {
	return c == Must || c == Should || c == MustNot
}

// BoolClause is a bool query whose three clause lists are always present
// on the wire, even when empty.
type BoolClause struct {
	Must    []types.Query `json:"must"`
	Should  []types.Query `json:"should"`
	MustNot []types.Query `json:"must_not"`
}

func newBoolClause() *BoolClause {
	return &BoolClause{
		Must:    []types.Query{},
		Should:  []types.Query{},
		MustNot: []types.Query{},
	}
}

func (b *BoolClause) append(clause ClauseType, query types.Query) {
	switch clause {
	case Must:
		b.Must = append(b.Must, query)
	case Should:
		b.Should = append(b.Should, query)
	case MustNot:
		b.MustNot = append(b.MustNot, query)
	}
}

// HighlightField configures highlighting for one field pattern.
type HighlightField struct {
	FragmentSize      int `json:"fragment_size"`
	NumberOfFragments int `json:"no_of_fragments"`
}

// Highlight is the highlight section of a search request.
type Highlight struct {
	Fields map[string]HighlightField `json:"fields"`
}

// RequestDocument is the search request a QueryBuilder assembles.
//
// It always carries a filtered query with a bool query part and a bool
// filter part. The accessibility filters excluding hidden, not yet visible,
// expired and access restricted documents are rendered at the head of the
// filter's must_not clause until they are explicitly reset.
type RequestDocument struct {
	query         *BoolClause
	filter        *BoolClause
	accessibility []types.Query
	fields        []string
	sort          []types.SortCombinations
	from          *int
	size          *int
	highlight     *Highlight
	aggregations  map[string]types.Aggregations
	suggest       map[string]types.FieldSuggester
}

type wireBool struct {
	Bool *BoolClause `json:"bool"`
}

type wireFiltered struct {
	Query  wireBool `json:"query"`
	Filter wireBool `json:"filter"`
}

type wireQuery struct {
	Filtered wireFiltered `json:"filtered"`
}

type wireDocument struct {
	Query        wireQuery                       `json:"query"`
	Fields       []string                        `json:"fields,omitempty"`
	Sort         []types.SortCombinations        `json:"sort,omitempty"`
	From         *int                            `json:"from,omitempty"`
	Size         *int                            `json:"size,omitempty"`
	Highlight    *Highlight                      `json:"highlight,omitempty"`
	Aggregations map[string]types.Aggregations   `json:"aggregations,omitempty"`
	Suggest      map[string]types.FieldSuggester `json:"suggest,omitempty"`
}

func newRequestDocument() *RequestDocument {
	query := newBoolClause()
	query.Must = append(query.Must, types.Query{MatchAll: &types.MatchAllQuery{}})

	return &RequestDocument{
		query:         query,
		filter:        newBoolClause(),
		accessibility: accessibilityFilters(),
		fields:        []string{PathField},
		aggregations:  make(map[string]types.Aggregations),
	}
}

func accessibilityFilters() []types.Query {
	return []types.Query{
		{Term: map[string]types.TermQuery{HiddenField: {Value: true}}},
		{Range: map[string]types.RangeQuery{HiddenBeforeDateTimeField: &types.UntypedRangeQuery{Gt: json.RawMessage(`"now"`)}}},
		{Range: map[string]types.RangeQuery{HiddenAfterDateTimeField: &types.UntypedRangeQuery{Lt: json.RawMessage(`"now"`)}}},
		{Exists: &types.ExistsQuery{Field: AccessRolesField}},
	}
}

// MarshalJSON renders the document in the wire format of the search backend.
func (d *RequestDocument) MarshalJSON() ([]byte, error) {
	filter := &BoolClause{
		Must:    d.filter.Must,
		Should:  d.filter.Should,
		MustNot: make([]types.Query, 0, len(d.accessibility)+len(d.filter.MustNot)),
	}
	filter.MustNot = append(filter.MustNot, d.accessibility...)
	filter.MustNot = append(filter.MustNot, d.filter.MustNot...)

	wire := wireDocument{
		Query: wireQuery{
			Filtered: wireFiltered{
				Query:  wireBool{Bool: d.query},
				Filter: wireBool{Bool: filter},
			},
		},
		Fields:    d.fields,
		Sort:      d.sort,
		From:      d.from,
		Size:      d.size,
		Highlight: d.highlight,
		Suggest:   d.suggest,
	}
	if len(d.aggregations) > 0 {
		wire.Aggregations = d.aggregations
	}

	return json.Marshal(wire)
}

// Map returns a decoded copy of the document. Changing the returned map has
// no effect on the document.
func (d *RequestDocument) Map() (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request document: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode request document: %w", err)
	}

	return result, nil
}

// countBody renders the document without the sections a count request
// does not accept.
func (d *RequestDocument) countBody() ([]byte, error) {
	m, err := d.Map()
	if err != nil {
		return nil, err
	}

	for _, key := range countExcludedKeys {
		delete(m, key)
	}

	return json.Marshal(m)
}

// aggregationsAt resolves a dot separated aggregation path to the
// sub-aggregation map of the aggregation it names. An empty path addresses
// the top level.
func (d *RequestDocument) aggregationsAt(op, path string) (map[string]types.Aggregations, error) {
	current := d.aggregations
	if path == "" {
		return current, nil
	}

	for _, segment := range strings.Split(path, ".") {
		agg, ok := current[segment]
		if !ok {
			return nil, buildingError(op, "aggregation path %q does not exist (missing segment %q)", path, segment)
		}

		if agg.Aggregations == nil {
			agg.Aggregations = make(map[string]types.Aggregations)
			current[segment] = agg
		}
		current = agg.Aggregations
	}

	return current, nil
}
