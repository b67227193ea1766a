package treesearch

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/distanceunit"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
)

const (
	// missingSortValue is used for documents lacking the sort field. They
	// sort last when ascending and directly after the largest real value
	// when descending.
	missingSortValue int64 = math.MaxInt64 - 1

	defaultFacetSize        = 10
	defaultHighlightSize    = 150
	defaultHighlightEntries = 2
)

// MatchType selects the kind of match query added by Match.
type MatchType string

const (
	PhraseMatch       MatchType = "phrase"
	PhrasePrefixMatch MatchType = "phrase_prefix"
	BooleanMatch      MatchType = "boolean"
)

// RangeOperator is a bound of a range filter.
type RangeOperator string

const (
	GreaterThan        RangeOperator = "gt"
	GreaterThanOrEqual RangeOperator = "gte"
	LessThan           RangeOperator = "lt"
	LessThanOrEqual    RangeOperator = "lte"
)

// AggregationType is the per-value aggregation computed by a facet.
type AggregationType string

const (
	TermsAggregation       AggregationType = "terms"
	StatsAggregation       AggregationType = "stats"
	CardinalityAggregation AggregationType = "cardinality"
	MissingAggregation     AggregationType = "missing"
)

// QueryBuilder incrementally assembles a search request for content-tree
// nodes.
//
// Every method adding a filter, match, sort or aggregation updates the
// request document and the facet registry together, so facets stay scoped
// to the filters added before and after their declaration. A QueryBuilder
// is owned by a single caller and must not be shared between goroutines.
type QueryBuilder struct {
	backend  *Backend
	request  *Request
	document *RequestDocument
	facets   *facetRegistry

	contextNode ContextNode
	limit       int
	offset      int

	highlightDisabled bool
	logging           bool
	logMessage        string
}

// BuilderOption configures a QueryBuilder.
type BuilderOption func(*QueryBuilder)

// WithRequest attaches the request parameters an Endpoint executes for.
func WithRequest(r *Request) BuilderOption {
	return func(qb *QueryBuilder) {
		qb.request = r
	}
}

// NewQueryBuilder returns a builder executing against backend.
//
// The builder starts out with a match_all query and the accessibility
// filters in place. A nil backend is allowed for building requests only;
// Execute and Count fail without one.
//
// Example:
//
//	qb := treesearch.NewQueryBuilder(backend).
//	    NodeType("Neos.Neos:Document").
//	    Context(siteNode).
//	    Fulltext("hello").
//	    Limit(10)
func NewQueryBuilder(backend *Backend, opts ...BuilderOption) *QueryBuilder {
	qb := &QueryBuilder{
		backend:  backend,
		document: newRequestDocument(),
		facets:   newFacetRegistry(),
	}

	for _, opt := range opts {
		opt(qb)
	}

	if qb.request == nil {
		qb.request = NewRequest()
	}

	return qb
}

// Request returns the request parameters this builder was created for.
func (qb *QueryBuilder) Request() *Request {
	return qb.request
}

// ContextNode returns the node the query is bound to, if any.
func (qb *QueryBuilder) ContextNode() ContextNode {
	return qb.contextNode
}

// Document returns the request document. It is read-only for callers;
// use BackendRequest for a copy that may be modified.
func (qb *QueryBuilder) Document() *RequestDocument {
	qb.sync()
	return qb.document
}

// FacetFilters returns the filters recorded for facet scoping, in the order
// they were added.
func (qb *QueryBuilder) FacetFilters() []FacetFilter {
	return qb.facets.history()
}

// NodeType restricts the result to nodes of typeName or any of its
// subtypes.
//
// Documents carry their type and all supertypes in a single field, so the
// filter is a plain term match.
//
// Example:
//
//	qb.NodeType("Neos.Neos:Document")
func (qb *QueryBuilder) NodeType(typeName string) *QueryBuilder {
	qb.addFilter(Must, "term", TypeAndSupertypesField, termQuery(TypeAndSupertypesField, typeName))
	return qb
}

// Dimension restricts the result to documents indexed for the given values
// of a content dimension. Without values the selection of the bound context
// is used.
//
// Besides requiring one of the allowed values, every other value configured
// in the dimension's presets is excluded explicitly. Documents are indexed
// once per dimension combination and combinations may share values, so the
// terms filter alone would also match documents of neighbouring
// combinations.
//
// Example:
//
//	qb.Dimension("language", "de_DE", "en_US")
func (qb *QueryBuilder) Dimension(name string, values ...string) *QueryBuilder {
	if len(values) == 0 && qb.contextNode != nil && qb.contextNode.Context() != nil {
		values = qb.contextNode.Context().Dimensions()[name]
	}

	field := DimensionCombinationsField + "." + name
	qb.addFilter(Must, "terms", field, termsQuery(field, stringValues(values)))

	var excluded []string
	if presets := qb.dimensionPresets(); presets != nil {
		for _, preset := range presets.AllPresets()[name].Presets {
			for _, v := range preset.Values {
				if !slices.Contains(values, v) && !slices.Contains(excluded, v) {
					excluded = append(excluded, v)
				}
			}
		}
	}
	slices.Sort(excluded)

	qb.addFilter(MustNot, "terms", field, termsQuery(field, stringValues(excluded)))
	return qb
}

// SortAscending sorts the result by field in ascending order. Documents
// without the field come last.
func (qb *QueryBuilder) SortAscending(field string) *QueryBuilder {
	return qb.sortField(field, sortorder.Asc)
}

// SortDescending sorts the result by field in descending order.
func (qb *QueryBuilder) SortDescending(field string) *QueryBuilder {
	return qb.sortField(field, sortorder.Desc)
}

func (qb *QueryBuilder) sortField(field string, order sortorder.SortOrder) *QueryBuilder {
	qb.document.sort = append(qb.document.sort, types.SortOptions{
		SortOptions: map[string]types.FieldSort{
			field: {
				Order:   &order,
				Missing: missingSortValue,
			},
		},
	})
	return qb
}

// SortGeoDistance sorts the result by the distance between a geo point
// field and the given coordinates. The distance of every returned node is
// available through QueryResult.Distance.
//
// Example:
//
//	qb.SortGeoDistance("location", 59.33, 18.06, distanceunit.Kilometers, sortorder.Asc)
func (qb *QueryBuilder) SortGeoDistance(field string, lat, lon float64, unit distanceunit.DistanceUnit, order sortorder.SortOrder) *QueryBuilder {
	qb.document.sort = append(qb.document.sort, types.SortOptions{
		GeoDistance_: &types.GeoDistanceSort{
			GeoDistanceSort: map[string][]types.GeoLocation{
				field: {types.LatLonGeoLocation{Lat: types.Float64(lat), Lon: types.Float64(lon)}},
			},
			Order: &order,
			Unit:  &unit,
		},
	})
	return qb
}

// Limit sets the maximum number of nodes in the result. Zero or a negative
// value leaves the limit unset.
//
// The same node is indexed once per workspace in its workspace chain, so
// the backend is asked for limit times the workspace depth of the bound
// context and the hits are deduplicated down to limit nodes afterwards.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	if n <= 0 {
		return qb
	}

	qb.limit = n
	return qb
}

// Offset skips the first n hits. Zero or a negative value is ignored.
func (qb *QueryBuilder) Offset(n int) *QueryBuilder {
	if n <= 0 {
		return qb
	}

	qb.offset = n
	return qb
}

// RequestedLimit returns the node limit set with Limit, or 0.
func (qb *QueryBuilder) RequestedLimit() int {
	return qb.limit
}

// FetchSize returns the number of hits requested from the backend, or 0
// when no limit is set.
func (qb *QueryBuilder) FetchSize() int {
	if size := qb.fetchSize(); size != nil {
		return *size
	}
	return 0
}

func (qb *QueryBuilder) fetchSize() *int {
	if qb.limit <= 0 {
		return nil
	}

	var ws Workspace
	if qb.contextNode != nil && qb.contextNode.Context() != nil {
		ws = qb.contextNode.Context().Workspace()
	}

	size := qb.limit * WorkspaceDepth(ws)
	return &size
}

// ExactMatch requires field to equal value. A node value matches by its
// identifier and a slice matches any of its elements.
//
// Example:
//
//	qb.ExactMatch("author", authorNode)
//	qb.ExactMatch("tags", []string{"go", "search"})
func (qb *QueryBuilder) ExactMatch(field string, value any) *QueryBuilder {
	filterType, query := exactQuery(field, value)
	qb.addFilter(Must, filterType, field, query)
	return qb
}

// NotExactMatch excludes documents where field equals value. The filter is
// not recorded for facets, so every facet counts the excluded documents.
func (qb *QueryBuilder) NotExactMatch(field string, value any) *QueryBuilder {
	_, query := exactQuery(field, value)
	qb.document.filter.append(MustNot, query)
	return qb
}

// Range adds a range filter on field.
//
// Example:
//
//	if err := qb.Range("price", treesearch.GreaterThanOrEqual, 50); err != nil {
//	    return err
//	}
func (qb *QueryBuilder) Range(field string, op RangeOperator, value any) error {
	raw, err := json.Marshal(termValue(value))
	if err != nil {
		return buildingError("Range", "value for %q cannot be encoded: %v", field, err)
	}

	r := &types.UntypedRangeQuery{}
	switch op {
	case GreaterThan:
		r.Gt = raw
	case GreaterThanOrEqual:
		r.Gte = raw
	case LessThan:
		r.Lt = raw
	case LessThanOrEqual:
		r.Lte = raw
	default:
		return buildingError("Range", "unsupported range operator %q", op)
	}

	return qb.QueryFilter(Must, types.Query{Range: map[string]types.RangeQuery{field: r}})
}

// MatchOption configures Match and MatchPhrase.
type MatchOption func(*matchConfig)

type matchConfig struct {
	analyzer    *string
	skipIfEmpty bool
	clause      ClauseType
}

// WithAnalyzer sets the analyzer used for the match value.
func WithAnalyzer(analyzer string) MatchOption {
	return func(c *matchConfig) {
		c.analyzer = &analyzer
	}
}

// SkipIfEmpty turns a match with an empty value into a no-op.
func SkipIfEmpty() MatchOption {
	return func(c *matchConfig) {
		c.skipIfEmpty = true
	}
}

// WithClause selects the bool clause of a match. The default is Must.
func WithClause(clause ClauseType) MatchOption {
	return func(c *matchConfig) {
		c.clause = clause
	}
}

// Match adds a match filter of the given type on field.
func (qb *QueryBuilder) Match(matchType MatchType, field, value string, opts ...MatchOption) error {
	cfg := matchConfig{clause: Must}
	for _, opt := range opts {
		opt(&cfg)
	}

	if value == "" && cfg.skipIfEmpty {
		return nil
	}

	var query types.Query
	switch matchType {
	case PhraseMatch:
		query.MatchPhrase = map[string]types.MatchPhraseQuery{
			field: {Query: value, Analyzer: cfg.analyzer},
		}
	case PhrasePrefixMatch:
		query.MatchPhrasePrefix = map[string]types.MatchPhrasePrefixQuery{
			field: {Query: value, Analyzer: cfg.analyzer},
		}
	case BooleanMatch:
		query.Match = map[string]types.MatchQuery{
			field: {Query: value, Analyzer: cfg.analyzer},
		}
	default:
		return buildingError("Match", "unsupported match type %q", matchType)
	}

	return qb.QueryFilter(cfg.clause, query)
}

// MatchPhrase requires field to contain value as a phrase.
//
// Example:
//
//	qb.MatchPhrase("title", input, treesearch.SkipIfEmpty())
func (qb *QueryBuilder) MatchPhrase(field, value string, opts ...MatchOption) *QueryBuilder {
	opts = append(opts, WithClause(Must))
	// PhraseMatch with a Must clause cannot fail.
	_ = qb.Match(PhraseMatch, field, value, opts...)
	return qb
}

// Wildcard adds a lower-cased wildcard match on field to the query. Like
// NotExactMatch it is not visible to facets.
func (qb *QueryBuilder) Wildcard(field, value string, skipIfEmpty bool) *QueryBuilder {
	if value == "" && skipIfEmpty {
		return qb
	}

	lowered := strings.ToLower(value)
	qb.document.query.append(Must, types.Query{
		Wildcard: map[string]types.WildcardQuery{
			field: {Value: &lowered},
		},
	})
	return qb
}

// Fulltext adds a query string search over the full-text fields.
//
// Facets are always scoped to full-text searches, whatever fields they are
// protected from. Highlighting of the full-text fields is enabled with 150
// character fragments, two per field, unless highlighting was configured or
// disabled before.
//
// Example:
//
//	qb.Fulltext("content repository")
func (qb *QueryBuilder) Fulltext(term string) *QueryBuilder {
	return qb.addFulltext(types.Query{
		QueryString: &types.QueryStringQuery{Query: term},
	}, FulltextFieldPattern)
}

// MultiFieldFulltext searches term in the given fields. Highlighting covers
// highlightFields, or the full-text fields when none are given.
func (qb *QueryBuilder) MultiFieldFulltext(term string, fields []string, highlightFields ...string) *QueryBuilder {
	if len(highlightFields) == 0 {
		highlightFields = []string{FulltextFieldPattern}
	}

	return qb.addFulltext(types.Query{
		QueryString: &types.QueryStringQuery{Query: term, Fields: fields},
	}, highlightFields...)
}

func (qb *QueryBuilder) addFulltext(query types.Query, highlightFields ...string) *QueryBuilder {
	qb.document.query.append(Must, query)
	qb.facets.addFulltext(query)

	if qb.document.highlight == nil && !qb.highlightDisabled {
		qb.Highlight(defaultHighlightSize, defaultHighlightEntries, highlightFields...)
	}
	return qb
}

// Highlight enables highlighting on fields, or on the full-text fields when
// none are given.
func (qb *QueryBuilder) Highlight(fragmentSize, fragments int, fields ...string) *QueryBuilder {
	if len(fields) == 0 {
		fields = []string{FulltextFieldPattern}
	}

	h := &Highlight{Fields: make(map[string]HighlightField, len(fields))}
	for _, f := range fields {
		h.Fields[f] = HighlightField{FragmentSize: fragmentSize, NumberOfFragments: fragments}
	}

	qb.document.highlight = h
	qb.highlightDisabled = false
	return qb
}

// DisableHighlight removes highlighting and keeps full-text searches from
// enabling it again.
func (qb *QueryBuilder) DisableHighlight() *QueryBuilder {
	qb.document.highlight = nil
	qb.highlightDisabled = true
	return qb
}

// Context binds the query to node. Only descendants of node are matched,
// in the live workspace or the workspace of node's context, and, when the
// context selects dimensions, only documents indexed for exactly that
// dimension combination.
//
// The bound context also determines the workspace depth used for Limit and
// the context hits are resolved in.
//
// Example:
//
//	qb.Context(siteNode)
func (qb *QueryBuilder) Context(node ContextNode) *QueryBuilder {
	qb.contextNode = node

	qb.addFilter(Must, "term", ParentPathField, termQuery(ParentPathField, node.Path()))

	c := node.Context()
	workspaces := []string{LiveWorkspace}
	if c != nil && c.Workspace() != nil && c.Workspace().Name() != LiveWorkspace {
		workspaces = append(workspaces, c.Workspace().Name())
	}
	qb.addFilter(Must, "terms", WorkspaceField, termsQuery(WorkspaceField, stringValues(workspaces)))

	if c != nil && c.Dimensions() != nil {
		qb.addFilter(Must, "term", DimensionHashField, termQuery(DimensionHashField, DimensionHash(c.Dimensions())))
	}

	return qb
}

// ResetAccessibilityFilters drops the filters excluding hidden, not yet
// visible, expired and access restricted documents.
func (qb *QueryBuilder) ResetAccessibilityFilters() *QueryBuilder {
	qb.document.accessibility = nil
	return qb
}

// Suggestion adds a named suggester to the request.
func (qb *QueryBuilder) Suggestion(name string, suggester types.FieldSuggester) *QueryBuilder {
	if qb.document.suggest == nil {
		qb.document.suggest = make(map[string]types.FieldSuggester)
	}

	qb.document.suggest[name] = suggester
	return qb
}

// TermSuggestion adds a term suggester for text on field.
func (qb *QueryBuilder) TermSuggestion(name, text, field string) *QueryBuilder {
	return qb.Suggestion(name, types.FieldSuggester{
		Text: &text,
		Term: &types.TermSuggester{Field: field},
	})
}

// Log enables a debug log entry for every request this builder sends.
func (qb *QueryBuilder) Log(message string) *QueryBuilder {
	qb.logging = true
	qb.logMessage = message
	return qb
}

// QueryFilter appends filter to the given clause of the filter part and
// applies it to every facet not protected from the filter's field.
//
// Supported filters are term, terms, range, exists, prefix and the match
// family.
//
// Example:
//
//	err := qb.QueryFilter(treesearch.Must, types.Query{
//	    Term: map[string]types.TermQuery{"color": {Value: "red"}},
//	})
func (qb *QueryBuilder) QueryFilter(clause ClauseType, filter types.Query) error {
	if !clause.valid() {
		return buildingError("QueryFilter", "unsupported clause type %q", clause)
	}

	filterType, field := filterField(filter)
	if filterType == "" {
		return buildingError("QueryFilter", "unsupported filter type")
	}

	qb.addFilter(clause, filterType, field, filter)
	return nil
}

func (qb *QueryBuilder) addFilter(clause ClauseType, filterType, field string, query types.Query) {
	qb.document.filter.append(clause, query)
	qb.facets.addFilter(FacetFilter{
		Clause:     clause,
		FilterType: filterType,
		Field:      field,
		Query:      query,
	})
}

// Aggregation places agg under name below the aggregation addressed by the
// dot separated parentPath. An empty parentPath adds a top-level
// aggregation. Every segment of parentPath must exist already, except the
// reserved facets wrapper which is created on demand.
//
// Example:
//
//	field := "author"
//	err := qb.Aggregation("authors", types.Aggregations{
//	    Terms: &types.TermsAggregation{Field: &field},
//	}, "")
func (qb *QueryBuilder) Aggregation(name string, agg types.Aggregations, parentPath string) error {
	return qb.placeAggregation("Aggregation", name, agg, parentPath)
}

// SubAggregation adds agg under name below the aggregation at parentPath.
func (qb *QueryBuilder) SubAggregation(parentPath, name string, agg types.Aggregations) error {
	if parentPath == "" {
		return buildingError("SubAggregation", "parent path of %q is empty", name)
	}
	return qb.placeAggregation("SubAggregation", name, agg, parentPath)
}

func (qb *QueryBuilder) placeAggregation(op, name string, agg types.Aggregations, parentPath string) error {
	if parentPath == FacetsAggregation || strings.HasPrefix(parentPath, FacetsAggregation+".") {
		qb.ensureFacetsWrapper()
	}

	parent, err := qb.document.aggregationsAt(op, parentPath)
	if err != nil {
		return err
	}

	parent[name] = agg
	return nil
}

func (qb *QueryBuilder) ensureFacetsWrapper() {
	if _, ok := qb.document.aggregations[FacetsAggregation]; ok {
		return
	}

	qb.document.aggregations[FacetsAggregation] = types.Aggregations{
		Global:       &types.GlobalAggregation{},
		Aggregations: make(map[string]types.Aggregations),
	}
}

// FacetOption configures a facet.
type FacetOption func(*facetConfig)

type facetConfig struct {
	size       int
	protected  []string
	parentPath string
	body       *types.Aggregations
}

// WithFacetSize sets the number of values a terms facet returns.
func WithFacetSize(size int) FacetOption {
	return func(c *facetConfig) {
		c.size = size
	}
}

// WithProtectedFields keeps filters on fields from narrowing the facet's
// counts. A facet is always protected from filters on its own name.
func WithProtectedFields(fields ...string) FacetOption {
	return func(c *facetConfig) {
		c.protected = append(c.protected, fields...)
	}
}

// WithFacetParentPath places the facet below another aggregation instead
// of the facets wrapper.
func WithFacetParentPath(path string) FacetOption {
	return func(c *facetConfig) {
		c.parentPath = path
	}
}

// WithFacetBody replaces the generated aggregation of a facet.
func WithFacetBody(agg types.Aggregations) FacetOption {
	return func(c *facetConfig) {
		c.body = &agg
	}
}

// Facet registers a count aggregation named name over field.
//
// Facets ignore the query scope and filter their own documents instead:
// every full-text search and every filter added through QueryFilter, before
// or after the facet, is applied to it unless the facet is protected from
// the filter's field. The results are returned by QueryResult.Facets.
// Registering a name again replaces the earlier facet, wherever it was
// placed.
//
// Example:
//
//	err := qb.Facet("color", treesearch.TermsAggregation, "color",
//	    treesearch.WithFacetSize(20),
//	    treesearch.WithProtectedFields("size"))
func (qb *QueryBuilder) Facet(name string, aggType AggregationType, field string, opts ...FacetOption) error {
	cfg := facetConfig{
		size:       defaultFacetSize,
		parentPath: FacetsAggregation,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var inner types.Aggregations
	if cfg.body != nil {
		inner = *cfg.body
	} else {
		agg, err := facetAggregation(aggType, field, cfg.size)
		if err != nil {
			return err
		}
		inner = agg
	}

	if cfg.parentPath == FacetsAggregation {
		qb.ensureFacetsWrapper()
	}

	parent, err := qb.document.aggregationsAt("Facet", cfg.parentPath)
	if err != nil {
		return err
	}

	// A facet registered again under another parent is moved, so no stale
	// copy keeps an outdated filter.
	if previous, ok := qb.facets.lookup(name); ok && previous.parentPath != cfg.parentPath &&
		!strings.HasPrefix(cfg.parentPath+".", strings.TrimPrefix(previous.parentPath+"."+name+".", ".")) {
		if placed, err := qb.document.aggregationsAt("Facet", previous.parentPath); err == nil {
			delete(placed, name)
		}
	}

	f := qb.facets.register(name, cfg.protected)
	f.parentPath = cfg.parentPath
	parent[name] = types.Aggregations{
		Filter:       &types.Query{Bool: f.filter},
		Aggregations: map[string]types.Aggregations{name: inner},
	}
	return nil
}

func facetAggregation(aggType AggregationType, field string, size int) (types.Aggregations, error) {
	switch aggType {
	case TermsAggregation:
		return types.Aggregations{Terms: &types.TermsAggregation{Field: &field, Size: &size}}, nil
	case StatsAggregation:
		return types.Aggregations{Stats: &types.StatsAggregation{Field: &field}}, nil
	case CardinalityAggregation:
		return types.Aggregations{Cardinality: &types.CardinalityAggregation{Field: &field}}, nil
	case MissingAggregation:
		return types.Aggregations{Missing: &types.MissingAggregation{Field: &field}}, nil
	}

	return types.Aggregations{}, buildingError("Facet", "unsupported aggregation type %q", aggType)
}

// BackendRequest returns a copy of the request as it will be sent.
func (qb *QueryBuilder) BackendRequest() (map[string]any, error) {
	qb.sync()
	return qb.document.Map()
}

// Execute returns a lazy result for the query. Nothing is sent to the
// backend until the result is first accessed.
//
// Example:
//
//	result, err := qb.Execute(ctx)
//	if err != nil {
//	    return err
//	}
//	for result.Next() {
//	    fmt.Println(result.Node().Path())
//	}
//	if err := result.Err(); err != nil {
//	    return err
//	}
func (qb *QueryBuilder) Execute(ctx context.Context) (*QueryResult, error) {
	if qb.backend == nil {
		return nil, errNoBackend
	}

	return newQueryResult(ctx, qb), nil
}

// Count returns the number of documents matching the query without
// fetching them.
func (qb *QueryBuilder) Count(ctx context.Context) (int64, error) {
	if qb.backend == nil {
		return 0, errNoBackend
	}

	return qb.backend.count(ctx, qb)
}

var errNoBackend = errors.New("query builder has no backend")

func (qb *QueryBuilder) sync() {
	qb.document.size = qb.fetchSize()
	qb.document.from = nil
	if qb.offset > 0 {
		offset := qb.offset
		qb.document.from = &offset
	}
}

func (qb *QueryBuilder) body() ([]byte, error) {
	qb.sync()
	return json.Marshal(qb.document)
}

func (qb *QueryBuilder) countBody() ([]byte, error) {
	qb.sync()
	return qb.document.countBody()
}

func (qb *QueryBuilder) dimensionPresets() DimensionPresetSource {
	if qb.backend == nil {
		return nil
	}
	return qb.backend.presets
}

func termQuery(field string, value any) types.Query {
	return types.Query{
		Term: map[string]types.TermQuery{field: {Value: value}},
	}
}

func termsQuery(field string, values []types.FieldValue) types.Query {
	return types.Query{
		Terms: &types.TermsQuery{
			TermsQuery: map[string]types.TermsQueryField{field: values},
		},
	}
}

func exactQuery(field string, value any) (string, types.Query) {
	if values, ok := sequence(value); ok {
		return "terms", termsQuery(field, values)
	}
	return "term", termQuery(field, termValue(value))
}

func termValue(value any) any {
	if n, ok := value.(Node); ok {
		return n.Identifier()
	}
	return value
}

func stringValues(values []string) []types.FieldValue {
	result := make([]types.FieldValue, 0, len(values))
	for _, v := range values {
		result = append(result, v)
	}
	return result
}

// sequence converts slices and arrays, other than byte slices, to a list of
// term values.
func sequence(value any) ([]types.FieldValue, bool) {
	switch v := value.(type) {
	case nil, []byte:
		return nil, false
	case []string:
		return stringValues(v), true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	result := make([]types.FieldValue, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		result = append(result, termValue(rv.Index(i).Interface()))
	}
	return result, true
}
