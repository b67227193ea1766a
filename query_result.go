package treesearch

import (
	"context"
	"iter"
	"slices"
	"time"
)

// QueryResult is the lazily fetched result of a query.
//
// The search request is sent on first access of any accessor except Count,
// which issues a separate count request. Iteration works like sql.Rows:
//
//	for result.Next() {
//	    node := result.Node()
//	    ...
//	}
//	if err := result.Err(); err != nil {
//	    ...
//	}
//
// Accessors return zero values once fetching failed; Err reports the
// failure. A QueryResult is not safe for concurrent use.
type QueryResult struct {
	ctx context.Context
	qb  *QueryBuilder

	fetched bool
	raw     *searchResponse
	mapped  *mappedResult
	took    time.Duration
	err     error
	cursor  int

	counted bool
	count   int64
}

func newQueryResult(ctx context.Context, qb *QueryBuilder) *QueryResult {
	return &QueryResult{
		ctx:    ctx,
		qb:     qb,
		cursor: -1,
	}
}

func (r *QueryResult) fetch() bool {
	if !r.fetched {
		r.fetched = true
		r.load()
	}
	return r.err == nil
}

func (r *QueryResult) load() {
	r.raw = nil
	r.mapped = &mappedResult{}
	r.err = nil

	start := time.Now()
	sr, err := r.qb.backend.search(r.ctx, r.qb)
	r.took = time.Since(start)
	if err != nil {
		r.err = err
		return
	}
	r.raw = sr

	var c Context
	if r.qb.contextNode != nil {
		c = r.qb.contextNode.Context()
	}

	mapped, err := mapResult(r.ctx, sr, r.qb.backend.resolver, c, r.qb.limit)
	if err != nil {
		r.err = err
		return
	}
	r.mapped = mapped
}

// Refetch sends the search request again and replaces all fetched state.
// The iteration cursor is reset.
func (r *QueryResult) Refetch() error {
	r.fetched = false
	r.cursor = -1
	r.fetch()
	return r.err
}

// Err returns the error that occurred while fetching, if any.
func (r *QueryResult) Err() error {
	return r.err
}

// Took returns the wall-clock duration of the last search request.
func (r *QueryResult) Took() time.Duration {
	r.fetch()
	return r.took
}

// Next advances to the next node and reports whether there is one.
func (r *QueryResult) Next() bool {
	if !r.fetch() {
		return false
	}

	if r.cursor < len(r.mapped.nodes) {
		r.cursor++
	}
	return r.Valid()
}

// Valid reports whether the cursor is positioned on a node.
func (r *QueryResult) Valid() bool {
	return r.fetch() && r.cursor >= 0 && r.cursor < len(r.mapped.nodes)
}

// Node returns the node at the cursor, or nil.
func (r *QueryResult) Node() Node {
	if !r.Valid() {
		return nil
	}
	return r.mapped.nodes[r.cursor]
}

// Key returns the position of the cursor.
func (r *QueryResult) Key() int {
	return r.cursor
}

// Rewind moves the cursor back before the first node.
func (r *QueryResult) Rewind() {
	r.cursor = -1
}

// At returns the node at position i.
func (r *QueryResult) At(i int) (Node, bool) {
	if !r.fetch() || i < 0 || i >= len(r.mapped.nodes) {
		return nil, false
	}
	return r.mapped.nodes[i], true
}

// First returns the first node, or nil if the result is empty.
func (r *QueryResult) First() Node {
	n, _ := r.At(0)
	return n
}

// Nodes returns all nodes in rank order.
func (r *QueryResult) Nodes() []Node {
	if !r.fetch() {
		return nil
	}
	return slices.Clone(r.mapped.nodes)
}

// All returns an iterator over the nodes and their positions. It does not
// move the cursor.
func (r *QueryResult) All() iter.Seq2[int, Node] {
	return func(yield func(int, Node) bool) {
		if !r.fetch() {
			return
		}
		for i, n := range r.mapped.nodes {
			if !yield(i, n) {
				return
			}
		}
	}
}

// AccessibleCount returns the number of nodes in the result, after
// unresolvable and duplicate hits were dropped.
func (r *QueryResult) AccessibleCount() int {
	if !r.fetch() {
		return 0
	}
	return len(r.mapped.nodes)
}

// Total returns the number of matching documents reported by the search
// request. Documents are counted once per workspace and dimension
// combination they are indexed in.
func (r *QueryResult) Total() int64 {
	if !r.fetch() {
		return 0
	}
	return r.raw.total()
}

// Count returns the number of matching documents using a count request.
// It does not fetch the result and the count is cached.
func (r *QueryResult) Count() (int64, error) {
	if r.counted {
		return r.count, nil
	}

	n, err := r.qb.Count(r.ctx)
	if err != nil {
		return 0, err
	}

	r.count = n
	r.counted = true
	return n, nil
}

// Aggregations returns the aggregation results, without the facets.
func (r *QueryResult) Aggregations() map[string]any {
	if !r.fetch() {
		return nil
	}
	return r.mapped.aggregations
}

// Facets returns the result of every facet by name.
func (r *QueryResult) Facets() map[string]any {
	if !r.fetch() {
		return nil
	}
	return r.mapped.facets
}

// FacetBuckets returns the buckets of a terms facet.
func (r *QueryResult) FacetBuckets(name string) []*ResultBucket {
	return Buckets(r.Facets()[name])
}

// Distance returns the sort value of the node with the given identifier,
// which is its distance when sorting by geo distance.
func (r *QueryResult) Distance(identifier string) (float64, bool) {
	if !r.fetch() {
		return 0, false
	}
	d, ok := r.mapped.distances[identifier]
	return d, ok
}

// Hit returns the raw hit a node was resolved from.
func (r *QueryResult) Hit(identifier string) (Hit, bool) {
	if !r.fetch() {
		return Hit{}, false
	}
	h, ok := r.mapped.hits[identifier]
	return h, ok
}

// Suggestions returns the suggest section of the response. With a single
// suggester producing a single entry, that entry is returned directly.
func (r *QueryResult) Suggestions() any {
	if !r.fetch() || len(r.raw.Suggest) == 0 {
		return nil
	}

	if len(r.raw.Suggest) == 1 {
		for _, group := range r.raw.Suggest {
			if entries, ok := group.([]any); ok && len(entries) == 1 {
				return entries[0]
			}
		}
	}
	return r.raw.Suggest
}
