package treesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []Hit           `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]any `json:"aggregations"`
	Suggest      map[string]any `json:"suggest"`
}

// total returns the reported number of matching documents. Both the plain
// number and the {"value": n} form are accepted.
func (sr *searchResponse) total() int64 {
	if len(sr.Hits.Total) == 0 {
		return 0
	}

	var n int64
	if json.Unmarshal(sr.Hits.Total, &n) == nil {
		return n
	}

	var t struct {
		Value int64 `json:"value"`
	}
	if json.Unmarshal(sr.Hits.Total, &t) == nil {
		return t.Value
	}
	return 0
}

// Hit is a raw search hit.
type Hit struct {
	ID        string              `json:"_id"`
	Index     string              `json:"_index"`
	Score     *float64            `json:"_score"`
	Source    map[string]any      `json:"_source"`
	Fields    map[string][]any    `json:"fields"`
	Highlight map[string][]string `json:"highlight"`
	Sort      []any               `json:"sort"`
}

// Path returns the indexed node path of the hit, or an empty string.
func (h Hit) Path() string {
	if values := h.Fields[PathField]; len(values) > 0 {
		if p, ok := values[0].(string); ok {
			return p
		}
	}

	if p, ok := h.Source[PathField].(string); ok {
		return p
	}
	return ""
}

// SortValue returns the first sort value of the hit as a number.
func (h Hit) SortValue() (float64, bool) {
	if len(h.Sort) == 0 {
		return 0, false
	}

	switch v := h.Sort[0].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

type mappedResult struct {
	nodes        []Node
	hits         map[string]Hit
	distances    map[string]float64
	aggregations map[string]any
	facets       map[string]any
}

// mapResult converts the hits of sr into nodes and splits the facets out of
// the aggregations.
//
// The same node is indexed once per workspace of its chain, so hits are
// resolved in rank order and only the first hit of every node identifier is
// kept. Hits that no longer resolve are dropped. Once limit distinct nodes
// are collected the remaining hits are ignored; a limit of 0 or less keeps
// all of them.
func mapResult(ctx context.Context, sr *searchResponse, resolver TreeResolver, c Context, limit int) (*mappedResult, error) {
	m := &mappedResult{
		hits:      make(map[string]Hit),
		distances: make(map[string]float64),
	}
	m.aggregations, m.facets = splitFacets(sr.Aggregations)

	if len(sr.Hits.Hits) == 0 || resolver == nil {
		return m, nil
	}

	for _, hit := range sr.Hits.Hits {
		if limit > 0 && len(m.nodes) >= limit {
			break
		}

		path := hit.Path()
		if path == "" {
			continue
		}

		node, err := resolver.Resolve(ctx, path, c)
		if errors.Is(err, ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
		}
		if node == nil {
			continue
		}

		id := node.Identifier()
		if _, seen := m.hits[id]; seen {
			continue
		}

		m.nodes = append(m.nodes, node)
		m.hits[id] = hit
		if v, ok := hit.SortValue(); ok {
			m.distances[id] = v
		}
	}

	return m, nil
}

// splitFacets moves the reserved facets aggregation out of aggregations and
// unwraps every facet to the inner aggregation of the same name.
func splitFacets(aggregations map[string]any) (map[string]any, map[string]any) {
	rest := make(map[string]any, len(aggregations))
	facets := make(map[string]any)

	for name, agg := range aggregations {
		if name != FacetsAggregation {
			rest[name] = agg
			continue
		}

		wrapper, ok := agg.(map[string]any)
		if !ok {
			continue
		}

		for facetName, f := range wrapper {
			if facetName == "doc_count" || facetName == "meta" {
				continue
			}

			filtered, ok := f.(map[string]any)
			if !ok {
				continue
			}

			if inner, ok := filtered[facetName]; ok {
				facets[facetName] = inner
			} else {
				facets[facetName] = filtered
			}
		}
	}

	return rest, facets
}

// ResultBucket is a single bucket of a terms style aggregation result,
// along with the buckets of its sub-aggregations.
//
// Example:
//
//	for _, bucket := range result.FacetBuckets("color") {
//	    fmt.Printf("%v: %d\n", bucket.Value, bucket.HitCount)
//	}
type ResultBucket struct {
	Value            any
	HitCount         int64
	SubResultBuckets map[string][]*ResultBucket
}

// Buckets extracts the buckets of an aggregation result. Results without
// buckets, such as stats, yield nil.
func Buckets(agg any) []*ResultBucket {
	aggMap, ok := agg.(map[string]any)
	if !ok {
		return nil
	}

	var raw []any
	switch b := aggMap["buckets"].(type) {
	case []any:
		raw = b
	case map[string]any:
		// Keyed buckets, as returned by filters and keyed range aggregations.
		keys := make([]string, 0, len(b))
		for k := range b {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if bucket, ok := b[k].(map[string]any); ok {
				if _, hasKey := bucket["key"]; !hasKey {
					bucket["key"] = k
				}
				raw = append(raw, bucket)
			}
		}
	default:
		return nil
	}

	var result []*ResultBucket
	for _, bucket := range raw {
		bucketMap, ok := bucket.(map[string]any)
		if !ok {
			continue
		}

		value := bucketMap["key"]
		if s, ok := bucketMap["key_as_string"]; ok {
			value = s
		}
		docCount, _ := bucketMap["doc_count"].(float64)

		rb := &ResultBucket{
			Value:            value,
			HitCount:         int64(docCount),
			SubResultBuckets: make(map[string][]*ResultBucket),
		}

		for k, v := range bucketMap {
			if k == "key" || k == "doc_count" || k == "key_as_string" {
				continue
			}
			if sub := Buckets(v); len(sub) > 0 {
				rb.SubResultBuckets[k] = sub
			}
		}

		result = append(result, rb)
	}

	return result
}
