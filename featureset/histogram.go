package featureset

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/reveald/treesearch"
)

// HistogramFeature counts a numeric property in fixed size buckets and
// filters it by the "<property>.min" and "<property>.max" parameters.
//
// Example:
//
//	price := featureset.NewHistogramFeature("price", featureset.WithInterval(50))
//	// ?price.min=100&price.max=300
type HistogramFeature struct {
	property    string
	neg         bool
	interval    float64
	minDocCount int
}

type HistogramOption func(*HistogramFeature)

// WithNegativeValuesAllowed accepts negative range bounds. By default they
// are ignored.
func WithNegativeValuesAllowed() HistogramOption {
	return func(hf *HistogramFeature) {
		hf.neg = true
	}
}

func WithInterval(interval float64) HistogramOption {
	return func(hf *HistogramFeature) {
		hf.interval = interval
	}
}

func WithMinimumDocumentCount(minDocCount int) HistogramOption {
	return func(hf *HistogramFeature) {
		hf.minDocCount = minDocCount
	}
}

func NewHistogramFeature(property string, opts ...HistogramOption) *HistogramFeature {
	hf := &HistogramFeature{
		property: property,
		interval: 100,
	}

	for _, opt := range opts {
		opt(hf)
	}

	return hf
}

func (hf *HistogramFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	if err := hf.build(builder); err != nil {
		return nil, err
	}

	r, err := next(builder)
	if err != nil {
		return nil, err
	}

	return hf.handle(r)
}

func (hf *HistogramFeature) build(builder *treesearch.QueryBuilder) error {
	field := hf.property
	interval := types.Float64(hf.interval)
	minDocCount := hf.minDocCount

	err := builder.Facet(hf.property, treesearch.TermsAggregation, field,
		treesearch.WithProtectedFields(field),
		treesearch.WithFacetBody(types.Aggregations{
			Histogram: &types.HistogramAggregation{
				Field:       &field,
				Interval:    &interval,
				MinDocCount: &minDocCount,
			},
		}))
	if err != nil {
		return err
	}

	p, err := builder.Request().Get(hf.property)
	if err != nil || !p.IsRange() {
		return nil
	}

	upper, hasUpper := p.Max()
	if hasUpper && (upper >= 0 || hf.neg) {
		if err := builder.Range(field, treesearch.LessThanOrEqual, upper); err != nil {
			return err
		}
	}

	lower, hasLower := p.Min()
	if hasLower && (!hasUpper || lower <= upper) && (lower >= 0 || hf.neg) {
		if err := builder.Range(field, treesearch.GreaterThanOrEqual, lower); err != nil {
			return err
		}
	}

	return nil
}

// handle formats bucket keys as integers. When every bucket is above zero
// an empty zero bucket is prepended, so the histogram starts at 0.
func (hf *HistogramFeature) handle(result *treesearch.Result) (*treesearch.Result, error) {
	if result.QueryResult == nil {
		return result, nil
	}

	raw := result.FacetBuckets(hf.property)

	var buckets []*treesearch.ResultBucket
	zeroOut := len(raw) > 0
	for _, bucket := range raw {
		key, _ := bucket.Value.(float64)
		if key <= 0 {
			zeroOut = false
		}

		buckets = append(buckets, &treesearch.ResultBucket{
			Value:    fmt.Sprintf("%0.f", key),
			HitCount: bucket.HitCount,
		})
	}

	if zeroOut {
		buckets = append([]*treesearch.ResultBucket{{Value: "0"}}, buckets...)
	}

	if result.Buckets == nil {
		result.Buckets = make(map[string][]*treesearch.ResultBucket)
	}
	result.Buckets[hf.property] = buckets
	return result, nil
}
