package featureset

import (
	"github.com/reveald/treesearch"
)

const defaultAggregationSize = 10

// FacetFeature filters on the values of a property and returns a count per
// value.
//
// The counts ignore the feature's own filter, so every value stays
// selectable while others are selected. Filters on the fields given with
// WithProtectedFrom are ignored as well.
//
// Example:
//
//	colors := featureset.NewFacetFeature("color",
//	    featureset.WithAggregationSize(20),
//	    featureset.WithFacetField("color.keyword"),
//	)
//
//	// ?color=red&color=blue matches red or blue nodes, while
//	// result.Buckets["color"] still counts every color.
type FacetFeature struct {
	property  string
	field     string
	size      int
	protected []string
}

// FacetOption is a functional option for configuring a FacetFeature.
type FacetOption func(*FacetFeature)

// WithFacetField sets the indexed field of the property. The default is the
// property name itself.
func WithFacetField(field string) FacetOption {
	return func(f *FacetFeature) {
		f.field = field
	}
}

// WithAggregationSize sets the maximum number of values counted.
func WithAggregationSize(size int) FacetOption {
	return func(f *FacetFeature) {
		f.size = size
	}
}

// WithProtectedFrom keeps filters on fields from narrowing the counts.
func WithProtectedFrom(fields ...string) FacetOption {
	return func(f *FacetFeature) {
		f.protected = append(f.protected, fields...)
	}
}

// NewFacetFeature creates a facet on property, filtered by the request
// parameter of the same name.
func NewFacetFeature(property string, opts ...FacetOption) *FacetFeature {
	f := &FacetFeature{
		property: property,
		field:    property,
		size:     defaultAggregationSize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *FacetFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	if err := f.build(builder); err != nil {
		return nil, err
	}

	r, err := next(builder)
	if err != nil {
		return nil, err
	}

	return f.handle(r)
}

func (f *FacetFeature) build(builder *treesearch.QueryBuilder) error {
	protected := append([]string{f.field}, f.protected...)
	err := builder.Facet(f.property, treesearch.TermsAggregation, f.field,
		treesearch.WithFacetSize(f.size),
		treesearch.WithProtectedFields(protected...))
	if err != nil {
		return err
	}

	p, err := builder.Request().Get(f.property)
	if err != nil || len(p.Values()) == 0 {
		return nil
	}

	builder.ExactMatch(f.field, p.Values())
	return nil
}

func (f *FacetFeature) handle(result *treesearch.Result) (*treesearch.Result, error) {
	if result.QueryResult == nil {
		return result, nil
	}

	if result.Buckets == nil {
		result.Buckets = make(map[string][]*treesearch.ResultBucket)
	}
	result.Buckets[f.property] = result.FacetBuckets(f.property)
	return result, nil
}
