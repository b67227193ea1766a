package featureset

import (
	"github.com/reveald/treesearch"
)

// RangeFeature filters a numeric property by the "<property>.min" and
// "<property>.max" request parameters. Both bounds are inclusive.
type RangeFeature struct {
	property string
	field    string
	stats    bool
}

// RangeOption is a functional option for configuring a RangeFeature.
type RangeOption func(*RangeFeature)

// WithRangeField sets the indexed field of the property.
func WithRangeField(field string) RangeOption {
	return func(f *RangeFeature) {
		f.field = field
	}
}

// WithRangeStats adds a stats facet on the property, unaffected by the
// range filter itself, so clients can present the available bounds.
func WithRangeStats() RangeOption {
	return func(f *RangeFeature) {
		f.stats = true
	}
}

// NewRangeFeature creates a range feature on property.
func NewRangeFeature(property string, opts ...RangeOption) *RangeFeature {
	f := &RangeFeature{
		property: property,
		field:    property,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *RangeFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	if err := f.build(builder); err != nil {
		return nil, err
	}

	return next(builder)
}

func (f *RangeFeature) build(builder *treesearch.QueryBuilder) error {
	if f.stats {
		err := builder.Facet(f.property, treesearch.StatsAggregation, f.field,
			treesearch.WithProtectedFields(f.field))
		if err != nil {
			return err
		}
	}

	p, err := builder.Request().Get(f.property)
	if err != nil || !p.IsRange() {
		return nil
	}

	if lower, ok := p.Min(); ok {
		if err := builder.Range(f.field, treesearch.GreaterThanOrEqual, lower); err != nil {
			return err
		}
	}
	if upper, ok := p.Max(); ok {
		if err := builder.Range(f.field, treesearch.LessThanOrEqual, upper); err != nil {
			return err
		}
	}

	return nil
}
