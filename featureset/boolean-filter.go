package featureset

import (
	"strconv"

	"github.com/reveald/treesearch"
)

// BooleanFilterFeature filters on a boolean property, such as
// "featured=true", and counts the nodes per value.
type BooleanFilterFeature struct {
	property string
	facet    *FacetFeature
}

// NewBooleanFilterFeature accepts the FacetFeature options for the count.
func NewBooleanFilterFeature(property string, opts ...FacetOption) *BooleanFilterFeature {
	return &BooleanFilterFeature{
		property: property,
		facet:    NewFacetFeature(property, opts...),
	}
}

func (bff *BooleanFilterFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	if err := bff.build(builder); err != nil {
		return nil, err
	}

	r, err := next(builder)
	if err != nil {
		return nil, err
	}

	return bff.facet.handle(r)
}

func (bff *BooleanFilterFeature) build(builder *treesearch.QueryBuilder) error {
	field := bff.facet.field
	protected := append([]string{field}, bff.facet.protected...)
	err := builder.Facet(bff.property, treesearch.TermsAggregation, field,
		treesearch.WithFacetSize(bff.facet.size),
		treesearch.WithProtectedFields(protected...))
	if err != nil {
		return err
	}

	p, err := builder.Request().Get(bff.property)
	if err != nil {
		return nil
	}

	// Values other than a boolean are ignored.
	bl, err := strconv.ParseBool(p.Value())
	if err != nil {
		return nil
	}

	builder.ExactMatch(field, bl)
	return nil
}
