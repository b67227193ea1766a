package featureset

import (
	"github.com/reveald/treesearch"
)

// DimensionFeature restricts the search to a content dimension. The values
// are taken from a request parameter when present, and from the context the
// search is bound to otherwise.
type DimensionFeature struct {
	dimension string
	param     string
}

// NewDimensionFeature creates a dimension feature reading param.
func NewDimensionFeature(dimension, param string) *DimensionFeature {
	return &DimensionFeature{
		dimension: dimension,
		param:     param,
	}
}

func (f *DimensionFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	var values []string
	if p, err := builder.Request().Get(f.param); err == nil {
		values = p.Values()
	}

	if node := builder.ContextNode(); len(values) == 0 && node != nil && node.Context() != nil {
		values = node.Context().Dimensions()[f.dimension]
	}

	// Without any selection there is nothing to restrict to.
	if len(values) == 0 {
		return next(builder)
	}

	builder.Dimension(f.dimension, values...)
	return next(builder)
}
