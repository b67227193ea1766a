package featureset

import (
	"github.com/reveald/treesearch"
)

// NodeTypeFeature restricts every search to a node type and its subtypes,
// optionally with further fixed property values.
type NodeTypeFeature struct {
	typeName string
	required map[string]any
	excluded map[string]any
}

// NodeTypeOption is a functional option for configuring a NodeTypeFeature.
type NodeTypeOption func(*NodeTypeFeature)

// WithRequiredValue requires property to equal value.
func WithRequiredValue(property string, value any) NodeTypeOption {
	return func(f *NodeTypeFeature) {
		f.required[property] = value
	}
}

// WithExcludedValue excludes nodes where property equals value.
func WithExcludedValue(property string, value any) NodeTypeOption {
	return func(f *NodeTypeFeature) {
		f.excluded[property] = value
	}
}

// NewNodeTypeFeature creates a node type feature. An empty typeName only
// applies the configured values.
func NewNodeTypeFeature(typeName string, opts ...NodeTypeOption) *NodeTypeFeature {
	f := &NodeTypeFeature{
		typeName: typeName,
		required: make(map[string]any),
		excluded: make(map[string]any),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *NodeTypeFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	if f.typeName != "" {
		builder.NodeType(f.typeName)
	}

	for _, property := range sortedKeys(f.required) {
		builder.ExactMatch(property, f.required[property])
	}
	for _, property := range sortedKeys(f.excluded) {
		builder.NotExactMatch(property, f.excluded[property])
	}

	return next(builder)
}
