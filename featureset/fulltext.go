package featureset

import (
	"github.com/reveald/treesearch"
)

// FulltextFeature runs a full-text search for the value of a request
// parameter.
//
// Without configured fields the full-text fields written by the indexer are
// searched.
//
// Example:
//
//	// Search the "q" parameter in title and description only
//	fulltext := featureset.NewFulltextFeature(
//	    featureset.WithQueryParam("q"),
//	    featureset.WithFields("title", "description"),
//	)
type FulltextFeature struct {
	name             string
	fields           []string
	disableHighlight bool
}

// FulltextOption is a functional option for configuring a FulltextFeature.
type FulltextOption func(*FulltextFeature)

// WithQueryParam sets the request parameter holding the search term.
// The default is "q".
func WithQueryParam(name string) FulltextOption {
	return func(f *FulltextFeature) {
		f.name = name
	}
}

// WithFields restricts the search to fields.
func WithFields(fields ...string) FulltextOption {
	return func(f *FulltextFeature) {
		f.fields = fields
	}
}

// WithoutHighlight disables highlighting of the matches.
func WithoutHighlight() FulltextOption {
	return func(f *FulltextFeature) {
		f.disableHighlight = true
	}
}

// NewFulltextFeature creates a full-text feature.
func NewFulltextFeature(opts ...FulltextOption) *FulltextFeature {
	f := &FulltextFeature{
		name: "q",
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Process adds the full-text search when the parameter has a value.
func (f *FulltextFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	f.build(builder)
	return next(builder)
}

func (f *FulltextFeature) build(builder *treesearch.QueryBuilder) {
	p, err := builder.Request().Get(f.name)
	if err != nil || p.Value() == "" {
		return
	}

	if f.disableHighlight {
		builder.DisableHighlight()
	}

	if len(f.fields) == 0 {
		builder.Fulltext(p.Value())
		return
	}

	builder.MultiFieldFulltext(p.Value(), f.fields, f.fields...)
}
