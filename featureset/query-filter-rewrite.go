package featureset

import (
	"slices"
	"strings"

	"github.com/reveald/treesearch"
)

type rewriteSource struct {
	property string
	matches  []string
}

// QueryFilterRewriteFeature moves known words out of the fulltext query
// into filter parameters. With a matcher for "color" on "red" and "blue",
// "?q=red shoes" is rewritten to "?q=shoes&color=red".
//
// It has to run before the features reading the rewritten parameters.
type QueryFilterRewriteFeature struct {
	name    string
	sources []*rewriteSource
}

type QueryFilterRewriteOption func(*QueryFilterRewriteFeature)

func WithRewriteQueryParam(name string) QueryFilterRewriteOption {
	return func(qfrf *QueryFilterRewriteFeature) {
		qfrf.name = name
	}
}

func WithRewriteMatcher(property string, matches ...string) QueryFilterRewriteOption {
	return func(qfrf *QueryFilterRewriteFeature) {
		qfrf.sources = append(qfrf.sources, &rewriteSource{property, matches})
	}
}

func NewQueryFilterRewriteFeature(opts ...QueryFilterRewriteOption) *QueryFilterRewriteFeature {
	qfrf := &QueryFilterRewriteFeature{
		name: "q",
	}

	for _, opt := range opts {
		opt(qfrf)
	}

	return qfrf
}

func (qfrf *QueryFilterRewriteFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	p, err := builder.Request().Get(qfrf.name)
	if err != nil {
		return next(builder)
	}

	var output []string
	for _, v := range p.Values() {
		for _, word := range strings.Fields(v) {
			if source := qfrf.match(word); source != nil {
				if !hasValue(builder.Request(), source.property, word) {
					builder.Request().Append(treesearch.NewParameter(source.property, word))
				}
				continue
			}
			output = append(output, word)
		}
	}

	if len(output) == 0 {
		builder.Request().Del(qfrf.name)
	} else {
		builder.Request().Set(qfrf.name, strings.Join(output, " "))
	}

	return next(builder)
}

func (qfrf *QueryFilterRewriteFeature) match(word string) *rewriteSource {
	for _, s := range qfrf.sources {
		if slices.ContainsFunc(s.matches, func(m string) bool {
			return strings.EqualFold(m, word)
		}) {
			return s
		}
	}
	return nil
}

func hasValue(r *treesearch.Request, name, value string) bool {
	p, err := r.Get(name)
	return err == nil && slices.Contains(p.Values(), value)
}
