package featureset

import (
	"github.com/reveald/treesearch"
)

type sortingOption struct {
	label     string
	property  string
	ascending bool
}

// SortingFeature sorts the result by one of a set of named options chosen
// with a request parameter. Without a sort option the result is ranked by
// relevance.
type SortingFeature struct {
	param         string
	options       map[string]sortingOption
	order         []string
	defaultOption string
}

type SortingOption func(*SortingFeature)

// WithSortOption adds the option name sorting by property.
func WithSortOption(name, property string, ascending bool) SortingOption {
	return WithLabeledSortOption(name, name, property, ascending)
}

// WithLabeledSortOption adds the option name with a display label.
func WithLabeledSortOption(name, label, property string, ascending bool) SortingOption {
	return func(sf *SortingFeature) {
		if _, ok := sf.options[name]; !ok {
			sf.order = append(sf.order, name)
		}
		sf.options[name] = sortingOption{label, property, ascending}
	}
}

// WithDefaultSortOption selects the option used when the request has none.
func WithDefaultSortOption(name string) SortingOption {
	return func(sf *SortingFeature) {
		sf.defaultOption = name
	}
}

func NewSortingFeature(param string, opts ...SortingOption) *SortingFeature {
	sf := &SortingFeature{
		param:   param,
		options: make(map[string]sortingOption),
	}

	for _, opt := range opts {
		opt(sf)
	}

	return sf
}

func (sf *SortingFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	sf.build(builder)

	r, err := next(builder)
	if err != nil {
		return nil, err
	}

	return sf.handle(builder.Request(), r)
}

func (sf *SortingFeature) selected(req *treesearch.Request) string {
	if p, err := req.Get(sf.param); err == nil && p.Value() != "" {
		return p.Value()
	}
	return sf.defaultOption
}

func (sf *SortingFeature) build(builder *treesearch.QueryBuilder) {
	option, ok := sf.options[sf.selected(builder.Request())]
	if !ok {
		return
	}

	if option.ascending {
		builder.SortAscending(option.property)
	} else {
		builder.SortDescending(option.property)
	}
}

func (sf *SortingFeature) handle(req *treesearch.Request, result *treesearch.Result) (*treesearch.Result, error) {
	options := make([]*treesearch.ResultSortingOption, 0, len(sf.order))
	for _, name := range sf.order {
		options = append(options, &treesearch.ResultSortingOption{
			Label: sf.options[name].label,
			Value: name,
		})
	}

	selected := sf.selected(req)
	if _, ok := sf.options[selected]; !ok {
		selected = ""
	}

	result.Sorting = &treesearch.ResultSorting{
		Param:    sf.param,
		Selected: selected,
		Options:  options,
	}
	return result, nil
}
