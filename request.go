package treesearch

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Suffixes marking the lower and upper bound of a range parameter, as in
// "price.min=10&price.max=20".
const (
	RangeMinSuffix = ".min"
	RangeMaxSuffix = ".max"
)

// Parameter is a named, possibly repeated, request parameter.
//
// Parameters named with a range suffix are stored under the base name and
// carry the parsed bound instead.
type Parameter struct {
	name   string
	values []string
	min    *float64
	max    *float64
}

// NewParameter creates a parameter from its name and raw values.
//
// Example:
//
//	p := treesearch.NewParameter("price.min", "10")
//	p.Name()  // "price"
//	p.Min()   // 10, true
func NewParameter(name string, values ...string) Parameter {
	p := Parameter{name: name, values: values}

	bound := func(suffix string) *float64 {
		base, ok := strings.CutSuffix(name, suffix)
		if !ok {
			return nil
		}
		p.name = base

		for _, v := range slices.Backward(values) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return &f
			}
		}
		return nil
	}

	if strings.HasSuffix(name, RangeMinSuffix) {
		p.min = bound(RangeMinSuffix)
	} else if strings.HasSuffix(name, RangeMaxSuffix) {
		p.max = bound(RangeMaxSuffix)
	}

	return p
}

// Name returns the parameter name, without any range suffix.
func (p Parameter) Name() string {
	return p.name
}

// Value returns the last value, or an empty string.
func (p Parameter) Value() string {
	if len(p.values) == 0 {
		return ""
	}
	return p.values[len(p.values)-1]
}

// Values returns all non-empty values.
func (p Parameter) Values() []string {
	return slices.DeleteFunc(slices.Clone(p.values), func(v string) bool {
		return v == ""
	})
}

// Int returns the value as an integer.
func (p Parameter) Int() (int, bool) {
	n, err := strconv.Atoi(p.Value())
	return n, err == nil
}

// Bool reports whether the value is a true boolean string.
func (p Parameter) Bool() bool {
	b, err := strconv.ParseBool(p.Value())
	return err == nil && b
}

// IsRange reports whether the parameter carries a range bound.
func (p Parameter) IsRange() bool {
	return p.min != nil || p.max != nil
}

// Min returns the lower range bound.
func (p Parameter) Min() (float64, bool) {
	if p.min == nil {
		return 0, false
	}
	return *p.min, true
}

// Max returns the upper range bound.
func (p Parameter) Max() (float64, bool) {
	if p.max == nil {
		return 0, false
	}
	return *p.max, true
}

func (p Parameter) merge(other Parameter) Parameter {
	p.values = append(slices.Clone(other.values), p.values...)
	if p.min == nil {
		p.min = other.min
	}
	if p.max == nil {
		p.max = other.max
	}
	return p
}

// Request is the set of parameters a search is executed for.
type Request struct {
	params map[string]Parameter
}

// NewRequest creates a request. Parameters with the same name are merged.
func NewRequest(params ...Parameter) *Request {
	r := &Request{params: make(map[string]Parameter)}
	for _, p := range params {
		r.Append(p)
	}
	return r
}

// NewRequestFromValues creates a request from url query values.
//
// Example:
//
//	q, _ := url.ParseQuery("q=search&color=red&color=blue&price.max=100")
//	request := treesearch.NewRequestFromValues(q)
func NewRequestFromValues(values url.Values) *Request {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	r := NewRequest()
	for _, name := range names {
		r.Append(NewParameter(name, values[name]...))
	}
	return r
}

// Append adds p, merging it with an existing parameter of the same name.
func (r *Request) Append(p Parameter) *Request {
	if existing, ok := r.params[p.name]; ok {
		p = p.merge(existing)
	}
	r.params[p.name] = p
	return r
}

// Has reports whether a parameter is present.
func (r *Request) Has(name string) bool {
	_, ok := r.params[name]
	return ok
}

// Get returns the named parameter.
func (r *Request) Get(name string) (Parameter, error) {
	p, ok := r.params[name]
	if !ok {
		return Parameter{}, fmt.Errorf("no such parameter: %s", name)
	}
	return p, nil
}

// All returns every parameter by name.
func (r *Request) All() map[string]Parameter {
	return r.params
}

// Set replaces the named parameter.
func (r *Request) Set(name string, values ...string) {
	p := NewParameter(name, values...)
	r.params[p.name] = p
}

// Del removes the named parameter.
func (r *Request) Del(name string) {
	delete(r.params, name)
}
