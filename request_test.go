package treesearch

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewParameter(t *testing.T) {
	table := []struct {
		name   string
		suffix string
		values []string
	}{
		{"param", "", []string{}},
		{"param", "", []string{"value1", "value2"}},
		{"param", RangeMinSuffix, []string{"1"}},
		{"param", RangeMaxSuffix, []string{"1"}},
	}

	for _, tt := range table {
		p := NewParameter(tt.name+tt.suffix, tt.values...)
		name := fmt.Sprintf("%s%s: %s", tt.name, tt.suffix, strings.Join(tt.values, ", "))
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.name, p.Name())
			assert.Equal(t, tt.values, p.Values())
			assert.Equal(t, tt.suffix != "", p.IsRange())
		})
	}
}

func Test_RangeBounds(t *testing.T) {
	table := []struct {
		name   string
		param  Parameter
		min    float64
		hasMin bool
		max    float64
		hasMax bool
	}{
		{"min", NewParameter("price"+RangeMinSuffix, "10"), 10, true, 0, false},
		{"max", NewParameter("price"+RangeMaxSuffix, "2.5"), 0, false, 2.5, true},
		{"last parsable value wins", NewParameter("price"+RangeMinSuffix, "1", "x", "3"), 3, true, 0, false},
		{"not a number", NewParameter("price"+RangeMinSuffix, "cheap"), 0, false, 0, false},
		{"plain", NewParameter("price", "10"), 0, false, 0, false},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.param.Min()
			assert.Equal(t, tt.hasMin, ok)
			assert.Equal(t, tt.min, v)

			v, ok = tt.param.Max()
			assert.Equal(t, tt.hasMax, ok)
			assert.Equal(t, tt.max, v)

			assert.Equal(t, "price", tt.param.Name())
		})
	}
}

func Test_ParameterValues(t *testing.T) {
	p := NewParameter("color", "red", "", "blue")

	assert.Equal(t, "blue", p.Value())
	assert.Equal(t, []string{"red", "blue"}, p.Values())
	assert.Equal(t, "", NewParameter("empty").Value())

	n, ok := NewParameter("size", "12").Int()
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = NewParameter("size", "twelve").Int()
	assert.False(t, ok)

	assert.True(t, NewParameter("flag", "true").Bool())
	assert.False(t, NewParameter("flag", "yes").Bool())
}

func Test_RequestMerge(t *testing.T) {
	r := NewRequest(
		NewParameter("color", "red"),
		NewParameter("color", "blue"),
		NewParameter("price"+RangeMinSuffix, "10"),
		NewParameter("price"+RangeMaxSuffix, "20"),
	)

	color, err := r.Get("color")
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "blue"}, color.Values())

	price, err := r.Get("price")
	require.NoError(t, err)
	lower, _ := price.Min()
	upper, _ := price.Max()
	assert.Equal(t, 10.0, lower)
	assert.Equal(t, 20.0, upper)

	assert.Len(t, r.All(), 2)
}

func Test_RequestFromValues(t *testing.T) {
	values, err := url.ParseQuery("q=hello&color=red&color=blue&price.max=100")
	require.NoError(t, err)

	r := NewRequestFromValues(values)

	assert.True(t, r.Has("q"))
	assert.True(t, r.Has("price"))
	assert.False(t, r.Has("price.max"))

	color, _ := r.Get("color")
	assert.Equal(t, []string{"red", "blue"}, color.Values())
}

func Test_RequestSetDel(t *testing.T) {
	r := NewRequest()

	_, err := r.Get("q")
	assert.Error(t, err)

	r.Set("q", "first")
	r.Set("q", "second")
	q, err := r.Get("q")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, q.Values())

	r.Set("price"+RangeMinSuffix, "5")
	assert.True(t, r.Has("price"))

	r.Del("q")
	assert.False(t, r.Has("q"))
}
