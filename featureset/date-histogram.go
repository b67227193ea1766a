package featureset

import (
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/calendarinterval"

	"github.com/reveald/treesearch"
)

// DateHistogramInterval specifies the date interval size
type DateHistogramInterval string

// Common intervals
const (
	Second  DateHistogramInterval = "second"
	Minute  DateHistogramInterval = "minute"
	Hour    DateHistogramInterval = "hour"
	Day     DateHistogramInterval = "day"
	Week    DateHistogramInterval = "week"
	Month   DateHistogramInterval = "month"
	Quarter DateHistogramInterval = "quarter"
	Year    DateHistogramInterval = "year"
)

// DateHistogramFeature counts nodes per date interval of a date property,
// for example per month of publication.
//
// The "<property>.min" and "<property>.max" parameters, in epoch
// milliseconds, restrict the property.
//
// Example:
//
//	published := featureset.NewDateHistogramFeature("publishedAt", featureset.Month,
//	    featureset.WithDateFormat("yyyy-MM"),
//	    featureset.WithDateTimeZone("Europe/Stockholm"),
//	)
type DateHistogramFeature struct {
	property    string
	interval    DateHistogramInterval
	fixed       bool
	format      string
	timezone    string
	minDocCount int
	lower       *time.Time
	upper       *time.Time
}

// DateHistogramOption is a functional option for configuring a DateHistogramFeature.
type DateHistogramOption func(*DateHistogramFeature)

// WithDateFormat sets the format of the bucket keys.
func WithDateFormat(format string) DateHistogramOption {
	return func(dhf *DateHistogramFeature) {
		dhf.format = format
	}
}

// WithDateTimeZone sets the time zone buckets are aligned to.
func WithDateTimeZone(timezone string) DateHistogramOption {
	return func(dhf *DateHistogramFeature) {
		dhf.timezone = timezone
	}
}

// WithMinDateDocumentCount drops buckets with fewer documents.
func WithMinDateDocumentCount(minDocCount int) DateHistogramOption {
	return func(dhf *DateHistogramFeature) {
		dhf.minDocCount = minDocCount
	}
}

// WithFixedInterval uses the interval as a fixed duration, such as "12h",
// instead of a calendar unit.
func WithFixedInterval() DateHistogramOption {
	return func(dhf *DateHistogramFeature) {
		dhf.fixed = true
	}
}

// WithExtendedBounds returns empty buckets between lower and upper. Either
// may be nil.
func WithExtendedBounds(lower, upper *time.Time) DateHistogramOption {
	return func(dhf *DateHistogramFeature) {
		dhf.lower = lower
		dhf.upper = upper
	}
}

// NewDateHistogramFeature creates a date histogram on property.
func NewDateHistogramFeature(property string, interval DateHistogramInterval, opts ...DateHistogramOption) *DateHistogramFeature {
	dhf := &DateHistogramFeature{
		property: property,
		interval: interval,
		format:   "yyyy-MM-dd",
	}

	for _, opt := range opts {
		opt(dhf)
	}

	return dhf
}

func (dhf *DateHistogramFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	if err := dhf.build(builder); err != nil {
		return nil, err
	}

	r, err := next(builder)
	if err != nil {
		return nil, err
	}

	return dhf.handle(r)
}

func (dhf *DateHistogramFeature) build(builder *treesearch.QueryBuilder) error {
	field := dhf.property
	format := dhf.format

	histogram := &types.DateHistogramAggregation{
		Field:  &field,
		Format: &format,
	}
	if dhf.fixed {
		histogram.FixedInterval = string(dhf.interval)
	} else {
		histogram.CalendarInterval = &calendarinterval.CalendarInterval{Name: string(dhf.interval)}
	}
	if dhf.minDocCount > 0 {
		minDocCount := dhf.minDocCount
		histogram.MinDocCount = &minDocCount
	}
	if dhf.timezone != "" {
		timezone := dhf.timezone
		histogram.TimeZone = &timezone
	}
	if dhf.lower != nil || dhf.upper != nil {
		bounds := &types.ExtendedBoundsFieldDateMath{}
		if dhf.lower != nil {
			bounds.Min = dhf.lower.Format(time.RFC3339)
		}
		if dhf.upper != nil {
			bounds.Max = dhf.upper.Format(time.RFC3339)
		}
		histogram.ExtendedBounds = bounds
	}

	err := builder.Facet(dhf.property, treesearch.TermsAggregation, field,
		treesearch.WithProtectedFields(field),
		treesearch.WithFacetBody(types.Aggregations{DateHistogram: histogram}))
	if err != nil {
		return err
	}

	p, err := builder.Request().Get(dhf.property)
	if err != nil || !p.IsRange() {
		return nil
	}

	if lower, ok := p.Min(); ok {
		if err := builder.Range(field, treesearch.GreaterThanOrEqual, strconv.FormatFloat(lower, 'f', 0, 64)); err != nil {
			return err
		}
	}
	if upper, ok := p.Max(); ok {
		if err := builder.Range(field, treesearch.LessThanOrEqual, strconv.FormatFloat(upper, 'f', 0, 64)); err != nil {
			return err
		}
	}

	return nil
}

func (dhf *DateHistogramFeature) handle(result *treesearch.Result) (*treesearch.Result, error) {
	if result.QueryResult == nil {
		return result, nil
	}

	if result.Buckets == nil {
		result.Buckets = make(map[string][]*treesearch.ResultBucket)
	}
	result.Buckets[dhf.property] = result.FacetBuckets(dhf.property)
	return result, nil
}
