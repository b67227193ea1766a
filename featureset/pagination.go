package featureset

import (
	"github.com/reveald/treesearch"
)

const (
	defaultPageSize int = 24
)

// PaginationFeature pages the result with the "offset" and "size" request
// parameters.
type PaginationFeature struct {
	pageSize    int
	maxPageSize int
	maxOffset   int
}

type PaginationOption func(*PaginationFeature)

func WithPageSize(pageSize int) PaginationOption {
	return func(pf *PaginationFeature) {
		pf.pageSize = pageSize
	}
}

func WithMaxPageSize(maxPageSize int) PaginationOption {
	return func(pf *PaginationFeature) {
		pf.maxPageSize = maxPageSize
	}
}

// WithMaxOffset caps the offset. Larger offsets fall back to 0.
func WithMaxOffset(maxOffset int) PaginationOption {
	return func(pf *PaginationFeature) {
		pf.maxOffset = maxOffset
	}
}

func NewPaginationFeature(opts ...PaginationOption) *PaginationFeature {
	pf := &PaginationFeature{
		pageSize:    defaultPageSize,
		maxPageSize: defaultPageSize,
		maxOffset:   -1,
	}

	for _, opt := range opts {
		opt(pf)
	}

	if pf.maxPageSize < pf.pageSize {
		pf.maxPageSize = pf.pageSize
	}

	return pf
}

func (pf *PaginationFeature) Process(builder *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	offset, pageSize := pf.page(builder.Request())
	builder.Offset(offset).Limit(pageSize)

	r, err := next(builder)
	if err != nil {
		return nil, err
	}

	r.Pagination = &treesearch.ResultPagination{
		Offset:   offset,
		PageSize: pageSize,
	}
	return r, nil
}

func (pf *PaginationFeature) page(req *treesearch.Request) (int, int) {
	offset, ok := intValue(req, "offset")
	if !ok || offset < 0 || (pf.maxOffset > 0 && offset > pf.maxOffset) {
		offset = 0
	}

	pageSize, ok := intValue(req, "size")
	if !ok || pageSize <= 0 || pageSize > pf.maxPageSize {
		pageSize = pf.pageSize
	}

	return offset, pageSize
}

func intValue(req *treesearch.Request, param string) (int, bool) {
	p, err := req.Get(param)
	if err != nil {
		return 0, false
	}
	return p.Int()
}
