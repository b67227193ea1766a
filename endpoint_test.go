package treesearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/treesearch/internal/estest"
)

type limitFeature struct{ n int }

func (f limitFeature) Process(qb *QueryBuilder, next FeatureFunc) (*Result, error) {
	qb.Limit(f.n)

	r, err := next(qb)
	if err != nil {
		return nil, err
	}

	r.Pagination = &ResultPagination{PageSize: f.n}
	return r, nil
}

func Test_EndpointExecute(t *testing.T) {
	backend, transport, a, _ := twoNodeBackend(nil)
	endpoint := NewEndpoint(backend)
	endpoint.Register(limitFeature{n: 1})

	request := NewRequest(NewParameter("q", "hello"))
	result, err := endpoint.Execute(t.Context(), liveRoot(), request)
	require.NoError(t, err)

	assert.Same(t, request, result.Request())
	assert.Equal(t, []Node{a}, result.Nodes())
	assert.Equal(t, 1, result.Pagination.PageSize)
	assert.NotNil(t, result.Buckets)

	body := transport.Last().JSON()
	assert.Equal(t, float64(1), body["size"])

	must := dig(t, body, "query", "filtered", "filter", "bool", "must").([]any)
	assert.Equal(t, "/sites/demo", dig(t, must[0].(map[string]any), "term", ParentPathField, "value"))
}

func Test_EndpointBackendError(t *testing.T) {
	backend := NewBackend(estest.NewTransport(estest.Static(500, `{"error":"boom"}`)))

	_, err := NewEndpoint(backend).Execute(t.Context(), nil, NewRequest())

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "boom", be.Reason)
}
