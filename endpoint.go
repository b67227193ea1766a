package treesearch

import (
	"context"
	"fmt"
	"time"
)

// FeatureFunc is the next step of a feature chain.
type FeatureFunc func(*QueryBuilder) (*Result, error)

// Feature is a building block of a search endpoint. It configures the query
// builder from the request, calls next and may decorate the result.
type Feature interface {
	Process(*QueryBuilder, FeatureFunc) (*Result, error)
}

// Endpoint executes a fixed set of features for incoming search requests.
//
// Example:
//
//	endpoint := treesearch.NewEndpoint(backend,
//	    featureset.NewNodeTypeFeature("Neos.Neos:Document"),
//	    featureset.NewFulltextFeature(),
//	    featureset.NewPaginationFeature(featureset.WithPageSize(20)),
//	)
//	result, err := endpoint.Execute(ctx, siteNode, request)
type Endpoint struct {
	backend  *Backend
	features []Feature
}

// NewEndpoint returns an endpoint executing against backend.
func NewEndpoint(backend *Backend, features ...Feature) *Endpoint {
	return &Endpoint{
		backend:  backend,
		features: features,
	}
}

// Register appends features to the endpoint. Features run in registration
// order.
func (e *Endpoint) Register(features ...Feature) {
	e.features = append(e.features, features...)
}

// Execute runs the features for request and fetches the result. When node
// is not nil the query is bound to it.
func (e *Endpoint) Execute(ctx context.Context, node ContextNode, request *Request) (*Result, error) {
	start := time.Now()

	qb := NewQueryBuilder(e.backend, WithRequest(request))
	if node != nil {
		qb.Context(node)
	}

	result, err := chain(e.features, func(qb *QueryBuilder) (*Result, error) {
		qr, err := qb.Execute(ctx)
		if err != nil {
			return nil, err
		}
		if !qr.fetch() {
			return nil, qr.Err()
		}

		return &Result{
			QueryResult: qr,
			Buckets:     make(map[string][]*ResultBucket),
		}, nil
	})(qb)
	if err != nil {
		return nil, fmt.Errorf("backend failed executing request: %w", err)
	}

	result.request = qb.Request()
	result.Duration = time.Since(start)
	return result, nil
}
