package treesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reveald/treesearch/internal/metrics"
)

// DefaultIndex is the index, or alias, searched when none is configured.
const DefaultIndex = "treesearch"

// Backend executes search and count requests against Elasticsearch and
// resolves hits back to nodes.
//
// It holds the settings shared by all queries: the index name, the tree
// resolver, the dimension presets and the logger.
type Backend struct {
	transport esapi.Transport
	config    elasticsearch.Config
	index     string
	logger    *zap.Logger
	resolver  TreeResolver
	presets   DimensionPresetSource
}

// BackendOption is a type for passing functional options to the backend
// constructors.
type BackendOption func(*Backend)

// WithScheme defines which scheme to use when communicating with
// Elasticsearch (default is "http").
//
// Example:
//
//	backend, err := treesearch.NewElasticBackend(
//	    []string{"localhost:9200"},
//	    treesearch.WithScheme("https"),
//	)
func WithScheme(scheme string) BackendOption {
	return func(b *Backend) {
		b.config.Addresses = updateURLScheme(b.config.Addresses, scheme)
	}
}

func updateURLScheme(addresses []string, scheme string) []string {
	updated := make([]string, len(addresses))
	for i, addr := range addresses {
		addr = strings.TrimPrefix(addr, "http://")
		addr = strings.TrimPrefix(addr, "https://")
		updated[i] = scheme + "://" + addr
	}
	return updated
}

// WithCredentials adds username and password to requests to Elasticsearch.
func WithCredentials(username, password string) BackendOption {
	return func(b *Backend) {
		b.config.Username = username
		b.config.Password = password
	}
}

// WithSniff enables or disables discovery of the other cluster nodes on
// start.
func WithSniff(enabled bool) BackendOption {
	return func(b *Backend) {
		b.config.DiscoverNodesOnStart = enabled
	}
}

// WithHttpClient configures the http client used for requests to
// Elasticsearch. Only its transport is used.
func WithHttpClient(httpClient *http.Client) BackendOption {
	return func(b *Backend) {
		b.config.Transport = httpClient.Transport
	}
}

// WithCACert configures a custom CA certificate for requests to
// Elasticsearch.
func WithCACert(cert []byte) BackendOption {
	return func(b *Backend) {
		b.config.CACert = cert
	}
}

// WithIndex sets the index or alias queries are sent to.
//
// Example:
//
//	backend, err := treesearch.NewElasticBackend(
//	    []string{"localhost:9200"},
//	    treesearch.WithIndex("site-search"),
//	)
func WithIndex(index string) BackendOption {
	return func(b *Backend) {
		b.index = index
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *zap.Logger) BackendOption {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithResolver sets the resolver used to turn hit paths into nodes.
// Without a resolver every result is empty.
func WithResolver(resolver TreeResolver) BackendOption {
	return func(b *Backend) {
		b.resolver = resolver
	}
}

// WithDimensionPresets sets the dimension presets used by
// QueryBuilder.Dimension.
func WithDimensionPresets(presets DimensionPresetSource) BackendOption {
	return func(b *Backend) {
		b.presets = presets
	}
}

// NewElasticBackend creates a backend connected to the given Elasticsearch
// nodes.
//
// Example:
//
//	backend, err := treesearch.NewElasticBackend(
//	    []string{"localhost:9200"},
//	    treesearch.WithCredentials("user", "pass"),
//	    treesearch.WithResolver(tree),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewElasticBackend(nodes []string, opts ...BackendOption) (*Backend, error) {
	addresses := make([]string, len(nodes))
	for i, node := range nodes {
		if !strings.HasPrefix(node, "http://") && !strings.HasPrefix(node, "https://") {
			addresses[i] = "http://" + node
		} else {
			addresses[i] = node
		}
	}

	b := newBackend(elasticsearch.Config{Addresses: addresses}, opts)

	client, err := elasticsearch.NewClient(b.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	b.transport = client
	return b, nil
}

// NewBackend creates a backend sending its requests through transport.
// Connection options such as WithScheme have no effect.
func NewBackend(transport esapi.Transport, opts ...BackendOption) *Backend {
	b := newBackend(elasticsearch.Config{}, opts)
	b.transport = transport
	return b
}

func newBackend(config elasticsearch.Config, opts []BackendOption) *Backend {
	b := &Backend{
		config: config,
		index:  DefaultIndex,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Transport returns the transport requests are sent through.
func (b *Backend) Transport() esapi.Transport {
	return b.transport
}

// Index returns the index or alias queries are sent to.
func (b *Backend) Index() string {
	return b.index
}

// Logger returns the backend's logger.
func (b *Backend) Logger() *zap.Logger {
	return b.logger
}

// NewQueryBuilder returns a query builder executing against b.
func (b *Backend) NewQueryBuilder(opts ...BuilderOption) *QueryBuilder {
	return NewQueryBuilder(b, opts...)
}

func (b *Backend) search(ctx context.Context, qb *QueryBuilder) (*searchResponse, error) {
	body, err := qb.body()
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	queryID := uuid.NewString()
	if qb.logging {
		b.logger.Debug("search request",
			zap.String("query_id", queryID),
			zap.String("message", qb.logMessage),
			zap.String("index", b.index),
			zap.ByteString("body", body),
		)
	}

	start := time.Now()
	res, err := esapi.SearchRequest{
		Index: []string{b.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.transport)
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
		metrics.BackendRequestsTotal.WithLabelValues("search", metrics.Status(err)).Inc()
	}()
	if err != nil {
		err = fmt.Errorf("elasticsearch search request failed: %w", err)
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		err = NewBackendError(res)
		return nil, err
	}

	var sr searchResponse
	if err = json.NewDecoder(res.Body).Decode(&sr); err != nil {
		err = fmt.Errorf("failed to decode search response: %w", err)
		return nil, err
	}

	if qb.logging {
		b.logger.Debug("search response",
			zap.String("query_id", queryID),
			zap.Int64("took_ms", sr.Took),
			zap.Int("limit", qb.limit),
			zap.Int("hits", len(sr.Hits.Hits)),
			zap.Int64("total", sr.total()),
			zap.Duration("duration", time.Since(start)),
		)
	}

	return &sr, nil
}

func (b *Backend) count(ctx context.Context, qb *QueryBuilder) (int64, error) {
	body, err := qb.countBody()
	if err != nil {
		return 0, fmt.Errorf("failed to encode count request: %w", err)
	}

	if qb.logging {
		b.logger.Debug("count request",
			zap.String("query_id", uuid.NewString()),
			zap.String("message", qb.logMessage),
			zap.ByteString("body", body),
		)
	}

	start := time.Now()
	res, err := esapi.CountRequest{
		Index: []string{b.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.transport)
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues("count").Observe(time.Since(start).Seconds())
		metrics.BackendRequestsTotal.WithLabelValues("count", metrics.Status(err)).Inc()
	}()
	if err != nil {
		err = fmt.Errorf("elasticsearch count request failed: %w", err)
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		err = NewBackendError(res)
		return 0, err
	}

	var cr struct {
		Count int64 `json:"count"`
	}
	if err = json.NewDecoder(res.Body).Decode(&cr); err != nil {
		err = fmt.Errorf("failed to decode count response: %w", err)
		return 0, err
	}

	return cr.Count, nil
}

// NewBackendError reads an error response into a *BackendError. The
// response body is consumed but not closed.
func NewBackendError(res *esapi.Response) error {
	be := &BackendError{Status: res.StatusCode}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if res.Body != nil && json.NewDecoder(res.Body).Decode(&payload) == nil && len(payload.Error) > 0 {
		var detail struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(payload.Error, &detail) == nil {
			be.Type = detail.Type
			be.Reason = detail.Reason
		} else {
			_ = json.Unmarshal(payload.Error, &be.Reason)
		}
	}

	if be.Reason == "" {
		be.Reason = res.Status()
	}
	return be
}
