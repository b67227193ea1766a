package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/internal/metrics"
)

// Indexer receives the documents of a build or of incremental updates.
type Indexer interface {
	Index(ctx context.Context, node IndexableNode, c treesearch.Context) error
	Remove(ctx context.Context, node treesearch.Node, c treesearch.Context) error
	Flush(ctx context.Context) error
}

// BulkQueue is an Indexer batching documents into bulk requests.
//
// Documents are sent in the background as batches fill up. Flush waits
// until everything queued so far was sent and reports failed items; the
// queue can be used again afterwards.
type BulkQueue struct {
	transport esapi.Transport
	index     string
	settings  *settings

	mu   sync.Mutex
	bulk esutil.BulkIndexer

	errMu   sync.Mutex
	failed  int
	lastErr error
}

// NewBulkQueue returns a queue writing to index.
func NewBulkQueue(transport esapi.Transport, index string, opts ...Option) *BulkQueue {
	return &BulkQueue{
		transport: transport,
		index:     index,
		settings:  newSettings(opts),
	}
}

// IndexName returns the index the queue writes to.
func (q *BulkQueue) IndexName() string {
	return q.index
}

// Enqueue queues the document of node in c.
func (q *BulkQueue) Enqueue(ctx context.Context, node IndexableNode, c treesearch.Context) error {
	doc, err := NewDocument(node, c)
	if err != nil {
		metrics.IndexedDocumentsTotal.WithLabelValues("index", "error").Inc()
		return fmt.Errorf("failed to build document for %s: %w", node.Path(), err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document for %s: %w", node.Path(), err)
	}

	return q.add(ctx, esutil.BulkIndexerItem{
		Action:     "index",
		DocumentID: doc.ID(),
		Body:       bytes.NewReader(body),
	})
}

// Index implements Indexer.
func (q *BulkQueue) Index(ctx context.Context, node IndexableNode, c treesearch.Context) error {
	return q.Enqueue(ctx, node, c)
}

// Remove queues the deletion of the document of node in c.
func (q *BulkQueue) Remove(ctx context.Context, node treesearch.Node, c treesearch.Context) error {
	workspace := treesearch.LiveWorkspace
	var dimensions map[string][]string
	if c != nil {
		if ws := c.Workspace(); ws != nil {
			workspace = ws.Name()
		}
		dimensions = c.Dimensions()
	}

	return q.add(ctx, esutil.BulkIndexerItem{
		Action:     "delete",
		DocumentID: DocumentID(node.Identifier(), workspace, treesearch.DimensionHash(dimensions)),
	})
}

// Flush sends all queued documents and waits for the responses. It returns
// an error when any document since the previous flush failed.
func (q *BulkQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	bulk := q.bulk
	q.bulk = nil
	q.mu.Unlock()

	if bulk != nil {
		if err := bulk.Close(ctx); err != nil {
			return fmt.Errorf("failed to flush bulk queue: %w", err)
		}

		stats := bulk.Stats()
		q.settings.logger.Debug("bulk queue flushed",
			zap.String("index", q.index),
			zap.Uint64("indexed", stats.NumIndexed),
			zap.Uint64("deleted", stats.NumDeleted),
			zap.Uint64("failed", stats.NumFailed),
			zap.Uint64("requests", stats.NumRequests),
		)
	}

	q.errMu.Lock()
	n, err := q.failed, q.lastErr
	q.failed, q.lastErr = 0, nil
	q.errMu.Unlock()

	if n > 0 {
		return fmt.Errorf("%d documents failed to index into %s: %w", n, q.index, err)
	}
	return nil
}

func (q *BulkQueue) fail(err error) {
	q.errMu.Lock()
	defer q.errMu.Unlock()

	q.failed++
	q.lastErr = err
}

func (q *BulkQueue) add(ctx context.Context, item esutil.BulkIndexerItem) error {
	bulk, err := q.indexer()
	if err != nil {
		return err
	}

	action := item.Action
	item.OnSuccess = func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
		metrics.IndexedDocumentsTotal.WithLabelValues(action, "ok").Inc()
	}
	item.OnFailure = func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		metrics.IndexedDocumentsTotal.WithLabelValues(action, "error").Inc()

		if err == nil {
			err = &treesearch.BackendError{Status: res.Status, Type: res.Error.Type, Reason: res.Error.Reason}
		}
		q.fail(err)

		q.settings.logger.Error("bulk item failed",
			zap.String("index", q.index),
			zap.String("action", item.Action),
			zap.String("document_id", item.DocumentID),
			zap.Error(err),
		)
	}

	if err := bulk.Add(ctx, item); err != nil {
		return fmt.Errorf("failed to queue %s of %s: %w", item.Action, item.DocumentID, err)
	}
	return nil
}

func (q *BulkQueue) indexer() (esutil.BulkIndexer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.bulk != nil {
		return q.bulk, nil
	}

	bulk, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        q.transport,
		Index:         q.index,
		NumWorkers:    q.settings.workers,
		FlushBytes:    q.settings.flushBytes,
		FlushInterval: q.settings.flushInterval,
		OnError: func(_ context.Context, err error) {
			q.fail(err)
			q.settings.logger.Error("bulk request failed", zap.String("index", q.index), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	q.bulk = bulk
	return bulk, nil
}
