package indexing

import (
	"context"

	"go.uber.org/zap"

	"github.com/reveald/treesearch"
)

// PublishHook keeps the index current as content is published, outside of
// full builds.
//
// While the bulk indexing flag is set the hook does nothing: the running
// build indexes the content anyway, and writing into the old generation
// would be lost when the alias is swapped.
type PublishHook struct {
	indexer Indexer
	flag    Flag
	logger  *zap.Logger
}

// NewPublishHook returns a hook writing through indexer, usually a BulkQueue
// on the alias. The flag must be the one builds set.
func NewPublishHook(indexer Indexer, opts ...Option) *PublishHook {
	s := newSettings(opts)

	return &PublishHook{
		indexer: indexer,
		flag:    s.flag,
		logger:  s.logger,
	}
}

// NodePublished indexes node in c. It reports whether the node was indexed.
func (h *PublishHook) NodePublished(ctx context.Context, node IndexableNode, c treesearch.Context) (bool, error) {
	if skip, err := h.skip(ctx, node); skip || err != nil {
		return false, err
	}

	if err := h.indexer.Index(ctx, node, c); err != nil {
		return false, err
	}
	return true, h.indexer.Flush(ctx)
}

// NodeRemoved removes the document of node in c. It reports whether the
// removal was sent.
func (h *PublishHook) NodeRemoved(ctx context.Context, node treesearch.Node, c treesearch.Context) (bool, error) {
	if skip, err := h.skip(ctx, node); skip || err != nil {
		return false, err
	}

	if err := h.indexer.Remove(ctx, node, c); err != nil {
		return false, err
	}
	return true, h.indexer.Flush(ctx)
}

func (h *PublishHook) skip(ctx context.Context, node treesearch.Node) (bool, error) {
	running, err := h.flag.Get(ctx)
	if err != nil {
		return false, err
	}

	if running {
		h.logger.Debug("bulk indexing in progress, skipping incremental update",
			zap.String("path", node.Path()),
		)
	}
	return running, nil
}
