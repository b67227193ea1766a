package indexing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reveald/treesearch"
)

type settings struct {
	logger        *zap.Logger
	mapping       []byte
	flag          Flag
	workers       int
	flushBytes    int
	flushInterval time.Duration

	indexerFactory func(index string) Indexer
	onWorkspace    func(ctx context.Context, ws treesearch.Workspace)
	onCombination  func(ctx context.Context, c treesearch.Context, indexed int)
}

func newSettings(opts []Option) *settings {
	s := &settings{
		logger:        zap.NewNop(),
		mapping:       defaultMapping,
		flag:          &MemoryFlag{},
		workers:       1,
		flushBytes:    5 << 20,
		flushInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures the indexing components.
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMapping replaces the index settings and mappings used when a new index
// generation is created.
func WithMapping(mapping []byte) Option {
	return func(s *settings) {
		s.mapping = mapping
	}
}

// WithFlag sets the bulk indexing flag shared with the publish hook.
func WithFlag(flag Flag) Option {
	return func(s *settings) {
		if flag != nil {
			s.flag = flag
		}
	}
}

// WithWorkers sets the number of bulk indexer workers.
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFlushBytes sets the bulk request size that triggers a flush.
func WithFlushBytes(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.flushBytes = n
		}
	}
}

// WithFlushInterval sets how often queued documents are flushed.
func WithFlushInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithIndexerFactory sets how a build creates the indexer writing into a
// new index generation. By default a BulkQueue is used.
func WithIndexerFactory(factory func(index string) Indexer) Option {
	return func(s *settings) {
		s.indexerFactory = factory
	}
}

// WithWorkspaceCallback sets a function called before a workspace is
// traversed.
func WithWorkspaceCallback(fn func(ctx context.Context, ws treesearch.Workspace)) Option {
	return func(s *settings) {
		s.onWorkspace = fn
	}
}

// WithCombinationCallback sets a function called after a dimension
// combination of a workspace was traversed, with the number of nodes
// indexed for it.
func WithCombinationCallback(fn func(ctx context.Context, c treesearch.Context, indexed int)) Option {
	return func(s *settings) {
		s.onCombination = fn
	}
}
