package main

import (
	"context"
	"fmt"
	"os"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/indexing"
	"github.com/reveald/treesearch/internal/config"
	"github.com/reveald/treesearch/internal/export"
	"github.com/reveald/treesearch/internal/logger"
	"github.com/reveald/treesearch/internal/metrics"
)

type app struct {
	configPath  string
	metricsFile string

	cfg      *config.Config
	logger   *zap.Logger
	content  *export.Export
	registry *prometheus.Registry
	redis    *redis.Client

	// transport replaces the Elasticsearch client when set.
	transport esapi.Transport
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treesearch",
		Short: "Index and search a content tree in Elasticsearch",
		Long: `treesearch indexes every workspace and dimension combination of a
content tree export into a new Elasticsearch index generation and
searches it through the stable alias.

Examples:
  treesearch build                     # Build a new generation and swap the alias
  treesearch build 100 false live      # Index at most 100 nodes of the live workspace
  treesearch cleanup                   # Delete generations the alias does not use
  treesearch search "annual report"    # Search below the root node`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./treesearch.yaml)")
	cmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")

	cmd.AddCommand(
		newBuildCommand(a),
		newCleanupCommand(a),
		newSearchCommand(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logger.NewLogger(cfg.Environment, cfg.Logger.Level)
	if err != nil {
		return err
	}

	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), a.logger))

	a.content, err = export.Load(cfg.Content.Export, export.WithCacheSize(cfg.Content.CacheSize))
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	return metrics.Register(a.registry)
}

func (a *app) teardown() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}

	if a.metricsFile == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func (a *app) backend() (*treesearch.Backend, error) {
	opts := []treesearch.BackendOption{
		treesearch.WithIndex(a.cfg.Elasticsearch.Alias),
		treesearch.WithLogger(a.logger),
		treesearch.WithResolver(a.content),
		treesearch.WithDimensionPresets(a.content),
	}

	if a.transport != nil {
		return treesearch.NewBackend(a.transport, opts...), nil
	}

	es := a.cfg.Elasticsearch
	opts = append(opts,
		treesearch.WithScheme(es.Scheme),
		treesearch.WithSniff(es.Sniff),
	)
	if es.Username != "" {
		opts = append(opts, treesearch.WithCredentials(es.Username, es.Password))
	}
	if es.CACert != "" {
		cert, err := os.ReadFile(es.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		opts = append(opts, treesearch.WithCACert(cert))
	}

	return treesearch.NewElasticBackend(es.Nodes, opts...)
}

// indexingOptions returns the options shared by every indexing component,
// including the bulk indexing flag.
func (a *app) indexingOptions(ctx context.Context) ([]indexing.Option, error) {
	opts := []indexing.Option{
		indexing.WithLogger(a.logger),
		indexing.WithWorkers(a.cfg.Indexing.Workers),
		indexing.WithFlushBytes(a.cfg.Indexing.FlushBytes),
		indexing.WithFlushInterval(a.cfg.Indexing.FlushInterval),
	}

	if r := a.cfg.Redis; r.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts = append(opts, indexing.WithFlag(indexing.NewRedisFlag(a.redis, r.FlagKey, r.FlagTTL)))
	}

	return opts, nil
}
