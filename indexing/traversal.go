package indexing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/internal/metrics"
)

// ContentSource exposes the content tree to a build.
type ContentSource interface {
	Workspaces(ctx context.Context) ([]treesearch.Workspace, error)
	Root(ctx context.Context, c treesearch.Context) (IndexableNode, error)
	Children(ctx context.Context, node IndexableNode, c treesearch.Context) ([]IndexableNode, error)

	// Flush drops any nodes the source cached for the previous context.
	Flush()
}

// BuildOptions controls a build.
type BuildOptions struct {
	// Limit stops the build after this many documents. 0 indexes everything.
	Limit int
	// Update writes into the index the alias points at instead of creating
	// a new generation.
	Update bool
	// Workspace restricts the build to a single workspace.
	Workspace string
	// Postfix names the new generation. Defaults to the current unix time.
	Postfix string
}

// BuildReport describes a finished build.
type BuildReport struct {
	Index        string
	Documents    int
	Combinations int
	LimitReached bool
	Swapped      bool
	Duration     time.Duration
}

// ErrUnknownWorkspace is returned when a build is restricted to a workspace
// the content source does not have.
var ErrUnknownWorkspace = errors.New("unknown workspace")

var errLimitReached = errors.New("limit reached")

// Traversal indexes the full content tree.
type Traversal struct {
	source   ContentSource
	presets  treesearch.DimensionPresetSource
	manager  *Manager
	settings *settings
}

// NewTraversal returns a traversal indexing source into generations
// managed by manager. Dimension combinations are taken from presets, which
// may be nil.
func NewTraversal(source ContentSource, presets treesearch.DimensionPresetSource, manager *Manager, opts ...Option) *Traversal {
	t := &Traversal{
		source:   source,
		presets:  presets,
		manager:  manager,
		settings: newSettings(opts),
	}

	if t.settings.indexerFactory == nil {
		t.settings.indexerFactory = func(index string) Indexer {
			return NewBulkQueue(manager.transport, index, opts...)
		}
	}
	return t
}

// Flag returns the bulk indexing flag set while a build runs.
func (t *Traversal) Flag() Flag {
	return t.settings.flag
}

// Build indexes every node of every workspace once per dimension
// combination.
//
// Unless opts.Update is set, the documents go into a new index generation
// and the alias is pointed at it when the build succeeds. The previous
// generation is left in place for Manager.Cleanup. The bulk indexing flag
// is set for the duration of the build.
func (t *Traversal) Build(ctx context.Context, opts BuildOptions) (*BuildReport, error) {
	log := t.settings.logger
	start := time.Now()

	if err := t.settings.flag.Set(ctx, true); err != nil {
		return nil, err
	}
	defer func() {
		if err := t.settings.flag.Reset(context.WithoutCancel(ctx)); err != nil {
			log.Error("failed to reset bulk indexing flag", zap.Error(err))
		}
	}()

	workspaces, err := t.workspaces(ctx, opts.Workspace)
	if err != nil {
		return nil, err
	}

	report := &BuildReport{Index: t.manager.Alias()}
	if !opts.Update {
		postfix := opts.Postfix
		if postfix == "" {
			postfix = strconv.FormatInt(start.Unix(), 10)
		}

		report.Index = t.manager.GenerationName(postfix)
		if err := t.manager.Create(ctx, report.Index); err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", report.Index, err)
		}
	}

	log.Info("build started",
		zap.String("index", report.Index),
		zap.Bool("update", opts.Update),
		zap.Int("limit", opts.Limit),
		zap.Int("workspaces", len(workspaces)),
	)

	indexer := t.settings.indexerFactory(report.Index)
	combinations := Combinations(t.presets)

	err = t.traverse(ctx, indexer, workspaces, combinations, opts.Limit, report)
	if errors.Is(err, errLimitReached) {
		report.LimitReached = true
		err = nil
	}
	if err != nil {
		return report, err
	}

	if err := indexer.Flush(ctx); err != nil {
		return report, err
	}
	if err := t.manager.Refresh(ctx, report.Index); err != nil {
		return report, fmt.Errorf("failed to refresh index %s: %w", report.Index, err)
	}

	if !opts.Update {
		if err := t.manager.SwapAlias(ctx, report.Index); err != nil {
			return report, fmt.Errorf("failed to point alias at %s: %w", report.Index, err)
		}
		report.Swapped = true
	}

	report.Duration = time.Since(start)
	metrics.IndexBuildDuration.Observe(report.Duration.Seconds())

	log.Info("build finished",
		zap.String("index", report.Index),
		zap.Int("documents", report.Documents),
		zap.Int("combinations", report.Combinations),
		zap.Bool("limit_reached", report.LimitReached),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (t *Traversal) workspaces(ctx context.Context, only string) ([]treesearch.Workspace, error) {
	all, err := t.source.Workspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	if only == "" {
		return all, nil
	}

	for _, ws := range all {
		if ws.Name() == only {
			return []treesearch.Workspace{ws}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownWorkspace, only)
}

// traverse visits every combination of every workspace in turn. The source
// cache is flushed after each combination, so combinations must never be
// walked concurrently.
func (t *Traversal) traverse(ctx context.Context, indexer Indexer, workspaces []treesearch.Workspace, combinations []map[string][]string, limit int, report *BuildReport) error {
	for _, ws := range workspaces {
		if t.settings.onWorkspace != nil {
			t.settings.onWorkspace(ctx, ws)
		}

		for _, dims := range combinations {
			if limit > 0 && report.Documents >= limit {
				return errLimitReached
			}
			c := treesearch.NewContext(ws, dims)

			indexed, err := t.walk(ctx, indexer, c, limit, report)
			report.Combinations++
			t.source.Flush()

			t.settings.logger.Info("combination indexed",
				zap.String("workspace", ws.Name()),
				zap.Any("dimensions", dims),
				zap.Int("indexed", indexed),
				zap.Int("total", report.Documents),
			)
			if t.settings.onCombination != nil {
				t.settings.onCombination(ctx, c, indexed)
			}

			if err != nil {
				return err
			}
		}
	}
	return nil
}

// walk indexes the tree of c depth first, in document order.
func (t *Traversal) walk(ctx context.Context, indexer Indexer, c treesearch.Context, limit int, report *BuildReport) (int, error) {
	root, err := t.source.Root(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("failed to load root in %s: %w", c.Workspace().Name(), err)
	}
	if root == nil {
		return 0, nil
	}

	indexed := 0
	stack := []IndexableNode{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		if limit > 0 && report.Documents >= limit {
			return indexed, errLimitReached
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := indexer.Index(ctx, node, c); err != nil {
			return indexed, err
		}
		indexed++
		report.Documents++

		children, err := t.source.Children(ctx, node, c)
		if err != nil {
			return indexed, fmt.Errorf("failed to load children of %s: %w", node.Path(), err)
		}
		for _, child := range slices.Backward(children) {
			stack = append(stack, child)
		}
	}
	return indexed, nil
}

// Combinations returns the cartesian product of the presets of every
// dimension. Each combination maps a dimension to the values of one of its
// presets. Without presets there is a single, empty combination.
//
// Dimensions and presets are ordered by name.
func Combinations(presets treesearch.DimensionPresetSource) []map[string][]string {
	combinations := []map[string][]string{{}}
	if presets == nil {
		return combinations
	}

	all := presets.AllPresets()
	for _, dimension := range slices.Sorted(maps.Keys(all)) {
		names := slices.Sorted(maps.Keys(all[dimension].Presets))
		if len(names) == 0 {
			continue
		}

		next := make([]map[string][]string, 0, len(combinations)*len(names))
		for _, base := range combinations {
			for _, name := range names {
				combination := maps.Clone(base)
				combination[dimension] = slices.Clone(all[dimension].Presets[name].Values)
				next = append(next, combination)
			}
		}
		combinations = next
	}
	return combinations
}
