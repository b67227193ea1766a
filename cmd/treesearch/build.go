package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/indexing"
	"github.com/reveald/treesearch/internal/logger"
)

func newBuildCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build [limit] [update] [workspace] [postfix]",
		Short: "Index the content tree into a new index generation",
		Long: `Index every node of every workspace and dimension combination.

A new index generation named <alias>-<postfix> is created and the alias is
pointed at it when the build succeeds. The previous generation is kept until
cleanup runs. With update set to true the documents are written into the
generation the alias points at instead.

  limit      stop after this many documents, 0 indexes everything
  update     true to write into the current generation
  workspace  only index this workspace
  postfix    generation name postfix, defaults to the current unix time`,
		Args: cobra.MaximumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseBuildArgs(args)
			if err != nil {
				return err
			}
			return a.build(cmd, opts)
		},
	}
}

func parseBuildArgs(args []string) (indexing.BuildOptions, error) {
	var opts indexing.BuildOptions

	if len(args) > 0 && args[0] != "" {
		limit, err := strconv.Atoi(args[0])
		if err != nil || limit < 0 {
			return opts, fmt.Errorf("invalid limit %q", args[0])
		}
		opts.Limit = limit
	}
	if len(args) > 1 && args[1] != "" {
		update, err := strconv.ParseBool(args[1])
		if err != nil {
			return opts, fmt.Errorf("invalid update flag %q", args[1])
		}
		opts.Update = update
	}
	if len(args) > 2 {
		opts.Workspace = args[2]
	}
	if len(args) > 3 {
		opts.Postfix = args[3]
	}
	return opts, nil
}

func (a *app) build(cmd *cobra.Command, opts indexing.BuildOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	backend, err := a.backend()
	if err != nil {
		return err
	}

	indexingOpts, err := a.indexingOptions(ctx)
	if err != nil {
		return err
	}
	indexingOpts = append(indexingOpts,
		indexing.WithWorkspaceCallback(func(ctx context.Context, ws treesearch.Workspace) {
			logger.FromContext(ctx).Info("indexing workspace", zap.String("workspace", ws.Name()))
		}),
		indexing.WithCombinationCallback(func(_ context.Context, c treesearch.Context, indexed int) {
			fmt.Fprintf(out, "%s %s: %d nodes\n", c.Workspace().Name(), describeDimensions(c.Dimensions()), indexed)
		}),
	)

	manager := indexing.NewManager(backend.Transport(), a.cfg.Elasticsearch.Alias, indexingOpts...)
	traversal := indexing.NewTraversal(a.content, a.content, manager, indexingOpts...)

	report, err := traversal.Build(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "indexed %d documents in %d combinations into %s (%s)\n",
		report.Documents, report.Combinations, report.Index, report.Duration.Round(time.Millisecond))
	if report.LimitReached {
		fmt.Fprintf(out, "stopped at limit %d\n", opts.Limit)
	}
	if report.Swapped {
		fmt.Fprintf(out, "alias %s now points at %s\n", manager.Alias(), report.Index)
	}
	return nil
}

func describeDimensions(dims map[string][]string) string {
	if len(dims) == 0 {
		return "(no dimensions)"
	}

	parts := make([]string, 0, len(dims))
	for _, name := range sortedKeys(dims) {
		parts = append(parts, name+"="+strings.Join(dims[name], ","))
	}
	return strings.Join(parts, " ")
}
