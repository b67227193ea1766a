package main

import (
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/featureset"
)

type searchOptions struct {
	path       string
	workspace  string
	dimensions []string
	params     []string
	nodeType   string
	facets     []string
	pageSize   int
	count      bool
	log        bool
}

func newSearchCommand(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the nodes below a context node",
		Long: `Search the indexed nodes below a context node.

Examples:
  treesearch search news
  treesearch search --workspace user-admin --dimension language=sv_SE nyheter
  treesearch search --type article --facet category --param category=press
  treesearch search --param offset=24 --param size=24 report`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return a.search(cmd, query, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.path, "path", "", "context node path (default the root node)")
	flags.StringVarP(&opts.workspace, "workspace", "w", treesearch.LiveWorkspace, "workspace to search in")
	flags.StringArrayVarP(&opts.dimensions, "dimension", "d", nil, "dimension value as name=value, repeatable")
	flags.StringArrayVarP(&opts.params, "param", "p", nil, "request parameter as name=value, repeatable")
	flags.StringVarP(&opts.nodeType, "type", "t", "", "only return nodes of this type")
	flags.StringSliceVarP(&opts.facets, "facet", "f", nil, "properties to facet on")
	flags.IntVar(&opts.pageSize, "size", 10, "default page size")
	flags.BoolVar(&opts.count, "count", false, "only print the number of matching documents")
	flags.BoolVar(&opts.log, "log", false, "log the search request and response")

	return cmd
}

func (a *app) search(cmd *cobra.Command, query string, opts *searchOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	dims, err := parseAssignments(opts.dimensions)
	if err != nil {
		return err
	}
	params, err := parseAssignments(opts.params)
	if err != nil {
		return err
	}
	if query != "" {
		params.Add("q", query)
	}

	ws, ok := a.content.Workspace(opts.workspace)
	if !ok {
		return fmt.Errorf("unknown workspace %q", opts.workspace)
	}
	c := treesearch.NewContext(ws, withDefaultDimensions(dims, a.content.AllPresets()))

	path := opts.path
	if path == "" {
		root, err := a.content.Root(ctx, c)
		if err != nil {
			return err
		}
		path = root.Path()
	}

	resolved, err := a.content.Resolve(ctx, path, c)
	if err != nil {
		return err
	}
	node, ok := resolved.(treesearch.ContextNode)
	if !ok {
		return fmt.Errorf("%s is not bound to a context", path)
	}

	backend, err := a.backend()
	if err != nil {
		return err
	}

	features := []treesearch.Feature{
		featureset.NewFulltextFeature(),
	}
	if opts.nodeType != "" {
		features = append(features, featureset.NewNodeTypeFeature(opts.nodeType))
	}
	for _, dimension := range sortedKeys(a.content.AllPresets()) {
		features = append(features, featureset.NewDimensionFeature(dimension, dimension))
	}
	for _, property := range opts.facets {
		features = append(features, featureset.NewFacetFeature(property))
	}
	features = append(features, featureset.NewPaginationFeature(featureset.WithPageSize(opts.pageSize)))
	if opts.log {
		features = append(features, logFeature{message: "cli search"})
	}

	request := treesearch.NewRequestFromValues(params)

	result, err := treesearch.NewEndpoint(backend, features...).Execute(ctx, node, request)
	if err != nil {
		return err
	}

	if opts.count {
		n, err := result.Count()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, n)
		return nil
	}

	printResult(out, result)
	return nil
}

func printResult(out io.Writer, result *treesearch.Result) {
	for i, n := range result.All() {
		fmt.Fprintf(out, "%3d. %s\t%s\n", result.Pagination.Offset+i+1, n.Path(), n.Identifier())
	}
	fmt.Fprintf(out, "%d of %d documents (%s)\n", result.AccessibleCount(), result.Total(), result.Duration.Round(time.Millisecond))

	for _, name := range sortedKeys(result.Buckets) {
		fmt.Fprintf(out, "%s:\n", name)
		for _, b := range result.Buckets[name] {
			fmt.Fprintf(out, "  %v (%d)\n", b.Value, b.HitCount)
		}
	}
}

// logFeature enables request logging for a search.
type logFeature struct {
	message string
}

func (f logFeature) Process(qb *treesearch.QueryBuilder, next treesearch.FeatureFunc) (*treesearch.Result, error) {
	qb.Log(f.message)
	return next(qb)
}

// withDefaultDimensions fills in the default preset of every dimension
// missing from dims.
func withDefaultDimensions(dims map[string][]string, presets map[string]treesearch.DimensionPresets) map[string][]string {
	for name, p := range presets {
		if _, ok := dims[name]; ok || p.Default == "" {
			continue
		}
		if preset, ok := p.Presets[p.Default]; ok {
			dims[name] = slices.Clone(preset.Values)
		}
	}
	return dims
}

func parseAssignments(assignments []string) (url.Values, error) {
	values := url.Values{}
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", a)
		}
		values.Add(name, value)
	}
	return values, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
