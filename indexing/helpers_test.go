package indexing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/reveald/treesearch"
)

type fakeNode struct {
	id         string
	path       string
	types      []string
	props      map[string]any
	fulltext   map[string]string
	visibility Visibility
	assets     map[string]any
}

func (n *fakeNode) Identifier() string          { return n.id }
func (n *fakeNode) Path() string                { return n.path }
func (n *fakeNode) TypeAndSupertypes() []string { return n.types }
func (n *fakeNode) Properties() map[string]any  { return n.props }
func (n *fakeNode) Fulltext() map[string]string { return n.fulltext }
func (n *fakeNode) Visibility() Visibility      { return n.visibility }

type assetNode struct {
	*fakeNode
}

func (n assetNode) Assets() map[string]any { return n.fakeNode.assets }

func node(path string) *fakeNode {
	return &fakeNode{
		id:    strings.ReplaceAll(strings.Trim(path, "/"), "/", "-"),
		path:  path,
		types: []string{"page"},
	}
}

// fakeSource serves the same tree in every context.
type fakeSource struct {
	workspaces []treesearch.Workspace
	root       string
	children   map[string][]string
	rootErr    error

	mu      sync.Mutex
	flushes int
}

func (s *fakeSource) Workspaces(context.Context) ([]treesearch.Workspace, error) {
	return s.workspaces, nil
}

func (s *fakeSource) Root(context.Context, treesearch.Context) (IndexableNode, error) {
	if s.rootErr != nil {
		return nil, s.rootErr
	}
	return node(s.root), nil
}

func (s *fakeSource) Children(_ context.Context, n IndexableNode, _ treesearch.Context) ([]IndexableNode, error) {
	var nodes []IndexableNode
	for _, p := range s.children[n.Path()] {
		nodes = append(nodes, node(p))
	}
	return nodes, nil
}

func (s *fakeSource) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

type fakePresets map[string]treesearch.DimensionPresets

func (p fakePresets) AllPresets() map[string]treesearch.DimensionPresets { return p }

type indexed struct {
	path       string
	workspace  string
	dimensions map[string][]string
}

func (i indexed) String() string {
	return fmt.Sprintf("%s@%s%v", i.path, i.workspace, i.dimensions)
}

// recordingIndexer records what it is handed instead of sending it.
type recordingIndexer struct {
	indexed []indexed
	removed []string
	flushes int
	flag    Flag
	running []bool
	err     error
}

func (r *recordingIndexer) Index(ctx context.Context, n IndexableNode, c treesearch.Context) error {
	if r.err != nil {
		return r.err
	}
	if r.flag != nil {
		running, _ := r.flag.Get(ctx)
		r.running = append(r.running, running)
	}
	r.indexed = append(r.indexed, indexed{
		path:       n.Path(),
		workspace:  c.Workspace().Name(),
		dimensions: c.Dimensions(),
	})
	return nil
}

func (r *recordingIndexer) Remove(_ context.Context, n treesearch.Node, _ treesearch.Context) error {
	r.removed = append(r.removed, n.Path())
	return nil
}

func (r *recordingIndexer) Flush(context.Context) error {
	r.flushes++
	return nil
}

func (r *recordingIndexer) paths() []string {
	var paths []string
	for _, i := range r.indexed {
		paths = append(paths, i.path)
	}
	return paths
}

func liveContext(dims map[string][]string) treesearch.Context {
	return treesearch.NewContext(treesearch.NewWorkspace(treesearch.LiveWorkspace, nil), dims)
}
