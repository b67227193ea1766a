// Package export reads a content tree exported to YAML and serves it to the
// query and indexing sides.
//
// An export looks like:
//
//	presets:
//	  language:
//	    default: en
//	    presets:
//	      en: {label: English, values: [en_US, en]}
//	      sv: {label: Swedish, values: [sv_SE]}
//	workspaces:
//	  - name: live
//	  - name: user-admin
//	    base: live
//	root:
//	  id: sites
//	  name: sites
//	  type: [folder]
//	  children:
//	    - id: news
//	      name: news
//	      type: [article, page]
//	      workspace: user-admin
//	      dimensions: {language: [sv_SE]}
//	      properties: {title: Nyheter}
//	      fulltext: {title: Nyheter}
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/indexing"
)

const defaultCacheSize = 10000

type file struct {
	Presets    map[string]treesearch.DimensionPresets `yaml:"presets"`
	Workspaces []workspaceEntry                       `yaml:"workspaces"`
	Root       *entry                                 `yaml:"root"`
}

type workspaceEntry struct {
	Name string `yaml:"name"`
	Base string `yaml:"base"`
}

type entry struct {
	ID           string              `yaml:"id"`
	Name         string              `yaml:"name"`
	Types        []string            `yaml:"type"`
	Workspace    string              `yaml:"workspace"`
	Dimensions   map[string][]string `yaml:"dimensions"`
	Properties   map[string]any      `yaml:"properties"`
	Fulltext     map[string]string   `yaml:"fulltext"`
	Hidden       bool                `yaml:"hidden"`
	HiddenBefore *time.Time          `yaml:"hidden_before"`
	HiddenAfter  *time.Time          `yaml:"hidden_after"`
	AccessRoles  []string            `yaml:"access_roles"`
	Assets       map[string]string   `yaml:"assets"`
	Children     []*entry            `yaml:"children"`

	path   string
	parent *entry
}

// Export is a loaded content tree.
type Export struct {
	presets    map[string]treesearch.DimensionPresets
	workspaces []treesearch.Workspace
	byName     map[string]treesearch.Workspace
	root       *entry
	byPath     map[string]*entry
	cache      *lru.Cache[string, *Node]
}

// Option configures an Export.
type Option func(*settings)

type settings struct {
	cacheSize int
}

// WithCacheSize sets how many resolved nodes are cached.
func WithCacheSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// Load reads the export at filename.
func Load(filename string, opts ...Option) (*Export, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return Parse(data, opts...)
}

// Parse parses an export.
func Parse(data []byte, opts ...Option) (*Export, error) {
	s := &settings{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(s)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	if f.Root == nil {
		return nil, errors.New("export has no root node")
	}

	cache, err := lru.New[string, *Node](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create node cache: %w", err)
	}

	e := &Export{
		presets: f.Presets,
		byName:  make(map[string]treesearch.Workspace),
		root:    f.Root,
		byPath:  make(map[string]*entry),
		cache:   cache,
	}

	if err := e.loadWorkspaces(f.Workspaces); err != nil {
		return nil, err
	}
	if err := e.index(f.Root, nil); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Export) loadWorkspaces(entries []workspaceEntry) error {
	if len(entries) == 0 {
		entries = []workspaceEntry{{Name: treesearch.LiveWorkspace}}
	}

	pending := slices.Clone(entries)
	for len(pending) > 0 {
		progress := false
		for i := 0; i < len(pending); i++ {
			w := pending[i]

			var base treesearch.Workspace
			if w.Base != "" {
				b, ok := e.byName[w.Base]
				if !ok {
					continue
				}
				base = b
			}

			ws := treesearch.NewWorkspace(w.Name, base)
			e.byName[w.Name] = ws
			e.workspaces = append(e.workspaces, ws)

			pending = slices.Delete(pending, i, i+1)
			i--
			progress = true
		}

		if !progress {
			return fmt.Errorf("workspace %q has an unknown or cyclic base %q", pending[0].Name, pending[0].Base)
		}
	}
	return nil
}

func (e *Export) index(n *entry, parent *entry) error {
	if n.Name == "" {
		return errors.New("export contains a node without a name")
	}
	if n.ID == "" {
		n.ID = n.Name
	}
	if n.Workspace == "" {
		n.Workspace = treesearch.LiveWorkspace
	}
	if _, ok := e.byName[n.Workspace]; !ok {
		return fmt.Errorf("node %q belongs to unknown workspace %q", n.Name, n.Workspace)
	}

	n.parent = parent
	if parent == nil {
		n.path = "/" + n.Name
	} else {
		n.path = path.Join(parent.path, n.Name)
	}

	if _, dup := e.byPath[n.path]; dup {
		return fmt.Errorf("duplicate node path %s", n.path)
	}
	e.byPath[n.path] = n

	for _, child := range n.Children {
		if err := e.index(child, n); err != nil {
			return err
		}
	}
	return nil
}

// AllPresets implements treesearch.DimensionPresetSource.
func (e *Export) AllPresets() map[string]treesearch.DimensionPresets {
	return e.presets
}

// Workspaces returns every workspace, bases first.
func (e *Export) Workspaces(context.Context) ([]treesearch.Workspace, error) {
	return e.workspaces, nil
}

// Workspace returns a workspace by name.
func (e *Export) Workspace(name string) (treesearch.Workspace, bool) {
	ws, ok := e.byName[name]
	return ws, ok
}

// Root returns the root node as seen in c.
func (e *Export) Root(ctx context.Context, c treesearch.Context) (indexing.IndexableNode, error) {
	n, err := e.node(e.root, c)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Children returns the children of node visible in c, in export order.
func (e *Export) Children(_ context.Context, node indexing.IndexableNode, c treesearch.Context) ([]indexing.IndexableNode, error) {
	parent, ok := e.byPath[node.Path()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", node.Path(), treesearch.ErrNodeNotFound)
	}

	var children []indexing.IndexableNode
	for _, child := range parent.Children {
		n, err := e.node(child, c)
		if errors.Is(err, treesearch.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return children, nil
}

// Resolve implements treesearch.TreeResolver. Nodes are visible when they
// and all their ancestors are visible in c.
func (e *Export) Resolve(_ context.Context, p string, c treesearch.Context) (treesearch.Node, error) {
	n, ok := e.byPath[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, treesearch.ErrNodeNotFound)
	}

	for a := n.parent; a != nil; a = a.parent {
		if !visible(a, c) {
			return nil, fmt.Errorf("%s: %w", p, treesearch.ErrNodeNotFound)
		}
	}

	return e.node(n, c)
}

// Flush drops all cached nodes.
func (e *Export) Flush() {
	e.cache.Purge()
}

// Cached returns the number of cached nodes.
func (e *Export) Cached() int {
	return e.cache.Len()
}

func (e *Export) node(n *entry, c treesearch.Context) (*Node, error) {
	if !visible(n, c) {
		return nil, fmt.Errorf("%s: %w", n.path, treesearch.ErrNodeNotFound)
	}

	key := cacheKey(n.path, c)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}

	node := &Node{entry: n, context: c}
	e.cache.Add(key, node)
	return node, nil
}

func cacheKey(p string, c treesearch.Context) string {
	ws := treesearch.LiveWorkspace
	var dims map[string][]string
	if c != nil {
		if c.Workspace() != nil {
			ws = c.Workspace().Name()
		}
		dims = c.Dimensions()
	}
	return ws + "|" + treesearch.DimensionHash(dims) + "|" + p
}

// visible reports whether n exists in the workspace chain of c and matches
// its dimension selection. A dimension the node or the context does not
// restrict matches everything.
func visible(n *entry, c treesearch.Context) bool {
	if c == nil || c.Workspace() == nil {
		return n.Workspace == treesearch.LiveWorkspace && len(n.Dimensions) == 0
	}

	inChain := false
	for ws := c.Workspace(); ws != nil; ws = ws.BaseWorkspace() {
		if ws.Name() == n.Workspace {
			inChain = true
			break
		}
	}
	if !inChain {
		return false
	}

	for dimension, values := range n.Dimensions {
		selected, ok := c.Dimensions()[dimension]
		if !ok || len(selected) == 0 {
			continue
		}
		if !slices.ContainsFunc(values, func(v string) bool { return slices.Contains(selected, v) }) {
			return false
		}
	}
	return true
}
