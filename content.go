package treesearch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// LiveWorkspace is the name of the base workspace every other workspace
// eventually falls back to.
const LiveWorkspace = "live"

// Node is a content-tree entity referenced by a search result.
//
// Nodes are owned by the content repository; treesearch only reads their
// identifier and path.
type Node interface {
	Identifier() string
	Path() string
}

// ContextNode is a node bound to the workspace and dimension selection it was
// loaded in. Binding a query to a ContextNode restricts it to the node's
// descendants in that context.
type ContextNode interface {
	Node
	Context() Context
}

// Workspace is a named overlay of tree content, chained onto a base workspace.
type Workspace interface {
	Name() string
	BaseWorkspace() Workspace
}

// Context is the workspace and dimension selection a node was resolved in.
type Context interface {
	Workspace() Workspace
	Dimensions() map[string][]string
}

// TreeResolver resolves an indexed node path to a live node.
//
// A resolver returns a nil node, or an error wrapping ErrNodeNotFound, when
// the path no longer exists or is not accessible in the given context.
type TreeResolver interface {
	Resolve(ctx context.Context, path string, c Context) (Node, error)
}

// DimensionPreset is one selectable value set of a content dimension.
type DimensionPreset struct {
	Label  string   `json:"label,omitempty" yaml:"label"`
	Values []string `json:"values" yaml:"values"`
}

// DimensionPresets is the preset configuration of a single content dimension.
type DimensionPresets struct {
	Default string                     `json:"default,omitempty" yaml:"default"`
	Presets map[string]DimensionPreset `json:"presets" yaml:"presets"`
}

// DimensionPresetSource exposes the configured presets of every dimension.
type DimensionPresetSource interface {
	AllPresets() map[string]DimensionPresets
}

// WorkspaceDepth returns the number of workspaces in the chain starting at
// ws, including ws itself. The live workspace has a depth of 1, a workspace
// based on live has a depth of 2 and so on. A nil workspace counts as 1.
func WorkspaceDepth(ws Workspace) int {
	depth := 0
	for w := ws; w != nil; w = w.BaseWorkspace() {
		depth++
	}

	if depth == 0 {
		return 1
	}
	return depth
}

// DimensionHash returns the fingerprint of a dimension combination.
//
// The same hash is written to every indexed document and matched by a query
// bound to a context, so both sides must agree on it. Map keys are encoded in
// sorted order, which makes the hash independent of map iteration order.
func DimensionHash(dimensions map[string][]string) string {
	if dimensions == nil {
		dimensions = map[string][]string{}
	}

	data, _ := json.Marshal(dimensions)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

type workspace struct {
	name string
	base Workspace
}

// NewWorkspace returns a workspace named name on top of base. Pass a nil base
// for the live workspace.
//
// Example:
//
//	live := treesearch.NewWorkspace(treesearch.LiveWorkspace, nil)
//	user := treesearch.NewWorkspace("user-admin", live)
func NewWorkspace(name string, base Workspace) Workspace {
	return &workspace{name: name, base: base}
}

func (w *workspace) Name() string {
	return w.name
}

func (w *workspace) BaseWorkspace() Workspace {
	return w.base
}

type staticContext struct {
	workspace  Workspace
	dimensions map[string][]string
}

// NewContext returns a Context for a workspace and dimension selection.
//
// Example:
//
//	c := treesearch.NewContext(
//	    treesearch.NewWorkspace(treesearch.LiveWorkspace, nil),
//	    map[string][]string{"language": {"en_US"}},
//	)
func NewContext(ws Workspace, dimensions map[string][]string) Context {
	return &staticContext{workspace: ws, dimensions: dimensions}
}

func (c *staticContext) Workspace() Workspace {
	return c.workspace
}

func (c *staticContext) Dimensions() map[string][]string {
	return c.dimensions
}
