package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/indexing"
)

const demo = `
presets:
  language:
    default: en
    presets:
      en: {label: English, values: [en_US, en]}
      sv: {label: Swedish, values: [sv_SE]}
workspaces:
  - name: user-admin
    base: live
  - name: live
root:
  name: sites
  type: [folder]
  children:
    - id: news
      name: news
      type: [article, page]
      properties: {title: News, priority: 3}
      fulltext: {title: News}
      access_roles: [editor]
      children:
        - id: draft
          name: draft
          workspace: user-admin
    - id: nyheter
      name: nyheter
      dimensions: {language: [sv_SE]}
      assets: {attachment: hej}
`

func loadDemo(t *testing.T, opts ...Option) *Export {
	t.Helper()
	e, err := Parse([]byte(demo), opts...)
	require.NoError(t, err)
	return e
}

func contextFor(e *Export, workspace string, dims map[string][]string) treesearch.Context {
	ws, _ := e.Workspace(workspace)
	return treesearch.NewContext(ws, dims)
}

func Test_ParseWorkspaces(t *testing.T) {
	e := loadDemo(t)

	workspaces, err := e.Workspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, workspaces, 2)

	assert.Equal(t, "live", workspaces[0].Name())
	assert.Equal(t, "user-admin", workspaces[1].Name())
	assert.Equal(t, 2, treesearch.WorkspaceDepth(workspaces[1]))
	assert.Equal(t, []string{"en_US", "en"}, e.AllPresets()["language"].Presets["en"].Values)
}

func Test_ParseErrors(t *testing.T) {
	table := []struct {
		name string
		data string
	}{
		{"invalid yaml", "root: [\n"},
		{"no root", "workspaces: [{name: live}]"},
		{"unknown base", "workspaces: [{name: a, base: b}]\nroot: {name: sites}"},
		{"unknown node workspace", "root: {name: sites, workspace: missing}"},
		{"unnamed node", "root: {name: sites, children: [{id: x}]}"},
		{"duplicate path", "root: {name: sites, children: [{name: a}, {name: a}]}"},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func Test_Load(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(demo), 0o600))

	e, err := Load(filename)
	require.NoError(t, err)
	assert.NotNil(t, e)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func Test_Resolve(t *testing.T) {
	e := loadDemo(t)
	ctx := context.Background()

	table := []struct {
		name      string
		path      string
		workspace string
		dims      map[string][]string
		found     bool
	}{
		{"root", "/sites", "live", nil, true},
		{"live child", "/sites/news", "live", nil, true},
		{"workspace only in live", "/sites/news/draft", "live", nil, false},
		{"workspace only in chain", "/sites/news/draft", "user-admin", nil, true},
		{"dimension match", "/sites/nyheter", "live", map[string][]string{"language": {"sv_SE"}}, true},
		{"dimension mismatch", "/sites/nyheter", "live", map[string][]string{"language": {"en_US", "en"}}, false},
		{"unrestricted context", "/sites/nyheter", "live", map[string][]string{}, true},
		{"missing", "/sites/gone", "live", nil, false},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			n, err := e.Resolve(ctx, tt.path, contextFor(e, tt.workspace, tt.dims))
			if !tt.found {
				assert.ErrorIs(t, err, treesearch.ErrNodeNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, n.Path())
			assert.Equal(t, tt.workspace, n.(treesearch.ContextNode).Context().Workspace().Name())
		})
	}
}

func Test_Node(t *testing.T) {
	e := loadDemo(t)
	c := contextFor(e, "live", map[string][]string{"language": {"sv_SE"}})

	n, err := e.Resolve(context.Background(), "/sites/news", c)
	require.NoError(t, err)

	node := n.(*Node)
	assert.Equal(t, "news", node.Identifier())
	assert.Equal(t, "news", node.Name())
	assert.Equal(t, []string{"article", "page"}, node.TypeAndSupertypes())
	assert.Equal(t, map[string]any{"title": "News", "priority": 3}, node.Properties())
	assert.Equal(t, map[string]string{"title": "News"}, node.Fulltext())
	assert.Equal(t, []string{"editor"}, node.Visibility().AccessRoles)
	assert.Nil(t, node.Assets())

	root, err := e.Resolve(context.Background(), "/sites", c)
	require.NoError(t, err)
	assert.Equal(t, "sites", root.Identifier(), "identifier defaults to the name")

	n, err = e.Resolve(context.Background(), "/sites/nyheter", c)
	require.NoError(t, err)
	asset, ok := n.(*Node).Assets()["attachment"].(io.Reader)
	require.True(t, ok)
	data, err := io.ReadAll(asset)
	require.NoError(t, err)
	assert.Equal(t, "hej", string(data))
}

func Test_Traversal(t *testing.T) {
	e := loadDemo(t)
	ctx := context.Background()

	table := []struct {
		name      string
		workspace string
		dims      map[string][]string
		expected  []string
	}{
		{"live english", "live", map[string][]string{"language": {"en_US", "en"}}, []string{"/sites", "/sites/news"}},
		{"live swedish", "live", map[string][]string{"language": {"sv_SE"}}, []string{"/sites", "/sites/news", "/sites/nyheter"}},
		{"user-admin english", "user-admin", map[string][]string{"language": {"en_US", "en"}}, []string{"/sites", "/sites/news", "/sites/news/draft"}},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			c := contextFor(e, tt.workspace, tt.dims)

			root, err := e.Root(ctx, c)
			require.NoError(t, err)

			var paths []string
			var walk func(n indexing.IndexableNode)
			walk = func(n indexing.IndexableNode) {
				paths = append(paths, n.Path())
				children, err := e.Children(ctx, n, c)
				require.NoError(t, err)
				for _, child := range children {
					walk(child)
				}
			}
			walk(root)

			assert.Equal(t, tt.expected, paths)
		})
	}
}

func Test_Cache(t *testing.T) {
	e := loadDemo(t, WithCacheSize(2))
	ctx := context.Background()
	c := contextFor(e, "live", nil)

	first, err := e.Resolve(ctx, "/sites/news", c)
	require.NoError(t, err)
	second, err := e.Resolve(ctx, "/sites/news", c)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := e.Resolve(ctx, "/sites/news", contextFor(e, "user-admin", nil))
	require.NoError(t, err)
	assert.NotSame(t, first, other)

	_, _ = e.Resolve(ctx, "/sites", c)
	assert.Equal(t, 2, e.Cached())

	e.Flush()
	assert.Zero(t, e.Cached())

	third, err := e.Resolve(ctx, "/sites/news", c)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}
