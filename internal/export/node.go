package export

import (
	"maps"
	"strings"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/indexing"
)

// Node is an exported node bound to the context it was loaded in.
type Node struct {
	entry   *entry
	context treesearch.Context
}

func (n *Node) Identifier() string {
	return n.entry.ID
}

func (n *Node) Path() string {
	return n.entry.path
}

// Name returns the last path segment.
func (n *Node) Name() string {
	return n.entry.Name
}

func (n *Node) Context() treesearch.Context {
	return n.context
}

func (n *Node) TypeAndSupertypes() []string {
	return n.entry.Types
}

func (n *Node) Properties() map[string]any {
	return maps.Clone(n.entry.Properties)
}

func (n *Node) Fulltext() map[string]string {
	return n.entry.Fulltext
}

func (n *Node) Visibility() indexing.Visibility {
	return indexing.Visibility{
		Hidden:       n.entry.Hidden,
		HiddenBefore: n.entry.HiddenBefore,
		HiddenAfter:  n.entry.HiddenAfter,
		AccessRoles:  n.entry.AccessRoles,
	}
}

// Assets returns the inline assets of the node as bytes.
func (n *Node) Assets() map[string]any {
	if len(n.entry.Assets) == 0 {
		return nil
	}

	assets := make(map[string]any, len(n.entry.Assets))
	for name, content := range n.entry.Assets {
		assets[name] = strings.NewReader(content)
	}
	return assets
}
