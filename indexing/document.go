package indexing

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"path"
	"strings"
	"time"

	"github.com/reveald/treesearch"
)

// Visibility controls when and for whom an indexed node is returned.
type Visibility struct {
	Hidden       bool
	HiddenBefore *time.Time
	HiddenAfter  *time.Time
	AccessRoles  []string
}

// IndexableNode is a node that can be turned into a search document.
type IndexableNode interface {
	treesearch.Node
	TypeAndSupertypes() []string
	Properties() map[string]any
	Fulltext() map[string]string
	Visibility() Visibility
}

// AssetNode is implemented by nodes carrying binary assets. Every asset is
// indexed base64 encoded under its name.
type AssetNode interface {
	Assets() map[string]any
}

// Asset is a binary asset that is read on demand.
type Asset interface {
	Open() (io.ReadCloser, error)
}

// IndexingAssetError is returned when an asset value has an unsupported
// shape or cannot be read.
type IndexingAssetError struct {
	Name  string
	Value any
	Err   error
}

func (e *IndexingAssetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asset %q could not be read: %s", e.Name, e.Err)
	}
	return fmt.Sprintf("asset %q has unsupported type %T", e.Name, e.Value)
}

func (e *IndexingAssetError) Unwrap() error {
	return e.Err
}

// Document is a search document.
type Document map[string]any

// ID returns the document identifier.
func (d Document) ID() string {
	id, _ := d[treesearch.IdentifierField].(string)
	ws, _ := d[treesearch.WorkspaceField].(string)
	hash, _ := d[treesearch.DimensionHashField].(string)
	return DocumentID(id, ws, hash)
}

// DocumentID returns the identifier of the document of a node in a workspace
// and dimension combination. A node has one document per combination.
func DocumentID(identifier, workspace, dimensionHash string) string {
	sum := sha256.Sum256([]byte(identifier + "\x00" + workspace + "\x00" + dimensionHash))
	return hex.EncodeToString(sum[:])
}

// NewDocument builds the document of node as seen in c.
func NewDocument(node IndexableNode, c treesearch.Context) (Document, error) {
	var (
		workspace  = treesearch.LiveWorkspace
		dimensions map[string][]string
	)
	if c != nil {
		if ws := c.Workspace(); ws != nil {
			workspace = ws.Name()
		}
		dimensions = c.Dimensions()
	}
	if dimensions == nil {
		dimensions = map[string][]string{}
	}

	doc := Document{}
	maps.Copy(doc, node.Properties())

	doc[treesearch.IdentifierField] = node.Identifier()
	doc[treesearch.PathField] = node.Path()
	doc[treesearch.ParentPathField] = ParentPaths(node.Path())
	doc[treesearch.TypeAndSupertypesField] = node.TypeAndSupertypes()
	doc[treesearch.WorkspaceField] = workspace
	doc[treesearch.DimensionCombinationsField] = dimensions
	doc[treesearch.DimensionHashField] = treesearch.DimensionHash(dimensions)

	if ft := node.Fulltext(); len(ft) > 0 {
		doc[treesearch.FulltextField] = ft
	}

	v := node.Visibility()
	doc[treesearch.HiddenField] = v.Hidden
	if v.HiddenBefore != nil {
		doc[treesearch.HiddenBeforeDateTimeField] = v.HiddenBefore.UTC().Format(time.RFC3339)
	}
	if v.HiddenAfter != nil {
		doc[treesearch.HiddenAfterDateTimeField] = v.HiddenAfter.UTC().Format(time.RFC3339)
	}
	if len(v.AccessRoles) > 0 {
		doc[treesearch.AccessRolesField] = v.AccessRoles
	}

	if an, ok := node.(AssetNode); ok {
		for name, value := range an.Assets() {
			encoded, err := encodeAsset(name, value)
			if err != nil {
				return nil, err
			}
			doc[name] = encoded
		}
	}

	return doc, nil
}

// ParentPaths returns every ancestor path of p, nearest first. The root has
// no ancestors.
//
//	ParentPaths("/sites/demo/news") // ["/sites/demo", "/sites"]
func ParentPaths(p string) []string {
	p = path.Clean("/" + strings.TrimSpace(p))

	parents := []string{}
	for p != "/" {
		p = path.Dir(p)
		if p == "/" {
			break
		}
		parents = append(parents, p)
	}
	return parents
}

func encodeAsset(name string, value any) (string, error) {
	var data []byte

	switch v := value.(type) {
	case []byte:
		data = v
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return "", &IndexingAssetError{Name: name, Value: value, Err: err}
		}
		data = b
	case Asset:
		r, err := v.Open()
		if err != nil {
			return "", &IndexingAssetError{Name: name, Value: value, Err: err}
		}
		defer r.Close()

		b, err := io.ReadAll(r)
		if err != nil {
			return "", &IndexingAssetError{Name: name, Value: value, Err: err}
		}
		data = b
	default:
		return "", &IndexingAssetError{Name: name, Value: value}
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
