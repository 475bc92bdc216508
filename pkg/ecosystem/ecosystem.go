package ecosystem

import (
	"fmt"
	"strings"

	"github.com/matzehuels/forcetree/pkg/errors"
)

// PathSeparator joins ancestor ids in [Node.Path].
const PathSeparator = "/"

// Data is one entry of the input tree, as read from JSON or TOML.
type Data struct {
	ID       string  `json:"id" toml:"id"`
	Name     string  `json:"name,omitempty" toml:"name,omitempty"`
	Type     string  `json:"type,omitempty" toml:"type,omitempty"`
	Children []*Data `json:"children,omitempty" toml:"children,omitempty"`
}

// Node is an entry of a built hierarchy.
//
// Nodes are created by [Build] and are read-only afterwards: renderers keep
// their own per-node state in side tables keyed by [Node.Index].
type Node struct {
	Data     *Data
	Depth    int // 0 for the root
	Parent   *Node
	Children []*Node

	index int
}

// Link is a parent-child edge of the hierarchy.
type Link struct {
	Source *Node // parent
	Target *Node // child
}

// Index returns the position of the node in its root's [Node.Descendants].
func (n *Node) Index() int { return n.index }

// ID returns the node's identifier.
func (n *Node) ID() string { return n.Data.ID }

// Type returns the node's type, used as a class name by renderers.
func (n *Node) Type() string { return n.Data.Type }

// DisplayName returns the node's name, falling back to its id.
func (n *Node) DisplayName() string {
	if n.Data.Name != "" {
		return n.Data.Name
	}
	return n.Data.ID
}

// Build validates root and returns the hierarchy rooted at it.
//
// The input is not modified. Every returned error carries the
// INVALID_ECOSYSTEM code and names the offending entry by its path.
func Build(root *Data) (*Node, error) {
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidEcosystem, "ecosystem root is nil")
	}

	b := builder{onPath: make(map[*Data]bool)}
	n, err := b.build(root, nil, 0, "")
	if err != nil {
		return nil, err
	}

	for i, d := range n.Descendants() {
		d.index = i
	}
	return n, nil
}

type builder struct {
	onPath map[*Data]bool
}

func (b *builder) build(d *Data, parent *Node, depth int, prefix string) (*Node, error) {
	if err := errors.ValidateNodeID(d.ID); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidEcosystem, err, "entry under %q", displayPrefix(prefix))
	}
	path := d.ID
	if prefix != "" {
		path = prefix + PathSeparator + d.ID
	}
	if err := errors.ValidateClassName(d.Type); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidEcosystem, err, "entry %q", path)
	}
	if b.onPath[d] {
		return nil, errors.New(errors.ErrCodeInvalidEcosystem, "cyclic ancestry at %q", path)
	}

	b.onPath[d] = true
	defer delete(b.onPath, d)

	n := &Node{Data: d, Depth: depth, Parent: parent}
	if len(d.Children) > 0 {
		n.Children = make([]*Node, 0, len(d.Children))
	}
	for i, c := range d.Children {
		if c == nil {
			return nil, errors.New(errors.ErrCodeInvalidEcosystem, "entry %q has a nil child at position %d", path, i)
		}
		child, err := b.build(c, n, depth+1, path)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func displayPrefix(prefix string) string {
	if prefix == "" {
		return "<root>"
	}
	return prefix
}

// Descendants returns n and all nodes below it in breadth-first order.
func (n *Node) Descendants() []*Node {
	out := []*Node{n}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].Children...)
	}
	return out
}

// Links returns the parent-child edges below n, ordered by the child's
// position in [Node.Descendants].
func (n *Node) Links() []Link {
	var links []Link
	for _, d := range n.Descendants() {
		if d == n {
			continue
		}
		links = append(links, Link{Source: d.Parent, Target: d})
	}
	return links
}

// Ancestors returns n followed by its parent, grandparent and so on up to
// the root of the hierarchy.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

// Path returns the ids from the root down to n joined by [PathSeparator],
// e.g. "root/lib/util".
func (n *Node) Path() string {
	anc := n.Ancestors()
	ids := make([]string, len(anc))
	for i, a := range anc {
		ids[len(anc)-1-i] = a.Data.ID
	}
	return strings.Join(ids, PathSeparator)
}

// Find returns the first node in breadth-first order whose path equals path.
func (n *Node) Find(path string) (*Node, bool) {
	for _, d := range n.Descendants() {
		if d.Path() == path {
			return d, true
		}
	}
	return nil, false
}

// Stats summarizes a hierarchy.
type Stats struct {
	Nodes    int
	Links    int
	MaxDepth int
	Types    map[string]int
}

// Stats counts the nodes, links, depth and types below n.
func (n *Node) Stats() Stats {
	s := Stats{Types: make(map[string]int)}
	for _, d := range n.Descendants() {
		s.Nodes++
		if d.Depth-n.Depth > s.MaxDepth {
			s.MaxDepth = d.Depth - n.Depth
		}
		if d.Data.Type != "" {
			s.Types[d.Data.Type]++
		}
	}
	s.Links = s.Nodes - 1
	return s
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("%s (depth %d)", n.Path(), n.Depth)
}
