// Package tree holds the in-memory model of a Guacamole connection group
// hierarchy, addressed both by remote identifier and by slash-joined path.
package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
)

const (
	// RootName is the name of the root group and the first segment of every path.
	RootName = "ROOT"

	// Separator joins path segments.
	Separator = "/"
)

// GroupNode is a connection group and its direct children.
type GroupNode struct {
	Name       string
	Identifier string
	// ParentIdentifier is nil only for the root.
	ParentIdentifier  *string
	Type              domain.GroupType
	ActiveConnections int
	Attributes        map[string]string
	Groups            []*GroupNode
	Connections       []*ConnectionNode
}

// ConnectionNode is a connection leaf.
type ConnectionNode struct {
	Name             string
	Identifier       string
	ParentIdentifier string
	Protocol         domain.Protocol
	Attributes       map[string]string
}

// IsRoot reports whether g is the root group.
func (g *GroupNode) IsRoot() bool {
	return g.ParentIdentifier == nil
}

// ChildGroup returns the direct child group with the given name, or nil.
// Matching is exact and case-sensitive.
func (g *GroupNode) ChildGroup(name string) *GroupNode {
	for _, child := range g.Groups {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// ChildConnection returns the direct child connection with the given name, or nil.
func (g *GroupNode) ChildConnection(name string) *ConnectionNode {
	for _, conn := range g.Connections {
		if conn.Name == name {
			return conn
		}
	}
	return nil
}

// Tree is a connection group hierarchy rooted at ROOT.
// A Tree is owned by a single import run and is not safe for concurrent use.
type Tree struct {
	root *GroupNode
	byID map[string]*GroupNode
	// byPath caches full paths; the parent links stay authoritative.
	byPath map[string]*GroupNode
}

// New returns a tree holding only the root group.
func New() *Tree {
	root := &GroupNode{
		Name:       RootName,
		Identifier: domain.RootIdentifier,
		Type:       domain.GroupTypeOrganizational,
		Attributes: map[string]string{},
	}
	return &Tree{
		root:   root,
		byID:   map[string]*GroupNode{root.Identifier: root},
		byPath: map[string]*GroupNode{RootName: root},
	}
}

// Root returns the root group.
func (t *Tree) Root() *GroupNode {
	return t.root
}

// FindGroupByID returns the group with the given identifier.
func (t *Tree) FindGroupByID(id string) (*GroupNode, bool) {
	g, ok := t.byID[id]
	return g, ok
}

// FullPath derives the path of g by following parent links up to the root.
func (t *Tree) FullPath(g *GroupNode) (string, error) {
	var segments []string
	seen := make(map[string]bool)
	for current := g; ; {
		if seen[current.Identifier] {
			return "", fmt.Errorf("%w: cycle through group %q", domain.ErrMalformedHierarchy, current.Identifier)
		}
		seen[current.Identifier] = true
		segments = append(segments, current.Name)
		if current.ParentIdentifier == nil {
			break
		}
		parent, ok := t.byID[*current.ParentIdentifier]
		if !ok {
			return "", fmt.Errorf("%w: group %q references unknown parent %q",
				domain.ErrMalformedHierarchy, current.Identifier, *current.ParentIdentifier)
		}
		current = parent
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, Separator), nil
}

// GroupByPath resolves a normalized path to a group. The path index is
// consulted first; on a miss the tree is walked from the root and the
// result is cached.
func (t *Tree) GroupByPath(path string) (*GroupNode, bool) {
	if g, ok := t.byPath[path]; ok {
		return g, true
	}
	segments := SplitPath(path)
	if len(segments) == 0 || segments[0] != RootName {
		return nil, false
	}
	node := t.root
	for _, name := range segments[1:] {
		node = node.ChildGroup(name)
		if node == nil {
			return nil, false
		}
	}
	t.byPath[path] = node
	return node, true
}

// AppendGroup adds a new child group under parent and registers its path.
func (t *Tree) AppendGroup(parent *GroupNode, rec domain.GroupRecord) (*GroupNode, error) {
	if _, ok := t.byID[parent.Identifier]; !ok {
		return nil, fmt.Errorf("parent group %q: %w", parent.Identifier, domain.ErrNotFound)
	}
	if _, ok := t.byID[rec.Identifier]; ok {
		return nil, fmt.Errorf("group identifier %q: %w", rec.Identifier, domain.ErrAlreadyExists)
	}
	if parent.ChildGroup(rec.Name) != nil {
		return nil, fmt.Errorf("group %q under %q: %w", rec.Name, parent.Identifier, domain.ErrAlreadyExists)
	}

	parentID := parent.Identifier
	groupType := rec.Type
	if groupType == "" {
		groupType = domain.GroupTypeOrganizational
	}
	g := &GroupNode{
		Name:              rec.Name,
		Identifier:        rec.Identifier,
		ParentIdentifier:  &parentID,
		Type:              groupType,
		ActiveConnections: rec.ActiveConnections,
		Attributes:        copyAttributes(rec.Attributes),
	}
	parent.Groups = append(parent.Groups, g)
	t.byID[g.Identifier] = g

	path, err := t.FullPath(g)
	if err != nil {
		return nil, err
	}
	t.byPath[path] = g
	return g, nil
}

// AppendConnection adds a new connection under parent.
func (t *Tree) AppendConnection(parent *GroupNode, rec domain.ConnectionRecord) (*ConnectionNode, error) {
	if _, ok := t.byID[parent.Identifier]; !ok {
		return nil, fmt.Errorf("parent group %q: %w", parent.Identifier, domain.ErrNotFound)
	}
	if parent.ChildConnection(rec.Name) != nil {
		return nil, fmt.Errorf("connection %q under %q: %w", rec.Name, parent.Identifier, domain.ErrAlreadyExists)
	}
	c := &ConnectionNode{
		Name:             rec.Name,
		Identifier:       rec.Identifier,
		ParentIdentifier: parent.Identifier,
		Protocol:         rec.Protocol,
		Attributes:       copyAttributes(rec.Attributes),
	}
	parent.Connections = append(parent.Connections, c)
	return c, nil
}

// Visit calls fn for every group in depth-first order, children in insertion order.
// depth is 0 for the root.
func (t *Tree) Visit(fn func(depth int, g *GroupNode)) {
	var walk func(depth int, g *GroupNode)
	walk = func(depth int, g *GroupNode) {
		fn(depth, g)
		for _, child := range g.Groups {
			walk(depth+1, child)
		}
	}
	walk(0, t.root)
}

// Paths returns the sorted full paths of every group, root included.
func (t *Tree) Paths() []string {
	paths := make([]string, 0, len(t.byID))
	for _, g := range t.byID {
		path, err := t.FullPath(g)
		if err != nil {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// GroupCount returns the number of groups, root included.
func (t *Tree) GroupCount() int {
	return len(t.byID)
}

// ConnectionCount returns the number of connections.
func (t *Tree) ConnectionCount() int {
	n := 0
	for _, g := range t.byID {
		n += len(g.Connections)
	}
	return n
}

func copyAttributes(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
