package tree

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dshills/assetbus/internal/event"
)

// Errors returned by hierarchy mutations.
var (
	// ErrHasParent is returned when appending a node that is already attached
	// to a parent.
	ErrHasParent = errors.New("node already has a parent")

	// ErrCycle is returned when appending a node under itself or one of its
	// descendants.
	ErrCycle = errors.New("append would create a cycle")

	// ErrRootNode is returned when appending a root under another node.
	ErrRootNode = errors.New("root node cannot have a parent")

	// ErrInvalidName is returned for empty names or names containing the
	// path separator.
	ErrInvalidName = errors.New("invalid node name")

	// ErrNotFound is returned when a path does not resolve.
	ErrNotFound = errors.New("node not found")
)

// Node is one element of a UI hierarchy. Nodes are created with NewRoot or
// NewChild and are safe for concurrent use.
type Node struct {
	name   string
	root   bool
	parent atomic.Pointer[Node]

	mu       sync.RWMutex
	children []*Node
}

// NewRoot creates the root of a live hierarchy. Emissions bubble up to and
// stop at a root.
func NewRoot(name string) *Node {
	return &Node{name: name, root: true}
}

// New creates a node that is not part of any hierarchy yet.
func New(name string) *Node {
	return &Node{name: name}
}

// NewChild creates a node named name and appends it to n.
func (n *Node) NewChild(name string) (*Node, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	child := New(name)
	if err := n.Append(child); err != nil {
		return nil, err
	}
	return child, nil
}

// MustChild is NewChild for hierarchies built from literals.
func (n *Node) MustChild(name string) *Node {
	child, err := n.NewChild(name)
	if err != nil {
		panic(err)
	}
	return child
}

func validName(name string) bool {
	return name != "" && Path(name).Depth() == 1 && name != WildcardSingle && name != WildcardMulti
}

// Name returns the node's name.
func (n *Node) Name() string {
	return n.name
}

// Append adds child as the last child of n.
func (n *Node) Append(child *Node) error {
	if child == nil {
		return fmt.Errorf("%w: nil child", ErrInvalidName)
	}
	if child.root {
		return ErrRootNode
	}
	for a := n; a != nil; a = a.parent.Load() {
		if a == child {
			return ErrCycle
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !child.parent.CompareAndSwap(nil, n) {
		return ErrHasParent
	}
	n.children = append(n.children, child)
	return nil
}

// Remove detaches n from its parent. The subtree below n stays intact but
// is no longer reachable from the root. Removing a detached node is a no-op.
func (n *Node) Remove() {
	p := n.parent.Load()
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !n.parent.CompareAndSwap(p, nil) {
		return
	}
	if i := slices.Index(p.children, n); i >= 0 {
		p.children = slices.Delete(slices.Clone(p.children), i, i+1)
	}
}

// Parent returns the parent node, or nil.
func (n *Node) Parent() *Node {
	return n.parent.Load()
}

// ParentNode implements event.Node.
func (n *Node) ParentNode() event.Node {
	p := n.parent.Load()
	if p == nil {
		return nil
	}
	return p
}

// IsRoot implements event.Node.
func (n *Node) IsRoot() bool {
	return n.root
}

// Children returns a copy of n's children in insertion order.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.children)
}

// Child returns the first child named name.
func (n *Node) Child(name string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, c := range n.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Top returns the topmost ancestor of n, which is n itself when it has no
// parent.
func (n *Node) Top() *Node {
	top := n
	for p := top.parent.Load(); p != nil; p = top.parent.Load() {
		top = p
	}
	return top
}

// IsAttached reports whether n belongs to a live hierarchy.
func (n *Node) IsAttached() bool {
	return n.Top().root
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for a := other; a != nil; a = a.parent.Load() {
		if a == n {
			return true
		}
	}
	return false
}

// Path returns the slash-joined names from the topmost ancestor down to n.
func (n *Node) Path() Path {
	var names []string
	for a := n; a != nil; a = a.parent.Load() {
		names = append(names, a.name)
	}
	slices.Reverse(names)
	return Join(names...)
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return n.Path().String()
}

// Find resolves a path whose first segment names n.
func (n *Node) Find(path Path) (*Node, error) {
	segs := path.Segments()
	if len(segs) == 0 || segs[0] != n.name {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	cur := n
	for _, seg := range segs[1:] {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		cur = next
	}
	return cur, nil
}

// Match returns the nodes in n's subtree whose path matches pattern, in
// pre-order.
func (n *Node) Match(pattern Path) []*Node {
	var matches []*Node
	n.Walk(func(node *Node) bool {
		if node.Path().Matches(pattern) {
			matches = append(matches, node)
		}
		return true
	})
	return matches
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

var _ event.Node = (*Node)(nil)
