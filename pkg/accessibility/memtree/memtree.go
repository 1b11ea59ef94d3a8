// Package memtree provides an in-memory accessibility tree implementing
// core.Adapter and core.Launcher, for testing without a native bridge.
// Tests build a tree, mutate it (visibility changes, stale handles) and
// drive the engine against it.
package memtree

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// Tree is a mutable in-memory accessibility tree. All operations are safe
// for concurrent use.
type Tree struct {
	mu     sync.Mutex
	nextID int
	root   *node
	nodes  map[string]*node

	apps []string
	urls []string

	onOpenApp func(name string) error
}

type node struct {
	id      string
	target  string
	parent  *node
	attrs   map[string]string
	bounds  core.Bounds
	visible bool
	enabled bool
	stale   bool

	children []*node
	onClick  func()
	onKeys   func(keys string)
}

// Node is a builder/mutation handle for one tree node.
type Node struct {
	t *Tree
	n *node
}

// New creates an empty tree containing only the desktop root.
func New() *Tree {
	t := &Tree{nodes: make(map[string]*node)}
	root := &node{
		id:      "root",
		target:  "desktop",
		attrs:   map[string]string{core.AttrRole: "desktop"},
		visible: true,
		enabled: true,
	}
	t.root = root
	t.nodes[root.id] = root
	return t
}

func (t *Tree) newNode(parent *node, target, role, name string) *node {
	t.nextID++
	n := &node{
		id:     "node-" + strconv.Itoa(t.nextID),
		target: target,
		parent: parent,
		attrs: map[string]string{
			core.AttrRole: role,
			core.AttrName: name,
		},
		visible: true,
		enabled: true,
	}
	parent.children = append(parent.children, n)
	t.nodes[n.id] = n
	return n
}

// AddWindow adds a top-level window. The window title doubles as the
// serialization target for the whole subtree.
func (t *Tree) AddWindow(title string) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.newNode(t.root, title, core.RoleWindow, title)
	return &Node{t: t, n: n}
}

// Add appends a child node in enumeration order.
func (nd *Node) Add(role, name string) *Node {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	n := nd.t.newNode(nd.n, nd.n.target, role, name)
	return &Node{t: nd.t, n: n}
}

// SetAttr sets one attribute value.
func (nd *Node) SetAttr(key, value string) *Node {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	nd.n.attrs[key] = value
	return nd
}

// SetBounds sets the node bounds.
func (nd *Node) SetBounds(b core.Bounds) *Node {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	nd.n.bounds = b
	return nd
}

// SetVisible sets node-local visibility.
func (nd *Node) SetVisible(v bool) *Node {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	nd.n.visible = v
	return nd
}

// SetEnabled sets the enabled flag.
func (nd *Node) SetEnabled(v bool) *Node {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	nd.n.enabled = v
	return nd
}

// ShowAfter makes the node visible after the given delay, simulating
// asynchronous UI state changes (launch latency, animation).
func (nd *Node) ShowAfter(d time.Duration) *Node {
	time.AfterFunc(d, func() {
		nd.SetVisible(true)
	})
	return nd
}

// OnClick registers a click handler.
func (nd *Node) OnClick(fn func()) *Node {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	nd.n.onClick = fn
	return nd
}

// OnKeys registers a key-press handler replacing the default text append.
func (nd *Node) OnKeys(fn func(keys string)) *Node {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	nd.n.onKeys = fn
	return nd
}

// Invalidate marks the node stale. Subsequent adapter calls against its
// handle fail with ErrStaleElement.
func (nd *Node) Invalidate() {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	nd.n.stale = true
}

// Ref returns the adapter handle for the node.
func (nd *Node) Ref() core.NodeRef {
	return core.NodeRef{ID: nd.n.id, Target: nd.n.target}
}

// Text returns the node's current text attribute.
func (nd *Node) Text() string {
	nd.t.mu.Lock()
	defer nd.t.mu.Unlock()
	return nd.n.attrs[core.AttrText]
}

// lookup resolves a handle, distinguishing stale from unknown.
func (t *Tree) lookup(ref core.NodeRef) (*node, error) {
	n, ok := t.nodes[ref.ID]
	if !ok {
		return nil, core.ErrStaleElement.WithMessage("unknown node handle %q", ref.ID)
	}
	if n.stale {
		return nil, core.ErrStaleElement.WithMessage("node %q was invalidated", ref.ID)
	}
	return n, nil
}

// effectiveVisible walks ancestors: a node inside a hidden window is hidden.
func effectiveVisible(n *node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if !cur.visible {
			return false
		}
	}
	return true
}

// Root implements core.Adapter.
func (t *Tree) Root(ctx context.Context) (core.NodeRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return core.NodeRef{ID: t.root.id, Target: t.root.target}, nil
}

// Children implements core.Adapter.
func (t *Tree) Children(ctx context.Context, ref core.NodeRef) ([]core.NodeRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.lookup(ref)
	if err != nil {
		return nil, err
	}
	refs := make([]core.NodeRef, len(n.children))
	for i, c := range n.children {
		refs[i] = core.NodeRef{ID: c.id, Target: c.target}
	}
	return refs, nil
}

// Attribute implements core.Adapter.
func (t *Tree) Attribute(ctx context.Context, ref core.NodeRef, key string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.lookup(ref)
	if err != nil {
		return "", err
	}
	return n.attrs[key], nil
}

// Attributes implements core.Adapter.
func (t *Tree) Attributes(ctx context.Context, ref core.NodeRef) (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.lookup(ref)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		attrs[k] = v
	}
	return attrs, nil
}

// BoundingRect implements core.Adapter.
func (t *Tree) BoundingRect(ctx context.Context, ref core.NodeRef) (core.Bounds, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.lookup(ref)
	if err != nil {
		return core.Bounds{}, err
	}
	return n.bounds, nil
}

// IsVisible implements core.Adapter.
func (t *Tree) IsVisible(ctx context.Context, ref core.NodeRef) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.lookup(ref)
	if err != nil {
		return false, err
	}
	return effectiveVisible(n), nil
}

// IsEnabled implements core.Adapter.
func (t *Tree) IsEnabled(ctx context.Context, ref core.NodeRef) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.lookup(ref)
	if err != nil {
		return false, err
	}
	return n.enabled, nil
}

// Invoke implements core.Adapter. Click runs the registered handler,
// setText replaces the text attribute, sendKeys appends to it unless an
// OnKeys handler intercepts. Handlers run outside the tree lock so they
// can mutate the tree.
func (t *Tree) Invoke(ctx context.Context, ref core.NodeRef, action core.Action) error {
	t.mu.Lock()
	n, err := t.lookup(ref)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if !n.enabled {
		t.mu.Unlock()
		return core.ErrPlatform.WithMessage("node %q is disabled", ref.ID)
	}

	var handler func()
	switch action.Kind {
	case core.ActionClick:
		handler = n.onClick
	case core.ActionSetText:
		n.attrs[core.AttrText] = action.Text
	case core.ActionSendKeys:
		if n.onKeys != nil {
			keys := action.Keys
			fn := n.onKeys
			handler = func() { fn(keys) }
		} else {
			n.attrs[core.AttrText] += action.Keys
		}
	default:
		t.mu.Unlock()
		return core.ErrPlatform.WithMessage("unsupported action %q", action.Kind)
	}
	t.mu.Unlock()

	if handler != nil {
		handler()
	}
	return nil
}

// OpenApplication implements core.Launcher.
func (t *Tree) OpenApplication(ctx context.Context, nameOrPath string) error {
	t.mu.Lock()
	hook := t.onOpenApp
	t.apps = append(t.apps, nameOrPath)
	t.mu.Unlock()

	if hook != nil {
		return hook(nameOrPath)
	}
	return nil
}

// OpenURL implements core.Launcher.
func (t *Tree) OpenURL(ctx context.Context, url, browser string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry := url
	if browser != "" {
		entry = fmt.Sprintf("%s (%s)", url, browser)
	}
	t.urls = append(t.urls, entry)
	return nil
}

// OnOpenApplication registers a launch hook, used by tests to materialize
// windows on demand.
func (t *Tree) OnOpenApplication(fn func(name string) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenApp = fn
}

// LaunchedApps returns the applications opened so far.
func (t *Tree) LaunchedApps() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.apps...)
}

// OpenedURLs returns the URLs opened so far.
func (t *Tree) OpenedURLs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.urls...)
}

var (
	_ core.Adapter  = (*Tree)(nil)
	_ core.Launcher = (*Tree)(nil)
)
