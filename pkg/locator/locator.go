// Package locator resolves selector chains against the accessibility tree.
// Each chain link narrows the scope to the subtree of its match; the first
// candidate in native enumeration order wins when several match.
package locator

import (
	"context"

	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/devicelab-dev/uidriver/pkg/selector"
)

// DefaultMaxDepth bounds descendant traversal per chain link.
const DefaultMaxDepth = 50

// Resolver resolves locator chains via an adapter.
type Resolver struct {
	adapter  core.Adapter
	maxDepth int
}

// New creates a resolver. maxDepth <= 0 selects DefaultMaxDepth.
func New(adapter core.Adapter, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{adapter: adapter, maxDepth: maxDepth}
}

// Resolve walks the chain from scope (zero ref = desktop root) and returns
// a snapshot of the final match. Resolution is deterministic for a stable
// tree: descendants are enumerated depth-first in native enumeration order
// up to the depth bound, and the first match is selected. A link with zero
// candidates fails with ErrElementNotFound carrying that link's index.
func (r *Resolver) Resolve(ctx context.Context, chain selector.Chain, scope core.NodeRef) (*core.Element, error) {
	if len(chain) == 0 {
		return nil, core.ErrInvalidSelector.WithMessage("empty selector chain")
	}

	current := scope
	if current.IsZero() {
		root, err := r.adapter.Root(ctx)
		if err != nil {
			return nil, err
		}
		current = root
	}

	for i, sel := range chain {
		match, err := r.findFirst(ctx, current, sel)
		if err != nil {
			if api := core.AsApiError(err); api.Kind == core.KindElementNotFound {
				return nil, api.
					WithMessage("no element matches %q (link %d of %d)", sel.Describe(), i+1, len(chain)).
					WithSelectorIndex(i)
			}
			return nil, err
		}
		current = match
	}

	return r.Snapshot(ctx, current)
}

// findFirst returns the first descendant of scope matching sel, in
// depth-first preorder bounded by maxDepth. The scope node itself is not a
// candidate; a link always narrows to a proper descendant.
func (r *Resolver) findFirst(ctx context.Context, scope core.NodeRef, sel selector.Selector) (core.NodeRef, error) {
	children, err := r.adapter.Children(ctx, scope)
	if err != nil {
		return core.NodeRef{}, err
	}

	match, err := r.search(ctx, children, sel, 1)
	if err != nil {
		return core.NodeRef{}, err
	}
	if match == nil {
		return core.NodeRef{}, core.ErrElementNotFound
	}
	return *match, nil
}

func (r *Resolver) search(ctx context.Context, nodes []core.NodeRef, sel selector.Selector, depth int) (*core.NodeRef, error) {
	if depth > r.maxDepth {
		return nil, nil
	}
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attrs, err := r.adapter.Attributes(ctx, node)
		if err != nil {
			return nil, err
		}
		if sel.Matches(attrs) {
			n := node
			return &n, nil
		}

		children, err := r.adapter.Children(ctx, node)
		if err != nil {
			return nil, err
		}
		match, err := r.search(ctx, children, sel, depth+1)
		if err != nil || match != nil {
			return match, err
		}
	}
	return nil, nil
}

// Snapshot reads the node's current state into an Element. Snapshots are
// read-once; a UI mutation requires a fresh resolution to observe.
func (r *Resolver) Snapshot(ctx context.Context, node core.NodeRef) (*core.Element, error) {
	attrs, err := r.adapter.Attributes(ctx, node)
	if err != nil {
		return nil, err
	}
	bounds, err := r.adapter.BoundingRect(ctx, node)
	if err != nil {
		return nil, err
	}
	visible, err := r.adapter.IsVisible(ctx, node)
	if err != nil {
		return nil, err
	}
	enabled, err := r.adapter.IsEnabled(ctx, node)
	if err != nil {
		return nil, err
	}

	return &core.Element{
		Ref:        node,
		Role:       attrs[core.AttrRole],
		Name:       attrs[core.AttrName],
		Bounds:     bounds,
		Attributes: attrs,
		Visible:    visible,
		Enabled:    enabled,
	}, nil
}
