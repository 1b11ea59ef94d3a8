// Package core defines the data model shared by every stage of the engine:
// the adapter interface over native accessibility backends, element
// snapshots, invokable actions, and the error taxonomy.
package core

import (
	"context"
	"fmt"
)

// ActionKind identifies an invokable UI mutation.
type ActionKind string

const (
	ActionClick    ActionKind = "click"
	ActionSetText  ActionKind = "setText"
	ActionSendKeys ActionKind = "sendKeys"
)

// Action is a UI mutation passed to Adapter.Invoke. Side effects are real,
// irreversible OS-level changes; they carry no transactional guarantee and
// are never retried automatically.
type Action struct {
	Kind ActionKind
	Text string // setText payload
	Keys string // sendKeys key string, e.g. "ctrl+a" or "enter"
}

func (a Action) String() string {
	switch a.Kind {
	case ActionSetText:
		return fmt.Sprintf("setText(%q)", a.Text)
	case ActionSendKeys:
		return fmt.Sprintf("sendKeys(%q)", a.Keys)
	default:
		return string(a.Kind)
	}
}

// Adapter presents one interface over distinct native UI-automation
// backends (Windows UI Automation, macOS Accessibility, Linux AT-SPI).
// Implementations: accessibility/bridge (real backends via the native
// bridge process), accessibility/memtree (in-memory tree for tests).
//
// All operations take a native handle and fail with ErrPlatform (backend
// unreachable or unsupported call) or ErrStaleElement (handle invalidated
// since acquisition; callers must re-resolve, never retry in place).
// The resolver, dispatcher and poll engine never branch on platform; the
// concrete adapter is selected once at process startup.
type Adapter interface {
	// Root returns the desktop root node.
	Root(ctx context.Context) (NodeRef, error)

	// Children returns the direct children of node in native enumeration
	// order. That order is the documented tie-break for multi-match
	// resolution, so implementations must keep it stable for a stable tree.
	Children(ctx context.Context, node NodeRef) ([]NodeRef, error)

	// Attribute returns a single attribute value ("" when unset).
	Attribute(ctx context.Context, node NodeRef, key string) (string, error)

	// Attributes returns the full attribute mapping of the node.
	Attributes(ctx context.Context, node NodeRef) (map[string]string, error)

	// BoundingRect returns the node's on-screen bounds.
	BoundingRect(ctx context.Context, node NodeRef) (Bounds, error)

	// IsVisible reports whether the node is currently visible.
	IsVisible(ctx context.Context, node NodeRef) (bool, error)

	// IsEnabled reports whether the node accepts interaction.
	IsEnabled(ctx context.Context, node NodeRef) (bool, error)

	// Invoke performs a UI mutation against the node.
	Invoke(ctx context.Context, node NodeRef, action Action) error
}

// Launcher starts applications and opens URLs. Process-launch internals are
// an external collaborator; the engine depends only on this boundary.
type Launcher interface {
	OpenApplication(ctx context.Context, nameOrPath string) error
	OpenURL(ctx context.Context, url, browser string) error
}
