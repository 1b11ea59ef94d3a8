package core

// Well-known attribute keys exposed by every backend. Backends may expose
// additional platform-specific keys alongside these.
const (
	AttrRole         = "role"
	AttrName         = "name"
	AttrID           = "id"
	AttrText         = "text"
	AttrClassName    = "classname"
	AttrAutomationID = "automationid"
	AttrWindow       = "window"
)

// RoleWindow is the role tag backends report for top-level windows.
const RoleWindow = "window"

// NodeRef is an opaque handle to a native accessibility node. Target
// identifies the owning window/application; all adapter operations against
// the same target are serialized (see accessibility.Serialized).
type NodeRef struct {
	ID     string `json:"id"`
	Target string `json:"target,omitempty"`
}

// IsZero reports whether the ref is empty (meaning: desktop root scope).
func (n NodeRef) IsZero() bool {
	return n.ID == ""
}

// Element is a read-once snapshot of one resolved accessibility-tree node.
// It is never mutated in place; actions that change the underlying UI
// require a fresh resolution to observe new state.
type Element struct {
	Ref        NodeRef           `json:"ref"`
	Role       string            `json:"role"`
	Name       string            `json:"name"`
	Bounds     Bounds            `json:"bounds"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Visible    bool              `json:"visible"`
	Enabled    bool              `json:"enabled"`
}

// Bounds represents element position and size
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains checks if a point is within the bounds
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}
