// Package dispatch executes typed actions against resolved elements. It
// maps actions directly onto adapter operations and performs no implicit
// retry; UI actions are not idempotent, so retrying is exclusively the
// poll engine's business and the poll engine only ever retries reads.
package dispatch

import (
	"context"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// ActionType identifies one dispatchable action.
type ActionType string

const (
	ActionClick         ActionType = "click"
	ActionTypeText      ActionType = "typeText"
	ActionPressKey      ActionType = "pressKey"
	ActionGetText       ActionType = "getText"
	ActionGetAttributes ActionType = "getAttributes"
	ActionGetBounds     ActionType = "getBounds"
	ActionIsVisible     ActionType = "isVisible"
	ActionIsEnabled     ActionType = "isEnabled"
)

// Request is one action against a resolved element.
type Request struct {
	Type ActionType `json:"type"`
	Text string     `json:"text,omitempty"` // typeText payload
	Keys string     `json:"keys,omitempty"` // pressKey key string
}

// Result is the typed outcome of an action. Mutating actions return an
// empty result; read actions populate exactly one field.
type Result struct {
	Text       *string           `json:"text,omitempty"`
	Bounds     *core.Bounds      `json:"bounds,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      *bool             `json:"value,omitempty"`
}

// Dispatcher executes actions via an adapter.
type Dispatcher struct {
	adapter core.Adapter
}

// New creates a dispatcher.
func New(adapter core.Adapter) *Dispatcher {
	return &Dispatcher{adapter: adapter}
}

// Do executes one action against the element. Adapter errors (stale handle,
// platform failure) propagate unchanged.
func (d *Dispatcher) Do(ctx context.Context, el *core.Element, req Request) (*Result, error) {
	node := el.Ref

	switch req.Type {
	case ActionClick:
		return &Result{}, d.adapter.Invoke(ctx, node, core.Action{Kind: core.ActionClick})

	case ActionTypeText:
		return &Result{}, d.adapter.Invoke(ctx, node, core.Action{Kind: core.ActionSetText, Text: req.Text})

	case ActionPressKey:
		if req.Keys == "" {
			return nil, core.ErrBadRequest.WithMessage("pressKey requires a key string")
		}
		return &Result{}, d.adapter.Invoke(ctx, node, core.Action{Kind: core.ActionSendKeys, Keys: req.Keys})

	case ActionGetText:
		text, err := d.adapter.Attribute(ctx, node, core.AttrText)
		if err != nil {
			return nil, err
		}
		return &Result{Text: &text}, nil

	case ActionGetAttributes:
		attrs, err := d.adapter.Attributes(ctx, node)
		if err != nil {
			return nil, err
		}
		return &Result{Attributes: attrs}, nil

	case ActionGetBounds:
		bounds, err := d.adapter.BoundingRect(ctx, node)
		if err != nil {
			return nil, err
		}
		return &Result{Bounds: &bounds}, nil

	case ActionIsVisible:
		v, err := d.adapter.IsVisible(ctx, node)
		if err != nil {
			return nil, err
		}
		return &Result{Value: &v}, nil

	case ActionIsEnabled:
		v, err := d.adapter.IsEnabled(ctx, node)
		if err != nil {
			return nil, err
		}
		return &Result{Value: &v}, nil

	default:
		return nil, core.ErrBadRequest.WithMessage("unknown action type %q", req.Type)
	}
}
