package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/devicelab-dev/uidriver/pkg/accessibility/memtree"
	"github.com/devicelab-dev/uidriver/pkg/core"
)

func fixture() (*memtree.Tree, *memtree.Node, *memtree.Node) {
	tree := memtree.New()
	win := tree.AddWindow("Editor")
	field := win.Add("edit", "Body").
		SetAttr(core.AttrText, "").
		SetBounds(core.Bounds{X: 10, Y: 20, Width: 300, Height: 24})
	return tree, win, field
}

func element(n *memtree.Node) *core.Element {
	return &core.Element{Ref: n.Ref()}
}

func TestDispatcher_TypeTextRoundTrip(t *testing.T) {
	tree, _, field := fixture()
	d := New(tree)
	ctx := context.Background()

	if _, err := d.Do(ctx, element(field), Request{Type: ActionTypeText, Text: "hello world"}); err != nil {
		t.Fatalf("typeText: %v", err)
	}

	res, err := d.Do(ctx, element(field), Request{Type: ActionGetText})
	if err != nil {
		t.Fatalf("getText: %v", err)
	}
	if res.Text == nil || *res.Text != "hello world" {
		t.Errorf("got text %v, want hello world", res.Text)
	}
}

func TestDispatcher_Click(t *testing.T) {
	tree, win, _ := fixture()
	clicks := 0
	btn := win.Add("button", "Save").OnClick(func() { clicks++ })
	d := New(tree)

	res, err := d.Do(context.Background(), element(btn), Request{Type: ActionClick})
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if clicks != 1 {
		t.Errorf("got %d clicks, want 1", clicks)
	}
	// Mutations return an empty result.
	if res.Text != nil || res.Bounds != nil || res.Value != nil || res.Attributes != nil {
		t.Errorf("got non-empty result %+v", res)
	}
}

func TestDispatcher_PressKey(t *testing.T) {
	tree, _, field := fixture()
	d := New(tree)
	ctx := context.Background()

	if _, err := d.Do(ctx, element(field), Request{Type: ActionPressKey, Keys: "abc"}); err != nil {
		t.Fatalf("pressKey: %v", err)
	}
	if got := field.Text(); got != "abc" {
		t.Errorf("got text %q, want abc", got)
	}

	_, err := d.Do(ctx, element(field), Request{Type: ActionPressKey})
	if !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("empty key string: got %v, want ErrBadRequest", err)
	}
}

func TestDispatcher_Reads(t *testing.T) {
	tree, _, field := fixture()
	d := New(tree)
	ctx := context.Background()
	el := element(field)

	t.Run("getBounds", func(t *testing.T) {
		res, err := d.Do(ctx, el, Request{Type: ActionGetBounds})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Bounds == nil || res.Bounds.Width != 300 {
			t.Errorf("got bounds %+v", res.Bounds)
		}
	})

	t.Run("getAttributes", func(t *testing.T) {
		res, err := d.Do(ctx, el, Request{Type: ActionGetAttributes})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Attributes[core.AttrRole] != "edit" || res.Attributes[core.AttrName] != "Body" {
			t.Errorf("got attributes %v", res.Attributes)
		}
	})

	t.Run("isVisible", func(t *testing.T) {
		res, err := d.Do(ctx, el, Request{Type: ActionIsVisible})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Value == nil || !*res.Value {
			t.Errorf("got value %v, want true", res.Value)
		}
	})

	t.Run("isEnabled", func(t *testing.T) {
		field.SetEnabled(false)
		defer field.SetEnabled(true)
		res, err := d.Do(ctx, el, Request{Type: ActionIsEnabled})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Value == nil || *res.Value {
			t.Errorf("got value %v, want false", res.Value)
		}
	})
}

func TestDispatcher_StaleHandle(t *testing.T) {
	tree, _, field := fixture()
	d := New(tree)
	el := element(field)
	field.Invalidate()

	_, err := d.Do(context.Background(), el, Request{Type: ActionClick})
	if !errors.Is(err, core.ErrStaleElement) {
		t.Errorf("got %v, want ErrStaleElement", err)
	}
}

func TestDispatcher_UnknownAction(t *testing.T) {
	tree, _, field := fixture()
	d := New(tree)

	_, err := d.Do(context.Background(), element(field), Request{Type: "swipe"})
	if !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("got %v, want ErrBadRequest", err)
	}
}
