package selector

import (
	"errors"
	"testing"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		strategy string
		value    string
	}{
		{
			name:     "name selector",
			raw:      "name:Seven",
			strategy: "name",
			value:    "Seven",
		},
		{
			name:     "uppercase strategy",
			raw:      "Name:Seven",
			strategy: "name",
			value:    "Seven",
		},
		{
			name:     "value containing colons",
			raw:      "text:a:b:c",
			strategy: "text",
			value:    "a:b:c",
		},
		{
			name:     "empty value",
			raw:      "role:",
			strategy: "role",
			value:    "",
		},
		{
			name:     "automation id",
			raw:      "AutomationId:num7Button",
			strategy: "automationid",
			value:    "num7Button",
		},
		{
			name:     "window by title",
			raw:      "window:Calculator",
			strategy: "window",
			value:    "Calculator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sel.Strategy != tt.strategy {
				t.Errorf("got strategy %q, want %q", sel.Strategy, tt.strategy)
			}
			if sel.Value != tt.value {
				t.Errorf("got value %q, want %q", sel.Value, tt.value)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no colon", raw: "BadSelector"},
		{name: "unknown strategy", raw: "xpath://div"},
		{name: "empty string", raw: ""},
		{name: "colon only value side", raw: ":value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if !errors.Is(err, core.ErrInvalidSelector) {
				t.Errorf("got %v, want ErrInvalidSelector", err)
			}
		})
	}
}

func TestSelector_Matches(t *testing.T) {
	attrs := map[string]string{
		core.AttrRole: "button",
		core.AttrName: "Seven",
		core.AttrID:   "num7",
	}

	tests := []struct {
		name string
		raw  string
		mode MatchMode
		want bool
	}{
		{name: "name exact hit", raw: "name:Seven", mode: MatchExact, want: true},
		{name: "name exact miss on case", raw: "name:seven", mode: MatchExact, want: false},
		{name: "name case-insensitive hit", raw: "name:seven", mode: MatchCaseInsensitive, want: true},
		{name: "role hit", raw: "role:button", mode: MatchExact, want: true},
		{name: "id hit", raw: "id:num7", mode: MatchExact, want: true},
		{name: "missing attribute", raw: "classname:Button", mode: MatchExact, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ParseWithMode(tt.raw, tt.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := sel.Matches(attrs); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindowMatcher(t *testing.T) {
	window := map[string]string{core.AttrRole: "window", core.AttrName: "Calculator"}
	button := map[string]string{core.AttrRole: "button", core.AttrName: "Calculator"}

	sel, err := Parse("window:Calculator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sel.Matches(window) {
		t.Error("window node should match")
	}
	if sel.Matches(button) {
		t.Error("non-window node must not match window: strategy")
	}
}

func TestParseChain(t *testing.T) {
	chain, err := ParseChain([]string{"name:Calc", "name:Seven"}, MatchExact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("got %d links, want 2", len(chain))
	}
	if got := chain.Describe(); got != "name:Calc > name:Seven" {
		t.Errorf("got describe %q", got)
	}
}

func TestParseChain_Errors(t *testing.T) {
	t.Run("empty chain", func(t *testing.T) {
		_, err := ParseChain(nil, MatchExact)
		if !errors.Is(err, core.ErrInvalidSelector) {
			t.Errorf("got %v, want ErrInvalidSelector", err)
		}
	})

	t.Run("bad link carries index", func(t *testing.T) {
		_, err := ParseChain([]string{"name:Calc", "nope"}, MatchExact)
		api := core.AsApiError(err)
		if api.Code != "invalid_selector" {
			t.Fatalf("got code %q, want invalid_selector", api.Code)
		}
		if api.SelectorIndex == nil || *api.SelectorIndex != 1 {
			t.Errorf("got SelectorIndex=%v, want 1", api.SelectorIndex)
		}
	})
}

func TestRegister(t *testing.T) {
	Register("testtag", func(attrs map[string]string, value string, mode MatchMode) bool {
		return attrs["custom"] == value
	})

	sel, err := Parse("TestTag:hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sel.Matches(map[string]string{"custom": "hello"}) {
		t.Error("registered strategy should match")
	}
}
