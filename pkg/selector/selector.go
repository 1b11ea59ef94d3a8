// Package selector parses "Strategy:Value" locator strings into typed,
// immutable selectors and matches them against accessibility-tree nodes.
package selector

import (
	"strings"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// MatchMode controls how a selector value is compared.
type MatchMode int

const (
	// MatchExact compares values byte for byte.
	MatchExact MatchMode = iota
	// MatchCaseInsensitive folds ASCII case before comparing.
	MatchCaseInsensitive
)

// Selector is one typed predicate matched against a single node.
// Immutable once parsed.
type Selector struct {
	Strategy string
	Value    string
	Mode     MatchMode

	matcher Matcher
}

// Chain is an ordered sequence of selectors narrowing scope from a root to
// a specific element. Each link's scope is the match set produced by the
// previous link.
type Chain []Selector

// Matcher decides whether one node satisfies a selector value. Attributes
// are the node's full attribute mapping as reported by the adapter.
type Matcher func(attrs map[string]string, value string, mode MatchMode) bool

// Matches reports whether a node with the given attributes satisfies the
// selector.
func (s Selector) Matches(attrs map[string]string) bool {
	return s.matcher(attrs, s.Value, s.Mode)
}

// Describe returns the canonical "strategy:value" form.
func (s Selector) Describe() string {
	return s.Strategy + ":" + s.Value
}

// Describe returns a human-readable chain description.
func (c Chain) Describe() string {
	parts := make([]string, len(c))
	for i, s := range c {
		parts[i] = s.Describe()
	}
	return strings.Join(parts, " > ")
}

// Parse splits a locator string on the first colon and resolves the
// strategy against the registry. Unknown strategies are rejected outright
// rather than silently matching nothing.
func Parse(raw string) (Selector, error) {
	return ParseWithMode(raw, MatchExact)
}

// ParseWithMode parses a locator string with an explicit match mode.
func ParseWithMode(raw string, mode MatchMode) (Selector, error) {
	idx := strings.Index(raw, ":")
	if idx < 0 {
		return Selector{}, core.ErrInvalidSelector.WithMessage("selector %q has no strategy prefix", raw)
	}

	strategy := strings.ToLower(raw[:idx])
	value := raw[idx+1:]

	m, ok := lookup(strategy)
	if !ok {
		return Selector{}, core.ErrInvalidSelector.WithMessage("unknown selector strategy %q in %q", strategy, raw)
	}

	return Selector{
		Strategy: strategy,
		Value:    value,
		Mode:     mode,
		matcher:  m,
	}, nil
}

// ParseChain parses an ordered list of locator strings. A parse failure
// carries the index of the offending link.
func ParseChain(raw []string, mode MatchMode) (Chain, error) {
	if len(raw) == 0 {
		return nil, core.ErrInvalidSelector.WithMessage("empty selector chain")
	}

	chain := make(Chain, len(raw))
	for i, r := range raw {
		sel, err := ParseWithMode(r, mode)
		if err != nil {
			return nil, core.AsApiError(err).WithSelectorIndex(i)
		}
		chain[i] = sel
	}
	return chain, nil
}

func equalsFold(a, b string, mode MatchMode) bool {
	if mode == MatchCaseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// attrMatcher matches a single attribute key against the selector value.
func attrMatcher(key string) Matcher {
	return func(attrs map[string]string, value string, mode MatchMode) bool {
		return equalsFold(attrs[key], value, mode)
	}
}

// windowMatcher matches top-level windows by title.
func windowMatcher(attrs map[string]string, value string, mode MatchMode) bool {
	if !strings.EqualFold(attrs[core.AttrRole], core.RoleWindow) {
		return false
	}
	return equalsFold(attrs[core.AttrName], value, mode)
}
