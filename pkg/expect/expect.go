// Package expect wraps chain resolution plus a predicate in a bounded,
// cancellable retry loop. Native UI state changes asynchronously relative
// to automation commands, so a single-shot check is inherently flaky;
// every "expect" operation is defined in terms of this one primitive.
package expect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/devicelab-dev/uidriver/pkg/locator"
	"github.com/devicelab-dev/uidriver/pkg/selector"
)

// Predicate identifies the condition evaluated against a fresh snapshot on
// every attempt.
type Predicate string

const (
	PredicateVisible    Predicate = "visible"
	PredicateEnabled    Predicate = "enabled"
	PredicateTextEquals Predicate = "textEquals"
)

// Defaults used when a spec leaves timeout or interval unset.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// Spec is one expectation: resolve the chain, then evaluate the predicate,
// retrying until success or timeout.
type Spec struct {
	Predicate    Predicate
	Text         string // textEquals target
	Timeout      time.Duration
	PollInterval time.Duration
}

// Engine runs expectations against a resolver.
type Engine struct {
	resolver        *locator.Resolver
	defaultTimeout  time.Duration
	defaultInterval time.Duration
}

// New creates an engine. Zero defaults select DefaultTimeout and
// DefaultPollInterval.
func New(resolver *locator.Resolver, defaultTimeout, defaultInterval time.Duration) *Engine {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	if defaultInterval <= 0 {
		defaultInterval = DefaultPollInterval
	}
	return &Engine{
		resolver:        resolver,
		defaultTimeout:  defaultTimeout,
		defaultInterval: defaultInterval,
	}
}

// Await attempts resolve+predicate immediately, then retries at the poll
// interval until the predicate holds or the timeout elapses. The loop
// suspends on a timer between attempts; cancellation is cooperative and
// checked between attempts, not inside a single native call. Only
// resolution and predicate evaluation are ever retried, never a dispatched
// action.
func (e *Engine) Await(ctx context.Context, chain selector.Chain, scope core.NodeRef, spec Spec) (*core.Element, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	interval := spec.PollInterval
	if interval <= 0 {
		interval = e.defaultInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		el, err := e.attempt(ctx, chain, scope, spec)
		if err == nil {
			return el, nil
		}
		// A selector that failed to apply will not start matching on
		// its own; surface it immediately instead of burning the budget.
		if errors.Is(err, core.ErrInvalidSelector) || errors.Is(err, core.ErrBadRequest) {
			return nil, err
		}
		lastErr = err

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, core.ErrTimeout.
				WithCause(lastErr).
				WithMessage("expectation %s not satisfied within %s", spec.Predicate, timeout)
		case <-timer.C:
		}
	}
}

// attempt resolves the chain and evaluates the predicate against the fresh
// snapshot.
func (e *Engine) attempt(ctx context.Context, chain selector.Chain, scope core.NodeRef, spec Spec) (*core.Element, error) {
	el, err := e.resolver.Resolve(ctx, chain, scope)
	if err != nil {
		return nil, err
	}

	switch spec.Predicate {
	case PredicateVisible:
		if !el.Visible {
			return nil, fmt.Errorf("element %q resolved but not visible", chain.Describe())
		}
	case PredicateEnabled:
		if !el.Enabled {
			return nil, fmt.Errorf("element %q resolved but not enabled", chain.Describe())
		}
	case PredicateTextEquals:
		if got := el.Attributes[core.AttrText]; got != spec.Text {
			return nil, fmt.Errorf("element %q text is %q, want %q", chain.Describe(), got, spec.Text)
		}
	default:
		return nil, core.ErrBadRequest.WithMessage("unknown predicate %q", spec.Predicate)
	}

	return el, nil
}
