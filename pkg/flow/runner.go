package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/devicelab-dev/uidriver/pkg/dispatch"
	"github.com/devicelab-dev/uidriver/pkg/expect"
	"github.com/devicelab-dev/uidriver/pkg/jsengine"
	"github.com/devicelab-dev/uidriver/pkg/locator"
	"github.com/devicelab-dev/uidriver/pkg/selector"
	"github.com/rs/zerolog"
)

// StepStatus is the outcome of one executed step.
type StepStatus string

const (
	StepPassed StepStatus = "passed"
	StepFailed StepStatus = "failed"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Step    Step
	Status  StepStatus
	Err     error
	Elapsed time.Duration
}

// Result is the outcome of a whole flow run. Optional step failures are
// recorded but do not fail the flow.
type Result struct {
	Flow    *Flow
	Steps   []StepResult
	Passed  bool
	Elapsed time.Duration
}

// Runner executes parsed flows against a live adapter.
type Runner struct {
	resolver   *locator.Resolver
	dispatcher *dispatch.Dispatcher
	expecter   *expect.Engine
	launcher   core.Launcher
	js         *jsengine.Engine
	log        zerolog.Logger
}

// NewRunner builds a runner on top of an adapter and launcher.
func NewRunner(adapter core.Adapter, launcher core.Launcher, log zerolog.Logger) *Runner {
	resolver := locator.New(adapter, locator.DefaultMaxDepth)
	return &Runner{
		resolver:   resolver,
		dispatcher: dispatch.New(adapter),
		expecter:   expect.New(resolver, expect.DefaultTimeout, expect.DefaultPollInterval),
		launcher:   launcher,
		js:         jsengine.New(),
		log:        log,
	}
}

// Run executes the flow. The first failing non-optional step aborts the
// run; its error is recorded in the result.
func (r *Runner) Run(ctx context.Context, f *Flow) (*Result, error) {
	started := time.Now()
	result := &Result{Flow: f, Passed: true}

	if f.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(f.Config.Timeout)*time.Millisecond)
		defer cancel()
	}

	for k, v := range f.Config.Env {
		r.js.SetVariable(k, v)
	}

	if f.Config.App != "" {
		if err := r.launcher.OpenApplication(ctx, f.Config.App); err != nil {
			result.Passed = false
			result.Elapsed = time.Since(started)
			return result, fmt.Errorf("launching %q: %w", f.Config.App, err)
		}
	}
	if f.Config.URL != "" {
		if err := r.launcher.OpenURL(ctx, f.Config.URL, ""); err != nil {
			result.Passed = false
			result.Elapsed = time.Since(started)
			return result, fmt.Errorf("opening %q: %w", f.Config.URL, err)
		}
	}

	for _, step := range f.Steps {
		stepStart := time.Now()
		err := r.runStep(ctx, step)
		sr := StepResult{
			Step:    step,
			Status:  StepPassed,
			Elapsed: time.Since(stepStart),
		}
		if err != nil {
			sr.Status = StepFailed
			sr.Err = err
		}
		result.Steps = append(result.Steps, sr)

		if err == nil {
			r.log.Debug().Str("step", step.Describe()).Dur("elapsed", sr.Elapsed).Msg("step passed")
			continue
		}
		if step.IsOptional() {
			r.log.Warn().Str("step", step.Describe()).Err(err).Msg("optional step failed")
			continue
		}
		r.log.Error().Str("step", step.Describe()).Err(err).Msg("step failed")
		result.Passed = false
		result.Elapsed = time.Since(started)
		return result, err
	}

	result.Elapsed = time.Since(started)
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	switch s := step.(type) {
	case *OpenAppStep:
		app, err := r.js.Expand(s.App)
		if err != nil {
			return err
		}
		return r.launcher.OpenApplication(ctx, app)

	case *OpenURLStep:
		url, err := r.js.Expand(s.URL)
		if err != nil {
			return err
		}
		return r.launcher.OpenURL(ctx, url, s.Browser)

	case *ClickStep:
		el, err := r.awaitVisible(ctx, s.On, s.TimeoutMs)
		if err != nil {
			return err
		}
		_, err = r.dispatcher.Do(ctx, el, dispatch.Request{Type: dispatch.ActionClick})
		return err

	case *TypeTextStep:
		text, err := r.js.Expand(s.Text)
		if err != nil {
			return err
		}
		el, err := r.awaitVisible(ctx, s.On, s.TimeoutMs)
		if err != nil {
			return err
		}
		_, err = r.dispatcher.Do(ctx, el, dispatch.Request{Type: dispatch.ActionTypeText, Text: text})
		return err

	case *PressKeyStep:
		el, err := r.awaitVisible(ctx, s.On, s.TimeoutMs)
		if err != nil {
			return err
		}
		_, err = r.dispatcher.Do(ctx, el, dispatch.Request{Type: dispatch.ActionPressKey, Keys: s.Keys})
		return err

	case *ExpectVisibleStep:
		_, err := r.await(ctx, s.On, expect.Spec{
			Predicate: expect.PredicateVisible,
			Timeout:   time.Duration(s.TimeoutMs) * time.Millisecond,
		})
		return err

	case *ExpectEnabledStep:
		_, err := r.await(ctx, s.On, expect.Spec{
			Predicate: expect.PredicateEnabled,
			Timeout:   time.Duration(s.TimeoutMs) * time.Millisecond,
		})
		return err

	case *ExpectTextStep:
		text, err := r.js.Expand(s.Text)
		if err != nil {
			return err
		}
		_, err = r.await(ctx, s.On, expect.Spec{
			Predicate: expect.PredicateTextEquals,
			Text:      text,
			Timeout:   time.Duration(s.TimeoutMs) * time.Millisecond,
		})
		return err

	case *ReadTextStep:
		chain, err := r.chain(s.On)
		if err != nil {
			return err
		}
		el, err := r.resolver.Resolve(ctx, chain, core.NodeRef{})
		if err != nil {
			return err
		}
		res, err := r.dispatcher.Do(ctx, el, dispatch.Request{Type: dispatch.ActionGetText})
		if err != nil {
			return err
		}
		var text string
		if res.Text != nil {
			text = *res.Text
		}
		r.js.SetVariable(s.Into, text)
		return nil

	case *AssertTrueStep:
		ok, err := r.js.EvalBool(s.Condition)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("assertion failed: %s", s.Condition)
		}
		return nil

	case *WaitStep:
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(s.Ms) * time.Millisecond):
			return nil
		}
	}

	return fmt.Errorf("unhandled step type %q", step.Type())
}

// awaitVisible waits for the target before interacting with it, so flows
// tolerate launch latency without explicit expect steps.
func (r *Runner) awaitVisible(ctx context.Context, t Target, timeoutMs int) (*core.Element, error) {
	return r.await(ctx, t, expect.Spec{
		Predicate: expect.PredicateVisible,
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
	})
}

func (r *Runner) await(ctx context.Context, t Target, spec expect.Spec) (*core.Element, error) {
	chain, err := r.chain(t)
	if err != nil {
		return nil, err
	}
	return r.expecter.Await(ctx, chain, core.NodeRef{}, spec)
}

// chain expands ${...} in every link, then parses the chain.
func (r *Runner) chain(t Target) (selector.Chain, error) {
	raw := make([]string, len(t.Chain))
	for i, link := range t.Chain {
		expanded, err := r.js.Expand(link)
		if err != nil {
			return nil, err
		}
		raw[i] = expanded
	}
	return selector.ParseChain(raw, selector.MatchExact)
}
