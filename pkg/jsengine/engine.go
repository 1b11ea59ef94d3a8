// Package jsengine provides JavaScript expression evaluation for flow
// files: ${...} interpolation in step arguments and assertTrue conditions.
package jsengine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Engine wraps a goja runtime with the variables a flow accumulates:
// env declared in the flow header plus values captured by readText steps.
type Engine struct {
	runtime   *goja.Runtime
	variables map[string]interface{}
	output    map[string]interface{}
	mu        sync.Mutex
}

// New creates an engine with console.log wired up and an empty output
// object for scripts to populate.
func New() *Engine {
	e := &Engine{
		runtime:   goja.New(),
		variables: make(map[string]interface{}),
		output:    make(map[string]interface{}),
	}

	console := e.runtime.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		fmt.Println(args...)
		return goja.Undefined()
	})
	_ = e.runtime.Set("console", console)
	_ = e.runtime.Set("output", e.output)
	return e
}

// SetVariable makes a value visible to scripts under the given name.
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variables[name] = value
	_ = e.runtime.Set(name, value)
}

// SetVariables sets multiple variables at once.
func (e *Engine) SetVariables(vars map[string]interface{}) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// Output returns a copy of the script-visible output object.
func (e *Engine) Output() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]interface{}, len(e.output))
	for k, v := range e.output {
		out[k] = v
	}
	return out
}

// Eval evaluates a JavaScript expression and returns the result.
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("js eval error: %w", err)
	}
	return result.Export(), nil
}

// EvalString evaluates an expression and renders the result as a string.
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", result), nil
}

// EvalBool evaluates an expression as a truthiness check.
func (e *Engine) EvalBool(script string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return false, fmt.Errorf("js eval error: %w", err)
	}
	return result.ToBoolean(), nil
}

// Expand replaces every ${...} expression in text with its evaluated
// value. Braces nest; an unmatched ${ is left as-is.
func (e *Engine) Expand(text string) (string, error) {
	result := text
	start := 0

	for {
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		depth := 1
		end := idx + 2
		for end < len(result) && depth > 0 {
			switch result[end] {
			case '{':
				depth++
			case '}':
				depth--
			}
			end++
		}
		if depth != 0 {
			start = idx + 2
			continue
		}

		expr := result[idx+2 : end-1]
		value, err := e.EvalString(expr)
		if err != nil {
			return "", fmt.Errorf("expanding %q: %w", expr, err)
		}

		result = result[:idx] + value + result[end:]
		start = idx + len(value)
	}

	return result, nil
}
