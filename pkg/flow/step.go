// Package flow handles parsing and execution of YAML flow files.
package flow

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// StepType represents the type of step.
type StepType string

// Step type constants.
const (
	// App management
	StepOpenApp StepType = "openApp"
	StepOpenURL StepType = "openUrl"

	// Interaction
	StepClick    StepType = "click"
	StepTypeText StepType = "typeText"
	StepPressKey StepType = "pressKey"

	// Expectations
	StepExpectVisible StepType = "expectVisible"
	StepExpectEnabled StepType = "expectEnabled"
	StepExpectText    StepType = "expectText"

	// Data
	StepReadText   StepType = "readText"
	StepAssertTrue StepType = "assertTrue"

	// Control
	StepWait StepType = "wait"
)

// Step is the interface for all flow steps.
type Step interface {
	Type() StepType
	IsOptional() bool
	Label() string
	Describe() string
}

// BaseStep contains common fields for all steps.
type BaseStep struct {
	StepType  StepType `yaml:"-"`
	Optional  bool     `yaml:"optional"`
	StepLabel string   `yaml:"label"`
	TimeoutMs int      `yaml:"timeout"`
}

// Type returns the step type.
func (b *BaseStep) Type() StepType { return b.StepType }

// IsOptional returns whether a failure of this step aborts the flow.
func (b *BaseStep) IsOptional() bool { return b.Optional }

// Label returns the user-supplied step label.
func (b *BaseStep) Label() string { return b.StepLabel }

// Target is a selector chain addressing one element. In YAML it may be a
// single string or a list of links, outermost first.
type Target struct {
	Chain []string
}

// UnmarshalYAML accepts both the scalar and the sequence form.
func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t.Chain = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&t.Chain)
	default:
		return fmt.Errorf("line %d: target must be a selector string or list", node.Line)
	}
}

func (t Target) String() string {
	return strings.Join(t.Chain, " > ")
}

// OpenAppStep launches an application by name or path.
type OpenAppStep struct {
	BaseStep `yaml:",inline"`
	App      string `yaml:"app"`
}

// OpenURLStep opens a URL, optionally in a named browser.
type OpenURLStep struct {
	BaseStep `yaml:",inline"`
	URL      string `yaml:"url"`
	Browser  string `yaml:"browser"`
}

// ClickStep clicks an element once it is visible.
type ClickStep struct {
	BaseStep `yaml:",inline"`
	On       Target `yaml:"on"`
}

// TypeTextStep replaces the text of an element.
type TypeTextStep struct {
	BaseStep `yaml:",inline"`
	On       Target `yaml:"on"`
	Text     string `yaml:"text"`
}

// PressKeyStep sends key presses to an element.
type PressKeyStep struct {
	BaseStep `yaml:",inline"`
	On       Target `yaml:"on"`
	Keys     string `yaml:"keys"`
}

// ExpectVisibleStep waits until an element is visible.
type ExpectVisibleStep struct {
	BaseStep `yaml:",inline"`
	On       Target `yaml:"on"`
}

// ExpectEnabledStep waits until an element is enabled.
type ExpectEnabledStep struct {
	BaseStep `yaml:",inline"`
	On       Target `yaml:"on"`
}

// ExpectTextStep waits until an element's text equals the given value.
type ExpectTextStep struct {
	BaseStep `yaml:",inline"`
	On       Target `yaml:"on"`
	Text     string `yaml:"text"`
}

// ReadTextStep reads an element's text into a flow variable.
type ReadTextStep struct {
	BaseStep `yaml:",inline"`
	On       Target `yaml:"on"`
	Into     string `yaml:"into"`
}

// AssertTrueStep evaluates a JavaScript condition.
type AssertTrueStep struct {
	BaseStep  `yaml:",inline"`
	Condition string `yaml:"condition"`
}

// WaitStep pauses the flow.
type WaitStep struct {
	BaseStep `yaml:",inline"`
	Ms       int `yaml:"ms"`
}

// Describe implementations, used in logs and run reports.

func (s *OpenAppStep) Describe() string  { return fmt.Sprintf("open application %q", s.App) }
func (s *OpenURLStep) Describe() string  { return fmt.Sprintf("open url %q", s.URL) }
func (s *ClickStep) Describe() string    { return fmt.Sprintf("click %s", s.On) }
func (s *TypeTextStep) Describe() string { return fmt.Sprintf("type %q into %s", s.Text, s.On) }
func (s *PressKeyStep) Describe() string { return fmt.Sprintf("press %q on %s", s.Keys, s.On) }
func (s *ExpectVisibleStep) Describe() string {
	return fmt.Sprintf("expect %s visible", s.On)
}
func (s *ExpectEnabledStep) Describe() string {
	return fmt.Sprintf("expect %s enabled", s.On)
}
func (s *ExpectTextStep) Describe() string {
	return fmt.Sprintf("expect %s text %q", s.On, s.Text)
}
func (s *ReadTextStep) Describe() string {
	return fmt.Sprintf("read text of %s into %s", s.On, s.Into)
}
func (s *AssertTrueStep) Describe() string { return fmt.Sprintf("assert %q", s.Condition) }
func (s *WaitStep) Describe() string       { return fmt.Sprintf("wait %dms", s.Ms) }
