package flow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single YAML flow file.
func ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided flow file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses YAML flow content. A flow file is either a bare step list
// or a config document followed by the step list, separated by "---".
func Parse(data []byte, sourcePath string) (*Flow, error) {
	docs, err := splitDocuments(data)
	if err != nil {
		return nil, &ParseError{Path: sourcePath, Message: err.Error()}
	}
	if len(docs) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty flow file"}
	}
	if len(docs) > 2 {
		return nil, &ParseError{Path: sourcePath, Message: "flow file has more than two documents"}
	}

	f := &Flow{SourcePath: sourcePath}

	stepsDoc := docs[0]
	if len(docs) == 2 {
		if err := docs[0].Decode(&f.Config); err != nil {
			return nil, &ParseError{
				Path:    sourcePath,
				Line:    docs[0].Line,
				Message: fmt.Sprintf("invalid config: %v", err),
			}
		}
		stepsDoc = docs[1]
	}

	var rawSteps []yaml.Node
	if err := stepsDoc.Decode(&rawSteps); err != nil {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    stepsDoc.Line,
			Message: fmt.Sprintf("steps must be a list: %v", err),
		}
	}

	for i := range rawSteps {
		step, err := parseStep(&rawSteps[i], sourcePath)
		if err != nil {
			return nil, err
		}
		f.Steps = append(f.Steps, step)
	}

	return f, nil
}

func splitDocuments(data []byte) ([]*yaml.Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []*yaml.Node
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, &node)
	}
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a mapping with the step name as key",
		}
	}

	stepType, valueNode := extractStepType(node)
	if stepType == "" || valueNode == nil {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "unknown step type",
		}
	}

	return decodeStep(StepType(stepType), valueNode, sourcePath)
}

func extractStepType(node *yaml.Node) (string, *yaml.Node) {
	for i := 0; i < len(node.Content)-1; i += 2 {
		key := node.Content[i].Value
		if isStepType(key) {
			return key, node.Content[i+1]
		}
	}
	return "", nil
}

func isStepType(key string) bool {
	switch StepType(key) {
	case StepOpenApp, StepOpenURL, StepClick, StepTypeText, StepPressKey,
		StepExpectVisible, StepExpectEnabled, StepExpectText,
		StepReadText, StepAssertTrue, StepWait:
		return true
	}
	return false
}

func decodeStep(stepType StepType, valueNode *yaml.Node, sourcePath string) (Step, error) {
	switch stepType {
	case StepOpenApp:
		var s OpenAppStep
		if valueNode.Kind == yaml.ScalarNode {
			s.App = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepOpenURL:
		var s OpenURLStep
		if valueNode.Kind == yaml.ScalarNode {
			s.URL = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepClick:
		var s ClickStep
		if isTargetShorthand(valueNode) {
			if err := valueNode.Decode(&s.On); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepTypeText:
		var s TypeTextStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepPressKey:
		var s PressKeyStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepExpectVisible:
		var s ExpectVisibleStep
		if isTargetShorthand(valueNode) {
			if err := valueNode.Decode(&s.On); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepExpectEnabled:
		var s ExpectEnabledStep
		if isTargetShorthand(valueNode) {
			if err := valueNode.Decode(&s.On); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepExpectText:
		var s ExpectTextStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepReadText:
		var s ReadTextStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if s.Into == "" {
			return nil, &ParseError{
				Path:    sourcePath,
				Line:    valueNode.Line,
				Message: "readText requires 'into'",
			}
		}
		s.StepType = stepType
		return &s, nil

	case StepAssertTrue:
		var s AssertTrueStep
		if valueNode.Kind == yaml.ScalarNode {
			s.Condition = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepWait:
		var s WaitStep
		if valueNode.Kind == yaml.ScalarNode {
			if err := valueNode.Decode(&s.Ms); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil
	}

	return nil, &ParseError{
		Path:    sourcePath,
		Line:    valueNode.Line,
		Message: fmt.Sprintf("unknown step type: %s", stepType),
	}
}

// isTargetShorthand reports whether the value is a bare selector (scalar
// or list) rather than a step mapping.
func isTargetShorthand(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode || node.Kind == yaml.SequenceNode
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{Path: path, Line: line, Message: err.Error()}
}
