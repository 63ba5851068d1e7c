package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/qa-browser/pkg/agent/tools"
)

// Scenario is a recorded list of tool calls replayed against one session.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is either a tool name with flat arguments, or a raw XML tool call
// as an agent would emit it.
type Step struct {
	Tool string            `yaml:"tool,omitempty"`
	Args map[string]string `yaml:"args,omitempty"`
	Call string            `yaml:"call,omitempty"`
}

// loadScenario reads a scenario from a YAML file
func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Validate checks that every step names exactly one way to call a tool.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario has no steps")
	}
	for i, step := range s.Steps {
		hasTool := step.Tool != ""
		hasCall := strings.TrimSpace(step.Call) != ""
		switch {
		case hasTool && hasCall:
			return fmt.Errorf("step %d: use either tool or call, not both", i+1)
		case !hasTool && !hasCall:
			return fmt.Errorf("step %d: tool or call is required", i+1)
		}
	}
	return nil
}

// Resolve returns the tool name and the XML arguments of the step.
func (s Step) Resolve() (string, []byte, error) {
	if strings.TrimSpace(s.Call) != "" {
		call, _, err := tools.ParseToolCall(s.Call)
		if err != nil {
			return "", nil, err
		}
		if err := tools.ValidateToolCall(call); err != nil {
			return "", nil, err
		}
		return call.ToolName, call.GetArgumentsXML(), nil
	}

	args, err := tools.BuildArgumentsXML(s.Args)
	if err != nil {
		return "", nil, err
	}
	return s.Tool, args, nil
}
