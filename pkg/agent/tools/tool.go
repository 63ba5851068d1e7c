package tools

import (
	"context"
	"encoding/xml"
)

// Tool is an action the QA agent can invoke against the browser.
// Tools are invoked through XML-formatted tool calls and always answer
// with a human-readable outcome the agent reads as an observation.
//
// Example tool call format:
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>browser_click</tool_name>
//	<arguments>
//	  <selector>button#submit</selector>
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "browser_click")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for this tool's input parameters
	Schema() map[string]interface{}

	// Execute runs the tool with the given XML arguments and returns the
	// outcome text. Metadata is optional and may be nil. A non-nil error
	// means the tool could not run at all (bad arguments, dead browser);
	// ordinary failures like a missing element are outcomes, not errors.
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)

	// IsLoopBreaking indicates whether this tool ends the agent's scenario.
	IsLoopBreaking() bool
}

// ToolCall represents a parsed tool invocation
type ToolCall struct {
	XMLName    xml.Name       `xml:"tool"`
	ServerName string         `xml:"server_name"`
	ToolName   string         `xml:"tool_name"`
	Arguments  ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments wrapped in <arguments> tags for unmarshaling.
func (tc *ToolCall) GetArgumentsXML() []byte {
	const prefix = "<arguments>"
	const suffix = "</arguments>"

	result := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	result = append(result, []byte(prefix)...)
	result = append(result, tc.Arguments.InnerXML...)
	result = append(result, []byte(suffix)...)
	return result
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
