package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/qa-browser/pkg/agent/tools"
)

// FillTool types text into an input element.
type FillTool struct {
	session *Session
}

// NewFillTool creates a new fill tool.
func NewFillTool(session *Session) *FillTool {
	return &FillTool{session: session}
}

// Name returns the tool name.
func (t *FillTool) Name() string {
	return "browser_fill_text"
}

// Description returns the tool description.
func (t *FillTool) Description() string {
	return "Insert text into an input element, replacing its current value."
}

// Schema returns the tool's JSON schema.
func (t *FillTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "The selector for the element you want to input the text into",
			},
			"text": map[string]interface{}{
				"type":        "string",
				"description": "The text value you want to input",
			},
		},
		[]string{"selector", "text"},
	)
}

type fillInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Selector string   `xml:"selector"`
	Text     string   `xml:"text"`
}

// Execute fills an input element.
func (t *FillTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input fillInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Selector == "" {
		return "", nil, fmt.Errorf("selector is required")
	}

	result, err := t.session.FillText(input.Selector, input.Text)
	if err != nil {
		return "", nil, err
	}
	return result, nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *FillTool) IsLoopBreaking() bool {
	return false
}
