package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/qa-browser/pkg/agent/tools"
)

// ClickTool clicks the element identified by a selector.
type ClickTool struct {
	session *Session
}

// NewClickTool creates a new click tool.
func NewClickTool(session *Session) *ClickTool {
	return &ClickTool{session: session}
}

// Name returns the tool name.
func (t *ClickTool) Name() string {
	return "browser_click"
}

// Description returns the tool description.
func (t *ClickTool) Description() string {
	return "Click on an element. The selector must match exactly one element; otherwise nothing is clicked and the reason is reported."
}

// Schema returns the tool's JSON schema.
func (t *ClickTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Playwright selector used to pick the element you want to click (e.g., 'button#submit', 'text=Sign in')",
			},
		},
		[]string{"selector"},
	)
}

type clickInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Selector string   `xml:"selector"`
}

// Execute clicks an element.
func (t *ClickTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input clickInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Selector == "" {
		return "", nil, fmt.Errorf("selector is required")
	}

	result, err := t.session.Click(input.Selector)
	if err != nil {
		return "", nil, err
	}
	return result, nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ClickTool) IsLoopBreaking() bool {
	return false
}
