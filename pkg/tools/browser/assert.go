package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/qa-browser/pkg/agent/tools"
)

// AssertTextTool checks that text appears on the page.
type AssertTextTool struct {
	session *Session
}

// NewAssertTextTool creates a new assert tool.
func NewAssertTextTool(session *Session) *AssertTextTool {
	return &AssertTextTool{session: session}
}

// Name returns the tool name.
func (t *AssertTextTool) Name() string {
	return "browser_assert_text"
}

// Description returns the tool description.
func (t *AssertTextTool) Description() string {
	return "Assert that a text is on the page or in a specified element. Waits briefly for the text to appear."
}

// Schema returns the tool's JSON schema.
func (t *AssertTextTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text that should be on the page",
			},
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Selector for an element that should contain the text. If not provided, the whole page is considered.",
			},
		},
		[]string{"text"},
	)
}

type assertInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Text     string   `xml:"text"`
	Selector string   `xml:"selector"`
}

// Execute runs the assertion.
func (t *AssertTextTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input assertInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Text == "" {
		return "", nil, fmt.Errorf("text is required")
	}

	result, err := t.session.AssertText(input.Text, input.Selector)
	if err != nil {
		return "", nil, err
	}
	return result, nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *AssertTextTool) IsLoopBreaking() bool {
	return false
}
