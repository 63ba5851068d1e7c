package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/qa-browser/pkg/agent/tools"
)

// NavigateTool navigates the current tab to a URL.
type NavigateTool struct {
	session *Session
}

// NewNavigateTool creates a new navigate tool.
func NewNavigateTool(session *Session) *NavigateTool {
	return &NavigateTool{session: session}
}

// Name returns the tool name.
func (t *NavigateTool) Name() string {
	return "browser_navigate"
}

// Description returns the tool description.
func (t *NavigateTool) Description() string {
	return "Navigate to a specific URL. Reports the HTTP status code of the response."
}

// Schema returns the tool's JSON schema.
func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The URL you want to navigate to (e.g., 'https://example.com/login')",
			},
		},
		[]string{"url"},
	)
}

// NavigateInput represents the input for navigation.
type NavigateInput struct {
	XMLName xml.Name `xml:"arguments"`
	URL     string   `xml:"url"`
}

// Execute navigates to a URL.
func (t *NavigateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input NavigateInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.URL == "" {
		return "", nil, fmt.Errorf("url is required")
	}

	result, err := t.session.Navigate(input.URL)
	if err != nil {
		return "", nil, err
	}
	return result, nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *NavigateTool) IsLoopBreaking() bool {
	return false
}
