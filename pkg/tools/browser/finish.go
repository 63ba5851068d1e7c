package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/qa-browser/pkg/agent/tools"
)

// FinishTool ends the scenario by closing the browser.
type FinishTool struct {
	session *Session
}

// NewFinishTool creates a new finish tool.
func NewFinishTool(session *Session) *FinishTool {
	return &FinishTool{session: session}
}

// Name returns the tool name.
func (t *FinishTool) Name() string {
	return "browser_finish"
}

// Description returns the tool description.
func (t *FinishTool) Description() string {
	return "Finish the current scenario by closing the browser. Always end the scenario with this tool."
}

// Schema returns the tool's JSON schema.
func (t *FinishTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"success": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether the scenario was finished successfully",
			},
			"comment": map[string]interface{}{
				"type":        "string",
				"description": "Additional comment about the scenario execution",
			},
		},
		[]string{"success"},
	)
}

type finishInput struct {
	XMLName xml.Name `xml:"arguments"`
	Success string   `xml:"success"`
	Comment string   `xml:"comment"`
}

// Execute closes the session. The verdict is returned as metadata.
func (t *FinishTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input finishInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}

	var success bool
	switch strings.ToLower(strings.TrimSpace(input.Success)) {
	case "true", "yes", "1":
		success = true
	case "false", "no", "0":
	default:
		return "", nil, fmt.Errorf("success must be true or false, got %q", input.Success)
	}

	result, err := t.session.Finish()
	if err != nil {
		return "", nil, err
	}

	metadata := map[string]interface{}{
		"success": success,
		"comment": strings.TrimSpace(input.Comment),
	}
	return result, metadata, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *FinishTool) IsLoopBreaking() bool {
	return true
}
