package browser

import (
	"github.com/entrhq/qa-browser/pkg/agent/tools"
)

// ToolRegistry exposes a session's actions as agent tools.
type ToolRegistry struct {
	session *Session
	tools   []tools.Tool
}

// NewToolRegistry creates a new browser tool registry.
func NewToolRegistry(session *Session) *ToolRegistry {
	return &ToolRegistry{
		session: session,
		tools:   make([]tools.Tool, 0),
	}
}

// RegisterTools creates and returns all browser tools. The finish tool is
// only included for variants that support finishing.
func (r *ToolRegistry) RegisterTools() []tools.Tool {
	if len(r.tools) > 0 {
		return r.tools
	}

	r.tools = append(r.tools,
		NewNavigateTool(r.session),
		NewClickTool(r.session),
		NewFillTool(r.session),
		NewAssertTextTool(r.session),
	)

	if r.session.Variant().Finishable {
		r.tools = append(r.tools, NewFinishTool(r.session))
	}

	return r.tools
}

// Lookup returns the registered tool with the given name.
func (r *ToolRegistry) Lookup(name string) (tools.Tool, bool) {
	for _, tool := range r.RegisterTools() {
		if tool.Name() == name {
			return tool, true
		}
	}
	return nil, false
}

// GetSession returns the underlying session.
func (r *ToolRegistry) GetSession() *Session {
	return r.session
}
