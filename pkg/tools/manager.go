package tools

import "fmt"

// ToolManager manages the available tools.
type ToolManager struct {
	tools map[string]Tool
	order []string
}

// NewToolManager creates a new ToolManager.
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]Tool),
	}
}

// RegisterTool registers a new tool. A tool registered under a name that is
// already taken replaces the earlier one.
func (m *ToolManager) RegisterTool(tool Tool) {
	if _, exists := m.tools[tool.Name()]; !exists {
		m.order = append(m.order, tool.Name())
	}
	m.tools[tool.Name()] = tool
}

// GetTool retrieves a tool by name.
func (m *ToolManager) GetTool(name string) (Tool, error) {
	tool, ok := m.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns all registered tools in registration order.
func (m *ToolManager) List() []Tool {
	ts := make([]Tool, 0, len(m.order))
	for _, name := range m.order {
		ts = append(ts, m.tools[name])
	}
	return ts
}
