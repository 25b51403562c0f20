package framework

import (
	"fmt"
	"sort"
	"strings"
)

// RenderToolCatalog converts tool definitions into the prompt block agents
// hand to the model.
func RenderToolCatalog(tools []Tool) string {
	if len(tools) == 0 {
		return "No tools available."
	}
	var b strings.Builder
	for _, tool := range tools {
		b.WriteString(fmt.Sprintf("- %s: %s", tool.Name(), tool.Description()))
		if params := describeSchema(tool.InputSchema()); params != "" {
			b.WriteString(" (input: " + params + ")")
		}
		b.WriteRune('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// describeSchema flattens a JSON-schema-like map into "name: description"
// fragments. Only the top-level properties are rendered.
func describeSchema(schema map[string]any) string {
	if len(schema) == 0 {
		return ""
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		if desc, ok := schema["description"].(string); ok {
			return desc
		}
		return ""
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		fragment := name
		if prop, ok := props[name].(map[string]any); ok {
			if desc, ok := prop["description"].(string); ok && desc != "" {
				fragment += ": " + desc
			}
		}
		parts = append(parts, fragment)
	}
	return strings.Join(parts, "; ")
}
