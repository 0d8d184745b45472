package dispatch

import (
	"errors"
	"fmt"

	"github.com/zero-day-ai/sarcasm/tool"
)

var (
	// ErrDuplicateTool is returned when two tools share a name.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrInvalidTool is returned for a nil tool or one missing required metadata.
	ErrInvalidTool = errors.New("invalid tool")
)

// Registry is an immutable, ordered set of tools keyed by exact name.
type Registry struct {
	tools []tool.Tool
	index map[string]tool.Tool
}

// NewRegistry builds a registry from tools in the given order.
func NewRegistry(tools ...tool.Tool) (*Registry, error) {
	r := &Registry{
		tools: make([]tool.Tool, 0, len(tools)),
		index: make(map[string]tool.Tool, len(tools)),
	}

	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("%w: tool %d is nil", ErrInvalidTool, i)
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: tool %d has no name", ErrInvalidTool, i)
		}
		if t.Description() == "" {
			return nil, fmt.Errorf("%w: %s has no description", ErrInvalidTool, name)
		}
		if t.InputSchema().Type != "object" {
			return nil, fmt.Errorf("%w: %s input schema must be an object", ErrInvalidTool, name)
		}
		if _, exists := r.index[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		r.index[name] = t
		r.tools = append(r.tools, t)
	}

	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (tool.Tool, bool) {
	t, ok := r.index[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Tools returns a copy of the registered tools in registration order.
func (r *Registry) Tools() []tool.Tool {
	return append([]tool.Tool(nil), r.tools...)
}

// Descriptors returns the public metadata of every tool in registration order.
func (r *Registry) Descriptors() []tool.Descriptor {
	out := make([]tool.Descriptor, len(r.tools))
	for i, t := range r.tools {
		out[i] = tool.ToDescriptor(t)
	}
	return out
}
