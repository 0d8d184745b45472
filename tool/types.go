package tool

import "github.com/zero-day-ai/sarcasm/schema"

// Descriptor describes a tool's metadata.
// It provides a snapshot of a tool's configuration without the execution logic.
type Descriptor struct {
	// Name is the unique identifier for the tool.
	Name string `json:"name"`

	// Title is the human-readable label.
	Title string `json:"title,omitempty"`

	// Description is a human-readable description of what the tool does.
	Description string `json:"description"`

	// Tags are labels for categorizing and filtering the tool.
	Tags []string `json:"tags,omitempty"`

	// InputSchema describes the accepted arguments.
	InputSchema schema.JSON `json:"input_schema"`
}

// ToDescriptor converts a Tool to its Descriptor.
// This extracts the metadata from a Tool without including the execution logic.
func ToDescriptor(t Tool) Descriptor {
	return Descriptor{
		Name:        t.Name(),
		Title:       t.Title(),
		Description: t.Description(),
		Tags:        t.Tags(),
		InputSchema: t.InputSchema(),
	}
}
