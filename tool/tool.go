package tool

import (
	"context"

	"github.com/zero-day-ai/sarcasm/schema"
)

// Tool is a named, schema-described callable exposed through the dispatch protocol.
type Tool interface {
	// Name returns the unique identifier for this tool. Lookups are case-sensitive.
	Name() string

	// Title returns a human-readable label. It has no semantic effect.
	Title() string

	// Description returns the text surfaced verbatim to callers for self-discovery.
	Description() string

	// Tags returns labels used by exposure filters.
	Tags() []string

	// InputSchema describes the accepted arguments, including per-parameter defaults.
	InputSchema() schema.JSON

	// Execute runs the tool with arguments that already had defaults applied
	// and passed InputSchema validation. The result is a string or a
	// JSON-like structured value.
	Execute(ctx context.Context, args map[string]any) (any, error)
}
