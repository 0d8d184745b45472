// Package dispatch implements the tool-dispatch protocol: an immutable
// registry of named, schema-described tools and a dispatcher that lists them
// and invokes them by name with keyword arguments.
//
//	reg, err := dispatch.NewRegistry(tools...)
//	d := dispatch.New(reg, dispatch.WithLogger(logger))
//
//	res, err := d.RunTool(ctx, "search", map[string]any{"query": "life"})
//	// res.Content == sarcasm.SearchResult{...}
//
// Unknown names produce a normal Result whose content is
// {"error": "Unknown tool: <name>. Shocking."}; transports must return it
// with a success status.
package dispatch
