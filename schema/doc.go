// Package schema provides the JSON Schema subset used to describe tool arguments.
//
// Schemas are plain values built with constructors and marshal directly to the
// JSON Schema documents that tool listings and MCP clients consume.
//
// # Basic Usage
//
//	args := schema.Object(map[string]schema.JSON{
//		"name": schema.StringWithDesc("Who needs motivating").WithDefault("Human"),
//		"ids":  schema.Array(schema.String()),
//	}, "ids")
//
// # Defaults and Validation
//
// ApplyDefaults fills in absent properties that declare a default; Validate
// checks types, required fields, enums, string lengths and array items:
//
//	filled := args.ApplyDefaults(map[string]any{"ids": []any{"1"}})
//	if err := args.Validate(filled); err != nil {
//		return err
//	}
//
// Undeclared object properties are accepted and ignored.
package schema
