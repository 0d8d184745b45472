// Package tool provides the Tool interface and a builder for schema-described tools.
//
// A Tool has a unique name, a display title, a description surfaced verbatim
// to callers, an object input schema, and an Execute function returning either
// a string or a JSON-like structured value.
//
// # Usage
//
//	motivation := tool.MustNew(tool.NewConfig().
//		SetName("motivation").
//		SetTitle("Motivation").
//		SetDescription("Provides the best motivation.").
//		SetInputSchema(schema.Object(map[string]schema.JSON{
//			"name": schema.String().WithDefault("Human"),
//		})).
//		SetExecuteFunc(func(ctx context.Context, args map[string]any) (any, error) {
//			return "Oh look, " + args["name"].(string) + " wants motivation. Adorable.", nil
//		}))
//
// Descriptor is the serializable snapshot returned by tool listings; it never
// carries the handler.
package tool
