package sarcasm

import (
	"context"

	"github.com/zero-day-ai/sarcasm/input"
	"github.com/zero-day-ai/sarcasm/schema"
	"github.com/zero-day-ai/sarcasm/tool"
	"github.com/zero-day-ai/sarcasm/toolerr"
)

// Default argument values.
const (
	DefaultName     = "Human"
	DefaultQuestion = ""
	DefaultLanguage = "Whatever You're Using"
)

// Tag values attached to tools; the exposure filter can match on them.
const (
	TagConnector = "connector"
	TagClassic   = "classic"
	TagCatalog   = "catalog"
)

// Motivation builds a motivation tool. The connector and classic profiles
// register it under different names.
func Motivation(name, title, description, tag string, src Source) tool.Tool {
	return tool.MustNew(tool.NewConfig().
		SetName(name).
		SetTitle(title).
		SetDescription(description).
		SetTags(tag).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"name": schema.StringWithDesc("Who needs motivating").WithDefault(DefaultName),
		})).
		SetExecuteFunc(func(_ context.Context, args map[string]any) (any, error) {
			return pick(src, motivationLines(input.GetString(args, "name", DefaultName))), nil
		}))
}

// Answer builds a tool that declines to answer questions.
func Answer(name, title, description, tag string, src Source) tool.Tool {
	return tool.MustNew(tool.NewConfig().
		SetName(name).
		SetTitle(title).
		SetDescription(description).
		SetTags(tag).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"question": schema.StringWithDesc("The question to not answer").WithDefault(DefaultQuestion),
		})).
		SetExecuteFunc(func(_ context.Context, args map[string]any) (any, error) {
			return pick(src, answerLines(input.GetString(args, "question", DefaultQuestion))), nil
		}))
}

// Tips builds a tool that hands out one of the fixed tips. It takes no arguments.
func Tips(name, title, description, tag string, src Source) tool.Tool {
	return tool.MustNew(tool.NewConfig().
		SetName(name).
		SetTitle(title).
		SetDescription(description).
		SetTags(tag).
		SetExecuteFunc(func(context.Context, map[string]any) (any, error) {
			return pick(src, tipLines), nil
		}))
}

// Roast builds the roast_code_quality tool.
func Roast(src Source) tool.Tool {
	return tool.MustNew(tool.NewConfig().
		SetName("roast_code_quality").
		SetTitle("Code roast").
		SetDescription("Roasts the quality of code written in the given language.").
		SetTags(TagClassic).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"language": schema.StringWithDesc("Programming language to roast").WithDefault(DefaultLanguage),
		})).
		SetExecuteFunc(func(_ context.Context, args map[string]any) (any, error) {
			return pick(src, roastLines(input.GetString(args, "language", DefaultLanguage))), nil
		}))
}

// Search builds the search tool over catalog.
func Search(catalog *Catalog) tool.Tool {
	return tool.MustNew(tool.NewConfig().
		SetName("search").
		SetTitle("Search").
		SetDescription("Search for documents or items by query.").
		SetTags(TagCatalog).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"query": schema.StringWithDesc("Case-insensitive title substring"),
		}, "query")).
		SetExecuteFunc(func(_ context.Context, args map[string]any) (any, error) {
			return catalog.Search(input.GetString(args, "query", "")), nil
		}))
}

// Fetch builds the fetch tool over catalog.
func Fetch(catalog *Catalog) tool.Tool {
	return tool.MustNew(tool.NewConfig().
		SetName("fetch").
		SetTitle("Fetch").
		SetDescription("Fetch full content of documents by ID.").
		SetTags(TagCatalog).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"ids": schema.Array(schema.String()).WithDescription("Document ids to fetch"),
		}, "ids")).
		SetExecuteFunc(func(_ context.Context, args map[string]any) (any, error) {
			ids, err := input.GetStringSlice(args, "ids")
			if err != nil {
				return nil, toolerr.InvalidInput("fetch", err)
			}
			return catalog.Fetch(ids), nil
		}))
}
