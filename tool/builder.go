package tool

import (
	"context"
	"errors"

	"github.com/zero-day-ai/sarcasm/schema"
)

// ExecuteFunc is a function that implements the tool's execution logic.
type ExecuteFunc func(ctx context.Context, args map[string]any) (any, error)

// Config holds the configuration for building a Tool.
type Config struct {
	name        string
	title       string
	description string
	tags        []string
	inputSchema schema.JSON
	executeFunc ExecuteFunc
}

// NewConfig creates a new Config with an empty object input schema.
func NewConfig() *Config {
	return &Config{
		tags:        []string{},
		inputSchema: schema.Object(nil),
	}
}

// SetName sets the tool name.
func (c *Config) SetName(name string) *Config {
	c.name = name
	return c
}

// SetTitle sets the human-readable title.
func (c *Config) SetTitle(title string) *Config {
	c.title = title
	return c
}

// SetDescription sets the tool description.
func (c *Config) SetDescription(desc string) *Config {
	c.description = desc
	return c
}

// SetTags sets the tool tags.
func (c *Config) SetTags(tags ...string) *Config {
	c.tags = tags
	return c
}

// SetInputSchema sets the input schema.
func (c *Config) SetInputSchema(s schema.JSON) *Config {
	c.inputSchema = s
	return c
}

// SetExecuteFunc sets the execution function.
func (c *Config) SetExecuteFunc(fn ExecuteFunc) *Config {
	c.executeFunc = fn
	return c
}

// funcTool is the Tool implementation produced by New.
type funcTool struct {
	name        string
	title       string
	description string
	tags        []string
	inputSchema schema.JSON
	executeFunc ExecuteFunc
}

// New creates a new Tool from the provided Config.
// Returns an error if required fields (name, description, executeFunc) are missing
// or the input schema is not an object schema.
func New(cfg *Config) (Tool, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.name == "" {
		return nil, errors.New("tool name is required")
	}

	if cfg.description == "" {
		return nil, errors.New("tool description is required")
	}

	if cfg.executeFunc == nil {
		return nil, errors.New("execute function is required")
	}

	if cfg.inputSchema.Type != "object" {
		return nil, errors.New("input schema must be an object schema")
	}

	title := cfg.title
	if title == "" {
		title = cfg.name
	}

	return &funcTool{
		name:        cfg.name,
		title:       title,
		description: cfg.description,
		tags:        cfg.tags,
		inputSchema: cfg.inputSchema,
		executeFunc: cfg.executeFunc,
	}, nil
}

// MustNew is like New but panics on error. It is intended for static tool
// tables built at program start.
func MustNew(cfg *Config) Tool {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *funcTool) Name() string {
	return t.name
}

func (t *funcTool) Title() string {
	return t.title
}

func (t *funcTool) Description() string {
	return t.description
}

func (t *funcTool) Tags() []string {
	return t.tags
}

func (t *funcTool) InputSchema() schema.JSON {
	return t.inputSchema
}

// Execute runs the tool's execution function. Validation is the caller's job;
// the dispatcher applies defaults and validates before calling in.
func (t *funcTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.executeFunc(ctx, args)
}
