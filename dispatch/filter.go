package dispatch

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"

	"github.com/zero-day-ai/sarcasm/tool"
)

// Filter is a compiled CEL expression selecting tools by name, title and tags.
//
//	name != "roast_code_quality"
//	"catalog" in tags
//	name.startsWith("answer")
type Filter struct {
	expr string
	prg  cel.Program
}

// NewFilter compiles expr. The expression must evaluate to a bool.
func NewFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, iss.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("invalid filter %q: must evaluate to bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}

	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against t.
func (f *Filter) Match(t tool.Tool) (bool, error) {
	tags := t.Tags()
	if tags == nil {
		tags = []string{}
	}

	out, _, err := f.prg.Eval(map[string]any{
		"name":  t.Name(),
		"title": t.Title(),
		"tags":  tags,
	})
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.expr, t.Name(), err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q on %s: non-bool result %v", f.expr, t.Name(), out.Value())
	}
	return matched, nil
}

// Apply returns the tools the filter matches, preserving order.
func (f *Filter) Apply(tools []tool.Tool) ([]tool.Tool, error) {
	out := make([]tool.Tool, 0, len(tools))
	for _, t := range tools {
		ok, err := f.Match(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// FilterTools applies expr to tools. An empty expression keeps every tool.
func FilterTools(expr string, tools []tool.Tool) ([]tool.Tool, error) {
	if expr == "" {
		return tools, nil
	}
	f, err := NewFilter(expr)
	if err != nil {
		return nil, err
	}
	return f.Apply(tools)
}
