package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	schema := String()

	if schema.Type != "string" {
		t.Errorf("expected Type to be 'string', got %q", schema.Type)
	}

	if err := schema.Validate("hello"); err != nil {
		t.Errorf("expected valid string, got error: %v", err)
	}

	if err := schema.Validate(123); err == nil {
		t.Error("expected error for integer, got nil")
	}
	if err := schema.Validate(true); err == nil {
		t.Error("expected error for boolean, got nil")
	}
}

func TestStringWithDesc(t *testing.T) {
	desc := "Who needs motivating"
	schema := StringWithDesc(desc)

	if schema.Type != "string" {
		t.Errorf("expected Type to be 'string', got %q", schema.Type)
	}
	if schema.Description != desc {
		t.Errorf("expected Description to be %q, got %q", desc, schema.Description)
	}
}

func TestNumericTypes(t *testing.T) {
	tests := []struct {
		name    string
		schema  JSON
		value   any
		wantErr bool
	}{
		{"int accepts int", Int(), 42, false},
		{"int accepts whole float", Int(), float64(42), false},
		{"int rejects fraction", Int(), 4.2, true},
		{"int rejects string", Int(), "42", true},
		{"number accepts float", Number(), 4.2, false},
		{"number accepts uint", Number(), uint8(4), false},
		{"number rejects bool", Number(), true, true},
		{"bool accepts bool", Bool(), false, false},
		{"bool rejects string", Bool(), "false", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArray(t *testing.T) {
	schema := Array(String())

	require.NotNil(t, schema.Items)
	assert.Equal(t, "array", schema.Type)
	assert.Equal(t, "string", schema.Items.Type)

	assert.NoError(t, schema.Validate([]any{"1", "2"}))
	assert.NoError(t, schema.Validate([]string{"1"}))
	assert.NoError(t, schema.Validate([]any{}))

	err := schema.Validate([]any{"1", 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")

	assert.Error(t, schema.Validate("1,2"))
}

func TestObject(t *testing.T) {
	schema := Object(map[string]JSON{
		"query": String(),
		"limit": Int(),
	}, "query")

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"query"}, schema.Required)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, schema.Validate(map[string]any{"query": "life"}))
	})

	t.Run("missing required", func(t *testing.T) {
		err := schema.Validate(map[string]any{"limit": 3})
		require.Error(t, err)
		assert.Equal(t, "required field query is missing", err.Error())
	})

	t.Run("wrong property type", func(t *testing.T) {
		err := schema.Validate(map[string]any{"query": 7})
		require.Error(t, err)
		assert.Equal(t, "property query: expected string, got int", err.Error())
	})

	t.Run("null property", func(t *testing.T) {
		err := schema.Validate(map[string]any{"query": nil})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "got nil")
	})

	t.Run("undeclared properties ignored", func(t *testing.T) {
		assert.NoError(t, schema.Validate(map[string]any{"query": "x", "extra": true}))
	})

	t.Run("not an object", func(t *testing.T) {
		assert.Error(t, schema.Validate([]any{"query"}))
		assert.Error(t, schema.Validate(map[int]any{1: "x"}))
	})
}

func TestObjectNilProperties(t *testing.T) {
	schema := Object(nil)

	require.NotNil(t, schema.Properties)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object"}`, string(data))
	assert.NoError(t, schema.Validate(map[string]any{}))
}

func TestEnum(t *testing.T) {
	schema := Enum("connector", "classic")

	assert.NoError(t, schema.Validate("classic"))
	assert.Error(t, schema.Validate("modern"))
}

func TestStringLength(t *testing.T) {
	minLen, maxLen := 1, 3
	schema := String()
	schema.MinLength = &minLen
	schema.MaxLength = &maxLen

	assert.NoError(t, schema.Validate("ab"))
	assert.Error(t, schema.Validate(""))
	assert.Error(t, schema.Validate("abcd"))
}

func TestApplyDefaults(t *testing.T) {
	schema := Object(map[string]JSON{
		"name":     String().WithDefault("Human"),
		"question": String().WithDefault(""),
		"ids":      Array(String()),
	})

	t.Run("fills absent", func(t *testing.T) {
		got := schema.ApplyDefaults(nil)
		assert.Equal(t, map[string]any{"name": "Human", "question": ""}, got)
	})

	t.Run("keeps provided values", func(t *testing.T) {
		got := schema.ApplyDefaults(map[string]any{"name": "Dave", "ids": []any{"1"}})
		assert.Equal(t, "Dave", got["name"])
		assert.Equal(t, []any{"1"}, got["ids"])
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := map[string]any{}
		_ = schema.ApplyDefaults(in)
		assert.Empty(t, in)
	})

	t.Run("empty string default applied", func(t *testing.T) {
		got := schema.ApplyDefaults(map[string]any{})
		_, ok := got["question"]
		assert.True(t, ok, "empty-string default should be applied")
	})
}

func TestPropertyNames(t *testing.T) {
	schema := Object(map[string]JSON{
		"b": String(),
		"a": String(),
		"c": String(),
	})

	assert.Equal(t, []string{"a", "b", "c"}, schema.PropertyNames())
}

func TestValidateNil(t *testing.T) {
	if err := (JSON{}).Validate(nil); err != nil {
		t.Errorf("expected nil to be valid for untyped schema, got %v", err)
	}
	if err := String().Validate(nil); err == nil {
		t.Error("expected error for nil string")
	}
}

func TestMarshal(t *testing.T) {
	schema := Object(map[string]JSON{
		"name": StringWithDesc("Who").WithDefault("Human"),
	})

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"name":{"type":"string","description":"Who","default":"Human"}}}`, string(data))
}
