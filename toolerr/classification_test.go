package toolerr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrorClassConstants verifies all ErrorClass constants are defined
func TestErrorClassConstants(t *testing.T) {
	classes := []ErrorClass{
		ErrorClassInfrastructure,
		ErrorClassSemantic,
		ErrorClassTransient,
		ErrorClassPermanent,
	}

	expected := []string{
		"infrastructure",
		"semantic",
		"transient",
		"permanent",
	}

	for i, class := range classes {
		if string(class) != expected[i] {
			t.Errorf("ErrorClass[%d] = %q, want %q", i, class, expected[i])
		}
	}
}

func TestDefaultClassForCode(t *testing.T) {
	tests := []struct {
		code string
		want ErrorClass
	}{
		{ErrCodeInvalidInput, ErrorClassSemantic},
		{ErrCodeMalformedRequest, ErrorClassSemantic},
		{ErrCodeDependencyMissing, ErrorClassInfrastructure},
		{ErrCodeTimeout, ErrorClassTransient},
		{ErrCodeExecutionFailed, ErrorClassPermanent},
		{"SOMETHING_ELSE", ErrorClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultClassForCode(tt.code))
		})
	}
}

func TestErrorClass_IsRetryable(t *testing.T) {
	assert.True(t, ErrorClassTransient.IsRetryable())
	assert.True(t, ErrorClassInfrastructure.IsRetryable())
	assert.False(t, ErrorClassSemantic.IsRetryable())
	assert.False(t, ErrorClassPermanent.IsRetryable())
}

func TestRecoveryHint_JSON(t *testing.T) {
	hint := RecoveryHint{
		Strategy:    StrategyUseAlternative,
		Alternative: "search",
		Reason:      "fetch needs ids from search",
		Priority:    2,
	}

	data, err := json.Marshal(hint)
	require.NoError(t, err)

	var decoded RecoveryHint
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, hint, decoded)
	assert.Contains(t, string(data), `"alternative":"search"`)
}
