package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_Rules(t *testing.T) {
	low, high := -0.1, 0.5
	neg := -2

	vr := NewResult()
	vr.NonEmpty("name", "   ")
	vr.Range("occupancy", &low, 0, 1)
	vr.Range("capRate", &high, 0, 1)
	vr.Range("missing", nil, 0, 1)
	vr.NonNegative("units", &neg)
	vr.Date("offerDate", "03/01/2025")
	vr.Date("closeDate", "")

	assert.False(t, vr.Valid)
	assert.True(t, vr.HasErrors("name"))
	assert.True(t, vr.HasErrors("occupancy"))
	assert.False(t, vr.HasErrors("capRate"))
	assert.False(t, vr.HasErrors("missing"))
	assert.True(t, vr.HasErrors("units"))
	assert.Equal(t, CodeInvalidDate, vr.GetErrorsForField("offerDate")[0].Code)
	assert.False(t, vr.HasErrors("closeDate"))
	assert.Len(t, vr.GetErrorMessages(), 4)
	assert.Len(t, vr.FieldIssues(), 4)
}

func TestValidationResult_Merge(t *testing.T) {
	a := NewResult()
	b := NewResult()
	b.Required("boundary", false)

	a.Merge(b)
	a.Merge(nil)

	assert.False(t, a.Valid)
	assert.Equal(t, CodeRequired, a.Errors[0].Code)
}

func TestValidateDocument(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"required": ["name", "boundary"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"boundary": {"type": "object"}
		}
	}`)

	t.Run("valid", func(t *testing.T) {
		vr, err := ValidateDocument(schema, map[string]interface{}{
			"name":     "Test A",
			"boundary": map[string]interface{}{"type": "Point"},
		})
		require.NoError(t, err)
		assert.True(t, vr.Valid)
	})

	t.Run("missing required", func(t *testing.T) {
		vr, err := ValidateDocument(schema, map[string]interface{}{"name": "Test A"})
		require.NoError(t, err)
		assert.False(t, vr.Valid)
		assert.True(t, vr.HasErrors("boundary"))
	})

	t.Run("broken schema", func(t *testing.T) {
		_, err := ValidateDocument([]byte(`{"type": 12}`), map[string]interface{}{})
		assert.Error(t, err)
	})
}
