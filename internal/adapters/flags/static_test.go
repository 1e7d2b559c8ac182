package flags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_IsEnabled(t *testing.T) {
	ctx := context.Background()
	flags := NewStatic(map[string]any{
		"on":         true,
		"off":        false,
		"not-a-bool": "yes",
	})

	assert.True(t, flags.IsEnabled(ctx, "on", false))
	assert.False(t, flags.IsEnabled(ctx, "off", true))
	assert.True(t, flags.IsEnabled(ctx, "missing", true))
	assert.False(t, flags.IsEnabled(ctx, "missing", false))

	// Wrong type falls back to the default
	assert.True(t, flags.IsEnabled(ctx, "not-a-bool", true))
}

func TestStatic_NilMapUsesDefaults(t *testing.T) {
	ctx := context.Background()
	flags := NewStatic(nil)

	assert.True(t, flags.IsEnabled(ctx, "anything", true))
	assert.Equal(t, "fallback", flags.GetString(ctx, "anything", "fallback"))
	assert.Equal(t, 7, flags.GetInt(ctx, "anything", 7))
}

func TestStatic_NewStaticBools(t *testing.T) {
	ctx := context.Background()
	flags := NewStaticBools(map[string]bool{
		"caption-generation": true,
		"experimental":       false,
	})

	assert.True(t, flags.IsEnabled(ctx, "caption-generation", false))
	assert.False(t, flags.IsEnabled(ctx, "experimental", true))
}

func TestStatic_GetString(t *testing.T) {
	ctx := context.Background()
	flags := NewStatic(map[string]any{"mode": "gallery", "count": 3})

	assert.Equal(t, "gallery", flags.GetString(ctx, "mode", "default"))
	assert.Equal(t, "default", flags.GetString(ctx, "count", "default"))
}

func TestStatic_GetInt(t *testing.T) {
	ctx := context.Background()
	flags := NewStatic(map[string]any{
		"limit":      25,
		"from-json":  float64(50),
		"not-an-int": "10",
	})

	assert.Equal(t, 25, flags.GetInt(ctx, "limit", 1))
	// JSON-decoded numbers arrive as float64
	assert.Equal(t, 50, flags.GetInt(ctx, "from-json", 1))
	assert.Equal(t, 1, flags.GetInt(ctx, "not-an-int", 1))
}

func TestStatic_GetFloat(t *testing.T) {
	ctx := context.Background()
	flags := NewStatic(map[string]any{"ratio": 0.5, "whole": 2})

	assert.InDelta(t, 0.5, flags.GetFloat(ctx, "ratio", 1.0), 0.001)
	assert.InDelta(t, 2.0, flags.GetFloat(ctx, "whole", 1.0), 0.001)
	assert.InDelta(t, 1.0, flags.GetFloat(ctx, "missing", 1.0), 0.001)
}

func TestStatic_GetJSON(t *testing.T) {
	ctx := context.Background()
	flags := NewStatic(map[string]any{
		"thresholds": map[string]any{"min": 1, "max": 100},
	})

	t.Run("decodes into target struct", func(t *testing.T) {
		var target struct {
			Min int `json:"min"`
			Max int `json:"max"`
		}

		require.NoError(t, flags.GetJSON(ctx, "thresholds", &target))
		assert.Equal(t, 1, target.Min)
		assert.Equal(t, 100, target.Max)
	})

	t.Run("missing flag returns error", func(t *testing.T) {
		var target map[string]any

		err := flags.GetJSON(ctx, "missing", &target)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}
