// Package flags provides a configuration-backed feature flag adapter.
package flags

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// Static implements ports.FeatureFlags from a fixed value map.
// Values come from configuration at startup; there are no runtime updates.
type Static struct {
	values map[string]any
}

// compile-time interface check
var _ ports.FeatureFlags = (*Static)(nil)

// NewStatic creates a static flag provider from the given values.
// A nil map is valid and yields defaults for every flag.
func NewStatic(values map[string]any) *Static {
	if values == nil {
		values = make(map[string]any)
	}

	return &Static{values: values}
}

// NewStaticBools creates a static flag provider from boolean flag values.
func NewStaticBools(values map[string]bool) *Static {
	converted := make(map[string]any, len(values))
	for k, v := range values {
		converted[k] = v
	}

	return &Static{values: converted}
}

// IsEnabled implements ports.FeatureFlags.
func (s *Static) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	if v, ok := s.values[flag].(bool); ok {
		return v
	}

	return defaultValue
}

// GetString implements ports.FeatureFlags.
func (s *Static) GetString(_ context.Context, flag string, defaultValue string) string {
	if v, ok := s.values[flag].(string); ok {
		return v
	}

	return defaultValue
}

// GetInt implements ports.FeatureFlags.
func (s *Static) GetInt(_ context.Context, flag string, defaultValue int) int {
	switch v := s.values[flag].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// GetFloat implements ports.FeatureFlags.
func (s *Static) GetFloat(_ context.Context, flag string, defaultValue float64) float64 {
	switch v := s.values[flag].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// GetJSON implements ports.FeatureFlags.
func (s *Static) GetJSON(_ context.Context, flag string, target any) error {
	v, ok := s.values[flag]
	if !ok {
		return fmt.Errorf("flag %q not found", flag)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding flag %q: %w", flag, err)
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("decoding flag %q: %w", flag, err)
	}

	return nil
}
