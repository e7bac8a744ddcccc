package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "known identifiers map to canonical tags",
			input:    []string{"quick", "main-dish"},
			expected: []string{"Quick (< 30 min)", "Main Dish"},
		},
		{
			name:     "wildcard identifiers are dropped",
			input:    []string{"any-cuisine", "quick", "any"},
			expected: []string{"Quick (< 30 min)"},
		},
		{
			name:     "unknown identifiers pass through unchanged",
			input:    []string{"Spicy Noodles", "dessert"},
			expected: []string{"Spicy Noodles", "Dessert"},
		},
		{
			name:     "blank entries are skipped",
			input:    []string{"", "  ", "easy"},
			expected: []string{"Easy"},
		},
		{
			name:     "mapping is case-insensitive",
			input:    []string{"QUICK", "Healthy"},
			expected: []string{"Quick (< 30 min)", "Healthy"},
		},
		{
			name:     "empty input yields empty output",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestHeuristicExpander(t *testing.T) {
	e := HeuristicExpander{}

	t.Run("quick expands to related phrases", func(t *testing.T) {
		out := e.Expand("Quick (< 30 min)")
		assert.Contains(t, out, "quick (< 30 min)")
		assert.Contains(t, out, "fast")
		assert.Contains(t, out, "weeknight")
		assert.Contains(t, out, "30 min")
	})

	t.Run("tag without synonyms returns itself only", func(t *testing.T) {
		out := e.Expand("Italian")
		assert.Equal(t, []string{"italian"}, out)
	})
}
