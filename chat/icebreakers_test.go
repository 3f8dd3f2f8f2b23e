package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIcebreakers(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected []string
	}{
		{
			name:     "numbered list with blank line",
			response: "1. Favorite food?\n\n2. Travel plans?",
			expected: []string{"1. Favorite food?", "2. Travel plans?"},
		},
		{
			name:     "whitespace-only lines discarded",
			response: "1. One\n   \n\t\n2. Two\n",
			expected: []string{"1. One", "2. Two"},
		},
		{
			name:     "empty response",
			response: "",
			expected: nil,
		},
		{
			name:     "unnumbered lines kept as-is",
			response: "What is your favorite song?",
			expected: []string{"What is your favorite song?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseIcebreakers(tt.response))
		})
	}
}

func TestStripNumberPrefix(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{
			name:     "number with space",
			line:     "1. Favorite food?",
			expected: "Favorite food?",
		},
		{
			name:     "number without space",
			line:     "12.Two digits",
			expected: "Two digits",
		},
		{
			name:     "no prefix",
			line:     "Favorite food?",
			expected: "Favorite food?",
		},
		{
			name:     "number mid-line untouched",
			line:     "Top 3. things?",
			expected: "Top 3. things?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripNumberPrefix(tt.line))
		})
	}
}
