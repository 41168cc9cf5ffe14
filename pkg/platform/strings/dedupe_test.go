package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{
			name:     "trims broker addresses",
			input:    []string{" kafka-1:9092", "kafka-2:9092 "},
			expected: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:     "keeps first occurrence",
			input:    []string{"kafka-2:9092", "kafka-1:9092", "kafka-2:9092"},
			expected: []string{"kafka-2:9092", "kafka-1:9092"},
		},
		{
			name:     "blank entries from trailing separators",
			input:    []string{"kafka-1:9092", "", "  "},
			expected: []string{"kafka-1:9092"},
		},
		{
			name:     "only blanks",
			input:    []string{" ", ""},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
