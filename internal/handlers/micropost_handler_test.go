package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"single tag", "shipping #golang today", []string{"golang"}},
		{"multiple tags", "#go and #redis", []string{"go", "redis"}},
		{"duplicates collapse", "#go #go #go", []string{"go"}},
		{"no tags", "plain text", nil},
		{"bare hash", "issue # 42", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractHashtags(tt.content))
		})
	}
}
