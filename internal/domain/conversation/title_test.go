package conversation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		maxLen   int
		want     string
	}{
		{
			name:     "collapses whitespace",
			messages: []Message{{Role: RoleUser, Content: "  Hello   world  "}},
			want:     "Hello world",
		},
		{
			name:     "no messages",
			messages: nil,
			want:     FallbackTitle,
		},
		{
			name:     "no user message",
			messages: []Message{{Role: RoleAssistant, Content: "Welcome"}},
			want:     FallbackTitle,
		},
		{
			name: "first user message wins",
			messages: []Message{
				{Role: RoleAssistant, Content: "Welcome"},
				{Role: RoleUser, Content: "Plan my trip to Rome"},
				{Role: RoleUser, Content: "Second"},
			},
			want: "Plan my trip to Rome",
		},
		{
			name:     "markup only",
			messages: []Message{{Role: RoleUser, Content: "<p>   </p>"}},
			want:     FallbackTitle,
		},
		{
			name:     "custom length",
			messages: []Message{{Role: RoleUser, Content: "abcdefghijk"}},
			maxLen:   8,
			want:     "abcde...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateTitle(tt.messages, tt.maxLen))
		})
	}
}

func TestGenerateTitle_LongContent(t *testing.T) {
	content := strings.Repeat("word ", 30)
	got := GenerateTitle([]Message{{Role: RoleUser, Content: content}}, 0)

	assert.LessOrEqual(t, utf8.RuneCountInString(got), DefaultTitleMaxLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}
