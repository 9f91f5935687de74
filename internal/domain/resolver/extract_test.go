package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type textOnly struct{ text string }

func (t textOnly) Text() string { return t.text }

type normalizedOutput struct {
	normalized any
	text       string
}

func (n normalizedOutput) Normalized() any { return n.normalized }
func (n normalizedOutput) Text() string    { return n.text }

type stringerOnly struct{}

func (stringerOnly) String() string { return "from stringer" }

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name         string
		output       any
		wantText     string
		wantStrategy ExtractStrategy
	}{
		{"plain string", "Sure, here's a plan", "Sure, here's a plan", ExtractPlainText},
		{"normalized chat message", normalizedOutput{normalized: ChatMessage{Role: "assistant", Content: "hello"}}, "hello", ExtractNormalized},
		{"normalized string", normalizedOutput{normalized: "hi"}, "hi", ExtractNormalized},
		{"normalized slice of maps", normalizedOutput{normalized: []map[string]any{{"text": "first"}, {"text": "second"}}}, "first", ExtractNormalized},
		{"normalized any slice", normalizedOutput{normalized: []any{map[string]any{"content": "c"}}}, "c", ExtractNormalized},
		{"normalized chat slice", normalizedOutput{normalized: []ChatMessage{{Content: "x"}}}, "x", ExtractNormalized},
		{"empty normalized falls to text accessor", normalizedOutput{normalized: []any{}, text: "accessor"}, "accessor", ExtractTextAccessor},
		{"text accessor", textOnly{text: "direct"}, "direct", ExtractTextAccessor},
		{"blank accessor falls through", textOnly{text: "  "}, "", ExtractNone},
		{"stringer", stringerOnly{}, "from stringer", ExtractStringer},
		{"blank string", "   ", "", ExtractNone},
		{"nil", nil, "", ExtractNone},
		{"unknown type", 42, "", ExtractNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, strategy := ExtractReply(tt.output)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantStrategy, strategy)
		})
	}
}

func TestDescribeShape(t *testing.T) {
	assert.Equal(t, "nil", describeShape(nil))
	assert.Equal(t, "int", describeShape(1))
	assert.Contains(t, describeShape(map[string]any{"choices": nil}), "choices")
}
