package resolver

import (
	"fmt"
	"strings"
)

// TextAccessor is implemented by provider outputs exposing their reply text directly.
type TextAccessor interface {
	Text() string
}

// Normalizer is implemented by provider outputs that can present a normalized view of
// their reply: a TextAccessor, a string, or a list whose first element carries the text.
type Normalizer interface {
	Normalized() any
}

type ExtractStrategy string

const (
	ExtractPlainText    ExtractStrategy = "plain_text"
	ExtractNormalized   ExtractStrategy = "normalized"
	ExtractTextAccessor ExtractStrategy = "text_accessor"
	ExtractStringer     ExtractStrategy = "stringer"
	ExtractNone         ExtractStrategy = "none"
)

// ChatMessage is a role/content pair exchanged with the provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (m ChatMessage) Text() string { return m.Content }

// ExtractReply derives reply text from a provider output. Strategies are tried in the
// order plain string, Normalizer, TextAccessor, fmt.Stringer and the first non-blank
// result wins. ExtractNone with an empty string means nothing matched.
func ExtractReply(output any) (string, ExtractStrategy) {
	if output == nil {
		return "", ExtractNone
	}
	if s, ok := output.(string); ok && !blank(s) {
		return s, ExtractPlainText
	}
	if n, ok := output.(Normalizer); ok {
		if text := textFromNormalized(n.Normalized()); !blank(text) {
			return text, ExtractNormalized
		}
	}
	if ta, ok := output.(TextAccessor); ok {
		if text := ta.Text(); !blank(text) {
			return text, ExtractTextAccessor
		}
	}
	if st, ok := output.(fmt.Stringer); ok {
		if text := st.String(); !blank(text) {
			return text, ExtractStringer
		}
	}
	return "", ExtractNone
}

func textFromNormalized(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case TextAccessor:
		return val.Text()
	case map[string]any:
		return textField(val)
	case []ChatMessage:
		if len(val) > 0 {
			return val[0].Content
		}
	case []TextAccessor:
		if len(val) > 0 && val[0] != nil {
			return val[0].Text()
		}
	case []map[string]any:
		if len(val) > 0 {
			return textField(val[0])
		}
	case []any:
		if len(val) > 0 {
			return textFromNormalized(val[0])
		}
	}
	return ""
}

func textField(m map[string]any) string {
	for _, key := range []string{"text", "content"} {
		if s, ok := m[key].(string); ok && !blank(s) {
			return s
		}
	}
	return ""
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// describeShape summarizes an unextractable output for diagnostics.
func describeShape(output any) string {
	switch v := output.(type) {
	case nil:
		return "nil"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		return fmt.Sprintf("%T keys=%v", v, keys)
	default:
		return fmt.Sprintf("%T", v)
	}
}
