package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLog_EncodeDecodeRoundTrip(t *testing.T) {
	log := MessageLog{
		{ID: "m1", Role: RoleUser, Content: "Hello <b>there</b>", Timestamp: 1714564800, Metadata: map[string]any{}},
		{
			ID:         "m2",
			Role:       RoleAssistant,
			Content:    "Hi!\nHow can I help?",
			Timestamp:  1714564805,
			AIProvider: "openai",
			AIModel:    "gpt-4o-mini",
			Metadata:   map[string]any{"tokens": json.Number("12345678901234567"), "finish_reason": "stop"},
		},
	}

	data, err := log.Encode()
	require.NoError(t, err)

	decoded, err := DecodeMessageLog(data)
	require.NoError(t, err)
	assert.Equal(t, log, decoded)
}

func TestDecodeMessageLog_Empty(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "[]"} {
		log, err := DecodeMessageLog([]byte(raw))
		require.NoError(t, err, raw)
		assert.Empty(t, log, raw)
	}
}

func TestDecodeMessageLog_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"bad role":       `[{"id":"a","role":"system","content":"x","timestamp":1}]`,
		"missing id":     `[{"role":"user","content":"x","timestamp":1}]`,
		"duplicate id":   `[{"id":"a","role":"user","content":"x","timestamp":1},{"id":"a","role":"assistant","content":"y","timestamp":2}]`,
		"object not arr": `{"id":"a"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMessageLog([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestMessageLog_PrefixThrough(t *testing.T) {
	log := MessageLog{
		{ID: "a", Role: RoleUser, Metadata: map[string]any{"k": "v"}},
		{ID: "b", Role: RoleAssistant},
		{ID: "c", Role: RoleUser},
	}

	prefix, ok := log.PrefixThrough("b")
	require.True(t, ok)
	assert.Equal(t, log[:2], prefix)

	prefix[0].Metadata["k"] = "changed"
	prefix = append(prefix, Message{ID: "z", Role: RoleUser})
	assert.Equal(t, "v", log[0].Metadata["k"])
	assert.Equal(t, "c", log[2].ID)

	_, ok = log.PrefixThrough("missing")
	assert.False(t, ok)
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		m := NewMessage(RoleUser, "x", 1, "", "", nil)
		require.False(t, seen[m.ID])
		seen[m.ID] = true
	}
}
