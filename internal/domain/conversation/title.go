package conversation

import "jan-server/services/conversation-api/internal/utils/stringutils"

const (
	DefaultTitleMaxLength = 50
	FallbackTitle         = "New Conversation"
)

// GenerateTitle derives a label from the first user message. maxLength <= 0 means DefaultTitleMaxLength.
func GenerateTitle(messages []Message, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultTitleMaxLength
	}

	first, ok := MessageLog(messages).FirstByRole(RoleUser)
	if !ok {
		return FallbackTitle
	}

	title := stringutils.CleanTitle(first.Content, maxLength)
	if title == "" {
		return FallbackTitle
	}
	return title
}
