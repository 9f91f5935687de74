package conversation

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"jan-server/services/conversation-api/internal/utils/idgen"
)

// ===============================================
// Conversation Validation
// ===============================================

// ConversationValidationConfig holds conversation-level validation rules
type ConversationValidationConfig struct {
	MaxTitleLength       int
	MaxMetadataKeys      int
	MaxMetadataKeyLength int
}

func DefaultConversationValidationConfig() *ConversationValidationConfig {
	return &ConversationValidationConfig{
		MaxTitleLength:       255,
		MaxMetadataKeys:      32,
		MaxMetadataKeyLength: 64,
	}
}

// ConversationValidator checks inputs before they reach storage.
type ConversationValidator struct {
	config             *ConversationValidationConfig
	structs            *validator.Validate
	metadataKeyPattern *regexp.Regexp
}

func NewConversationValidator(config *ConversationValidationConfig) *ConversationValidator {
	if config == nil {
		config = DefaultConversationValidationConfig()
	}
	return &ConversationValidator{
		config:             config,
		structs:            validator.New(validator.WithRequiredStructEnabled()),
		metadataKeyPattern: regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`),
	}
}

// ValidateStruct runs the `validate` tags of an input struct.
func (v *ConversationValidator) ValidateStruct(input any) error {
	return v.structs.Struct(input)
}

func (v *ConversationValidator) ValidateConversationID(id string) error {
	if !idgen.ValidateIDFormat(id, idgen.PrefixConversation) {
		return fmt.Errorf("invalid conversation id %q", id)
	}
	return nil
}

func (v *ConversationValidator) ValidateThreadID(id string) error {
	if !idgen.ValidateIDFormat(id, idgen.PrefixThread) {
		return fmt.Errorf("invalid thread id %q", id)
	}
	return nil
}

func (v *ConversationValidator) ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > v.config.MaxTitleLength {
		return fmt.Errorf("title exceeds %d characters", v.config.MaxTitleLength)
	}
	return nil
}

func (v *ConversationValidator) ValidateMetadata(metadata map[string]any) error {
	if len(metadata) > v.config.MaxMetadataKeys {
		return fmt.Errorf("metadata has %d keys, maximum is %d", len(metadata), v.config.MaxMetadataKeys)
	}
	for key := range metadata {
		if len(key) > v.config.MaxMetadataKeyLength {
			return fmt.Errorf("metadata key %q exceeds %d characters", key, v.config.MaxMetadataKeyLength)
		}
		if !v.metadataKeyPattern.MatchString(key) {
			return fmt.Errorf("metadata key %q contains invalid characters", key)
		}
	}
	return nil
}
