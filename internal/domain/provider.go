package domain

import (
	"github.com/google/wire"

	"jan-server/services/conversation-api/internal/config"
	"jan-server/services/conversation-api/internal/domain/access"
	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/resolver"
)

// ServiceProvider provides all domain services
var ServiceProvider = wire.NewSet(
	ProvideClock,

	// Conversation domain
	ProvideConversationServiceConfig,
	conversation.NewThreadService,
	conversation.NewConversationService,

	// Access control
	ProvideCapabilityChecker,
	access.NewPolicy,

	// Turn capture
	resolver.NewResolver,
)

func ProvideClock() conversation.Clock {
	return conversation.SystemClock
}

func ProvideConversationServiceConfig(cfg *config.Config) conversation.ConversationServiceConfig {
	return conversation.ConversationServiceConfig{
		TitleMaxLength:   cfg.TitleMaxLength,
		DefaultListLimit: cfg.ListDefaultLimit,
	}
}

func ProvideCapabilityChecker() access.CapabilityChecker {
	return access.ScopeChecker{}
}
