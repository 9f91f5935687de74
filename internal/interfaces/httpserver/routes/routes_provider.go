package routes

import (
	"github.com/google/wire"

	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers"
	v1 "jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/chat"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/session"
)

var RouteProvider = wire.NewSet(
	// Handlers
	handlers.HandlerProvider,

	// Routes
	v1.NewV1Route,
	chat.NewChatCompletionRoute,
	conversation.NewConversationRoute,
	conversation.NewThreadRoute,
	session.NewSessionRoute,
)
