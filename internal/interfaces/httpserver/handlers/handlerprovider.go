package handlers

import (
	"github.com/google/wire"

	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/chathandler"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/conversationhandler"
)

var HandlerProvider = wire.NewSet(
	chathandler.NewChatHandler,
	conversationhandler.NewConversationHandler,
	conversationhandler.NewThreadHandler,
)
