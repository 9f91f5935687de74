package conversation

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/identity"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/conversationhandler"
	middleware "jan-server/services/conversation-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// fromContext returns the principal and the conversation loaded by the conversation
// middleware, writing the error response when either is missing.
func fromContext(reqCtx *gin.Context) (identity.Principal, *conversation.Conversation, bool) {
	principal, ok := middleware.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "47c9e2a0-1b6d-4f83-9e5a-c0d8b3f7a216")
		return identity.Principal{}, nil, false
	}
	conv, ok := conversationhandler.GetConversationFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeInternal, "conversation not found in context", "5e7d2b94-0a6c-4f18-b3d9-8c1e6f0a2d57")
		return identity.Principal{}, nil, false
	}
	return principal, conv, true
}
