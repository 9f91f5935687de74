package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/chathandler"
	middleware "jan-server/services/conversation-api/internal/interfaces/httpserver/middlewares"
	chatrequests "jan-server/services/conversation-api/internal/interfaces/httpserver/requests/chat"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// ChatCompletionRoute handles chat completion requests by delegating to the chat handler.
type ChatCompletionRoute struct {
	chatHandler *chathandler.ChatHandler
	logger      zerolog.Logger
}

func NewChatCompletionRoute(chatHandler *chathandler.ChatHandler, logger zerolog.Logger) *ChatCompletionRoute {
	return &ChatCompletionRoute{
		chatHandler: chatHandler,
		logger:      logger,
	}
}

func (chatCompletionRoute *ChatCompletionRoute) RegisterRouter(router gin.IRouter) {
	chat := router.Group("/chat")
	chat.POST("/completions", chatCompletionRoute.PostCompletion)
}

// PostCompletion
// @Summary Create a chat completion
// @Description Runs one chat turn and records it in a conversation.
// @Description
// @Description The turn is written to `conversation_id` when the caller owns it, else to the
// @Description session's active conversation, else to a new conversation titled from the message.
// @Description The provider sees the full thread history. Recording failures never fail the call.
// @Tags Chat Completions API
// @Accept json
// @Produce json
// @Param X-Session-Id header string false "Client session id"
// @Param request body chatrequests.ChatCompletionRequest true "Chat completion request"
// @Success 200 {object} chatresponses.ChatCompletionResponse "Completion with the conversation it was recorded in"
// @Failure 400 {object} responses.ErrorResponse "Invalid request payload"
// @Failure 401 {object} responses.ErrorResponse "Missing gateway identity"
// @Failure 502 {object} responses.ErrorResponse "Inference provider failure"
// @Router /v1/chat/completions [post]
func (chatCompletionRoute *ChatCompletionRoute) PostCompletion(reqCtx *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "81b47b8b-ddaa-4819-a7b4-a29042c60100")
		return
	}

	var request chatrequests.ChatCompletionRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "3e7a1c59-0b84-4d2f-a6e3-c9f5d8b02a71")
		return
	}

	chatCompletionRoute.logger.Info().
		Str("route", "/v1/chat/completions").
		Str("model", request.Model).
		Str("conversation_id", request.ConversationID).
		Int("messages", len(request.Messages)).
		Msg("chat completion request received")

	result, err := chatCompletionRoute.chatHandler.CreateChatCompletion(
		reqCtx.Request.Context(),
		principal,
		middleware.SessionIDFromContext(reqCtx),
		middleware.RequestIDFromContext(reqCtx),
		request,
	)
	if err != nil {
		responses.HandleError(reqCtx, err, "Chat completion failed")
		return
	}

	reqCtx.JSON(http.StatusOK, result)
}
