package conversation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/conversationhandler"
	middleware "jan-server/services/conversation-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/requests"
	conversationrequests "jan-server/services/conversation-api/internal/interfaces/httpserver/requests/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

type ConversationRoute struct {
	handler *conversationhandler.ConversationHandler
}

func NewConversationRoute(handler *conversationhandler.ConversationHandler) *ConversationRoute {
	return &ConversationRoute{
		handler: handler,
	}
}

func (route *ConversationRoute) RegisterRouter(router gin.IRouter) {
	conversations := router.Group("/conversations")
	conversations.GET("", route.listConversations)
	conversations.POST("", route.createConversation)

	conversation := conversations.Group("/:conv_id", route.handler.ConversationMiddleware())
	conversation.GET("", route.getConversation)
	conversation.PATCH("", route.updateConversation)
	conversation.DELETE("", route.deleteConversation)
	conversation.POST("/resume", route.resumeConversation)
}

// listConversations godoc
// @Summary List conversations
// @Description Lists the caller's conversations, most recently updated first
// @Tags Conversations API
// @Produce json
// @Param limit query int false "Page size (default 50, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} conversationresponses.ConversationListResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid pagination"
// @Failure 403 {object} responses.ErrorResponse "Missing capability"
// @Router /v1/conversations [get]
func (route *ConversationRoute) listConversations(reqCtx *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "6a0f3d8e-2c71-4b95-8e4a-d1b7c0f5e392")
		return
	}

	pagination, err := requests.GetPaginationFromQuery(reqCtx)
	if err != nil {
		responses.HandleError(reqCtx, err, "Invalid pagination")
		return
	}

	response, err := route.handler.ListConversations(reqCtx.Request.Context(), principal, pagination)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to list conversations")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// createConversation godoc
// @Summary Create a conversation
// @Description Creates a conversation with a root thread seeded with the given messages and makes it the session's active conversation
// @Tags Conversations API
// @Accept json
// @Produce json
// @Param request body conversationrequests.CreateConversationRequest true "Create conversation request"
// @Success 201 {object} conversationresponses.CreateConversationResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 403 {object} responses.ErrorResponse "Missing capability"
// @Router /v1/conversations [post]
func (route *ConversationRoute) createConversation(reqCtx *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "b8e2c4f1-07d3-4a96-9c5e-3f1a8d0b7e64")
		return
	}

	var req conversationrequests.CreateConversationRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "f03c7a92-5e1d-4b68-a2f4-8d6e0c9b1a35")
		return
	}

	response, err := route.handler.CreateConversation(reqCtx.Request.Context(), principal, middleware.SessionIDFromContext(reqCtx), req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to create conversation")
		return
	}
	reqCtx.JSON(http.StatusCreated, response)
}

// getConversation godoc
// @Summary Get a conversation
// @Tags Conversations API
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Success 200 {object} conversationresponses.ConversationResponse
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/conversations/{conv_id} [get]
func (route *ConversationRoute) getConversation(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	response, err := route.handler.GetConversation(reqCtx.Request.Context(), principal, conv)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to get conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// updateConversation godoc
// @Summary Update a conversation
// @Description Patches title, provider, model, temperature, max_tokens, metadata and the default thread
// @Tags Conversations API
// @Accept json
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param request body conversationrequests.UpdateConversationRequest true "Update conversation request"
// @Success 200 {object} conversationresponses.ConversationResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/conversations/{conv_id} [patch]
func (route *ConversationRoute) updateConversation(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	var req conversationrequests.UpdateConversationRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "9d4b1e07-c3a8-4f52-b6e0-2a7f5c8d3e19")
		return
	}

	response, err := route.handler.UpdateConversation(reqCtx.Request.Context(), principal, conv, req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to update conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// deleteConversation godoc
// @Summary Delete a conversation
// @Description Deletes the conversation and all of its threads
// @Tags Conversations API
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Success 200 {object} responses.DeletedResponse
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/conversations/{conv_id} [delete]
func (route *ConversationRoute) deleteConversation(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	response, err := route.handler.DeleteConversation(reqCtx.Request.Context(), principal, middleware.SessionIDFromContext(reqCtx), conv)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to delete conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// resumeConversation godoc
// @Summary Resume a conversation
// @Description Attaches the session to the conversation's default thread, or its newest thread
// @Tags Conversations API
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Success 200 {object} conversationresponses.SessionResponse
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/conversations/{conv_id}/resume [post]
func (route *ConversationRoute) resumeConversation(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	response, err := route.handler.ResumeConversation(reqCtx.Request.Context(), principal, middleware.SessionIDFromContext(reqCtx), conv)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to resume conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}
