package conversation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/conversationhandler"
	middleware "jan-server/services/conversation-api/internal/interfaces/httpserver/middlewares"
	conversationrequests "jan-server/services/conversation-api/internal/interfaces/httpserver/requests/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

type ThreadRoute struct {
	conversationHandler *conversationhandler.ConversationHandler
	threadHandler       *conversationhandler.ThreadHandler
}

func NewThreadRoute(
	conversationHandler *conversationhandler.ConversationHandler,
	threadHandler *conversationhandler.ThreadHandler,
) *ThreadRoute {
	return &ThreadRoute{
		conversationHandler: conversationHandler,
		threadHandler:       threadHandler,
	}
}

func (route *ThreadRoute) RegisterRouter(router gin.IRouter) {
	threads := router.Group("/conversations/:conv_id/threads", route.conversationHandler.ConversationMiddleware())
	threads.GET("", route.listThreads)
	threads.POST("", route.createThread)
	threads.GET("/:thread_id", route.getThread)
	threads.DELETE("/:thread_id", route.deleteThread)
	threads.POST("/:thread_id/branch", route.branchThread)
	threads.POST("/:thread_id/resume", route.resumeThread)
	threads.POST("/:thread_id/messages", route.appendMessage)
}

// listThreads godoc
// @Summary List threads
// @Description Lists the conversation's threads in creation order with their display titles and parent labels
// @Tags Threads API
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Success 200 {object} conversationresponses.ThreadListResponse
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/conversations/{conv_id}/threads [get]
func (route *ThreadRoute) listThreads(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	response, err := route.threadHandler.ListThreads(reqCtx.Request.Context(), principal, conv)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to list threads")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// createThread godoc
// @Summary Create a root thread
// @Tags Threads API
// @Accept json
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param request body conversationrequests.CreateThreadRequest true "Create thread request"
// @Success 201 {object} conversationresponses.ThreadResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/conversations/{conv_id}/threads [post]
func (route *ThreadRoute) createThread(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	var req conversationrequests.CreateThreadRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "2e8f4c1a-9b07-4d63-a5e2-7c0d3b8f1e46")
		return
	}

	response, err := route.threadHandler.CreateThread(reqCtx.Request.Context(), principal, conv, req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to create thread")
		return
	}
	reqCtx.JSON(http.StatusCreated, response)
}

// getThread godoc
// @Summary Get a thread
// @Description Returns the thread with its ordered messages
// @Tags Threads API
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param thread_id path string true "Thread ID (format: thr_xxxxx)"
// @Success 200 {object} conversationresponses.ThreadResponse
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Thread not found"
// @Router /v1/conversations/{conv_id}/threads/{thread_id} [get]
func (route *ThreadRoute) getThread(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	response, err := route.threadHandler.GetThread(reqCtx.Request.Context(), principal, conv, reqCtx.Param("thread_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to get thread")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// deleteThread godoc
// @Summary Delete a thread
// @Tags Threads API
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param thread_id path string true "Thread ID (format: thr_xxxxx)"
// @Success 200 {object} responses.DeletedResponse
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Thread not found"
// @Router /v1/conversations/{conv_id}/threads/{thread_id} [delete]
func (route *ThreadRoute) deleteThread(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	response, err := route.threadHandler.DeleteThread(reqCtx.Request.Context(), principal, conv, reqCtx.Param("thread_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to delete thread")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// branchThread godoc
// @Summary Branch a thread
// @Description Creates a thread holding a copy of the source thread's messages up to and including message_id
// @Tags Threads API
// @Accept json
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param thread_id path string true "Source thread ID (format: thr_xxxxx)"
// @Param request body conversationrequests.BranchThreadRequest true "Branch request"
// @Success 201 {object} conversationresponses.ThreadResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid request or unknown message"
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Thread not found"
// @Router /v1/conversations/{conv_id}/threads/{thread_id}/branch [post]
func (route *ThreadRoute) branchThread(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	var req conversationrequests.BranchThreadRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "c6d1a8e3-4f25-4b90-8e7c-1a9f2d5b0c37")
		return
	}

	response, err := route.threadHandler.BranchThread(reqCtx.Request.Context(), principal, conv, reqCtx.Param("thread_id"), req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to branch thread")
		return
	}
	reqCtx.JSON(http.StatusCreated, response)
}

// resumeThread godoc
// @Summary Resume a thread
// @Description Makes the thread the session's active chat target
// @Tags Threads API
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param thread_id path string true "Thread ID (format: thr_xxxxx)"
// @Success 200 {object} conversationresponses.SessionResponse
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Thread not found"
// @Router /v1/conversations/{conv_id}/threads/{thread_id}/resume [post]
func (route *ThreadRoute) resumeThread(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	response, err := route.threadHandler.ResumeThread(
		reqCtx.Request.Context(),
		principal,
		middleware.SessionIDFromContext(reqCtx),
		conv,
		reqCtx.Param("thread_id"),
	)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to resume thread")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// appendMessage godoc
// @Summary Append a message
// @Description Appends a user or assistant message to the thread outside of a chat turn
// @Tags Threads API
// @Accept json
// @Produce json
// @Param conv_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param thread_id path string true "Thread ID (format: thr_xxxxx)"
// @Param request body conversationrequests.AppendMessageRequest true "Message"
// @Success 201 {object} conversationresponses.MessageResponse
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 403 {object} responses.ErrorResponse "Access denied"
// @Failure 404 {object} responses.ErrorResponse "Thread not found"
// @Router /v1/conversations/{conv_id}/threads/{thread_id}/messages [post]
func (route *ThreadRoute) appendMessage(reqCtx *gin.Context) {
	principal, conv, ok := fromContext(reqCtx)
	if !ok {
		return
	}

	var req conversationrequests.AppendMessageRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "8b3e0d7f-1c94-4a26-b5f8-e2a7c9d0f413")
		return
	}

	response, err := route.threadHandler.AppendMessage(reqCtx.Request.Context(), principal, conv, reqCtx.Param("thread_id"), req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to append message")
		return
	}
	reqCtx.JSON(http.StatusCreated, response)
}
