package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/conversationhandler"
	middleware "jan-server/services/conversation-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
)

type SessionRoute struct {
	handler *conversationhandler.ConversationHandler
}

func NewSessionRoute(handler *conversationhandler.ConversationHandler) *SessionRoute {
	return &SessionRoute{
		handler: handler,
	}
}

func (route *SessionRoute) RegisterRouter(router gin.IRouter) {
	session := router.Group("/session")
	session.GET("/active", route.getActive)
	session.DELETE("/active", route.resetActive)
}

// getActive godoc
// @Summary Get the active conversation
// @Description Returns the conversation and thread the next chat completion of this session will append to
// @Tags Sessions API
// @Produce json
// @Param X-Session-Id header string false "Client session identifier"
// @Success 200 {object} conversationresponses.SessionResponse
// @Router /v1/session/active [get]
func (route *SessionRoute) getActive(reqCtx *gin.Context) {
	response, err := route.handler.ActiveSession(reqCtx.Request.Context(), middleware.SessionIDFromContext(reqCtx))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to get active session")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// resetActive godoc
// @Summary Reset the session
// @Description Detaches the session so the next chat completion starts a new conversation
// @Tags Sessions API
// @Produce json
// @Param X-Session-Id header string false "Client session identifier"
// @Success 200 {object} conversationresponses.SessionResponse
// @Router /v1/session/active [delete]
func (route *SessionRoute) resetActive(reqCtx *gin.Context) {
	response, err := route.handler.ResetSession(reqCtx.Request.Context(), middleware.SessionIDFromContext(reqCtx))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to reset session")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}
