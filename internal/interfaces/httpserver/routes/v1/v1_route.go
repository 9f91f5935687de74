package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jan-server/services/conversation-api/internal/config"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/chat"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/session"
)

type V1Route struct {
	chat         *chat.ChatCompletionRoute
	conversation *conversation.ConversationRoute
	thread       *conversation.ThreadRoute
	session      *session.SessionRoute
}

func NewV1Route(
	chat *chat.ChatCompletionRoute,
	conversation *conversation.ConversationRoute,
	thread *conversation.ThreadRoute,
	session *session.SessionRoute,
) *V1Route {
	return &V1Route{
		chat,
		conversation,
		thread,
		session,
	}
}

// RegisterRouter registers the authenticated /v1 endpoints.
func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")

	v1Route.chat.RegisterRouter(v1Router)
	v1Route.conversation.RegisterRouter(v1Router)
	v1Route.thread.RegisterRouter(v1Router)
	v1Route.session.RegisterRouter(v1Router)
}

// RegisterPublicRouter registers endpoints that do not require authentication
func (v1Route *V1Route) RegisterPublicRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/version", GetVersion)
}

// GetVersion godoc
// @Summary Get API build version
// @Description Returns the current build version of the API server and environment reload timestamp.
// @Tags Server API
// @Produce json
// @Success 200 {object} map[string]string "Version information including version number and environment reload timestamp"
// @Router /v1/version [get]
func GetVersion(c *gin.Context) {
	reloadedAt := ""
	if cfg := config.GetGlobal(); cfg != nil {
		reloadedAt = cfg.EnvReloadedAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{
		"version":         config.Version,
		"env_reloaded_at": reloadedAt,
	})
}
