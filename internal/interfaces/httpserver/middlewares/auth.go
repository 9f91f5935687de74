package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/conversation-api/internal/domain/identity"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

const (
	principalContextKey = "principal"
	sessionContextKey   = "session_id"

	HeaderUserID      = "X-User-Id"
	HeaderUserSubject = "X-User-Subject"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserScopes  = "X-User-Scopes"
	HeaderSessionID   = "X-Session-Id"
)

// GatewayAuthMiddleware builds the principal from the identity headers injected by the
// API gateway. Requests without a user id are rejected.
func GatewayAuthMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromHeaders(c.Request.Header)
		if !ok {
			logger.Warn().
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("unauthenticated request")
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "5d2e8f14-b07a-4c93-a6e1-f38c0d9b7a25")
			return
		}
		c.Set(principalContextKey, principal)
		c.Set("user_id", principal.ID)
		c.Next()
	}
}

// SessionMiddleware resolves the session the request belongs to. Sessions are scoped
// to the principal: the X-Session-Id header selects one of the user's sessions, and a
// request without it uses the user's default session.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := PrincipalFromContext(c)
		clientSession := strings.TrimSpace(c.GetHeader(HeaderSessionID))

		sessionID := principal.ID
		if clientSession != "" {
			sessionID = principal.ID + "/" + clientSession
			c.Writer.Header().Set(HeaderSessionID, clientSession)
		}
		c.Set(sessionContextKey, sessionID)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (identity.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return identity.Principal{}, false
	}
	principal, ok := val.(identity.Principal)
	return principal, ok
}

// SessionIDFromContext returns the session id resolved by SessionMiddleware.
func SessionIDFromContext(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}

func principalFromHeaders(headers http.Header) (identity.Principal, bool) {
	userID := strings.TrimSpace(headers.Get(HeaderUserID))
	if userID == "" {
		return identity.Principal{}, false
	}
	subject := strings.TrimSpace(headers.Get(HeaderUserSubject))
	if subject == "" {
		subject = userID
	}
	return identity.Principal{
		ID:      userID,
		Subject: subject,
		Email:   strings.TrimSpace(headers.Get(HeaderUserEmail)),
		Scopes:  identity.ParseScopes(headers.Get(HeaderUserScopes)),
	}, true
}
