package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/conversation-api/internal/config"
	"jan-server/services/conversation-api/internal/domain/access"
	"jan-server/services/conversation-api/internal/domain/conversation/conversationtest"
	"jan-server/services/conversation-api/internal/domain/resolver"
	"jan-server/services/conversation-api/internal/infrastructure/inference"
	"jan-server/services/conversation-api/internal/infrastructure/sessionstore"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/chathandler"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/handlers/conversationhandler"
	middleware "jan-server/services/conversation-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	chatresponses "jan-server/services/conversation-api/internal/interfaces/httpserver/responses/chat"
	conversationresponses "jan-server/services/conversation-api/internal/interfaces/httpserver/responses/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/chat"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes/v1/session"
)

const memberScopes = "conversations:create conversations:view:own conversations:edit:own conversations:delete:own threads:view threads:create threads:delete"

// fakeProvider answers chat completions and records what it was sent.
type fakeProvider struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	status   int
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	p.mu.Lock()
	p.requests = append(p.requests, req)
	status := p.status
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:     "chatcmpl-1",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Hello back"},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

func (p *fakeProvider) fail(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *fakeProvider) last() openai.ChatCompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type testServer struct {
	engine   *gin.Engine
	provider *fakeProvider
	pending  *resolver.CorrelationCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := &fakeProvider{}
	upstream := httptest.NewServer(provider)
	t.Cleanup(upstream.Close)

	fixture := conversationtest.NewFixture()
	pending, err := resolver.NewCorrelationCache(100, time.Minute)
	require.NoError(t, err)
	res := resolver.NewResolver(fixture.Service, fixture.Threads, sessionstore.NewMemoryStore(time.Hour), pending, fixture.Clock, nil, zerolog.Nop())
	policy := access.NewPolicy(nil)
	cfg := &config.Config{DefaultModel: "jan-v1-4b", DefaultProvider: "jan"}

	client := inference.NewClient(inference.Config{BaseURL: upstream.URL, Provider: "jan", Timeout: 5 * time.Second})
	chatHandler := chathandler.NewChatHandler(res, client, cfg, zerolog.Nop())
	conversationHandler := conversationhandler.NewConversationHandler(fixture.Service, policy, res, fixture.Clock, zerolog.Nop())
	threadHandler := conversationhandler.NewThreadHandler(fixture.Threads, policy, res, fixture.Clock, zerolog.Nop())

	route := NewV1Route(
		chat.NewChatCompletionRoute(chatHandler, zerolog.Nop()),
		conversation.NewConversationRoute(conversationHandler),
		conversation.NewThreadRoute(conversationHandler, threadHandler),
		session.NewSessionRoute(conversationHandler),
	)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	route.RegisterPublicRouter(engine)
	protected := engine.Group("/")
	protected.Use(middleware.GatewayAuthMiddleware(zerolog.Nop()), middleware.SessionMiddleware())
	route.RegisterRouter(protected)

	return &testServer{engine: engine, provider: provider, pending: pending}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
		req.Header.Set(middleware.HeaderUserScopes, memberScopes)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func userMessage(content string) map[string]any {
	return map[string]any{"role": "user", "content": content}
}

func TestChatCompletion_CapturesTurnIntoFreshConversation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"messages": []any{userMessage("Plan a trip to Lisbon")},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[chatresponses.ChatCompletionResponse](t, rec)
	require.NotNil(t, resp.Conversation)
	assert.Equal(t, string(resolver.SourceFresh), resp.Conversation.Source)
	assert.NotEmpty(t, resp.Conversation.UserMessageID)
	assert.NotEmpty(t, resp.Conversation.AssistantMessageID)
	assert.Equal(t, "Hello back", resp.Choices[0].Message.Content)
	assert.Equal(t, "jan-v1-4b", s.provider.last().Model)
	assert.Equal(t, 0, s.pending.Len())

	thread := decode[conversationresponses.ThreadResponse](t,
		s.do(t, http.MethodGet, "/v1/conversations/"+resp.Conversation.ID+"/threads/"+resp.Conversation.ThreadID, "user-1", nil))
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "Plan a trip to Lisbon", thread.Messages[0].Content)
	assert.Equal(t, "Hello back", thread.Messages[1].Content)

	conv := decode[conversationresponses.ConversationResponse](t,
		s.do(t, http.MethodGet, "/v1/conversations/"+resp.Conversation.ID, "user-1", nil))
	assert.Equal(t, "Plan a trip to Lisbon", conv.Title)
	assert.Equal(t, "user-1", conv.OwnerID)
}

func TestChatCompletion_ExplicitZeroTemperatureIsKept(t *testing.T) {
	s := newTestServer(t)

	resp := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"temperature": 0,
		"messages":    []any{userMessage("be deterministic")},
	}))
	require.NotNil(t, resp.Conversation)

	conv := decode[conversationresponses.ConversationResponse](t,
		s.do(t, http.MethodGet, "/v1/conversations/"+resp.Conversation.ID, "user-1", nil))
	assert.True(t, conv.Temperature.IsZero(), "temperature = %s", conv.Temperature)
}

func TestChatCompletion_SessionContinuesAndReplaysHistory(t *testing.T) {
	s := newTestServer(t)

	first := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"messages": []any{userMessage("first question")},
	}))
	second := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"messages": []any{
			map[string]any{"role": "system", "content": "be brief"},
			userMessage("second question"),
		},
	}))

	require.NotNil(t, second.Conversation)
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
	assert.Equal(t, first.Conversation.ThreadID, second.Conversation.ThreadID)
	assert.Equal(t, string(resolver.SourceSession), second.Conversation.Source)

	sent := s.provider.last().Messages
	require.Len(t, sent, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, sent[0].Role)
	assert.Equal(t, "first question", sent[1].Content)
	assert.Equal(t, "Hello back", sent[2].Content)
	assert.Equal(t, "second question", sent[3].Content)

	active := decode[conversationresponses.SessionResponse](t, s.do(t, http.MethodGet, "/v1/session/active", "user-1", nil))
	assert.True(t, active.Active)
	assert.Equal(t, first.Conversation.ID, active.ConversationID)

	other := decode[conversationresponses.SessionResponse](t, s.do(t, http.MethodGet, "/v1/session/active", "user-2", nil))
	assert.False(t, other.Active)
}

func TestChatCompletion_ResetStartsNewConversation(t *testing.T) {
	s := newTestServer(t)

	first := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"messages": []any{userMessage("hello")},
	}))
	reset := decode[conversationresponses.SessionResponse](t, s.do(t, http.MethodDelete, "/v1/session/active", "user-1", nil))
	assert.False(t, reset.Active)

	second := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"messages": []any{userMessage("hello again")},
	}))
	assert.NotEqual(t, first.Conversation.ID, second.Conversation.ID)
	assert.Equal(t, string(resolver.SourceFresh), second.Conversation.Source)
}

func TestChatCompletion_PortalConversationOwnedByOtherUserFallsBack(t *testing.T) {
	s := newTestServer(t)

	owned := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"messages": []any{userMessage("mine")},
	}))
	intruder := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-2", map[string]any{
		"conversation_id": owned.Conversation.ID,
		"messages":        []any{userMessage("yours?")},
	}))

	require.NotNil(t, intruder.Conversation)
	assert.NotEqual(t, owned.Conversation.ID, intruder.Conversation.ID)
	assert.Equal(t, string(resolver.SourceFresh), intruder.Conversation.Source)
}

func TestChatCompletion_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{"messages": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"stream":   true,
		"messages": []any{userMessage("hi")},
	})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/chat/completions", "", map[string]any{"messages": []any{userMessage("hi")}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.provider.fail(http.StatusBadGateway)
	rec = s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{"messages": []any{userMessage("hi")}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[responses.ErrorResponse](t, rec)
	assert.Equal(t, "EXTERNAL", body.Type)
	assert.Equal(t, 0, s.pending.Len())
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/conversations", "user-1", map[string]any{
		"title":    "Research notes",
		"messages": []any{userMessage("what is a monad?")},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[conversationresponses.CreateConversationResponse](t, rec)
	require.NotNil(t, created.Thread)
	assert.Equal(t, "Research notes", created.Title)
	assert.Equal(t, 1, created.Thread.MessageCount)

	active := decode[conversationresponses.SessionResponse](t, s.do(t, http.MethodGet, "/v1/session/active", "user-1", nil))
	assert.Equal(t, created.ID, active.ConversationID)
	assert.Equal(t, created.Thread.ID, active.ThreadID)

	list := decode[conversationresponses.ConversationListResponse](t, s.do(t, http.MethodGet, "/v1/conversations?limit=10", "user-1", nil))
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Total)
	assert.False(t, list.HasMore)

	others := decode[conversationresponses.ConversationListResponse](t, s.do(t, http.MethodGet, "/v1/conversations", "user-2", nil))
	assert.Empty(t, others.Data)

	rec = s.do(t, http.MethodGet, "/v1/conversations/"+created.ID, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, "/v1/conversations/"+created.ID, "user-1", map[string]any{"title": "Category theory"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Category theory", decode[conversationresponses.ConversationResponse](t, rec).Title)

	rec = s.do(t, http.MethodDelete, "/v1/conversations/"+created.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[responses.DeletedResponse](t, rec).Deleted)

	rec = s.do(t, http.MethodGet, "/v1/conversations/"+created.ID, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	active = decode[conversationresponses.SessionResponse](t, s.do(t, http.MethodGet, "/v1/session/active", "user-1", nil))
	assert.False(t, active.Active)
}

func TestConversationList_InvalidPagination(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/conversations?limit=0", "user-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/conversations?offset=-1", "user-1", nil).Code)
}

func TestThreadBranchAndResume(t *testing.T) {
	s := newTestServer(t)

	created := decode[conversationresponses.CreateConversationResponse](t, s.do(t, http.MethodPost, "/v1/conversations", "user-1", map[string]any{
		"messages": []any{
			userMessage("question one"),
			map[string]any{"role": "assistant", "content": "answer one"},
			userMessage("question two"),
		},
	}))
	require.NotNil(t, created.Thread)
	root := created.Thread
	require.Len(t, root.Messages, 3)

	rec := s.do(t, http.MethodPost, "/v1/conversations/"+created.ID+"/threads/"+root.ID+"/branch", "user-1", map[string]any{
		"message_id": root.Messages[1].ID,
		"title":      "alternative",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	branch := decode[conversationresponses.ThreadResponse](t, rec)
	require.NotNil(t, branch.ParentThreadID)
	assert.Equal(t, root.ID, *branch.ParentThreadID)
	assert.Equal(t, 2, branch.MessageCount)
	assert.Equal(t, root.DisplayTitle, branch.ParentLabel)

	rec = s.do(t, http.MethodPost, "/v1/conversations/"+created.ID+"/threads/"+branch.ID+"/messages", "user-1",
		userMessage("a different follow-up"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/conversations/"+created.ID+"/threads/"+branch.ID+"/resume", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, branch.ID, decode[conversationresponses.SessionResponse](t, rec).ThreadID)

	reply := decode[chatresponses.ChatCompletionResponse](t, s.do(t, http.MethodPost, "/v1/chat/completions", "user-1", map[string]any{
		"messages": []any{userMessage("continue here")},
	}))
	assert.Equal(t, branch.ID, reply.Conversation.ThreadID)

	threads := decode[conversationresponses.ThreadListResponse](t, s.do(t, http.MethodGet, "/v1/conversations/"+created.ID+"/threads", "user-1", nil))
	require.Len(t, threads.Data, 2)
	assert.Equal(t, root.ID, threads.Data[0].ID)

	unchanged := decode[conversationresponses.ThreadResponse](t, s.do(t, http.MethodGet, "/v1/conversations/"+created.ID+"/threads/"+root.ID, "user-1", nil))
	assert.Equal(t, 3, unchanged.MessageCount)

	rec = s.do(t, http.MethodPost, "/v1/conversations/"+created.ID+"/threads/"+root.ID+"/branch", "user-1", map[string]any{
		"message_id": "00000000-0000-4000-8000-000000000000",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/conversations/"+created.ID+"/threads/"+branch.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/conversations/"+created.ID+"/threads/"+branch.ID, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVersionIsPublic(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/version", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.Version, decode[map[string]string](t, rec)["version"])
}
