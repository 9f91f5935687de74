package threadrepo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/conversation/conversationtest"
	"jan-server/services/conversation-api/internal/infrastructure/database/databasetest"
	"jan-server/services/conversation-api/internal/infrastructure/database/repository/conversationrepo"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestThreadGormRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewThreadGormRepository(databasetest.Open(t))

	messages := conversation.MessageLog{
		conversation.NewMessage(conversation.RoleUser, "hello", base.Unix(), "", "", map[string]any{"tokens": 3}),
		conversation.NewMessage(conversation.RoleAssistant, "hi there", base.Unix()+1, "openai", "gpt-4o-mini", nil),
	}
	thread := &conversation.Thread{
		PublicID:             "thread_1",
		ConversationID:       "conv_1",
		ParentThreadID:       strPtr("thread_0"),
		BranchPointMessageID: strPtr(messages[1].ID),
		Title:                strPtr("branch"),
		Messages:             messages,
		CreatedAt:            base,
		UpdatedAt:            base,
	}
	require.NoError(t, repo.Create(ctx, thread))
	assert.NotZero(t, thread.ID)

	found, err := repo.FindByPublicID(ctx, "thread_1")
	require.NoError(t, err)
	require.Len(t, found.Messages, 2)
	assert.Equal(t, messages[0].ID, found.Messages[0].ID)
	assert.Equal(t, "hello", found.Messages[0].Content)
	assert.Equal(t, json.Number("3"), found.Messages[0].Metadata["tokens"])
	assert.Equal(t, "openai", found.Messages[1].AIProvider)
	assert.Equal(t, "thread_0", *found.ParentThreadID)
	assert.Equal(t, "branch", *found.Title)

	empty := &conversation.Thread{PublicID: "thread_2", ConversationID: "conv_1", CreatedAt: base.Add(time.Second), UpdatedAt: base}
	require.NoError(t, repo.Create(ctx, empty))
	found, err = repo.FindByPublicID(ctx, "thread_2")
	require.NoError(t, err)
	assert.NotNil(t, found.Messages)
	assert.Empty(t, found.Messages)
	assert.True(t, found.IsRoot())

	_, err = repo.FindByPublicID(ctx, "thread_missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestThreadGormRepository_FilterAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewThreadGormRepository(databasetest.Open(t))

	for i, tc := range []struct{ id, conv string }{
		{"thread_c", "conv_1"},
		{"thread_a", "conv_1"},
		{"thread_x", "conv_2"},
		{"thread_b", "conv_1"},
	} {
		require.NoError(t, repo.Create(ctx, &conversation.Thread{
			PublicID:       tc.id,
			ConversationID: tc.conv,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
			UpdatedAt:      base,
		}))
	}

	convID := "conv_1"
	list, err := repo.FindByFilter(ctx, conversation.ThreadFilter{ConversationID: &convID}, nil)
	require.NoError(t, err)
	ids := []string{}
	for _, th := range list {
		ids = append(ids, th.PublicID)
	}
	assert.Equal(t, []string{"thread_c", "thread_a", "thread_b"}, ids)

	require.NoError(t, repo.Delete(ctx, "thread_a"))
	list, err = repo.FindByFilter(ctx, conversation.ThreadFilter{ConversationID: &convID}, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.DeleteByConversationID(ctx, "conv_1"))
	list, err = repo.FindByFilter(ctx, conversation.ThreadFilter{ConversationID: &convID}, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	other := "conv_2"
	list, err = repo.FindByFilter(ctx, conversation.ThreadFilter{ConversationID: &other}, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = repo.Update(ctx, &conversation.Thread{PublicID: "thread_missing", ConversationID: "conv_1"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

// The domain services run unchanged on top of the gorm repositories and transactions.
func TestServicesOverGorm(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	convRepo := conversationrepo.NewConversationGormRepository(db)
	threadRepo := NewThreadGormRepository(db)
	clock := conversationtest.NewStepClock()

	threads := conversation.NewThreadService(convRepo, threadRepo, db, &conversationtest.MutexLocker{}, clock)
	service := conversation.NewConversationService(convRepo, threads, db, clock, conversation.ConversationServiceConfig{})

	conv, root, err := service.CreateConversation(ctx, conversation.CreateConversationInput{
		ActorID: "user-1",
		InitialMessages: []conversation.Message{
			conversation.NewMessage(conversation.RoleUser, "Plan my trip to Rome", clock.Now().Unix(), "", "", nil),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Plan my trip to Rome", conv.Title)

	loaded, err := service.LoadConversation(ctx, conv.PublicID)
	require.NoError(t, err)
	require.NotNil(t, loaded.DefaultThreadID)
	assert.Equal(t, root.PublicID, *loaded.DefaultThreadID)

	before := loaded.UpdatedAt
	replyID, err := threads.AppendMessage(ctx, root.PublicID, conversation.AppendMessageInput{
		Role:    conversation.RoleAssistant,
		Content: "Sure, here's a plan",
	})
	require.NoError(t, err)

	thread, err := threads.GetThread(ctx, root.PublicID)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, replyID, thread.Messages[1].ID)

	loaded, err = service.LoadConversation(ctx, conv.PublicID)
	require.NoError(t, err)
	assert.True(t, loaded.UpdatedAt.After(before))

	branch, err := threads.BranchThread(ctx, root.PublicID, thread.Messages[0].ID, nil)
	require.NoError(t, err)
	require.Len(t, branch.Messages, 1)
	assert.Equal(t, thread.Messages[0].ID, branch.Messages[0].ID)

	require.NoError(t, service.DeleteConversation(ctx, conv.PublicID))
	_, err = threads.GetThread(ctx, branch.PublicID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	repo := NewThreadGormRepository(db)

	err := db.Transaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, &conversation.Thread{PublicID: "thread_tx", ConversationID: "conv_1", CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "abort", nil, "")
	})
	require.Error(t, err)

	_, err = repo.FindByPublicID(ctx, "thread_tx")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}
