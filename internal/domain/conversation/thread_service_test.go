package conversation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/conversation/conversationtest"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

func seedThread(t *testing.T, f *conversationtest.Fixture, contents ...string) (*conversation.Conversation, *conversation.Thread) {
	t.Helper()
	ctx := context.Background()
	conv, root, err := f.Service.CreateConversation(ctx, conversation.CreateConversationInput{Title: "seed", ActorID: "user-1"})
	require.NoError(t, err)
	for i, content := range contents {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		_, err := f.Threads.AppendMessage(ctx, root.PublicID, conversation.AppendMessageInput{Role: role, Content: content})
		require.NoError(t, err)
	}
	thread, err := f.Threads.GetThread(ctx, root.PublicID)
	require.NoError(t, err)
	return conv, thread
}

func TestThreadService_AppendMessage_PreservesOrder(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	_, thread := seedThread(t, f)

	const n = 7
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := f.Threads.AppendMessage(ctx, thread.PublicID, conversation.AppendMessageInput{Role: conversation.RoleUser, Content: fmt.Sprintf("message %d", i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	got, err := f.Threads.GetThread(ctx, thread.PublicID)
	require.NoError(t, err)
	require.Len(t, got.Messages, n)

	seen := map[string]bool{}
	for i, m := range got.Messages {
		assert.Equal(t, ids[i], m.ID)
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Content)
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestThreadService_AppendMessage_BumpsTimestamps(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	conv, thread := seedThread(t, f)

	_, err := f.Threads.AppendMessage(ctx, thread.PublicID, conversation.AppendMessageInput{
		Role:     conversation.RoleAssistant,
		Content:  "Sure",
		Provider: "openai",
		Model:    "gpt-4o",
		Metadata: map[string]any{"finish_reason": "stop"},
	})
	require.NoError(t, err)

	gotThread, err := f.Threads.GetThread(ctx, thread.PublicID)
	require.NoError(t, err)
	gotConv, err := f.Service.LoadConversation(ctx, conv.PublicID)
	require.NoError(t, err)

	assert.True(t, gotThread.UpdatedAt.After(thread.UpdatedAt))
	assert.True(t, gotConv.UpdatedAt.After(conv.UpdatedAt))
	assert.Equal(t, gotThread.UpdatedAt, gotConv.UpdatedAt)

	msg := gotThread.Messages[0]
	assert.Equal(t, "openai", msg.AIProvider)
	assert.Equal(t, "gpt-4o", msg.AIModel)
	assert.Equal(t, gotThread.UpdatedAt.Unix(), msg.Timestamp)
}

func TestThreadService_AppendMessage_Errors(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	_, thread := seedThread(t, f)

	_, err := f.Threads.AppendMessage(ctx, "thread_missing0000000", conversation.AppendMessageInput{Role: conversation.RoleUser, Content: "x"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = f.Threads.AppendMessage(ctx, thread.PublicID, conversation.AppendMessageInput{Role: "system", Content: "x"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestThreadService_AppendMessage_Concurrent(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	_, thread := seedThread(t, f)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.Threads.AppendMessage(ctx, thread.PublicID, conversation.AppendMessageInput{Role: conversation.RoleUser, Content: fmt.Sprint(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.Threads.GetThread(ctx, thread.PublicID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, workers)
}

func TestThreadService_BranchThread(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	_, source := seedThread(t, f, "q1", "a1", "q2", "a2", "q3")

	for k := range source.Messages {
		title := fmt.Sprintf("branch at %d", k)
		branch, err := f.Threads.BranchThread(ctx, source.PublicID, source.Messages[k].ID, &title)
		require.NoError(t, err)

		assert.Equal(t, source.Messages[:k+1], branch.Messages)
		assert.Equal(t, source.ConversationID, branch.ConversationID)
		require.NotNil(t, branch.ParentThreadID)
		assert.Equal(t, source.PublicID, *branch.ParentThreadID)
		require.NotNil(t, branch.BranchPointMessageID)
		assert.Equal(t, source.Messages[k].ID, *branch.BranchPointMessageID)
		assert.False(t, branch.IsRoot())

		after, err := f.Threads.GetThread(ctx, source.PublicID)
		require.NoError(t, err)
		assert.Equal(t, source.Messages, after.Messages, "source must be unchanged")
	}
}

func TestThreadService_BranchThread_AppendDoesNotLeak(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	_, source := seedThread(t, f, "q1", "a1")

	branch, err := f.Threads.BranchThread(ctx, source.PublicID, source.Messages[0].ID, nil)
	require.NoError(t, err)
	_, err = f.Threads.AppendMessage(ctx, branch.PublicID, conversation.AppendMessageInput{Role: conversation.RoleAssistant, Content: "alt"})
	require.NoError(t, err)

	after, err := f.Threads.GetThread(ctx, source.PublicID)
	require.NoError(t, err)
	assert.Equal(t, source.Messages, after.Messages)
}

func TestThreadService_BranchThread_NotFound(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	_, source := seedThread(t, f, "q1")

	_, err := f.Threads.BranchThread(ctx, "thread_doesnotexist0000", source.Messages[0].ID, nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = f.Threads.BranchThread(ctx, source.PublicID, "no-such-message", nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestThreadService_CreateThread_Validation(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	conv, source := seedThread(t, f, "q1")
	parent := source.PublicID

	_, err := f.Threads.CreateThread(ctx, conversation.CreateThreadInput{})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = f.Threads.CreateThread(ctx, conversation.CreateThreadInput{ConversationID: "conv_unknown00000000"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = f.Threads.CreateThread(ctx, conversation.CreateThreadInput{ConversationID: conv.PublicID, ParentThreadID: &parent})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = f.Threads.CreateThread(ctx, conversation.CreateThreadInput{
		ConversationID:  conv.PublicID,
		InitialMessages: []conversation.Message{{ID: "a", Role: conversation.RoleUser}, {ID: "a", Role: conversation.RoleAssistant}},
	})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	seeded, err := f.Threads.CreateThread(ctx, conversation.CreateThreadInput{
		ConversationID:  conv.PublicID,
		InitialMessages: []conversation.Message{{ID: "a", Role: conversation.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.True(t, seeded.IsRoot())
	assert.Len(t, seeded.Messages, 1)
}

func TestThreadService_ListByConversation_Ordered(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	conv, root := seedThread(t, f, "q1")

	second, err := f.Threads.CreateThread(ctx, conversation.CreateThreadInput{ConversationID: conv.PublicID})
	require.NoError(t, err)
	third, err := f.Threads.BranchThread(ctx, root.PublicID, root.Messages[0].ID, nil)
	require.NoError(t, err)

	threads, err := f.Threads.ListByConversation(ctx, conv.PublicID)
	require.NoError(t, err)
	require.Len(t, threads, 3)
	assert.Equal(t, []string{root.PublicID, second.PublicID, third.PublicID},
		[]string{threads[0].PublicID, threads[1].PublicID, threads[2].PublicID})
}

func TestThreadService_DeleteThread(t *testing.T) {
	f := conversationtest.NewFixture()
	ctx := context.Background()
	conv, root := seedThread(t, f, "q1")
	child, err := f.Threads.BranchThread(ctx, root.PublicID, root.Messages[0].ID, nil)
	require.NoError(t, err)

	require.NoError(t, f.Threads.DeleteThread(ctx, root.PublicID))

	gotConv, err := f.Service.LoadConversation(ctx, conv.PublicID)
	require.NoError(t, err)
	assert.Nil(t, gotConv.DefaultThreadID)

	gotChild, err := f.Threads.GetThread(ctx, child.PublicID)
	require.NoError(t, err)
	assert.Equal(t, "Deleted thread "+root.PublicID, conversation.ParentLabel(gotChild, nil))
}

func TestParentLabelAndDisplayTitle(t *testing.T) {
	parentID := "thread_parent"
	title := "Budget options"
	root := &conversation.Thread{PublicID: parentID, Messages: conversation.MessageLog{{ID: "a", Role: conversation.RoleUser, Content: "Plan my trip"}}}
	child := &conversation.Thread{PublicID: "thread_child", ParentThreadID: &parentID}
	titled := &conversation.Thread{PublicID: "thread_titled", Title: &title}

	assert.Equal(t, conversation.MainThreadLabel, conversation.ParentLabel(root, nil))
	assert.Equal(t, "Plan my trip", conversation.ParentLabel(child, root))
	assert.Equal(t, "Deleted thread thread_parent", conversation.ParentLabel(child, nil))
	assert.Equal(t, conversation.UntitledThreadLabel, child.DisplayTitle())
	assert.Equal(t, title, titled.DisplayTitle())
}
