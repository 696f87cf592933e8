package repository_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/repository"
)

func TestWindowTrimsAndRetains(t *testing.T) {
	t.Parallel()

	repo := repository.NewConversationRepository()
	ctx := t.Context()

	// 25 exchanges = 50 entries, far over any cap.
	for i := 0; i < 25; i++ {
		require.NoError(t, repo.Append(ctx, 7, entity.ChatMessage{Role: entity.RoleUser, Content: fmt.Sprintf("question %d", i)}))
		require.NoError(t, repo.Append(ctx, 7, entity.ChatMessage{Role: entity.RoleAssistant, Content: fmt.Sprintf("answer %d", i)}))
	}

	window, err := repo.Window(ctx, 7, 20)
	require.NoError(t, err)
	require.Len(t, window, 20)

	// The oldest 15 exchanges are gone; the newest 10 survive in order.
	require.Equal(t, "question 15", window[0].Content)
	require.Equal(t, entity.RoleUser, window[0].Role)
	require.Equal(t, "answer 24", window[19].Content)
	require.Equal(t, entity.RoleAssistant, window[19].Role)

	// The trim is permanent: a second read converges to the same window.
	again, err := repo.Window(ctx, 7, 20)
	require.NoError(t, err)
	require.Equal(t, window, again)
}

func TestWindowUnderCapReturnsEverything(t *testing.T) {
	t.Parallel()

	repo := repository.NewConversationRepository()
	ctx := t.Context()

	require.NoError(t, repo.Append(ctx, 1, entity.ChatMessage{Role: entity.RoleUser, Content: "hi"}))

	window, err := repo.Window(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, window, 1)
}

func TestWindowIsACopy(t *testing.T) {
	t.Parallel()

	repo := repository.NewConversationRepository()
	ctx := t.Context()

	require.NoError(t, repo.Append(ctx, 3, entity.ChatMessage{Role: entity.RoleUser, Content: "original"}))

	window, err := repo.Window(ctx, 3, 20)
	require.NoError(t, err)
	window[0].Content = "mutated"

	fresh, err := repo.Window(ctx, 3, 20)
	require.NoError(t, err)
	require.Equal(t, "original", fresh[0].Content)
}

func TestClearEmptiesOnlyThatUser(t *testing.T) {
	t.Parallel()

	repo := repository.NewConversationRepository()
	ctx := t.Context()

	require.NoError(t, repo.Append(ctx, 1, entity.ChatMessage{Role: entity.RoleUser, Content: "mine"}))
	require.NoError(t, repo.Append(ctx, 2, entity.ChatMessage{Role: entity.RoleUser, Content: "theirs"}))

	require.NoError(t, repo.Clear(ctx, 1))

	mine, err := repo.Window(ctx, 1, 20)
	require.NoError(t, err)
	require.Empty(t, mine)

	theirs, err := repo.Window(ctx, 2, 20)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
}
