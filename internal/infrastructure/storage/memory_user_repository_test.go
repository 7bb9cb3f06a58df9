package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wound-measure/internal/domain/entity"
)

func TestMemoryUserRepository_GetCreatesUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	user.SetState(entity.StateProcessing)
	again, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, again.State)
	require.Equal(t, 1, repo.Len())

	require.NoError(t, repo.Save(ctx, user))
	again, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, again.State)
}

func TestMemoryUserRepository_UpdateState(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateAwaitingPhoto))

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)

	// неизвестный пользователь игнорируется
	require.NoError(t, repo.UpdateState(ctx, 2, entity.StateProcessing))
	require.Equal(t, 1, repo.Len())
}

func TestMemoryUserRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Get(ctx, 1, 10)
	require.ErrorIs(t, err, context.Canceled)
}
