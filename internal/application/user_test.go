package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wound-measure/internal/domain/entity"
	"wound-measure/internal/infrastructure/storage"
)

func TestUserService_BeginMeasureAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.BeginMeasure(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
	require.True(t, user.AwaitsPhoto())

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_StartProcessing(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.StartProcessing(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)
	require.False(t, user.AwaitsPhoto())
}
