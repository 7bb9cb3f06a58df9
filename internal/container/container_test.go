package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wound-measure/internal/domain/entity"
	"wound-measure/internal/infrastructure/storage"
)

type stubDetector struct{}

func (stubDetector) Detect(ctx context.Context, imageData []byte) ([]entity.DetectionBatch, error) {
	return []entity.DetectionBatch{{
		{Class: entity.ClassReferenceMarker, Polygon: entity.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}},
	}}, nil
}

func TestNew(t *testing.T) {
	c := New(storage.NewMemoryUserRepository(), stubDetector{}, nil, 8, zap.NewNop())
	require.NotNil(t, c.UserService)
	require.NotNil(t, c.MeasurementService)

	res, err := c.MeasurementService.Measure(context.Background(), entity.Upload{Filename: "a.jpg", Data: []byte("x")})
	require.NoError(t, err)
	require.Equal(t, 100.0, res.ReferenceAreaPixels)
	require.Zero(t, res.TargetAreaPixels)
}
