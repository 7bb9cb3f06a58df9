package port

import (
	"context"

	"wound-measure/internal/domain/entity"
)

// WoundDetector интерфейс внешнего сервиса детекции раны и наклейки
type WoundDetector interface {
	// Detect отправляет изображение в сервис и возвращает найденные контуры.
	// Ошибки сервиса оборачиваются в entity.ErrDetectionUnavailable.
	Detect(ctx context.Context, imageData []byte) ([]entity.DetectionBatch, error)
}
