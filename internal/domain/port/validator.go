package port

import (
	"context"

	"wound-measure/internal/domain/entity"
)

// ImageValidator проверяет, что загруженные байты являются пригодным изображением
type ImageValidator interface {
	Validate(ctx context.Context, imageData []byte) (entity.ImageInfo, error)
}
