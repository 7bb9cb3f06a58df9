//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"wound-measure/internal/domain/entity"
	"wound-measure/internal/domain/port"
)

// QualityGate без OpenCV проверяет только формат и размеры изображения.
type QualityGate struct {
	MinImageSide int
}

// NewQualityGate создаёт проверку с минимальной стороной изображения.
func NewQualityGate(minImageSide int) *QualityGate {
	return &QualityGate{MinImageSide: minImageSide}
}

// Validate читает заголовок изображения и проверяет размеры.
func (g *QualityGate) Validate(ctx context.Context, imageData []byte) (entity.ImageInfo, error) {
	_ = ctx
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return entity.ImageInfo{}, fmt.Errorf("%w: %v", entity.ErrInvalidImage, err)
	}

	info := entity.ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}
	if info.Width < g.MinImageSide || info.Height < g.MinImageSide {
		return info, fmt.Errorf("%w: image is too small (%dx%d)", entity.ErrInvalidImage, info.Width, info.Height)
	}
	return info, nil
}

var _ port.ImageValidator = (*QualityGate)(nil)
