//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"wound-measure/internal/domain/entity"
	"wound-measure/internal/domain/port"
)

// QualityGate проверяет изображение средствами OpenCV: размер, резкость, экспозицию.
type QualityGate struct {
	MinImageSide          int
	MinSharpnessEdgeRatio float64
	MaxOverexposedRatio   float64
	MaxUnderexposedRatio  float64
}

// NewQualityGate создаёт проверку с минимальной стороной изображения.
func NewQualityGate(minImageSide int) *QualityGate {
	return &QualityGate{
		MinImageSide:          minImageSide,
		MinSharpnessEdgeRatio: 0.002,
		MaxOverexposedRatio:   0.5,
		MaxUnderexposedRatio:  0.6,
	}
}

// Validate декодирует изображение и проверяет его качество.
func (g *QualityGate) Validate(ctx context.Context, imageData []byte) (entity.ImageInfo, error) {
	_ = ctx
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if err == nil {
			mat.Close()
		}
		return entity.ImageInfo{}, fmt.Errorf("%w: failed to decode image", entity.ErrInvalidImage)
	}
	defer mat.Close()

	info := entity.ImageInfo{Width: mat.Cols(), Height: mat.Rows(), Format: "opencv"}
	if info.Width < g.MinImageSide || info.Height < g.MinImageSide {
		return info, fmt.Errorf("%w: image is too small (%dx%d)", entity.ErrInvalidImage, info.Width, info.Height)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 80, 160)
	if ratio := ratioOfMask(edges); ratio < g.MinSharpnessEdgeRatio {
		return info, fmt.Errorf("%w: image is blurry (edge_ratio=%.4f)", entity.ErrInvalidImage, ratio)
	}

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, 250, 255, gocv.ThresholdBinary)
	if ratio := ratioOfMask(bright); ratio > g.MaxOverexposedRatio {
		return info, fmt.Errorf("%w: overexposed image (ratio=%.4f)", entity.ErrInvalidImage, ratio)
	}

	dark := gocv.NewMat()
	defer dark.Close()
	gocv.Threshold(gray, &dark, 20, 255, gocv.ThresholdBinaryInv)
	if ratio := ratioOfMask(dark); ratio > g.MaxUnderexposedRatio {
		return info, fmt.Errorf("%w: underexposed image (ratio=%.4f)", entity.ErrInvalidImage, ratio)
	}

	return info, nil
}

func ratioOfMask(mask gocv.Mat) float64 {
	total := mask.Cols() * mask.Rows()
	if total <= 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}

var _ port.ImageValidator = (*QualityGate)(nil)
