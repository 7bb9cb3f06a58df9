package entity

import (
	"fmt"
	"math"
)

// DefaultStickerDiameterMm диаметр калибровочной наклейки по умолчанию
const DefaultStickerDiameterMm = 8.0

// CalibrationResult площади раны и наклейки в пикселях и в квадратных миллиметрах.
type CalibrationResult struct {
	TargetAreaPixels    float64
	ReferenceAreaPixels float64
	TargetAreaMm2       float64
	ReferenceAreaMm2    float64
	ScaleFactor         float64 // пикселей на миллиметр
}

// ScaleFactor считает число пикселей на миллиметр, считая наклейку кругом
// с площадью referenceAreaPixels и диаметром diameterMm.
func ScaleFactor(referenceAreaPixels, diameterMm float64) float64 {
	diameterPixels := 2 * math.Sqrt(referenceAreaPixels/math.Pi)
	return diameterPixels / diameterMm
}

// Calibrate суммирует площади по классам во всех пакетах и переводит их в мм².
// Несколько объектов одного класса складываются.
func Calibrate(diameterMm float64, batches ...DetectionBatch) (*CalibrationResult, error) {
	var targetArea, referenceArea float64
	for _, batch := range batches {
		for _, d := range batch {
			switch d.Class {
			case ClassTarget:
				targetArea += d.Polygon.Area()
			case ClassReferenceMarker:
				referenceArea += d.Polygon.Area()
			}
		}
	}

	if referenceArea <= 0 {
		return nil, ErrNoReferenceDetected
	}

	scale := ScaleFactor(referenceArea, diameterMm)
	// NaN не проходит сравнение scale > 0
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: %v px/mm for diameter %v mm", ErrScaleFactorInvalid, scale, diameterMm)
	}

	sq := scale * scale
	return &CalibrationResult{
		TargetAreaPixels:    targetArea,
		ReferenceAreaPixels: referenceArea,
		TargetAreaMm2:       targetArea / sq,
		ReferenceAreaMm2:    referenceArea / sq,
		ScaleFactor:         scale,
	}, nil
}
