package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wound-measure/internal/domain/entity"
	"wound-measure/internal/domain/port"
)

// MeasurementService измеряет площадь раны по фото с калибровочной наклейкой.
type MeasurementService struct {
	detector          port.WoundDetector
	validator         port.ImageValidator
	stickerDiameterMm float64
	logger            *zap.Logger
}

// NewMeasurementService создаёт сервис измерения. validator может быть nil.
func NewMeasurementService(detector port.WoundDetector, validator port.ImageValidator, stickerDiameterMm float64, logger *zap.Logger) *MeasurementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeasurementService{
		detector:          detector,
		validator:         validator,
		stickerDiameterMm: stickerDiameterMm,
		logger:            logger,
	}
}

// Measure проверяет изображение, отправляет его в детектор и переводит площади в мм².
func (s *MeasurementService) Measure(ctx context.Context, upload entity.Upload) (*entity.CalibrationResult, error) {
	if s.detector == nil {
		return nil, errors.New("detector is not configured")
	}
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", entity.ErrInvalidImage)
	}

	log := s.logger.With(zap.String("filename", upload.Filename), zap.Int("bytes", len(upload.Data)))

	if s.validator != nil {
		info, err := s.validator.Validate(ctx, upload.Data)
		if err != nil {
			return nil, err
		}
		log = log.With(zap.Int("width", info.Width), zap.Int("height", info.Height))
	}

	batches, err := s.detector.Detect(ctx, upload.Data)
	if err != nil {
		if !errors.Is(err, entity.ErrDetectionUnavailable) {
			err = fmt.Errorf("%w: %w", entity.ErrDetectionUnavailable, err)
		}
		log.Error("detection failed", zap.Error(err))
		return nil, err
	}

	var targets, references int
	for _, b := range batches {
		targets += b.Count(entity.ClassTarget)
		references += b.Count(entity.ClassReferenceMarker)
	}
	log = log.With(zap.Int("ulcers", targets), zap.Int("stickers", references))

	result, err := entity.Calibrate(s.stickerDiameterMm, batches...)
	if err != nil {
		log.Warn("calibration failed", zap.Error(err))
		return nil, err
	}

	log.Info("wound measured",
		zap.Float64("ulcer_area_pixels", result.TargetAreaPixels),
		zap.Float64("sticker_area_pixels", result.ReferenceAreaPixels),
		zap.Float64("scale_px_per_mm", result.ScaleFactor),
		zap.Float64("ulcer_area_mm", result.TargetAreaMm2),
		zap.Float64("sticker_area_mm", result.ReferenceAreaMm2),
	)
	return result, nil
}
