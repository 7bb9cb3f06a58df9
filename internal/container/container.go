package container

import (
	"go.uber.org/zap"

	app "wound-measure/internal/application"
	"wound-measure/internal/domain/port"
)

type Container struct {
	UserService        *app.UserService
	MeasurementService *app.MeasurementService
}

func New(userRepo port.UserRepository, detector port.WoundDetector, validator port.ImageValidator, stickerDiameterMm float64, logger *zap.Logger) *Container {
	userService := app.NewUserService(userRepo)
	measurementService := app.NewMeasurementService(detector, validator, stickerDiameterMm, logger.Named("measure"))

	return &Container{
		UserService:        userService,
		MeasurementService: measurementService,
	}
}
