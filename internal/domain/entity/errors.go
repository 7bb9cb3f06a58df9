package entity

import "errors"

var (
	// ErrNoReferenceDetected наклейка не найдена или её площадь нулевая
	ErrNoReferenceDetected = errors.New("no reference marker detected")

	// ErrScaleFactorInvalid коэффициент масштаба получился неположительным
	ErrScaleFactorInvalid = errors.New("scale factor is not positive")

	// ErrDetectionUnavailable внешний сервис детекции недоступен или ответил ошибкой
	ErrDetectionUnavailable = errors.New("detection service unavailable")

	// ErrInvalidImage загруженный файл не является пригодным изображением
	ErrInvalidImage = errors.New("invalid image")

	// ErrUnsupportedFormat расширение файла не поддерживается
	ErrUnsupportedFormat = errors.New("unsupported file type")
)
