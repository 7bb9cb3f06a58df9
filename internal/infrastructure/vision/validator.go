package vision

import (
	"path/filepath"
	"strings"

	"wound-measure/internal/domain/entity"
)

// allowedExtensions форматы, которые принимает сервис детекции
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// AllowedFile проверяет расширение имени файла
func AllowedFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := allowedExtensions[ext]
	return ok
}

// CheckFilename возвращает entity.ErrUnsupportedFormat для неподходящих файлов
func CheckFilename(filename string) error {
	if !AllowedFile(filename) {
		return entity.ErrUnsupportedFormat
	}
	return nil
}
