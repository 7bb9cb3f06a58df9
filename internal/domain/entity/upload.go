package entity

// Upload загруженное пользователем изображение
type Upload struct {
	Filename string
	Data     []byte
}

// ImageInfo размеры проверенного изображения
type ImageInfo struct {
	Width  int
	Height int
	Format string
}
