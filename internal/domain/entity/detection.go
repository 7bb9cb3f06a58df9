package entity

// ClassLabel класс найденного объекта
type ClassLabel int

const (
	ClassUnknown         ClassLabel = iota // неизвестный класс, в расчётах не участвует
	ClassTarget                            // рана (язва)
	ClassReferenceMarker                   // калибровочная наклейка
)

// String возвращает имя класса для логов и ответов бота
func (c ClassLabel) String() string {
	switch c {
	case ClassTarget:
		return "ulcer"
	case ClassReferenceMarker:
		return "sticker"
	default:
		return "unknown"
	}
}

// Detection один найденный объект: класс и контур
type Detection struct {
	Class   ClassLabel
	Polygon Polygon
}

// DetectionBatch все объекты, найденные сервисом для одного изображения
type DetectionBatch []Detection

// Count возвращает количество объектов заданного класса
func (b DetectionBatch) Count(class ClassLabel) int {
	n := 0
	for _, d := range b {
		if d.Class == class {
			n++
		}
	}
	return n
}
