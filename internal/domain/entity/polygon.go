package entity

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point точка в пиксельных координатах изображения
type Point = r2.Point

// Polygon замкнутый контур; ребро от последней точки к первой подразумевается
type Polygon []Point

// Area возвращает площадь многоугольника по формуле шнурования (Shoelace).
// Для менее чем трёх точек площадь равна 0.
func (p Polygon) Area() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}

	return math.Abs(sum) / 2
}
