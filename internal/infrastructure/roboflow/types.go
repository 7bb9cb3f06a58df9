package roboflow

import (
	"fmt"

	"wound-measure/internal/domain/entity"
)

// Идентификаторы классов, которые возвращает обученная модель.
const (
	classIDUlcer   = 0
	classIDSticker = 1
)

type workflowRequest struct {
	APIKey string                   `json:"api_key"`
	Inputs map[string]workflowImage `json:"inputs"`
}

type workflowImage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type workflowResponse struct {
	Outputs []workflowOutput `json:"outputs"`
}

type workflowOutput struct {
	Predictions *predictionSet `json:"predictions"`
}

type predictionSet struct {
	Image       imageMeta    `json:"image"`
	Predictions []prediction `json:"predictions"`
}

type imageMeta struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type prediction struct {
	Class      string  `json:"class"`
	ClassID    *int    `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Points     []point `json:"points"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// classLabel переводит идентификатор класса сервиса в доменный класс
func classLabel(id int) entity.ClassLabel {
	switch id {
	case classIDUlcer:
		return entity.ClassTarget
	case classIDSticker:
		return entity.ClassReferenceMarker
	default:
		return entity.ClassUnknown
	}
}

// toBatches превращает ответ workflow в пакеты детекций: один пакет на каждый output.
// Output без predictions и предсказание без class_id считаются повреждённым ответом.
func (r workflowResponse) toBatches() ([]entity.DetectionBatch, error) {
	batches := make([]entity.DetectionBatch, 0, len(r.Outputs))
	for i, out := range r.Outputs {
		if out.Predictions == nil {
			return nil, fmt.Errorf("output %d: missing predictions", i)
		}
		batch := entity.DetectionBatch{}
		for j, p := range out.Predictions.Predictions {
			if p.ClassID == nil {
				return nil, fmt.Errorf("output %d prediction %d: missing class_id", i, j)
			}
			label := classLabel(*p.ClassID)
			if label == entity.ClassUnknown {
				continue
			}
			poly := make(entity.Polygon, len(p.Points))
			for k, pt := range p.Points {
				poly[k] = entity.Point{X: pt.X, Y: pt.Y}
			}
			batch = append(batch, entity.Detection{Class: label, Polygon: poly})
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
