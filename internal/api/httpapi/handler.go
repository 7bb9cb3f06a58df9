package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"wound-measure/internal/domain/entity"
	"wound-measure/internal/infrastructure/vision"
)

// Measurer измеряет площадь раны по загруженному изображению
type Measurer interface {
	Measure(ctx context.Context, upload entity.Upload) (*entity.CalibrationResult, error)
}

// AreaResponse ответ POST /analyze-wound
type AreaResponse struct {
	UlcerAreaPixels   float64 `json:"ulcer_area_pixels"`
	StickerAreaPixels float64 `json:"sticker_area_pixels"`
	UlcerAreaMm       float64 `json:"ulcer_area_mm"`
	StickerAreaMm     float64 `json:"sticker_area_mm"`
}

type Handler struct {
	measurer       Measurer
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(measurer Measurer, maxUploadBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		measurer:       measurer,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Routes возвращает обработчик со всеми маршрутами и CORS
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze-wound", h.AnalyzeWound)
	mux.HandleFunc("/health", h.Health)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler(mux)
}

// AnalyzeWound обрабатывает POST /analyze-wound
func (h *Handler) AnalyzeWound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	log := h.logger.With(zap.String("request_id", requestID))

	// запас на заголовки multipart
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "File is too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, "No selected file", http.StatusBadRequest)
		return
	}
	if err := vision.CheckFilename(header.Filename); err != nil {
		respondError(w, "Invalid file type", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("read upload", zap.Error(err))
		respondError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	result, err := h.measurer.Measure(r.Context(), entity.Upload{Filename: header.Filename, Data: data})
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("measurement failed", zap.Error(err))
		} else {
			log.Info("measurement rejected", zap.Error(err))
		}
		respondError(w, message, status)
		return
	}

	respondJSON(w, AreaResponse{
		UlcerAreaPixels:   result.TargetAreaPixels,
		StickerAreaPixels: result.ReferenceAreaPixels,
		UlcerAreaMm:       result.TargetAreaMm2,
		StickerAreaMm:     result.ReferenceAreaMm2,
	}, http.StatusOK)
}

// statusFor сопоставляет ошибку измерения с HTTP-кодом и текстом для клиента
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrNoReferenceDetected):
		return http.StatusBadRequest, "Could not calculate areas: reference sticker not detected"
	case errors.Is(err, entity.ErrScaleFactorInvalid):
		return http.StatusBadRequest, "Could not calculate areas: invalid scale factor"
	case errors.Is(err, entity.ErrUnsupportedFormat):
		return http.StatusBadRequest, "Invalid file type"
	case errors.Is(err, entity.ErrInvalidImage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrDetectionUnavailable):
		return http.StatusInternalServerError, "Detection service unavailable"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// Health проверка здоровья сервиса
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
