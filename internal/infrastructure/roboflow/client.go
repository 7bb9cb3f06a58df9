package roboflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"wound-measure/internal/domain/entity"
	"wound-measure/internal/domain/port"
)

const maxErrorBody = 1024

// Config параметры клиента workflow API
type Config struct {
	APIURL     string
	APIKey     string
	Workspace  string
	Workflow   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Client вызывает workflow Roboflow и возвращает контуры раны и наклейки.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient создаёт клиента. Если httpClient nil, используется клиент с собственным транспортом.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Detect отправляет изображение в workflow и возвращает пакеты детекций.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]entity.DetectionBatch, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty image", entity.ErrDetectionUnavailable)
	}

	body, err := json.Marshal(workflowRequest{
		APIKey: c.cfg.APIKey,
		Inputs: map[string]workflowImage{
			"image": {Type: "base64", Value: base64.StdEncoding.EncodeToString(imageData)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", entity.ErrDetectionUnavailable, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.cfg.Backoff * time.Duration(1<<(attempt-1))
			c.logger.Warn("retrying detection request",
				zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", entity.ErrDetectionUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}

		batches, retry, err := c.invoke(ctx, body)
		if err == nil {
			c.logger.Debug("detection finished", zap.Int("outputs", len(batches)))
			return batches, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %w", entity.ErrDetectionUnavailable, lastErr)
}

// invoke выполняет один запрос; retry сообщает, имеет ли смысл повторить.
func (c *Client) invoke(ctx context.Context, body []byte) ([]entity.DetectionBatch, bool, error) {
	reqCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.workflowURL(), bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, retry, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var parsed workflowResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Outputs == nil {
		return nil, false, errors.New("decode response: missing outputs")
	}

	batches, err := parsed.toBatches()
	if err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	return batches, false, nil
}

func (c *Client) workflowURL() string {
	return fmt.Sprintf("%s/infer/workflows/%s/%s",
		c.cfg.APIURL, url.PathEscape(c.cfg.Workspace), url.PathEscape(c.cfg.Workflow))
}

// CheckHealth проверяет доступность API
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("detection service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// StatusError ответ сервиса с кодом, отличным от 200
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inference failed: status %d", e.Code)
	}
	return fmt.Sprintf("inference failed: status %d: %s", e.Code, e.Body)
}

// Проверка реализации интерфейса
var _ port.WoundDetector = (*Client)(nil)
