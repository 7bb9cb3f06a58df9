package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string        `yaml:"port"`
	TelegramToken string        `yaml:"telegram_token"`
	Detection     Detection     `yaml:"detection"`
	Measurement   Measurement   `yaml:"measurement"`
	Log           Log           `yaml:"log"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// Detection настройки подключения к Roboflow
type Detection struct {
	APIURL     string        `yaml:"api_url"`
	APIKey     string        `yaml:"api_key"`
	Workspace  string        `yaml:"workspace"`
	Workflow   string        `yaml:"workflow"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Measurement параметры калибровки и приёма файлов
type Measurement struct {
	StickerDiameterMm float64 `yaml:"sticker_diameter_mm"`
	MaxUploadMB       int64   `yaml:"max_upload_mb"`
	MinImageSide      int     `yaml:"min_image_side"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Port: "5000",
		Detection: Detection{
			APIURL:     "https://detect.roboflow.com",
			Workspace:  "woundly",
			Workflow:   "custom-workflow-fze",
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Measurement: Measurement{
			StickerDiameterMm: 8,
			MaxUploadMB:       16,
			MinImageSide:      64,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		ShutdownGrace: 10 * time.Second,
	}
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.Detection.APIURL, "ROBOFLOW_API_URL")
	setString(&cfg.Detection.APIKey, "ROBOFLOW_API_KEY")
	setString(&cfg.Detection.Workspace, "ROBOFLOW_WORKSPACE")
	setString(&cfg.Detection.Workflow, "ROBOFLOW_WORKFLOW")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	var errs []error
	if v, ok := os.LookupEnv("DETECTION_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		errs = append(errs, wrapEnv("DETECTION_TIMEOUT", err))
		cfg.Detection.Timeout = d
	}
	if v, ok := os.LookupEnv("DETECTION_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, wrapEnv("DETECTION_RETRIES", err))
		cfg.Detection.MaxRetries = n
	}
	if v, ok := os.LookupEnv("STICKER_DIAMETER_MM"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		errs = append(errs, wrapEnv("STICKER_DIAMETER_MM", err))
		cfg.Measurement.StickerDiameterMm = f
	}
	if v, ok := os.LookupEnv("MAX_UPLOAD_MB"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		errs = append(errs, wrapEnv("MAX_UPLOAD_MB", err))
		cfg.Measurement.MaxUploadMB = n
	}
	if v, ok := os.LookupEnv("MIN_IMAGE_SIDE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, wrapEnv("MIN_IMAGE_SIDE", err))
		cfg.Measurement.MinImageSide = n
	}

	return multierr.Combine(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func wrapEnv(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", key, err)
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Detection.APIKey == "" {
		return errors.New("ROBOFLOW_API_KEY is required")
	}
	if c.Detection.APIURL == "" {
		return errors.New("ROBOFLOW_API_URL is required")
	}
	if !(c.Measurement.StickerDiameterMm > 0) {
		return fmt.Errorf("sticker diameter must be positive, got %v", c.Measurement.StickerDiameterMm)
	}
	if c.Measurement.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Measurement.MaxUploadMB)
	}
	if c.Detection.MaxRetries < 0 {
		return fmt.Errorf("detection retries must not be negative, got %d", c.Detection.MaxRetries)
	}
	return nil
}

// MaxUploadBytes лимит размера загружаемого файла в байтах
func (c *Config) MaxUploadBytes() int64 {
	return c.Measurement.MaxUploadMB << 20
}
