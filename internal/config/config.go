// Package config loads settings for the pageocr binaries.
// Defaults are overlaid by an optional YAML file and then by environment
// variables.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	pageocr "github.com/porticus-lab/go-page-ocr"
	"github.com/porticus-lab/go-page-ocr/vision"
)

// Config holds all configuration for the capture service and CLI.
type Config struct {
	Log       LogConfig      `yaml:"log"`
	Capture   CaptureConfig  `yaml:"capture"`
	OCR       OCRConfig      `yaml:"ocr"`
	Vision    VisionConfig   `yaml:"vision"`
	Jobs      JobsConfig     `yaml:"jobs"`
	Artifacts ArtifactConfig `yaml:"artifacts"`
	Server    ServerConfig   `yaml:"server"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// CaptureConfig holds browser and page capture settings.
type CaptureConfig struct {
	ChromePath     string        `yaml:"chrome_path"`
	AutoDownload   bool          `yaml:"auto_download"`
	NoSandbox      bool          `yaml:"no_sandbox"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	ScaleFactor    float64       `yaml:"scale_factor"`
	Timeout        time.Duration `yaml:"timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	ScrollDelay    time.Duration `yaml:"scroll_delay"`
}

// OCRConfig holds text extraction settings.
type OCRConfig struct {
	ChunkHeight    int           `yaml:"chunk_height"`
	Concurrency    int           `yaml:"concurrency"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	Reflow         bool          `yaml:"reflow"`
	PartialResults bool          `yaml:"partial_results"`
}

// VisionConfig selects and configures the vision backend.
type VisionConfig struct {
	Backend string `yaml:"backend"` // gemini, openai or tesseract
	Model   string `yaml:"model"`   // empty means the backend's default

	GeminiAPIKey   string `yaml:"gemini_api_key"`
	GeminiProject  string `yaml:"gemini_project"`
	GeminiLocation string `yaml:"gemini_location"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	TesseractLanguages []string `yaml:"tesseract_languages"`
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	Retention     time.Duration `yaml:"retention"`
	Store         string        `yaml:"store"` // memory or redis
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ArtifactConfig selects where captured images and texts are persisted.
type ArtifactConfig struct {
	Store  string `yaml:"store"` // none, fs or gcs
	Dir    string `yaml:"dir"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with working defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Capture: CaptureConfig{
			ViewportWidth:  1280,
			ViewportHeight: 800,
			ScaleFactor:    1,
			Timeout:        120 * time.Second,
			SettleDelay:    1500 * time.Millisecond,
			ScrollDelay:    250 * time.Millisecond,
		},
		OCR: OCRConfig{
			ChunkHeight:    pageocr.DefaultChunkHeight,
			Concurrency:    pageocr.DefaultOCRConcurrency,
			MaxRetries:     pageocr.DefaultMaxRetries,
			RetryBaseDelay: pageocr.DefaultRetryBaseDelay,
			Reflow:         true,
		},
		Vision: VisionConfig{
			Backend:        "gemini",
			GeminiLocation: "us-central1",
		},
		Jobs: JobsConfig{
			MaxConcurrent: 2,
			Retention:     time.Hour,
			Store:         "memory",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "pageocr:job:",
			},
		},
		Artifacts: ArtifactConfig{
			Store: "none",
			Dir:   "artifacts",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Capture.ViewportWidth < 1 || c.Capture.ViewportHeight < 1 {
		return fmt.Errorf("invalid viewport: %dx%d", c.Capture.ViewportWidth, c.Capture.ViewportHeight)
	}
	if c.Capture.ScaleFactor <= 0 {
		return fmt.Errorf("scale_factor must be positive, got %v", c.Capture.ScaleFactor)
	}
	if c.OCR.ChunkHeight < 1 {
		return fmt.Errorf("chunk_height must be positive, got %d", c.OCR.ChunkHeight)
	}
	if c.OCR.Concurrency < 1 {
		return fmt.Errorf("ocr concurrency must be positive, got %d", c.OCR.Concurrency)
	}
	if c.OCR.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be positive, got %d", c.OCR.MaxRetries)
	}
	if c.OCR.RetryBaseDelay < 0 {
		return fmt.Errorf("retry_base_delay must not be negative")
	}
	switch c.Vision.Backend {
	case "gemini", "openai", "tesseract":
	default:
		return fmt.Errorf("invalid vision backend: %s", c.Vision.Backend)
	}
	if c.Jobs.MaxConcurrent < 1 {
		return fmt.Errorf("jobs max_concurrent must be positive, got %d", c.Jobs.MaxConcurrent)
	}
	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("jobs retention must be positive")
	}
	if c.Jobs.Store != "memory" && c.Jobs.Store != "redis" {
		return fmt.Errorf("invalid job store: %s", c.Jobs.Store)
	}
	switch c.Artifacts.Store {
	case "none", "fs":
	case "gcs":
		if c.Artifacts.Bucket == "" {
			return fmt.Errorf("artifacts bucket is required for the gcs store")
		}
	default:
		return fmt.Errorf("invalid artifact store: %s", c.Artifacts.Store)
	}
	return nil
}

// CaptureOptions converts the capture settings to Capturer options.
func (c *Config) CaptureOptions() []pageocr.Option {
	cc := c.Capture
	opts := []pageocr.Option{
		pageocr.WithViewport(cc.ViewportWidth, cc.ViewportHeight),
		pageocr.WithScaleFactor(cc.ScaleFactor),
		pageocr.WithTimeout(cc.Timeout),
		pageocr.WithSettleDelay(cc.SettleDelay),
		pageocr.WithScrollDelay(cc.ScrollDelay),
	}
	if cc.ChromePath != "" {
		opts = append(opts, pageocr.WithChromePath(cc.ChromePath))
	}
	if cc.AutoDownload {
		opts = append(opts, pageocr.WithAutoDownload())
	}
	if cc.NoSandbox {
		opts = append(opts, pageocr.WithNoSandbox())
	}
	return opts
}

// OCROptions converts the OCR settings to OCR options.
func (c *Config) OCROptions() []pageocr.OCROption {
	oc := c.OCR
	opts := []pageocr.OCROption{
		pageocr.WithChunkHeight(oc.ChunkHeight),
		pageocr.WithConcurrency(oc.Concurrency),
		pageocr.WithMaxRetries(oc.MaxRetries),
		pageocr.WithRetryBaseDelay(oc.RetryBaseDelay),
	}
	if !oc.Reflow {
		opts = append(opts, pageocr.WithoutReflow())
	}
	if oc.PartialResults {
		opts = append(opts, pageocr.WithPartialResults())
	}
	return opts
}

// NewBackend creates the configured vision backend. Missing credentials are
// reported as vision.ErrMissingCredentials.
func (v VisionConfig) NewBackend(ctx context.Context) (vision.Backend, error) {
	var (
		b   vision.Backend
		err error
	)
	switch v.Backend {
	case "gemini":
		b, err = vision.NewGemini(ctx, vision.GeminiConfig{
			APIKey:   v.GeminiAPIKey,
			Project:  v.GeminiProject,
			Location: v.GeminiLocation,
			Model:    v.Model,
		})
	case "openai":
		b, err = vision.NewOpenAI(vision.OpenAIConfig{
			APIKey:  v.OpenAIAPIKey,
			BaseURL: v.OpenAIBaseURL,
			Model:   v.Model,
		})
	case "tesseract":
		b, err = vision.NewTesseract(v.TesseractLanguages...)
	default:
		err = fmt.Errorf("invalid vision backend: %s", v.Backend)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// applyEnvOverrides applies environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) error {
	var errs []string
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}

	str("PAGEOCR_LOG_LEVEL", &cfg.Log.Level)

	str("PAGEOCR_CHROME_PATH", &cfg.Capture.ChromePath)
	boolean("PAGEOCR_AUTO_DOWNLOAD", &cfg.Capture.AutoDownload)
	boolean("PAGEOCR_NO_SANDBOX", &cfg.Capture.NoSandbox)
	num("PAGEOCR_VIEWPORT_WIDTH", &cfg.Capture.ViewportWidth)
	num("PAGEOCR_VIEWPORT_HEIGHT", &cfg.Capture.ViewportHeight)
	float("PAGEOCR_SCALE_FACTOR", &cfg.Capture.ScaleFactor)
	duration("PAGEOCR_CAPTURE_TIMEOUT", &cfg.Capture.Timeout)

	num("PAGEOCR_CHUNK_HEIGHT", &cfg.OCR.ChunkHeight)
	num("PAGEOCR_OCR_CONCURRENCY", &cfg.OCR.Concurrency)
	num("PAGEOCR_MAX_RETRIES", &cfg.OCR.MaxRetries)
	duration("PAGEOCR_RETRY_BASE_DELAY", &cfg.OCR.RetryBaseDelay)
	boolean("PAGEOCR_REFLOW", &cfg.OCR.Reflow)
	boolean("PAGEOCR_PARTIAL_RESULTS", &cfg.OCR.PartialResults)

	str("PAGEOCR_VISION_BACKEND", &cfg.Vision.Backend)
	str("PAGEOCR_VISION_MODEL", &cfg.Vision.Model)
	str("GEMINI_API_KEY", &cfg.Vision.GeminiAPIKey)
	str("GOOGLE_CLOUD_PROJECT", &cfg.Vision.GeminiProject)
	str("GOOGLE_CLOUD_LOCATION", &cfg.Vision.GeminiLocation)
	str("OPENAI_API_KEY", &cfg.Vision.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &cfg.Vision.OpenAIBaseURL)
	if v := os.Getenv("PAGEOCR_TESSERACT_LANGUAGES"); v != "" {
		cfg.Vision.TesseractLanguages = strings.Split(v, "+")
	}

	num("PAGEOCR_MAX_JOBS", &cfg.Jobs.MaxConcurrent)
	duration("PAGEOCR_JOB_RETENTION", &cfg.Jobs.Retention)
	str("PAGEOCR_JOB_STORE", &cfg.Jobs.Store)
	if v := os.Getenv("REDIS_URL"); v != "" {
		if opt, err := redis.ParseURL(v); err != nil {
			errs = append(errs, fmt.Sprintf("REDIS_URL: %v", err))
		} else {
			cfg.Jobs.Store = "redis"
			cfg.Jobs.Redis.Addr = opt.Addr
			cfg.Jobs.Redis.Password = opt.Password
			cfg.Jobs.Redis.DB = opt.DB
		}
	}
	str("REDIS_PASSWORD", &cfg.Jobs.Redis.Password)

	str("PAGEOCR_ARTIFACT_STORE", &cfg.Artifacts.Store)
	str("PAGEOCR_ARTIFACT_DIR", &cfg.Artifacts.Dir)
	if v := os.Getenv("PAGEOCR_GCS_BUCKET"); v != "" {
		cfg.Artifacts.Store = "gcs"
		cfg.Artifacts.Bucket = v
	}

	str("PAGEOCR_ADDR", &cfg.Server.Addr)
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}
