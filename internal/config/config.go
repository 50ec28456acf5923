package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/prompts"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string
	// APIKey, when set, is required as a bearer token on /api routes.
	APIKey string

	// Generation service
	AnthropicAPIKey      string
	AnthropicModel       string
	AnthropicBaseURL     string
	GenerationTimeout    time.Duration
	GenerationMaxRetries int

	// Token budgets per call kind
	AnalysisMaxTokens int
	ReportMaxTokens   int
	EditMaxTokens     int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Request limits. RequestTimeout caps one /api request; zero means the
	// server derives it from the generation retry budget.
	MaxUploadBytes int64
	MaxBodyBytes   int64
	RequestTimeout time.Duration

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Optional YAML overlay
	OverlayPath string
	Overlay     Overlay
}

// Overlay is the optional YAML file named by REPORTSMITH_CONFIG.
type Overlay struct {
	Palette struct {
		Neutrals []string          `yaml:"neutrals"`
		Colors   map[string]string `yaml:"colors"`
	} `yaml:"palette"`
	Templates []prompts.ReportTemplate `yaml:"templates"`
}

func Load() Config {
	cfg := Config{
		Port:   envOr("PORT", "3000"),
		APIKey: os.Getenv("REPORTSMITH_API_KEY"),

		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:       envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		AnthropicBaseURL:     envOr("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		GenerationTimeout:    envDuration("GENERATION_TIMEOUT", 5*time.Minute),
		GenerationMaxRetries: envInt("GENERATION_MAX_RETRIES", 5),

		AnalysisMaxTokens: envInt("ANALYSIS_MAX_TOKENS", 4000),
		ReportMaxTokens:   envInt("REPORT_MAX_TOKENS", 20000),
		EditMaxTokens:     envInt("EDIT_MAX_TOKENS", 8000),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxBodyBytes:   envInt64("MAX_BODY_BYTES", 10485760),   // 10MB
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 0),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		OverlayPath: os.Getenv("REPORTSMITH_CONFIG"),
	}

	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 5 * time.Minute
	}
	if cfg.GenerationMaxRetries <= 0 {
		cfg.GenerationMaxRetries = 5
	}
	if cfg.AnalysisMaxTokens <= 0 {
		cfg.AnalysisMaxTokens = 4000
	}
	if cfg.ReportMaxTokens <= 0 {
		cfg.ReportMaxTokens = 20000
	}
	if cfg.EditMaxTokens <= 0 {
		cfg.EditMaxTokens = 8000
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10485760
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// LoadOverlay reads the YAML overlay when OverlayPath is set.
func (c *Config) LoadOverlay() error {
	if c.OverlayPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.OverlayPath)
	if err != nil {
		return fmt.Errorf("read overlay: %w", err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse overlay %s: %w", c.OverlayPath, err)
	}
	c.Overlay = o
	return nil
}

func (c Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	for i, t := range c.Overlay.Templates {
		if t.Key == "" {
			return fmt.Errorf("overlay template %d has no key", i)
		}
	}
	return nil
}

// Palette returns the default palette extended by the overlay.
func (c Config) Palette() *edit.Palette {
	return edit.DefaultPalette().With(c.Overlay.Palette.Neutrals, c.Overlay.Palette.Colors)
}

// Templates returns the built-in report templates with overlay overrides.
func (c Config) Templates() *prompts.Templates {
	return prompts.NewTemplates(c.Overlay.Templates...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
