package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Fill inputs
	InfoFile     string
	Dir          string
	OutputPrefix string
	ProfilePath  string
	MaxTargets   int

	// Batch parallelism inside one fill run
	FillWorkers int

	// Job worker pool (serve)
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration
	JobDir string

	// PDF
	PDFFallbackPdftotext bool

	// Legacy .doc conversion
	ConverterBin string

	// History database; empty disables it.
	HistoryDB string

	WatchDebounce time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCFILL_API_KEY"),

		InfoFile:     envOr("DOCFILL_INFO_FILE", "information.docx"),
		Dir:          envOr("DOCFILL_DIR", "."),
		OutputPrefix: envOr("DOCFILL_OUTPUT_PREFIX", "filled_"),
		ProfilePath:  os.Getenv("DOCFILL_PROFILE"),
		MaxTargets:   envInt("DOCFILL_MAX_TARGETS", 10),

		FillWorkers: envInt("DOCFILL_WORKERS", 1),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
		JobDir: envOr("JOB_DIR", os.TempDir()),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		ConverterBin: envOr("DOCFILL_CONVERTER", "soffice"),

		HistoryDB: os.Getenv("DOCFILL_HISTORY_DB"),

		WatchDebounce: envDuration("DOCFILL_WATCH_DEBOUNCE", 500*time.Millisecond),
	}

	if cfg.MaxTargets <= 0 {
		cfg.MaxTargets = 10
	}
	if cfg.FillWorkers <= 0 {
		cfg.FillWorkers = 1
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 500 * time.Millisecond
	}

	return cfg
}

// Validate checks settings every command needs.
func (c Config) Validate() error {
	if c.InfoFile == "" {
		return fmt.Errorf("DOCFILL_INFO_FILE must not be empty")
	}
	if c.OutputPrefix == "" {
		return fmt.Errorf("DOCFILL_OUTPUT_PREFIX must not be empty")
	}
	return nil
}

// ValidateServe additionally checks what the HTTP service needs.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCFILL_API_KEY is required")
	}
	return nil
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
