package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Queue     QueueConfig
	Ingest    IngestConfig
	Countries []string
	LogLevel  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds document text extraction configuration
type OCRConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	MaxPages      int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float32
	Timeout           time.Duration
	RequestsPerSecond float64
}

// PipelineConfig tunes question extraction
type PipelineConfig struct {
	PageConcurrency    int
	CountryPromptChars int
}

// QueueConfig sizes the background upload queue
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// IngestConfig controls the inbox watcher; an empty InboxDir disables it
type IngestConfig struct {
	InboxDir string
	Debounce time.Duration
}

// fileConfig mirrors the optional TOML overlay. Zero values leave defaults untouched.
type fileConfig struct {
	Database struct {
		Driver   string `toml:"driver"`
		DSN      string `toml:"dsn"`
		MaxConns int32  `toml:"max_conns"`
		MinConns int32  `toml:"min_conns"`
	} `toml:"database"`
	Server struct {
		GRPCAddr string `toml:"grpc_addr"`
	} `toml:"server"`
	LLM struct {
		Model             string  `toml:"model"`
		BaseURL           string  `toml:"base_url"`
		Timeout           string  `toml:"timeout"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
	} `toml:"llm"`
	Pipeline struct {
		PageConcurrency    int `toml:"page_concurrency"`
		CountryPromptChars int `toml:"country_prompt_chars"`
	} `toml:"pipeline"`
	Ingest struct {
		InboxDir string `toml:"inbox_dir"`
	} `toml:"ingest"`
	Countries []string `toml:"countries"`
	LogLevel  string   `toml:"log_level"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			BaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:       getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			RequestsPerSecond: getEnvAsFloat64("OPENAI_RPS", 2),
		},
		Pipeline: PipelineConfig{
			PageConcurrency:    getEnvAsInt("PAGE_CONCURRENCY", 4),
			CountryPromptChars: getEnvAsInt("COUNTRY_PROMPT_CHARS", 2000),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 2),
			Size:           getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 10*time.Minute),
		},
		Ingest: IngestConfig{
			InboxDir: getEnv("INBOX_DIR", ""),
			Debounce: getEnvAsDuration("INBOX_DEBOUNCE", 2*time.Second),
		},
		Countries: getEnvAsList("SUPPORTED_COUNTRIES"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// LoadConfigFile loads a TOML overlay from path and then applies environment
// variables on top, so the environment always wins.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %q", path), err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %q", path), err)
	}
	cfg.applyFile(fc)
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) {
	setStr := func(dst *string, envKey, v string) {
		if v != "" && os.Getenv(envKey) == "" {
			*dst = v
		}
	}
	setStr(&c.Database.Driver, "DB_DRIVER", fc.Database.Driver)
	setStr(&c.Database.DSN, "DB_URL", fc.Database.DSN)
	setStr(&c.Server.GRPCAddr, "GRPC_ADDR", fc.Server.GRPCAddr)
	setStr(&c.LLM.Model, "OPENAI_MODEL", fc.LLM.Model)
	setStr(&c.LLM.BaseURL, "OPENAI_BASE_URL", fc.LLM.BaseURL)
	setStr(&c.Ingest.InboxDir, "INBOX_DIR", fc.Ingest.InboxDir)
	setStr(&c.LogLevel, "LOG_LEVEL", fc.LogLevel)

	if fc.Database.MaxConns > 0 && os.Getenv("DB_MAX_CONNS") == "" {
		c.Database.MaxConns = fc.Database.MaxConns
	}
	if fc.Database.MinConns > 0 && os.Getenv("DB_MIN_CONNS") == "" {
		c.Database.MinConns = fc.Database.MinConns
	}
	if d, err := time.ParseDuration(fc.LLM.Timeout); err == nil && os.Getenv("OPENAI_TIMEOUT") == "" {
		c.LLM.Timeout = d
	}
	if fc.LLM.RequestsPerSecond > 0 && os.Getenv("OPENAI_RPS") == "" {
		c.LLM.RequestsPerSecond = fc.LLM.RequestsPerSecond
	}
	if fc.Pipeline.PageConcurrency > 0 && os.Getenv("PAGE_CONCURRENCY") == "" {
		c.Pipeline.PageConcurrency = fc.Pipeline.PageConcurrency
	}
	if fc.Pipeline.CountryPromptChars > 0 && os.Getenv("COUNTRY_PROMPT_CHARS") == "" {
		c.Pipeline.CountryPromptChars = fc.Pipeline.CountryPromptChars
	}
	if len(fc.Countries) > 0 && os.Getenv("SUPPORTED_COUNTRIES") == "" {
		c.Countries = fc.Countries
	}
}

// SlogLevel maps LogLevel onto slog levels; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a semicolon-separated list; country names may contain commas.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite")).
		Field("DB_URL", c.Database.DSN, Required).
		Field("GRPC_ADDR", c.Server.GRPCAddr, Required)
	if c.Pipeline.PageConcurrency < 1 {
		v.Field("PAGE_CONCURRENCY", c.Pipeline.PageConcurrency, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "must be at least 1"}
		})
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
