package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Ollama     OllamaConfig     `yaml:"ollama"`
	OCR        OCRConfig        `yaml:"ocr"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Output     OutputConfig     `yaml:"output"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Log        LogConfig        `yaml:"log"`
}

// OllamaConfig holds language-model service configuration
type OllamaConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract   string `yaml:"tesseract"`
	Pdftotext   string `yaml:"pdftotext"`
	Pdftoppm    string `yaml:"pdftoppm"`
	Lang        string `yaml:"lang"`
	TessdataDir string `yaml:"tessdata_dir"`
	DPI         int    `yaml:"dpi"`
	MaxPages    int    `yaml:"max_pages"`
	PSM         int    `yaml:"psm"`
	OEM         int    `yaml:"oem"`
	TextLayer   string `yaml:"text_layer"` // poppler | pdfcpu
}

// FieldConfig is one entry of the field schema as written in YAML.
type FieldConfig struct {
	Key         string `yaml:"key"`
	Description string `yaml:"description"`
}

// ExtractionConfig holds the field schema and validation rules
type ExtractionConfig struct {
	Fields         []FieldConfig `yaml:"fields"` // empty -> built-in invoice schema
	RequiredFields []string      `yaml:"required_fields"`
	MinTextLength  int           `yaml:"min_text_length"`
}

// OutputConfig holds result persistence configuration
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	SaveJSON bool   `yaml:"save_json"`
	XLSX     bool   `yaml:"xlsx"`
}

// LedgerConfig holds the result ledger database configuration
type LedgerConfig struct {
	DSN string `yaml:"dsn"` // empty disables the ledger
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the built-in configuration before any file or environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "qwen2.5:3b",
			Temperature: 0,
			Timeout:     120 * time.Second,
		},
		OCR: OCRConfig{
			Tesseract: "tesseract",
			Pdftotext: "pdftotext",
			Pdftoppm:  "pdftoppm",
			Lang:      "tur+eng",
			DPI:       300,
			TextLayer: "poppler",
		},
		Extraction: ExtractionConfig{
			RequiredFields: append([]string(nil), constants.DefaultRequiredFields...),
			MinTextLength:  constants.MinViableTextLength,
		},
		Output: OutputConfig{
			Dir:      "./output",
			SaveJSON: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds configuration from defaults, an optional YAML file, then environment variables.
// When path is empty, CONFIG_FILE is consulted.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse config file %s", path), err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Ollama.BaseURL = getEnv("OLLAMA_BASE_URL", c.Ollama.BaseURL)
	c.Ollama.Model = getEnv("OLLAMA_MODEL", c.Ollama.Model)
	c.Ollama.Temperature = getEnvAsFloat32("OLLAMA_TEMPERATURE", c.Ollama.Temperature)
	c.Ollama.Timeout = getEnvAsDuration("OLLAMA_TIMEOUT", c.Ollama.Timeout)

	c.OCR.Tesseract = getEnv("TESSERACT_PATH", c.OCR.Tesseract)
	c.OCR.Pdftotext = getEnv("PDFTOTEXT_PATH", c.OCR.Pdftotext)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_PATH", c.OCR.Pdftoppm)
	c.OCR.Lang = getEnv("TESSERACT_LANG", c.OCR.Lang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.TextLayer = getEnv("PDF_TEXT_LAYER", c.OCR.TextLayer)

	c.Extraction.RequiredFields = getEnvAsList("REQUIRED_FIELDS", c.Extraction.RequiredFields)

	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Ledger.DSN = getEnv("LEDGER_DSN", c.Ledger.DSN)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("ollama.base_url", c.Ollama.BaseURL, Required, HTTPURL).
		Field("ollama.model", c.Ollama.Model, Required).
		Field("ollama.timeout", c.Ollama.Timeout, Positive).
		Field("ocr.lang", c.OCR.Lang, Required).
		Field("ocr.dpi", c.OCR.DPI, Positive).
		Field("ocr.max_pages", c.OCR.MaxPages, NonNegative).
		Field("ocr.text_layer", c.OCR.TextLayer, OneOf("poppler", "pdfcpu")).
		Field("extraction.min_text_length", c.Extraction.MinTextLength, NonNegative).
		Field("output.dir", c.Output.Dir, Required).
		Field("log.format", c.Log.Format, OneOf("json", "text"))

	for i, f := range c.Extraction.Fields {
		v.Field(fmt.Sprintf("extraction.fields[%d].key", i), f.Key, Required, FieldKey)
	}
	for i, key := range c.Extraction.RequiredFields {
		v.Field(fmt.Sprintf("extraction.required_fields[%d]", i), key, Required, FieldKey)
	}

	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
