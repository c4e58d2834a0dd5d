//nolint:lll
package config

import "github.com/MeKo-Tech/docnorm/internal/onnx"

// Config represents the complete configuration for docnorm. It is loaded
// from a config file, DOCNORM_* environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// DebugDir enables normalizer debug dumps when set.
	DebugDir string `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`

	Model   ModelConfig   `mapstructure:"model" yaml:"model" json:"model"`
	PDF     PDFConfig     `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	OCR     OCRConfig     `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Engines EnginesConfig `mapstructure:"engines" yaml:"engines" json:"engines"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
}

// ModelConfig contains corner detection model settings.
type ModelConfig struct {
	Path        string         `mapstructure:"path" yaml:"path" json:"path"`
	LibraryPath string         `mapstructure:"library_path" yaml:"library_path" json:"library_path"`
	NumThreads  int            `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	Threshold   float32        `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	PadOffset   int            `mapstructure:"pad_offset" yaml:"pad_offset" json:"pad_offset"`
	GPU         onnx.GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// PDFConfig contains first-page rendering settings.
type PDFConfig struct {
	Binary     string `mapstructure:"binary" yaml:"binary" json:"binary"`
	DPI        int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// OCRConfig contains dispatcher settings.
type OCRConfig struct {
	Workers           int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst" json:"burst"`
	DefaultEngine     string  `mapstructure:"default_engine" yaml:"default_engine" json:"default_engine"`
	DefaultLang       string  `mapstructure:"default_lang" yaml:"default_lang" json:"default_lang"`
}

// EnginesConfig holds per-engine settings. Remote engines are registered only
// when their API key is set.
type EnginesConfig struct {
	Tesseract    TesseractConfig    `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
	GoogleVision GoogleVisionConfig `mapstructure:"google_vision" yaml:"google_vision" json:"google_vision"`
	ChatGPT      GenerativeConfig   `mapstructure:"chatgpt" yaml:"chatgpt" json:"chatgpt"`
	Gemini       GenerativeConfig   `mapstructure:"gemini" yaml:"gemini" json:"gemini"`
	Claude       GenerativeConfig   `mapstructure:"claude" yaml:"claude" json:"claude"`
}

type TesseractConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Sessions       int    `mapstructure:"sessions" yaml:"sessions" json:"sessions"`
	TessdataPrefix string `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
}

type GoogleVisionConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
}

// GenerativeConfig configures one generative vision engine. Zero prices fall
// back to the engine's built-in tariff.
type GenerativeConfig struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Model           string  `mapstructure:"model" yaml:"model" json:"model"`
	PromptPrice     float64 `mapstructure:"prompt_price" yaml:"prompt_price" json:"prompt_price"`
	CompletionPrice float64 `mapstructure:"completion_price" yaml:"completion_price" json:"completion_price"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}
