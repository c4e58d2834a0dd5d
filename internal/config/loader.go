package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "docnorm"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "DOCNORM"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance, which is where
// the cobra flags are bound.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on an explicit viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the config file from the search paths (a missing file is not an
// error), applies environment overrides and defaults, then validates.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile is Load with an explicit config file. An empty path searches
// the standard locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation loads the configuration but skips Validate.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile)
}

func (l *Loader) load(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// ConfigFileUsed returns the path of the config file used.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range SearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal, including keys with an empty default such as API keys.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("debug_dir", d.DebugDir)

	l.v.SetDefault("model.path", d.Model.Path)
	l.v.SetDefault("model.library_path", d.Model.LibraryPath)
	l.v.SetDefault("model.num_threads", d.Model.NumThreads)
	l.v.SetDefault("model.threshold", d.Model.Threshold)
	l.v.SetDefault("model.pad_offset", d.Model.PadOffset)
	l.v.SetDefault("model.gpu.enabled", d.Model.GPU.UseGPU)
	l.v.SetDefault("model.gpu.device", d.Model.GPU.DeviceID)
	l.v.SetDefault("model.gpu.memory_limit", d.Model.GPU.GPUMemLimit)
	l.v.SetDefault("model.gpu.arena_extend_strategy", d.Model.GPU.ArenaExtendStrategy)

	l.v.SetDefault("pdf.binary", d.PDF.Binary)
	l.v.SetDefault("pdf.dpi", d.PDF.DPI)
	l.v.SetDefault("pdf.timeout_sec", d.PDF.TimeoutSec)

	l.v.SetDefault("ocr.workers", d.OCR.Workers)
	l.v.SetDefault("ocr.requests_per_second", d.OCR.RequestsPerSecond)
	l.v.SetDefault("ocr.burst", d.OCR.Burst)
	l.v.SetDefault("ocr.default_engine", d.OCR.DefaultEngine)
	l.v.SetDefault("ocr.default_lang", d.OCR.DefaultLang)

	l.v.SetDefault("engines.tesseract.enabled", d.Engines.Tesseract.Enabled)
	l.v.SetDefault("engines.tesseract.sessions", d.Engines.Tesseract.Sessions)
	l.v.SetDefault("engines.tesseract.tessdata_prefix", d.Engines.Tesseract.TessdataPrefix)
	l.v.SetDefault("engines.google_vision.api_key", "")
	l.v.SetDefault("engines.google_vision.endpoint", "")
	for _, name := range []string{"chatgpt", "gemini", "claude"} {
		prefix := "engines." + name + "."
		l.v.SetDefault(prefix+"api_key", "")
		l.v.SetDefault(prefix+"base_url", "")
		l.v.SetDefault(prefix+"model", "")
		l.v.SetDefault(prefix+"prompt_price", 0.0)
		l.v.SetDefault(prefix+"completion_price", 0.0)
	}

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit_enabled", d.Server.RateLimitEnabled)
	l.v.SetDefault("server.requests_per_minute", d.Server.RequestsPerMinute)
	l.v.SetDefault("server.max_data_per_day_mb", d.Server.MaxDataPerDayMB)
}

// GenerateDefaultConfigFile writes the defaults to filename (docnorm.yaml when empty).
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.v.WriteConfigAs(filename)
}

// SearchPaths returns the directories searched for docnorm.yaml, in order.
func SearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(configDir, "docnorm"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "docnorm"))
	}

	return append(paths, "/etc/docnorm")
}
