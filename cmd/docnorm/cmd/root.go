package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/docnorm/internal/config"
	"github.com/MeKo-Tech/docnorm/internal/version"
)

var (
	configLoader *config.Loader
	globalConfig *config.Config
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "docnorm",
	Short: "Document normalization and field OCR",
	Long: `docnorm straightens photographed or scanned documents and reads named
fields out of them.

An uploaded image is padded, its four corners are located by a heatmap model
and the page is warped onto the pixel grid of a known layout. PDFs are
rendered and resized instead. Each layout field is then cropped and sent to
one or more recognition engines (tesseract, googleVision, chatGpt, gemini,
claude), which report text, confidence and cost per field.

Examples:
  docnorm normalize photo.jpg --width 1000 --height 630 -o card.png
  docnorm extract photo.jpg --layout id-card.yaml --engines tesseract,chatGpt --lang de
  docnorm serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		setupLogging(globalConfig)
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for tests.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is docnorm.yaml in ., $HOME, $XDG_CONFIG_HOME/docnorm, /etc/docnorm)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("model", "", "path to the corner detection ONNX model")
	rootCmd.PersistentFlags().String("debug-dir", "", "write corner and comparison images into this directory")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("model.path", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("debug_dir", rootCmd.PersistentFlags().Lookup("debug-dir"))
}

// initConfig loads the configuration once flags are parsed, so bound flags
// override file and environment values.
func initConfig() error {
	configLoader = config.NewLoader()

	cfg, err := configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	globalConfig = cfg
	if used := configLoader.ConfigFileUsed(); used != "" {
		slog.Debug("Configuration loaded", "file", used)
	}
	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			d := config.DefaultConfig()
			return &d
		}
	}
	return globalConfig
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch strings.ToLower(cfg.LogLevel) {
		case "debug":
			level = slog.LevelDebug
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// stdout carries command output
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
