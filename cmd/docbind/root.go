package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/porticus-lab/go-docbind"
	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

// envConfig holds settings read from the environment. Flags override
// the browser and worker values when set explicitly.
type envConfig struct {
	LogFormat  string `env:"LOG_FORMAT" env-default:"text" env-description:"Log output format (text or json)"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" env-description:"Log level (debug, info, warn, error)"`
	ChromePath string `env:"DOCBIND_CHROME_PATH" env-default:"" env-description:"Path to the Chrome or Chromium binary"`
	Workers    int    `env:"DOCBIND_WORKERS" env-default:"4" env-description:"Concurrent render workers"`
}

func loadEnv() (envConfig, error) {
	var conf envConfig
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return conf, fmt.Errorf("reading environment: %w", err)
	}
	return conf, nil
}

// createLogger builds a slog logger backed by zerolog and installs it
// as the process default.
func createLogger(conf envConfig) *slog.Logger {
	var level slog.Level
	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var zl zerolog.Logger
	if conf.LogFormat == "json" {
		zl = zerolog.New(os.Stderr)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	handler := slogzerolog.Option{
		Level:  level,
		Logger: &zl,
	}.NewZerologHandler()

	logger := slog.New(handler)
	log.SetFlags(0)
	slog.SetDefault(logger)
	return logger
}

// NewRootCmd creates the root command for docbind.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docbind",
		Short: "Render local HTML files to PDF and bind linked sets into one document",
		Long: `docbind renders local HTML files to PDF with headless Chrome.

The merge command follows local links out of an index file, renders
every reachable page, and binds them into a single PDF in reading
order. The convert command renders a single file or every HTML file in
a directory without following links.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("chrome", "", "Path to the Chrome or Chromium binary")
	cmd.PersistentFlags().Bool("download-browser", false, "Download a browser automatically when none is found")
	cmd.PersistentFlags().Bool("no-sandbox", false, "Run the browser without its sandbox")
	cmd.PersistentFlags().Duration("timeout", 0, "Per-page render timeout (0 uses the default)")
	cmd.PersistentFlags().IntP("workers", "w", 0, "Concurrent render workers (0 uses DOCBIND_WORKERS)")

	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewSampleCmd())

	return cmd
}

// binderOptions translates flags and environment settings into Binder
// options.
func binderOptions(cmd *cobra.Command, conf envConfig, logger *slog.Logger) []docbind.Option {
	opts := []docbind.Option{docbind.WithLogger(logger)}

	chrome, _ := cmd.Flags().GetString("chrome")
	if chrome == "" {
		chrome = conf.ChromePath
	}
	if chrome != "" {
		opts = append(opts, docbind.WithChromePath(chrome))
	}
	if download, _ := cmd.Flags().GetBool("download-browser"); download {
		opts = append(opts, docbind.WithAutoDownload())
	}
	if noSandbox, _ := cmd.Flags().GetBool("no-sandbox"); noSandbox {
		opts = append(opts, docbind.WithNoSandbox())
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		opts = append(opts, docbind.WithTimeout(timeout))
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = conf.Workers
	}
	if workers > 0 {
		opts = append(opts, docbind.WithWorkers(workers))
	}
	return opts
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
