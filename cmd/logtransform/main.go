package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"fdictables/internal/config"
	"fdictables/internal/exporter"
	"fdictables/internal/infrastructure"
	"fdictables/internal/transform"
)

func main() {
	inFile := flag.String("in", "", "combined table to transform (defaults to <base>/reports/combined_fdic_data.csv)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	paths := config.NewPaths(cfg.Paths.BaseDir)
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	if cfg.Logging.FilePath == "" || cfg.Logging.FilePath == "logs/app.log" {
		cfg.Logging.FilePath = paths.GetLogPath("logtransform.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	ctx := infrastructure.ContextWithTraceID(context.Background())
	logger = infrastructure.WithComponent(infrastructure.LoggerWithContext(ctx), "logtransform")

	if *inFile == "" {
		*inFile = paths.CombinedCSV
	}

	logger.Info("Starting log transform", slog.String("input_file", *inFile))

	writer := exporter.NewCSVWriter(paths)
	outputPath, err := transform.LogTransformFile(*inFile, writer, logger)
	if err != nil {
		logger.Error("Log transform failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Log transformation complete. Output saved to %s\n", outputPath)
}
