package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"fdictables/internal/config"
	"fdictables/internal/dataprocessing"
	"fdictables/internal/exporter"
	"fdictables/internal/infrastructure"
)

func main() {
	inDir := flag.String("in", "", "input directory for export files (defaults to <base>/exports)")
	outFile := flag.String("out", "", "output CSV path (defaults to <base>/reports/combined_fdic_data.csv)")
	varsFlag := flag.String("vars", "", "comma-separated metric names (empty = Total Deposits, Total Assets)")
	catsFlag := flag.String("categories", "", "comma-separated institution categories, or 'all' (empty = All Institutions)")
	listVars := flag.Bool("list-vars", false, "print the variable catalog discovered from a sample export and exit")
	writeXLSX := flag.Bool("xlsx", false, "also write the combined table as an Excel workbook")
	flag.Parse()

	// Optional .env for local runs; absence is not an error.
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
		cfg.Logging.FilePath = paths.GetLogPath("processor.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	ctx := infrastructure.ContextWithTraceID(context.Background())
	logger = infrastructure.WithComponent(infrastructure.LoggerWithContext(ctx), "processor")

	if *inDir == "" {
		*inDir = paths.ExportsDir
	}
	if *outFile == "" {
		*outFile = paths.CombinedCSV
	}

	logger.Info("Starting combine run",
		slog.String("input_dir", *inDir),
		slog.String("output_file", *outFile))

	if *listVars {
		variables := dataprocessing.AvailableVariables(*inDir, logger)
		if len(variables) == 0 {
			fmt.Println("No variables found; the exports directory has no readable export files.")
			return
		}
		fmt.Println("Available variables:")
		for i, v := range variables {
			fmt.Printf("%3d. %s\n", i+1, v)
		}
		return
	}

	variables := splitList(*varsFlag)
	categories, err := parseCategories(*catsFlag)
	if err != nil {
		logger.Error("Invalid categories selection", slog.String("error", err.Error()))
		os.Exit(1)
	}

	combiner := dataprocessing.NewCombiner(logger)
	table, err := combiner.Combine(*inDir, variables, categories)
	if err != nil {
		logger.Error("Combine run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if len(table.Records) == 0 {
		logger.Info("No data was combined, nothing written")
		fmt.Println("No data was processed successfully.")
		return
	}

	csvWriter := exporter.NewCSVWriter(paths)
	if err := writeCombinedCSV(csvWriter, *outFile, table); err != nil {
		logger.Error("Failed to write combined table", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Combined table written",
		slog.String("output_file", *outFile),
		slog.Int("record_count", len(table.Records)))
	fmt.Printf("Successfully combined %d records into %s\n", len(table.Records), *outFile)

	if *writeXLSX {
		xlsxWriter := exporter.NewXLSXWriter("Combined")
		if err := xlsxWriter.WriteWorkbook(paths.CombinedXLSX, table.Header, table.Rows()); err != nil {
			logger.Error("Failed to write workbook", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Workbook written", slog.String("output_file", paths.CombinedXLSX))
	}
}

// writeCombinedCSV streams the combined table to disk row by row, so a
// large batch never materializes twice in memory.
func writeCombinedCSV(writer *exporter.CSVWriter, path string, table *dataprocessing.CombinedTable) error {
	stream, err := writer.CreateStreamWriter(path, table.Header)
	if err != nil {
		return err
	}

	for _, row := range table.Rows() {
		if err := stream.WriteRecord(row); err != nil {
			stream.Close()
			return err
		}
	}

	return stream.Close()
}

// splitList splits a comma-separated flag value, trimming whitespace
// and dropping empty entries.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseCategories resolves the -categories flag into category values.
func parseCategories(s string) ([]dataprocessing.Category, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}
	if strings.EqualFold(trimmed, "all") {
		return dataprocessing.AllCategories, nil
	}

	var categories []dataprocessing.Category
	for _, part := range splitList(s) {
		category, err := dataprocessing.ParseCategory(part)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}
