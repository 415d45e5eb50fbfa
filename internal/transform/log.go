// Package transform post-processes a combined table, replacing numeric
// columns with a sign-preserving logarithmic transform. It runs as a
// separate offline pass and never overwrites the untransformed input.
package transform

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fdictables/internal/encoding"
	"fdictables/internal/exporter"
)

// skipColumns are the non-data columns of a combined table. Their
// cells pass through untouched.
var skipColumns = map[string]bool{
	"Obs":   true,
	"State": true,
	"Date":  true,
}

// LogSuffix is inserted before the extension of the output artifact.
const LogSuffix = "_log"

// LogTransformFile reads a combined table, transforms every numeric
// column, and writes the result as a sibling artifact with the _log
// suffix. Returns the output path.
func LogTransformFile(inputPath string, writer *exporter.CSVWriter, logger *slog.Logger) (string, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to open combined table: %w", err)
	}
	defer f.Close()

	utf8Reader, err := encoding.NewUTF8Reader(f)
	if err != nil {
		return "", fmt.Errorf("failed to prepare reader: %w", err)
	}

	reader := csv.NewReader(utf8Reader)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read combined table: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("combined table %s is empty", inputPath)
	}

	header := rows[0]
	body := rows[1:]

	for col, name := range header {
		if skipColumns[name] {
			continue
		}
		transformColumn(body, col, name, logger)
	}

	outputPath := SiblingPath(inputPath)
	if err := writer.WriteSimpleCSV(outputPath, header, body); err != nil {
		return "", fmt.Errorf("failed to write transformed table: %w", err)
	}

	logger.Info("log transform complete",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.Int("row_count", len(body)))

	return outputPath, nil
}

// transformColumn applies the zero substitution and the sign-preserving
// log transform to one column of the table body, in place. Cells that
// are empty or do not parse are left as they are.
func transformColumn(body [][]string, col int, name string, logger *slog.Logger) {
	values := make([]*float64, len(body))
	for i, row := range body {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			logger.Warn("non-numeric cell in data column, leaving as-is",
				slog.String("column", name),
				slog.Int("row", i+1),
				slog.String("cell", cell))
			continue
		}
		values[i] = &v
	}

	transformed := TransformColumn(values)

	for i, v := range transformed {
		if v == nil || col >= len(body[i]) {
			continue
		}
		body[i][col] = strconv.FormatFloat(*v, 'f', -1, 64)
	}
}

// TransformColumn transforms one numeric column. Exact zeros are first
// replaced with 1% of the column's minimum strictly-positive value, if
// one exists, to keep the transform away from its singularity while
// preserving relative ordering near zero. Every value is then mapped
// through sign(x) * ln(1+|x|). Nil entries (missing cells) stay nil.
func TransformColumn(values []*float64) []*float64 {
	minPositive := math.Inf(1)
	for _, v := range values {
		if v != nil && *v > 0 && *v < minPositive {
			minPositive = *v
		}
	}

	result := make([]*float64, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		x := *v
		if x == 0 && !math.IsInf(minPositive, 1) {
			x = minPositive * 0.01
		}
		t := SignLog(x)
		result[i] = &t
	}

	return result
}

// SignLog is the sign-preserving log transform sign(x) * ln(1+|x|).
// It is continuous through zero and keeps negative deltas negative.
func SignLog(x float64) float64 {
	if x == 0 {
		return 0
	}
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	return sign * math.Log1p(math.Abs(x))
}

// SiblingPath derives the output path by inserting the log suffix
// before the file extension.
func SiblingPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	return base + LogSuffix + ext
}
