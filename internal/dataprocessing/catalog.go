package dataprocessing

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"fdictables/internal/encoding"
	"fdictables/internal/files"
)

// sectionMarker opens the data body of an export file. Metric rows
// follow it until the next all-upper-case section header.
const sectionMarker = "AGGREGATE CONDITION"

// DiscoverVariables scans one sample export file and returns the
// ordered, duplicate-free list of metric names found in its data body.
func DiscoverVariables(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample export: %w", err)
	}
	defer f.Close()

	lines, err := encoding.ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample export: %w", err)
	}

	var variables []string
	seen := make(map[string]bool)
	collecting := false

	for _, line := range lines {
		if !collecting {
			if strings.Contains(line, sectionMarker) {
				collecting = true
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// The next section header ends the body.
		if isAllUpper(trimmed) {
			break
		}

		name, ok := firstQuotedField(line)
		if !ok || name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			variables = append(variables, name)
		}
	}

	return variables, nil
}

// AvailableVariables discovers the metric catalog from the first export
// file in the directory. An empty result means no catalog is available;
// that condition is reported, not fatal.
func AvailableVariables(exportsDir string, logger *slog.Logger) []string {
	discovery := files.NewDiscovery(exportsDir)
	exports, err := discovery.FindExportFiles(".")
	if err != nil {
		logger.Warn("failed to scan exports directory for catalog",
			slog.String("dir", exportsDir),
			slog.String("error", err.Error()))
		return nil
	}
	if len(exports) == 0 {
		logger.Info("no export files found, catalog unavailable",
			slog.String("dir", exportsDir))
		return nil
	}

	variables, err := DiscoverVariables(exports[0].Path)
	if err != nil {
		logger.Warn("failed to read variable catalog",
			slog.String("file", exports[0].Name),
			slog.String("error", err.Error()))
		return nil
	}

	return variables
}

// firstQuotedField extracts the text between the first and second
// double-quote characters of a line, trimmed of whitespace.
func firstQuotedField(line string) (string, bool) {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(line[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(line[start+1 : start+1+end]), true
}

// isAllUpper reports whether s contains at least one cased character
// and no lower-case ones. Section headers in the export body are fully
// upper-case.
func isAllUpper(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}
