package dataprocessing

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"fdictables/internal/encoding"
)

// The export layout is fixed and positional. Line indices are 0-based.
const (
	dateLineIndex = 4
	// dateDelimiter separates the report date from the rest of its line.
	dateDelimiter = `",,,"`
	// censoredZero marks a censored/rounded value in the source data.
	censoredZero = "0*"
)

// stateLineIndices are the lines carrying jurisdiction names, one per
// block, for up to three blocks per file.
var stateLineIndices = []int{3, 6, 9}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ParseExport parses one export file into MetricObservations for the
// requested metrics and institution categories.
//
// Observations are emitted in jurisdiction, then metric, then category
// order. A metric absent from the file yields nil values for every
// combination; a jurisdiction block with fewer values than expected
// yields nil for the overflowing categories. Structural problems (file
// unreadable, too few lines) fail the whole file so the caller can skip
// it and continue the batch.
func ParseExport(path string, variables []string, categories []Category, logger *slog.Logger) ([]MetricObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	lines, err := encoding.ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	maxIndex := stateLineIndices[len(stateLineIndices)-1]
	if len(lines) <= maxIndex {
		return nil, fmt.Errorf("export too short: %d lines, need at least %d", len(lines), maxIndex+1)
	}

	if len(variables) == 0 {
		variables = DefaultVariables
	}
	if len(categories) == 0 {
		categories = []Category{AllInstitutions}
	}

	date := extractReportDate(lines[dateLineIndex], logger)
	states := extractStates(lines)
	if len(states) == 0 {
		return nil, fmt.Errorf("no jurisdiction labels found")
	}

	metricRows := indexMetricRows(lines)

	var observations []MetricObservation
	for si, state := range states {
		for _, metric := range variables {
			var values []*float64
			row, found := metricRows[metric]
			if found {
				values = parseValueRow(lines[row], logger)
			} else {
				logger.Warn("metric not found in export",
					slog.String("file", path),
					slog.String("metric", metric))
			}

			for _, category := range categories {
				var value *float64
				if found {
					// Values run in groups of three per jurisdiction
					// block: All, Under-$1B, Over-$1B.
					idx := 3*si + int(category)
					if idx < len(values) {
						value = values[idx]
					}
				}
				observations = append(observations, MetricObservation{
					State:    state,
					Date:     date,
					Metric:   metric,
					Category: category,
					Value:    value,
				})
			}
		}
	}

	return observations, nil
}

// ValidateExport checks that an export file matches the expected
// structural layout and returns the jurisdiction labels it carries.
// The retrieval stage runs this right after a download to surface
// truncated or off-layout files early.
func ValidateExport(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	lines, err := encoding.ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	maxIndex := stateLineIndices[len(stateLineIndices)-1]
	if len(lines) <= maxIndex {
		return nil, fmt.Errorf("export too short: %d lines, need at least %d", len(lines), maxIndex+1)
	}

	states := extractStates(lines)
	if len(states) == 0 {
		return nil, fmt.Errorf("no jurisdiction labels found")
	}

	if !hasSectionMarker(lines) {
		return states, fmt.Errorf("data section marker %q not found", sectionMarker)
	}

	return states, nil
}

func hasSectionMarker(lines []string) bool {
	for _, line := range lines {
		if strings.Contains(line, sectionMarker) {
			return true
		}
	}
	return false
}

// extractReportDate pulls the reporting period from the date line and
// normalizes it to MM/DD/YYYY. On conversion failure the raw text is
// passed through and the failure logged.
func extractReportDate(line string, logger *slog.Logger) string {
	raw := line
	if before, _, found := strings.Cut(line, dateDelimiter); found {
		raw = before
	}
	// The date is the trailing text of the last physical segment.
	if i := strings.LastIndexByte(raw, '\n'); i >= 0 {
		raw = raw[i+1:]
	}
	raw = strings.TrimSpace(raw)

	return convertDate(raw, logger)
}

// convertDate converts "Month DD, YYYY" to "MM/DD/YYYY".
func convertDate(s string, logger *slog.Logger) string {
	t, err := time.Parse("January 2, 2006", s)
	if err != nil {
		logger.Warn("failed to convert report date, passing through",
			slog.String("date", s),
			slog.String("error", err.Error()))
		return s
	}
	return t.Format("01/02/2006")
}

// extractStates reads the jurisdiction labels from their fixed lines.
// A candidate is rejected if it is empty, mentions "National", or looks
// like a repeated date line (contains a long month name).
func extractStates(lines []string) []string {
	var states []string
	for _, idx := range stateLineIndices {
		state := strings.Trim(strings.TrimSpace(lines[idx]), `"`)
		if state == "" || strings.Contains(state, "National") || containsMonthName(state) {
			continue
		}
		states = append(states, state)
	}
	return states
}

func containsMonthName(s string) bool {
	for _, month := range monthNames {
		if strings.Contains(s, month) {
			return true
		}
	}
	return false
}

// indexMetricRows maps each metric name (the first quoted field of a
// line) to the first line it appears on. Looking rows up by exact name
// avoids resolving a metric to another metric's row when one name is a
// substring of the other.
func indexMetricRows(lines []string) map[string]int {
	rows := make(map[string]int)
	for i, line := range lines {
		name, ok := firstQuotedField(line)
		if !ok || name == "" {
			continue
		}
		if _, exists := rows[name]; !exists {
			rows[name] = i
		}
	}
	return rows
}

// parseValueRow extracts the numeric values from a metric row. The row
// is split on double quotes and the values occupy every second field
// starting at field index 3. Empty fields are compacted; the censored
// token parses as zero; an unparseable field is logged and recorded as
// nil in place, so the positions of the remaining values stay aligned
// to their (jurisdiction, category) slots.
func parseValueRow(line string, logger *slog.Logger) []*float64 {
	fields := strings.Split(line, `"`)

	var values []*float64
	for i := 3; i < len(fields); i += 2 {
		field := strings.TrimSpace(fields[i])
		if field == "" {
			continue
		}
		if field == censoredZero {
			zero := 0.0
			values = append(values, &zero)
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(field, ",", ""), 64)
		if err != nil {
			logger.Warn("unparseable value field, recording as missing",
				slog.String("field", field),
				slog.String("error", err.Error()))
			values = append(values, nil)
			continue
		}
		values = append(values, &v)
	}

	return values
}
