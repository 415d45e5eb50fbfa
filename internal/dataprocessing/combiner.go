package dataprocessing

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"fdictables/internal/files"
)

// Combiner merges parsed export files into one normalized table.
// A parse failure in one file is logged and isolated; it never aborts
// the batch.
type Combiner struct {
	logger *slog.Logger
}

// NewCombiner creates a combiner that logs through the given logger.
func NewCombiner(logger *slog.Logger) *Combiner {
	return &Combiner{logger: logger}
}

// CombinedTable is the terminal output of a combine run: a uniform
// header plus one record per (jurisdiction, period).
type CombinedTable struct {
	Header  []string
	Records []CombinedRecord

	compositeKeys []string
}

// Combine parses every export file in exportsDir and assembles the
// combined table. Files are processed in lexicographic name order;
// within a (jurisdiction, period, metric, category) key the last
// processed file wins. An empty table (no matching files, or every
// file malformed) is returned with a nil error.
func (c *Combiner) Combine(exportsDir string, variables []string, categories []Category) (*CombinedTable, error) {
	if len(variables) == 0 {
		variables = DefaultVariables
	}
	if len(categories) == 0 {
		categories = []Category{AllInstitutions}
	}

	table := &CombinedTable{
		Header:        buildHeader(variables, categories),
		compositeKeys: buildCompositeKeys(variables, categories),
	}

	discovery := files.NewDiscovery(exportsDir)
	exports, err := discovery.FindExportFiles(".")
	if err != nil {
		return nil, err
	}
	if len(exports) == 0 {
		c.logger.Info("no matching export files found", slog.String("dir", exportsDir))
		return table, nil
	}

	c.logger.Info("combining export files",
		slog.String("dir", exportsDir),
		slog.Int("file_count", len(exports)),
		slog.Int("variable_count", len(variables)),
		slog.Int("category_count", len(categories)))

	records := make(map[string]*CombinedRecord)
	var order []string

	for _, export := range exports {
		observations, err := ParseExport(export.Path, variables, categories, c.logger)
		if err != nil {
			// One malformed file must not abort the batch.
			c.logger.Warn("skipping malformed export file",
				slog.String("file", export.Name),
				slog.String("error", err.Error()))
			continue
		}

		for _, obs := range observations {
			key := obs.State + "\x00" + obs.Date
			record, exists := records[key]
			if !exists {
				record = &CombinedRecord{
					State:  obs.State,
					Date:   obs.Date,
					Values: make(map[string]*float64, len(table.compositeKeys)),
				}
				for _, composite := range table.compositeKeys {
					record.Values[composite] = nil
				}
				records[key] = record
				order = append(order, key)
			}
			record.Values[CompositeKey(obs.Metric, obs.Category)] = obs.Value
		}
	}

	for _, key := range order {
		table.Records = append(table.Records, *records[key])
	}
	sortRecords(table.Records)

	c.logger.Info("combine complete", slog.Int("record_count", len(table.Records)))

	return table, nil
}

// buildHeader produces Obs, State, Date and one column per requested
// metric-category combination in request order.
func buildHeader(variables []string, categories []Category) []string {
	header := []string{"Obs", "State", "Date"}
	return append(header, buildCompositeKeys(variables, categories)...)
}

func buildCompositeKeys(variables []string, categories []Category) []string {
	var keys []string
	for _, metric := range variables {
		for _, category := range categories {
			keys = append(keys, CompositeKey(metric, category))
		}
	}
	return keys
}

// sortRecords orders records by jurisdiction, then chronologically by
// period. Records whose period did not normalize sort after the parsed
// ones for the same jurisdiction, ordered by raw string.
func sortRecords(records []CombinedRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.State != b.State {
			return a.State < b.State
		}

		ay, am, ad, aok := parseDateKey(a.Date)
		by, bm, bd, bok := parseDateKey(b.Date)
		switch {
		case aok && bok:
			if ay != by {
				return ay < by
			}
			if am != bm {
				return am < bm
			}
			return ad < bd
		case aok != bok:
			return aok
		default:
			return a.Date < b.Date
		}
	})
}

// parseDateKey splits an MM/DD/YYYY string into numeric components.
func parseDateKey(s string) (year, month, day int, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	m, err1 := strconv.Atoi(parts[0])
	d, err2 := strconv.Atoi(parts[1])
	y, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, 0, 0, false
	}

	return y, m, d, true
}

// Rows renders the table body with a leading 1-based observation
// counter. Missing values render as empty strings.
func (t *CombinedTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Records))
	for i, record := range t.Records {
		row := make([]string, 0, len(t.Header))
		row = append(row, strconv.Itoa(i+1), record.State, record.Date)
		for _, composite := range t.compositeKeys {
			row = append(row, formatValue(record.Values[composite]))
		}
		rows = append(rows, row)
	}
	return rows
}

// formatValue renders a nullable numeric cell as plain decimal text.
func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
