package dataprocessing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// exportFixture assembles a synthetic export file in the provider's
// positional layout: jurisdiction labels on lines 3, 6 and 9, the
// report date on line 4, and metric rows inside the AGGREGATE
// CONDITION section.
type exportFixture struct {
	date       string
	states     [3]string
	metricRows []string
}

func (f exportFixture) lines() []string {
	header := []string{
		`"FDIC State Tables"`,
		``,
		``,
		quoteOrEmpty(f.states[0]),
		f.date + `",,,"` + f.date + `",,,"` + f.date,
		``,
		quoteOrEmpty(f.states[1]),
		``,
		``,
		quoteOrEmpty(f.states[2]),
		`"AGGREGATE CONDITION AND INCOME DATA"`,
	}
	body := append(header, f.metricRows...)
	return append(body, `"PERFORMANCE RATIOS"`)
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return `"` + s + `"`
}

// metricRow renders a metric line: quoted label followed by quoted
// value fields.
func metricRow(label string, values ...string) string {
	parts := []string{`"` + label + `"`}
	for _, v := range values {
		parts = append(parts, `"`+v+`"`)
	}
	return strings.Join(parts, ",")
}

// writeExport writes an export fixture into dir under the given name
// and returns its path.
func writeExport(t *testing.T, dir, name string, fixture exportFixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(fixture.lines(), "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// threeStateFixture is the canonical fixture: three jurisdictions and
// a nine-value run per metric row.
func threeStateFixture() exportFixture {
	return exportFixture{
		date:   "March 31, 2019",
		states: [3]string{"Alabama", "Alaska", "Arizona"},
		metricRows: []string{
			metricRow("Total Deposits", "10", "1", "2", "20", "3", "4", "30", "5", "6"),
			metricRow("Total Assets", "0*", "2", "3", "1,234", "5", "6", "70", "8", "9"),
		},
	}
}

// writeShort truncates a fixture to fewer lines than the positional
// layout requires.
func writeShort(path string) error {
	return os.WriteFile(path, []byte("\"FDIC State Tables\"\n\n\n"), 0644)
}
