package dataprocessing

import (
	"fmt"
	"strings"
)

// Category is one of the three fixed institution-size cohorts reported
// for every jurisdiction block in an export file.
type Category int

const (
	AllInstitutions Category = iota
	UnderOneBillion
	OverOneBillion
)

// AllCategories lists the categories in the fixed order they occupy
// within a jurisdiction's run of values in an export row.
var AllCategories = []Category{AllInstitutions, UnderOneBillion, OverOneBillion}

// Label returns the provider's display name for the category, used in
// composite column headers.
func (c Category) Label() string {
	switch c {
	case AllInstitutions:
		return "All Institutions"
	case UnderOneBillion:
		return "Assets Less Than $1 Billion"
	case OverOneBillion:
		return "Assets Greater Than $1 Billion"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// ParseCategory resolves a category from its display name.
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories {
		if strings.EqualFold(strings.TrimSpace(s), c.Label()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown institution category %q", s)
}

// DefaultVariables are the metrics used when the caller selects none.
var DefaultVariables = []string{"Total Deposits", "Total Assets"}

// MetricObservation is the atomic parser output: one
// (jurisdiction, period, metric, category) -> value fact.
// Value is nil when the export did not carry the combination.
type MetricObservation struct {
	State    string
	Date     string // MM/DD/YYYY once normalized
	Metric   string
	Category Category
	Value    *float64
}

// CompositeKey builds the "<metric> - <category>" column key used in
// the combined table.
func CompositeKey(metric string, category Category) string {
	return metric + " - " + category.Label()
}

// CombinedRecord is one row of the combined table: all requested
// metric-category values for a single (jurisdiction, period) pair.
// Every requested composite key is present in Values; missing
// combinations map to nil so the row shape is uniform.
type CombinedRecord struct {
	State  string
	Date   string
	Values map[string]*float64
}
