// Package exporter writes pipeline artifacts: the combined table as
// CSV and, optionally, as an Excel workbook.
package exporter
