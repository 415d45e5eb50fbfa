package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds every directory and well-known artifact the pipeline
// touches. A value is constructed from an explicit base directory and
// threaded into each component; nothing reads a package-level default.
type Paths struct {
	BaseDir    string
	ExportsDir string
	ReportsDir string
	LogsDir    string

	// Well-known artifacts in the reports directory.
	CombinedCSV  string
	CombinedXLSX string
}

// NewPaths builds the path set rooted at baseDir.
//
// Layout:
//
//	<base>/
//	  exports/   raw provider export files (<STATES><YYYYMM>.csv)
//	  reports/   combined and transformed tables
//	  logs/      application logs
func NewPaths(baseDir string) *Paths {
	exportsDir := filepath.Join(baseDir, "exports")
	reportsDir := filepath.Join(baseDir, "reports")

	return &Paths{
		BaseDir:    baseDir,
		ExportsDir: exportsDir,
		ReportsDir: reportsDir,
		LogsDir:    filepath.Join(baseDir, "logs"),

		CombinedCSV:  filepath.Join(reportsDir, "combined_fdic_data.csv"),
		CombinedXLSX: filepath.Join(reportsDir, "combined_fdic_data.xlsx"),
	}
}

// EnsureDirectories creates every directory in the path set.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.BaseDir, p.ExportsDir, p.ReportsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetExportPath returns the full path for an export file name.
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetReportPath returns the full path for a report file name.
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the full path for a log file name.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}
