package files

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// exportNamePattern is the filename identity encoding used by the
// retrieval layer: 2-6 upper-case letters (concatenated two-letter
// jurisdiction codes) followed by YYYYMM.
var exportNamePattern = regexp.MustCompile(`^([A-Z]{2,6})(\d{6})\.csv$`)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// ExportIdentity is the (jurisdictions, period) identity encoded in an
// export file name.
type ExportIdentity struct {
	States []string
	Period string // YYYYMM
}

// Key returns the canonical string form of the identity, which is also
// the base name of the export file without its extension.
func (id ExportIdentity) Key() string {
	return strings.Join(id.States, "") + id.Period
}

// FileName returns the export file name for this identity.
func (id ExportIdentity) FileName() string {
	return id.Key() + ".csv"
}

// ParseExportName extracts the identity from an export file name.
// Returns false if the name does not match the identity pattern.
func ParseExportName(name string) (ExportIdentity, bool) {
	m := exportNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ExportIdentity{}, false
	}

	codes := m[1]
	if len(codes)%2 != 0 {
		return ExportIdentity{}, false
	}

	var states []string
	for i := 0; i < len(codes); i += 2 {
		states = append(states, codes[i:i+2])
	}

	return ExportIdentity{States: states, Period: m[2]}, true
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindExportFiles finds all provider export files in the specified
// directory, i.e. CSV files whose names match the identity pattern.
// Results are sorted by name so batch runs process files in a
// deterministic order.
func (d *Discovery) FindExportFiles(dir string) ([]FileInfo, error) {
	files, err := d.FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	var exports []FileInfo
	for _, file := range files {
		if _, ok := ParseExportName(file.Name); ok {
			exports = append(exports, file)
		}
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].Name < exports[j].Name
	})

	return exports, nil
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	// If dir is already absolute, use it directly
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(strings.ToLower(name), ".csv") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	return files, nil
}

// ExistingIdentities returns the set of identity keys already present
// among the given files. The scraper uses this to skip combinations
// that have already been downloaded.
func ExistingIdentities(files []FileInfo) map[string]bool {
	existing := make(map[string]bool)
	for _, file := range files {
		if id, ok := ParseExportName(file.Name); ok {
			existing[id.Key()] = true
		}
	}
	return existing
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}
