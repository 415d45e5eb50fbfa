package transform

import (
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdictables/internal/config"
	"fdictables/internal/exporter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestSignLog(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"zero maps to zero", 0, 0},
		{"positive", 100, math.Log1p(100)},
		{"negative keeps sign", -100, -math.Log1p(100)},
		{"small positive", 0.5, math.Log1p(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SignLog(tt.input), 1e-12)
		})
	}
}

func TestSignLog_CompressesMagnitude(t *testing.T) {
	for _, x := range []float64{2, 1000, -2, -1000} {
		got := SignLog(x)
		assert.Less(t, math.Abs(got), math.Abs(x))
		assert.Equal(t, math.Signbit(x), math.Signbit(got))
	}
}

func TestTransformColumn_ZeroSubstitution(t *testing.T) {
	values := []*float64{floatPtr(0), floatPtr(100), floatPtr(4)}

	result := TransformColumn(values)

	require.Len(t, result, 3)
	// Zero takes 1% of the smallest strictly positive value (4 -> 0.04).
	assert.InDelta(t, math.Log1p(0.04), *result[0], 1e-12)
	assert.InDelta(t, math.Log1p(100), *result[1], 1e-12)
	assert.InDelta(t, math.Log1p(4), *result[2], 1e-12)
}

func TestTransformColumn_NoPositiveValuesLeavesZeros(t *testing.T) {
	values := []*float64{floatPtr(0), floatPtr(-5), nil}

	result := TransformColumn(values)

	require.Len(t, result, 3)
	assert.Equal(t, 0.0, *result[0])
	assert.InDelta(t, -math.Log1p(5), *result[1], 1e-12)
	assert.Nil(t, result[2])
}

func TestTransformColumn_PreservesNils(t *testing.T) {
	values := []*float64{nil, floatPtr(10), nil}

	result := TransformColumn(values)

	assert.Nil(t, result[0])
	assert.NotNil(t, result[1])
	assert.Nil(t, result[2])
}

func TestSiblingPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"reports/combined_fdic_data.csv", "reports/combined_fdic_data_log.csv"},
		{"data.csv", "data_log.csv"},
		{"noext", "noext_log"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SiblingPath(tt.input))
	}
}

func TestLogTransformFile(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "combined_fdic_data.csv")
	input := "Obs,State,Date,Total Deposits - All Institutions\n" +
		"1,Alabama,03/31/2019,100\n" +
		"2,Alaska,03/31/2019,0\n" +
		"3,Arizona,03/31/2019,\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0644))

	writer := exporter.NewCSVWriter(config.NewPaths(dir))
	outputPath, err := LogTransformFile(inputPath, writer, testLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "combined_fdic_data_log.csv"), outputPath)

	// The input artifact is untouched.
	raw, err := os.ReadFile(inputPath)
	require.NoError(t, err)
	assert.Equal(t, input, string(raw))

	f, err := os.Open(outputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"Obs", "State", "Date", "Total Deposits - All Institutions"}, rows[0])
	// Identifier columns pass through untransformed.
	assert.Equal(t, []string{"1", "Alabama", "03/31/2019"}, rows[1][:3])

	v1 := mustParse(t, rows[1][3])
	assert.InDelta(t, math.Log1p(100), v1, 1e-9)
	// The zero cell gets 1% of the column minimum (100 -> 1.0).
	v2 := mustParse(t, rows[2][3])
	assert.InDelta(t, math.Log1p(1.0), v2, 1e-9)
	// Empty cells stay empty.
	assert.Equal(t, "", rows[3][3])
}

func TestLogTransformFile_NonNumericCellLeftAsIs(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "combined.csv")
	input := "Obs,State,Date,Total Assets - All Institutions\n" +
		"1,Alabama,03/31/2019,n/a\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0644))

	writer := exporter.NewCSVWriter(config.NewPaths(dir))
	outputPath, err := LogTransformFile(inputPath, writer, testLogger())
	require.NoError(t, err)

	f, err := os.Open(outputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "n/a", rows[1][3])
}

func TestLogTransformFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	writer := exporter.NewCSVWriter(config.NewPaths(dir))
	_, err := LogTransformFile(filepath.Join(dir, "absent.csv"), writer, testLogger())
	assert.Error(t, err)
}

func TestLogTransformFile_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(inputPath, nil, 0644))

	writer := exporter.NewCSVWriter(config.NewPaths(dir))
	_, err := LogTransformFile(inputPath, writer, testLogger())
	assert.Error(t, err)
}

func mustParse(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}
