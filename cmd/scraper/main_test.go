package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdictables/internal/config"
)

func TestResolveHeadless(t *testing.T) {
	cfg := config.ScraperConfig{Headless: false}

	// An explicit flag wins over the configured value.
	assert.True(t, resolveHeadless(true, true, cfg))
	assert.False(t, resolveHeadless(false, true, cfg))

	// Without an explicit flag the configured value applies.
	assert.False(t, resolveHeadless(true, false, cfg))
	cfg.Headless = true
	assert.True(t, resolveHeadless(false, false, cfg))
}

func TestEnumerateQuarters_Range(t *testing.T) {
	quarters, err := enumerateQuarters("range", "201903", "202006")
	require.NoError(t, err)
	assert.Equal(t, []string{"201903", "201906", "201909", "201912", "202003", "202006"}, quarters)
}

func TestEnumerateQuarters_SingleQuarter(t *testing.T) {
	quarters, err := enumerateQuarters("range", "202012", "202012")
	require.NoError(t, err)
	assert.Equal(t, []string{"202012"}, quarters)
}

func TestEnumerateQuarters_InvalidInputs(t *testing.T) {
	_, err := enumerateQuarters("range", "201902", "201912")
	assert.Error(t, err, "non-quarter month")

	_, err = enumerateQuarters("range", "2019", "201912")
	assert.Error(t, err, "malformed period")

	_, err = enumerateQuarters("range", "202012", "201903")
	assert.Error(t, err, "inverted range")

	_, err = enumerateQuarters("bogus", "201903", "201912")
	assert.Error(t, err, "unknown mode")
}

func TestValidateQuarter(t *testing.T) {
	tests := []struct {
		period string
		ok     bool
	}{
		{"201903", true},
		{"202012", true},
		{"201901", false},
		{"20193", false},
		{"2019AB", false},
		{"", false},
	}
	for _, tt := range tests {
		err := validateQuarter(tt.period)
		if tt.ok {
			assert.NoError(t, err, tt.period)
		} else {
			assert.Error(t, err, tt.period)
		}
	}
}
