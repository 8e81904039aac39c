package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"apples", "applebs", "peaches", "pears"}, cfg.Dataset.Categories)
	assert.Equal(t, []string{"train", "val", "test"}, cfg.Dataset.Splits)
	assert.Equal(t, 512, cfg.Converter.FallbackWidth)
	assert.Equal(t, uint8(200), cfg.Generator.WhiteThreshold)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no categories", func(c *Config) { c.Dataset.Categories = nil }},
		{"no splits", func(c *Config) { c.Dataset.Splits = nil }},
		{"no extensions", func(c *Config) { c.Dataset.Extensions = nil }},
		{"extension without dot", func(c *Config) { c.Dataset.Extensions = []string{"jpg"} }},
		{"bad year", func(c *Config) { c.Converter.Year = 0 }},
		{"bad fallback", func(c *Config) { c.Converter.FallbackWidth = 0 }},
		{"empty supercategory", func(c *Config) { c.Converter.Supercategory = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")

	cfg := Default()
	cfg.Converter.OutputDir = "coco"
	cfg.Converter.Combined = true
	cfg.Dataset.Categories = []string{"pears"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
