package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowerseg/dataset-tools/internal/utils"
)

// Config holds the application configuration
type Config struct {
	Dataset   DatasetConfig   `json:"dataset"`
	Converter ConverterConfig `json:"converter"`
	Generator GeneratorConfig `json:"generator"`
}

// DatasetConfig describes the dataset layout defaults
type DatasetConfig struct {
	Categories []string `json:"categories"`
	Splits     []string `json:"splits"`
	Extensions []string `json:"extensions"`
}

// ConverterConfig holds configuration for COCO conversion
type ConverterConfig struct {
	OutputDir      string `json:"output_dir"`
	Combined       bool   `json:"combined"`
	Year           int    `json:"year"`
	Version        string `json:"version"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	Supercategory  string `json:"supercategory"`
	FallbackWidth  int    `json:"fallback_width"`
	FallbackHeight int    `json:"fallback_height"`
}

// GeneratorConfig holds configuration for sidecar annotation generation
type GeneratorConfig struct {
	WhiteThreshold uint8 `json:"white_threshold"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Categories: []string{"apples", "applebs", "peaches", "pears"},
			Splits:     []string{"train", "val", "test"},
			Extensions: utils.ImageExtensions,
		},
		Converter: ConverterConfig{
			OutputDir:      "annotations",
			Combined:       false,
			Year:           2025,
			Version:        "1.0",
			Description:    "Peach-Pear Flower Segmentation",
			URL:            "https://agdatacommons.nal.usda.gov/download/articles/24852636/versions/1/",
			Supercategory:  "flower",
			FallbackWidth:  512,
			FallbackHeight: 512,
		},
		Generator: GeneratorConfig{
			WhiteThreshold: 200,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Dataset.Categories) == 0 {
		return fmt.Errorf("dataset.categories cannot be empty")
	}

	if len(c.Dataset.Splits) == 0 {
		return fmt.Errorf("dataset.splits cannot be empty")
	}

	if len(c.Dataset.Extensions) == 0 {
		return fmt.Errorf("dataset.extensions cannot be empty")
	}

	for _, ext := range c.Dataset.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("dataset.extensions entries must start with a dot: %q", ext)
		}
	}

	if c.Converter.Year < 1 {
		return fmt.Errorf("converter.year must be positive")
	}

	if c.Converter.FallbackWidth < 1 || c.Converter.FallbackHeight < 1 {
		return fmt.Errorf("converter fallback dimensions must be positive")
	}

	if c.Converter.Supercategory == "" {
		return fmt.Errorf("converter.supercategory cannot be empty")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "dataset-tools", "config.json")
}
