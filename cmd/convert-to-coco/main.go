package main

import (
	"flag"
	"log"
	"strings"

	"github.com/flowerseg/dataset-tools/internal/config"
	"github.com/flowerseg/dataset-tools/pkg/coco"
	"github.com/flowerseg/dataset-tools/pkg/types"
)

func main() {
	var root, out, categories, splits, configPath string
	var combined bool

	flag.StringVar(&root, "root", ".", "dataset root directory")
	flag.StringVar(&out, "out", "", "output directory (default from config)")
	flag.StringVar(&categories, "categories", "", "comma-separated categories to process (default from config)")
	flag.StringVar(&splits, "splits", "", "comma-separated splits to process (default from config)")
	flag.BoolVar(&combined, "combined", false, "also create combined COCO files across categories")
	flag.StringVar(&configPath, "config", "", "optional JSON config file")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if out == "" {
		out = cfg.Converter.OutputDir
	}

	opts := coco.Options{
		Root:       root,
		OutDir:     out,
		Categories: splitList(categories, cfg.Dataset.Categories),
		Splits:     splitList(splits, cfg.Dataset.Splits),
		Combined:   combined || cfg.Converter.Combined,
		Info: types.Info{
			Year:        cfg.Converter.Year,
			Version:     cfg.Converter.Version,
			Description: cfg.Converter.Description,
			URL:         cfg.Converter.URL,
		},
		Supercategory:  cfg.Converter.Supercategory,
		Extensions:     cfg.Dataset.Extensions,
		FallbackWidth:  cfg.Converter.FallbackWidth,
		FallbackHeight: cfg.Converter.FallbackHeight,
	}

	stats, err := coco.New(opts).Run()
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	log.Printf("done: %d images processed, %d images skipped, %d rows skipped, %d files written",
		stats.ImagesProcessed, stats.ImagesSkipped, stats.RowsSkipped, stats.FilesWritten)
}

// splitList parses a comma-separated flag value, falling back to defaults
// when the flag is unset.
func splitList(value string, defaults []string) []string {
	if value == "" {
		return defaults
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}
