package main

import (
	"flag"
	"log"
	"strings"

	"github.com/flowerseg/dataset-tools/internal/config"
	"github.com/flowerseg/dataset-tools/internal/utils"
	"github.com/flowerseg/dataset-tools/pkg/dataset"
	"github.com/flowerseg/dataset-tools/pkg/masks"
)

func main() {
	var root, categories string
	var threshold int

	flag.StringVar(&root, "root", ".", "dataset root directory")
	flag.StringVar(&categories, "categories", "", "comma-separated categories to process (default from config)")
	flag.IntVar(&threshold, "threshold", 0, "white threshold for mask foreground (default from config)")
	flag.Parse()

	cfg := config.Default()

	names := cfg.Dataset.Categories
	if categories != "" {
		names = nil
		for _, name := range strings.Split(categories, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	gen := masks.NewGenerator()
	gen.WhiteThreshold = cfg.Generator.WhiteThreshold
	gen.Year = cfg.Converter.Year
	gen.Version = cfg.Converter.Version
	if threshold > 0 && threshold <= 255 {
		gen.WhiteThreshold = uint8(threshold)
	}

	total := 0
	for _, name := range names {
		cat := dataset.Category{Root: root, Name: name}
		if !utils.DirExists(cat.ImagesDir()) {
			log.Fatalf("Unknown category %q: %s does not exist", name, cat.ImagesDir())
		}

		written, err := gen.GenerateCategory(cat)
		if err != nil {
			log.Fatalf("Failed to generate annotations for %s: %v", name, err)
		}
		log.Printf("%s: wrote %d sidecar files", name, written)
		total += written
	}

	log.Printf("done: %d sidecar files written", total)
}
