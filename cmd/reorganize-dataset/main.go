package main

import (
	"flag"
	"log"
	"strings"

	"github.com/flowerseg/dataset-tools/pkg/reorg"
)

func main() {
	var root, categories, trainFile, valFile string

	flag.StringVar(&root, "root", ".", "dataset root holding the raw download folders")
	flag.StringVar(&categories, "categories", "", "comma-separated categories to build (default: all)")
	flag.StringVar(&trainFile, "train-file", "train.txt", "original train split list at the root")
	flag.StringVar(&valFile, "val-file", "val_0.txt", "original val split list at the root")
	flag.Parse()

	r := reorg.New(root)
	r.TrainFile = trainFile
	r.ValFile = valFile
	if categories != "" {
		var names []string
		for _, name := range strings.Split(categories, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			r.Categories = names
		}
	}

	log.Printf("reorganizing dataset at %s", root)
	if err := r.Run(); err != nil {
		log.Fatalf("Reorganization failed: %v", err)
	}
	log.Printf("reorganization complete")
}
