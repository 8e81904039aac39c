// Package datasettools provides the conversion and layout utilities that
// ship with the Peach-Pear Flower Segmentation dataset.
//
// The dataset stores one directory per category (apples, applebs, peaches,
// pears), each holding images/, per-image CSV bounding-box annotations in
// csv/, per-image JSON sidecars in json/, segmentation masks in
// segmentations/, split list files in sets/ and a labelmap.json. The tools
// here move data between that layout and other representations:
//
// 1. Converter (pkg/coco): reads the per-image CSV annotations of one or
// more categories and splits and writes standard COCO-format JSON files,
// one per (category, split) pair, optionally merged into combined files
// sharing a single category namespace.
//
// 2. Reorganizer (pkg/reorg): rebuilds the raw dataset download (AppleA,
// AppleB_1, Peach_1, Pear_1 and their label folders) into the standard
// layout, deriving CSV annotations from the JSON sidecars and the split
// files from the original train/val lists.
//
// 3. Generator (pkg/masks): derives a bounding box from each image's
// segmentation mask and writes a fresh per-image JSON sidecar.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		datasettools "github.com/flowerseg/dataset-tools"
//		"github.com/flowerseg/dataset-tools/pkg/coco"
//	)
//
//	func main() {
//		stats, err := datasettools.Convert(coco.Options{
//			Root:       "peachpear_flower_segmentation",
//			OutDir:     "annotations",
//			Categories: []string{"apples", "pears"},
//			Splits:     []string{"train", "val"},
//			Combined:   true,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("%d images converted", stats.ImagesProcessed)
//	}
//
// Each binary under cmd/ wraps one of the three tools.
package datasettools

import (
	"github.com/flowerseg/dataset-tools/pkg/coco"
	"github.com/flowerseg/dataset-tools/pkg/dataset"
	"github.com/flowerseg/dataset-tools/pkg/masks"
	"github.com/flowerseg/dataset-tools/pkg/reorg"
)

// Version of the dataset tools library
const Version = "1.0.0"

// Convert runs a CSV-to-COCO conversion with the given options.
func Convert(opts coco.Options) (coco.Stats, error) {
	return coco.New(opts).Run()
}

// Reorganize rebuilds the raw download at root into the standard layout.
func Reorganize(root string) error {
	return reorg.New(root).Run()
}

// GenerateAnnotations writes mask-derived JSON sidecars for the named
// categories and returns the number of files written.
func GenerateAnnotations(root string, categories []string) (int, error) {
	gen := masks.NewGenerator()
	total := 0
	for _, name := range categories {
		written, err := gen.GenerateCategory(dataset.Category{Root: root, Name: name})
		if err != nil {
			return total, err
		}
		total += written
	}
	return total, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
