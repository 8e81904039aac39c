// Package coco converts per-image CSV bounding-box annotations into
// COCO-format JSON files, one per (category, split) pair, with an optional
// combined file per split across all categories.
package coco

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/flowerseg/dataset-tools/internal/utils"
	"github.com/flowerseg/dataset-tools/pkg/annotation"
	"github.com/flowerseg/dataset-tools/pkg/dataset"
	"github.com/flowerseg/dataset-tools/pkg/imagemeta"
	"github.com/flowerseg/dataset-tools/pkg/types"
)

// Options configures a conversion run.
type Options struct {
	// Root is the dataset root containing one directory per category.
	Root string
	// OutDir receives the generated JSON files.
	OutDir string
	// Categories to process, in output order.
	Categories []string
	// Splits to process per category.
	Splits []string
	// Combined also emits one merged file per split across all categories.
	Combined bool

	// Info is copied into every output file's info block; the description
	// gets the category and split appended.
	Info types.Info
	// Supercategory for every emitted category entry.
	Supercategory string
	// Extensions is the image file probe order. Defaults to
	// utils.ImageExtensions.
	Extensions []string
	// FallbackWidth and FallbackHeight are used when neither the image
	// header nor the JSON sidecar yields dimensions.
	FallbackWidth  int
	FallbackHeight int

	// Logf receives progress and warning lines. Defaults to log.Printf.
	Logf func(format string, v ...interface{})
}

// Stats summarizes a conversion run.
type Stats struct {
	ImagesProcessed int
	ImagesSkipped   int
	RowsSkipped     int
	FilesWritten    int
}

// Converter assigns globally unique image and annotation ids while walking
// categories and splits. Ids are monotonic counters so identical input
// yields byte-identical output.
type Converter struct {
	opts Options

	nextImageID      int
	nextAnnotationID int
	stats            Stats
}

// New creates a Converter. Zero-value option fields get defaults.
func New(opts Options) *Converter {
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = utils.ImageExtensions
	}
	if opts.FallbackWidth < 1 {
		opts.FallbackWidth = 512
	}
	if opts.FallbackHeight < 1 {
		opts.FallbackHeight = 512
	}
	if opts.Supercategory == "" {
		opts.Supercategory = "flower"
	}
	return &Converter{
		opts:             opts,
		nextImageID:      1,
		nextAnnotationID: 1,
	}
}

// Run performs the conversion and returns run statistics. Errors are fatal
// conditions: a missing root or category directory, or an unwritable output
// directory. Per-image and per-row problems are logged and skipped.
func (c *Converter) Run() (Stats, error) {
	if !utils.DirExists(c.opts.Root) {
		return c.stats, fmt.Errorf("dataset root %s does not exist", c.opts.Root)
	}

	categories := make([]dataset.Category, 0, len(c.opts.Categories))
	for _, name := range c.opts.Categories {
		cat := dataset.Category{Root: c.opts.Root, Name: name}
		if !utils.DirExists(cat.Dir()) {
			return c.stats, fmt.Errorf("unknown category %q: %s does not exist", name, cat.Dir())
		}
		categories = append(categories, cat)
	}

	if err := os.MkdirAll(c.opts.OutDir, 0755); err != nil {
		return c.stats, fmt.Errorf("failed to create output directory: %w", err)
	}

	// The shared category namespace for combined files is fixed up front
	// from the requested category order, so ids stay stable no matter
	// which subset of files is regenerated.
	combinedCategories := make([]types.Category, 0, len(categories))
	combinedID := make(map[string]int, len(categories))
	for i, cat := range categories {
		combinedCategories = append(combinedCategories, types.Category{
			ID:            i + 1,
			Name:          cat.DisplayName(),
			Supercategory: c.opts.Supercategory,
		})
		combinedID[cat.Name] = i + 1
	}

	combined := make(map[string]*types.Dataset, len(c.opts.Splits))
	if c.opts.Combined {
		for _, split := range c.opts.Splits {
			combined[split] = c.newDocument(fmt.Sprintf("combined %s split", split), combinedCategories)
		}
	}

	for _, cat := range categories {
		if !utils.DirExists(cat.ImagesDir()) {
			return c.stats, fmt.Errorf("category %s has no images directory", cat.Name)
		}

		// Each category directory holds a single non-background class,
		// so per-category files always use category id 1.
		docCategories := []types.Category{{
			ID:            1,
			Name:          cat.DisplayName(),
			Supercategory: c.opts.Supercategory,
		}}

		for _, split := range c.opts.Splits {
			doc := c.newDocument(fmt.Sprintf("%s %s split", cat.Name, split), docCategories)

			stems, err := c.resolveSplit(cat, split)
			if err != nil {
				return c.stats, err
			}

			for _, stem := range stems {
				c.addImage(doc, cat, stem, 1)
			}

			outFile := filepath.Join(c.opts.OutDir, fmt.Sprintf("%s_instances_%s.json", cat.Name, split))
			if err := writeDocument(outFile, doc); err != nil {
				return c.stats, err
			}
			c.stats.FilesWritten++
			c.opts.Logf("wrote %s: %d images, %d annotations", outFile, len(doc.Images), len(doc.Annotations))

			if c.opts.Combined {
				merge(combined[split], doc, combinedID[cat.Name])
			}
		}
	}

	if c.opts.Combined {
		for _, split := range c.opts.Splits {
			doc := combined[split]
			outFile := filepath.Join(c.opts.OutDir, fmt.Sprintf("combined_instances_%s.json", split))
			if err := writeDocument(outFile, doc); err != nil {
				return c.stats, err
			}
			c.stats.FilesWritten++
			c.opts.Logf("wrote %s: %d images, %d annotations", outFile, len(doc.Images), len(doc.Annotations))
		}
	}

	return c.stats, nil
}

// resolveSplit returns the image stems belonging to a split. With no sets/
// directory every image in the category is used; with a sets/ directory a
// missing or empty list file means an empty split.
func (c *Converter) resolveSplit(cat dataset.Category, split string) ([]string, error) {
	if !utils.DirExists(cat.SetsDir()) {
		stems, err := utils.ListImageStems(cat.ImagesDir())
		if err != nil {
			return nil, err
		}
		return stems, nil
	}

	stems, err := dataset.ReadStemList(cat.SplitFile(split))
	if os.IsNotExist(err) {
		c.opts.Logf("warning: split file %s does not exist, treating %s/%s as empty",
			cat.SplitFile(split), cat.Name, split)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stems, nil
}

// addImage appends one image and its annotations to doc.
func (c *Converter) addImage(doc *types.Dataset, cat dataset.Category, stem string, categoryID int) {
	imgPath, ok := utils.FindImageFile(cat.ImagesDir(), stem, c.opts.Extensions)
	if !ok {
		c.opts.Logf("warning: no image file for %s/%s, skipping", cat.Name, stem)
		c.stats.ImagesSkipped++
		return
	}

	width, height := c.dimensions(cat, imgPath, stem)

	imageID := c.nextImageID
	c.nextImageID++
	doc.Images = append(doc.Images, types.Image{
		ID:       imageID,
		FileName: fmt.Sprintf("%s/images/%s", cat.Name, filepath.Base(imgPath)),
		Width:    width,
		Height:   height,
	})
	c.stats.ImagesProcessed++

	csvPath := cat.CSVFile(stem)
	if !utils.FileExists(csvPath) {
		// No CSV means zero annotations for this image, not an error.
		return
	}

	rows, skipped, err := annotation.ParseFile(csvPath)
	if err != nil {
		c.opts.Logf("warning: %v, treating %s/%s as unannotated", err, cat.Name, stem)
		return
	}
	if skipped > 0 {
		c.opts.Logf("warning: skipped %d malformed row(s) in %s", skipped, csvPath)
		c.stats.RowsSkipped += skipped
	}

	for _, row := range rows {
		bbox := types.BBox{row.X, row.Y, row.Width, row.Height}
		doc.Annotations = append(doc.Annotations, types.Annotation{
			ID:         c.nextAnnotationID,
			ImageID:    imageID,
			CategoryID: categoryID,
			BBox:       bbox,
			Area:       bbox.Area(),
			IsCrowd:    0,
		})
		c.nextAnnotationID++
	}
}

// dimensions reads width/height from the image header, then the JSON
// sidecar, then the configured fallback.
func (c *Converter) dimensions(cat dataset.Category, imgPath, stem string) (int, int) {
	if w, h, err := imagemeta.Dimensions(imgPath); err == nil {
		return w, h
	}

	sidecar := cat.SidecarFile(stem)
	if utils.FileExists(sidecar) {
		if w, h, err := imagemeta.SidecarDimensions(sidecar); err == nil {
			c.opts.Logf("warning: unreadable image header for %s, using sidecar dimensions", imgPath)
			return w, h
		}
	}

	c.opts.Logf("warning: no dimensions for %s, assuming %dx%d",
		imgPath, c.opts.FallbackWidth, c.opts.FallbackHeight)
	return c.opts.FallbackWidth, c.opts.FallbackHeight
}

// newDocument builds an empty COCO document. Slices are allocated so empty
// files serialize as [] rather than null.
func (c *Converter) newDocument(suffix string, categories []types.Category) *types.Dataset {
	info := c.opts.Info
	if info.Description != "" {
		info.Description = fmt.Sprintf("%s %s", info.Description, suffix)
	}
	return &types.Dataset{
		Info:        info,
		Images:      []types.Image{},
		Annotations: []types.Annotation{},
		Categories:  categories,
		Licenses:    []types.License{},
	}
}

// merge appends src's images and annotations to dst, remapping annotations
// into the shared category namespace. Ids are already unique across the run
// so no id rewriting is needed.
func merge(dst, src *types.Dataset, categoryID int) {
	dst.Images = append(dst.Images, src.Images...)
	for _, ann := range src.Annotations {
		ann.CategoryID = categoryID
		dst.Annotations = append(dst.Annotations, ann)
	}
}

// writeDocument serializes a COCO document with two-space indentation.
func writeDocument(path string, doc *types.Dataset) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
