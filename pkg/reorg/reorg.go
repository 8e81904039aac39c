// Package reorg rebuilds the raw dataset download into the standard layout:
// one directory per category with images/, json/, csv/, segmentations/ and
// sets/ subdirectories plus a labelmap.json.
package reorg

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/flowerseg/dataset-tools/internal/utils"
	"github.com/flowerseg/dataset-tools/pkg/dataset"
	"github.com/flowerseg/dataset-tools/pkg/types"
)

// Source names the raw download folders feeding one category.
type Source struct {
	// Images is the folder holding the category's image files, relative
	// to the dataset root.
	Images string
	// Labels are the folders holding segmentation masks, in match order.
	Labels []string
}

// DefaultSources maps the standard category names to the folder layout of
// the original download.
var DefaultSources = map[string]Source{
	"apples": {
		Images: "AppleA/FlowerImages",
		Labels: []string{"AppleA_Labels_1/AppleA_Labels", "AppleALabels_Train/Masks_Train"},
	},
	"applebs": {
		Images: "AppleB_1/AppleB",
		Labels: []string{"AppleB_Labels_1/AppleB_Labels"},
	},
	"peaches": {
		Images: "Peach_1/PeachSelected",
		Labels: []string{"PeachLabels_1/PeachLabels"},
	},
	"pears": {
		Images: "Pear_1/Pear",
		Labels: []string{"PearLabels_2/PearLabels"},
	},
}

// Reorganizer copies a raw download into the standard layout.
type Reorganizer struct {
	// Root is the dataset root holding both the raw folders and the
	// standard category directories being built.
	Root string
	// Categories to build, in order.
	Categories []string
	// Sources maps category names to raw folders. Defaults to
	// DefaultSources.
	Sources map[string]Source
	// TrainFile and ValFile are the original split lists at the root.
	TrainFile string
	ValFile   string
	// Logf receives progress and warning lines. Defaults to log.Printf.
	Logf func(format string, v ...interface{})
}

// New creates a Reorganizer for the standard categories.
func New(root string) *Reorganizer {
	return &Reorganizer{
		Root:       root,
		Categories: []string{"apples", "applebs", "peaches", "pears"},
		Sources:    DefaultSources,
		TrainFile:  "train.txt",
		ValFile:    "val_0.txt",
		Logf:       log.Printf,
	}
}

// Run reorganizes every configured category and rebuilds the split files.
func (r *Reorganizer) Run() error {
	for _, name := range r.Categories {
		source, ok := r.Sources[name]
		if !ok {
			return fmt.Errorf("no source mapping for category %q", name)
		}
		if err := r.reorganizeCategory(name, source); err != nil {
			return err
		}
		if err := r.writeLabelmap(name); err != nil {
			return err
		}
	}
	return r.buildSplits()
}

// reorganizeCategory copies one category's images, sidecars and masks into
// the standard layout and derives CSV annotations from the sidecars.
func (r *Reorganizer) reorganizeCategory(name string, source Source) error {
	cat := dataset.Category{Root: r.Root, Name: name}

	imagesDir := filepath.Join(r.Root, source.Images)
	if !utils.DirExists(imagesDir) {
		r.logf("warning: %s does not exist, skipping %s", imagesDir, name)
		return nil
	}

	for _, dir := range []string{
		cat.ImagesDir(), cat.JSONDir(), cat.CSVDir(), cat.SegmentationsDir(), cat.SetsDir(),
	} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	images, err := utils.ListImageFiles(imagesDir)
	if err != nil {
		return err
	}
	r.logf("%s: found %d images", name, len(images))

	masks, err := r.collectMasks(source.Labels)
	if err != nil {
		return err
	}
	r.logf("%s: found %d segmentation masks", name, len(masks))

	processed := 0
	for _, imgPath := range images {
		stem := utils.Stem(imgPath)

		if err := utils.CopyFile(imgPath, filepath.Join(cat.ImagesDir(), filepath.Base(imgPath))); err != nil {
			return err
		}

		// Sidecar JSONs sit next to the raw images.
		sidecarPath := filepath.Join(filepath.Dir(imgPath), stem+".json")
		if utils.FileExists(sidecarPath) {
			if err := utils.CopyFile(sidecarPath, cat.SidecarFile(stem)); err != nil {
				return err
			}
			if err := writeCSVFromSidecar(sidecarPath, cat.CSVFile(stem)); err != nil {
				r.logf("warning: %v, no CSV for %s/%s", err, name, stem)
			}
		}

		if maskPath, ok := findMask(masks, stem); ok {
			if err := saveMaskPNG(maskPath, filepath.Join(cat.SegmentationsDir(), stem+".png")); err != nil {
				r.logf("warning: %v, no mask for %s/%s", err, name, stem)
			}
		}

		processed++
	}

	r.logf("%s: processed %d images", name, processed)
	return nil
}

// collectMasks indexes mask files by stem across all label folders; the
// first folder containing a stem wins.
func (r *Reorganizer) collectMasks(labelDirs []string) (map[string]string, error) {
	masks := make(map[string]string)
	for _, dir := range labelDirs {
		path := filepath.Join(r.Root, dir)
		if !utils.DirExists(path) {
			continue
		}
		files, err := utils.ListImageFiles(path)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			stem := utils.Stem(f)
			if _, ok := masks[stem]; !ok {
				masks[stem] = f
			}
		}
	}
	return masks, nil
}

// findMask resolves the mask for an image stem. Masks may be named after
// the full stem, the stem without the IMG_ prefix, or the bare number
// without leading zeros; failing those, a substring match is tried.
func findMask(masks map[string]string, stem string) (string, bool) {
	for _, candidate := range maskStemCandidates(stem) {
		if path, ok := masks[candidate]; ok {
			return path, true
		}
	}

	short := strings.TrimPrefix(stem, "IMG_")
	var keys []string
	for k := range masks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, short) || strings.Contains(short, k) {
			return masks[k], true
		}
	}
	return "", false
}

func maskStemCandidates(stem string) []string {
	candidates := []string{stem}
	if short := strings.TrimPrefix(stem, "IMG_"); short != stem {
		candidates = append(candidates, short)
		if n, err := strconv.Atoi(short); err == nil {
			candidates = append(candidates, strconv.Itoa(n))
		}
	}
	return candidates
}

// saveMaskPNG re-encodes a mask image to PNG so the segmentations/ folder
// holds a single format regardless of the source.
func saveMaskPNG(src, dst string) error {
	mask, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open mask %s: %w", src, err)
	}
	if err := imaging.Save(mask, dst); err != nil {
		return fmt.Errorf("failed to save mask %s: %w", dst, err)
	}
	return nil
}

// writeCSVFromSidecar derives a per-image CSV annotation file from a JSON
// sidecar's annotation list.
func writeCSVFromSidecar(sidecarPath, csvPath string) error {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return fmt.Errorf("failed to read sidecar: %w", err)
	}

	var sidecar types.Sidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return fmt.Errorf("failed to parse sidecar %s: %w", sidecarPath, err)
	}

	lines := []string{"#item,x,y,width,height,label"}
	for i, ann := range sidecar.Annotations {
		// Each category folder has a single non-background class.
		lines = append(lines, fmt.Sprintf("%d,%s,%s,%s,%s,1",
			i,
			formatCoord(ann.BBox.X()),
			formatCoord(ann.BBox.Y()),
			formatCoord(ann.BBox.Width()),
			formatCoord(ann.BBox.Height())))
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(csvPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", csvPath, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeLabelmap writes the two-entry labelmap (background plus the
// category's singular name).
func (r *Reorganizer) writeLabelmap(name string) error {
	cat := dataset.Category{Root: r.Root, Name: name}
	if !utils.DirExists(cat.Dir()) {
		return nil
	}

	entries := []dataset.LabelmapEntry{
		{ObjectID: 0, LabelID: 0, KeyboardShortcut: "0", ObjectName: "background"},
		{ObjectID: 1, LabelID: 1, KeyboardShortcut: "1", ObjectName: dataset.SingularName(name)},
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal labelmap: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(cat.LabelmapFile(), data, 0644); err != nil {
		return fmt.Errorf("failed to write labelmap: %w", err)
	}
	return nil
}

// buildSplits buckets each category's images into train/val from the
// original root split lists and writes the per-category sets/ files.
// Images missing from both lists land in train.
func (r *Reorganizer) buildSplits() error {
	train, err := readOptionalList(filepath.Join(r.Root, r.TrainFile))
	if err != nil {
		return err
	}
	val, err := readOptionalList(filepath.Join(r.Root, r.ValFile))
	if err != nil {
		return err
	}

	for _, name := range r.Categories {
		cat := dataset.Category{Root: r.Root, Name: name}
		if !utils.DirExists(cat.ImagesDir()) {
			continue
		}

		stems, err := utils.ListImageStems(cat.ImagesDir())
		if err != nil {
			return err
		}

		var trainStems, valStems []string
		for _, stem := range stems {
			switch {
			case inSplit(train, stem):
				trainStems = append(trainStems, stem)
			case inSplit(val, stem):
				valStems = append(valStems, stem)
			default:
				trainStems = append(trainStems, stem)
			}
		}

		sort.Strings(trainStems)
		sort.Strings(valStems)
		trainVal := append(append([]string{}, trainStems...), valStems...)
		sort.Strings(trainVal)

		files := map[string][]string{
			"train":     trainStems,
			"val":       valStems,
			"all":       stems,
			"train_val": trainVal,
		}
		for split, list := range files {
			if err := dataset.WriteStemList(cat.SplitFile(split), list); err != nil {
				return err
			}
		}

		r.logf("%s: %d train, %d val, %d total", name, len(trainStems), len(valStems), len(stems))
	}
	return nil
}

// inSplit reports whether a stem appears in a split list, with or without
// an image extension.
func inSplit(set map[string]bool, stem string) bool {
	if set[stem] {
		return true
	}
	for _, ext := range utils.ImageExtensions {
		if set[stem+ext] {
			return true
		}
	}
	return false
}

func readOptionalList(path string) (map[string]bool, error) {
	set := make(map[string]bool)
	stems, err := dataset.ReadStemList(path)
	if os.IsNotExist(err) {
		return set, nil
	}
	if err != nil {
		return nil, err
	}
	for _, stem := range stems {
		set[stem] = true
	}
	return set, nil
}

func (r *Reorganizer) logf(format string, v ...interface{}) {
	if r.Logf != nil {
		r.Logf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}
