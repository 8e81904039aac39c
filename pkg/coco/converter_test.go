package coco

import (
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowerseg/dataset-tools/pkg/types"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, height))))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// buildDataset creates a two-category fixture:
//
//   - apples has a sets/ directory with only train.txt (listing one real
//     image and one missing stem) and a CSV with one valid and one
//     malformed row;
//   - pears has no sets/ directory (all images in every split), one image
//     with a CSV and one without.
func buildDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writePNG(t, filepath.Join(root, "apples", "images", "IMG_0316.png"), 64, 48)
	writeFile(t, filepath.Join(root, "apples", "csv", "IMG_0316.csv"),
		"#item,x,y,width,height,label\n0,153,2346,564,454,1\nbad,row\n")
	writeFile(t, filepath.Join(root, "apples", "sets", "train.txt"), "IMG_0316\nMISSING\n")

	writePNG(t, filepath.Join(root, "pears", "images", "P_001.png"), 32, 24)
	writePNG(t, filepath.Join(root, "pears", "images", "P_002.png"), 32, 24)
	writeFile(t, filepath.Join(root, "pears", "csv", "P_001.csv"),
		"#item,x,y,width,height,label\n0,1,2,10,5,1\n1,3,4,6,8,1\n")

	return root
}

func defaultOptions(root, out string) Options {
	return Options{
		Root:       root,
		OutDir:     out,
		Categories: []string{"apples", "pears"},
		Splits:     []string{"train", "val"},
		Combined:   true,
		Info:       types.Info{Year: 2025, Version: "1.0", Description: "Peach-Pear Flower Segmentation"},
		Logf:       func(string, ...interface{}) {},
	}
}

func readDocument(t *testing.T, path string) types.Dataset {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc types.Dataset
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestRunProducesPerCategoryFiles(t *testing.T) {
	root := buildDataset(t)
	out := filepath.Join(root, "annotations")

	stats, err := New(defaultOptions(root, out)).Run()
	require.NoError(t, err)

	// apples train + pears in both splits; the MISSING stem is skipped.
	assert.Equal(t, 5, stats.ImagesProcessed)
	assert.Equal(t, 1, stats.ImagesSkipped)
	assert.Equal(t, 1, stats.RowsSkipped)
	// 2 categories x 2 splits + 2 combined files.
	assert.Equal(t, 6, stats.FilesWritten)

	doc := readDocument(t, filepath.Join(out, "apples_instances_train.json"))
	require.Len(t, doc.Images, 1)
	assert.Equal(t, "apples/images/IMG_0316.png", doc.Images[0].FileName)
	assert.Equal(t, 64, doc.Images[0].Width)
	assert.Equal(t, 48, doc.Images[0].Height)

	require.Len(t, doc.Annotations, 1)
	ann := doc.Annotations[0]
	assert.Equal(t, types.BBox{153, 2346, 564, 454}, ann.BBox)
	assert.Equal(t, 256056.0, ann.Area)
	assert.Equal(t, 1, ann.CategoryID)
	assert.Equal(t, 0, ann.IsCrowd)
	assert.Equal(t, doc.Images[0].ID, ann.ImageID)

	require.Len(t, doc.Categories, 1)
	assert.Equal(t, types.Category{ID: 1, Name: "apple", Supercategory: "flower"}, doc.Categories[0])
	assert.Equal(t, "Peach-Pear Flower Segmentation apples train split", doc.Info.Description)
}

func TestRunMissingSplitFileYieldsEmptyDocument(t *testing.T) {
	root := buildDataset(t)
	out := filepath.Join(root, "annotations")

	_, err := New(defaultOptions(root, out)).Run()
	require.NoError(t, err)

	// apples has sets/ but no val.txt: empty output, not an error.
	doc := readDocument(t, filepath.Join(out, "apples_instances_val.json"))
	assert.Empty(t, doc.Images)
	assert.Empty(t, doc.Annotations)
	require.Len(t, doc.Categories, 1)
}

func TestRunWithoutSetsDirUsesAllImages(t *testing.T) {
	root := buildDataset(t)
	out := filepath.Join(root, "annotations")

	_, err := New(defaultOptions(root, out)).Run()
	require.NoError(t, err)

	for _, split := range []string{"train", "val"} {
		doc := readDocument(t, filepath.Join(out, "pears_instances_"+split+".json"))
		require.Len(t, doc.Images, 2, split)
		assert.Equal(t, "pears/images/P_001.png", doc.Images[0].FileName)
		assert.Equal(t, "pears/images/P_002.png", doc.Images[1].FileName)
		// P_002 has no CSV: zero annotations for it, not an error.
		assert.Len(t, doc.Annotations, 2, split)
	}
}

func TestRunAreaAlwaysRecomputed(t *testing.T) {
	root := buildDataset(t)
	out := filepath.Join(root, "annotations")

	_, err := New(defaultOptions(root, out)).Run()
	require.NoError(t, err)

	doc := readDocument(t, filepath.Join(out, "pears_instances_train.json"))
	for _, ann := range doc.Annotations {
		assert.Equal(t, ann.BBox.Width()*ann.BBox.Height(), ann.Area)
	}
}

func TestRunIDsUniqueAndReferential(t *testing.T) {
	root := buildDataset(t)
	out := filepath.Join(root, "annotations")

	_, err := New(defaultOptions(root, out)).Run()
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(out, "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		doc := readDocument(t, file)

		imageIDs := make(map[int]bool)
		for _, img := range doc.Images {
			assert.False(t, imageIDs[img.ID], "duplicate image id %d in %s", img.ID, file)
			imageIDs[img.ID] = true
		}

		annIDs := make(map[int]bool)
		for _, ann := range doc.Annotations {
			assert.False(t, annIDs[ann.ID], "duplicate annotation id %d in %s", ann.ID, file)
			annIDs[ann.ID] = true
			assert.True(t, imageIDs[ann.ImageID],
				"annotation %d references unknown image %d in %s", ann.ID, ann.ImageID, file)
		}
	}
}

func TestRunCombinedMergesCategories(t *testing.T) {
	root := buildDataset(t)
	out := filepath.Join(root, "annotations")

	_, err := New(defaultOptions(root, out)).Run()
	require.NoError(t, err)

	combined := readDocument(t, filepath.Join(out, "combined_instances_train.json"))
	apples := readDocument(t, filepath.Join(out, "apples_instances_train.json"))
	pears := readDocument(t, filepath.Join(out, "pears_instances_train.json"))

	assert.Len(t, combined.Images, len(apples.Images)+len(pears.Images))
	assert.Len(t, combined.Annotations, len(apples.Annotations)+len(pears.Annotations))

	require.Len(t, combined.Categories, 2)
	assert.Equal(t, types.Category{ID: 1, Name: "apple", Supercategory: "flower"}, combined.Categories[0])
	assert.Equal(t, types.Category{ID: 2, Name: "pear", Supercategory: "flower"}, combined.Categories[1])

	// Annotations are remapped into the shared namespace.
	byImage := make(map[int]string)
	for _, img := range combined.Images {
		byImage[img.ID] = img.FileName
	}
	for _, ann := range combined.Annotations {
		name := byImage[ann.ImageID]
		if assert.NotEmpty(t, name) {
			switch {
			case name[:6] == "apples":
				assert.Equal(t, 1, ann.CategoryID)
			default:
				assert.Equal(t, 2, ann.CategoryID)
			}
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	root := buildDataset(t)

	outA := filepath.Join(root, "outA")
	outB := filepath.Join(root, "outB")

	_, err := New(defaultOptions(root, outA)).Run()
	require.NoError(t, err)
	_, err = New(defaultOptions(root, outB)).Run()
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(outA, "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		a, err := os.ReadFile(file)
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(outB, filepath.Base(file)))
		require.NoError(t, err)
		assert.Equal(t, a, b, filepath.Base(file))
	}
}

func TestRunLabelmapNamesCategories(t *testing.T) {
	root := buildDataset(t)
	labelmap := `[
  {"object_id": 0, "label_id": 0, "object_name": "background"},
  {"object_id": 1, "label_id": 1, "object_name": "apple blossom"}
]`
	writeFile(t, filepath.Join(root, "apples", "labelmap.json"), labelmap)
	out := filepath.Join(root, "annotations")

	_, err := New(defaultOptions(root, out)).Run()
	require.NoError(t, err)

	doc := readDocument(t, filepath.Join(out, "apples_instances_train.json"))
	require.Len(t, doc.Categories, 1)
	assert.Equal(t, "apple blossom", doc.Categories[0].Name)
}

func TestRunUnknownCategoryFatal(t *testing.T) {
	root := buildDataset(t)
	opts := defaultOptions(root, filepath.Join(root, "annotations"))
	opts.Categories = []string{"apples", "mangoes"}

	_, err := New(opts).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mangoes")
}

func TestRunMissingRootFatal(t *testing.T) {
	opts := defaultOptions(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	_, err := New(opts).Run()
	assert.Error(t, err)
}

func TestRunFallbackDimensions(t *testing.T) {
	root := t.TempDir()
	// A file with an image extension but undecodable content, and no
	// sidecar: dimensions fall back to the configured default.
	writeFile(t, filepath.Join(root, "apples", "images", "IMG_1.jpg"), "not an image")

	opts := defaultOptions(root, filepath.Join(root, "annotations"))
	opts.Categories = []string{"apples"}
	opts.Splits = []string{"all"}
	opts.Combined = false

	stats, err := New(opts).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ImagesProcessed)

	doc := readDocument(t, filepath.Join(root, "annotations", "apples_instances_all.json"))
	require.Len(t, doc.Images, 1)
	assert.Equal(t, 512, doc.Images[0].Width)
	assert.Equal(t, 512, doc.Images[0].Height)
}

func TestRunSidecarDimensionFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "apples", "images", "IMG_1.jpg"), "not an image")
	writeFile(t, filepath.Join(root, "apples", "json", "IMG_1.json"),
		`{"images": [{"width": 2704, "height": 1520}]}`)

	opts := defaultOptions(root, filepath.Join(root, "annotations"))
	opts.Categories = []string{"apples"}
	opts.Splits = []string{"all"}
	opts.Combined = false

	_, err := New(opts).Run()
	require.NoError(t, err)

	doc := readDocument(t, filepath.Join(root, "annotations", "apples_instances_all.json"))
	require.Len(t, doc.Images, 1)
	assert.Equal(t, 2704, doc.Images[0].Width)
	assert.Equal(t, 1520, doc.Images[0].Height)
}
