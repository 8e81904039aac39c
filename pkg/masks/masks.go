// Package masks derives bounding boxes from binary segmentation masks and
// writes per-image COCO JSON sidecars from them.
package masks

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/flowerseg/dataset-tools/internal/utils"
	"github.com/flowerseg/dataset-tools/pkg/dataset"
	"github.com/flowerseg/dataset-tools/pkg/imagemeta"
	"github.com/flowerseg/dataset-tools/pkg/types"
)

// WhiteBBox returns the bounding box of all pixels whose gray value is at
// or above threshold. The second return value is false when the mask has no
// such pixels.
func WhiteBBox(img image.Image, threshold uint8) (types.BBox, bool) {
	gray := imaging.Grayscale(img)
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()

	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		i := y * gray.Stride
		for x := 0; x < w; x++ {
			// Grayscale leaves R == G == B, so one channel suffices.
			if gray.Pix[i+x*4] >= threshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < 0 {
		return types.BBox{}, false
	}
	return types.BBox{
		float64(minX),
		float64(minY),
		float64(maxX - minX + 1),
		float64(maxY - minY + 1),
	}, true
}

// Generator writes a COCO JSON sidecar for every image of a category,
// taking the bounding box from the image's segmentation mask.
type Generator struct {
	// WhiteThreshold is the minimum gray value counted as mask foreground.
	WhiteThreshold uint8
	// Info fields copied into every sidecar.
	Year    int
	Version string
	// Logf receives warnings. Defaults to log.Printf.
	Logf func(format string, v ...interface{})
}

// NewGenerator creates a Generator with the defaults the dataset was built
// with.
func NewGenerator() *Generator {
	return &Generator{
		WhiteThreshold: 200,
		Year:           2025,
		Version:        "1.0",
		Logf:           log.Printf,
	}
}

// GenerateCategory writes one sidecar per image under cat's json/
// directory and returns the number written. Images without a mask get a
// full-image bounding box.
func (g *Generator) GenerateCategory(cat dataset.Category) (int, error) {
	files, err := utils.ListImageFiles(cat.ImagesDir())
	if err != nil {
		return 0, err
	}
	if err := utils.EnsureDir(cat.JSONDir()); err != nil {
		return 0, fmt.Errorf("failed to create json directory: %w", err)
	}

	name := cat.DisplayName()
	written := 0
	for _, imgPath := range files {
		stem := utils.Stem(imgPath)
		if err := g.generateOne(cat, name, imgPath, stem); err != nil {
			g.logf("warning: %v, skipping %s/%s", err, cat.Name, stem)
			continue
		}
		written++
	}
	return written, nil
}

func (g *Generator) generateOne(cat dataset.Category, categoryName, imgPath, stem string) error {
	width, height, err := imagemeta.Dimensions(imgPath)
	if err != nil {
		return err
	}

	bbox := types.BBox{0, 0, float64(width), float64(height)}
	if maskPath, ok := utils.FindImageFile(cat.SegmentationsDir(), stem, nil); ok {
		mask, err := imaging.Open(maskPath)
		if err != nil {
			g.logf("warning: unreadable mask %s, using full-image bbox", maskPath)
		} else if b, ok := WhiteBBox(mask, g.WhiteThreshold); ok {
			bbox = b
		} else {
			g.logf("warning: no white region in %s, using full-image bbox", maskPath)
		}
	} else {
		g.logf("warning: no segmentation mask for %s/%s, using full-image bbox", cat.Name, stem)
	}

	info, err := os.Stat(imgPath)
	if err != nil {
		return fmt.Errorf("failed to stat image: %w", err)
	}

	imageID := recordID(cat.Name + "/images/" + stem)
	sidecar := types.Sidecar{
		Info: types.SidecarInfo{
			Description: "data",
			Version:     g.Version,
			Year:        g.Year,
			Contributor: "search engine",
			Source:      "augmented",
			License: types.SidecarLicense{
				Name: "Creative Commons Attribution 4.0 International",
				URL:  "https://creativecommons.org/licenses/by/4.0/",
			},
		},
		Images: []types.SidecarImage{{
			ID:       imageID,
			Width:    width,
			Height:   height,
			FileName: filepath.Base(imgPath),
			Size:     info.Size(),
			Format:   formatName(imgPath),
			Status:   "success",
		}},
		Annotations: []types.SidecarAnnotation{{
			ID:           recordID(cat.Name + "/annotations/" + stem),
			ImageID:      imageID,
			CategoryID:   recordID(cat.Name + "/categories/" + categoryName),
			Segmentation: [][]float64{},
			Area:         bbox.Area(),
			BBox:         bbox,
		}},
		Categories: []types.SidecarCategory{{
			ID:            recordID(cat.Name + "/categories/" + categoryName),
			Name:          categoryName,
			Supercategory: "Flower Image",
		}},
	}

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(cat.SidecarFile(stem), data, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

func (g *Generator) logf(format string, v ...interface{}) {
	if g.Logf != nil {
		g.Logf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}

// recordID derives a stable positive id from a record key, so regenerating
// sidecars never changes ids.
func recordID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func formatName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "JPEG"
	case ".png":
		return "PNG"
	case ".bmp":
		return "BMP"
	case ".webp":
		return "WEBP"
	default:
		return strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), "."))
	}
}
