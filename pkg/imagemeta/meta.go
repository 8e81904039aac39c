// Package imagemeta reads image dimensions without decoding pixel data.
package imagemeta

import (
	"encoding/json"
	"fmt"
	"image"
	"os"

	// Register decoders for every format the dataset carries.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/chai2010/webp"

	"github.com/flowerseg/dataset-tools/pkg/types"
)

// Dimensions returns the pixel width and height of an image file, read from
// its header.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err == nil {
		return cfg.Width, cfg.Height, nil
	}

	// Some of the dataset's webp files trip the lossless path of the
	// x/image decoder; retry with the libwebp port.
	if _, serr := f.Seek(0, 0); serr == nil {
		if img, werr := webp.Decode(f); werr == nil {
			b := img.Bounds()
			return b.Dx(), b.Dy(), nil
		}
	}

	return 0, 0, fmt.Errorf("failed to decode image header for %s: %w", path, err)
}

// SidecarDimensions returns the width and height recorded in a per-image
// JSON sidecar.
func SidecarDimensions(path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read sidecar: %w", err)
	}

	var sidecar types.Sidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return 0, 0, fmt.Errorf("failed to parse sidecar %s: %w", path, err)
	}

	if len(sidecar.Images) == 0 {
		return 0, 0, fmt.Errorf("sidecar %s has no image entry", path)
	}

	img := sidecar.Images[0]
	if img.Width < 1 || img.Height < 1 {
		return 0, 0, fmt.Errorf("sidecar %s has invalid dimensions %dx%d", path, img.Width, img.Height)
	}
	return img.Width, img.Height, nil
}
