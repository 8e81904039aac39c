package types

// BBox is a COCO bounding box: [x, y, width, height] in pixels with
// (x, y) the top-left corner. It marshals to a JSON array.
type BBox [4]float64

// X returns the left edge of the box.
func (b BBox) X() float64 { return b[0] }

// Y returns the top edge of the box.
func (b BBox) Y() float64 { return b[1] }

// Width returns the box width.
func (b BBox) Width() float64 { return b[2] }

// Height returns the box height.
func (b BBox) Height() float64 { return b[3] }

// Area returns width*height of the box.
func (b BBox) Area() float64 { return b[2] * b[3] }

// Info describes the dataset an annotation file belongs to.
type Info struct {
	Year        int    `json:"year"`
	Version     string `json:"version"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Image is a single image entry in a COCO annotation file.
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Annotation is a single object instance referencing an Image by id.
type Annotation struct {
	ID         int     `json:"id"`
	ImageID    int     `json:"image_id"`
	CategoryID int     `json:"category_id"`
	BBox       BBox    `json:"bbox"`
	Area       float64 `json:"area"`
	IsCrowd    int     `json:"iscrowd"`
}

// Category is a COCO object class.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// License is a COCO license entry. The dataset files carry an empty list.
type License struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Dataset is a full COCO-format annotation document.
type Dataset struct {
	Info        Info         `json:"info"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
	Licenses    []License    `json:"licenses"`
}

// SidecarLicense is the license block of a per-image JSON sidecar.
type SidecarLicense struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SidecarInfo is the info block of a per-image JSON sidecar.
type SidecarInfo struct {
	Description string         `json:"description"`
	Version     string         `json:"version"`
	Year        int            `json:"year"`
	Contributor string         `json:"contributor"`
	Source      string         `json:"source"`
	License     SidecarLicense `json:"license"`
}

// SidecarImage is the image entry of a per-image JSON sidecar.
type SidecarImage struct {
	ID       int64  `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	URL      string `json:"url"`
	Hash     string `json:"hash"`
	Status   string `json:"status"`
}

// SidecarAnnotation is the annotation entry of a per-image JSON sidecar.
type SidecarAnnotation struct {
	ID           int64       `json:"id"`
	ImageID      int64       `json:"image_id"`
	CategoryID   int64       `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	Area         float64     `json:"area"`
	BBox         BBox        `json:"bbox"`
}

// SidecarCategory is the category entry of a per-image JSON sidecar.
type SidecarCategory struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// Sidecar is the per-image COCO-shaped JSON document stored next to each
// image (one image, one annotation, one category).
type Sidecar struct {
	Info        SidecarInfo         `json:"info"`
	Images      []SidecarImage      `json:"images"`
	Annotations []SidecarAnnotation `json:"annotations"`
	Categories  []SidecarCategory   `json:"categories"`
}
