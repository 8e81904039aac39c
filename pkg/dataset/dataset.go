// Package dataset models the on-disk layout of the flower segmentation
// dataset: one directory per category with images/, csv/, json/,
// segmentations/ and sets/ subdirectories plus a labelmap.json.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flowerseg/dataset-tools/internal/utils"
)

// Category addresses one category directory inside a dataset root.
type Category struct {
	Root string
	Name string
}

// Dir returns the category directory path.
func (c Category) Dir() string { return filepath.Join(c.Root, c.Name) }

// ImagesDir returns the images/ subdirectory.
func (c Category) ImagesDir() string { return filepath.Join(c.Root, c.Name, "images") }

// CSVDir returns the csv/ subdirectory.
func (c Category) CSVDir() string { return filepath.Join(c.Root, c.Name, "csv") }

// JSONDir returns the json/ sidecar subdirectory.
func (c Category) JSONDir() string { return filepath.Join(c.Root, c.Name, "json") }

// SegmentationsDir returns the segmentations/ subdirectory.
func (c Category) SegmentationsDir() string {
	return filepath.Join(c.Root, c.Name, "segmentations")
}

// SetsDir returns the sets/ subdirectory holding split list files.
func (c Category) SetsDir() string { return filepath.Join(c.Root, c.Name, "sets") }

// SplitFile returns the list file path for a named split.
func (c Category) SplitFile(split string) string {
	return filepath.Join(c.SetsDir(), split+".txt")
}

// LabelmapFile returns the labelmap.json path.
func (c Category) LabelmapFile() string {
	return filepath.Join(c.Root, c.Name, "labelmap.json")
}

// CSVFile returns the per-image CSV annotation path for a stem.
func (c Category) CSVFile(stem string) string {
	return filepath.Join(c.CSVDir(), stem+".csv")
}

// SidecarFile returns the per-image JSON sidecar path for a stem.
func (c Category) SidecarFile(stem string) string {
	return filepath.Join(c.JSONDir(), stem+".json")
}

// LabelmapEntry is one entry of a category's labelmap.json. object_id 0 is
// the background class.
type LabelmapEntry struct {
	ObjectID         int    `json:"object_id"`
	LabelID          int    `json:"label_id"`
	KeyboardShortcut string `json:"keyboard_shortcut,omitempty"`
	ObjectName       string `json:"object_name"`
}

// LoadLabelmap reads a labelmap.json, sorted by object id.
func LoadLabelmap(path string) ([]LabelmapEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labelmap: %w", err)
	}

	var entries []LabelmapEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse labelmap %s: %w", path, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ObjectID < entries[j].ObjectID
	})
	return entries, nil
}

// DisplayName returns the object name of the category's first
// non-background labelmap entry. Without a labelmap it falls back to the
// singular of the directory name, which is what the reorganizer writes into
// labelmap.json anyway.
func (c Category) DisplayName() string {
	if entries, err := LoadLabelmap(c.LabelmapFile()); err == nil {
		for _, entry := range entries {
			if entry.ObjectID == 0 {
				continue
			}
			return entry.ObjectName
		}
	}
	return SingularName(c.Name)
}

// SingularName strips a trailing "s" from a category directory name.
func SingularName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), "s")
}

// ReadStemList reads a split list file: one image stem per line, without
// extension. Blank lines and surrounding whitespace are dropped; duplicate
// stems are kept once, in first-seen order. A missing file surfaces as an
// os.IsNotExist error.
func ReadStemList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	var stems []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		stem := strings.TrimSpace(scanner.Text())
		if stem == "" || seen[stem] {
			continue
		}
		seen[stem] = true
		stems = append(stems, stem)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read split file %s: %w", path, err)
	}
	return stems, nil
}

// WriteStemList writes a split list file, one stem per line with a trailing
// newline.
func WriteStemList(path string, stems []string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create sets directory: %w", err)
	}
	content := strings.Join(stems, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write split file %s: %w", path, err)
	}
	return nil
}
