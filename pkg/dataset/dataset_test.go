package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLabelmap = `[
  {"object_id": 1, "label_id": 1, "keyboard_shortcut": "1", "object_name": "apple"},
  {"object_id": 0, "label_id": 0, "keyboard_shortcut": "0", "object_name": "background"}
]`

func TestCategoryPaths(t *testing.T) {
	cat := Category{Root: "/data", Name: "apples"}

	assert.Equal(t, filepath.Join("/data", "apples"), cat.Dir())
	assert.Equal(t, filepath.Join("/data", "apples", "images"), cat.ImagesDir())
	assert.Equal(t, filepath.Join("/data", "apples", "sets", "val.txt"), cat.SplitFile("val"))
	assert.Equal(t, filepath.Join("/data", "apples", "csv", "IMG_1.csv"), cat.CSVFile("IMG_1"))
	assert.Equal(t, filepath.Join("/data", "apples", "json", "IMG_1.json"), cat.SidecarFile("IMG_1"))
}

func TestLoadLabelmapSortsByObjectID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelmap.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleLabelmap), 0644))

	entries, err := LoadLabelmap(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "background", entries[0].ObjectName)
	assert.Equal(t, "apple", entries[1].ObjectName)
}

func TestDisplayNameFromLabelmap(t *testing.T) {
	root := t.TempDir()
	cat := Category{Root: root, Name: "apples"}
	require.NoError(t, os.MkdirAll(cat.Dir(), 0755))
	require.NoError(t, os.WriteFile(cat.LabelmapFile(), []byte(sampleLabelmap), 0644))

	assert.Equal(t, "apple", cat.DisplayName())
}

func TestDisplayNameFallback(t *testing.T) {
	cat := Category{Root: t.TempDir(), Name: "peaches"}
	assert.Equal(t, "peache", cat.DisplayName())

	assert.Equal(t, "pear", SingularName("pears"))
	assert.Equal(t, "appleb", SingularName("applebs"))
}

func TestReadStemList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.txt")
	content := "IMG_0316\n\n  IMG_0317  \nIMG_0316\nIMG_0318\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	stems, err := ReadStemList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"IMG_0316", "IMG_0317", "IMG_0318"}, stems)
}

func TestReadStemListMissing(t *testing.T) {
	_, err := ReadStemList(filepath.Join(t.TempDir(), "val.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteStemListRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets", "train.txt")
	require.NoError(t, WriteStemList(path, []string{"a", "b"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))

	stems, err := ReadStemList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stems)
}

func TestWriteStemListEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "val.txt")
	require.NoError(t, WriteStemList(path, nil))

	stems, err := ReadStemList(path)
	require.NoError(t, err)
	assert.Empty(t, stems)
}
