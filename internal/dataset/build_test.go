package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-itasha-kit/pkg/domain"
)

// fakeReader はローカルファイルだけを読む InputReader の代役なのだ。
type fakeReader struct{}

func (fakeReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (fakeReader) List(ctx context.Context, path string, callback func(filePath string) error) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := callback(filepath.Join(path, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// fakeWriter は書き込み内容をメモリに貯める OutputWriter の代役なのだ。
type fakeWriter struct {
	files map[string][]byte
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{files: map[string][]byte{}}
}

func (w *fakeWriter) Write(ctx context.Context, path string, data io.Reader, mimeType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.files[path] = buf
	return nil
}

func TestBuildFromManifest_AppliesCanonicalSlots(t *testing.T) {
	dir := t.TempDir()
	manifest := `[
	  {
	    "texture": "ref/sample-b.JPG",
	    "crops": [
	      {"slot": 0, "box": [0, 0, 450, 550], "path": "dspy_inputs/sample-b_slot0.png"},
	      {"slot": 1, "box": [550, 0, 1000, 550], "path": "dspy_inputs/sample-b_slot1.png"},
	      {"slot": 2, "box": [150, 550, 850, 1000], "path": "dspy_inputs/sample-b_slot2.png"}
	    ]
	  }
	]`
	manifestPath := filepath.Join(dir, "crops.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifest), 0o644))

	writer := newFakeWriter()
	outPath := filepath.Join(dir, "dataset.json")
	require.NoError(t, BuildFromManifest(context.Background(), fakeReader{}, writer, manifestPath, outPath))

	examples, err := domain.ParseExamples(writer.files[outPath])
	require.NoError(t, err)
	require.Len(t, examples, 1)

	ex := examples[0]
	assert.Equal(t, "ref/sample-b.JPG", ex.Texture)
	assert.Equal(t, []string{
		"dspy_inputs/sample-b_slot0.png",
		"dspy_inputs/sample-b_slot1.png",
		"dspy_inputs/sample-b_slot2.png",
	}, ex.References)

	plan := ex.Analysis
	assert.InDelta(t, 52.5, plan.FrontBackDividerY, 1e-9)
	require.Len(t, plan.LayoutSlots, 3)

	front := plan.LayoutSlots[0]
	assert.Equal(t, "Front-Left Hero", front.SlotName)
	assert.Equal(t, []int{1}, front.SourceImages)
	assert.Equal(t, [2]float64{0.0, 45.0}, front.Position.X)
	assert.Equal(t, [2]float64{0.0, 52.5}, front.Position.Y)

	back := plan.LayoutSlots[2]
	assert.Equal(t, "Back Center", back.SlotName)
	assert.Equal(t, []int{3}, back.SourceImages)
	// 背面領域は分割線から4%下がって始まるのだ
	assert.Equal(t, [2]float64{56.5, 97.0}, back.Position.Y)

	require.Len(t, plan.Images, 3)
	assert.Contains(t, plan.Images[0].Description, "Reference crop 0")
	assert.Equal(t, []string{"slot0"}, plan.Images[0].Elements)
}

func TestBuildFromManifest_RejectsEmptyCrops(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "crops.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`[{"texture": "x.png", "crops": []}]`), 0o644))

	err := BuildFromManifest(context.Background(), fakeReader{}, newFakeWriter(), manifestPath, filepath.Join(dir, "out.json"))
	assert.Error(t, err)
}

func TestExtractCrops_ProducesThreeCropsPerTexture(t *testing.T) {
	dir := t.TempDir()
	texDir := filepath.Join(dir, "ref")
	outDir := filepath.Join(dir, "assets", "dspy_inputs")
	require.NoError(t, os.MkdirAll(texDir, 0o755))

	// 100x100 の単色PNGを被写体代わりにするのだ
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	texPath := filepath.Join(texDir, "tex01.png")
	require.NoError(t, os.WriteFile(texPath, buf.Bytes(), 0o644))

	writer := newFakeWriter()
	manifestPath := filepath.Join(dir, "crops.json")
	require.NoError(t, ExtractCrops(context.Background(), writer, filepath.Join(texDir, "*.png"), outDir, manifestPath))

	var entries []manifestEntry
	require.NoError(t, json.Unmarshal(writer.files[manifestPath], &entries))
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Crops, 3)

	// 先頭クロップは左上 45%x55% の矩形なのだ
	assert.Equal(t, [4]int{0, 0, 45, 55}, entries[0].Crops[0].Box)

	for idx, crop := range entries[0].Crops {
		assert.Equal(t, idx, crop.Slot)
		assert.True(t, strings.HasSuffix(crop.Path, fmt.Sprintf("_slot%d.png", idx)), crop.Path)
	}

	// マニフェスト以外にクロップ3枚がライター経由で書かれているのだ
	assert.Len(t, writer.files, 4)
	for path, data := range writer.files {
		if path == manifestPath {
			continue
		}
		assert.True(t, strings.HasSuffix(path, ".png"), path)
		assert.NotEmpty(t, data)
	}
}
