package prompt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-itasha-kit/pkg/asset"
	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/imageio"
)

// fakeLoader は、登録されたパスだけを読み込める ImageLoader の偽物です。
type fakeLoader struct {
	images map[string]*imageio.Image
}

func (f *fakeLoader) Load(_ context.Context, ref string) (*imageio.Image, error) {
	if img, ok := f.images[ref]; ok {
		return img, nil
	}
	return nil, fmt.Errorf("not found: %s", ref)
}

func newFakeLoader(refs ...string) *fakeLoader {
	images := make(map[string]*imageio.Image)
	for _, r := range refs {
		images[r] = &imageio.Image{Data: []byte("img:" + r), MIMEType: "image/png"}
	}
	return &fakeLoader{images: images}
}

func testPlan() domain.AnalysisResult {
	return domain.AnalysisResult{
		Images: []domain.ImageAnalysis{
			{Description: "hero art", Elements: []string{"character"}, Style: "anime", Colors: []string{"teal", "white"}, Mood: "calm"},
			{Description: "pattern art", Elements: []string{"pattern"}, Style: "flat", Colors: []string{"gold"}, Mood: "bold"},
		},
		Synthesis:         "Blend hero and pattern into one skin.",
		FrontBackDividerY: 52.5,
		LayoutSlots: []domain.LayoutSlot{
			{
				SlotName:     "Front-Left Hero",
				SourceImages: []int{1},
				Description:  "Primary subject",
				Purpose:      "hero",
				Position:     domain.PositionRange{X: [2]float64{0, 45}, Y: [2]float64{0, 52}},
				Avoid:        "screen cutout",
			},
		},
	}
}

func allText(segments []Segment) string {
	return JoinText(segments)
}

func TestBuilder_Build_EndToEndScenario(t *testing.T) {
	// 参照画像2枚・スロット1つ（source_images=[1], x=[0,45], y=[0,52]）のシナリオ。
	refs := []string{"ref1.png", "ref2.png"}
	builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader(refs...))

	segments := builder.Build(context.Background(), testPlan(), refs, "")
	text := allText(segments)

	t.Run("スロット行が4つの境界値をそのまま引用する", func(t *testing.T) {
		assert.Contains(t, text, "- Front-Left Hero: x=[0, 45]%, y=[0, 52]%")
	})

	t.Run("参照1には消費スロットの指示が1回だけ付く", func(t *testing.T) {
		note := "Reference image 1 is consumed by slot(s): Front-Left Hero"
		assert.Equal(t, 1, strings.Count(text, note))
	})

	t.Run("参照2にはスロット消費の指示が付かない", func(t *testing.T) {
		assert.NotContains(t, text, "Reference image 2 is consumed by slot(s)")
		// 代わりにスタイル参照としての注記が付く
		assert.Contains(t, text, "Reference image 2: style and palette reference only")
	})

	t.Run("画像セグメントは参照2枚ぶん添付される", func(t *testing.T) {
		var imageCount int
		for _, s := range segments {
			if s.IsImage() {
				imageCount++
			}
		}
		assert.Equal(t, 2, imageCount)
	})
}

func TestBuilder_Build_DividerRendering(t *testing.T) {
	// divider=52.5 のとき、前面 y ∈ [0, 52.5) / 背面 y ∈ [52.5, 100] を
	// パーセント表記で逐語的に描画しなければならない。
	builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader("ref1.png"))
	text := allText(builder.Build(context.Background(), testPlan(), []string{"ref1.png"}, ""))

	assert.Contains(t, text, "front region covers y ∈ [0, 52.5)")
	assert.Contains(t, text, "back region covers y ∈ [52.5, 100]")
}

func TestBuilder_Build_ConsumptionNotesCompleteness(t *testing.T) {
	// 有効なインデックスを持つ各スロットについて、読み込みに成功した参照ごとに
	// そのインデックスを含む全スロット名が消費指示に載ること。
	plan := testPlan()
	plan.LayoutSlots = append(plan.LayoutSlots, domain.LayoutSlot{
		SlotName:     "Back Center",
		SourceImages: []int{1, 2},
		Position:     domain.PositionRange{X: [2]float64{10, 90}, Y: [2]float64{56.5, 97}},
	})
	refs := []string{"ref1.png", "ref2.png"}
	builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader(refs...))
	text := allText(builder.Build(context.Background(), plan, refs, ""))

	assert.Contains(t, text, "Reference image 1 is consumed by slot(s): Front-Left Hero, Back Center")
	assert.Contains(t, text, "Reference image 2 is consumed by slot(s): Back Center")
}

func TestBuilder_Build_MaskOmission(t *testing.T) {
	refs := []string{"ref1.png"}
	plan := testPlan()
	ctx := context.Background()

	t.Run("マスクが無い場合はセグメントごと省略される", func(t *testing.T) {
		builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader(refs...))
		text := allText(builder.Build(ctx, plan, refs, ""))
		assert.NotContains(t, text, MaskCaveat)
	})

	t.Run("マスクの有無はマスクセグメント以外に影響しない", func(t *testing.T) {
		dir := t.TempDir()
		maskPath := filepath.Join(dir, asset.DefaultMaskFileName)
		require.NoError(t, os.WriteFile(maskPath, []byte("mask"), 0o644))

		loader := newFakeLoader(refs...)
		loader.images[maskPath] = &imageio.Image{Data: []byte("maskdata"), MIMEType: "image/png"}

		withMask := NewBuilder(asset.NewLibrary(dir), loader).Build(ctx, plan, refs, "")
		withoutMask := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader(refs...)).Build(ctx, plan, refs, "")

		// マスク付きの列からマスク関連の2セグメントを除くと、マスク無しの列と一致する。
		var stripped []Segment
		skipNext := false
		for _, s := range withMask {
			if skipNext {
				skipNext = false
				continue
			}
			if s.Text == MaskCaveat {
				skipNext = true // 直後のマスク画像も除く
				continue
			}
			stripped = append(stripped, s)
		}
		assert.Equal(t, len(withoutMask), len(stripped))
		for i := range stripped {
			assert.Equal(t, withoutMask[i].Text, stripped[i].Text, "segment %d", i)
		}
	})
}

func TestBuilder_Build_FallbackWhenNoSlots(t *testing.T) {
	plan := testPlan()
	plan.LayoutSlots = nil
	builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader("ref1.png"))
	text := allText(builder.Build(context.Background(), plan, []string{"ref1.png"}, ""))

	assert.Contains(t, text, "No explicit layout slots were planned")
	assert.NotContains(t, text, "### LAYOUT TABLE ###")
}

func TestBuilder_Build_SkipsUnloadableReferences(t *testing.T) {
	// ref2 は読み込めない想定。スキップされ、インデックス2の消費指示も出ない。
	refs := []string{"ref1.png", "ref2.png"}
	builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader("ref1.png"))
	segments := builder.Build(context.Background(), testPlan(), refs, "")
	text := allText(segments)

	assert.Contains(t, text, "Reference image 1")
	assert.NotContains(t, text, "Reference image 2")

	var imageCount int
	for _, s := range segments {
		if s.IsImage() {
			imageCount++
		}
	}
	assert.Equal(t, 1, imageCount)
}

func TestBuilder_Build_FewShotPairSkippedWhenTextureMissing(t *testing.T) {
	dir := t.TempDir()
	manifest := `[{"texture": "examples/missing.png", "preview": "examples/p.png", "note": "n"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, asset.DefaultExampleManifestName), []byte(manifest), 0o644))

	builder := NewBuilder(asset.NewLibrary(dir), newFakeLoader("ref1.png"))
	text := allText(builder.Build(context.Background(), testPlan(), []string{"ref1.png"}, ""))

	assert.NotContains(t, text, "TARGET printable vinyl texture")
}

func TestBuilder_Build_FinalInstructionsOverride(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, asset.DefaultFinalInstructionsName)
	require.NoError(t, os.MkdirAll(filepath.Dir(override), 0o755))
	require.NoError(t, os.WriteFile(override, []byte("OVERRIDDEN PROCEDURE"), 0o644))

	builder := NewBuilder(asset.NewLibrary(dir), newFakeLoader("ref1.png"))
	text := allText(builder.Build(context.Background(), testPlan(), []string{"ref1.png"}, ""))

	assert.Contains(t, text, "OVERRIDDEN PROCEDURE")
	assert.NotContains(t, text, "### FINAL PROCEDURE ###")
}

func TestBuilder_Build_Deterministic(t *testing.T) {
	refs := []string{"ref1.png", "ref2.png"}
	builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader(refs...))
	plan := testPlan()

	first := builder.Build(context.Background(), plan, refs, "")
	second := builder.Build(context.Background(), plan, refs, "")
	assert.Equal(t, first, second)
}

func TestBuilder_Build_MalformedPositionRangeRendersAsIs(t *testing.T) {
	// min>max は検証されず、そのまま表に描画される（仕様上の既知の癖）。
	plan := testPlan()
	plan.LayoutSlots[0].Position = domain.PositionRange{X: [2]float64{45, 0}, Y: [2]float64{0, 52}}
	builder := NewBuilder(asset.NewLibrary(t.TempDir()), newFakeLoader("ref1.png"))
	text := allText(builder.Build(context.Background(), plan, []string{"ref1.png"}, ""))

	assert.Contains(t, text, "x=[45, 0]%")
}
