package optimize

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-itasha-kit/pkg/domain"
)

// canonicalExample は3スロット構成の学習例を組み立てるヘルパーなのだ。
func canonicalExample(id int) domain.Example {
	refs := make([]string, canonicalSlotCount)
	slots := make([]domain.LayoutSlot, canonicalSlotCount)
	for i := range refs {
		refs[i] = fmt.Sprintf("crops/tex%d_slot%d.png", id, i)
		slots[i] = domain.LayoutSlot{
			SlotName:     fmt.Sprintf("Slot %d", i),
			SourceImages: []int{i + 1},
			Description:  "original description",
			Position: domain.PositionRange{
				X: [2]float64{0, 45},
				Y: [2]float64{0, 52.5},
			},
		}
	}
	return domain.Example{
		Texture: fmt.Sprintf("tex%d.png", id),
		Analysis: domain.AnalysisResult{
			Images: []domain.ImageAnalysis{
				{Description: "crop 0"}, {Description: "crop 1"}, {Description: "crop 2"},
			},
			Synthesis:         "combine",
			LayoutSlots:       slots,
			FrontBackDividerY: 52.5,
		},
		References: refs,
	}
}

func TestAugment_NeverAllIdenticalReferences(t *testing.T) {
	// 合成例のどれひとつとして、3スロット全部が同一参照になってはいけないのだ。
	examples := []domain.Example{canonicalExample(1), canonicalExample(2), canonicalExample(3)}
	rng := rand.New(rand.NewSource(7))

	synthetic := Augment(examples, 50, rng)
	require.NotEmpty(t, synthetic)
	for i, ex := range synthetic {
		require.Len(t, ex.References, canonicalSlotCount, "synthetic %d", i)
		allSame := ex.References[0] == ex.References[1] && ex.References[1] == ex.References[2]
		assert.False(t, allSame, "synthetic %d: %v", i, ex.References)
	}
}

func TestAugment_DoesNotMutateSourcePlans(t *testing.T) {
	examples := []domain.Example{canonicalExample(1), canonicalExample(2)}
	rng := rand.New(rand.NewSource(1))

	synthetic := Augment(examples, 10, rng)
	require.NotEmpty(t, synthetic)

	// 合成例のスロット記述は書き換わるが、元の例は無傷のままなのだ。
	for _, ex := range examples {
		for _, slot := range ex.Analysis.LayoutSlots {
			assert.Equal(t, "original description", slot.Description)
		}
	}
	for _, ex := range synthetic {
		for i, slot := range ex.Analysis.LayoutSlots {
			assert.Equal(t, []int{i + 1}, slot.SourceImages)
			assert.NotEqual(t, "original description", slot.Description)
		}
	}
}

func TestAugment_SkipsNonCanonicalExamples(t *testing.T) {
	// 2枚構成の例しか無ければ合成のしようがないのだ。
	short := canonicalExample(1)
	short.References = short.References[:2]
	assert.Empty(t, Augment([]domain.Example{short, short}, 5, rand.New(rand.NewSource(1))))
}

func TestSampleExamples_FixedSeedIsReproducible(t *testing.T) {
	var examples []domain.Example
	for i := 0; i < 20; i++ {
		examples = append(examples, canonicalExample(i))
	}

	a := SampleExamples(examples, 5, 42)
	b := SampleExamples(examples, 5, 42)
	require.Len(t, a, 5)
	assert.Equal(t, a, b)

	// 件数が上限以下ならそのまま返るのだ
	all := SampleExamples(examples[:3], 5, 42)
	assert.Len(t, all, 3)
}

func TestResolveReferences_FallsBackToAssetsDir(t *testing.T) {
	// crops→dataset の流れは参照パスを assets 配下からの相対
	// （dspy_inputs/... の形）で記録するので、assets/ を前置して
	// 解決できなければいけないのだ。
	dir := t.TempDir()
	t.Chdir(dir)

	cropDir := filepath.Join("assets", "dspy_inputs")
	require.NoError(t, os.MkdirAll(cropDir, 0o755))
	cropPath := filepath.Join(cropDir, "tex01_slot0.png")
	require.NoError(t, os.WriteFile(cropPath, []byte{0x89}, 0o644))

	localPath := "local.png"
	require.NoError(t, os.WriteFile(localPath, []byte{0x89}, 0o644))

	absPath := filepath.Join(dir, "abs.png")

	got := ResolveReferences([]string{
		"dspy_inputs/tex01_slot0.png", // assets 配下で見つかるのだ
		localPath,                     // カレント基準でそのまま開けるのだ
		absPath,                       // 絶対パスは手を付けないのだ
		"dspy_inputs/missing.png",     // どこにも無ければ元のまま残すのだ
	})

	assert.Equal(t, []string{
		filepath.Join("assets", "dspy_inputs", "tex01_slot0.png"),
		localPath,
		absPath,
		"dspy_inputs/missing.png",
	}, got)
}

type stubEvaluator struct {
	called bool
	score  float64
}

func (s *stubEvaluator) GenerateAndEvaluate(ctx context.Context, plan domain.AnalysisResult, refPaths []string, promptText, targetTexture string) (float64, string) {
	s.called = true
	return s.score, "graded"
}

func TestMetric_FallsBackToKeywordScoringWithoutPlan(t *testing.T) {
	stub := &stubEvaluator{score: 0.9}
	metric := NewMetric(stub)

	// プランも参照も無い例では画像生成せず、キーワードスコアに落ちるのだ。
	bare := domain.Example{}
	got, feedback := metric(context.Background(), bare, "short")
	assert.False(t, stub.called)
	assert.Zero(t, got)
	assert.Contains(t, feedback, "fallback")

	// 完全な例なら画像生成込みの採点が走るのだ。
	full := canonicalExample(1)
	got, _ = metric(context.Background(), full, "anything")
	assert.True(t, stub.called)
	assert.InDelta(t, 0.9, got, 1e-9)
}

func TestMetric_EmptyPromptIsZero(t *testing.T) {
	metric := NewMetric(&stubEvaluator{score: 1.0})
	got, _ := metric(context.Background(), canonicalExample(1), "   \n  ")
	assert.Zero(t, got)
}
