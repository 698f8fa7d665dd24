// Package optimize は、プロンプト最適化スイープの駆動部です。
// データセットの読み込みと合成拡張、評価メトリクス、反射的な提案・採択
// ループ、および結果の書き出しを担当します。探索そのものの予算管理は
// メトリクス呼び出し回数（1回 = 実画像生成1回）で行います。
package optimize

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-itasha-kit/pkg/domain"
)

// canonicalSlotCount は標準データセットの1例あたりのスロット数です。
// 前面左・前面右・背面中央の3スロットに対応します。
const canonicalSlotCount = 3

// LoadDataset は学習データセットを読み込みます。パスはローカルと
// gs:// のどちらも受け付けます。
func LoadDataset(ctx context.Context, reader remoteio.InputReader, path string) ([]domain.Example, error) {
	rc, err := reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("データセット '%s' を開けません: %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("データセット '%s' の読み込みに失敗しました: %w", path, err)
	}
	examples, err := domain.ParseExamples(data)
	if err != nil {
		return nil, fmt.Errorf("データセット '%s' の解釈に失敗しました: %w", path, err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("データセット '%s' に例が1件もありません", path)
	}
	return examples, nil
}

// Augment は、既存の例からスロット単位で参照画像を組み替えた合成例を
// 生成します。各スロットの参照は別々の例から無作為に選びます。
// 3スロットすべてに同一の参照が選ばれた組み合わせは捨てて引き直します。
// 返す例のプランは元プランの深いコピーで、元データセットは変更しません。
func Augment(examples []domain.Example, count int, rng *rand.Rand) []domain.Example {
	var eligible []domain.Example
	for _, ex := range examples {
		if len(ex.References) == canonicalSlotCount && len(ex.Analysis.LayoutSlots) == canonicalSlotCount {
			eligible = append(eligible, ex)
		}
	}
	if count <= 0 || len(eligible) < 2 {
		return nil
	}

	var out []domain.Example
	// 引き直し込みの試行上限。枯渇したら count 未満でも打ち切ります。
	maxAttempts := count * 8
	for attempt := 0; attempt < maxAttempts && len(out) < count; attempt++ {
		var refs [canonicalSlotCount]string
		for slot := range refs {
			pick := eligible[rng.Intn(len(eligible))]
			refs[slot] = pick.References[slot]
		}
		if refs[0] == refs[1] && refs[1] == refs[2] {
			continue
		}

		base := eligible[rng.Intn(len(eligible))]
		plan := base.Analysis.Clone()
		for i := range plan.LayoutSlots {
			plan.LayoutSlots[i].SourceImages = []int{i + 1}
			plan.LayoutSlots[i].Description = fmt.Sprintf("Place the content of reference image %d here.", i+1)
		}
		out = append(out, domain.Example{
			Analysis:   plan,
			References: refs[:],
		})
	}
	return out
}

// SampleExamples は、評価セットを最大 max 件に絞ります。固定シードの
// リザーバサンプリングなので、同じ入力に対して常に同じ部分集合を返します。
func SampleExamples(examples []domain.Example, max int, seed int64) []domain.Example {
	if max <= 0 || len(examples) <= max {
		return examples
	}
	rng := rand.New(rand.NewSource(seed))
	reservoir := make([]domain.Example, max)
	copy(reservoir, examples[:max])
	for i := max; i < len(examples); i++ {
		if j := rng.Intn(i + 1); j < max {
			reservoir[j] = examples[i]
		}
	}
	return reservoir
}
