package optimize

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/score"
)

// Metric は候補プロンプトを1つの例に対して採点します。
// 戻り値は (スコア 0.0〜1.0, フィードバック)。エラーは返しません。
type Metric func(ctx context.Context, ex domain.Example, promptText string) (float64, string)

// ImageMetric は Evaluator の契約のうち、メトリクスが必要とする部分です。
type ImageMetric interface {
	GenerateAndEvaluate(ctx context.Context, plan domain.AnalysisResult, refPaths []string, promptText, targetTexture string) (float64, string)
}

// NewMetric は画像生成込みのメトリクスを作ります。例にプランか参照画像が
// 欠けている場合は、画像を生成せずキーワードスコアラーへフォールバック
// します。どんな失敗もスコア 0.0 に落ち、スイープは止まりません。
func NewMetric(evaluator ImageMetric) Metric {
	return func(ctx context.Context, ex domain.Example, promptText string) (float64, string) {
		if strings.TrimSpace(promptText) == "" {
			return 0.0, "empty candidate prompt"
		}
		if len(ex.References) == 0 || len(ex.Analysis.Images) == 0 {
			return score.Prompt(promptText), "keyword-only fallback (example has no plan or references)"
		}
		return evaluator.GenerateAndEvaluate(ctx, ex.Analysis, ex.References, promptText, resolveTargetTexture(ex.Texture))
	}
}

// ResolveReferences は、データセットに記録された参照画像パスを読み込める
// パスへ直した複製を返します。クロップ抽出はパスを assets 配下からの相対
// （dspy_inputs/... の形）で記録するため、そのままでは開けません。
// 各パスは「絶対パス → カレント基準で存在 → assets/ 配下で存在」の順に
// 解決し、どれにも当たらなければ元のパスを残します（読み込み側が警告を出します）。
func ResolveReferences(refs []string) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = resolveReference(ref)
	}
	return out
}

func resolveReference(ref string) string {
	if ref == "" || filepath.IsAbs(ref) {
		return ref
	}
	if _, err := os.Stat(ref); err == nil {
		return ref
	}
	if candidate := filepath.Join("assets", ref); fileExists(candidate) {
		return candidate
	}
	return ref
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// resolveTargetTexture は比較用の目標テクスチャを探します。
// 指定パスそのもの、次に assets/ 配下を試し、見つからなければ比較なしです。
func resolveTargetTexture(texture string) string {
	if texture == "" {
		return ""
	}
	if _, err := os.Stat(texture); err == nil {
		return texture
	}
	if !filepath.IsAbs(texture) {
		candidate := filepath.Join("assets", texture)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
