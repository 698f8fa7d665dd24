package prompt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-itasha-kit/pkg/asset"
	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/imageio"
)

// ImageLoader は、参照画像・アセット画像を読み込むための契約です。
type ImageLoader interface {
	Load(ctx context.Context, ref string) (*imageio.Image, error)
}

// Builder は、デザインプランと参照画像からプロンプトセグメント列を組み立てます。
// 同一の入力と同一のファイルシステム状態に対して、常に同一の列を返します。
// 欠けている任意アセット（マスク・few-shotペア）は黙って省略します。
type Builder struct {
	assets *asset.Library
	loader ImageLoader
}

// NewBuilder は Builder を初期化します。
func NewBuilder(lib *asset.Library, loader ImageLoader) *Builder {
	return &Builder{assets: lib, loader: loader}
}

// Build は、固定テンプレートに従った順序付きセグメント列を生成します。
// 順序はモデルの注意配分に影響するため固定です:
// ルール群 → レイアウト表 → 解析サマリ → マスク → few-shot → 参照画像 → 最終手順。
func (b *Builder) Build(ctx context.Context, plan domain.AnalysisResult, refPaths []string, maskPath string) []Segment {
	return b.BuildWithInstructions(ctx, plan, refPaths, maskPath, "")
}

// BuildWithInstructions は Build と同じテンプレートを組み立てますが、
// 末尾の最終手順ブロックを instructions で差し替えます。空文字列の場合は
// 標準の最終手順（またはアセット側の上書き）を使います。
// 最適化パスが候補手順を評価するときの入口です。
func (b *Builder) BuildWithInstructions(ctx context.Context, plan domain.AnalysisResult, refPaths []string, maskPath, instructions string) []Segment {
	segments := []Segment{
		TextSegment(TaskFraming),
		TextSegment(ProhibitedContent),
		TextSegment(CohesionRules),
		TextSegment(MaskUsageRules),
	}

	// レイアウト表。スロットがゼロのプランには汎用配置指示を代わりに置きます。
	if len(plan.LayoutSlots) == 0 {
		segments = append(segments, TextSegment(FallbackSlotInstruction))
	} else {
		segments = append(segments, TextSegment(renderLayoutTable(plan)))
	}

	segments = append(segments, TextSegment(renderAnalysisSummary(plan)))
	segments = append(segments, b.maskSegments(ctx, maskPath)...)
	segments = append(segments, b.exampleSegments(ctx, true)...)
	segments = append(segments, b.referenceSegments(ctx, refPaths, func(idx int) string {
		return renderConsumptionNote(plan, idx)
	})...)
	if instructions == "" {
		instructions = b.finalInstructions()
	}
	segments = append(segments, TextSegment(instructions))
	return segments
}

// AssetSegments は、最適化パスの候補プロンプト用に画像アセットだけを
// 組み立てます。候補テキストはテンプレートを持たないため、マスク・
// few-shotテクスチャ・参照画像を標準と同じ順序で後置します。
func (b *Builder) AssetSegments(ctx context.Context, refPaths []string, maskPath string) []Segment {
	var segments []Segment
	segments = append(segments, b.maskSegments(ctx, maskPath)...)
	segments = append(segments, b.exampleSegments(ctx, false)...)
	segments = append(segments, b.referenceSegments(ctx, refPaths, nil)...)
	return segments
}

// maskSegments はマスク画像とその注意書きを返します。
// 引数のパスが空なら設定済みアセットにフォールバックし、
// それも無ければ（または読めなければ）まるごと省略します。
func (b *Builder) maskSegments(ctx context.Context, maskPath string) []Segment {
	if maskPath == "" {
		maskPath = b.assets.MaskPath()
	}
	if maskPath == "" {
		return nil
	}
	img, err := b.loader.Load(ctx, maskPath)
	if err != nil {
		slog.Warn("マスク画像を読み込めなかったため省略します", "path", maskPath, "error", err)
		return nil
	}
	return []Segment{
		TextSegment(MaskCaveat),
		ImageSegment(img.Data, img.MIMEType),
	}
}

// exampleSegments は few-shot サンプルペアを返します。テクスチャ側が
// 読めないペアは代替なしでまるごとスキップします。withPreview が真のとき、
// マスク適用プレビューも（存在すれば）添付します。
func (b *Builder) exampleSegments(ctx context.Context, withPreview bool) []Segment {
	var segments []Segment
	for _, pair := range b.assets.ExamplePairs() {
		texture, err := b.loader.Load(ctx, pair.Texture)
		if err != nil {
			slog.Warn("few-shotテクスチャを読み込めなかったためペアをスキップします", "path", pair.Texture, "error", err)
			continue
		}
		note := fmt.Sprintf("Example: '%s' is the TARGET printable vinyl texture (what you must create).", pair.Texture)
		if pair.Note != "" {
			note += " " + pair.Note
		}
		segments = append(segments, TextSegment(note), ImageSegment(texture.Data, texture.MIMEType))

		if withPreview && pair.Preview != "" {
			if preview, err := b.loader.Load(ctx, pair.Preview); err == nil {
				segments = append(segments,
					TextSegment("Post-mask preview of the same example, showing what survives after cutting:"),
					ImageSegment(preview.Data, preview.MIMEType),
				)
			}
		}
	}
	return segments
}

// referenceSegments は参照画像ブロックを返します。note が非nilの場合、
// 各画像の直前にスロット消費の指示文を置きます。読み込みに失敗した参照は
// ログに記録してスキップし、その1始まりインデックスの消費指示も出しません。
func (b *Builder) referenceSegments(ctx context.Context, refPaths []string, note func(idx int) string) []Segment {
	var segments []Segment
	for i, ref := range refPaths {
		img, err := b.loader.Load(ctx, ref)
		if err != nil {
			slog.Warn("参照画像を読み込めなかったためスキップします", "path", ref, "error", err)
			continue
		}
		if note != nil {
			segments = append(segments, TextSegment(note(i+1)))
		}
		segments = append(segments, ImageSegment(img.Data, img.MIMEType))
	}
	return segments
}

func (b *Builder) finalInstructions() string {
	if text, ok := b.assets.FinalInstructionsOverride(); ok {
		return text
	}
	return DefaultFinalInstructions
}
