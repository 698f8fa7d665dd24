package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/imageio"
)

// ErrNoValidImages は、参照画像が1枚も読み込めなかった場合のエラーです。
var ErrNoValidImages = errors.New("有効な参照画像が1枚もありません")

// analysisInstruction は、視覚解析とレイアウト計画を依頼する固定指示です。
// 応答は ResponseSchema で Layout Schema に拘束されます。
const analysisInstruction = `You are an expert visual designer for "Itasha" (decorated vehicle/device) art.
Analyze the provided reference image(s) and design a vinyl skin layout for a Nintendo Switch Lite.

For each reference image, in the same order as provided, report:
1. A detailed visual description.
2. Key elements (characters, objects).
3. Art style.
4. Dominant color palette (hex codes or names).
5. Overall mood.

Then provide:
- "synthesis": a single cohesive design concept merging all references for the skin.
- "layout_slots": named placement regions on a square canvas. Each slot has a
  percentage bounding box (x and y as [min, max], 0-100, origin top-left),
  the 1-based indices of the reference images it consumes, its purpose, and
  hazards to avoid (screen cutout, buttons, edge cuts).
- "front_back_divider_y": the Y percentage splitting the canvas into the front
  plate (above) and back plate (below).

If a cut-mask image is attached, treat white as the safe zone and grey as the
bleed area when choosing slot positions. Never plan content that depends on
reproducing the mask itself.`

// ImageLoader は参照画像を読み込むための契約です。
type ImageLoader interface {
	Load(ctx context.Context, ref string) (*imageio.Image, error)
}

// Service は参照画像を視覚モデルで解析し、デザインプランを生成します。
type Service struct {
	client *genai.Client
	loader ImageLoader

	// Models は試行順のモデル識別子リストです。先頭が主モデルで、
	// 失敗した場合に限り後続を1回ずつ試します（それ以外の再試行はしません）。
	Models []string
}

// NewService は Service を初期化します。models が空の場合はエラーです。
func NewService(client *genai.Client, loader ImageLoader, models []string) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("少なくとも1つのモデル識別子が必要です")
	}
	return &Service{client: client, loader: loader, Models: models}, nil
}

// Analyze は参照画像（と任意のマスク画像）を解析し、デザインプランと
// 「実際に読み込めた参照パスの並び」を返します。プランの images[i] は
// 返却されたパス列の i 番目と対応します。個々の読み込み失敗はログの上
// スキップし、全滅した場合のみ ErrNoValidImages を返します。
// モデル応答がスキーマとして解釈できない場合は修復せず、致命的エラーとして返します。
func (s *Service) Analyze(ctx context.Context, refPaths []string, maskPath string) (domain.AnalysisResult, []string, error) {
	parts := []*genai.Part{{Text: analysisInstruction}}

	var loaded []string
	for _, ref := range refPaths {
		img, err := s.loader.Load(ctx, ref)
		if err != nil {
			slog.Warn("参照画像を読み込めなかったため解析から除外します", "path", ref, "error", err)
			continue
		}
		loaded = append(loaded, ref)
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
	}
	if len(loaded) == 0 {
		return domain.AnalysisResult{}, nil, ErrNoValidImages
	}

	if maskPath != "" {
		if mask, err := s.loader.Load(ctx, maskPath); err == nil {
			parts = append(parts,
				&genai.Part{Text: "Attached below is the cut mask (white = safe zone, grey = bleed)."},
				&genai.Part{InlineData: &genai.Blob{MIMEType: mask.MIMEType, Data: mask.Data}},
			)
		} else {
			slog.Warn("マスク画像を読み込めなかったため解析には含めません", "path", maskPath, "error", err)
		}
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	}

	var lastErr error
	for i, model := range s.Models {
		if i > 0 {
			slog.Warn("視覚モデルが失敗したため次の候補を試します", "failed_model", s.Models[i-1], "next_model", model, "error", lastErr)
		}
		resp, err := s.client.Models.GenerateContent(ctx, model,
			[]*genai.Content{{Parts: parts}}, config)
		if err != nil {
			lastErr = err
			continue
		}
		text, err := firstText(resp)
		if err != nil {
			lastErr = err
			continue
		}

		// スキーマ違反の応答はここで修復しない。致命的エラーとして呼び出し側へ返す。
		plan, err := domain.UnmarshalAnalysis([]byte(text))
		if err != nil {
			return domain.AnalysisResult{}, nil, fmt.Errorf("モデル '%s' の応答を解釈できません: %w", model, err)
		}
		slog.Info("視覚解析が完了しました", "model", model, "images", len(plan.Images), "slots", len(plan.LayoutSlots))
		return plan, loaded, nil
	}
	return domain.AnalysisResult{}, nil, fmt.Errorf("すべての視覚モデルが失敗しました: %w", lastErr)
}

// firstText は応答から最初のテキストパートを取り出します。
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("モデル応答に候補がありません")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("モデル応答にテキストがありません")
}

// analysisSchema は Layout Schema を genai のスキーマとして表現します。
func analysisSchema() *genai.Schema {
	positionRange := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"x": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}},
			"y": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}},
		},
		Required: []string{"x", "y"},
	}
	layoutSlot := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"slot_name":     {Type: genai.TypeString},
			"source_images": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeInteger}},
			"description":   {Type: genai.TypeString},
			"purpose":       {Type: genai.TypeString},
			"position":      positionRange,
			"avoid":         {Type: genai.TypeString},
		},
		Required: []string{"slot_name", "source_images", "position"},
	}
	imageAnalysis := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"description": {Type: genai.TypeString},
			"elements":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"style":       {Type: genai.TypeString},
			"colors":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"mood":        {Type: genai.TypeString},
		},
		Required: []string{"description", "elements", "style", "colors", "mood"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"images":               {Type: genai.TypeArray, Items: imageAnalysis},
			"synthesis":            {Type: genai.TypeString},
			"layout_slots":         {Type: genai.TypeArray, Items: layoutSlot},
			"front_back_divider_y": {Type: genai.TypeNumber},
		},
		Required: []string{"images", "synthesis"},
	}
}
