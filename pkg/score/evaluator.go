package score

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/generate"
)

// scoringRubric は生成画像の採点基準です。配点は固定で、採点モデルに
// JSON構造の評決を要求します。
const scoringRubric = `You are evaluating a generated texture image for a handheld console skin design.

Evaluation Criteria:
1. **Layout Compliance** (30%): Does the image follow the specified layout slots and avoid forbidden zones (screen, buttons)?
2. **Reference Image Usage** (25%): Are elements from the reference images correctly integrated and positioned?
3. **Visual Quality** (20%): Is the image visually appealing, with good color harmony and composition?
4. **Technical Requirements** (15%): Is it a clean 1:1 base texture without mask outlines, hardware depictions, or transparent areas?
5. **Composition Split** (10%): Is the front/back divider correctly aligned at the specified Y coordinate?

Provide a score from 0.0 to 1.0 and detailed feedback.

Return your response as JSON with the following structure:
{
  "score": 0.0-1.0,
  "feedback": "Detailed feedback explaining the score",
  "strengths": ["strength1", "strength2"],
  "weaknesses": ["weakness1", "weakness2"]
}`

const (
	maxScoringAttempts = 3
	scoringRetryDelay  = 2 * time.Second
)

// Verdict は採点モデルが返す評決のJSON形です。
type Verdict struct {
	Score      float64  `json:"score"`
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Evaluator は、候補プロンプトで実際に画像を生成し、第二のモデルに
// 採点させるフルループのスコアラーです。最適化スイープを止めないため、
// いかなる失敗もエラーとしては返さず (0.0, メッセージ) に落とします。
type Evaluator struct {
	generator *generate.Generator
	client    *genai.Client
	model     string
	limiter   *rate.Limiter
	tempDir   string
}

// NewEvaluator は Evaluator を初期化します。limiter は nil を許容します
// （その場合は流量制限なし）。
func NewEvaluator(gen *generate.Generator, client *genai.Client, model, tempDir string, limiter *rate.Limiter) (*Evaluator, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if tempDir == "" {
		tempDir = filepath.Join("assets", "output", "optimize_temp")
	}
	return &Evaluator{generator: gen, client: client, model: model, limiter: limiter, tempDir: tempDir}, nil
}

// GenerateAndEvaluate は候補プロンプトから画像を再生成し、レイアウト遵守
// 度合いを採点します。targetTexture が空でなければ比較対象として添付します。
// 戻り値は (スコア 0.0〜1.0, フィードバック)。失敗時は (0.0, 失敗理由)。
func (e *Evaluator) GenerateAndEvaluate(ctx context.Context, plan domain.AnalysisResult, refPaths []string, promptText, targetTexture string) (float64, string) {
	if err := e.wait(ctx); err != nil {
		return 0.0, fmt.Sprintf("Canceled: %v", err)
	}

	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return 0.0, fmt.Sprintf("Failed to prepare temp dir: %v", err)
	}
	outputPath := filepath.Join(e.tempDir, fmt.Sprintf("generated_%d_%05d.png", os.Getpid(), promptHash(promptText)))

	texture, err := e.generator.GenerateWithPrompt(ctx, promptText, refPaths, "", outputPath)
	if err != nil {
		return 0.0, fmt.Sprintf("Failed to generate image: %v", err)
	}

	return e.scoreImage(ctx, texture.Data, plan, targetTexture)
}

// scoreImage は生成画像（と任意の目標テクスチャ）を採点モデルへ送り、
// JSON評決をパースします。一時的な失敗は最大3回、試行回数に比例した
// 待ち時間で再試行します。
func (e *Evaluator) scoreImage(ctx context.Context, generated []byte, plan domain.AnalysisResult, targetTexture string) (float64, string) {
	parts := []*genai.Part{
		{Text: scoringRubric + "\n\n" + renderPlanForScoring(plan)},
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: generated}},
	}

	if targetTexture != "" {
		if data, err := os.ReadFile(targetTexture); err == nil {
			parts = append(parts,
				&genai.Part{Text: "Target texture for comparison (this is what we're trying to achieve):"},
				&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
			)
		} else {
			slog.Warn("目標テクスチャを読み込めなかったため比較なしで採点します", "path", targetTexture, "error", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxScoringAttempts; attempt++ {
		verdict, err := e.requestVerdict(ctx, parts)
		if err == nil {
			return clamp01(verdict.Score), verdict.Feedback
		}
		lastErr = err
		slog.Warn("採点リクエストに失敗しました", "attempt", attempt, "max", maxScoringAttempts, "error", err)
		if attempt < maxScoringAttempts {
			select {
			case <-ctx.Done():
				return 0.0, fmt.Sprintf("Canceled: %v", ctx.Err())
			case <-time.After(time.Duration(attempt) * scoringRetryDelay):
			}
		}
	}
	return 0.0, fmt.Sprintf("Error in scoring: %v", lastErr)
}

func (e *Evaluator) requestVerdict(ctx context.Context, parts []*genai.Part) (*Verdict, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := e.client.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("採点モデルの応答に候補がありません")
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	var verdict Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("評決JSONを解釈できません: %w", err)
	}
	if verdict.Feedback == "" {
		verdict.Feedback = "No feedback provided"
	}
	return &verdict, nil
}

func (e *Evaluator) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// renderPlanForScoring は採点モデルに渡すレイアウト情報を描画します。
func renderPlanForScoring(plan domain.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString("Layout Plan:\n")
	sb.WriteString(fmt.Sprintf("Front/Back Divider: y=%.1f%%\n", plan.FrontBackDividerY))
	for _, slot := range plan.LayoutSlots {
		sb.WriteString(fmt.Sprintf("- %s: position x=[%.1f, %.1f], y=[%.1f, %.1f], purpose: %s, avoid: %s\n",
			slot.SlotName,
			slot.Position.X[0], slot.Position.X[1],
			slot.Position.Y[0], slot.Position.Y[1],
			slot.Purpose, slot.Avoid))
	}
	return sb.String()
}

// promptHash は一時ファイル名用の安定ハッシュです。
func promptHash(text string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	return h.Sum32() % 100000
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
