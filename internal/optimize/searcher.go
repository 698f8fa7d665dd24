package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/shouni/go-itasha-kit/pkg/domain"
)

// reflectionInstruction は、提案モデルへの書き換え依頼の定型文です。
const reflectionInstruction = `You are optimizing the final instruction block of an image-generation prompt for a handheld console vinyl-skin texture.

Current instruction block:
---
%s
---
Score achieved: %.3f
Evaluator feedback: %s

Rewrite the instruction block to address the weaknesses in the feedback while keeping the strengths. Keep it concise and imperative. Preserve all hard constraints that are already present (layout slot coordinates, screen avoidance, 1:1 aspect, no hardware depiction, mask usage).

Return ONLY the rewritten instruction block, with no preamble and no commentary.`

// ComposeFunc は、候補の手順ブロックを1つの例に対する完全なプロンプト
// 本文へ展開します。
type ComposeFunc func(ctx context.Context, ex domain.Example, instructions string) string

// Candidate は探索中の候補です。手順ブロック本文と、直近の評価結果を
// 持ちます。
type Candidate struct {
	Instructions string
	Score        float64
	Feedback     string
}

// Searcher は、反射的な提案・採択ループで手順ブロックを改善します。
// 毎周回、現在の最良候補とその評価フィードバックを提案モデルに渡して
// 書き換え案を得て、メトリクスで採点し、最良を上回った案だけを採択
// します。予算はメトリクス呼び出し回数で管理します（1回 = 実生成1回）。
type Searcher struct {
	client         *genai.Client
	model          string
	metric         Metric
	maxMetricCalls int
}

// NewSearcher は Searcher を初期化します。
func NewSearcher(client *genai.Client, model string, metric Metric, maxMetricCalls int) (*Searcher, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if metric == nil {
		return nil, fmt.Errorf("metric is required")
	}
	if maxMetricCalls <= 0 {
		return nil, fmt.Errorf("maxMetricCalls must be positive, got %d", maxMetricCalls)
	}
	return &Searcher{client: client, model: model, metric: metric, maxMetricCalls: maxMetricCalls}, nil
}

// Optimize は seedInstructions から探索を開始し、予算を使い切るか提案が
// 得られなくなるまで改善を続けます。常にそれまでの最良候補を返します。
func (s *Searcher) Optimize(ctx context.Context, compose ComposeFunc, trainset []domain.Example, seedInstructions string) (Candidate, error) {
	if len(trainset) == 0 {
		return Candidate{}, fmt.Errorf("学習例が空のため最適化できません")
	}

	calls := 0
	nextExample := 0
	// evaluate は候補を学習例に対して順繰りに採点し、残予算の範囲で
	// 平均スコアを返します。
	evaluate := func(instructions string) (float64, string) {
		evals := min(2, len(trainset))
		var total float64
		var lastFeedback string
		n := 0
		for i := 0; i < evals && calls < s.maxMetricCalls; i++ {
			ex := trainset[nextExample%len(trainset)]
			nextExample++
			calls++
			sc, fb := s.metric(ctx, ex, compose(ctx, ex, instructions))
			total += sc
			lastFeedback = fb
			n++
		}
		if n == 0 {
			return 0.0, "metric budget exhausted"
		}
		return total / float64(n), lastFeedback
	}

	best := Candidate{Instructions: seedInstructions}
	best.Score, best.Feedback = evaluate(seedInstructions)
	slog.Info("初期候補を評価しました", "score", best.Score, "budget_used", calls, "budget", s.maxMetricCalls)

	for calls < s.maxMetricCalls {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		proposal, err := s.propose(ctx, best)
		if err != nil {
			slog.Warn("提案モデルの呼び出しに失敗したため探索を打ち切ります", "error", err)
			break
		}
		if strings.TrimSpace(proposal) == "" || proposal == best.Instructions {
			slog.Info("新しい提案が得られなかったため探索を打ち切ります")
			break
		}

		sc, fb := evaluate(proposal)
		slog.Info("候補を評価しました", "score", sc, "best", best.Score, "budget_used", calls, "budget", s.maxMetricCalls)
		if sc >= best.Score {
			best = Candidate{Instructions: proposal, Score: sc, Feedback: fb}
		}
	}
	return best, nil
}

// propose は現在の最良候補とフィードバックを基に、書き換え案を1つ得ます。
func (s *Searcher) propose(ctx context.Context, current Candidate) (string, error) {
	text := fmt.Sprintf(reflectionInstruction, current.Instructions, current.Score, current.Feedback)
	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}}, nil)
	if err != nil {
		return "", fmt.Errorf("提案リクエストに失敗しました: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("提案モデルの応答に候補がありません")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return strings.TrimSpace(part.Text), nil
		}
	}
	return "", fmt.Errorf("提案モデルの応答にテキストがありません")
}
