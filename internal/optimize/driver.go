package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/prompt"
	"github.com/shouni/go-itasha-kit/pkg/score"
)

// 既定の成果物パスです。--dataset などのフラグで上書きできます。
const (
	DefaultDatasetPath    = "datasets/gepa_dataset.json"
	DefaultOutputPath     = "datasets/gepa_optimized_prompt.txt"
	DefaultComparisonPath = "datasets/gepa_comparison.txt"
	DefaultMetricBudget   = 30
	DefaultMaxExamples    = 6
	DefaultSampleSeed     = 42
)

// Options は最適化スイープの実行時パラメータです。
type Options struct {
	DatasetPath    string
	OutputPath     string
	ComparisonPath string
	MaxExamples    int
	AugmentCount   int
	Seed           int64
}

// normalized は未指定のフィールドを既定値で埋めた複製を返します。
func (o Options) normalized() Options {
	if o.DatasetPath == "" {
		o.DatasetPath = DefaultDatasetPath
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath
	}
	if o.ComparisonPath == "" {
		o.ComparisonPath = DefaultComparisonPath
	}
	if o.MaxExamples <= 0 {
		o.MaxExamples = DefaultMaxExamples
	}
	if o.Seed == 0 {
		o.Seed = DefaultSampleSeed
	}
	return o
}

// Driver は最適化スイープ全体を駆動します。依存はすべて構築時に注入され、
// 実行中に遅延初期化されるコンポーネントはありません。
type Driver struct {
	reader   remoteio.InputReader
	writer   remoteio.OutputWriter
	builder  *prompt.Builder
	searcher *Searcher
	opts     Options
}

// NewDriver は Driver を初期化します。
func NewDriver(reader remoteio.InputReader, writer remoteio.OutputWriter, builder *prompt.Builder, searcher *Searcher, opts Options) (*Driver, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("builder is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	return &Driver{reader: reader, writer: writer, builder: builder, searcher: searcher, opts: opts.normalized()}, nil
}

// Run はスイープを最後まで実行し、最適化済みプロンプトと前後比較を
// 書き出します。
func (d *Driver) Run(ctx context.Context) error {
	examples, err := LoadDataset(ctx, d.reader, d.opts.DatasetPath)
	if err != nil {
		return err
	}
	slog.Info("データセットを読み込みました", "path", d.opts.DatasetPath, "examples", len(examples))

	if d.opts.AugmentCount > 0 {
		rng := rand.New(rand.NewSource(d.opts.Seed))
		synthetic := Augment(examples, d.opts.AugmentCount, rng)
		slog.Info("合成例を追加しました", "requested", d.opts.AugmentCount, "produced", len(synthetic))
		examples = append(examples, synthetic...)
	}

	trainset := SampleExamples(examples, d.opts.MaxExamples, d.opts.Seed)
	// データセットの参照パスは assets 配下からの相対で記録されているので、
	// プロンプト組み立てと再生成の前にここで一度だけ解決します。
	for i := range trainset {
		trainset[i].References = ResolveReferences(trainset[i].References)
	}
	slog.Info("評価セットを確定しました", "size", len(trainset))

	compose := func(ctx context.Context, ex domain.Example, instructions string) string {
		return prompt.JoinText(d.builder.BuildWithInstructions(ctx, ex.Analysis, ex.References, "", instructions))
	}

	// 初期候補は標準テンプレートの最終手順ブロックです。
	sample := trainset[0]
	initialPrompt := compose(ctx, sample, "")
	initialScore := score.Prompt(initialPrompt)
	slog.Info("初期プロンプトのキーワードスコア", "score", initialScore)

	best, err := d.searcher.Optimize(ctx, compose, trainset, prompt.DefaultFinalInstructions)
	if err != nil {
		return fmt.Errorf("最適化の実行に失敗しました: %w", err)
	}

	optimizedPrompt := compose(ctx, sample, best.Instructions)
	optimizedScore := score.Prompt(optimizedPrompt)
	slog.Info("最適化が完了しました",
		"initial_score", initialScore,
		"optimized_score", optimizedScore,
		"improvement", optimizedScore-initialScore)

	if err := d.writer.Write(ctx, d.opts.OutputPath, strings.NewReader(optimizedPrompt), "text/plain"); err != nil {
		return fmt.Errorf("最適化済みプロンプトの保存に失敗しました '%s': %w", d.opts.OutputPath, err)
	}
	slog.Info("最適化済みプロンプトを保存しました", "path", d.opts.OutputPath)

	comparison := fmt.Sprintf(
		"=== INITIAL PROMPT (score: %.3f) ===\n\n%s\n\n=== OPTIMIZED PROMPT (score: %.3f) ===\n\n%s\n",
		initialScore, initialPrompt, optimizedScore, optimizedPrompt)
	if err := d.writer.Write(ctx, d.opts.ComparisonPath, strings.NewReader(comparison), "text/plain"); err != nil {
		return fmt.Errorf("比較ファイルの保存に失敗しました '%s': %w", d.opts.ComparisonPath, err)
	}
	slog.Info("前後比較を保存しました", "path", d.opts.ComparisonPath)
	return nil
}
