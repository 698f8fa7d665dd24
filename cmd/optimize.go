package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-itasha-kit/internal/config"
	"github.com/shouni/go-itasha-kit/internal/optimize"
	"github.com/shouni/go-itasha-kit/internal/pipeline"
)

// optimizeCmd は、プロンプト最適化スイープを実行するのだ。
// メトリクス呼び出し1回ごとに実画像を1枚生成するから、予算は控えめになのだ。
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "プロンプトの最終手順ブロックを最適化するのだ。",
	Long: `学習データセットの各例に対して候補プロンプトで画像を実生成し、
採点モデルの評価を頼りに最終手順ブロックを書き換えていくのだ。
結果は最適化済みプロンプトと前後比較の2ファイルに保存されるのだよ。`,
	RunE: optimizeCommand,
}

func init() {
	optimizeCmd.Flags().StringVar(&opts.DatasetPath, "dataset", optimize.DefaultDatasetPath, "学習データセットのパスなのだ。")
	optimizeCmd.Flags().IntVar(&opts.MetricBudget, "budget", optimize.DefaultMetricBudget, "メトリクス呼び出し（=実画像生成）の上限なのだ。")
	optimizeCmd.Flags().IntVar(&opts.MaxExamples, "max-examples", optimize.DefaultMaxExamples, "評価セットの最大件数なのだ。")
	optimizeCmd.Flags().IntVar(&opts.AugmentCount, "augment", 0, "追加する合成例の数なのだ（0で無効）。")
}

func optimizeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("プロンプト最適化スイープを開始するのだ！",
		"dataset", opts.DatasetPath,
		"budget", opts.MetricBudget,
		"max_examples", opts.MaxExamples)

	if err := pipeline.ExecuteOptimize(ctx, cfg); err != nil {
		return fmt.Errorf("最適化の実行に失敗したのだ: %w", err)
	}
	slog.Info("最適化スイープが完了したのだ！")
	return nil
}
