package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-itasha-kit/internal/config"
	"github.com/shouni/go-itasha-kit/internal/optimize"
	"github.com/shouni/go-itasha-kit/internal/pipeline"
)

// datasetCmd は、クロップマニフェストを学習データセットへ変換するのだ。
var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "クロップマニフェストから学習データセットを組み立てるのだ。",
	Long: `crops コマンドが出力したマニフェストを読み込み、定型の3スロット
（前面左・前面右・背面中央）を当てはめた学習データセットを書き出すのだ。`,
	RunE: datasetCommand,
}

func init() {
	datasetCmd.Flags().StringVar(&opts.ManifestPath, "manifest", "datasets/dspy_crops.json", "クロップマニフェストのパスなのだ。")
	datasetCmd.Flags().StringVar(&opts.DatasetOut, "out", optimize.DefaultDatasetPath, "データセットの出力先なのだ。")
}

func datasetCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecuteDataset(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("データセットの組み立てに失敗したのだ: %w", err)
	}
	return nil
}
