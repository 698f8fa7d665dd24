package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-itasha-kit/internal/config"
	"github.com/shouni/go-itasha-kit/internal/pipeline"
)

// cropsCmd は、完成テクスチャから参照クロップを切り出すのだ。
var cropsCmd = &cobra.Command{
	Use:   "crops <texture_glob>",
	Short: "完成テクスチャから参照クロップを切り出すのだ。",
	Long: `完成テクスチャ群に発見的な3矩形（左上・右上・下段の帯）を当てて
参照クロップを切り出し、データセット作成用のマニフェストを書き出すのだ。`,
	Args: cobra.MaximumNArgs(1),
	RunE: cropsCommand,
}

func init() {
	cropsCmd.Flags().StringVar(&opts.CropsDir, "output-dir", "assets/dspy_inputs", "クロップ画像の保存先ディレクトリなのだ。")
	cropsCmd.Flags().StringVar(&opts.ManifestPath, "manifest", "datasets/dspy_crops.json", "マニフェストの出力先なのだ。")
}

func cropsCommand(cmd *cobra.Command, args []string) error {
	opts.TextureGlob = "ref/*-b.JPG"
	if len(args) > 0 {
		opts.TextureGlob = args[0]
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecuteCrops(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("クロップ抽出に失敗したのだ: %w", err)
	}
	return nil
}
