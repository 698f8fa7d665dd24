package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-itasha-kit/internal/config"
	"github.com/shouni/go-itasha-kit/internal/pipeline"
)

// generateCmd は、解析と画像生成の主工程を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate <image>...",
	Short: "参照画像からスキンテクスチャを生成するのだ。",
	Long: `参照画像を解析してレイアウトプランを立て、1:1 のベーステクスチャを
生成するのだ。--preview-output を指定すると、マスク適用プレビューも
書き出すのだよ。`,
	Args: cobra.MinimumNArgs(1),
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringVar(&opts.PreviewOutput, "preview-output", "", "マスク適用プレビューの保存パス（任意）なのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts.ImagePaths = args

	// 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("痛車テクスチャ生成パイプラインを起動するのだ！",
		"images", len(opts.ImagePaths),
		"image_model", cfg.ImageModel,
		"output", opts.OutputPath)

	if err := pipeline.ExecuteGenerate(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}
