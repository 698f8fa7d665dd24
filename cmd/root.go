package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shouni/go-itasha-kit/internal/config"
)

// opts は各サブコマンドで共有する実行時パラメータなのだ。
var opts config.GenerateOptions

// rootCmd はアプリケーションのトップレベルコマンドなのだ。
var rootCmd = &cobra.Command{
	Use:   "itasha",
	Short: "Nintendo Switch Lite 用の痛車スキンテクスチャを生成するのだ。",
	Long: `参照画像を視覚モデルで解析してレイアウトプランを立て、
画像生成モデルで 1:1 のベーステクスチャを合成するツールなのだ。
プロンプト最適化スイープとデータセット作成ツールも入っているのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags() {
	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputPath, "output", "o", config.DefaultOutputPath, "ベーステクスチャの保存パス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.MaskPath, "mask", "", "カットマスク画像のパス（未指定ならアセット既定を使うのだ）。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.VisionModel, "model", "", "解析に使う Gemini モデル名なのだ（未指定なら既定のフォールバック列）。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "画像生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// .env があれば先に読み込むのだ（無くてもエラーにはしない）
	_ = godotenv.Load()

	// APIキーかサービスアカウントのどちらかは必須なのだ！
	if os.Getenv("GOOGLE_API_KEY") == "" {
		accountFile := os.Getenv("GOOGLE_ACCOUNT_FILE")
		if accountFile == "" {
			accountFile = config.DefaultAccountFile
		}
		if _, err := os.Stat(accountFile); err != nil {
			return fmt.Errorf("エラー: GOOGLE_API_KEY か %s のどちらかが必要なのだ", accountFile)
		}
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags()
	rootCmd.AddCommand(generateCmd, optimizeCmd, datasetCmd, cropsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
