package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultVisionModel     = "gemini-2.5-flash"
	FallbackVisionModel    = "gemini-2.0-flash" // 一次モデルが落ちたときの控えなのだ
	DefaultImageModel      = "gemini-3-pro-image-preview"
	DefaultScoringModel    = "gemini-3-pro-preview"
	DefaultReflectionModel = "gemini-2.0-flash-exp"
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultScoringInterval = 6 * time.Second // 採点APIの流量制限（Vertex側のクォータ保護）なのだ
	DefaultAssetsDir       = "assets"
	DefaultOutputPath      = "assets/output/result.png"
	DefaultAccountFile     = "account.json" // Vertex AI 用サービスアカウントの既定パスなのだ
)

// Config はアプリケーション全体の環境設定（APIキーやモデル名）を保持する構造体なのだ。
type Config struct {
	GoogleAPIKey    string
	AccountFile     string
	VisionModels    []string // 先頭から順に試すフォールバック列なのだ
	ImageModel      string
	ScoringModel    string
	ReflectionModel string
	AssetsDir       string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GoogleAPIKey:    envutil.GetEnv("GOOGLE_API_KEY", ""),
		AccountFile:     envutil.GetEnv("GOOGLE_ACCOUNT_FILE", DefaultAccountFile),
		ImageModel:      envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		ScoringModel:    envutil.GetEnv("SCORING_GEMINI_MODEL", DefaultScoringModel),
		ReflectionModel: envutil.GetEnv("REFLECTION_GEMINI_MODEL", DefaultReflectionModel),
		AssetsDir:       envutil.GetEnv("ITASHA_ASSETS_DIR", DefaultAssetsDir),
		VisionModels: []string{
			envutil.GetEnv("GEMINI_MODEL", DefaultVisionModel),
			FallbackVisionModel,
		},
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// 生成パイプライン関連
	ImagePaths    []string // 位置引数: 参照画像のパス列
	OutputPath    string   // --output
	PreviewOutput string   // --preview-output: マスク適用プレビューの保存先（任意）
	MaskPath      string   // --mask: 明示指定のマスク（未指定ならアセット既定を使う）

	// AIモデル設定
	VisionModel string // --model
	ImageModel  string // --image-model

	// 最適化スイープ関連
	DatasetPath  string // --dataset
	MetricBudget int    // --budget: メトリクス呼び出し（=実画像生成）の上限
	MaxExamples  int    // --max-examples
	AugmentCount int    // --augment: 合成例の追加数

	// データセットツール関連
	ManifestPath string // --manifest
	DatasetOut   string // --out
	CropsDir     string // --output-dir
	TextureGlob  string // 位置引数: クロップ対象テクスチャのグロブ

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
}
