package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-itasha-kit/internal/builder"
	"github.com/shouni/go-itasha-kit/internal/config"
	"github.com/shouni/go-itasha-kit/internal/dataset"
	"github.com/shouni/go-itasha-kit/pkg/asset"
	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/imageio"
	"github.com/shouni/go-itasha-kit/pkg/overlay"
	"github.com/shouni/go-itasha-kit/pkg/prompt"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// ExecuteGenerate は、参照画像の解析からテクスチャ生成までの主工程を
// 実行するのだ。入力不備やサービス初期化の失敗はログに残して正常終了し、
// 部分的な成果物は残さないのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	// 1. 入力検証: 見つからないファイルは警告してスキップするのだ
	var validPaths []string
	for _, path := range cfg.Options.ImagePaths {
		if isRemoteRef(path) {
			validPaths = append(validPaths, path)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			slog.Warn("入力ファイルが見つからないためスキップするのだ", "path", path)
			continue
		}
		validPaths = append(validPaths, path)
	}
	if len(validPaths) == 0 {
		slog.Error("有効な入力画像が1枚もないのだ")
		return nil
	}

	// 2. サービス初期化
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		slog.Error("サービスの初期化に失敗したのだ。.env とAPIキーを確認してほしいのだ", "error", err)
		return nil
	}

	visionSvc, err := builder.BuildVisionService(appCtx)
	if err != nil {
		slog.Error("視覚サービスを構築できなかったのだ", "error", err)
		return nil
	}
	gen, err := builder.BuildGenerator(appCtx)
	if err != nil {
		slog.Error("ジェネレーターを構築できなかったのだ", "error", err)
		return nil
	}

	// 3. Step 1: 解析
	maskPath := cfg.Options.MaskPath
	if maskPath == "" {
		maskPath = appCtx.Assets.MaskPath()
	}
	slog.Info("Step 1: 参照画像を解析するのだ", "images", len(validPaths))
	plan, loadedPaths, err := visionSvc.Analyze(ctx, validPaths, maskPath)
	if err != nil {
		slog.Error("解析に失敗したのだ", "error", err)
		return nil
	}
	logAnalysis(plan)

	// 4. Step 2: 生成
	slog.Info("Step 2: テクスチャを生成するのだ", "output", cfg.Options.OutputPath)
	segments := appCtx.Builder.Build(ctx, plan, loadedPaths, maskPath)
	texture, err := gen.Generate(ctx, segments, cfg.Options.OutputPath)
	if err != nil {
		slog.Error("テクスチャ生成に失敗したのだ", "error", err)
		return nil
	}
	slog.Info("ベーステクスチャを保存したのだ", "path", texture.Path)

	// 5. 任意のプレビュー: マスク適用イメージを書き出すのだ
	if cfg.Options.PreviewOutput != "" {
		slog.Info("プレビューを作成するのだ", "path", cfg.Options.PreviewOutput)
		overlay.Apply(texture.Path, cfg.Options.PreviewOutput, maskPath)
	}
	return nil
}

// ExecuteOptimize はプロンプト最適化スイープを実行するのだ。
// こちらは失敗をエラーとして返すのだ（スイープは人間が回す開発ツールだから）。
func ExecuteOptimize(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("サービスの初期化に失敗したのだ: %w", err)
	}
	driver, err := builder.BuildOptimizeDriver(ctx, appCtx)
	if err != nil {
		return err
	}
	return driver.Run(ctx)
}

// ExecuteDataset はクロップマニフェストから学習データセットを組み立てるのだ。
func ExecuteDataset(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("サービスの初期化に失敗したのだ: %w", err)
	}
	return dataset.BuildFromManifest(ctx, appCtx.Reader, appCtx.Writer, cfg.Options.ManifestPath, cfg.Options.DatasetOut)
}

// ExecuteCrops は完成テクスチャから参照クロップを切り出すのだ。
func ExecuteCrops(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("サービスの初期化に失敗したのだ: %w", err)
	}
	return dataset.ExtractCrops(ctx, appCtx.Writer, cfg.Options.TextureGlob, cfg.Options.CropsDir, cfg.Options.ManifestPath)
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
// ライフサイクル管理用の context と設定オブジェクトを受け取るのだ。
// 初期化中にエラーが発生した場合は、AppContext のポインタとエラーを返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	genaiClient, err := builder.InitializeGenAIClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	gcsFactory, err := gcsfactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.InputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.OutputWriter()
	if err != nil {
		return nil, err
	}

	assets := asset.NewLibrary(cfg.AssetsDir)
	loader := imageio.NewLoader(reader, httpClient, imageio.NewMemoryCache())
	promptBuilder := prompt.NewBuilder(assets, loader)

	appCtx := builder.NewAppContext(cfg, httpClient, genaiClient, reader, writer, assets, loader, promptBuilder)
	return &appCtx, nil
}

// isRemoteRef は gs:// または http(s):// 参照かどうかを返すのだ。
// リモート参照の存在確認はローダーに任せるのだ。
func isRemoteRef(path string) bool {
	return strings.HasPrefix(path, "gs://") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://")
}

// logAnalysis はデザインプランを整形JSONでログに残すのだ。
func logAnalysis(plan domain.AnalysisResult) {
	pretty, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		slog.Warn("デザインプランの整形に失敗したのだ", "error", err)
		return
	}
	fmt.Println("Analysis Result (JSON Structure):")
	fmt.Println(string(pretty))
}
