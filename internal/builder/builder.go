package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shouni/go-itasha-kit/internal/config"
	"github.com/shouni/go-itasha-kit/internal/optimize"
	"github.com/shouni/go-itasha-kit/pkg/generate"
	"github.com/shouni/go-itasha-kit/pkg/score"
	"github.com/shouni/go-itasha-kit/pkg/vision"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// BuildVisionService は参照画像の解析を担当するサービスを構築します。
func BuildVisionService(appCtx *AppContext) (*vision.Service, error) {
	models := appCtx.Config.VisionModels
	if appCtx.Options.VisionModel != "" {
		models = append([]string{appCtx.Options.VisionModel}, models...)
	}
	svc, err := vision.NewService(appCtx.genaiClient, appCtx.Loader, models)
	if err != nil {
		return nil, fmt.Errorf("視覚サービスの初期化に失敗したのだ: %w", err)
	}
	return svc, nil
}

// BuildGenerator はテクスチャ合成を担当するジェネレーターを構築します。
func BuildGenerator(appCtx *AppContext) (*generate.Generator, error) {
	model := appCtx.Config.ImageModel
	if appCtx.Options.ImageModel != "" {
		model = appCtx.Options.ImageModel
	}
	gen, err := generate.NewGenerator(appCtx.genaiClient, model, appCtx.Writer, appCtx.Builder)
	if err != nil {
		return nil, fmt.Errorf("ジェネレーターの初期化に失敗したのだ: %w", err)
	}
	return gen, nil
}

// BuildEvaluator は、採点専用の Vertex AI クライアントを立てて
// 画像生成込みの評価器を構築します。採点APIはクォータが厳しいので
// 流量制限つきです。
func BuildEvaluator(ctx context.Context, appCtx *AppContext) (*score.Evaluator, error) {
	gen, err := BuildGenerator(appCtx)
	if err != nil {
		return nil, err
	}
	scoringClient, err := InitializeScoringClient(ctx, appCtx.Config.AccountFile)
	if err != nil {
		return nil, err
	}
	limiter := rate.NewLimiter(rate.Every(config.DefaultScoringInterval), 1)
	tempDir := filepath.Join(filepath.Dir(appCtx.Options.OutputPath), "gepa_temp")
	evaluator, err := score.NewEvaluator(gen, scoringClient, appCtx.Config.ScoringModel, tempDir, limiter)
	if err != nil {
		return nil, fmt.Errorf("評価器の初期化に失敗したのだ: %w", err)
	}
	return evaluator, nil
}

// BuildOptimizeDriver は最適化スイープ一式（評価器・メトリクス・探索器・
// ドライバ）を結線します。
func BuildOptimizeDriver(ctx context.Context, appCtx *AppContext) (*optimize.Driver, error) {
	evaluator, err := BuildEvaluator(ctx, appCtx)
	if err != nil {
		return nil, err
	}

	budget := appCtx.Options.MetricBudget
	if budget <= 0 {
		budget = optimize.DefaultMetricBudget
	}
	searcher, err := optimize.NewSearcher(appCtx.genaiClient, appCtx.Config.ReflectionModel, optimize.NewMetric(evaluator), budget)
	if err != nil {
		return nil, fmt.Errorf("探索器の初期化に失敗したのだ: %w", err)
	}

	opts := optimize.Options{
		DatasetPath:  appCtx.Options.DatasetPath,
		MaxExamples:  appCtx.Options.MaxExamples,
		AugmentCount: appCtx.Options.AugmentCount,
	}
	driver, err := optimize.NewDriver(appCtx.Reader, appCtx.Writer, appCtx.Builder, searcher, opts)
	if err != nil {
		return nil, fmt.Errorf("最適化ドライバの初期化に失敗したのだ: %w", err)
	}
	return driver, nil
}

// InitializeGenAIClient は Gemini API クライアントを初期化します。
// APIキーがあればそれを使い、無ければサービスアカウント経由の
// Vertex AI にフォールバックします。
func InitializeGenAIClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	if cfg.GoogleAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GoogleAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("Geminiクライアントの初期化に失敗したのだ: %w", err)
		}
		return client, nil
	}
	return InitializeScoringClient(ctx, cfg.AccountFile)
}

// InitializeScoringClient は、サービスアカウントファイルから project_id を
// 読み取って Vertex AI バックエンドのクライアントを初期化します。
func InitializeScoringClient(ctx context.Context, accountFile string) (*genai.Client, error) {
	projectID, err := readProjectID(accountFile)
	if err != nil {
		return nil, err
	}
	// genai SDK は GOOGLE_APPLICATION_CREDENTIALS から認証情報を拾う
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", accountFile)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  projectID,
		Location: "global",
	})
	if err != nil {
		return nil, fmt.Errorf("Vertex AI クライアントの初期化に失敗したのだ: %w", err)
	}
	return client, nil
}

// readProjectID はサービスアカウントJSONから project_id を取り出します。
func readProjectID(accountFile string) (string, error) {
	data, err := os.ReadFile(accountFile)
	if err != nil {
		return "", fmt.Errorf("サービスアカウントファイル '%s' を読み込めないのだ: %w", accountFile, err)
	}
	var info struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("サービスアカウントファイル '%s' の解釈に失敗したのだ: %w", accountFile, err)
	}
	if info.ProjectID == "" {
		return "", fmt.Errorf("サービスアカウントファイル '%s' に project_id がないのだ", accountFile)
	}
	return info.ProjectID, nil
}
