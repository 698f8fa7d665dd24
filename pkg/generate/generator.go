package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"

	"github.com/shouni/go-itasha-kit/pkg/domain"
	"github.com/shouni/go-itasha-kit/pkg/prompt"
)

// ErrNoImagePayload は、モデル応答に画像ペイロードが含まれていなかった
// 場合のエラーです（モデルが拒否した・テキストのみ返した・フィルタされた等）。
var ErrNoImagePayload = errors.New("モデル応答に画像データがありません")

const (
	// aspectRatio は生成テクスチャの固定アスペクト比です。
	aspectRatio = "1:1"
	// maxCustomPromptAttempts は最適化パス専用の再試行上限です。
	// 主パイプラインの Generate は1回しか試みません。
	maxCustomPromptAttempts = 3
	// retryBaseDelay は再試行間隔の基準です。待ち時間は試行回数に比例します。
	retryBaseDelay = 2 * time.Second
)

// Generator は、組み立て済みプロンプトを画像合成モデルへ送り、
// 得られたテクスチャを書き出します。
type Generator struct {
	client  *genai.Client
	model   string
	writer  remoteio.OutputWriter
	builder *prompt.Builder
}

// NewGenerator は Generator を初期化します。
func NewGenerator(client *genai.Client, model string, writer remoteio.OutputWriter, builder *prompt.Builder) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("builder is required")
	}
	return &Generator{client: client, model: model, writer: writer, builder: builder}, nil
}

// Generate は1回だけ画像合成を要求し、最初のインライン画像を outputPath へ
// 書き出します。応答に画像が無い場合は ErrNoImagePayload を返し、再試行は
// しません（主パイプラインの契約）。成功時はちょうど1ファイルを書き、
// 失敗時は何も書きません。
func (g *Generator) Generate(ctx context.Context, segments []prompt.Segment, outputPath string) (*domain.GeneratedTexture, error) {
	texture, err := g.request(ctx, segments)
	if err != nil {
		return nil, err
	}
	return g.write(ctx, texture, outputPath)
}

// GenerateWithPrompt は最適化パス用の生成です。候補プロンプト本文を
// 空行区切りでテキストセグメント列に分解し、標準テンプレートと同じ
// 画像アセット（マスク・few-shot・参照画像）を後置して送信します。
// こちらは最大3回、試行回数に比例した待ち時間を挟んで再試行します。
func (g *Generator) GenerateWithPrompt(ctx context.Context, promptText string, refPaths []string, maskPath, outputPath string) (*domain.GeneratedTexture, error) {
	segments := prompt.SplitPromptText(promptText)
	segments = append(segments, g.builder.AssetSegments(ctx, refPaths, maskPath)...)

	var lastErr error
	for attempt := 1; attempt <= maxCustomPromptAttempts; attempt++ {
		texture, err := g.request(ctx, segments)
		if err == nil {
			return g.write(ctx, texture, outputPath)
		}
		lastErr = err
		slog.Warn("候補プロンプトでの生成に失敗しました", "attempt", attempt, "max", maxCustomPromptAttempts, "error", err)
		if attempt < maxCustomPromptAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBaseDelay):
			}
		}
	}
	return nil, lastErr
}

// request は1回の生成リクエストを実行し、最初のインライン画像を返します。
func (g *Generator) request(ctx context.Context, segments []prompt.Segment) (*domain.GeneratedTexture, error) {
	parts := toParts(segments)
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &genai.ImageConfig{AspectRatio: aspectRatio},
		})
	if err != nil {
		return nil, fmt.Errorf("画像生成リクエストに失敗しました: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoImagePayload
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &domain.GeneratedTexture{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			}, nil
		}
	}
	return nil, ErrNoImagePayload
}

// write はテクスチャを出力先へ書き出し、パスを埋めて返します。
func (g *Generator) write(ctx context.Context, texture *domain.GeneratedTexture, outputPath string) (*domain.GeneratedTexture, error) {
	mimeType := texture.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	if err := g.writer.Write(ctx, outputPath, bytes.NewReader(texture.Data), mimeType); err != nil {
		return nil, fmt.Errorf("テクスチャの書き出しに失敗しました '%s': %w", outputPath, err)
	}
	texture.Path = outputPath
	slog.Info("テクスチャを書き出しました", "path", outputPath, "bytes", len(texture.Data))
	return texture, nil
}

// toParts はセグメント列を genai のパート列へ変換します。
func toParts(segments []prompt.Segment) []*genai.Part {
	parts := make([]*genai.Part, 0, len(segments))
	for _, s := range segments {
		if s.IsImage() {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: s.MIMEType, Data: s.Image}})
		} else if s.Text != "" {
			parts = append(parts, &genai.Part{Text: s.Text})
		}
	}
	return parts
}
