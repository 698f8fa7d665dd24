package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-itasha-kit/pkg/asset"
)

// cropBox は元テクスチャに対する相対座標（0.0〜1.0）の切り出し矩形です。
type cropBox struct {
	x0, y0, x1, y1 float64
}

// defaultCropBoxes は定型スロットに対応する発見的な切り出し位置です。
// 左ヒーロー・右ヒーロー・下段モチーフを拾う想定です。
var defaultCropBoxes = []cropBox{
	{0.00, 0.00, 0.45, 0.55}, // 左上の象限
	{0.55, 0.00, 1.00, 0.55}, // 右上の象限
	{0.15, 0.55, 0.85, 1.00}, // 下段中央の帯
}

// cropWorkers は同時に処理するテクスチャ数の上限です。
const cropWorkers = 4

// ExtractCrops は、完成テクスチャ群から参照クロップを切り出して保存し、
// マニフェストJSONを書き出します。テクスチャ単位で並列処理しますが、
// マニフェストの並びはグロブのソート順で安定しています。
func ExtractCrops(ctx context.Context, writer remoteio.OutputWriter, textureGlob, outputDir, manifestPath string) error {
	paths, err := filepath.Glob(textureGlob)
	if err != nil {
		return fmt.Errorf("グロブ '%s' が不正です: %w", textureGlob, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("グロブ '%s' に一致するテクスチャがありません", textureGlob)
	}
	sort.Strings(paths)

	if !strings.HasPrefix(outputDir, "gs://") {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("出力ディレクトリ '%s' を作成できません: %w", outputDir, err)
		}
	}

	// 各ゴルーチンは自分のインデックスにだけ書くので排他は不要です。
	entries := make([]manifestEntry, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cropWorkers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			crops, err := extractTextureCrops(gctx, writer, path, outputDir)
			if err != nil {
				return err
			}
			entries[i] = manifestEntry{Texture: path, Crops: crops}
			slog.Info("クロップを抽出しました", "texture", path, "crops", len(crops))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("マニフェストのエンコードに失敗しました: %w", err)
	}
	if err := writer.Write(ctx, manifestPath, bytes.NewReader(out), "application/json"); err != nil {
		return fmt.Errorf("マニフェストの保存に失敗しました '%s': %w", manifestPath, err)
	}
	slog.Info("クロップマニフェストを書き出しました", "path", manifestPath, "textures", len(entries))
	return nil
}

// extractTextureCrops は1枚のテクスチャから定型の3クロップを切り出します。
func extractTextureCrops(ctx context.Context, writer remoteio.OutputWriter, texturePath, outputDir string) ([]cropEntry, error) {
	data, err := os.ReadFile(texturePath)
	if err != nil {
		return nil, fmt.Errorf("テクスチャ '%s' を読み込めません: %w", texturePath, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("テクスチャ '%s' をデコードできません: %w", texturePath, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	stem := strings.TrimSuffix(filepath.Base(texturePath), filepath.Ext(texturePath))

	crops := make([]cropEntry, 0, len(defaultCropBoxes))
	for idx, box := range defaultCropBoxes {
		rect := image.Rect(
			bounds.Min.X+int(box.x0*float64(w)),
			bounds.Min.Y+int(box.y0*float64(h)),
			bounds.Min.X+int(box.x1*float64(w)),
			bounds.Min.Y+int(box.y1*float64(h)),
		)
		crop := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)

		outPath, err := asset.ResolveOutputPath(outputDir, fmt.Sprintf("%s_slot%d.png", stem, idx))
		if err != nil {
			return nil, fmt.Errorf("クロップの出力パスを解決できません: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, crop); err != nil {
			return nil, fmt.Errorf("クロップのエンコードに失敗しました '%s': %w", outPath, err)
		}
		if err := writer.Write(ctx, outPath, bytes.NewReader(buf.Bytes()), "image/png"); err != nil {
			return nil, fmt.Errorf("クロップの保存に失敗しました '%s': %w", outPath, err)
		}

		crops = append(crops, cropEntry{
			Slot: idx,
			Box:  [4]int{rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y},
			Path: manifestRelPath(outputDir, outPath),
		})
	}
	return crops, nil
}

// manifestRelPath は、マニフェストに記録するクロップのパスを出力先の
// 親ディレクトリからの相対パスにします（既定の出力先なら dspy_inputs/... の形。
// 読み込み側は assets 配下を前置して解決します）。
// 相対化できない場合はそのままのパスを使います。
func manifestRelPath(outputDir, outPath string) string {
	parent := filepath.Dir(filepath.Clean(outputDir))
	if rel, err := filepath.Rel(parent, outPath); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(outPath)
}
