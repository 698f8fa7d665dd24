// Package dataset は、プロンプト最適化用データセットの作成ツールです。
// 完成テクスチャから参照クロップを切り出す工程（crops.go）と、
// クロップマニフェストを学習データセットへ変換する工程（本ファイル）を
// 提供します。
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-itasha-kit/pkg/domain"
)

// DividerY は、学習データセット共通の前面/背面分割線です。
// 背面領域は分割線から4%下がった位置から始まります。
const DividerY = 52.5

var (
	frontY = [2]float64{0.0, DividerY}
	backY  = [2]float64{DividerY + 4.0, 97.0}

	// slotTemplates は3つの定型スロットです。順序はクロップの切り出し
	// 順（前面左・前面右・背面中央）と対応します。
	slotTemplates = []domain.LayoutSlot{
		{
			SlotName: "Front-Left Hero",
			Position: domain.PositionRange{X: [2]float64{0.0, 45.0}, Y: frontY},
			Purpose:  "Primary subject hugging the left grip",
			Avoid:    "screen cutout, D-pad",
		},
		{
			SlotName: "Front-Right Hero",
			Position: domain.PositionRange{X: [2]float64{55.0, 100.0}, Y: frontY},
			Purpose:  "Supporting hero on right grip",
			Avoid:    "screen cutout, ABXY",
		},
		{
			SlotName: "Back Center",
			Position: domain.PositionRange{X: [2]float64{10.0, 90.0}, Y: backY},
			Purpose:  "Large motif for back plate",
			Avoid:    "edge cutouts",
		},
	}
)

// manifestEntry はクロップ抽出工程が書き出すマニフェストの1レコードです。
type manifestEntry struct {
	Texture string      `json:"texture"`
	Crops   []cropEntry `json:"crops"`
}

type cropEntry struct {
	Slot int    `json:"slot"`
	Box  [4]int `json:"box"`
	Path string `json:"path"`
}

// BuildFromManifest は、クロップマニフェストを読み込み、定型スロットを
// 当てはめた学習データセットを書き出します。
func BuildFromManifest(ctx context.Context, reader remoteio.InputReader, writer remoteio.OutputWriter, manifestPath, outPath string) error {
	rc, err := reader.Open(ctx, manifestPath)
	if err != nil {
		return fmt.Errorf("マニフェスト '%s' を開けません: %w", manifestPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("マニフェスト '%s' の読み込みに失敗しました: %w", manifestPath, err)
	}

	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("マニフェスト '%s' の解釈に失敗しました: %w", manifestPath, err)
	}

	examples := make([]domain.Example, 0, len(entries))
	for _, entry := range entries {
		ex, err := exampleFromEntry(entry)
		if err != nil {
			return err
		}
		examples = append(examples, ex)
	}

	out, err := json.MarshalIndent(examples, "", "  ")
	if err != nil {
		return fmt.Errorf("データセットのエンコードに失敗しました: %w", err)
	}
	if err := writer.Write(ctx, outPath, bytes.NewReader(out), "application/json"); err != nil {
		return fmt.Errorf("データセットの保存に失敗しました '%s': %w", outPath, err)
	}
	slog.Info("データセットを書き出しました", "path", outPath, "examples", len(examples))
	return nil
}

// exampleFromEntry はマニフェストの1レコードを学習例に変換します。
// クロップは定型スロット数までしか使いません。
func exampleFromEntry(entry manifestEntry) (domain.Example, error) {
	if len(entry.Crops) == 0 {
		return domain.Example{}, fmt.Errorf("テクスチャ '%s' にクロップがありません", entry.Texture)
	}
	crops := entry.Crops
	if len(crops) > len(slotTemplates) {
		crops = crops[:len(slotTemplates)]
	}

	images := make([]domain.ImageAnalysis, 0, len(crops))
	slots := make([]domain.LayoutSlot, 0, len(crops))
	references := make([]string, 0, len(crops))
	for idx, crop := range crops {
		images = append(images, domain.ImageAnalysis{
			Description: fmt.Sprintf("Reference crop %d for %s", idx, entry.Texture),
			Elements:    []string{fmt.Sprintf("slot%d", idx)},
			Style:       "unknown",
			Colors:      []string{},
			Mood:        "",
		})
		slot := slotTemplates[idx]
		slot.SourceImages = []int{idx + 1}
		slot.Description = fmt.Sprintf("Place crop %d content here", idx)
		slots = append(slots, slot)
		references = append(references, crop.Path)
	}

	return domain.Example{
		Texture: entry.Texture,
		Analysis: domain.AnalysisResult{
			Images:            images,
			Synthesis:         "Combine the reference crops using the predefined layout slots.",
			LayoutSlots:       slots,
			FrontBackDividerY: DividerY,
		},
		References: references,
	}, nil
}
