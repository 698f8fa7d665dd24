package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shouni/go-itasha-kit/pkg/domain"
)

// paletteCap はプロンプトに載せる集約パレットの最大色数です。
const paletteCap = 12

// formatPct はパーセント値を末尾ゼロなしの十進表記で描画します（52.5 → "52.5"、45 → "45"）。
func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// renderLayoutTable は、レイアウトスロットの一覧表と前面/背面分割線の説明を
// テキストとして描画します。座標は min>max であっても検証せずそのまま載せます。
func renderLayoutTable(plan domain.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString("### LAYOUT TABLE ###\n")
	for _, slot := range plan.LayoutSlots {
		sb.WriteString(fmt.Sprintf("- %s: x=[%s, %s]%%, y=[%s, %s]%%",
			slot.SlotName,
			formatPct(slot.Position.X[0]), formatPct(slot.Position.X[1]),
			formatPct(slot.Position.Y[0]), formatPct(slot.Position.Y[1]),
		))
		if slot.Purpose != "" {
			sb.WriteString(" | purpose: " + slot.Purpose)
		}
		if slot.Description != "" {
			sb.WriteString(" | content: " + slot.Description)
		}
		if slot.Avoid != "" {
			sb.WriteString(" | avoid: " + slot.Avoid)
		}
		sb.WriteString(" | sources: " + renderSourceIndices(slot.SourceImages))
		sb.WriteString("\n")
	}
	sb.WriteString(renderDivider(plan.FrontBackDividerY))
	return strings.TrimRight(sb.String(), "\n")
}

// renderDivider は前面/背面の領域定義を描画します。
// 前面は y ∈ [0, D)、背面は y ∈ [D, 100]（いずれもパーセント）です。
func renderDivider(divider float64) string {
	d := formatPct(divider)
	return fmt.Sprintf("The canvas splits at the front/back divider: front region covers y ∈ [0, %s), back region covers y ∈ [%s, 100], in percent of canvas height.", d, d)
}

func renderSourceIndices(indices []int) string {
	if len(indices) == 0 {
		return "none"
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("image #%d", idx)
	}
	return strings.Join(parts, ", ")
}

// renderAnalysisSummary は、各参照画像の解析結果と統合ナラティブ、
// 一貫性確保のための集約情報（パレット・スタイル・ムード）を描画します。
func renderAnalysisSummary(plan domain.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString("### VISUAL ANALYSIS OF REFERENCE IMAGES ###\n")
	for i, img := range plan.Images {
		sb.WriteString(fmt.Sprintf("Image %d:\n", i+1))
		sb.WriteString("  Description: " + img.Description + "\n")
		sb.WriteString("  Elements: " + strings.Join(img.Elements, ", ") + "\n")
		sb.WriteString("  Style: " + img.Style + "\n")
		sb.WriteString("  Colors: " + strings.Join(img.Colors, ", ") + "\n")
		sb.WriteString("  Mood: " + img.Mood + "\n")
	}
	sb.WriteString("\n### SYNTHESIS ###\n")
	sb.WriteString(plan.Synthesis)

	if palette := plan.Palette(paletteCap); len(palette) > 0 {
		sb.WriteString("\n\n### SHARED PALETTE SAMPLE ###\n")
		sb.WriteString(strings.Join(palette, ", "))
	}
	styles, moods := plan.StylesAndMoods()
	if len(styles) > 0 {
		sb.WriteString("\n### STYLE ANCHORS ###\n")
		sb.WriteString(strings.Join(styles, " / "))
	}
	if len(moods) > 0 {
		sb.WriteString("\n### MOOD ANCHORS ###\n")
		sb.WriteString(strings.Join(moods, " / "))
	}
	return sb.String()
}

// renderConsumptionNote は、1始まりの参照インデックス idx を素材として
// 消費するスロット名を列挙した短い指示を描画します。
func renderConsumptionNote(plan domain.AnalysisResult, idx int) string {
	slots := plan.SlotsForReference(idx)
	if len(slots) == 0 {
		return fmt.Sprintf("Reference image %d: style and palette reference only, not assigned to a specific slot.", idx)
	}
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = s.SlotName
	}
	return fmt.Sprintf("Reference image %d is consumed by slot(s): %s. Reproduce its subject faithfully inside those bounds.", idx, strings.Join(names, ", "))
}
