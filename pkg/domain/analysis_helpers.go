package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrMalformedAnalysis は、モデル応答が Layout Schema として解釈できない
// 場合に返される解析エラーです。呼び出し側はこれを致命的エラーとして扱います。
var ErrMalformedAnalysis = fmt.Errorf("analysis response does not match the layout schema")

// UnmarshalAnalysis は、モデルのJSON応答を AnalysisResult へ厳密に変換します。
// images が欠落した応答は型付きエラーとして拒否します（黙ってゼロ値に
// フォールバックしない）。front_back_divider_y の欠落のみ既定値 50.0 で補います。
func UnmarshalAnalysis(data []byte) (AnalysisResult, error) {
	// divider の「欠落」と「明示的な 0」を区別するため、ポインタで受けます。
	var raw struct {
		Images            []ImageAnalysis `json:"images"`
		Synthesis         string          `json:"synthesis"`
		LayoutSlots       []LayoutSlot    `json:"layout_slots"`
		FrontBackDividerY *float64        `json:"front_back_divider_y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	if len(raw.Images) == 0 {
		return AnalysisResult{}, fmt.Errorf("%w: images is empty", ErrMalformedAnalysis)
	}

	result := AnalysisResult{
		Images:            raw.Images,
		Synthesis:         raw.Synthesis,
		LayoutSlots:       raw.LayoutSlots,
		FrontBackDividerY: DefaultFrontBackDividerY,
	}
	if raw.FrontBackDividerY != nil {
		result.FrontBackDividerY = *raw.FrontBackDividerY
	}
	return result, nil
}

// SlotsForReference は、1 始まりの参照インデックス idx を素材とする
// すべてのスロットを、プラン内の定義順で返します。
func (r AnalysisResult) SlotsForReference(idx int) []LayoutSlot {
	var slots []LayoutSlot
	for _, s := range r.LayoutSlots {
		if s.UsesReference(idx) {
			slots = append(slots, s)
		}
	}
	return slots
}

// Palette は、全参照画像の色を出現順を保ったまま重複排除し、
// 最大 max 件まで返します。max <= 0 の場合は無制限です。
func (r AnalysisResult) Palette(max int) []string {
	seen := make(map[string]bool)
	var palette []string
	for _, img := range r.Images {
		for _, c := range img.Colors {
			key := strings.ToLower(strings.TrimSpace(c))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			palette = append(palette, strings.TrimSpace(c))
			if max > 0 && len(palette) >= max {
				return palette
			}
		}
	}
	return palette
}

// StylesAndMoods は、全参照画像のスタイルとムードをそれぞれ重複排除して返します。
// 全体の一貫性をプロンプトへ提示するための要約に使います。
func (r AnalysisResult) StylesAndMoods() (styles []string, moods []string) {
	styles = dedupNonEmpty(func(img ImageAnalysis) string { return img.Style }, r.Images)
	moods = dedupNonEmpty(func(img ImageAnalysis) string { return img.Mood }, r.Images)
	return styles, moods
}

func dedupNonEmpty(field func(ImageAnalysis) string, images []ImageAnalysis) []string {
	seen := make(map[string]bool)
	var out []string
	for _, img := range images {
		v := strings.TrimSpace(field(img))
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}

// Clone は AnalysisResult の深いコピーを返します。
// 合成学習サンプルの作成時に、元プランを変更せず派生プランを作るために使います。
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.Images = make([]ImageAnalysis, len(r.Images))
	for i, img := range r.Images {
		out.Images[i] = img
		out.Images[i].Elements = append([]string(nil), img.Elements...)
		out.Images[i].Colors = append([]string(nil), img.Colors...)
	}
	out.LayoutSlots = make([]LayoutSlot, len(r.LayoutSlots))
	for i, s := range r.LayoutSlots {
		out.LayoutSlots[i] = s
		out.LayoutSlots[i].SourceImages = append([]int(nil), s.SourceImages...)
	}
	return out
}
