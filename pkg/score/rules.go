// Package score は、候補プロンプトの品質見積もりを提供します。
// キーワードベースの軽量スコアラー（本ファイル）と、実際に画像を生成して
// 採点モデルに評価させるスコアラー（evaluator.go）の2系統があります。
package score

import (
	"strings"
	"unicode/utf8"
)

// MinPromptLength は有効なプロンプトとみなす最小文字数です。
// これ未満のテキストは無条件にスコア 0.0 になります。
const MinPromptLength = 100

// keywordCheck は、プロンプト本文（小文字化済み）への述語と重みの組です。
type keywordCheck struct {
	name   string
	check  func(p string) bool
	weight float64
}

// keywordChecks は品質指標の固定テーブルです。重みも順序も固定で、
// スコアは述語の成立数に対して単調非減少になります。
var keywordChecks = []keywordCheck{
	{"mask_instruction", func(p string) bool {
		return strings.Contains(p, "mask") && (strings.Contains(p, "overlay") || strings.Contains(p, "do not"))
	}, 1.0},
	{"divider_alignment", func(p string) bool {
		return (strings.Contains(p, "divider") || strings.Contains(p, "front/back")) &&
			(strings.Contains(p, "%") || strings.Contains(p, "coordinate"))
	}, 1.0},
	{"screen_avoidance", func(p string) bool {
		return strings.Contains(p, "screen") &&
			(strings.Contains(p, "avoid") || strings.Contains(p, "background") || strings.Contains(p, "grey"))
	}, 1.0},
	{"reference_reuse", func(p string) bool {
		return (strings.Contains(p, "reference") && strings.Contains(p, "exact")) || strings.Contains(p, "do not invent")
	}, 1.0},
	{"layout_slots", func(p string) bool {
		return strings.Contains(p, "layout") && (strings.Contains(p, "slot") || strings.Contains(p, "position"))
	}, 0.8},
	{"multi_image", func(p string) bool {
		return strings.Contains(p, "multiple") || (strings.Contains(p, "image") && strings.Contains(p, "source"))
	}, 0.8},
	{"coordinates", func(p string) bool {
		return strings.Contains(p, "x=") || strings.Contains(p, "y=") || strings.Contains(p, "coordinate")
	}, 0.7},
	{"no_hardware", func(p string) bool {
		return (strings.Contains(p, "hardware") && strings.Contains(p, "do not")) ||
			strings.Contains(p, "2d") || strings.Contains(p, "flat")
	}, 0.7},
	{"aspect_ratio", func(p string) bool {
		return strings.Contains(p, "1:1") || strings.Contains(p, "aspect")
	}, 0.5},
	{"seamless", func(p string) bool {
		return strings.Contains(p, "seamless") || strings.Contains(p, "continuous") || strings.Contains(p, "unified")
	}, 0.6},
}

// Prompt は、プロンプト本文に品質指標がどれだけ含まれるかを 0.0〜1.0 で
// 見積もります。正しさの判定器ではなく、あくまで参考値です。
// 内訳: 長さ成分（上限 0.3）＋キーワード成分（重み正規化後に 0.7 倍）。
// 長さはバイト数ではなく文字数で数えます。
func Prompt(text string) float64 {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinPromptLength {
		return 0.0
	}

	lower := strings.ToLower(text)
	var totalWeight, weightedScore float64
	for _, kc := range keywordChecks {
		totalWeight += kc.weight
		if kc.check(lower) {
			weightedScore += kc.weight
		}
	}

	baseScore := min(0.3, float64(utf8.RuneCountInString(text))/5000.0)
	keywordScore := 0.0
	if totalWeight > 0 {
		keywordScore = weightedScore / totalWeight * 0.7
	}
	return min(1.0, baseScore+keywordScore)
}
