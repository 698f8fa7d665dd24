package domain

import (
	"encoding/json"
	"fmt"
)

// Example は、プロンプト最適化データセットの1レコードです。
// Texture は目標となる完成テクスチャ、References は参照画像のパス列です。
type Example struct {
	Texture    string         `json:"texture"`
	Analysis   AnalysisResult `json:"analysis"`
	References []string       `json:"references"`
}

// ParseExamples はデータセットJSON（Example の配列）をパースします。
func ParseExamples(data []byte) ([]Example, error) {
	var examples []Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("データセットのパースに失敗しました: %w", err)
	}
	return examples, nil
}
