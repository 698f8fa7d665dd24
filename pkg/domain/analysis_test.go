package domain

import (
	"reflect"
	"testing"
)

func TestUnmarshalAnalysis(t *testing.T) {
	t.Run("モデル応答のJSONを正しく読み込めるのだ", func(t *testing.T) {
		inputJSON := `{
			"images": [
				{
					"description": "緑髪のキャラクター",
					"elements": ["character", "ribbon"],
					"style": "anime",
					"colors": ["#aaddaa", "white"],
					"mood": "cheerful"
				}
			],
			"synthesis": "左グリップに主役を置く構成",
			"layout_slots": [
				{
					"slot_name": "Front-Left Hero",
					"source_images": [1],
					"description": "主役を配置",
					"purpose": "Primary subject",
					"position": {"x": [0, 45], "y": [0, 52.5]},
					"avoid": "screen cutout"
				}
			],
			"front_back_divider_y": 52.5
		}`

		result, err := UnmarshalAnalysis([]byte(inputJSON))
		if err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}
		if len(result.Images) != 1 || result.Images[0].Style != "anime" {
			t.Errorf("画像解析が正しく読めていないのだ: %+v", result.Images)
		}
		if result.FrontBackDividerY != 52.5 {
			t.Errorf("分割線の値が違うのだ: %v", result.FrontBackDividerY)
		}
		if len(result.LayoutSlots) != 1 || result.LayoutSlots[0].SlotName != "Front-Left Hero" {
			t.Errorf("スロットが正しく読めていないのだ: %+v", result.LayoutSlots)
		}
	})

	t.Run("分割線が無い場合は既定値50になるのだ", func(t *testing.T) {
		result, err := UnmarshalAnalysis([]byte(`{"images": [{"description": "d"}], "synthesis": "s"}`))
		if err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}
		if result.FrontBackDividerY != DefaultFrontBackDividerY {
			t.Errorf("既定値が適用されていないのだ: %v", result.FrontBackDividerY)
		}
	})

	t.Run("imagesが空の応答は型付きエラーで拒否するのだ", func(t *testing.T) {
		if _, err := UnmarshalAnalysis([]byte(`{"synthesis": "s"}`)); err == nil {
			t.Fatal("エラーになるはずなのだ")
		}
		if _, err := UnmarshalAnalysis([]byte(`not json`)); err == nil {
			t.Fatal("壊れたJSONもエラーになるはずなのだ")
		}
	})

	t.Run("min>maxの座標は検証されずそのまま通るのだ", func(t *testing.T) {
		// 元実装の挙動を踏襲した仕様上の既知の癖。修正する場合はここを更新する。
		inputJSON := `{
			"images": [{"description": "d"}],
			"layout_slots": [
				{"slot_name": "S", "source_images": [1], "position": {"x": [45, 0], "y": [0, 52]}}
			]
		}`
		result, err := UnmarshalAnalysis([]byte(inputJSON))
		if err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}
		got := result.LayoutSlots[0].Position
		if got.X != [2]float64{45, 0} {
			t.Errorf("座標が書き換えられているのだ: %+v", got)
		}
		if norm := got.Normalized(); norm.X != [2]float64{0, 45} {
			t.Errorf("Normalizedの結果が違うのだ: %+v", norm)
		}
	})
}

func TestAnalysisResult_SlotsForReference(t *testing.T) {
	plan := AnalysisResult{
		Images: []ImageAnalysis{{Description: "a"}, {Description: "b"}},
		LayoutSlots: []LayoutSlot{
			{SlotName: "Front-Left Hero", SourceImages: []int{1}},
			{SlotName: "Front-Right Hero", SourceImages: []int{2}},
			{SlotName: "Back Center", SourceImages: []int{1, 2}},
		},
	}

	t.Run("参照1を使うスロットが定義順で全部見つかるのだ", func(t *testing.T) {
		slots := plan.SlotsForReference(1)
		if len(slots) != 2 || slots[0].SlotName != "Front-Left Hero" || slots[1].SlotName != "Back Center" {
			t.Errorf("スロットの検索結果が違うのだ: %+v", slots)
		}
	})

	t.Run("どのスロットも使わない参照は空になるのだ", func(t *testing.T) {
		if slots := plan.SlotsForReference(3); len(slots) != 0 {
			t.Errorf("空のはずなのだ: %+v", slots)
		}
	})
}

func TestAnalysisResult_Palette(t *testing.T) {
	plan := AnalysisResult{
		Images: []ImageAnalysis{
			{Colors: []string{"red", "blue", "Red"}},
			{Colors: []string{"blue", "#00ff00", "gold"}},
		},
	}

	t.Run("出現順を保って重複排除されるのだ", func(t *testing.T) {
		want := []string{"red", "blue", "#00ff00", "gold"}
		if got := plan.Palette(0); !reflect.DeepEqual(got, want) {
			t.Errorf("期待: %v, 実際: %v", want, got)
		}
	})

	t.Run("上限を超えた色は切り捨てられるのだ", func(t *testing.T) {
		if got := plan.Palette(2); len(got) != 2 {
			t.Errorf("上限が効いていないのだ: %v", got)
		}
	})
}

func TestAnalysisResult_Clone(t *testing.T) {
	t.Run("Cloneは元のプランと独立しているのだ", func(t *testing.T) {
		original := AnalysisResult{
			Images:      []ImageAnalysis{{Description: "d", Elements: []string{"e"}, Colors: []string{"c"}}},
			LayoutSlots: []LayoutSlot{{SlotName: "S", SourceImages: []int{1}}},
		}
		cloned := original.Clone()
		cloned.Images[0].Description = "changed"
		cloned.Images[0].Elements[0] = "changed"
		cloned.LayoutSlots[0].SourceImages[0] = 99

		if original.Images[0].Description != "d" || original.Images[0].Elements[0] != "e" {
			t.Error("画像解析が共有されているのだ")
		}
		if original.LayoutSlots[0].SourceImages[0] != 1 {
			t.Error("スロットのインデックスが共有されているのだ")
		}
	})
}
