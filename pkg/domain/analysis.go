package domain

// DefaultFrontBackDividerY は、モデルが分割線を返さなかった場合の既定値です。
// キャンバス中央（50%）で前面と背面を分ける想定です。
const DefaultFrontBackDividerY = 50.0

// ImageAnalysis は、1枚の参照画像に対する視覚解析の結果です。
// Analysis Step が一度だけ生成し、以後は読み取り専用として扱います。
type ImageAnalysis struct {
	Description string   `json:"description"`
	Elements    []string `json:"elements"`
	Style       string   `json:"style"`
	Colors      []string `json:"colors"`
	Mood        string   `json:"mood"`
}

// PositionRange は、正方形キャンバスに対するパーセント座標の矩形領域です。
// X, Y はそれぞれ [min, max]（0〜100）で、原点は左上です。
//
// min <= max の検証は意図的に行いません。元実装が未検証のまま
// レイアウト表へ描画する挙動を踏襲しています（テストで固定済み）。
type PositionRange struct {
	X [2]float64 `json:"x"`
	Y [2]float64 `json:"y"`
}

// Normalized は各軸の min/max を昇順に並べ替えたコピーを返します。
// 取り込み時には適用しません。順序保証が必要な呼び出し側だけが使います。
func (p PositionRange) Normalized() PositionRange {
	q := p
	if q.X[0] > q.X[1] {
		q.X[0], q.X[1] = q.X[1], q.X[0]
	}
	if q.Y[0] > q.Y[1] {
		q.Y[0], q.Y[1] = q.Y[1], q.Y[0]
	}
	return q
}

// LayoutSlot は、出力キャンバス上の名前付き配置領域です。
// SourceImages は参照画像リストへの 1 始まりインデックスです。
type LayoutSlot struct {
	SlotName     string        `json:"slot_name"`
	SourceImages []int         `json:"source_images"`
	Description  string        `json:"description"`
	Purpose      string        `json:"purpose"`
	Position     PositionRange `json:"position"`
	Avoid        string        `json:"avoid"`
}

// UsesReference は、このスロットが 1 始まりの参照インデックス idx を
// 素材として消費するかどうかを返します。
func (s LayoutSlot) UsesReference(idx int) bool {
	for _, i := range s.SourceImages {
		if i == idx {
			return true
		}
	}
	return false
}

// AnalysisResult は、Analysis Step が返すデザインプラン全体です。
// Images の並びは入力参照画像の並びと一致し、順序に意味があります。
// 生成後に書き換えられることはありません（合成サンプル作成時は Clone を使います）。
type AnalysisResult struct {
	Images            []ImageAnalysis `json:"images"`
	Synthesis         string          `json:"synthesis"`
	LayoutSlots       []LayoutSlot    `json:"layout_slots"`
	FrontBackDividerY float64         `json:"front_back_divider_y"`
}
