package prompt

const (
	// TaskFraming は出力形式の制約を定義します。立体物ではなく
	// 印刷用の平面テクスチャを生成させるための枠組みです。
	TaskFraming = `### TASK: PRINTABLE VINYL SKIN TEXTURE ###
- OUTPUT: A single flat 2D texture for a Nintendo Switch Lite vinyl skin, 1:1 aspect ratio.
- This is PRINT ARTWORK, not a product photo. Do NOT depict the console, hands, 3D perspective, shadows of hardware, or any mockup.
- The texture fills the entire square canvas edge to edge. No borders, no transparency.`

	// ProhibitedContent は禁止事項を定義します。
	ProhibitedContent = `### PROHIBITED CONTENT ###
- NO logos, trademarks, or brand names.
- NO guide lines, cut lines, registration marks, or coordinate grids.
- NO device silhouettes, button shapes, or screen frames drawn into the artwork.`

	// CohesionRules は複数素材を一枚にまとめる際の一貫性ルールです。
	CohesionRules = `### COHESION RULES ###
- All subjects share ONE unified color palette and ONE lighting direction.
- Blend backgrounds seamlessly so the texture reads as a single continuous design, not a collage.
- Keep rendering style consistent across every subject and motif.`

	// MaskUsageRules はマスク画像の読み方を定義します。
	MaskUsageRules = `### MASK USAGE RULES ###
- The mask image encodes cut geometry: WHITE = survives after cutting (safe zone, keep important content here), GREY = bleed / will be cut away.
- The mask is a GEOMETRY GUIDE ONLY. Never reproduce its shapes, colors, outlines, or transparency in the artwork.`

	// MaskCaveat はマスク画像そのものを添付する直前に置く注意書きです。
	MaskCaveat = `Template mask placement aid ONLY: white = survives after cutting, grey = will be removed. Use it solely to position characters and patterns. Do not copy its shapes, colors, or transparency into the final artwork.`

	// FallbackSlotInstruction はレイアウトスロットが空のプランに対する汎用配置指示です。
	FallbackSlotInstruction = `### LAYOUT ###
No explicit layout slots were planned. Place the primary subjects on the left and right of the FRONT region, and one large motif centered on the BACK region. Keep subject faces away from the screen cutout area.`

	// DefaultFinalInstructions は組み込みの最終手順です。
	// assets/prompts/final_instructions.txt が存在する場合はその内容で完全に置き換わります。
	DefaultFinalInstructions = `### FINAL PROCEDURE ###
1. Re-read the layout table and place each subject inside its slot bounds.
2. Reproduce subjects from the reference images EXACTLY: same face, same costume, same colors. Do not invent new characters.
3. Fill the remaining canvas with a cohesive background derived from the shared palette.
4. Respect the front/back divider: compositions must not straddle it.
5. Render the final image as one seamless, print-ready texture.`
)
