package prompt

import "strings"

// Segment は、生成モデルへ渡すプロンプト列の1要素です。
// Text と Image は排他で、どちらか一方だけが設定されます。
type Segment struct {
	Text     string
	Image    []byte
	MIMEType string
}

// TextSegment はテキストセグメントを生成します。
func TextSegment(text string) Segment {
	return Segment{Text: text}
}

// ImageSegment は画像セグメントを生成します。
func ImageSegment(data []byte, mimeType string) Segment {
	return Segment{Image: data, MIMEType: mimeType}
}

// IsImage は画像セグメントかどうかを返します。
func (s Segment) IsImage() bool {
	return len(s.Image) > 0
}

// SplitPromptText は、候補プロンプト本文を空行区切りの論理セクションに
// 分解してテキストセグメント列にします。空のセクションは捨てます。
// 最適化パスが書き換えたプロンプトを再送するときの逆変換です。
func SplitPromptText(text string) []Segment {
	var segments []Segment
	for _, section := range strings.Split(text, "\n\n") {
		if s := strings.TrimSpace(section); s != "" {
			segments = append(segments, TextSegment(s))
		}
	}
	return segments
}

// JoinText は、セグメント列のテキスト部分だけを改行で連結します。
// 最適化パスでは、この連結結果が「候補プロンプト本文」として扱われます。
func JoinText(segments []Segment) string {
	var texts []string
	for _, s := range segments {
		if !s.IsImage() && s.Text != "" {
			texts = append(texts, s.Text)
		}
	}
	return strings.Join(texts, "\n")
}
