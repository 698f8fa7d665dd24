// Package overlay は、生成テクスチャへデバイス型マスクを合成する
// 仕上げ工程のプレースホルダです。現状はマスクを受け取るだけで適用せず、
// 画像を再エンコードして出力先へコピーします。
package overlay

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Apply は src の画像を読み込み、そのまま dst へ保存します。
// maskPath は将来の合成のために受け取りますが、現状は使用しません。
// 読み込み・書き出しエラーはログに記録するだけで、呼び出し側へは伝播させません。
func Apply(src, dst, maskPath string) {
	data, err := os.ReadFile(src)
	if err != nil {
		slog.Error("仕上げ工程で元画像を読み込めませんでした", "src", src, "error", err)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Error("仕上げ工程で画像をデコードできませんでした", "src", src, "error", err)
		return
	}

	if maskPath != "" {
		// TODO: assets/cover.png の透過マスクをここで合成する（切り抜き後プレビュー）。
		slog.Info("マスク合成は未実装のため、画像をそのままコピーします", "mask", maskPath)
	}

	if err := encodeTo(dst, img); err != nil {
		slog.Error("仕上げ工程で画像を書き出せませんでした", "dst", dst, "error", err)
		return
	}
	slog.Info("プレビューを書き出しました", "path", dst)
}

// encodeTo は拡張子に応じた形式で画像を書き出します。既定はPNGです。
func encodeTo(dst string, img image.Image) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return err
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(dst); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(dst, buf.Bytes(), 0o644)
}
