package asset

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultMaskFileName は Switch Lite のカットマスク画像のファイル名です。
	// 白=カット後に残る領域、グレー=裁ち落とし領域を表します。
	DefaultMaskFileName = "cover.png"
	// DefaultExampleManifestName は few-shot サンプルの定義ファイル名です。
	DefaultExampleManifestName = "examples.json"
	// DefaultFinalInstructionsName は最終指示ブロックの差し替えファイル名です。
	// 存在する場合、組み込みの手順文をファイル内容で完全に置き換えます。
	DefaultFinalInstructionsName = "prompts/final_instructions.txt"
)

// ExamplePair は「完成テクスチャ＋任意のマスク適用プレビュー」の few-shot ペアです。
type ExamplePair struct {
	Texture string `json:"texture"`
	Preview string `json:"preview"`
	Note    string `json:"note"`
}

// Library は、プロンプト組み立てが参照するローカルアセット一式を解決します。
// どのアセットも存在しなければ黙って省略される契約なので、ここでは
// パス解決と存在確認だけを行い、読み込みは呼び出し側に任せます。
type Library struct {
	// Dir はアセットディレクトリ（既定: "assets"）です。
	Dir string
}

// NewLibrary は指定ディレクトリを参照する Library を返します。
func NewLibrary(dir string) *Library {
	if dir == "" {
		dir = "assets"
	}
	return &Library{Dir: dir}
}

// MaskPath は、マスク画像がディスク上に存在する場合にそのパスを返します。
// 存在しない場合は空文字列を返します（セグメント省略の合図）。
func (l *Library) MaskPath() string {
	path := filepath.Join(l.Dir, DefaultMaskFileName)
	if fileExists(path) {
		return path
	}
	return ""
}

// ExamplePairs は few-shot サンプルのペア一覧を返します。
// examples.json があればそれを読み、壊れている・存在しない場合は空を返します。
// テクスチャ側のファイルが存在しないペアは呼び出し側でまるごとスキップされます。
func (l *Library) ExamplePairs() []ExamplePair {
	manifest := filepath.Join(l.Dir, DefaultExampleManifestName)
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil
	}
	var pairs []ExamplePair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil
	}
	for i := range pairs {
		pairs[i].Texture = l.resolve(pairs[i].Texture)
		pairs[i].Preview = l.resolve(pairs[i].Preview)
	}
	return pairs
}

// FinalInstructionsOverride は、最終指示の差し替えテキストを返します。
// ファイルが無ければ ok=false で、組み込みの手順文が使われます。
func (l *Library) FinalInstructionsOverride() (text string, ok bool) {
	data, err := os.ReadFile(filepath.Join(l.Dir, DefaultFinalInstructionsName))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// resolve は、マニフェスト内の相対パスをアセットディレクトリ基準に直します。
func (l *Library) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Dir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}
