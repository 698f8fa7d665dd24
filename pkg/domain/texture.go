package domain

// GeneratedTexture は、Generation Step が書き出した画像成果物です。
// バイト列以外のメタデータは持ちません。
type GeneratedTexture struct {
	// Path は書き出し先（ローカルパスまたは gs:// URI）です。
	Path string
	// MIMEType はモデルが返した画像の MIME タイプです。
	MIMEType string
	// Data は画像のバイト列そのものです。
	Data []byte
}
