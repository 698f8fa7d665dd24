package builder

import (
	"github.com/shouni/go-itasha-kit/internal/config"
	"github.com/shouni/go-itasha-kit/pkg/asset"
	"github.com/shouni/go-itasha-kit/pkg/imageio"
	"github.com/shouni/go-itasha-kit/pkg/prompt"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config  *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です（出力先、モデル名など）。
	Reader  remoteio.InputReader    // Readerは、データセットやマニフェストの読み込みに使用する入力元です。
	Writer  remoteio.OutputWriter   // Writerは、生成された内容を保存するための出力先です。
	Assets  *asset.Library          // Assetsは、マスク・few-shotペア・手順上書きを束ねるアセット台帳です。
	Loader  *imageio.Loader         // Loaderは、参照画像をローカル/HTTP/GCSから読み込む共通ローダーです。
	Builder *prompt.Builder         // Builderは、デザインプランからプロンプト列を組み立てるコンポーネントです。

	genaiClient *genai.Client           // genaiClient は解析・画像生成に使う共通クライアント
	httpClient  httpkit.HTTPClient // httpClient はHTTP参照画像の取得に使う共通クライアント
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.HTTPClient,
	genaiClient *genai.Client,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	assets *asset.Library,
	loader *imageio.Loader,
	promptBuilder *prompt.Builder,
) AppContext {
	return AppContext{
		Config:      cfg,
		Options:     cfg.Options,
		genaiClient: genaiClient,
		httpClient:  httpClient,
		Reader:      reader,
		Writer:      writer,
		Assets:      assets,
		Loader:      loader,
		Builder:     promptBuilder,
	}
}
