package imageio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-image-kit/imgutil"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

const (
	// maxInlineBytes を超える画像はリクエストに載せる前にJPEGへ再圧縮します。
	maxInlineBytes = 4 << 20
	// recompressQuality は再圧縮時のJPEG品質です。
	recompressQuality = 85

	cacheKeyImageBytes = "image-bytes:"
)

// HTTPClient は、URLからバイト列を取得するためのインターフェースです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Image は読み込まれた参照画像のバイト列とMIMEタイプです。
type Image struct {
	Data     []byte
	MIMEType string
}

// Loader は参照画像を取得する統一窓口です。ローカルパス・http(s) URL・
// gs:// URI のいずれも受け付け、結果をキャッシュします。最適化スイープでは
// 同じ参照画像が候補プロンプトごとに添付されるため、キャッシュが効きます。
type Loader struct {
	reader     remoteio.InputReader
	httpClient HTTPClient
	cache      *cache.Cache
}

// NewLoader は依存関係を注入して Loader を初期化します。cache は nil を許容します。
func NewLoader(reader remoteio.InputReader, httpClient HTTPClient, c *cache.Cache) *Loader {
	return &Loader{
		reader:     reader,
		httpClient: httpClient,
		cache:      c,
	}
}

// Load は参照先から画像を読み込みます。画像以外のペイロードは拒否し、
// 大きすぎるペイロードはJPEGへ再圧縮してから返します。
func (l *Loader) Load(ctx context.Context, ref string) (*Image, error) {
	if l.cache != nil {
		if val, ok := l.cache.Get(cacheKeyImageBytes + ref); ok {
			if img, ok := val.(*Image); ok {
				return img, nil
			}
		}
	}

	data, err := l.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("'%s' は画像ではありません (%s)", ref, mimeType)
	}

	if len(data) > maxInlineBytes {
		if compressed, err := imgutil.CompressToJPEG(bytes.NewReader(data), recompressQuality); err == nil {
			data = compressed
			mimeType = "image/jpeg"
		}
	}

	img := &Image{Data: data, MIMEType: mimeType}
	if l.cache != nil {
		l.cache.Set(cacheKeyImageBytes+ref, img, cache.DefaultExpiration)
	}
	return img, nil
}

// fetch は参照先のスキームに応じて取得経路を切り替えます。
func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "gs://"):
		if l.reader == nil {
			return nil, fmt.Errorf("gs:// の読み込みにはリーダーが必要です: %s", ref)
		}
		rc, err := l.reader.Open(ctx, ref)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if l.httpClient == nil {
			return nil, fmt.Errorf("httpの読み込みにはクライアントが必要です: %s", ref)
		}
		return l.httpClient.FetchBytes(ctx, ref)
	default:
		return os.ReadFile(ref)
	}
}

// NewMemoryCache は Loader 用の既定キャッシュを生成します。
func NewMemoryCache() *cache.Cache {
	return cache.New(30*time.Minute, 1*time.Hour)
}
