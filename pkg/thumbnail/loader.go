package thumbnail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// MaxDownloadBytes bounds the size of a fetched STL file
const MaxDownloadBytes = 256 << 20

// Loader fetches the raw bytes behind a model URL
type Loader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, url string) ([]byte, error)

func (f LoaderFunc) Load(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// DefaultLoader fetches http and https URLs over HTTP and reads anything
// else from the local filesystem.
type DefaultLoader struct {
	Client *http.Client
}

// NewDefaultLoader creates a loader with the given HTTP timeout
func NewDefaultLoader(timeout time.Duration) *DefaultLoader {
	return &DefaultLoader{Client: &http.Client{Timeout: timeout}}
}

func (l *DefaultLoader) Load(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return l.fetch(ctx, url)
	}
	path := strings.TrimPrefix(url, "file://")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (l *DefaultLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDownloadBytes {
		return nil, fmt.Errorf("model exceeds %d bytes", MaxDownloadBytes)
	}
	return data, nil
}
