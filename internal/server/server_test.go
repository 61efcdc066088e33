package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipparndt/printquote/internal/quote"
	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/philipparndt/printquote/pkg/stl/stltest"
	"github.com/philipparndt/printquote/pkg/thumbnail"
)

func cube() []byte {
	return stltest.Binary(stltest.Cube(20, 1))
}

const models = "https://models.example"

func newTestServer(t *testing.T, logger *zap.Logger) *httptest.Server {
	t.Helper()
	quoter := quote.NewQuoter(pricing.DefaultCatalog(), logger)
	quoter.Now = func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) }

	loader := thumbnail.LoaderFunc(func(_ context.Context, url string) ([]byte, error) {
		if url == models+"/missing.stl" {
			return nil, errors.New("not found")
		}
		return cube(), nil
	})
	srv := httptest.NewServer(Router(Config{
		Defaults:   pricing.DefaultSettings(),
		Quoter:     quoter,
		Thumbnails: thumbnail.NewGenerator(loader, nil, logger),
		ThumbnailOptions: thumbnail.Options{
			Width:  64,
			Height: 48,
		},
		Logger: logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, url string, file []byte, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		part, err := mw.CreateFormFile("file", "cube.stl")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/quote", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestQuoteUpload(t *testing.T) {
	srv := newTestServer(t, nil)
	resp := upload(t, srv.URL, cube(), map[string]string{"quantity": "2", "supports": "true"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body quoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "cube.stl", body.FileName)
	assert.Equal(t, "8.0", body.Geometry.VolumeCM3)
	assert.Equal(t, 2, body.Settings.Quantity)
	assert.True(t, body.Settings.Supports)
	assert.Equal(t, "PLA", body.Settings.Material)
	assert.Equal(t, pricing.SourceCalculated, body.Result.Source)
	assert.Equal(t, pricing.Money(body.Result.GrandTotal), body.Display.GrandTotal)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := upload(t, srv.URL, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload(t, srv.URL, cube(), map[string]string{"infill": "lots"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload(t, srv.URL, cube(), map[string]string{"material": "unobtainium"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = upload(t, srv.URL, cube(), map[string]string{"quantity": "0"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestThumbnail(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/thumbnail?url=" + models + "/cube.stl&w=80&h=60")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestThumbnailErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	cases := map[string]int{
		"/api/thumbnail": http.StatusBadRequest,
		"/api/thumbnail?url=" + models + "/cube.stl&w=x":     http.StatusBadRequest,
		"/api/thumbnail?url=" + models + "/cube.stl&w=99999": http.StatusBadRequest,
		"/api/thumbnail?url=" + models + "/missing.stl":      http.StatusUnprocessableEntity,
	}
	for path, status := range cases {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, status, resp.StatusCode)
		})
	}
}

func TestThumbnailLocalFiles(t *testing.T) {
	var loads atomic.Int32
	loader := thumbnail.LoaderFunc(func(context.Context, string) ([]byte, error) {
		loads.Add(1)
		return cube(), nil
	})
	newServer := func(allowLocal bool) *httptest.Server {
		srv := httptest.NewServer(Router(Config{
			Thumbnails:       thumbnail.NewGenerator(loader, nil, nil),
			ThumbnailOptions: thumbnail.Options{Width: 32, Height: 32},
			AllowLocalFiles:  allowLocal,
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	get := func(srv *httptest.Server, source string) int {
		resp, err := http.Get(srv.URL + "/api/thumbnail?url=" + url.QueryEscape(source))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	locked := newServer(false)
	for _, source := range []string{"/etc/passwd", "file:///etc/hosts", "models/cube.stl"} {
		assert.Equal(t, http.StatusBadRequest, get(locked, source), source)
	}
	assert.Zero(t, loads.Load())
	assert.Equal(t, http.StatusOK, get(locked, "HTTPS://models.example/cube.stl"))
	assert.Equal(t, int32(1), loads.Load())

	open := newServer(true)
	assert.Equal(t, http.StatusOK, get(open, "models/cube.stl"))
	assert.Equal(t, int32(2), loads.Load())
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := newTestServer(t, zap.New(core))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/health", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "GET", fields["method"])
}

func TestUnconfiguredEndpoints(t *testing.T) {
	srv := httptest.NewServer(Router(Config{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/thumbnail?url=a.stl")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
