// File: internal/vision/vision_test.go
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	return img
}

func newTestParser(t *testing.T, handler http.HandlerFunc) *HTTPParser {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPParser(config.VisionConfig{
		ParserURL:  server.URL,
		APITimeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestParseScreenPostsBase64PNG(t *testing.T) {
	p := newTestParser(t, func(w http.ResponseWriter, r *http.Request) {
		var req parseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		raw, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		img, err := png.Decode(strings.NewReader(string(raw)))
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())

		fmt.Fprint(w, `{"parsed_content":"id,class\n1,Compo"}`)
	})

	content, err := p.ParseScreen(context.Background(), testImage(8, 6))
	require.NoError(t, err)
	assert.Equal(t, "id,class\n1,Compo", content)
}

func TestParseScreenRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestParser(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"parsed_content":"ok"}`)
	})

	content, err := p.ParseScreen(context.Background(), testImage(2, 2))
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestParseScreenClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	p := newTestParser(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := p.ParseScreen(context.Background(), testImage(2, 2))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseScreenMissingContentIsAnError(t *testing.T) {
	p := newTestParser(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"something_else":"x"}`)
	})

	_, err := p.ParseScreen(context.Background(), testImage(2, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsed_content")
}

func TestFrameStorePlaceholderUntilFirstCapture(t *testing.T) {
	store := NewFrameStore(0)
	assert.Equal(t, placeholderPNG, store.Latest())
	assert.Equal(t, placeholderPNG, store.LatestThumbnail())

	raw, err := base64.StdEncoding.DecodeString(store.Latest())
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dx())
}

func TestFrameStoreStoresFrameAndThumbnail(t *testing.T) {
	store := NewFrameStore(4)
	require.NoError(t, store.Store(testImage(16, 8)))

	frame := decodeStoredPNG(t, store.Latest())
	assert.Equal(t, 16, frame.Bounds().Dx())

	thumb := decodeStoredPNG(t, store.LatestThumbnail())
	assert.Equal(t, 4, thumb.Bounds().Dx())
	assert.Equal(t, 2, thumb.Bounds().Dy(), "aspect ratio preserved")
}

func decodeStoredPNG(t *testing.T, encoded string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(string(raw)))
	require.NoError(t, err)
	return img
}

func TestCaptureNameRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	x, y := 120, 450

	name := CaptureName(ts, "MousePress", "action_3", &x, &y)
	assert.Equal(t, "raw_1700000000_MousePress_folder_action_3_mouse_120_450.png", name)

	meta, ok := ParseCaptureName(name)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), meta.Timestamp)
	assert.Equal(t, "MousePress", meta.Label)
	assert.Equal(t, "120", meta.MouseX)
	assert.Equal(t, "450", meta.MouseY)
}

func TestCaptureNameWithoutMouse(t *testing.T) {
	name := CaptureName(time.Unix(42, 0), "KeyboardIdle", "action_1", nil, nil)
	assert.Equal(t, "raw_42_KeyboardIdle_folder_action_1.png", name)

	meta, ok := ParseCaptureName(name)
	require.True(t, ok)
	assert.Equal(t, "KeyboardIdle", meta.Label)
	assert.Equal(t, "0", meta.MouseX)
	assert.Equal(t, "0", meta.MouseY)

	_, ok = ParseCaptureName("not_a_capture.png")
	assert.False(t, ok)
}

func TestSaveCaptureWritesFileAndUpdatesStore(t *testing.T) {
	dir := t.TempDir()
	store := NewFrameStore(4)

	path, err := SaveCapture(dir, testImage(8, 8), "raw_1_Init_folder_action_1.png", store)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "raw_1_Init_folder_action_1.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	assert.NotEqual(t, placeholderPNG, store.Latest())
}
