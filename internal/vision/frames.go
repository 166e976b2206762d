// File: internal/vision/frames.go
package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/nfnt/resize"
)

// placeholderPNG is a 1x1 transparent PNG, base64 encoded. It is served when
// no frame has been captured yet so consumers always get a decodable image.
const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAAAXNSR0IArs4c6QAAAA1JREFUCNdj+P///38ACfsD/6EXSgAAAABJRU5ErkJggg=="

// FrameStore holds the most recent capture as base64 PNG, full size and as a
// fixed-width thumbnail.
type FrameStore struct {
	mu        sync.RWMutex
	frame     string
	thumbnail string
	width     uint
}

// NewFrameStore returns a store producing thumbnails of the given width. A
// zero width falls back to 320.
func NewFrameStore(thumbnailWidth int) *FrameStore {
	w := uint(320)
	if thumbnailWidth > 0 {
		w = uint(thumbnailWidth)
	}
	return &FrameStore{width: w}
}

// Store replaces the frame slot with the given capture.
func (s *FrameStore) Store(img image.Image) error {
	frame, err := encodePNG(img)
	if err != nil {
		return fmt.Errorf("vision: encoding frame: %w", err)
	}

	thumb := resize.Resize(s.width, 0, img, resize.Lanczos3)
	thumbnail, err := encodePNG(thumb)
	if err != nil {
		return fmt.Errorf("vision: encoding thumbnail: %w", err)
	}

	s.mu.Lock()
	s.frame = frame
	s.thumbnail = thumbnail
	s.mu.Unlock()
	return nil
}

// Latest returns the stored frame, or the placeholder when nothing has been
// captured yet.
func (s *FrameStore) Latest() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == "" {
		return placeholderPNG
	}
	return s.frame
}

// LatestThumbnail returns the downscaled frame, or the placeholder.
func (s *FrameStore) LatestThumbnail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.thumbnail == "" {
		return placeholderPNG
	}
	return s.thumbnail
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
