// File: internal/vision/capture.go
//
// Package vision captures the screen, ships captures to the layout parsing
// backend and keeps the latest frame available for the host shell.
package vision

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
)

// Capturer produces a full-screen capture.
type Capturer interface {
	Capture() (image.Image, error)
}

// ScreenCapturer grabs the primary display through robotgo.
type ScreenCapturer struct{}

var _ Capturer = (*ScreenCapturer)(nil)

func NewScreenCapturer() *ScreenCapturer { return &ScreenCapturer{} }

func (c *ScreenCapturer) Capture() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("vision: screen capture failed: %w", err)
	}
	return img, nil
}
