// File: internal/vision/save.go
package vision

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CaptureName builds the raw screenshot filename
// raw_<unix>_<label>_folder_<action>[_mouse_x_y].png.
func CaptureName(ts time.Time, label, actionFolder string, mouseX, mouseY *int) string {
	mouse := ""
	if mouseX != nil && mouseY != nil {
		mouse = fmt.Sprintf("_mouse_%d_%d", *mouseX, *mouseY)
	}
	return fmt.Sprintf("raw_%d_%s_folder_%s%s.png", ts.Unix(), label, actionFolder, mouse)
}

var captureTimestampRe = regexp.MustCompile(`^raw_(\d+)_.*\.png$`)

// CaptureTimestamp extracts the unix timestamp embedded in a raw capture
// filename.
func CaptureTimestamp(filename string) (int64, bool) {
	m := captureTimestampRe.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// CaptureMeta holds the fields encoded in a raw capture filename.
type CaptureMeta struct {
	Timestamp int64
	Label     string
	MouseX    string
	MouseY    string
}

// ParseCaptureName recovers the metadata from a raw capture filename. Mouse
// coordinates default to "0" when absent.
func ParseCaptureName(filename string) (CaptureMeta, bool) {
	ts, ok := CaptureTimestamp(filename)
	if !ok {
		return CaptureMeta{}, false
	}

	stem := strings.TrimSuffix(filename, ".png")
	parts := strings.Split(stem, "_")

	meta := CaptureMeta{Timestamp: ts, Label: "Unknown", MouseX: "0", MouseY: "0"}
	if len(parts) >= 3 {
		meta.Label = parts[2]
	}
	for i, p := range parts {
		if p == "mouse" && len(parts) > i+2 {
			meta.MouseX = parts[i+1]
			meta.MouseY = parts[i+2]
			break
		}
	}
	return meta, true
}

// SaveCapture writes the capture into imagesDir under the standard raw name
// and refreshes the frame store. The store update is best effort; the file on
// disk is what post-processing consumes.
func SaveCapture(imagesDir string, img image.Image, name string, store *FrameStore) (string, error) {
	path := filepath.Join(imagesDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("vision: creating capture file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("vision: writing capture file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("vision: closing capture file: %w", err)
	}

	if store != nil {
		if err := store.Store(img); err != nil {
			// The saved file is intact; only the live preview is stale.
			return path, nil
		}
	}
	return path, nil
}
