// File: internal/recorder/process.go
package recorder

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "image/png"

	"github.com/xkilldash9x/deskpilot-cli/internal/session"
	"github.com/xkilldash9x/deskpilot-cli/internal/vision"
)

// fallbackCSVHeader stands in when the backend returns nothing usable.
const fallbackCSVHeader = "type,bbox,interactivity,content,source"

// processRecording turns the raw captures of one finished recording into
// parsed CSV context files. Files are handled in capture order; a failure on
// one file is logged and the rest continue. The password parameter is
// reserved for at-rest encryption of the output.
func (s *Service) processRecording(rec session.Recording, _ string) error {
	imagesDir := filepath.Join(rec.BaseFolder, "images")
	actionDir := filepath.Join(rec.BaseFolder, "encrypted_csv", rec.ActionFolder)
	if err := os.MkdirAll(actionDir, 0o755); err != nil {
		return fmt.Errorf("recorder: creating action folder: %w", err)
	}

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return fmt.Errorf("recorder: reading images folder: %w", err)
	}

	type rawCapture struct {
		name string
		meta vision.CaptureMeta
	}
	var captures []rawCapture
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if meta, ok := vision.ParseCaptureName(e.Name()); ok {
			captures = append(captures, rawCapture{name: e.Name(), meta: meta})
		}
	}
	sort.Slice(captures, func(i, j int) bool {
		return captures[i].meta.Timestamp < captures[j].meta.Timestamp
	})

	s.logger.Info("Processing recorded captures",
		zap.Int("count", len(captures)),
		zap.String("action_folder", rec.ActionFolder))

	ctx := context.Background()
	for seq, rc := range captures {
		path := filepath.Join(imagesDir, rc.name)
		if err := s.processCapture(ctx, path, actionDir, rc.meta, seq); err != nil {
			s.logger.Warn("Skipping capture", zap.String("file", rc.name), zap.Error(err))
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Cannot delete processed capture", zap.String("file", rc.name), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) processCapture(ctx context.Context, path, actionDir string, meta vision.CaptureMeta, seq int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening capture: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decoding capture: %w", err)
	}

	parsed, err := s.parser.ParseScreen(ctx, img)
	if err != nil {
		return fmt.Errorf("parsing capture: %w", err)
	}

	csvContent := annotateCSV(parsed, meta, seq)
	outName := fmt.Sprintf("parsed_content_%d_%d.csv", meta.Timestamp, s.now().Unix())
	outPath := filepath.Join(actionDir, outName)
	if err := os.WriteFile(outPath, []byte(csvContent), 0o644); err != nil {
		return fmt.Errorf("writing parsed CSV: %w", err)
	}
	return nil
}

// annotateCSV appends the action label, mouse coordinates and sequence number
// to every row of the backend's CSV output.
func annotateCSV(parsed string, meta vision.CaptureMeta, seq int) string {
	lines := strings.Split(strings.TrimRight(parsed, "\n"), "\n")

	header := fallbackCSVHeader
	var rows []string
	if len(lines) > 0 && lines[0] != "" {
		header = lines[0]
		rows = lines[1:]
	}

	out := make([]string, 0, len(rows)+1)
	out = append(out, header+",action,mouse_x,mouse_y,action_number")
	for _, row := range rows {
		out = append(out, fmt.Sprintf("%s,%s,%s,%s,%d", row, meta.Label, meta.MouseX, meta.MouseY, seq))
	}
	if len(rows) == 0 {
		out = append(out, fmt.Sprintf(",,,,%s,%s,%s,%d", meta.Label, meta.MouseX, meta.MouseY, seq))
	}
	return strings.Join(out, "\n")
}
