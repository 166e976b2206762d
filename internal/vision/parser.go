// File: internal/vision/parser.go
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
)

// Parser converts a screen capture into CSV element data.
type Parser interface {
	ParseScreen(ctx context.Context, img image.Image) (string, error)
}

// HTTPParser posts base64 PNG captures to the layout parsing backend and
// extracts the parsed_content field of its JSON response.
type HTTPParser struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Parser = (*HTTPParser)(nil)

// NewHTTPParser builds the backend client from the vision configuration.
func NewHTTPParser(cfg config.VisionConfig, logger *zap.Logger) *HTTPParser {
	return &HTTPParser{
		url: cfg.ParserURL,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("vision.parser"),
	}
}

type parseRequest struct {
	Image string `json:"image"`
}

type parseResponse struct {
	ParsedContent string `json:"parsed_content"`
}

// ParseScreen encodes the capture as PNG and submits it, retrying transient
// backend failures.
func (p *HTTPParser) ParseScreen(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("vision: encoding capture as PNG: %w", err)
	}

	body, err := json.Marshal(parseRequest{
		Image: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return "", fmt.Errorf("vision: marshaling parse request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 90 * time.Second
	b.MaxInterval = 15 * time.Second

	var content string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("vision: creating parse request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			p.logger.Warn("Layout backend unreachable, retrying...", zap.Error(err))
			return fmt.Errorf("vision: backend request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("vision: reading backend response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("vision: backend returned status %d: %s", resp.StatusCode, string(respBody))
			if resp.StatusCode >= 500 {
				p.logger.Warn("Layout backend error, retrying...", zap.Int("status", resp.StatusCode))
				return err
			}
			return backoff.Permanent(err)
		}

		var parsed parseResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("vision: decoding backend response: %w", err))
		}
		if parsed.ParsedContent == "" {
			return backoff.Permanent(fmt.Errorf("vision: backend response missing parsed_content"))
		}
		content = parsed.ParsedContent
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// Reader couples a Capturer with a Parser so the task loop can read the
// current screen state in one call.
type Reader struct {
	Capturer Capturer
	Parser   Parser
}

func (r *Reader) ReadScreen(ctx context.Context) (string, error) {
	img, err := r.Capturer.Capture()
	if err != nil {
		return "", err
	}
	return r.Parser.ParseScreen(ctx, img)
}
