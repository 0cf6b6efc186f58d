package scan

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"routesheet/internal"
	"routesheet/internal/config"
)

// A PDF page needs at least this much text-layer content before we trust it
// over rasterize-and-OCR.
const minTextLayerChars = 16

// Scanner turns one input file into RawScans, one per page. It owns the
// format boundary: unsupported extensions never reach OCR or extraction.
type Scanner struct {
	cfg    config.Config
	ocr    *Engine
	logger *slog.Logger
}

func NewScanner(cfg config.Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cfg: cfg, ocr: NewEngine(cfg, logger), logger: logger}
}

func (s *Scanner) Scan(ctx context.Context, path string) ([]internal.RawScan, error) {
	if !IsSupported(path) {
		return nil, ErrUnsupportedFormat
	}

	sourceID := filepath.Base(path)
	if IsPDF(path) {
		return s.scanPDF(ctx, path, sourceID)
	}

	text, err := s.ocr.ExtractText(ctx, path)
	if err != nil {
		return nil, err
	}
	return []internal.RawScan{{SourceID: sourceID, Page: 1, Text: text}}, nil
}

func (s *Scanner) scanPDF(ctx context.Context, path, sourceID string) ([]internal.RawScan, error) {
	if pages, err := TextLayerPages(path); err == nil && hasUsableText(pages) {
		s.logger.Debug("pdf text layer used", "path", path, "pages", len(pages))
		out := make([]internal.RawScan, 0, len(pages))
		for i, text := range pages {
			out = append(out, internal.RawScan{SourceID: sourceID, Page: i + 1, Text: text})
		}
		return out, nil
	}

	rasterDir := filepath.Join(s.cfg.ScanDir, "raster")
	images, err := RasterizePages(path, s.cfg.RasterDPI, rasterDir)
	if err != nil {
		return nil, ErrUnreadable
	}

	out := make([]internal.RawScan, 0, len(images))
	for i, imgPath := range images {
		text, err := s.ocr.ExtractText(ctx, imgPath)
		if err != nil {
			return nil, err
		}
		out = append(out, internal.RawScan{SourceID: sourceID, Page: i + 1, Text: text})
	}
	return out, nil
}

func hasUsableText(pages []string) bool {
	for _, p := range pages {
		if len(strings.TrimSpace(p)) >= minTextLayerChars {
			return true
		}
	}
	return false
}
