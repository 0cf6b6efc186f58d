package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"routesheet/internal/config"
)

var (
	// ErrTimeout means the caller-imposed OCR deadline elapsed. The batch
	// keeps going; the file becomes a rejection.
	ErrTimeout = errors.New("ocr timed out")
	// ErrUnreadable means the OCR engine could not produce text for the image.
	ErrUnreadable = errors.New("unreadable image")
)

// Engine wraps the tesseract binary. Treated as a black box returning raw
// text; empty or garbled output flows into the extractor's unset-field paths
// instead of failing here.
type Engine struct {
	cfg      config.Config
	runner   Runner
	throttle *Throttle
	logger   *slog.Logger
}

func NewEngine(cfg config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		runner:   execRunner{},
		throttle: NewThrottle(cfg.OCRMaxProcs),
		logger:   logger,
	}
}

// ExtractText OCRs one image within the configured timeout.
func (e *Engine) ExtractText(ctx context.Context, imagePath string) (string, error) {
	e.throttle.Acquire()
	defer e.throttle.Release()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.OCRTimeoutMs)*time.Millisecond)
	defer cancel()

	args := []string{imagePath, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.OCRPSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.OCRPSM))
	}
	if e.cfg.OCRUseHOCR {
		args = append(args, "hocr")
	}

	start := time.Now()
	out, errb, err := e.runner.Run(ctx, e.cfg.TesseractPath, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s after %s: %w", imagePath, time.Since(start).Round(time.Millisecond), ErrTimeout)
		}
		return "", fmt.Errorf("tesseract %s: %s: %w", imagePath, firstLine(errb), ErrUnreadable)
	}

	e.logger.Debug("ocr done", "path", imagePath, "ms", time.Since(start).Milliseconds(), "bytes", len(out))

	if e.cfg.OCRUseHOCR {
		text, perr := ParseHOCR(bytes.NewReader(out))
		if perr != nil {
			return "", fmt.Errorf("hocr parse %s: %v: %w", imagePath, perr, ErrUnreadable)
		}
		return text, nil
	}
	return string(out), nil
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}
