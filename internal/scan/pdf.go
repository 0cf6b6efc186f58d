package scan

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	pdf "github.com/ledongthuc/pdf"
)

// TextLayerPages reads the embedded text layer of a born-digital PDF, one
// string per page. Scanned PDFs come back empty and fall through to
// rasterization.
func TextLayerPages(path string) ([]string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// RasterizePages renders each PDF page to a PNG under destDir and returns
// the image paths in page order.
func RasterizePages(path string, dpi int, destDir string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	out := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render %s page %d: %w", path, i+1, err)
		}
		imgPath := filepath.Join(destDir, fmt.Sprintf("%s_page%d.png", base, i+1))
		f, err := os.Create(imgPath)
		if err != nil {
			return nil, err
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		out = append(out, imgPath)
	}
	return out, nil
}
