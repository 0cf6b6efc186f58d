package scan

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHOCR reconstructs reading-order plain text from tesseract's hOCR
// output: one text line per ocr_line element, words joined by single spaces.
func ParseHOCR(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	var lines []string
	doc.Find(".ocr_line, .ocr_caption, .ocr_textfloat").Each(func(_ int, line *goquery.Selection) {
		words := []string{}
		line.Find(".ocrx_word").Each(func(_ int, w *goquery.Selection) {
			if t := strings.TrimSpace(w.Text()); t != "" {
				words = append(words, t)
			}
		})
		if len(words) == 0 {
			// Some engines emit bare text inside the line element.
			if t := strings.TrimSpace(line.Text()); t != "" {
				words = append(words, strings.Fields(t)...)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	})

	return strings.Join(lines, "\n"), nil
}
