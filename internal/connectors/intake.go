package connectors

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"routesheet/internal"
	"routesheet/internal/scan"
)

// ExtractReceiptAttachments pulls the scannable attachments out of a raw
// RFC822 message. Attachments in unsupported formats are skipped with a note
// rather than failing the message; people forward receipts next to
// signatures, logos and calendar invites.
func ExtractReceiptAttachments(raw []byte) ([]internal.FetchedAttachment, []string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse message: %w", err)
	}

	var out []internal.FetchedAttachment
	var skipped []string
	for _, att := range append(env.Attachments, env.Inlines...) {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			continue
		}
		if !scan.IsSupported(name) {
			skipped = append(skipped, name)
			continue
		}
		out = append(out, internal.FetchedAttachment{FileName: name, Content: att.Content})
	}
	return out, skipped, nil
}

// SaveAttachments writes attachments into the scan directory under the
// message's identity so two messages with same-named receipts never collide.
// Returns the file paths in attachment order, ready for the pipeline.
func SaveAttachments(scanDir, messageKey string, atts []internal.FetchedAttachment) ([]string, error) {
	dir := filepath.Join(scanDir, messageKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(atts))
	for _, att := range atts {
		path := filepath.Join(dir, filepath.Base(att.FileName))
		if err := os.WriteFile(path, att.Content, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
