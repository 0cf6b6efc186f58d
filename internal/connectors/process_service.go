package connectors

import (
	"context"
	"log/slog"
	"os"

	"routesheet/internal"
	"routesheet/internal/config"
	"routesheet/internal/pipeline"
	"routesheet/internal/storage"
)

// MailProcessService walks fetched emails through the receipt pipeline:
// attachments out of the stored raw message, into the scan directory, then
// one processing session per email.
type MailProcessService struct {
	db        *storage.DB
	cfg       config.Config
	processor *pipeline.ProcessingService
	logger    *slog.Logger
}

func NewMailProcessService(db *storage.DB, cfg config.Config, processor *pipeline.ProcessingService, logger *slog.Logger) *MailProcessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailProcessService{db: db, cfg: cfg, processor: processor, logger: logger}
}

// ProcessPending runs every email still in "fetched" state. A failing email
// is marked and skipped so one bad message never wedges the queue.
func (s *MailProcessService) ProcessPending(ctx context.Context, limit int) (int, []*pipeline.SessionResult, error) {
	emails, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return 0, nil, err
	}

	processed := 0
	var results []*pipeline.SessionResult
	for _, email := range emails {
		result, err := s.processEmail(ctx, email)
		if err != nil {
			s.logger.Error("email processing failed", "emailId", email.ID, "messageId", email.MessageID, "err", err)
			_ = s.db.UpdateEmailStatus(email.ID, "error")
			continue
		}
		processed++
		if result != nil {
			results = append(results, result)
		}
	}
	return processed, results, nil
}

// ProcessOne runs a single stored email by its provider message id.
func (s *MailProcessService) ProcessOne(ctx context.Context, provider, messageID string) (*pipeline.SessionResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return nil, err
	}
	return s.processEmail(ctx, email)
}

func (s *MailProcessService) processEmail(ctx context.Context, email internal.EmailRow) (*pipeline.SessionResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return nil, err
	}

	atts, skipped, err := ExtractReceiptAttachments(raw)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		s.logger.Info("skipped attachments", "emailId", email.ID, "names", skipped)
	}
	if len(atts) == 0 {
		if err := s.db.UpdateEmailStatus(email.ID, "no_attachments"); err != nil {
			return nil, err
		}
		return nil, nil
	}

	paths, err := SaveAttachments(s.cfg.ScanDir, email.Hash, atts)
	if err != nil {
		return nil, err
	}

	result, err := s.processor.ProcessFiles(ctx, paths)
	if err != nil && result == nil {
		return nil, err
	}
	if err != nil {
		// The batch exists but came out empty or partially rendered.
		s.logger.Warn("session finished with error", "emailId", email.ID, "batch", result.BatchID, "err", err)
	}

	if err := s.db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		return nil, err
	}
	if result != nil {
		if err := s.db.SetMetadata("email:"+email.Hash+":batch", result.BatchID); err != nil {
			return nil, err
		}
	}
	return result, nil
}
