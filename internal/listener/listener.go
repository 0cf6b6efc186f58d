package listener

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"routesheet/internal/config"
	"routesheet/internal/connectors"
	gmailconnector "routesheet/internal/connectors/gmail"
	imapconnector "routesheet/internal/connectors/imap"
	"routesheet/internal/pipeline"
	"routesheet/internal/scan"
	"routesheet/internal/storage"
)

// Service polls a mailbox on an interval, stores new receipt mail, runs the
// extraction pipeline over the attachments and, when auto export is on,
// leaves finished route sheets in the output directory.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	logger *slog.Logger
}

func NewService(db *storage.DB, cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, cfg: cfg, logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	for {
		if err := s.runCycle(ctx); err != nil {
			s.logger.Error("listener cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetcher := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetched, err := fetcher.FetchAndStore(s.cfg.ListenerLabel, s.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	// With auto export off the cycle only fetches; processing waits for an
	// explicit mail:process run.
	processed := 0
	batches := 0
	if s.cfg.ListenerAutoExport {
		scanner := scan.NewScanner(s.cfg, s.logger)
		processor := pipeline.NewProcessingService(s.db, s.cfg, scanner, s.logger)
		mailProc := connectors.NewMailProcessService(s.db, s.cfg, processor, s.logger)

		var results []*pipeline.SessionResult
		processed, results, err = mailProc.ProcessPending(ctx, s.cfg.ListenerFetchMax)
		if err != nil {
			return err
		}
		batches = len(results)
	}

	s.logger.Info("listener cycle done",
		"provider", provider,
		"fetched", fetched.Fetched,
		"stored", fetched.Stored,
		"known", fetched.Known,
		"receipts", fetched.Attachments,
		"processed", processed,
		"batches", batches,
	)
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
