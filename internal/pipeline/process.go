package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"routesheet/internal"
	"routesheet/internal/config"
	"routesheet/internal/scan"
	"routesheet/internal/storage"
	"routesheet/internal/vendors"
)

// FileScanner is the boundary to OCR and format detection; the concrete
// implementation lives in internal/scan.
type FileScanner interface {
	Scan(ctx context.Context, path string) ([]internal.RawScan, error)
}

// ProcessingService runs one session: files in, finalized batch and sheet
// artifacts out. It owns the in-progress batch exclusively; extraction may
// fan out, aggregation never does.
type ProcessingService struct {
	db      *storage.DB
	cfg     config.Config
	scanner FileScanner
	logger  *slog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, scanner FileScanner, logger *slog.Logger) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessingService{db: db, cfg: cfg, scanner: scanner, logger: logger}
}

// SessionResult reports everything the caller needs to show: the finalized
// sheet, generated artifacts, and every rejection and duplicate warning.
type SessionResult struct {
	BatchID    string
	Sheet      internal.RouteSheet
	Artifacts  []internal.SheetArtifact
	Rejections []internal.Rejection
	Duplicates []internal.DuplicateWarning
}

type outcome struct {
	rec internal.ReceiptRecord
	rej *internal.Rejection
}

type fileOutcome struct {
	outcomes []outcome
}

// ProcessFiles extracts every input, aggregates accepted records in
// submission order, finalizes the batch and generates route-sheet artifacts.
// Per-receipt failures become rejections in the result; only infrastructure
// failures (storage, all-artifact generation) surface as errors.
func (s *ProcessingService) ProcessFiles(ctx context.Context, paths []string) (*SessionResult, error) {
	start := time.Now()

	registry, err := s.db.ListVendors()
	if err != nil {
		return nil, err
	}
	matcher := vendors.NewMatcher(registry, s.cfg.VendorMatchThreshold)

	// Workers write into a position-indexed buffer so aggregation below
	// applies results in original submission order, not completion order.
	results := make([]fileOutcome, len(paths))
	workers := s.cfg.ExtractWorkers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.processFile(ctx, paths[i], matcher)
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	batch := NewBatch()
	if err := s.db.InsertBatch(batch.ID()); err != nil {
		return nil, err
	}

	result := &SessionResult{BatchID: batch.ID()}
	for _, file := range results {
		for _, o := range file.outcomes {
			if o.rej != nil {
				result.Rejections = append(result.Rejections, *o.rej)
				if err := s.db.InsertRejected(batch.ID(), o.rec, *o.rej); err != nil {
					return nil, err
				}
				continue
			}
			slot := batch.Add(o.rec)
			if err := s.db.InsertAccepted(batch.ID(), slot.Position, o.rec); err != nil {
				return nil, err
			}
			if o.rec.Vendor != "" {
				if err := s.db.UpsertVendor(o.rec.Vendor); err != nil {
					return nil, err
				}
			}
		}
	}

	sheet, err := batch.Finalize()
	if err != nil {
		_ = s.db.UpdateBatchStatus(batch.ID(), "empty")
		return result, err
	}
	result.Sheet = sheet
	result.Duplicates = sheet.Duplicates

	if err := s.db.FinalizeBatch(batch.ID(), sheet.Total.StringFixed(2)); err != nil {
		return nil, err
	}

	artifacts, genErr := s.GenerateSheets(sheet)
	result.Artifacts = artifacts

	s.logger.Info("session done",
		"batch", batch.ID(),
		"files", len(paths),
		"accepted", len(sheet.Slots),
		"rejected", len(result.Rejections),
		"duplicates", len(result.Duplicates),
		"artifacts", len(artifacts),
		"ms", time.Since(start).Milliseconds(),
	)
	return result, genErr
}

func (s *ProcessingService) processFile(ctx context.Context, path string, matcher *vendors.Matcher) fileOutcome {
	sourceID := filepath.Base(path)
	scans, err := s.scanner.Scan(ctx, path)
	if err != nil {
		rej := internal.Rejection{SourceID: sourceID, Reason: boundaryReason(err), Detail: err.Error()}
		return fileOutcome{outcomes: []outcome{{rec: internal.ReceiptRecord{SourceID: sourceID}, rej: &rej}}}
	}

	now := time.Now()
	window := WindowFromConfig(s.cfg)
	out := fileOutcome{}
	for _, sc := range scans {
		pageID := sc.SourceID
		if sc.Page > 1 {
			pageID = fmt.Sprintf("%s#p%d", sc.SourceID, sc.Page)
		}
		rec := Extract(Normalize(sc.Text), pageID)
		if rec.Vendor != "" {
			if known, ok := matcher.Canonicalize(rec.Vendor); ok {
				rec.Vendor = known.Name
			}
		}
		validated, rej := Validate(rec, now, window)
		out.outcomes = append(out.outcomes, outcome{rec: validated, rej: rej})
	}
	return out
}

func boundaryReason(err error) internal.RejectReason {
	switch {
	case errors.Is(err, scan.ErrUnsupportedFormat):
		return internal.RejectUnsupportedFormat
	case errors.Is(err, scan.ErrTimeout):
		return internal.RejectExtractionTimeout
	default:
		return internal.RejectUnreadableImage
	}
}

// GenerateSheets splits an over-capacity batch into continuation artifacts
// and renders each one. A failed part is fatal to that artifact only;
// completed artifacts stay valid.
func (s *ProcessingService) GenerateSheets(sheet internal.RouteSheet) ([]internal.SheetArtifact, error) {
	tmpl := TemplateFromConfig(s.cfg)
	parts, err := SplitForCapacity(sheet, tmpl)
	if err != nil {
		return nil, err
	}

	var artifacts []internal.SheetArtifact
	var errs []error
	for i, part := range parts {
		outputPath := filepath.Join(s.cfg.OutputDir, ArtifactName(sheet.BatchID, i, len(parts)))
		artifact, err := Generate(part, tmpl, outputPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("part %d: %w", i+1, err))
			continue
		}
		if err := s.db.InsertArtifact(sheet.BatchID, artifact); err != nil {
			errs = append(errs, err)
			continue
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, errors.Join(errs...)
}

// RegenerateBatch rebuilds a finalized batch from the session store and
// renders it again; slot order and totals reproduce exactly.
func (s *ProcessingService) RegenerateBatch(batchID string) ([]internal.SheetArtifact, error) {
	records, err := s.db.ListAccepted(batchID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}

	batch := NewBatch()
	batch.id = batchID
	for _, rec := range records {
		batch.Add(rec)
	}
	sheet, err := batch.Finalize()
	if err != nil {
		return nil, err
	}
	return s.GenerateSheets(sheet)
}
