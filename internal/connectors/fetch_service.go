package connectors

import (
	"routesheet/internal/storage"
)

// FetchService pulls receipt mail from a connector into the local store and
// takes a first look at what each new message carries, so a fetch run can
// report how many scannable receipts actually arrived.
type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
}

// FetchResult accounts for one fetch: messages the mailbox returned, how many
// were new versus already known, and how many scannable receipt attachments
// the new ones carry. Skipped lists attachment names in unsupported formats.
type FetchResult struct {
	Fetched     int
	Stored      int
	Known       int
	Attachments int
	Skipped     []string
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		_, created, err := s.store.Store(msg)
		if err != nil {
			return result, err
		}
		if !created {
			result.Known++
			continue
		}
		result.Stored++

		// An unparseable body stays queued; processing reports it later.
		atts, skipped, err := ExtractReceiptAttachments(msg.Raw)
		if err != nil {
			continue
		}
		result.Attachments += len(atts)
		result.Skipped = append(result.Skipped, skipped...)
	}
	return result, nil
}
