package connectors

import "routesheet/internal"

// MailConnector fetches raw receipt emails from a mailbox provider.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
