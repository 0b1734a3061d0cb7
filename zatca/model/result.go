package model

import "time"

type SubmissionStatus string

const (
	StatusCleared  SubmissionStatus = "CLEARED"
	StatusRejected SubmissionStatus = "REJECTED"
	StatusFailed   SubmissionStatus = "FAILED"
)

// SubmissionResult is produced once per submission attempt sequence,
// including its internal retries. The caller persists it.
type SubmissionResult struct {
	Status        SubmissionStatus
	AuthorityUUID string
	QRCode        string

	// InvoiceHash is the lowercase-hex digest of the canonical document;
	// it becomes the next invoice's PreviousHash once this one clears.
	InvoiceHash string

	// ReportingStatus is set only when an automatic report followed a
	// successful clearance.
	ReportingStatus string
	// ReportingError records a failed automatic report. It never
	// downgrades Status from CLEARED.
	ReportingError string

	Err error
}

type ReportingResult struct {
	Status     string
	Message    string
	ReportedAt time.Time
}

// OAuthToken is process-local, per environment. Replaced wholesale on
// refresh, never partially mutated.
type OAuthToken struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

func (t OAuthToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}
