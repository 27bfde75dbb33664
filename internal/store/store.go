package store

import (
	"context"

	"github.com/mhoang/mailflow/internal/model"
)

// MessageFilter controls filtering, sorting, and pagination for
// message metadata queries.
type MessageFilter struct {
	Account  *string
	Folder   *string
	Query    *string // matches subject and sender address
	SortBy   string  // "date", "subject", "from_addr", "fetched_at"
	SortDesc bool
	Limit    int
	Offset   int
}

// Store defines the persistence interface for extracted message
// metadata and the bulk send log.
type Store interface {
	// === Message metadata ===

	UpsertMessages(ctx context.Context, msgs []model.MessageRecord) error
	GetMessages(ctx context.Context, opts MessageFilter) ([]model.MessageRecord, error)

	// === Send log ===

	CreateSendJob(ctx context.Context, job model.SendJob) error
	RecordSend(ctx context.Context, rec model.SendRecord) error
	FinishSendJob(ctx context.Context, id string, sent, failed int) error
	GetSendJob(ctx context.Context, id string) (*model.SendJob, error)
	GetSends(ctx context.Context, jobID string) ([]model.SendRecord, error)
}
