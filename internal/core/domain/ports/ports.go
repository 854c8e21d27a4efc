package ports

import (
	"bookharvest/internal/core/domain/models"
	"context"
)

// BookFetcher retrieves the raw text of a single book. One attempt per
// call; retry policy belongs to the caller.
type BookFetcher interface {
	Fetch(ctx context.Context, bookID int64) (string, error)
}

// RawStore is the write-once datalake for header/body text, partitioned
// by ingestion date and hour.
type RawStore interface {
	Write(raw models.RawBook) (bodyPath string, err error)
	Read(bookID int64, date, hour string) (header, body string, err error)
}

// UpsertResult reports whether an upsert created a new record or
// replaced an existing one.
type UpsertResult int

const (
	ResultInserted UpsertResult = iota
	ResultUpdated
)

func (r UpsertResult) String() string {
	if r == ResultInserted {
		return "inserted"
	}
	return "updated"
}

// MetadataStore is the uniform datamart contract shared by the sqlite,
// postgres and redis backends. Upsert is idempotent: applying the same
// record twice leaves storage identical to applying it once.
type MetadataStore interface {
	Upsert(ctx context.Context, book *models.Book) (UpsertResult, error)
	GetByID(ctx context.Context, bookID int64) (*models.Book, error)
	QueryByAuthor(ctx context.Context, author string) ([]*models.Book, error)
	Close() error
}

// ControlLedger tracks which identifiers still need processing, which
// succeeded and which failed. Every mutation is durable before it
// returns; the ledger write is the commit point of an ingestion attempt.
type ControlLedger interface {
	// NextPending returns the oldest pending identifier without removing
	// it. The second return is false when the pending set is empty.
	NextPending() (int64, bool)
	MarkDownloaded(bookID int64) error
	MarkFailed(bookID int64, reason string) error
	IsDownloaded(bookID int64) bool
}
