package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Status is the ledger state of a single book identifier.
type Status int

const (
	StatusPending Status = iota
	StatusDownloaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloaded:
		return "downloaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Book is the bibliographic metadata extracted from a raw header and
// persisted in the datamart. BookID is the primary key in every backend.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b" json:"-"`

	BookID      int64     `bun:"book_id,pk" json:"book_id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Author      string    `bun:"author,notnull" json:"author"`
	Language    string    `bun:"language,notnull" json:"language"`
	BodyPath    string    `bun:"body_path,nullzero" json:"body_path,omitempty"`
	ExtractedAt time.Time `bun:"extracted_at,nullzero" json:"extracted_at,omitempty"`
}

// RawBook is one fetched text split into header and body, addressed by
// the datalake partition it was ingested into.
type RawBook struct {
	BookID int64
	Date   string // YYYYMMDD
	Hour   string // HH
	Header string
	Body   string
}

// Outcome summarizes one ingestion attempt for a single identifier.
type Outcome struct {
	BookID int64
	Status Status
	Reason string
}
