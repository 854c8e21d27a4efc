// Package datamart defines the shared failure modes of the metadata
// backends. The three implementations (bun over sqlite, bun over
// postgres, redis) live in subpackages and satisfy ports.MetadataStore
// with identical external semantics.
package datamart

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"bookharvest/internal/core/domain/models"
)

var (
	// ErrNotFound is returned by GetByID when no record exists for the
	// identifier.
	ErrNotFound = errors.New("metadata record not found")

	// ErrConnection marks an unreachable backend. Detected fail-fast at
	// open; fatal to the current run when it appears mid-flight.
	ErrConnection = errors.New("datamart connection failed")

	// ErrConstraint marks a malformed record, e.g. a missing primary key.
	ErrConstraint = errors.New("metadata record violates constraints")
)

// ValidateRecord rejects records that no backend may accept. Every store
// calls it before touching storage so a malformed record fails the same
// way everywhere.
func ValidateRecord(book *models.Book) error {
	if book == nil {
		return fmt.Errorf("%w: nil record", ErrConstraint)
	}
	if book.BookID <= 0 {
		return fmt.Errorf("%w: book_id must be positive (got %d)", ErrConstraint, book.BookID)
	}
	if book.Title == "" {
		return fmt.Errorf("%w: title is empty", ErrConstraint)
	}
	if book.Author == "" {
		return fmt.Errorf("%w: author is empty", ErrConstraint)
	}
	return nil
}

// Classify maps transport-level failures onto ErrConnection so callers
// can tell an unreachable backend from a statement error. Any other
// error passes through unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrConnection) {
		return err
	}
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return err
}
