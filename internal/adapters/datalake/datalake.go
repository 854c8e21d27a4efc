// Package datalake stores raw header/body text on disk, partitioned by
// ingestion date and hour: {root}/{YYYYMMDD}/{HH}/{id}_header.txt and
// {id}_body.txt. A write only ever touches its own partition; earlier
// partitions keep the history of prior ingestion attempts.
package datalake

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bookharvest/internal/core/domain/models"
	"bookharvest/internal/core/domain/ports"
)

// ErrNotFound is returned when no raw record exists for the requested
// identifier and partition.
var ErrNotFound = errors.New("raw record not found")

var _ ports.RawStore = (*Store)(nil)

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Partition returns the date and hour partition keys for a point in time.
func Partition(t time.Time) (date, hour string) {
	return t.Format("20060102"), t.Format("15")
}

// Write persists both parts of a raw book into its partition and returns
// the body file path, which the datamart records alongside the metadata.
// Writing the same identifier into the same partition overwrites it;
// other partitions are never touched.
func (s *Store) Write(raw models.RawBook) (string, error) {
	dir := filepath.Join(s.root, raw.Date, raw.Hour)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create partition %s/%s: %w", raw.Date, raw.Hour, err)
	}

	headerPath := filepath.Join(dir, fmt.Sprintf("%d_header.txt", raw.BookID))
	bodyPath := filepath.Join(dir, fmt.Sprintf("%d_body.txt", raw.BookID))

	if err := os.WriteFile(headerPath, []byte(raw.Header), 0o644); err != nil {
		return "", fmt.Errorf("failed to write header for book %d: %w", raw.BookID, err)
	}
	if err := os.WriteFile(bodyPath, []byte(raw.Body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write body for book %d: %w", raw.BookID, err)
	}

	return bodyPath, nil
}

// Read loads the header and body of a book from the given partition.
func (s *Store) Read(bookID int64, date, hour string) (string, string, error) {
	dir := filepath.Join(s.root, date, hour)

	header, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%d_header.txt", bookID)))
	if os.IsNotExist(err) {
		return "", "", fmt.Errorf("book %d in %s/%s: %w", bookID, date, hour, ErrNotFound)
	}
	if err != nil {
		return "", "", err
	}

	body, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%d_body.txt", bookID)))
	if os.IsNotExist(err) {
		return "", "", fmt.Errorf("book %d in %s/%s: %w", bookID, date, hour, ErrNotFound)
	}
	if err != nil {
		return "", "", err
	}

	return string(header), string(body), nil
}
