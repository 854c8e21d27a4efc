// Package bunstore implements the relational metadata backends on top of
// bun. One store serves both relational variants: the embedded one runs
// over the sqliteshim driver with the sqlite dialect, the client-server
// one over lib/pq with the postgres dialect. Schema and upsert statement
// are dialect-neutral, so both engines expose identical semantics.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookharvest/internal/adapters/datamart"
	"bookharvest/internal/core/domain/models"
	"bookharvest/internal/core/domain/ports"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

var _ ports.MetadataStore = (*Store)(nil)

type Store struct {
	db *bun.DB
}

// NewSQLite opens the embedded variant. The dsn is a file path or
// ":memory:".
func NewSQLite(dsn string) (*Store, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datamart.ErrConnection, err)
	}
	return newStore(db, sqlitedialect.New())
}

// NewPostgres opens the client-server variant over a lib/pq connection.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datamart.ErrConnection, err)
	}
	return newStore(db, pgdialect.New())
}

func newStore(sqldb *sql.DB, dialect schema.Dialect) (*Store, error) {
	db := bun.NewDB(sqldb, dialect)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", datamart.ErrConnection, err)
	}

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*models.Book)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create books table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().Model((*models.Book)(nil)).
		Index("idx_books_author").Column("author").IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create author index: %w", err)
	}
	return nil
}

// Upsert inserts the record or, on a book_id conflict, updates the
// existing row in place. Applying the same record twice reports updated
// the second time and leaves the row unchanged.
func (s *Store) Upsert(ctx context.Context, book *models.Book) (ports.UpsertResult, error) {
	if err := datamart.ValidateRecord(book); err != nil {
		return 0, err
	}

	// Single-writer orchestrator, so an existence probe before the
	// conflict-resolving insert is race-free and lets us report
	// inserted vs updated precisely.
	exists, err := s.db.NewSelect().Model((*models.Book)(nil)).
		Where("book_id = ?", book.BookID).Exists(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to probe book %d: %w", book.BookID, datamart.Classify(err))
	}

	_, err = s.db.NewInsert().Model(book).
		On("CONFLICT (book_id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("author = EXCLUDED.author").
		Set("language = EXCLUDED.language").
		Set("body_path = EXCLUDED.body_path").
		Set("extracted_at = EXCLUDED.extracted_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert book %d: %w", book.BookID, datamart.Classify(err))
	}

	if exists {
		return ports.ResultUpdated, nil
	}
	return ports.ResultInserted, nil
}

func (s *Store) GetByID(ctx context.Context, bookID int64) (*models.Book, error) {
	book := new(models.Book)
	err := s.db.NewSelect().Model(book).Where("book_id = ?", bookID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", bookID, datamart.ErrNotFound)
	}
	if err != nil {
		return nil, datamart.Classify(err)
	}
	return book, nil
}

// QueryByAuthor matches the author exactly (case-sensitive) and returns
// records ordered by book_id.
func (s *Store) QueryByAuthor(ctx context.Context, author string) ([]*models.Book, error) {
	var books []*models.Book
	err := s.db.NewSelect().Model(&books).
		Where("author = ?", author).
		Order("book_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, datamart.Classify(err)
	}
	return books, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
