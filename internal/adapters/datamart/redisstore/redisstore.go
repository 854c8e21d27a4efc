// Package redisstore implements the document-store metadata backend.
// Each record lives as a JSON document at key "book:{id}", so the redis
// key itself is the unique primary key and SET gives replace-or-insert
// semantics, behaviorally equivalent to the relational upsert. A
// secondary set "author:{name}" holds the identifiers per author to
// serve exact-match author queries.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"bookharvest/internal/adapters/datamart"
	"bookharvest/internal/core/domain/models"
	"bookharvest/internal/core/domain/ports"

	"github.com/redis/go-redis/v9"
)

var _ ports.MetadataStore = (*Store)(nil)

type Store struct {
	rdb *redis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to redis and verifies the connection with a PING.
func New(opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: %v", datamart.ErrConnection, err)
	}

	return &Store{rdb: rdb}, nil
}

// classify extends datamart.Classify with the client-side closed state,
// which go-redis reports without a net.Error in the chain.
func classify(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %v", datamart.ErrConnection, err)
	}
	return datamart.Classify(err)
}

func bookKey(bookID int64) string {
	return fmt.Sprintf("book:%d", bookID)
}

func authorKey(author string) string {
	return "author:" + author
}

// Upsert replaces or inserts the document for the record's identifier
// and keeps the author index in sync when the author changed.
func (s *Store) Upsert(ctx context.Context, book *models.Book) (ports.UpsertResult, error) {
	if err := datamart.ValidateRecord(book); err != nil {
		return 0, err
	}

	key := bookKey(book.BookID)
	member := strconv.FormatInt(book.BookID, 10)

	result := ports.ResultInserted
	prev, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		result = ports.ResultUpdated
	case !errors.Is(err, redis.Nil):
		return 0, fmt.Errorf("failed to read book %d: %w", book.BookID, classify(err))
	}

	doc, err := json.Marshal(book)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal book %d: %w", book.BookID, err)
	}

	pipe := s.rdb.TxPipeline()
	if result == ports.ResultUpdated {
		var old models.Book
		if err := json.Unmarshal([]byte(prev), &old); err == nil && old.Author != book.Author {
			pipe.SRem(ctx, authorKey(old.Author), member)
		}
	}
	pipe.Set(ctx, key, doc, 0)
	pipe.SAdd(ctx, authorKey(book.Author), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to upsert book %d: %w", book.BookID, classify(err))
	}

	return result, nil
}

func (s *Store) GetByID(ctx context.Context, bookID int64) (*models.Book, error) {
	raw, err := s.rdb.Get(ctx, bookKey(bookID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("book %d: %w", bookID, datamart.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}

	book := new(models.Book)
	if err := json.Unmarshal([]byte(raw), book); err != nil {
		return nil, fmt.Errorf("corrupt document for book %d: %w", bookID, err)
	}
	return book, nil
}

// QueryByAuthor matches the author exactly (case-sensitive) via the
// author index set and returns records ordered by book_id.
func (s *Store) QueryByAuthor(ctx context.Context, author string) ([]*models.Book, error) {
	members, err := s.rdb.SMembers(ctx, authorKey(author)).Result()
	if err != nil {
		return nil, classify(err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt author index entry %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	books := make([]*models.Book, 0, len(ids))
	for _, id := range ids {
		book, err := s.GetByID(ctx, id)
		if errors.Is(err, datamart.ErrNotFound) {
			// Index entry without a document; skip rather than fail the
			// whole query.
			continue
		}
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
