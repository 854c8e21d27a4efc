package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"bookharvest/internal/adapters/datalake"
	"bookharvest/internal/adapters/datamart"
	"bookharvest/internal/adapters/datamart/bunstore"
	"bookharvest/internal/adapters/datamart/redisstore"
	"bookharvest/internal/adapters/ledger"
	"bookharvest/internal/adapters/source"
	"bookharvest/internal/config"
	"bookharvest/internal/core/domain/models"
	"bookharvest/internal/core/domain/ports"
	"bookharvest/internal/core/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gutenbergText(title, author string) string {
	return fmt.Sprintf(`The Project Gutenberg eBook
Title: %s
Author: %s
Language: English
*** START OF THE PROJECT GUTENBERG EBOOK ***
Chapter 1. The body of the book.
*** END OF THE PROJECT GUTENBERG EBOOK ***
License footer.`, title, author)
}

// bookServer serves Gutenberg-style plain text for a fixed set of ids.
func bookServer(t *testing.T, texts map[int64]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if _, err := fmt.Sscanf(r.URL.Path, "/cache/epub/%d/", &id); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		text, ok := texts[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, text)
	}))
}

type harness struct {
	cfg    *config.Config
	lake   *datalake.Store
	store  ports.MetadataStore
	ledger *ledger.FileLedger
}

func newHarness(t *testing.T, baseURL string) *harness {
	t.Helper()

	cfg := &config.Config{
		SourceBaseURL: baseURL,
		RunDelayMS:    0,
	}

	store, err := bunstore.NewSQLite(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	l, err := ledger.Open(t.TempDir())
	require.NoError(t, err)

	return &harness{
		cfg:    cfg,
		lake:   datalake.NewStore(t.TempDir()),
		store:  store,
		ledger: l,
	}
}

func (h *harness) harvester() *service.Harvester {
	fetcher := source.NewGutenbergFetcher(h.cfg.SourceBaseURL, "info")
	return service.NewHarvester(h.cfg, fetcher, h.lake, h.store, h.ledger)
}

func TestHarvester_Run(t *testing.T) {
	ts := bookServer(t, map[int64]string{
		1342: gutenbergText("Pride and Prejudice", "Jane Austen"),
		158:  gutenbergText("Emma", "Jane Austen"),
		// 42 is not served: fetch fails with 404.
		// 77 has a header without an Author line.
		77: `Title: Orphan Work
*** START OF THE PROJECT GUTENBERG EBOOK ***
body
*** END OF THE PROJECT GUTENBERG EBOOK ***`,
	})
	defer ts.Close()

	h := newHarness(t, ts.URL)
	_, err := h.ledger.Add(1342, 158, 42, 77)
	require.NoError(t, err)

	sum, err := h.harvester().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Downloaded)
	assert.Equal(t, 2, sum.Failed)

	// Every identifier ends in exactly one terminal set.
	pending, downloaded, failed := h.ledger.Counts()
	assert.Equal(t, 0, pending)
	assert.Equal(t, 2, downloaded)
	assert.Equal(t, 2, failed)

	assert.True(t, h.ledger.IsDownloaded(1342))
	assert.True(t, h.ledger.IsDownloaded(158))

	reason, ok := h.ledger.FailureReason(42)
	require.True(t, ok)
	assert.Contains(t, reason, "404")

	// Missing author: failed with the field named, never downloaded.
	reason, ok = h.ledger.FailureReason(77)
	require.True(t, ok)
	assert.Contains(t, reason, "author")
	assert.False(t, h.ledger.IsDownloaded(77))

	// Metadata landed in the datamart.
	book, err := h.store.GetByID(context.Background(), 1342)
	require.NoError(t, err)
	assert.Equal(t, "Pride and Prejudice", book.Title)
	assert.Equal(t, "Jane Austen", book.Author)
	assert.Equal(t, "English", book.Language)
	assert.NotEmpty(t, book.BodyPath)
	assert.False(t, book.ExtractedAt.IsZero())

	books, err := h.store.QueryByAuthor(context.Background(), "Jane Austen")
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestHarvester_ReingestionYieldsSingleRecord(t *testing.T) {
	ts := bookServer(t, map[int64]string{
		1342: gutenbergText("Pride and Prejudice", "Jane Austen"),
	})
	defer ts.Close()

	h := newHarness(t, ts.URL)
	_, err := h.ledger.Add(1342)
	require.NoError(t, err)

	_, err = h.harvester().Run(context.Background())
	require.NoError(t, err)

	// A second run with a fresh ledger (manual re-queue of a downloaded
	// book) must upsert, not duplicate.
	l2, err := ledger.Open(t.TempDir())
	require.NoError(t, err)
	_, err = l2.Add(1342)
	require.NoError(t, err)
	h.ledger = l2

	_, err = h.harvester().Run(context.Background())
	require.NoError(t, err)

	books, err := h.store.QueryByAuthor(context.Background(), "Jane Austen")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(1342), books[0].BookID)
}

func TestHarvester_BatchLimitAndResume(t *testing.T) {
	texts := make(map[int64]string)
	for id := int64(1); id <= 5; id++ {
		texts[id] = gutenbergText(fmt.Sprintf("Book %d", id), "Some Author")
	}
	ts := bookServer(t, texts)
	defer ts.Close()

	h := newHarness(t, ts.URL)
	_, err := h.ledger.Seed(1, 5, true)
	require.NoError(t, err)

	// First run stops after 2 identifiers, simulating an interruption.
	h.cfg.RunBatchSize = 2
	sum, err := h.harvester().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Downloaded)

	pending, downloaded, _ := h.ledger.Counts()
	assert.Equal(t, 3, pending)
	assert.Equal(t, 2, downloaded)

	// Second run picks up exactly the remaining identifiers.
	h.cfg.RunBatchSize = 0
	sum, err = h.harvester().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Downloaded)

	pending, downloaded, failed := h.ledger.Counts()
	assert.Equal(t, 0, pending)
	assert.Equal(t, 5, downloaded)
	assert.Equal(t, 0, failed)
}

func TestHarvester_CancelledBetweenIdentifiers(t *testing.T) {
	ts := bookServer(t, map[int64]string{
		1: gutenbergText("Book 1", "A"),
		2: gutenbergText("Book 2", "A"),
	})
	defer ts.Close()

	h := newHarness(t, ts.URL)
	_, err := h.ledger.Seed(1, 2, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := h.harvester().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Downloaded)

	// Nothing processed, nothing corrupted: both ids still pending.
	pending, _, _ := h.ledger.Counts()
	assert.Equal(t, 2, pending)
}

// failingStore simulates an unreachable backend mid-run.
type failingStore struct{}

func (f *failingStore) Upsert(ctx context.Context, book *models.Book) (ports.UpsertResult, error) {
	return 0, fmt.Errorf("%w: connection refused", datamart.ErrConnection)
}

func (f *failingStore) GetByID(ctx context.Context, bookID int64) (*models.Book, error) {
	return nil, datamart.ErrNotFound
}

func (f *failingStore) QueryByAuthor(ctx context.Context, author string) ([]*models.Book, error) {
	return nil, nil
}

func (f *failingStore) Close() error { return nil }

func TestHarvester_DatamartUnreachableStopsRun(t *testing.T) {
	ts := bookServer(t, map[int64]string{
		1: gutenbergText("Book 1", "A"),
		2: gutenbergText("Book 2", "A"),
	})
	defer ts.Close()

	h := newHarness(t, ts.URL)
	h.store = &failingStore{}
	_, err := h.ledger.Seed(1, 2, true)
	require.NoError(t, err)

	_, err = h.harvester().Run(context.Background())
	require.Error(t, err)

	// The current item was marked failed before the run stopped; the
	// rest stayed pending for the next run.
	pending, downloaded, failed := h.ledger.Counts()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, downloaded)
	assert.Equal(t, 1, failed)
}

// Same stop semantics, but through a real backend whose server dies
// between open and the run. The dial error must come back classified so
// the run recognizes it as fatal.
func TestHarvester_RedisBackendLostStopsRun(t *testing.T) {
	ts := bookServer(t, map[int64]string{
		1: gutenbergText("Book 1", "A"),
		2: gutenbergText("Book 2", "A"),
	})
	defer ts.Close()

	h := newHarness(t, ts.URL)

	mr := miniredis.RunT(t)
	store, err := redisstore.New(redisstore.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	h.store = store

	_, err = h.ledger.Seed(1, 2, true)
	require.NoError(t, err)

	mr.Close()

	_, err = h.harvester().Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, datamart.ErrConnection), "got %v", err)

	pending, downloaded, failed := h.ledger.Counts()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, downloaded)
	assert.Equal(t, 1, failed)
}

// corruptLedger hands out an identifier that it also reports as
// downloaded, breaking the pending/downloaded exclusivity.
type corruptLedger struct{}

func (c *corruptLedger) NextPending() (int64, bool)     { return 1342, true }
func (c *corruptLedger) MarkDownloaded(int64) error     { return nil }
func (c *corruptLedger) MarkFailed(int64, string) error { return nil }
func (c *corruptLedger) IsDownloaded(int64) bool        { return true }

func TestHarvester_OverlappingLedgerSetsAreFatal(t *testing.T) {
	ts := bookServer(t, map[int64]string{
		1342: gutenbergText("Pride and Prejudice", "Jane Austen"),
	})
	defer ts.Close()

	h := newHarness(t, ts.URL)
	fetcher := source.NewGutenbergFetcher(h.cfg.SourceBaseURL, "info")
	harv := service.NewHarvester(h.cfg, fetcher, h.lake, h.store, &corruptLedger{})

	sum, err := harv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger invariant violation")
	assert.Equal(t, 0, sum.Downloaded)
}
