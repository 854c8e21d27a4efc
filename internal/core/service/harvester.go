package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bookharvest/internal/adapters/datalake"
	"bookharvest/internal/adapters/datamart"
	"bookharvest/internal/config"
	"bookharvest/internal/core/domain/models"
	"bookharvest/internal/core/domain/ports"
	"bookharvest/internal/extract"
	"bookharvest/pkg/logger"
)

// Summary aggregates the outcomes of one harvest run.
type Summary struct {
	Downloaded int
	Failed     int
}

// Harvester drives the ingestion pipeline: for each pending identifier it
// fetches the raw text, writes it to the datalake, extracts metadata,
// upserts it into the datamart and records the outcome in the ledger.
// Processing is strictly sequential; the ledger is the only shared state
// and is updated exactly once per identifier per attempt.
type Harvester struct {
	cfg     *config.Config
	fetcher ports.BookFetcher
	lake    ports.RawStore
	store   ports.MetadataStore
	ledger  ports.ControlLedger
	log     *log.Logger
	now     func() time.Time
}

func NewHarvester(
	cfg *config.Config,
	fetcher ports.BookFetcher,
	lake ports.RawStore,
	store ports.MetadataStore,
	ledger ports.ControlLedger,
) *Harvester {
	return &Harvester{
		cfg:     cfg,
		fetcher: fetcher,
		lake:    lake,
		store:   store,
		ledger:  ledger,
		log:     logger.New("harvester"),
		now:     time.Now,
	}
}

// Run folds over the pending identifiers until the set is empty, the
// batch limit is hit or the context is cancelled. A failed identifier
// never aborts the batch; a failed ledger write does, since the ledger is
// the correctness anchor. An unreachable datamart also stops the run
// after the current identifier is marked failed.
func (h *Harvester) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	processed := 0

	for {
		// Cancellation is honored between identifiers; each completed
		// identifier already committed its ledger transition, so an
		// interrupted run resumes cleanly.
		if ctx.Err() != nil {
			h.log.Printf("Run cancelled after %d identifiers", processed)
			return sum, nil
		}

		if h.cfg.RunBatchSize > 0 && processed >= h.cfg.RunBatchSize {
			h.log.Printf("Batch limit of %d reached", h.cfg.RunBatchSize)
			return sum, nil
		}

		bookID, ok := h.ledger.NextPending()
		if !ok {
			h.log.Printf("Pending set empty. Downloaded: %d, Failed: %d", sum.Downloaded, sum.Failed)
			return sum, nil
		}

		// At-most-once successful download: a pending identifier can
		// never be downloaded under the ledger invariant, so seeing one
		// means the ledger itself is corrupt.
		if h.ledger.IsDownloaded(bookID) {
			return sum, fmt.Errorf("ledger invariant violation: pending book %d already downloaded", bookID)
		}

		outcome, procErr := h.processOne(ctx, bookID)

		var markErr error
		switch outcome.Status {
		case models.StatusDownloaded:
			sum.Downloaded++
			h.log.Printf("OK book %d", bookID)
			markErr = h.ledger.MarkDownloaded(bookID)
		default:
			sum.Failed++
			h.log.Printf("FAILED book %d: %s", bookID, outcome.Reason)
			markErr = h.ledger.MarkFailed(bookID, outcome.Reason)
		}
		if markErr != nil {
			return sum, fmt.Errorf("ledger update for book %d failed: %w", bookID, markErr)
		}

		if procErr != nil && errors.Is(procErr, datamart.ErrConnection) {
			return sum, fmt.Errorf("datamart unreachable, stopping run: %w", procErr)
		}

		processed++

		// Politeness pause between items.
		if h.cfg.RunDelayMS > 0 {
			time.Sleep(time.Duration(h.cfg.RunDelayMS) * time.Millisecond)
		}
	}
}

// processOne runs the per-identifier state machine:
// fetch -> split -> store raw -> extract -> upsert metadata.
// Every failure is converted into a failed outcome with a reason; the
// underlying error is returned alongside so the caller can recognize
// fatal classes.
func (h *Harvester) processOne(ctx context.Context, bookID int64) (models.Outcome, error) {
	fail := func(err error) (models.Outcome, error) {
		return models.Outcome{
			BookID: bookID,
			Status: models.StatusFailed,
			Reason: err.Error(),
		}, err
	}

	text, err := h.fetcher.Fetch(ctx, bookID)
	if err != nil {
		return fail(err)
	}

	header, body, err := extract.Split(text)
	if err != nil {
		return fail(fmt.Errorf("split book %d: %w", bookID, err))
	}

	date, hour := datalake.Partition(h.now())
	bodyPath, err := h.lake.Write(models.RawBook{
		BookID: bookID,
		Date:   date,
		Hour:   hour,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return fail(fmt.Errorf("datalake write for book %d: %w", bookID, err))
	}

	book, err := extract.Extract(header)
	if err != nil {
		return fail(fmt.Errorf("extract book %d: %w", bookID, err))
	}

	book.BookID = bookID
	book.BodyPath = bodyPath
	book.ExtractedAt = h.now().UTC()

	if _, err := h.store.Upsert(ctx, book); err != nil {
		return fail(fmt.Errorf("metadata upsert for book %d: %w", bookID, err))
	}

	return models.Outcome{BookID: bookID, Status: models.StatusDownloaded}, nil
}
