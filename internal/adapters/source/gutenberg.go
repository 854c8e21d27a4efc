package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookharvest/internal/adapters/util"
	"bookharvest/internal/core/domain/ports"
)

// FetchError reports a failed retrieval of one book. The fetcher makes a
// single attempt; retry policy lives with the caller (explicit requeue).
type FetchError struct {
	BookID     int64
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch book %d: unexpected status %d", e.BookID, e.StatusCode)
	}
	return fmt.Sprintf("fetch book %d: %v", e.BookID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var _ ports.BookFetcher = (*GutenbergFetcher)(nil)

// GutenbergFetcher retrieves plain-text books from a Gutenberg-style
// mirror at {base}/cache/epub/{id}/pg{id}.txt.
type GutenbergFetcher struct {
	baseURL string
	client  *http.Client
}

func NewGutenbergFetcher(baseURL, logLevel string) *GutenbergFetcher {
	return &GutenbergFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: &util.LoggingTransport{LogLevel: logLevel},
			Timeout:   5 * time.Minute,
		},
	}
}

func (f *GutenbergFetcher) Fetch(ctx context.Context, bookID int64) (string, error) {
	url := fmt.Sprintf("%s/cache/epub/%d/pg%d.txt", f.baseURL, bookID, bookID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{BookID: bookID, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{BookID: bookID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{BookID: bookID, StatusCode: resp.StatusCode}
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{BookID: bookID, Err: err}
	}

	return string(text), nil
}
