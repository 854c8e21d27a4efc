package source_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookharvest/internal/adapters/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGutenbergFetcher_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cache/epub/1342/pg1342.txt" {
			fmt.Fprint(w, "raw book text")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	fetcher := source.NewGutenbergFetcher(ts.URL, "info")

	text, err := fetcher.Fetch(context.Background(), 1342)
	require.NoError(t, err)
	assert.Equal(t, "raw book text", text)
}

func TestGutenbergFetcher_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	fetcher := source.NewGutenbergFetcher(ts.URL, "info")

	_, err := fetcher.Fetch(context.Background(), 404404)
	require.Error(t, err)

	var fetchErr *source.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, int64(404404), fetchErr.BookID)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestGutenbergFetcher_ServerDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // immediately, so requests fail at the transport level

	fetcher := source.NewGutenbergFetcher(ts.URL, "info")

	_, err := fetcher.Fetch(context.Background(), 1)
	require.Error(t, err)

	var fetchErr *source.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

const feedXML = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>New Books</title>
  <entry>
    <id>http://www.gutenberg.org/ebooks/1342</id>
    <title>Pride and Prejudice</title>
    <link href="http://www.gutenberg.org/ebooks/1342"/>
  </entry>
  <entry>
    <id>http://www.gutenberg.org/ebooks/158</id>
    <title>Emma</title>
  </entry>
  <entry>
    <id>http://www.gutenberg.org/ebooks/1342</id>
    <title>Pride and Prejudice (duplicate)</title>
  </entry>
  <entry>
    <id>urn:nothing-numeric</id>
    <title>Unparseable</title>
  </entry>
</feed>`

func TestFeedDiscoverer_Discover(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, feedXML)
	}))
	defer ts.Close()

	disc := source.NewFeedDiscoverer(ts.URL, "info")

	ids, err := disc.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{158, 1342}, ids)
}

func TestFeedDiscoverer_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	disc := source.NewFeedDiscoverer(ts.URL, "info")

	_, err := disc.Discover(context.Background())
	require.Error(t, err)
}
