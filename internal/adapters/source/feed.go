package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"time"

	"bookharvest/internal/adapters/util"

	"github.com/mmcdole/gofeed/atom"
)

var reTrailingID = regexp.MustCompile(`(\d+)/?$`)

// FeedDiscoverer reads an Atom catalog feed (e.g. a Gutenberg new-books
// feed) and extracts book identifiers to seed the control ledger with.
type FeedDiscoverer struct {
	feedURL string
	client  *http.Client
}

func NewFeedDiscoverer(feedURL, logLevel string) *FeedDiscoverer {
	return &FeedDiscoverer{
		feedURL: feedURL,
		client: &http.Client{
			Transport: &util.LoggingTransport{LogLevel: logLevel},
			Timeout:   2 * time.Minute,
		},
	}
}

// Discover fetches the feed and returns the distinct numeric identifiers
// found in entry ids or links, sorted ascending. Entries without a
// recognizable identifier are skipped.
func (d *FeedDiscoverer) Discover(ctx context.Context) ([]int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", d.feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", d.feedURL, resp.StatusCode)
	}

	fp := &atom.Parser{}
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed as Atom: %w", err)
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, entry := range feed.Entries {
		id, ok := entryBookID(entry)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func entryBookID(entry *atom.Entry) (int64, bool) {
	candidates := []string{entry.ID}
	for _, link := range entry.Links {
		candidates = append(candidates, link.Href)
	}

	for _, c := range candidates {
		m := reTrailingID.FindStringSubmatch(c)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		return id, true
	}
	return 0, false
}
