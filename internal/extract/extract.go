// Package extract holds the pure text functions of the pipeline: splitting
// a fetched book into header and body, and parsing bibliographic metadata
// out of the header. Both are deterministic and touch no external state.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"bookharvest/internal/core/domain/models"
)

const (
	startMarker = "*** START OF THE PROJECT GUTENBERG EBOOK"
	endMarker   = "*** END OF THE PROJECT GUTENBERG EBOOK"
)

// DefaultLanguage is recorded when the header carries no Language line.
// Missing language is common in older headers and non-fatal.
const DefaultLanguage = "unknown"

var (
	reTitle    = regexp.MustCompile(`(?i)^\s*Title:\s*(.+)$`)
	reAuthor   = regexp.MustCompile(`(?i)^\s*Author:\s*(.+)$`)
	reLanguage = regexp.MustCompile(`(?i)^\s*Language:\s*(.+)$`)
)

// ExtractionError reports a header that could not be parsed into a
// metadata record.
type ExtractionError struct {
	MissingField string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("header missing required field %q", e.MissingField)
}

// Split separates a raw Gutenberg text into header and body at the
// START/END markers. The license footer after the end marker is dropped.
func Split(text string) (header, body string, err error) {
	start := strings.Index(text, startMarker)
	if start < 0 {
		return "", "", &ExtractionError{MissingField: "start marker"}
	}

	rest := text[start+len(startMarker):]
	end := strings.Index(rest, endMarker)
	if end < 0 {
		return "", "", &ExtractionError{MissingField: "end marker"}
	}

	header = strings.TrimSpace(text[:start])
	body = strings.TrimSpace(rest[:end])
	return header, body, nil
}

// Extract parses a header blob into a metadata record. Matching is
// line-oriented, case-insensitive and whitespace-tolerant; the first
// occurrence of each label wins. Title and author are required; language
// falls back to DefaultLanguage.
func Extract(header string) (*models.Book, error) {
	var title, author, language string

	for _, line := range strings.Split(header, "\n") {
		if title == "" {
			if m := reTitle.FindStringSubmatch(line); m != nil {
				title = strings.TrimSpace(m[1])
			}
		}
		if author == "" {
			if m := reAuthor.FindStringSubmatch(line); m != nil {
				author = strings.TrimSpace(m[1])
			}
		}
		if language == "" {
			if m := reLanguage.FindStringSubmatch(line); m != nil {
				language = strings.TrimSpace(m[1])
			}
		}
		if title != "" && author != "" && language != "" {
			break
		}
	}

	if title == "" {
		return nil, &ExtractionError{MissingField: "title"}
	}
	if author == "" {
		return nil, &ExtractionError{MissingField: "author"}
	}
	if language == "" {
		language = DefaultLanguage
	}

	return &models.Book{
		Title:    title,
		Author:   author,
		Language: language,
	}, nil
}
