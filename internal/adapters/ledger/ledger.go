// Package ledger implements the control layer: the authoritative record of
// which book identifiers are still pending, which downloaded and which
// failed. State lives in three line-oriented files under a control
// directory and is rewritten atomically on every transition, so the ledger
// write is the commit point of an ingestion attempt.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"bookharvest/internal/core/domain/models"
	"bookharvest/internal/core/domain/ports"
)

// ErrInvalidTransition is returned for transitions out of the downloaded
// set. Downloaded is terminal.
var ErrInvalidTransition = errors.New("invalid ledger transition")

const (
	pendingFile    = "to_download.txt"
	downloadedFile = "downloaded.txt"
	failedFile     = "failed.txt"
)

var _ ports.ControlLedger = (*FileLedger)(nil)

// FileLedger keeps the three status sets in memory and mirrors every
// mutation to disk before returning. An identifier is in exactly one set
// at any time.
type FileLedger struct {
	dir string
	mu  sync.RWMutex

	pending    []int64 // insertion order, FIFO
	pendingSet map[int64]bool
	downloaded map[int64]bool
	failed     map[int64]string // id -> reason, overwritten on repeat
}

// Open loads the ledger from dir, creating the directory and empty
// control files when missing. An identifier found in both downloaded and
// failed historical logs is kept as downloaded; success is terminal.
func Open(dir string) (*FileLedger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create control dir: %w", err)
	}

	l := &FileLedger{
		dir:        dir,
		pendingSet: make(map[int64]bool),
		downloaded: make(map[int64]bool),
		failed:     make(map[int64]string),
	}

	if err := l.load(); err != nil {
		return nil, fmt.Errorf("failed to load control files: %w", err)
	}

	return l, nil
}

func (l *FileLedger) load() error {
	ids, err := readIDLines(filepath.Join(l.dir, downloadedFile))
	if err != nil {
		return err
	}
	for _, id := range ids {
		l.downloaded[id] = true
	}

	failedLines, err := readLines(filepath.Join(l.dir, failedFile))
	if err != nil {
		return err
	}
	for _, line := range failedLines {
		idPart, reason, _ := strings.Cut(line, "\t")
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt failed entry %q: %w", line, err)
		}
		if l.downloaded[id] {
			continue
		}
		l.failed[id] = reason
	}

	pendingIDs, err := readIDLines(filepath.Join(l.dir, pendingFile))
	if err != nil {
		return err
	}
	for _, id := range pendingIDs {
		if l.downloaded[id] || l.pendingSet[id] {
			continue
		}
		if _, ok := l.failed[id]; ok {
			continue
		}
		l.pending = append(l.pending, id)
		l.pendingSet[id] = true
	}

	// The load above may have dropped ids that were duplicated across
	// sets; rewrite so disk matches memory again.
	return l.flushAll()
}

// Seed fills the pending set with the inclusive range [start, end]. With
// overwrite the current pending list is replaced; already downloaded or
// failed identifiers are never re-added.
func (l *FileLedger) Seed(start, end int64, overwrite bool) (int, error) {
	if start > end {
		return 0, fmt.Errorf("seed range start %d greater than end %d", start, end)
	}

	ids := make([]int64, 0, end-start+1)
	for id := start; id <= end; id++ {
		ids = append(ids, id)
	}
	return l.add(ids, overwrite)
}

// Add appends identifiers to the pending set, skipping any the ledger
// already knows.
func (l *FileLedger) Add(ids ...int64) (int, error) {
	return l.add(ids, false)
}

func (l *FileLedger) add(ids []int64, overwrite bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if overwrite {
		l.pending = nil
		l.pendingSet = make(map[int64]bool)
	}

	added := 0
	for _, id := range ids {
		if id <= 0 || l.pendingSet[id] || l.downloaded[id] {
			continue
		}
		if _, ok := l.failed[id]; ok {
			continue
		}
		l.pending = append(l.pending, id)
		l.pendingSet[id] = true
		added++
	}

	if err := l.flushPending(); err != nil {
		return 0, err
	}
	return added, nil
}

// NextPending returns the oldest pending identifier without removing it.
func (l *FileLedger) NextPending() (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.pending) == 0 {
		return 0, false
	}
	return l.pending[0], true
}

// Pending returns a snapshot of the pending queue in FIFO order.
func (l *FileLedger) Pending() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]int64, len(l.pending))
	copy(out, l.pending)
	return out
}

// IsDownloaded reports whether the identifier already downloaded
// successfully. Checked before any fetch to guarantee at-most-once
// successful download per identifier.
func (l *FileLedger) IsDownloaded(bookID int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.downloaded[bookID]
}

// MarkDownloaded moves an identifier from pending or failed into the
// downloaded set. Marking an already downloaded identifier is an
// ErrInvalidTransition; an unknown identifier becomes known as downloaded.
func (l *FileLedger) MarkDownloaded(bookID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.downloaded[bookID] {
		return fmt.Errorf("%w: book %d already downloaded", ErrInvalidTransition, bookID)
	}

	l.removePending(bookID)
	delete(l.failed, bookID)
	l.downloaded[bookID] = true

	return l.flushAll()
}

// MarkFailed moves an identifier into the failed set with a reason.
// Repeated failures overwrite the reason. Failing a downloaded
// identifier is an ErrInvalidTransition.
func (l *FileLedger) MarkFailed(bookID int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.downloaded[bookID] {
		return fmt.Errorf("%w: book %d already downloaded", ErrInvalidTransition, bookID)
	}

	l.removePending(bookID)
	l.failed[bookID] = sanitizeReason(reason)

	return l.flushAll()
}

// Requeue moves a failed identifier back into the pending set; this is
// the only transition out of failed besides a later success.
func (l *FileLedger) Requeue(bookID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.failed[bookID]; !ok {
		return fmt.Errorf("%w: book %d is not failed", ErrInvalidTransition, bookID)
	}

	delete(l.failed, bookID)
	l.pending = append(l.pending, bookID)
	l.pendingSet[bookID] = true

	return l.flushAll()
}

// RequeueAllFailed moves every failed identifier back to pending and
// returns how many were moved.
func (l *FileLedger) RequeueAllFailed() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]int64, 0, len(l.failed))
	for id := range l.failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		delete(l.failed, id)
		l.pending = append(l.pending, id)
		l.pendingSet[id] = true
	}

	if err := l.flushAll(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// FailureReason returns the recorded reason for a failed identifier.
func (l *FileLedger) FailureReason(bookID int64) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	reason, ok := l.failed[bookID]
	return reason, ok
}

// Counts returns the number of identifiers in each status set.
func (l *FileLedger) Counts() (pending, downloaded, failed int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending), len(l.downloaded), len(l.failed)
}

// Status reports which set an identifier currently belongs to.
func (l *FileLedger) Status(bookID int64) (models.Status, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.downloaded[bookID]:
		return models.StatusDownloaded, true
	case l.pendingSet[bookID]:
		return models.StatusPending, true
	default:
		if _, ok := l.failed[bookID]; ok {
			return models.StatusFailed, true
		}
		return 0, false
	}
}

// caller holds l.mu
func (l *FileLedger) removePending(bookID int64) {
	if !l.pendingSet[bookID] {
		return
	}
	delete(l.pendingSet, bookID)
	for i, id := range l.pending {
		if id == bookID {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			break
		}
	}
}

// caller holds l.mu
func (l *FileLedger) flushAll() error {
	if err := l.flushPending(); err != nil {
		return err
	}

	downloaded := make([]int64, 0, len(l.downloaded))
	for id := range l.downloaded {
		downloaded = append(downloaded, id)
	}
	sort.Slice(downloaded, func(i, j int) bool { return downloaded[i] < downloaded[j] })

	lines := make([]string, 0, len(downloaded))
	for _, id := range downloaded {
		lines = append(lines, strconv.FormatInt(id, 10))
	}
	if err := writeLinesAtomic(filepath.Join(l.dir, downloadedFile), lines); err != nil {
		return err
	}

	failedIDs := make([]int64, 0, len(l.failed))
	for id := range l.failed {
		failedIDs = append(failedIDs, id)
	}
	sort.Slice(failedIDs, func(i, j int) bool { return failedIDs[i] < failedIDs[j] })

	lines = lines[:0]
	for _, id := range failedIDs {
		lines = append(lines, fmt.Sprintf("%d\t%s", id, l.failed[id]))
	}
	return writeLinesAtomic(filepath.Join(l.dir, failedFile), lines)
}

// caller holds l.mu
func (l *FileLedger) flushPending() error {
	lines := make([]string, 0, len(l.pending))
	for _, id := range l.pending {
		lines = append(lines, strconv.FormatInt(id, 10))
	}
	return writeLinesAtomic(filepath.Join(l.dir, pendingFile), lines)
}

func sanitizeReason(reason string) string {
	reason = strings.ReplaceAll(reason, "\t", " ")
	reason = strings.ReplaceAll(reason, "\n", " ")
	return strings.TrimSpace(reason)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func readIDLines(path string) ([]int64, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt control entry %q: %w", line, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// writeLinesAtomic writes to a temp file and renames it into place so a
// crash mid-write never leaves a truncated control file.
func writeLinesAtomic(path string, lines []string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
