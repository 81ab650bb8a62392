package journal

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	defaultJournalDir   = "./state/journal"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	entryKeyPrefix      = "funding_transition_"
)

// Entry is one state transition of a mortgage funding workflow.
type Entry struct {
	ID           string    `json:"id"`
	WorkflowID   string    `json:"workflow_id"`
	Slot         int       `json:"slot"`
	MortgageID   int64     `json:"mortgage_id"`
	ClientID     int64     `json:"client_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Event        string    `json:"event"`
	AmountNeeded string    `json:"amount_needed,omitempty"`
	Error        string    `json:"error,omitempty"`
	Time         time.Time `json:"time"`
}

// Record pairs an entry with its WAL index.
type Record struct {
	Index uint64
	Entry Entry
}

// WALStore appends workflow transitions to a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens the journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init funding journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes the entry, assigning an id and timestamp when missing.
func (s *WALStore) Append(entry Entry) error {
	if s == nil || s.wal == nil {
		return errors.New("funding journal is not initialized")
	}
	if entry.WorkflowID == "" {
		return errors.New("funding journal entry workflow id is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal funding journal entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, entryKeyPrefix+entry.WorkflowID, payload)
}

// EntriesAfter returns all entries written after the provided WAL index.
func (s *WALStore) EntriesAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("funding journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, entryKeyPrefix) {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, errors.Wrap(err, "decode funding journal entry")
		}
		records = append(records, Record{Index: idx, Entry: entry})
	}

	return records, nil
}

// Workflow returns the transitions of one workflow in write order.
func (s *WALStore) Workflow(workflowID string) ([]Entry, error) {
	records, err := s.EntriesAfter(0)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, r := range records {
		if r.Entry.WorkflowID == workflowID {
			out = append(out, r.Entry)
		}
	}
	return out, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("funding journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
