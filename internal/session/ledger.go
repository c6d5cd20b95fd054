package session

import (
	"sort"
	"sync"

	"github.com/careerboost/interviewlab/internal/model"
)

// Ledger stores at most one recorded segment per question for the lifetime
// of a session. The first recording for a question wins; later attempts for
// the same question are discarded.
type Ledger struct {
	mu       sync.Mutex
	segments map[int]model.RecordingSegment
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{segments: make(map[int]model.RecordingSegment)}
}

// Record stores seg under questionIndex. If an entry already exists the new
// segment is discarded and Record returns false; the ledger is unchanged.
func (l *Ledger) Record(questionIndex int, seg model.RecordingSegment) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.segments[questionIndex]; exists {
		return false
	}
	seg.QuestionIndex = questionIndex
	l.segments[questionIndex] = seg
	return true
}

// Has reports whether a segment is stored for questionIndex.
func (l *Ledger) Has(questionIndex int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.segments[questionIndex]
	return ok
}

// EntriesInOrder returns all segments sorted ascending by question index.
// It is a pure read and may be called repeatedly.
func (l *Ledger) EntriesInOrder() []model.RecordingSegment {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]model.RecordingSegment, 0, len(l.segments))
	for _, seg := range l.segments {
		entries = append(entries, seg)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].QuestionIndex < entries[j].QuestionIndex
	})
	return entries
}

// Count returns the number of stored segments.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.segments)
}
