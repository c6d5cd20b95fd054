// Package session drives one mock-interview session: a sequencer walking a
// fixed ordered question list, a capturer recording one answer at a time,
// a ledger holding at most one recording per question, and an end-of-session
// drain through the submission pipeline.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careerboost/interviewlab/internal/capture"
	"github.com/careerboost/interviewlab/internal/model"
	"github.com/careerboost/interviewlab/internal/submit"
)

var (
	// ErrNoQuestions reports an empty or absent question list at setup. The
	// recording flow is never entered.
	ErrNoQuestions = errors.New("no interview questions")
	// ErrUseEndInterview rejects Next once the last question has been
	// reached; the session is finished via End.
	ErrUseEndInterview = errors.New("last question reached, finish via End Interview")
	// ErrWrongState rejects an operation not valid in the current state.
	ErrWrongState = errors.New("operation not valid in current session state")
)

// Session owns all per-interview mutable state. Sessions are independent;
// running several concurrently never cross-contaminates.
type Session struct {
	id        string
	media     model.MediaKind
	questions []model.Question
	capturer  *capture.Capturer
	pipeline  *submit.Pipeline

	mu       sync.Mutex
	state    model.SessionState
	cur      int
	ledger   *Ledger
	outcomes []model.SubmissionOutcome
	resolved int
}

// New creates a session over a non-empty ordered question list.
func New(questions []model.Question, media model.MediaKind, capturer *capture.Capturer, pipeline *submit.Pipeline) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &Session{
		id:        uuid.New().String(),
		media:     media,
		questions: questions,
		capturer:  capturer,
		pipeline:  pipeline,
		state:     model.StateNotStarted,
		ledger:    NewLedger(),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Media returns the session's capture mode.
func (s *Session) Media() model.MediaKind { return s.media }

// Questions returns the session's question list.
func (s *Session) Questions() []model.Question { return s.questions }

// Start moves the session from NotStarted to InProgress at question 0.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.StateNotStarted {
		return ErrWrongState
	}
	s.state = model.StateInProgress
	s.cur = 0
	slog.Info("interview started", "session", s.id, "questions", len(s.questions))
	return nil
}

// StartRecording begins capturing an answer for the current question.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.StateInProgress && s.state != model.StateFinished {
		return ErrWrongState
	}
	return s.capturer.Start(ctx, s.media)
}

// PushChunk appends recorded media data to the active capture.
func (s *Session) PushChunk(data []byte) {
	s.capturer.Push(data)
}

// StopRecording finalizes the active capture and hands the segment to the
// ledger. Returns whether the ledger kept it: false either when no capture
// was active or when the question already had a recording (first wins; the
// duplicate is discarded after its device resources are released).
func (s *Session) StopRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopAndRecordLocked()
}

func (s *Session) stopAndRecordLocked() bool {
	seg, ok := s.capturer.Stop()
	if !ok {
		return false
	}
	if !s.ledger.Record(s.cur, seg) {
		slog.Info("question already recorded, discarding new segment",
			"session", s.id, "question", s.cur)
		return false
	}
	return true
}

// Next stops any active capture (stop-then-advance, never
// advance-while-recording) and moves to the following question. Reaching
// Next at the last question transitions to Finished; Next in Finished is
// rejected with ErrUseEndInterview.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.StateInProgress:
	case model.StateFinished:
		return ErrUseEndInterview
	default:
		return ErrWrongState
	}

	s.stopAndRecordLocked()

	if s.cur < len(s.questions)-1 {
		s.cur++
		return nil
	}
	s.state = model.StateFinished
	return nil
}

// End stops any active capture, drains the ledger through the submission
// pipeline in ascending question order, and moves the session to Done —
// always, regardless of how many uploads failed. An empty ledger returns
// ErrNoRecordings with zero network calls; the session still reaches Done.
func (s *Session) End(ctx context.Context) ([]model.SubmissionOutcome, error) {
	s.mu.Lock()
	if s.state != model.StateInProgress && s.state != model.StateFinished {
		s.mu.Unlock()
		return nil, ErrWrongState
	}
	s.stopAndRecordLocked()
	s.state = model.StateSubmitting
	entries := s.ledger.EntriesInOrder()
	s.outcomes = make([]model.SubmissionOutcome, 0, len(entries))
	for _, e := range entries {
		s.outcomes = append(s.outcomes, model.SubmissionOutcome{
			QuestionIndex: e.QuestionIndex,
			FileName:      e.FileName(),
			Status:        model.OutcomePending,
		})
	}
	s.resolved = 0
	s.mu.Unlock()

	// The pipeline runs outside the lock so Snapshot stays readable while
	// uploads are in flight.
	outcomes, err := s.pipeline.Run(ctx, entries, s.questionText, s.onProgress)

	s.mu.Lock()
	s.state = model.StateDone
	s.outcomes = outcomes
	s.mu.Unlock()

	uploaded, failed := submit.Tally(outcomes)
	slog.Info("interview ended", "session", s.id,
		"attempted", len(entries), "uploaded", uploaded, "failed", failed)
	return outcomes, err
}

// Close releases any live capture. Safe to call in any state and more than
// once; this is the abandonment path for navigating away mid-recording.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.capturer.Stop(); ok {
		slog.Info("released active capture on teardown", "session", s.id)
	}
}

func (s *Session) questionText(idx int) string {
	if idx >= 0 && idx < len(s.questions) {
		return s.questions[idx].Text
	}
	return ""
}

func (s *Session) onProgress(outcomes []model.SubmissionOutcome, resolved int) {
	s.mu.Lock()
	s.outcomes = outcomes
	s.resolved = resolved
	s.mu.Unlock()
}

// Snapshot is the view of a session handed to the UI.
type Snapshot struct {
	ID            string                    `json:"id"`
	State         model.SessionState        `json:"state"`
	Media         model.MediaKind           `json:"media"`
	QuestionIndex int                       `json:"question_index"`
	Question      *model.Question           `json:"question,omitempty"`
	QuestionCount int                       `json:"question_count"`
	Recordings    int                       `json:"recordings"`
	Recording     bool                      `json:"recording"`
	Resolved      int                       `json:"resolved"`
	Total         int                       `json:"total"`
	Outcomes      []model.SubmissionOutcome `json:"outcomes,omitempty"`
	CapturedAt    time.Time                 `json:"-"`
}

// Snapshot returns the current state for rendering: state tag, current
// question, ledger count and, during submission, the progress fraction and
// per-file outcome list.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		State:         s.state,
		Media:         s.media,
		QuestionIndex: s.cur,
		QuestionCount: len(s.questions),
		Recordings:    s.ledger.Count(),
		Recording:     s.capturer.Active(),
		Resolved:      s.resolved,
		Total:         len(s.outcomes),
		Outcomes:      s.outcomes,
	}
	if s.state == model.StateInProgress || s.state == model.StateFinished {
		q := s.questions[s.cur]
		snap.Question = &q
	}
	return snap
}
