package session

import (
	"context"
	"errors"
	"testing"

	"github.com/careerboost/interviewlab/internal/capture"
	"github.com/careerboost/interviewlab/internal/model"
	"github.com/careerboost/interviewlab/internal/submit"
)

type countTrack struct {
	stopCalls int
}

func (t *countTrack) Kind() string { return "audio" }
func (t *countTrack) Stop()        { t.stopCalls++ }

type countStream struct {
	tracks []capture.Track
}

func (s *countStream) Tracks() []capture.Track { return s.tracks }

type countDevice struct {
	acquired []*countStream
}

func (d *countDevice) Acquire(_ context.Context, kind model.MediaKind) (capture.Stream, error) {
	tracks := []capture.Track{&countTrack{}}
	if kind == model.MediaVideo {
		tracks = append(tracks, &countTrack{})
	}
	s := &countStream{tracks: tracks}
	d.acquired = append(d.acquired, s)
	return s, nil
}

func (d *countDevice) trackStops() (stops, tracks int) {
	for _, s := range d.acquired {
		for _, t := range s.tracks {
			tracks++
			stops += t.(*countTrack).stopCalls
		}
	}
	return stops, tracks
}

type recordingUploader struct {
	calls   []int
	failIdx map[int]error
}

func (u *recordingUploader) Upload(_ context.Context, seg model.RecordingSegment, _ string) ([]byte, error) {
	u.calls = append(u.calls, seg.QuestionIndex)
	if err, ok := u.failIdx[seg.QuestionIndex]; ok {
		return nil, err
	}
	return nil, nil
}

func questions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Index:      i,
			Text:       "question",
			Type:       model.TypeBehavioral,
			Difficulty: model.DifficultyMedium,
		}
	}
	return qs
}

func newTestSession(t *testing.T, n int) (*Session, *countDevice, *recordingUploader) {
	t.Helper()
	dev := &countDevice{}
	up := &recordingUploader{}
	sess, err := New(questions(n), model.MediaAudio, capture.New(dev), submit.NewPipeline(up))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sess, dev, up
}

func record(t *testing.T, sess *Session, data string) {
	t.Helper()
	if err := sess.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	sess.PushChunk([]byte(data))
	sess.StopRecording()
}

func TestNewRequiresQuestions(t *testing.T) {
	_, err := New(nil, model.MediaAudio, capture.New(&countDevice{}), submit.NewPipeline(&recordingUploader{}))
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestStateGuards(t *testing.T) {
	sess, _, _ := newTestSession(t, 2)

	if err := sess.StartRecording(context.Background()); !errors.Is(err, ErrWrongState) {
		t.Errorf("StartRecording before Start = %v, want ErrWrongState", err)
	}
	if err := sess.Next(); !errors.Is(err, ErrWrongState) {
		t.Errorf("Next before Start = %v, want ErrWrongState", err)
	}
	if _, err := sess.End(context.Background()); !errors.Is(err, ErrWrongState) {
		t.Errorf("End before Start = %v, want ErrWrongState", err)
	}

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sess.Start(); !errors.Is(err, ErrWrongState) {
		t.Errorf("second Start = %v, want ErrWrongState", err)
	}
}

func TestNextAtLastQuestion(t *testing.T) {
	sess, _, _ := newTestSession(t, 2)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sess.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if snap := sess.Snapshot(); snap.QuestionIndex != 1 || snap.State != model.StateInProgress {
		t.Fatalf("after Next: index %d state %q", snap.QuestionIndex, snap.State)
	}

	// Next at the last question finishes instead of advancing past the list.
	if err := sess.Next(); err != nil {
		t.Fatalf("Next at last question: %v", err)
	}
	if snap := sess.Snapshot(); snap.State != model.StateFinished {
		t.Fatalf("expected Finished, got %q", snap.State)
	}

	// Further Next attempts are rejected with a user-visible notice.
	if err := sess.Next(); !errors.Is(err, ErrUseEndInterview) {
		t.Errorf("Next in Finished = %v, want ErrUseEndInterview", err)
	}
}

func TestStopThenAdvance(t *testing.T) {
	sess, _, _ := newTestSession(t, 3)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Advance while a capture is live: the recording lands on the question
	// it was started for, never the next one.
	if err := sess.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	sess.PushChunk([]byte("answer-0"))
	if err := sess.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}

	snap := sess.Snapshot()
	if snap.Recording {
		t.Error("capture must be stopped before advancing")
	}
	if snap.Recordings != 1 {
		t.Errorf("expected 1 ledger entry, got %d", snap.Recordings)
	}
}

func TestRepeatRecordingDiscarded(t *testing.T) {
	sess, dev, _ := newTestSession(t, 2)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	record(t, sess, "take-one")
	record(t, sess, "take-two") // same question: discarded, device still released

	if snap := sess.Snapshot(); snap.Recordings != 1 {
		t.Fatalf("expected 1 recording after re-record, got %d", snap.Recordings)
	}
	stops, tracks := dev.trackStops()
	if stops != tracks {
		t.Errorf("every acquired track must be stopped: %d stops for %d tracks", stops, tracks)
	}
}

func TestScenarioRecordTwoSkipOne(t *testing.T) {
	// 3 questions, answers recorded for 0 and 1, question 2 skipped.
	sess, _, up := newTestSession(t, 3)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	record(t, sess, "answer-0")
	if err := sess.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	record(t, sess, "answer-1")
	if err := sess.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}

	// End without recording question 2.
	up.failIdx = map[int]error{0: errors.New("http 500")}
	outcomes, err := sess.End(context.Background())
	if err != nil {
		t.Fatalf("End: %v", err)
	}

	if len(up.calls) != 2 {
		t.Fatalf("expected exactly 2 uploads, got %d", len(up.calls))
	}
	if up.calls[0] != 0 || up.calls[1] != 1 {
		t.Errorf("uploads out of order: %v", up.calls)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	// A failed first upload still leaves the session Done with both attempted.
	if outcomes[0].Status != model.OutcomeFailed || outcomes[1].Status != model.OutcomeUploaded {
		t.Errorf("outcomes = [%q, %q], want [failed, uploaded]", outcomes[0].Status, outcomes[1].Status)
	}
	if snap := sess.Snapshot(); snap.State != model.StateDone {
		t.Errorf("expected Done, got %q", snap.State)
	}
}

func TestEndWithoutRecordings(t *testing.T) {
	sess, _, up := newTestSession(t, 1)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := sess.End(context.Background())
	if !errors.Is(err, submit.ErrNoRecordings) {
		t.Fatalf("expected ErrNoRecordings, got %v", err)
	}
	if len(up.calls) != 0 {
		t.Errorf("expected zero network calls, got %d", len(up.calls))
	}
	// The session still terminates; it never re-enters Submitting.
	if snap := sess.Snapshot(); snap.State != model.StateDone {
		t.Errorf("expected Done, got %q", snap.State)
	}
	if _, err := sess.End(context.Background()); !errors.Is(err, ErrWrongState) {
		t.Errorf("second End = %v, want ErrWrongState", err)
	}
}

func TestEndFromFinished(t *testing.T) {
	sess, _, up := newTestSession(t, 1)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	record(t, sess, "only-answer")
	if err := sess.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}

	outcomes, err := sess.End(context.Background())
	if err != nil {
		t.Fatalf("End from Finished: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != model.OutcomeUploaded {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if len(up.calls) != 1 {
		t.Errorf("expected 1 upload, got %d", len(up.calls))
	}
}

func TestEndStopsActiveCapture(t *testing.T) {
	sess, dev, up := newTestSession(t, 1)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sess.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	sess.PushChunk([]byte("mid-answer"))

	// End mid-recording: the capture is stopped and submitted.
	outcomes, err := sess.End(context.Background())
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if len(up.calls) != 1 {
		t.Errorf("expected 1 upload, got %d", len(up.calls))
	}
	stops, tracks := dev.trackStops()
	if stops != tracks {
		t.Errorf("device leak: %d stops for %d tracks", stops, tracks)
	}
}

func TestCloseReleasesDevice(t *testing.T) {
	// Navigating away mid-capture must stop every acquired track.
	sess, dev, _ := newTestSession(t, 2)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sess.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	sess.Close()
	stops, tracks := dev.trackStops()
	if tracks == 0 || stops != tracks {
		t.Fatalf("expected all %d tracks stopped, got %d stops", tracks, stops)
	}

	// Close is safe to repeat.
	sess.Close()
	stops2, _ := dev.trackStops()
	if stops2 != stops {
		t.Errorf("second Close stopped tracks again: %d -> %d", stops, stops2)
	}
}

func TestSnapshotExposesQuestion(t *testing.T) {
	sess, _, _ := newTestSession(t, 2)

	if snap := sess.Snapshot(); snap.Question != nil || snap.State != model.StateNotStarted {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := sess.Snapshot()
	if snap.Question == nil || snap.Question.Index != 0 {
		t.Fatalf("expected question 0 in snapshot, got %+v", snap.Question)
	}
	if snap.QuestionCount != 2 {
		t.Errorf("question count = %d, want 2", snap.QuestionCount)
	}
}
