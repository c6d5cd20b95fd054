// Package submit uploads recorded segments to the external scoring service,
// one at a time in ascending question-index order. Failures are recorded per
// entry; the batch always runs to completion.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/careerboost/interviewlab/internal/model"
)

var (
	// ErrNoRecordings reports an empty ledger at submission time. No network
	// call is made.
	ErrNoRecordings = errors.New("no recordings to submit")
	// ErrInvalidRecording reports an empty or unusable blob. The entry fails
	// locally without a network call.
	ErrInvalidRecording = errors.New("invalid recording")
)

// Uploader sends one segment to the scoring endpoint and returns the
// best-effort analysis payload on success.
type Uploader interface {
	Upload(ctx context.Context, seg model.RecordingSegment, question string) ([]byte, error)
}

// Progress is invoked after each entry resolves with a snapshot of all
// outcomes and the number of entries resolved so far.
type Progress func(outcomes []model.SubmissionOutcome, resolved int)

// Pipeline drains a ledger's entries through an Uploader.
type Pipeline struct {
	uploader Uploader
	timeout  time.Duration // per-attempt bound, 0 disables
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTimeout bounds each upload attempt. A timeout counts as a per-entry
// failure, same as a non-2xx response.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// NewPipeline creates a Pipeline.
func NewPipeline(u Uploader, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{uploader: u}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run uploads every segment sequentially, exactly one attempt each, and
// returns one outcome per segment in input order. Segments must already be
// sorted ascending by question index. questionFor resolves a question index
// to its text for the upload form; onProgress may be nil.
//
// An empty input fails fast with ErrNoRecordings. Everything else runs to
// completion: per-entry errors are recorded in the outcome and the pipeline
// proceeds to the next entry.
func (p *Pipeline) Run(ctx context.Context, segments []model.RecordingSegment, questionFor func(int) string, onProgress Progress) ([]model.SubmissionOutcome, error) {
	if len(segments) == 0 {
		return nil, ErrNoRecordings
	}

	outcomes := make([]model.SubmissionOutcome, len(segments))
	for i, seg := range segments {
		outcomes[i] = model.SubmissionOutcome{
			QuestionIndex: seg.QuestionIndex,
			FileName:      seg.FileName(),
			Status:        model.OutcomePending,
		}
	}

	for i, seg := range segments {
		outcomes[i] = p.submitOne(ctx, seg, questionFor)
		if onProgress != nil {
			onProgress(snapshot(outcomes), i+1)
		}
	}

	return outcomes, nil
}

func (p *Pipeline) submitOne(ctx context.Context, seg model.RecordingSegment, questionFor func(int) string) model.SubmissionOutcome {
	out := model.SubmissionOutcome{
		QuestionIndex: seg.QuestionIndex,
		FileName:      seg.FileName(),
	}

	if len(seg.Data) == 0 {
		out.Status = model.OutcomeFailed
		out.ErrorDetail = ErrInvalidRecording.Error()
		slog.Warn("skipping empty recording", "file", out.FileName)
		return out
	}

	uctx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		uctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	analysis, err := p.uploader.Upload(uctx, seg, questionFor(seg.QuestionIndex))
	if err != nil {
		out.Status = model.OutcomeFailed
		out.ErrorDetail = err.Error()
		slog.Warn("upload failed", "file", out.FileName, "error", err)
		return out
	}

	out.Status = model.OutcomeUploaded
	out.Analysis = analysis
	slog.Info("upload complete", "file", out.FileName, "bytes", len(seg.Data))
	return out
}

// Tally counts uploaded and failed entries.
func Tally(outcomes []model.SubmissionOutcome) (uploaded, failed int) {
	for _, o := range outcomes {
		switch o.Status {
		case model.OutcomeUploaded:
			uploaded++
		case model.OutcomeFailed:
			failed++
		}
	}
	return uploaded, failed
}

func snapshot(outcomes []model.SubmissionOutcome) []model.SubmissionOutcome {
	cp := make([]model.SubmissionOutcome, len(outcomes))
	copy(cp, outcomes)
	return cp
}
