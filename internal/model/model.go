package model

import (
	"context"
	"fmt"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleCandidate is a regular candidate user role.
	UserRoleCandidate UserRole = "candidate"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType classifies an interview question.
type QuestionType string

const (
	TypeTechnical   QuestionType = "technical"
	TypeBehavioral  QuestionType = "behavioral"
	TypeSituational QuestionType = "situational"
	TypeUnspecified QuestionType = "unspecified"
)

// ParseQuestionType maps a free-form type string to a QuestionType.
func ParseQuestionType(s string) QuestionType {
	switch QuestionType(s) {
	case TypeTechnical, TypeBehavioral, TypeSituational:
		return QuestionType(s)
	}
	return TypeUnspecified
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy        Difficulty = "easy"
	DifficultyMedium      Difficulty = "medium"
	DifficultyHard        Difficulty = "hard"
	DifficultyUnspecified Difficulty = "unspecified"
)

// ParseDifficulty maps a free-form difficulty string to a Difficulty.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	}
	return DifficultyUnspecified
}

// Question is one interview question. Questions form an ordered sequence
// fixed for the lifetime of a session; Index defines both navigation and
// submission order.
type Question struct {
	Index      int          `json:"index"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
}

// MediaKind selects the capture mode and the matching upload endpoint.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// MimeType returns the container MIME type for recordings of this kind.
func (k MediaKind) MimeType() string {
	if k == MediaVideo {
		return "video/webm"
	}
	return "audio/webm"
}

// RecordingSegment is one recorded answer. It is created when capture stops,
// owned by the ledger afterwards, and never mutated.
type RecordingSegment struct {
	QuestionIndex int
	Data          []byte
	Kind          MediaKind
	CapturedAt    time.Time
}

// FileName returns the upload file name for this segment.
func (s RecordingSegment) FileName() string {
	return fmt.Sprintf("interview_%s_q%d.webm", s.Kind, s.QuestionIndex)
}

// SessionState is the sequencer's finite-state value.
type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateInProgress SessionState = "in_progress"
	StateFinished   SessionState = "finished"
	StateSubmitting SessionState = "submitting"
	StateDone       SessionState = "done"
)

// OutcomeStatus is the per-entry upload status.
type OutcomeStatus string

const (
	OutcomePending  OutcomeStatus = "pending"
	OutcomeUploaded OutcomeStatus = "uploaded"
	OutcomeFailed   OutcomeStatus = "failed"
)

// SubmissionOutcome tracks a single ledger entry through the submission
// pipeline. One is created as pending for every entry before the first
// upload, mutated in place as each upload resolves, and never reordered.
type SubmissionOutcome struct {
	QuestionIndex int           `json:"question_index"`
	FileName      string        `json:"file_name"`
	Status        OutcomeStatus `json:"status"`
	ErrorDetail   string        `json:"error_detail,omitempty"`
	Analysis      []byte        `json:"analysis,omitempty"`
}

// Interview is a persisted interview session record.
type Interview struct {
	ID        string       `json:"id"`
	UserID    int64        `json:"user_id"`
	Media     MediaKind    `json:"media"`
	JobLevel  string       `json:"job_level"`
	JobPost   string       `json:"job_post"`
	State     SessionState `json:"state"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
}

// AnalysisResult is a saved per-answer analysis payload from the scoring
// service, stored as opaque JSON.
type AnalysisResult struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	InterviewID string    `json:"interview_id"`
	Kind        MediaKind `json:"kind"`
	Question    string    `json:"question"`
	Payload     []byte    `json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerateRequest is the input for question generation.
type GenerateRequest struct {
	JobLevel        string `json:"job_level"`
	JobPost         string `json:"job_post"`
	JobRequirements string `json:"job_requirements"`
	QuestionCount   int    `json:"question_count,omitempty"`
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	Media          MediaKind     // default capture mode
	QuestionCount  int           // 0 means let the generator decide
	UploadTimeout  time.Duration // per-upload attempt bound, 0 disables
	SummaryDelay   time.Duration // pause the UI should show the summary for
	AudioUploadURL string
	VideoUploadURL string
	SecureCookies  bool
}
