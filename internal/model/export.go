package model

import "time"

// InterviewExport is the top-level JSON structure for interview result export.
type InterviewExport struct {
	ExportedAt time.Time         `json:"exported_at"`
	Results    []CandidateResult `json:"results"`
}

// CandidateResult holds one interview session's data for export.
type CandidateResult struct {
	InterviewID string              `json:"interview_id"`
	Username    string              `json:"username"`
	DisplayName string              `json:"display_name"`
	Media       MediaKind           `json:"media"`
	JobLevel    string              `json:"job_level"`
	JobPost     string              `json:"job_post"`
	State       SessionState        `json:"state"`
	StartedAt   time.Time           `json:"started_at"`
	EndedAt     *time.Time          `json:"ended_at,omitempty"`
	Questions   []Question          `json:"questions"`
	Outcomes    []SubmissionOutcome `json:"outcomes"`
}
