package store

import (
	"database/sql"
	"testing"

	"github.com/careerboost/interviewlab/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  "Test " + username,
		PasswordHash: "hash",
		Role:         model.UserRoleCandidate,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return id
}

func createTestInterview(t *testing.T, s *Store, id string, userID int64, questions []model.Question) {
	t.Helper()
	err := s.CreateInterview(model.Interview{
		ID:       id,
		UserID:   userID,
		Media:    model.MediaAudio,
		JobLevel: "senior",
		JobPost:  "Backend engineer",
		State:    model.StateNotStarted,
	}, questions)
	if err != nil {
		t.Fatalf("createTestInterview: %v", err)
	}
}

func twoQuestions() []model.Question {
	return []model.Question{
		{Index: 0, Text: "Tell me about yourself", Type: model.TypeBehavioral, Difficulty: model.DifficultyEasy},
		{Index: 1, Text: "Explain goroutines", Type: model.TypeTechnical, Difficulty: model.DifficultyMedium},
	}
}

func TestInterviewCRUD(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	count, err := s.InterviewCount()
	if err != nil {
		t.Fatalf("InterviewCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 interviews, got %d", count)
	}

	createTestInterview(t, s, "iv-1", userID, twoQuestions())

	iv, err := s.GetInterview("iv-1")
	if err != nil {
		t.Fatalf("GetInterview: %v", err)
	}
	if iv.UserID != userID || iv.Media != model.MediaAudio {
		t.Errorf("unexpected interview: %+v", iv)
	}
	if iv.State != model.StateNotStarted {
		t.Errorf("expected state not_started, got %q", iv.State)
	}
	if iv.EndedAt != nil {
		t.Error("expected nil ended_at")
	}

	questions, err := s.GetInterviewQuestions("iv-1")
	if err != nil {
		t.Fatalf("GetInterviewQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Index != 0 || questions[1].Index != 1 {
		t.Errorf("questions out of order: %+v", questions)
	}
	if questions[1].Type != model.TypeTechnical {
		t.Errorf("expected technical, got %q", questions[1].Type)
	}

	// Not found.
	_, err = s.GetInterview("missing")
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestUpdateInterviewState(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "bob")
	createTestInterview(t, s, "iv-1", userID, twoQuestions())

	if err := s.UpdateInterviewState("iv-1", model.StateInProgress); err != nil {
		t.Fatalf("UpdateInterviewState: %v", err)
	}
	iv, _ := s.GetInterview("iv-1")
	if iv.State != model.StateInProgress {
		t.Errorf("expected in_progress, got %q", iv.State)
	}
	if iv.EndedAt != nil {
		t.Error("ended_at should stay nil until the terminal state")
	}

	if err := s.UpdateInterviewState("iv-1", model.StateDone); err != nil {
		t.Fatalf("UpdateInterviewState done: %v", err)
	}
	iv, _ = s.GetInterview("iv-1")
	if iv.State != model.StateDone {
		t.Errorf("expected done, got %q", iv.State)
	}
	if iv.EndedAt == nil {
		t.Error("expected ended_at to be set")
	}
}

func TestListInterviews(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	createTestInterview(t, s, "iv-a", alice, twoQuestions())
	createTestInterview(t, s, "iv-b", bob, twoQuestions())

	list, err := s.ListInterviews(alice)
	if err != nil {
		t.Fatalf("ListInterviews: %v", err)
	}
	if len(list) != 1 || list[0].ID != "iv-a" {
		t.Errorf("expected only alice's interview, got %+v", list)
	}

	all, err := s.ListAllInterviews()
	if err != nil {
		t.Fatalf("ListAllInterviews: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 interviews, got %d", len(all))
	}
}

func TestOutcomes(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "carol")
	createTestInterview(t, s, "iv-1", userID, twoQuestions())

	outcomes := []model.SubmissionOutcome{
		{QuestionIndex: 0, FileName: "interview_audio_q0.webm", Status: model.OutcomeUploaded, Analysis: []byte(`{"score":7}`)},
		{QuestionIndex: 1, FileName: "interview_audio_q1.webm", Status: model.OutcomeFailed, ErrorDetail: "http 500"},
	}
	if err := s.SaveOutcomes("iv-1", outcomes); err != nil {
		t.Fatalf("SaveOutcomes: %v", err)
	}

	got, err := s.GetOutcomes("iv-1")
	if err != nil {
		t.Fatalf("GetOutcomes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got))
	}
	if got[0].Status != model.OutcomeUploaded || string(got[0].Analysis) != `{"score":7}` {
		t.Errorf("unexpected outcome 0: %+v", got[0])
	}
	if got[1].Status != model.OutcomeFailed || got[1].ErrorDetail != "http 500" {
		t.Errorf("unexpected outcome 1: %+v", got[1])
	}

	// Saving again replaces the previous set.
	if err := s.SaveOutcomes("iv-1", outcomes[:1]); err != nil {
		t.Fatalf("SaveOutcomes replace: %v", err)
	}
	got, _ = s.GetOutcomes("iv-1")
	if len(got) != 1 {
		t.Errorf("expected 1 outcome after replace, got %d", len(got))
	}
}

func TestAnalysisResults(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "dave")

	// No analysis yet.
	latest, err := s.LatestAnalysis(userID, model.MediaAudio)
	if err != nil {
		t.Fatalf("LatestAnalysis: %v", err)
	}
	if latest != nil {
		t.Error("expected nil analysis")
	}

	if _, err := s.SaveAnalysis(model.AnalysisResult{
		UserID: userID, Kind: model.MediaAudio, Question: "Q0", Payload: []byte(`{"text":"first"}`),
	}); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if _, err := s.SaveAnalysis(model.AnalysisResult{
		UserID: userID, Kind: model.MediaAudio, Question: "Q1", Payload: []byte(`{"text":"second"}`),
	}); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if _, err := s.SaveAnalysis(model.AnalysisResult{
		UserID: userID, Kind: model.MediaVideo, Payload: []byte(`{"posture":"ok"}`),
	}); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	latest, err = s.LatestAnalysis(userID, model.MediaAudio)
	if err != nil {
		t.Fatalf("LatestAnalysis: %v", err)
	}
	if latest == nil || string(latest.Payload) != `{"text":"second"}` {
		t.Fatalf("expected the most recent audio analysis, got %+v", latest)
	}

	video, _ := s.LatestAnalysis(userID, model.MediaVideo)
	if video == nil || string(video.Payload) != `{"posture":"ok"}` {
		t.Errorf("expected the video analysis, got %+v", video)
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	id := createTestUser(t, s, "eve")

	u, err := s.GetUserByUsername("eve")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || u.Role != model.UserRoleCandidate {
		t.Fatalf("unexpected user: %+v", u)
	}

	missing, err := s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown username")
	}

	if err := s.ToggleUserActive(id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	u, _ = s.GetUserByID(id)
	if u.Active {
		t.Error("expected user to be inactive after toggle")
	}

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "frank")

	token, err := s.CreateAuthSession(userID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != userID {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}
}

func TestExportAllInterviews(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "grace")
	createTestInterview(t, s, "iv-1", userID, twoQuestions())

	if err := s.SaveOutcomes("iv-1", []model.SubmissionOutcome{
		{QuestionIndex: 0, FileName: "interview_audio_q0.webm", Status: model.OutcomeUploaded},
	}); err != nil {
		t.Fatalf("SaveOutcomes: %v", err)
	}
	if err := s.UpdateInterviewState("iv-1", model.StateDone); err != nil {
		t.Fatalf("UpdateInterviewState: %v", err)
	}

	results, err := s.ExportAllInterviews()
	if err != nil {
		t.Fatalf("ExportAllInterviews: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Username != "grace" || r.InterviewID != "iv-1" {
		t.Errorf("unexpected result: %+v", r)
	}
	if len(r.Questions) != 2 || len(r.Outcomes) != 1 {
		t.Errorf("expected 2 questions and 1 outcome, got %d and %d", len(r.Questions), len(r.Outcomes))
	}
	if r.State != model.StateDone || r.EndedAt == nil {
		t.Errorf("expected finished interview in export, got state %q", r.State)
	}
}
