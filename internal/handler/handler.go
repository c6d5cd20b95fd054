// Package handler exposes the interview workflow as a JSON API consumed by
// the browser frontend. The frontend holds the actual microphone and camera;
// recorded media reaches the server as chunks on the capture endpoints.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/careerboost/interviewlab/internal/capture"
	"github.com/careerboost/interviewlab/internal/genai"
	appI18n "github.com/careerboost/interviewlab/internal/i18n"
	"github.com/careerboost/interviewlab/internal/model"
	"github.com/careerboost/interviewlab/internal/session"
	"github.com/careerboost/interviewlab/internal/store"
	"github.com/careerboost/interviewlab/internal/submit"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	generator genai.Generator
	device    capture.Device
	uploader  submit.Uploader
	config    model.Config

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New creates a new Handler.
func New(s *store.Store, g genai.Generator, dev capture.Device, up submit.Uploader, cfg model.Config) *Handler {
	return &Handler{
		store:     s,
		generator: g,
		device:    dev,
		uploader:  up,
		config:    cfg,
		sessions:  make(map[string]*session.Session),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/api/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/api/logout", h.handleLogout)

		r.Post("/api/interviews", h.handleCreateInterview)
		r.Get("/api/interviews", h.handleListInterviews)
		r.Get("/api/interviews/{interviewID}", h.handleGetInterview)
		r.Delete("/api/interviews/{interviewID}", h.handleTeardown)

		r.Post("/api/interviews/{interviewID}/start", h.handleStart)
		r.Post("/api/interviews/{interviewID}/capture/start", h.handleCaptureStart)
		r.Post("/api/interviews/{interviewID}/capture/chunk", h.handleCaptureChunk)
		r.Post("/api/interviews/{interviewID}/capture/stop", h.handleCaptureStop)
		r.Post("/api/interviews/{interviewID}/next", h.handleNext)
		r.Post("/api/interviews/{interviewID}/end", h.handleEnd)
		r.Get("/api/interviews/{interviewID}/progress", h.handleProgress)

		r.Post("/api/analysis", h.handleSaveAnalysis)
		r.Get("/api/analysis/latest", h.handleLatestAnalysis)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/api/admin/users", h.handleListUsers)
			r.Post("/api/admin/users", h.handleCreateUser)
			r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondWorkflowError maps workflow sentinels to HTTP statuses with a
// localized message.
func (h *Handler) respondWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrUseEndInterview):
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "FinishViaEnd"))
	case errors.Is(err, session.ErrWrongState):
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "WrongState"))
	case errors.Is(err, capture.ErrCaptureActive):
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "CaptureActive"))
	case errors.Is(err, capture.ErrDeviceUnavailable):
		respondError(w, http.StatusServiceUnavailable, appI18n.T(r.Context(), "DeviceUnavailable"))
	default:
		slog.Error("interview operation failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createInterviewRequest struct {
	Media           model.MediaKind `json:"media"`
	JobLevel        string          `json:"job_level"`
	JobPost         string          `json:"job_post"`
	JobRequirements string          `json:"job_requirements"`
	QuestionCount   int             `json:"question_count"`
}

func (h *Handler) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req createInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.JobPost == "" && req.JobRequirements == "" {
		respondError(w, http.StatusBadRequest, "job_post or job_requirements required")
		return
	}

	media := req.Media
	if media != model.MediaAudio && media != model.MediaVideo {
		media = h.config.Media
	}
	count := req.QuestionCount
	if count <= 0 {
		count = h.config.QuestionCount
	}

	questions, err := h.generator.Generate(r.Context(), model.GenerateRequest{
		JobLevel:        req.JobLevel,
		JobPost:         req.JobPost,
		JobRequirements: req.JobRequirements,
		QuestionCount:   count,
	})
	if err != nil {
		slog.Error("question generation failed", "error", err)
		respondError(w, http.StatusBadGateway, "question generation failed")
		return
	}

	pipeline := submit.NewPipeline(h.uploader, submit.WithTimeout(h.config.UploadTimeout))
	sess, err := session.New(questions, media, capture.New(h.device), pipeline)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	iv := model.Interview{
		ID:       sess.ID(),
		UserID:   user.ID,
		Media:    media,
		JobLevel: req.JobLevel,
		JobPost:  req.JobPost,
		State:    model.StateNotStarted,
	}
	if err := h.store.CreateInterview(iv, questions); err != nil {
		slog.Error("failed to persist interview", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save interview")
		return
	}

	h.mu.Lock()
	h.sessions[sess.ID()] = sess
	h.mu.Unlock()

	slog.Info("interview created", "id", sess.ID(), "user", user.Username,
		"media", media, "questions", len(questions))

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":        sess.ID(),
		"media":     media,
		"questions": questions,
	})
}

func (h *Handler) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	interviews, err := h.store.ListInterviews(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if interviews == nil {
		interviews = []model.Interview{}
	}
	respondJSON(w, http.StatusOK, interviews)
}

func (h *Handler) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	iv, ok := h.ownedInterview(w, r)
	if !ok {
		return
	}
	questions, err := h.store.GetInterviewQuestions(iv.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	outcomes, err := h.store.GetOutcomes(iv.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"interview": iv,
		"questions": questions,
		"outcomes":  outcomes,
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := sess.Start(); err != nil {
		h.respondWorkflowError(w, r, err)
		return
	}
	if err := h.store.UpdateInterviewState(sess.ID(), model.StateInProgress); err != nil {
		slog.Error("failed to update interview state", "id", sess.ID(), "error", err)
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := sess.StartRecording(r.Context()); err != nil {
		h.respondWorkflowError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) handleCaptureChunk(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read chunk")
		return
	}
	sess.PushChunk(data)
	respondJSON(w, http.StatusAccepted, map[string]int{"bytes": len(data)})
}

func (h *Handler) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	recorded := sess.StopRecording()
	resp := map[string]any{"recorded": recorded, "snapshot": sess.Snapshot()}
	if !recorded {
		resp["message"] = appI18n.T(r.Context(), "DuplicateRecording")
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := sess.Next(); err != nil {
		h.respondWorkflowError(w, r, err)
		return
	}
	snap := sess.Snapshot()
	if snap.State == model.StateFinished {
		if err := h.store.UpdateInterviewState(sess.ID(), model.StateFinished); err != nil {
			slog.Error("failed to update interview state", "id", sess.ID(), "error", err)
		}
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	outcomes, err := sess.End(r.Context())
	if err != nil && !errors.Is(err, submit.ErrNoRecordings) {
		h.respondWorkflowError(w, r, err)
		return
	}

	if saveErr := h.store.SaveOutcomes(sess.ID(), outcomes); saveErr != nil {
		slog.Error("failed to save outcomes", "id", sess.ID(), "error", saveErr)
	}
	if stateErr := h.store.UpdateInterviewState(sess.ID(), model.StateDone); stateErr != nil {
		slog.Error("failed to update interview state", "id", sess.ID(), "error", stateErr)
	}
	for _, o := range outcomes {
		if o.Status != model.OutcomeUploaded || len(o.Analysis) == 0 {
			continue
		}
		if _, saveErr := h.store.SaveAnalysis(model.AnalysisResult{
			UserID:      user.ID,
			InterviewID: sess.ID(),
			Kind:        sess.Media(),
			Question:    questionAt(sess.Questions(), o.QuestionIndex),
			Payload:     o.Analysis,
		}); saveErr != nil {
			slog.Error("failed to save analysis", "id", sess.ID(), "error", saveErr)
		}
	}

	uploaded, failed := submit.Tally(outcomes)
	resp := map[string]any{
		"state":            model.StateDone,
		"outcomes":         outcomes,
		"uploaded":         uploaded,
		"failed":           failed,
		"summary_delay_ms": h.config.SummaryDelay.Milliseconds(),
		"message":          appI18n.Tp(r.Context(), "RecordingsSubmitted", uploaded),
	}
	if errors.Is(err, submit.ErrNoRecordings) {
		resp["message"] = appI18n.T(r.Context(), "NoRecordings")
	} else if failed > 0 {
		resp["warning"] = appI18n.Tp(r.Context(), "UploadsFailed", failed)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

// handleTeardown is the abandonment path: the frontend calls it when the
// candidate navigates away. Any live capture is released.
func (h *Handler) handleTeardown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interviewID")
	if _, ok := h.ownedInterview(w, r); !ok {
		return
	}

	h.mu.Lock()
	sess := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	slog.Info("interview torn down", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

type saveAnalysisRequest struct {
	InterviewID string          `json:"interview_id"`
	Kind        model.MediaKind `json:"kind"`
	Question    string          `json:"question"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *Handler) handleSaveAnalysis(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req saveAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Kind != model.MediaAudio && req.Kind != model.MediaVideo {
		respondError(w, http.StatusBadRequest, "kind must be audio or video")
		return
	}

	id, err := h.store.SaveAnalysis(model.AnalysisResult{
		UserID:      user.ID,
		InterviewID: req.InterviewID,
		Kind:        req.Kind,
		Question:    req.Question,
		Payload:     req.Payload,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	kind := model.MediaKind(r.URL.Query().Get("type"))
	if kind != model.MediaAudio && kind != model.MediaVideo {
		respondError(w, http.StatusBadRequest, "type must be audio or video")
		return
	}

	latest, err := h.store.LatestAnalysis(user.ID, kind)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest == nil {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "NoAnalysis"))
		return
	}
	respondJSON(w, http.StatusOK, latest)
}

// ownedInterview loads the interview from the path and checks the requester
// owns it (admins may read any).
func (h *Handler) ownedInterview(w http.ResponseWriter, r *http.Request) (model.Interview, bool) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "interviewID")

	iv, err := h.store.GetInterview(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "InterviewNotFound"))
		return model.Interview{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return model.Interview{}, false
	}
	if iv.UserID != user.ID && user.Role != model.UserRoleAdmin {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "InterviewNotFound"))
		return model.Interview{}, false
	}
	return iv, true
}

// ownedSession resolves the live session for the interview in the path.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	iv, ok := h.ownedInterview(w, r)
	if !ok {
		return nil, false
	}

	h.mu.Lock()
	sess := h.sessions[iv.ID]
	h.mu.Unlock()

	if sess == nil {
		respondError(w, http.StatusGone, appI18n.T(r.Context(), "InterviewNotFound"))
		return nil, false
	}
	return sess, true
}

func questionAt(questions []model.Question, idx int) string {
	if idx >= 0 && idx < len(questions) {
		return questions[idx].Text
	}
	return ""
}
