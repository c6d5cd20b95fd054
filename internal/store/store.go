package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/careerboost/interviewlab/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'candidate',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		media TEXT NOT NULL,
		job_level TEXT NOT NULL DEFAULT '',
		job_post TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT 'not_started',
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS interview_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		interview_id TEXT NOT NULL,
		question_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'unspecified',
		difficulty TEXT NOT NULL DEFAULT 'unspecified',
		UNIQUE (interview_id, question_index),
		FOREIGN KEY (interview_id) REFERENCES interviews(id)
	);

	CREATE TABLE IF NOT EXISTS submission_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		interview_id TEXT NOT NULL,
		question_index INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		status TEXT NOT NULL,
		error_detail TEXT NOT NULL DEFAULT '',
		analysis BLOB,
		UNIQUE (interview_id, question_index),
		FOREIGN KEY (interview_id) REFERENCES interviews(id)
	);

	CREATE TABLE IF NOT EXISTS analysis_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		interview_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		question TEXT NOT NULL DEFAULT '',
		payload BLOB,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateInterview stores an interview record with its question list.
func (s *Store) CreateInterview(iv model.Interview, questions []model.Question) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO interviews (id, user_id, media, job_level, job_post, state, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.UserID, iv.Media, iv.JobLevel, iv.JobPost, iv.State, time.Now(),
	)
	if err != nil {
		return err
	}

	for _, q := range questions {
		_, err := tx.Exec(
			`INSERT INTO interview_questions (interview_id, question_index, text, type, difficulty)
			 VALUES (?, ?, ?, ?, ?)`,
			iv.ID, q.Index, q.Text, q.Type, q.Difficulty,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetInterview returns an interview by ID.
func (s *Store) GetInterview(id string) (model.Interview, error) {
	var iv model.Interview
	err := s.db.QueryRow(
		`SELECT id, user_id, media, job_level, job_post, state, started_at, ended_at
		 FROM interviews WHERE id = ?`, id,
	).Scan(&iv.ID, &iv.UserID, &iv.Media, &iv.JobLevel, &iv.JobPost, &iv.State, &iv.StartedAt, &iv.EndedAt)
	return iv, err
}

// GetInterviewQuestions returns the question list for an interview in order.
func (s *Store) GetInterviewQuestions(interviewID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT question_index, text, type, difficulty
		 FROM interview_questions WHERE interview_id = ? ORDER BY question_index`, interviewID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.Index, &q.Text, &q.Type, &q.Difficulty); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListInterviews returns a user's interviews, newest first.
func (s *Store) ListInterviews(userID int64) ([]model.Interview, error) {
	return s.listInterviews(
		`SELECT id, user_id, media, job_level, job_post, state, started_at, ended_at
		 FROM interviews WHERE user_id = ? ORDER BY started_at DESC`, userID)
}

// ListAllInterviews returns every interview, newest first.
func (s *Store) ListAllInterviews() ([]model.Interview, error) {
	return s.listInterviews(
		`SELECT id, user_id, media, job_level, job_post, state, started_at, ended_at
		 FROM interviews ORDER BY started_at DESC`)
}

func (s *Store) listInterviews(query string, args ...any) ([]model.Interview, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var interviews []model.Interview
	for rows.Next() {
		var iv model.Interview
		if err := rows.Scan(&iv.ID, &iv.UserID, &iv.Media, &iv.JobLevel, &iv.JobPost, &iv.State, &iv.StartedAt, &iv.EndedAt); err != nil {
			return nil, err
		}
		interviews = append(interviews, iv)
	}
	return interviews, rows.Err()
}

// UpdateInterviewState updates the interview state, stamping ended_at when
// the interview reaches its terminal state.
func (s *Store) UpdateInterviewState(id string, state model.SessionState) error {
	query := `UPDATE interviews SET state = ? WHERE id = ?`
	args := []any{state, id}
	if state == model.StateDone {
		query = `UPDATE interviews SET state = ?, ended_at = ? WHERE id = ?`
		args = []any{state, time.Now(), id}
	}
	_, err := s.db.Exec(query, args...)
	return err
}

// SaveOutcomes replaces the stored submission outcomes for an interview.
func (s *Store) SaveOutcomes(interviewID string, outcomes []model.SubmissionOutcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM submission_outcomes WHERE interview_id = ?`, interviewID); err != nil {
		return err
	}
	for _, o := range outcomes {
		_, err := tx.Exec(
			`INSERT INTO submission_outcomes (interview_id, question_index, file_name, status, error_detail, analysis)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			interviewID, o.QuestionIndex, o.FileName, o.Status, o.ErrorDetail, o.Analysis,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetOutcomes returns the submission outcomes for an interview in question order.
func (s *Store) GetOutcomes(interviewID string) ([]model.SubmissionOutcome, error) {
	rows, err := s.db.Query(
		`SELECT question_index, file_name, status, error_detail, analysis
		 FROM submission_outcomes WHERE interview_id = ? ORDER BY question_index`, interviewID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var outcomes []model.SubmissionOutcome
	for rows.Next() {
		var o model.SubmissionOutcome
		if err := rows.Scan(&o.QuestionIndex, &o.FileName, &o.Status, &o.ErrorDetail, &o.Analysis); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// SaveAnalysis stores an analysis payload.
func (s *Store) SaveAnalysis(a model.AnalysisResult) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO analysis_results (user_id, interview_id, kind, question, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.InterviewID, a.Kind, a.Question, a.Payload, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestAnalysis returns a user's most recent analysis of the given kind,
// or nil if none exists.
func (s *Store) LatestAnalysis(userID int64, kind model.MediaKind) (*model.AnalysisResult, error) {
	var a model.AnalysisResult
	err := s.db.QueryRow(
		`SELECT id, user_id, interview_id, kind, question, payload, created_at
		 FROM analysis_results WHERE user_id = ? AND kind = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, userID, kind,
	).Scan(&a.ID, &a.UserID, &a.InterviewID, &a.Kind, &a.Question, &a.Payload, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InterviewCount returns the number of stored interviews.
func (s *Store) InterviewCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM interviews`).Scan(&count)
	return count, err
}
