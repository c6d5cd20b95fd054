// Package genai produces interview question lists, either from a hosted
// question-generation agent or from an OpenAI-compatible chat API.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/careerboost/interviewlab/internal/model"
)

// ErrEmptyGeneration reports that the backend answered but produced no
// usable questions.
var ErrEmptyGeneration = errors.New("generator returned no questions")

// Generator produces an ordered question list for a job description.
type Generator interface {
	Generate(ctx context.Context, req model.GenerateRequest) ([]model.Question, error)
}

// AgentClient calls a hosted agent endpoint that takes a job description as
// JSON and returns generated questions.
type AgentClient struct {
	client *resty.Client
	url    string
}

// NewAgentClient creates a client for the agent at url.
func NewAgentClient(url string) *AgentClient {
	return &AgentClient{
		client: resty.New(),
		url:    url,
	}
}

type agentPayload struct {
	JobLevel        string `json:"job_level"`
	JobPost         string `json:"job_post"`
	JobRequirements string `json:"job_requirements"`
	// The agent expects the count as a string and falls back to its own
	// default when the field is absent.
	QuestionCount string `json:"question_count,omitempty"`
}

// agentResponse tolerates both response shapes the agent is known to emit:
// a flat questions array and the nested result envelope.
type agentResponse struct {
	Questions []agentQuestion `json:"questions"`
	Result    struct {
		InterviewQuestions struct {
			InterviewQuestions struct {
				Questions []agentQuestion `json:"questions"`
			} `json:"interview_questions"`
		} `json:"interview_questions"`
	} `json:"result"`
}

type agentQuestion struct {
	Question   string `json:"question"`
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
}

// Generate posts the job description to the agent and parses its question
// list.
func (c *AgentClient) Generate(ctx context.Context, req model.GenerateRequest) ([]model.Question, error) {
	payload := agentPayload{
		JobLevel:        req.JobLevel,
		JobPost:         req.JobPost,
		JobRequirements: req.JobRequirements,
	}
	if req.QuestionCount > 0 {
		payload.QuestionCount = strconv.Itoa(req.QuestionCount)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("agent request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("agent request: %s", resp.Status())
	}

	var parsed agentResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("parse agent response: %w", err)
	}

	raw := parsed.Questions
	if len(raw) == 0 {
		raw = parsed.Result.InterviewQuestions.InterviewQuestions.Questions
	}
	questions := convertQuestions(raw)
	if len(questions) == 0 {
		return nil, ErrEmptyGeneration
	}

	slog.Debug("agent generated questions", "count", len(questions))
	return questions, nil
}

func convertQuestions(raw []agentQuestion) []model.Question {
	questions := make([]model.Question, 0, len(raw))
	for _, q := range raw {
		text := strings.TrimSpace(q.Question)
		if text == "" {
			continue
		}
		questions = append(questions, model.Question{
			Index:      len(questions),
			Text:       text,
			Type:       model.ParseQuestionType(q.Type),
			Difficulty: model.ParseDifficulty(q.Difficulty),
		})
	}
	return questions
}
