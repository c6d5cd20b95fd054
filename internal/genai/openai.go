package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/careerboost/interviewlab/internal/genai/prompts"
	"github.com/careerboost/interviewlab/internal/model"
)

// OpenAIGenerator generates questions through an OpenAI-compatible chat API.
type OpenAIGenerator struct {
	api   *openai.Client
	model string
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible endpoint.
// An empty baseURL keeps the library default.
func NewOpenAIGenerator(baseURL, apiKey, modelName string) *OpenAIGenerator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Generate builds a generation prompt from the job description and parses
// the model's JSON reply into a question list.
func (g *OpenAIGenerator) Generate(ctx context.Context, req model.GenerateRequest) ([]model.Question, error) {
	prompt, err := prompts.BuildGeneratePrompt(req)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var parsed struct {
		Questions []agentQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	questions := convertQuestions(parsed.Questions)
	if len(questions) == 0 {
		return nil, ErrEmptyGeneration
	}
	return questions, nil
}
