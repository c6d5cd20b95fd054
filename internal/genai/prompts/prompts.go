// Package prompts builds the question-generation prompt from embedded
// templates. Job description fields come from end users, so they are
// sanitized before being interpolated.
package prompts

import (
	"bytes"
	_ "embed"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/careerboost/interviewlab/internal/model"
)

//go:embed generate.txt
var generateText string

var generateTmpl = template.Must(template.New("generate").Parse(generateText))

var instructionTagRegex = regexp.MustCompile(`(?i)</?\s*(system-instructions|job-post|job-requirements)\b[^>]*>`)

const (
	defaultQuestionCount = 5
	maxFieldRunes        = 10000
)

// GenerateData holds template data for the generation prompt.
type GenerateData struct {
	JobLevel        string
	JobPost         string
	JobRequirements string
	QuestionCount   int
}

// BuildGeneratePrompt renders the generation prompt for a job description.
func BuildGeneratePrompt(req model.GenerateRequest) (string, error) {
	count := req.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}

	data := GenerateData{
		JobLevel:        sanitizeField(req.JobLevel),
		JobPost:         sanitizeField(req.JobPost),
		JobRequirements: sanitizeField(req.JobRequirements),
		QuestionCount:   count,
	}

	var buf bytes.Buffer
	if err := generateTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeField(s string) string {
	s = instructionTagRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if s == "" {
		return "[not provided]"
	}

	if utf8.RuneCountInString(s) > maxFieldRunes {
		runes := []rune(s)
		s = string(runes[:maxFieldRunes]) + "\n\n[truncated due to length]"
	}

	return s
}
