package store

import (
	"fmt"

	"github.com/careerboost/interviewlab/internal/model"
)

// ExportAllInterviews builds export-ready candidate results from all
// stored interviews.
func (s *Store) ExportAllInterviews() ([]model.CandidateResult, error) {
	interviews, err := s.ListAllInterviews()
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}

	var results []model.CandidateResult
	for _, iv := range interviews {
		user, err := s.GetUserByID(iv.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", iv.UserID, err)
		}
		questions, err := s.GetInterviewQuestions(iv.ID)
		if err != nil {
			return nil, fmt.Errorf("get questions for %s: %w", iv.ID, err)
		}
		outcomes, err := s.GetOutcomes(iv.ID)
		if err != nil {
			return nil, fmt.Errorf("get outcomes for %s: %w", iv.ID, err)
		}

		var username, displayName string
		if user != nil {
			username = user.Username
			displayName = user.DisplayName
		}

		results = append(results, model.CandidateResult{
			InterviewID: iv.ID,
			Username:    username,
			DisplayName: displayName,
			Media:       iv.Media,
			JobLevel:    iv.JobLevel,
			JobPost:     iv.JobPost,
			State:       iv.State,
			StartedAt:   iv.StartedAt,
			EndedAt:     iv.EndedAt,
			Questions:   questions,
			Outcomes:    outcomes,
		})
	}

	return results, nil
}
