// Package report computes completion summaries for a user's answers.
package report

import (
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

// Rate returns answered/total as a percentage, or 0 when total is 0.
func Rate(answered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(answered) / float64(total) * 100
}

// Generate builds a completion report. A question counts as answered when its id
// has a response; responses to questions outside the list are ignored.
// Category stats keep the order in which categories first appear.
func Generate(userID, sessionID, country string, questions []entity.Question, responses map[string]entity.ResponseRecord) entity.CompletionReport {
	rep := entity.CompletionReport{
		UserID:           userID,
		SessionID:        sessionID,
		Country:          country,
		TotalQuestions:   len(questions),
		CategoryStats:    []entity.CategoryStats{},
		MissingQuestions: []string{},
	}

	index := map[string]int{}
	for _, q := range questions {
		i, ok := index[q.Category]
		if !ok {
			i = len(rep.CategoryStats)
			index[q.Category] = i
			rep.CategoryStats = append(rep.CategoryStats, entity.CategoryStats{Category: q.Category})
		}
		rep.CategoryStats[i].Total++
		if _, answered := responses[q.ID]; answered {
			rep.AnsweredQuestions++
			rep.CategoryStats[i].Answered++
		} else {
			rep.MissingQuestions = append(rep.MissingQuestions, q.ID)
		}
	}

	rep.CompletionRate = Rate(rep.AnsweredQuestions, rep.TotalQuestions)
	for i := range rep.CategoryStats {
		cs := &rep.CategoryStats[i]
		cs.CompletionRate = Rate(cs.Answered, cs.Total)
	}
	return rep
}
