package report

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

func TestRate(t *testing.T) {
	assert.Equal(t, 40.0, Rate(4, 10))
	assert.Equal(t, 0.0, Rate(0, 0))
	assert.Equal(t, 100.0, Rate(3, 3))
}

func TestGenerateCompletionMath(t *testing.T) {
	var qs []entity.Question
	responses := map[string]entity.ResponseRecord{}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("q%d", i)
		qs = append(qs, entity.Question{ID: id, Category: "General"})
		if i < 4 {
			responses[id] = entity.ResponseRecord{Answer: "yes"}
		}
	}

	rep := Generate("u1", "s1", "Oman", qs, responses)
	assert.Equal(t, 10, rep.TotalQuestions)
	assert.Equal(t, 4, rep.AnsweredQuestions)
	assert.Equal(t, 40.0, rep.CompletionRate)
	assert.Equal(t, []string{"q4", "q5", "q6", "q7", "q8", "q9"}, rep.MissingQuestions)
}

func TestGenerateEmpty(t *testing.T) {
	rep := Generate("u1", "s1", "Oman", nil, nil)
	assert.Equal(t, 0, rep.TotalQuestions)
	assert.Equal(t, 0.0, rep.CompletionRate)
	assert.Empty(t, rep.CategoryStats)
	assert.Empty(t, rep.MissingQuestions)
}

func TestGenerateCategoryStats(t *testing.T) {
	qs := []entity.Question{
		{ID: "a", Category: "Staffing"},
		{ID: "b", Category: "Compliance"},
		{ID: "c", Category: "Staffing"},
		{ID: "d", Category: "Financial"},
	}
	responses := map[string]entity.ResponseRecord{
		"a":     {Answer: "3"},
		"b":     {Answer: "yes"},
		"other": {Answer: "ignored"},
	}

	rep := Generate("u1", "s1", "Oman", qs, responses)
	assert.Equal(t, 2, rep.AnsweredQuestions)
	assert.Equal(t, 50.0, rep.CompletionRate)

	require.Len(t, rep.CategoryStats, 3)
	assert.Equal(t, entity.CategoryStats{Category: "Staffing", Total: 2, Answered: 1, CompletionRate: 50}, rep.CategoryStats[0])
	assert.Equal(t, entity.CategoryStats{Category: "Compliance", Total: 1, Answered: 1, CompletionRate: 100}, rep.CategoryStats[1])
	assert.Equal(t, entity.CategoryStats{Category: "Financial", Total: 1, Answered: 0, CompletionRate: 0}, rep.CategoryStats[2])
	assert.Equal(t, []string{"c", "d"}, rep.MissingQuestions)
}
