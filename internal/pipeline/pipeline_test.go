package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/extract"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
)

type fakeReader struct {
	pages []string
	err   error
}

func (f fakeReader) ReadPages(context.Context, string) (extract.PagesResult, error) {
	return extract.PagesResult{Pages: f.pages, SourceType: constants.TXT}, f.err
}

// pageOracle answers extraction prompts by page number and country prompts with country.
type pageOracle struct {
	byPage  map[int]string
	country string
	calls   atomic.Int32
}

func (o *pageOracle) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	o.calls.Add(1)
	if !req.JSON {
		return o.country, nil
	}
	for n, out := range o.byPage {
		if strings.Contains(req.User, fmt.Sprintf("Page: %d\n", n)) {
			// later pages answer first to shake out ordering bugs
			time.Sleep(time.Duration(10-n) * time.Millisecond)
			return out, nil
		}
	}
	return "", errors.New("no answer configured")
}

func q(texts ...string) string {
	items := make([]string, len(texts))
	for i, t := range texts {
		items[i] = fmt.Sprintf(`{"text":%q,"type":"yes_no","category":"Compliance"}`, t)
	}
	return `{"questions":[` + strings.Join(items, ",") + `]}`
}

func TestExtractOrderAndDedup(t *testing.T) {
	pages := []string{"Kuwait onboarding p1", "p2", "p3", "p4"}
	oracle := &pageOracle{byPage: map[int]string{
		1: q("Q1?", "Q2?"),
		2: q("Q3?", "Q1?"),
		3: q("Q4?"),
		4: q("Q2?", "Q5?"),
	}}
	p := NewPipeline(Config{PageConcurrency: 3}, fakeReader{pages: pages}, oracle, nil)

	res, err := p.Extract(context.Background(), "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "Kuwait", res.Country)
	assert.Equal(t, 4, res.Pages)
	assert.Zero(t, res.OracleFallbackPages)

	var texts []string
	for i, qq := range res.Questions {
		texts = append(texts, qq.Text)
		assert.Equal(t, i, qq.Position)
		assert.Equal(t, "Kuwait", qq.Country)
	}
	assert.Equal(t, []string{"Q1?", "Q2?", "Q3?", "Q4?", "Q5?"}, texts)
}

func TestExtractIsIdempotent(t *testing.T) {
	pages := []string{"Qatar\nWas the site visit performed?\nPlease provide the trade licence"}
	p := NewPipeline(Config{}, fakeReader{pages: pages}, nil, nil)

	first, err := p.Extract(context.Background(), "a.txt")
	require.NoError(t, err)
	second, err := p.Extract(context.Background(), "a.txt")
	require.NoError(t, err)

	require.Len(t, first.Questions, 2)
	require.Len(t, second.Questions, 2)
	for i := range first.Questions {
		assert.Equal(t, first.Questions[i].ID, second.Questions[i].ID)
		assert.Equal(t, QuestionID(first.Questions[i].Text, "Qatar"), first.Questions[i].ID)
	}
}

func TestExtractFallsBackPerPage(t *testing.T) {
	pages := []string{
		"Oman\nWas the entity audited?",
		"Was the site visit performed?\nPlease select the licence type",
	}
	oracle := &pageOracle{byPage: map[int]string{1: q("Was the entity audited?"), 2: "not json"}}
	p := NewPipeline(Config{}, fakeReader{pages: pages}, oracle, nil)

	res, err := p.Extract(context.Background(), "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, res.OracleFallbackPages)
	require.Len(t, res.Questions, 3)

	sel := res.Questions[2]
	assert.Equal(t, constants.Selection, sel.Type)
	assert.True(t, sel.NeedsCuration)
	assert.Empty(t, sel.Options)
}

func TestExtractWithoutOracleCountsHeuristicPages(t *testing.T) {
	pages := []string{"Oman\nWas the entity audited?", "   ", "Was the site visit performed?"}
	p := NewPipeline(Config{}, fakeReader{pages: pages}, nil, nil)

	res, err := p.Extract(context.Background(), "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 2, res.OracleFallbackPages)
	assert.Len(t, res.Questions, 2)
}

func TestExtractCountryFromOracle(t *testing.T) {
	oracle := &pageOracle{country: "bahrain", byPage: map[int]string{1: q("Is this a test question?")}}
	p := NewPipeline(Config{}, fakeReader{pages: []string{"no country here"}}, oracle, nil)

	res, err := p.Extract(context.Background(), "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "Bahrain", res.Country)
}

func TestExtractReaderFailure(t *testing.T) {
	p := NewPipeline(Config{}, fakeReader{err: errors.New("corrupt")}, nil, nil)

	_, err := p.Extract(context.Background(), "doc.pdf")
	assert.ErrorIs(t, err, common.ErrExtractionFailure)
}

func TestExtractEmptyDocument(t *testing.T) {
	p := NewPipeline(Config{}, fakeReader{pages: nil}, nil, nil)

	res, err := p.Extract(context.Background(), "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, constants.UnknownCountry, res.Country)
	assert.Empty(t, res.Questions)
}

func TestNormalize(t *testing.T) {
	f := false
	descs := []llm.QuestionDescriptor{
		{Text: "  Was the CSSP beneficial owner identified?  ", Type: "YES_NO", Category: "Compliance", Required: &f},
		{Text: "Colour", Type: "colour_picker"},
		{Text: "Pick a licence type", Type: "selection", Options: []string{" A ", "", "B"}},
		{Text: "Explain", Type: "text", Options: []string{"ignored"}},
		{Text: "   "},
		{Text: "Café policy", Type: "text"},
		{Text: "Café policy", Type: "text"},
		{Text: "Select the licence class", Type: "selection", Source: llm.SourceOracle},
		{Text: "Tick all that apply", Type: "multi_select", Options: []string{" ", ""}},
	}

	got := Normalize(descs, "Egypt", nil)
	require.Len(t, got, 7)

	assert.Equal(t, "Was the CSSP beneficial owner identified?", got[0].Text)
	assert.Equal(t, constants.YesNo, got[0].Type)
	assert.False(t, got[0].Required)
	assert.Equal(t, "beneficial owner, CSSP", got[0].RegulatoryContext)
	assert.Equal(t, "CDD", got[0].ComplianceArea)

	assert.Equal(t, constants.Text, got[1].Type)
	assert.True(t, got[1].NeedsCuration)

	assert.Equal(t, []string{"A", "B"}, got[2].Options)
	assert.Nil(t, got[3].Options)
	assert.Equal(t, "Café policy", got[4].Text)
	assert.Equal(t, constants.DefaultLabel, got[4].Category)

	assert.False(t, got[2].NeedsCuration)
	assert.Equal(t, constants.Selection, got[5].Type)
	assert.Empty(t, got[5].Options)
	assert.True(t, got[5].NeedsCuration)
	assert.True(t, got[6].NeedsCuration)
}

func TestOracleSelectionWithoutOptionsIsHeld(t *testing.T) {
	descs, err := llm.ParseQuestionDescriptors(`{"questions":[{"text":"Select the licence class","type":"selection"}]}`, nil)
	require.NoError(t, err)

	got := Normalize(descs, "Oman", nil)
	require.Len(t, got, 1)
	assert.Equal(t, constants.Selection, got[0].Type)
	assert.True(t, got[0].NeedsCuration)
}
