package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
)

func TestParseQuestionDescriptorsObject(t *testing.T) {
	raw := `{"questions":[
		{"text":"Was the site visit performed?","type":"yes_no","category":"Site Visitation","required":true},
		{"text":"Select the entity type","type":"selection","options":["LLC","PLC"],"help_text":"As registered"}
	]}`

	got, err := ParseQuestionDescriptors(raw, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Was the site visit performed?", got[0].Text)
	assert.Equal(t, "yes_no", got[0].Type)
	assert.True(t, got[0].IsRequired())
	assert.Equal(t, SourceOracle, got[0].Source)

	assert.Equal(t, []string{"LLC", "PLC"}, got[1].Options)
	assert.Equal(t, "General", got[1].Category, "missing category defaults to General")
	assert.True(t, got[1].IsRequired(), "missing required defaults to true")
}

func TestParseQuestionDescriptorsBareArrayInFences(t *testing.T) {
	raw := "```json\n[{\"text\":\"Provide the date of the assessment\"}]\n```"

	got, err := ParseQuestionDescriptors(raw, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "text", got[0].Type)
	assert.Empty(t, got[0].HelpText)
	assert.Nil(t, got[0].Options)
}

func TestParseQuestionDescriptorsLenient(t *testing.T) {
	raw := `{"questions":[
		{"text":"Is the entity regulated?","required":"false","category":null,"confidence":0.9},
		{"text":"   "},
		{"text":"Choose a plan","type":"selection","options":["A", 2, ""]}
	]}`

	got, err := ParseQuestionDescriptors(raw, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].IsRequired())
	assert.Equal(t, "General", got[0].Category)
	assert.Equal(t, []string{"A"}, got[1].Options)
}

func TestParseQuestionDescriptorsMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json at all", `{"items":[]}`, `{"questions":"nope"}`} {
		_, err := ParseQuestionDescriptors(raw, nil)
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, common.ErrOracleMalformedOutput, raw)
	}
}

func TestParseQuestionDescriptorsEmptyList(t *testing.T) {
	got, err := ParseQuestionDescriptors(`{"questions":[]}`, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
