package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestParseYMD(t *testing.T) {
	got, err := ParseYMD("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseYMD("2024-13-40")
	assert.Error(t, err)
	_, err = ParseYMD("2023-02-29")
	assert.Error(t, err)
}

func TestStructRoundTrip(t *testing.T) {
	type payload struct {
		Name    string   `json:"name"`
		Count   int      `json:"count"`
		Options []string `json:"options,omitempty"`
	}
	s, err := ToStruct(payload{Name: "Oman", Count: 3, Options: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "Oman", StringField(s, "name"))
	assert.Equal(t, float64(3), s.GetFields()["count"].GetNumberValue())

	var back payload
	require.NoError(t, FromStruct(s, &back))
	assert.Equal(t, payload{Name: "Oman", Count: 3, Options: []string{"a"}}, back)

	_, err = ToStruct([]string{"not", "an", "object"})
	assert.Error(t, err)
}

func TestStringField(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"n": 1.0, "s": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", StringField(s, "s"))
	assert.Equal(t, "", StringField(s, "n"))
	assert.Equal(t, "", StringField(nil, "s"))
	assert.Equal(t, "", StrOrEmpty(nil))
}
