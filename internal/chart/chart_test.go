package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	req, err := Normalize(Input{Date: "1990-05-14", Time: "08:30", City: "Prague"})
	require.NoError(t, err)

	assert.Equal(t, Request{
		Day:    "14",
		Month:  "05",
		Year:   "1990",
		Hour:   "08",
		Minute: "30",
		City:   "Prague",
	}, req)
}

func TestNormalizePassesImpossibleDatesThrough(t *testing.T) {
	req, err := Normalize(Input{Date: "2001-02-31", Time: "25:61", City: "Oslo"})
	require.NoError(t, err)

	assert.Equal(t, "31", req.Day)
	assert.Equal(t, "02", req.Month)
	assert.Equal(t, "25", req.Hour)
	assert.Equal(t, "61", req.Minute)
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		field string
	}{
		{"no date", Input{Time: "08:30", City: "Prague"}, "date"},
		{"no time", Input{Date: "1990-05-14", City: "Prague"}, "time"},
		{"no city", Input{Date: "1990-05-14", Time: "08:30"}, "city"},
		{"blank city", Input{Date: "1990-05-14", Time: "08:30", City: "  "}, "city"},
		{"date without day", Input{Date: "1990-05", Time: "08:30", City: "Prague"}, "day"},
		{"time without minute", Input{Date: "1990-05-14", Time: "08", City: "Prague"}, "minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			require.ErrorIs(t, err, ErrMissingField)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestRecordJSONShape(t *testing.T) {
	data, err := json.Marshal(Record{ZodiacSign: "Taurus"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"zodiacSign":"Taurus","planetPositions":"","housePlacements":["",""]}`, string(data))
}

func TestRecordMissing(t *testing.T) {
	r := Record{ZodiacSign: "Taurus", HousePlacements: [HouseCount]string{"", "Asc"}}
	assert.Equal(t, []string{"planetPositions", "housePlacements[0]"}, r.Missing())
	assert.Empty(t, Record{
		ZodiacSign:      "a",
		PlanetPositions: "b",
		HousePlacements: [HouseCount]string{"c", "d"},
	}.Missing())
}
