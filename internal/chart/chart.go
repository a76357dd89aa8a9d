package chart

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is returned when a required input field is absent or empty
var ErrMissingField = errors.New("missing required field")

// Input is the caller-facing request: a birth date, time and city
type Input struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM
	City string `json:"city"`
}

// Validate reports the first missing field, if any
func (in Input) Validate() error {
	switch {
	case strings.TrimSpace(in.Date) == "":
		return fmt.Errorf("%w: date", ErrMissingField)
	case strings.TrimSpace(in.Time) == "":
		return fmt.Errorf("%w: time", ErrMissingField)
	case strings.TrimSpace(in.City) == "":
		return fmt.Errorf("%w: city", ErrMissingField)
	}
	return nil
}

// Request holds the discrete form values expected by the target site
type Request struct {
	Day    string `json:"day"`
	Month  string `json:"month"`
	Year   string `json:"year"`
	Hour   string `json:"hour"`
	Minute string `json:"minute"`
	City   string `json:"city"`
}

// Validate checks that every field is present
func (r Request) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"day", r.Day},
		{"month", r.Month},
		{"year", r.Year},
		{"hour", r.Hour},
		{"minute", r.Minute},
		{"city", r.City},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// Normalize splits the date on "-" and the time on ":" into form fields.
// Values are passed through as-is: no calendar or range checks.
func Normalize(in Input) (Request, error) {
	if err := in.Validate(); err != nil {
		return Request{}, err
	}

	year, month, day := splitN3(in.Date, "-")
	hour, minute, _ := splitN3(in.Time, ":")

	req := Request{
		Day:    day,
		Month:  month,
		Year:   year,
		Hour:   hour,
		Minute: minute,
		City:   in.City,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func splitN3(s, sep string) (a, b, c string) {
	parts := strings.SplitN(s, sep, 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

// HouseCount is the fixed number of house placement entries in a Record
const HouseCount = 2

// Record is the extracted chart. Empty strings mean the element was not found.
type Record struct {
	ZodiacSign      string             `json:"zodiacSign"`
	PlanetPositions string             `json:"planetPositions"`
	HousePlacements [HouseCount]string `json:"housePlacements"`
}

// Missing lists the fields that were not found on the page
func (r Record) Missing() []string {
	var missing []string
	if r.ZodiacSign == "" {
		missing = append(missing, "zodiacSign")
	}
	if r.PlanetPositions == "" {
		missing = append(missing, "planetPositions")
	}
	for i, h := range r.HousePlacements {
		if h == "" {
			missing = append(missing, fmt.Sprintf("housePlacements[%d]", i))
		}
	}
	return missing
}
