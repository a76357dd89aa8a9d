// Package site holds everything that depends on the target site's markup:
// the form URL and the table of structural selectors. A markup change on
// the site should only ever require editing this package (or a YAML
// override file loaded through Load).
package site

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// BaseURL is the birth chart form page
const BaseURL = "https://horoscopes.astro-seek.com/birth-chart-horoscope-online"

// Logical field names
const (
	DayOfBirthSelect   = "dayOfBirthSelect"
	MonthOfBirthSelect = "monthOfBirthSelect"
	YearOfBirthSelect  = "yearOfBirthSelect"
	HourSelect         = "hourSelect"
	MinuteSelect       = "minuteSelect"
	CityInput          = "cityInput"
	SubmitButton       = "submitButton"

	ZodiacSign      = "zodiacSign"
	PlanetPositions = "planetPositions"
	HousePlacement1 = "housePlacement1"
	HousePlacement2 = "housePlacement2"
)

// Selectors maps logical field names to CSS selectors
type Selectors map[string]string

var defaults = Selectors{
	DayOfBirthSelect:   `select[name="narozeni_den"]`,
	MonthOfBirthSelect: `select[name="narozeni_mesic"]`,
	YearOfBirthSelect:  `select[name="narozeni_rok"]`,
	HourSelect:         `select[name="narozeni_hodina"]`,
	MinuteSelect:       `select[name="narozeni_minuta"]`,
	CityInput:          `input[name="narozeni_city"]`,
	SubmitButton:       `form[name="form_narozeni"] input[type="submit"]`,

	ZodiacSign:      `div.detail-rozbor-obalka table tr:nth-child(1) td:nth-child(2) a`,
	PlanetPositions: `div.detail-rozbor-obalka > div:nth-child(2)`,
	HousePlacement1: `div.detail-rozbor-obalka > div:nth-child(3)`,
	HousePlacement2: `div.detail-rozbor-obalka > div:nth-child(4)`,
}

// Default returns a copy of the built-in selector table
func Default() Selectors {
	s := make(Selectors, len(defaults))
	for k, v := range defaults {
		s[k] = v
	}
	return s
}

// Get returns the selector for a logical field name. It panics on an
// unknown name, which is always a programming error.
func (s Selectors) Get(name string) string {
	sel, ok := s[name]
	if !ok {
		panic(fmt.Sprintf("site: unknown selector %q", name))
	}
	return sel
}

// Names returns the logical names in sorted order
func (s Selectors) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Load reads a YAML file of overrides and merges it into the defaults.
// Unknown names, empty selectors and selectors that fail to compile are
// rejected.
func Load(path string) (Selectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selectors: %w", err)
	}
	return Parse(data)
}

// Parse merges YAML overrides into the defaults
func Parse(data []byte) (Selectors, error) {
	var overrides map[string]string
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse selectors: %w", err)
	}

	s := Default()
	for name, sel := range overrides {
		if _, ok := defaults[name]; !ok {
			return nil, fmt.Errorf("unknown selector name: %s", name)
		}
		if sel == "" {
			return nil, fmt.Errorf("empty selector for %s", name)
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, fmt.Errorf("invalid selector for %s: %w", name, err)
		}
		s[name] = sel
	}
	return s, nil
}
