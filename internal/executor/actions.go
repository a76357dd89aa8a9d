package executor

import (
	"github.com/v0xg/chartscrape/internal/chart"
	"github.com/v0xg/chartscrape/internal/site"
)

// ActionType is the kind of step performed on the page
type ActionType string

const (
	ActionNavigate ActionType = "navigate" // load URL, wait for network idle
	ActionSelect   ActionType = "select"   // choose an <option> by value
	ActionTypeText ActionType = "type"     // type text key by key
	ActionSubmit   ActionType = "submit"   // click and wait for the next page
)

// Action represents a single step of the form protocol
type Action struct {
	Type     ActionType `json:"action"`
	Field    string     `json:"field,omitempty"`    // logical name from the selector table
	Selector string     `json:"selector,omitempty"` // CSS selector for the target element
	Value    string     `json:"value,omitempty"`    // option value or text to type
	URL      string     `json:"url,omitempty"`      // URL for navigate action
}

// FormScript builds the fixed action sequence for one chart request:
// open the form, fill the six controls in order, then submit.
func FormScript(url string, sel site.Selectors, req chart.Request) []Action {
	field := func(t ActionType, name, value string) Action {
		return Action{Type: t, Field: name, Selector: sel.Get(name), Value: value}
	}

	return []Action{
		{Type: ActionNavigate, URL: url},
		field(ActionSelect, site.DayOfBirthSelect, req.Day),
		field(ActionSelect, site.MonthOfBirthSelect, req.Month),
		field(ActionSelect, site.YearOfBirthSelect, req.Year),
		field(ActionSelect, site.HourSelect, req.Hour),
		field(ActionSelect, site.MinuteSelect, req.Minute),
		field(ActionTypeText, site.CityInput, req.City),
		field(ActionSubmit, site.SubmitButton, ""),
	}
}
