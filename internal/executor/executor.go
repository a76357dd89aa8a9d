package executor

import (
	"fmt"
	"log/slog"
)

// Page is the subset of a browser page the form protocol needs
type Page interface {
	Navigate(url string) error
	Select(selector, value string) error
	Type(selector, text string) error
	// ClickAndWait must arm the navigation wait before clicking
	ClickAndWait(selector string) error
}

// Options configures execution behavior
type Options struct {
	Logger *slog.Logger
}

// StepError reports which action failed
type StepError struct {
	Index  int
	Action Action
	Err    error
}

func (e *StepError) Error() string {
	target := e.Action.Field
	if target == "" {
		target = e.Action.URL
	}
	return fmt.Sprintf("step %d (%s %s): %v", e.Index+1, e.Action.Type, target, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Execute runs actions in order and stops at the first failure. Nothing
// after a failed step runs, so a missing control never leads to a submit.
func Execute(page Page, actions []Action, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	for i, action := range actions {
		log.Debug("executor: action", "step", i+1, "of", len(actions), "action", action.Type, "field", action.Field)

		if err := executeAction(page, action); err != nil {
			return &StepError{Index: i, Action: action, Err: err}
		}
	}
	return nil
}

func executeAction(page Page, action Action) error {
	switch action.Type {
	case ActionNavigate:
		return page.Navigate(action.URL)
	case ActionSelect:
		return page.Select(action.Selector, action.Value)
	case ActionTypeText:
		return page.Type(action.Selector, action.Value)
	case ActionSubmit:
		return page.ClickAndWait(action.Selector)
	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}
