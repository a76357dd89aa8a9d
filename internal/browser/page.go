package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// Navigate loads url and blocks until the page reports network idle
func (s *Session) Navigate(url string) error {
	ctx, cancel := s.waitCtx()
	defer cancel()
	page := s.page.Context(ctx)

	// Arm the lifecycle listener before navigating so the idle event can't be missed
	wait := page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := page.Navigate(url); err != nil {
		if ctx.Err() != nil {
			return s.timeoutErr(ctx, "navigate "+url)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()

	if ctx.Err() != nil {
		return s.timeoutErr(ctx, "wait idle "+url)
	}
	return s.waitLoad(ctx, page)
}

// Select picks the <option> whose value attribute equals value
func (s *Session) Select(selector, value string) error {
	ctx, cancel := s.waitCtx()
	defer cancel()

	el, err := s.find(s.page.Context(ctx), selector)
	if err != nil {
		return err
	}

	if err := el.Select([]string{optionSelector(value)}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("select %q in %s: %w", value, selector, err)
	}
	return nil
}

// Type focuses the field, replaces its content and types text one key at a time
func (s *Session) Type(selector, text string) error {
	ctx, cancel := s.waitCtx()
	defer cancel()
	page := s.page.Context(ctx)

	el, err := s.find(page, selector)
	if err != nil {
		return err
	}

	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("clear %s: %w", selector, err)
	}

	for _, char := range text {
		if err := typeRune(page, char); err != nil {
			return fmt.Errorf("type into %s: %w", selector, err)
		}
	}
	return nil
}

// ClickAndWait clicks the element and waits for the resulting navigation to
// reach network idle. The wait is armed before the click.
func (s *Session) ClickAndWait(selector string) error {
	ctx, cancel := s.waitCtx()
	defer cancel()
	page := s.page.Context(ctx)

	el, err := s.find(page, selector)
	if err != nil {
		return err
	}

	wait := page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		if ctx.Err() != nil {
			return s.timeoutErr(ctx, "click "+selector)
		}
		return fmt.Errorf("click %s: %w", selector, err)
	}
	wait()

	if ctx.Err() != nil {
		return s.timeoutErr(ctx, "wait navigation")
	}
	return s.waitLoad(ctx, page)
}

// Evaluate runs js in the page and returns its JSON result
func (s *Session) Evaluate(js string, args ...interface{}) (gson.JSON, error) {
	ctx, cancel := s.waitCtx()
	defer cancel()

	res, err := s.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("evaluate: %w", err)
	}
	return res.Value, nil
}

// Screenshot captures the current viewport as PNG
func (s *Session) Screenshot() ([]byte, error) {
	ctx, cancel := s.waitCtx()
	defer cancel()

	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// waitLoad guards against an idle event from the previous document
// (e.g. about:blank) releasing the wait before the new one has loaded
func (s *Session) waitLoad(ctx context.Context, page *rod.Page) error {
	if err := page.WaitLoad(); err != nil {
		if ctx.Err() != nil {
			return s.timeoutErr(ctx, "wait load")
		}
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

// find resolves selector without waiting for it to appear
func (s *Session) find(page *rod.Page, selector string) (*rod.Element, error) {
	has, el, err := page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%s: %w", selector, ErrTargetNotFound)
	}
	return el, nil
}

// optionSelector matches the <option> whose value attribute is exactly value
func optionSelector(value string) string {
	return "option[value=" + cssString(value) + "]"
}

// cssString quotes s as a CSS string token. Control characters have no
// literal form inside a CSS string and are written as hex escapes.
func cssString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == 0:
			b.WriteString(`\fffd `)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\%x `, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// typeRune sends printable ASCII as real key presses; anything else has no
// key on the US layout and is inserted as text.
func typeRune(page *rod.Page, char rune) error {
	if char >= 0x20 && char < 0x7f {
		return page.Keyboard.Type(input.Key(char))
	}
	return page.InsertText(string(char))
}
