package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	l := NewLauncher(Options{})
	assert.Equal(t, 1280, l.opts.Width)
	assert.Equal(t, 720, l.opts.Height)
	assert.Equal(t, 30*time.Second, l.opts.Timeout)
	assert.NotNil(t, l.opts.Logger)

	l = NewLauncher(Options{Timeout: time.Second, Width: 800})
	assert.Equal(t, time.Second, l.opts.Timeout)
	assert.Equal(t, 800, l.opts.Width)
}

func TestCloseOnEmptySessionIsSafe(t *testing.T) {
	s := &Session{opts: Options{}}
	s.opts.defaults()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

const formHTML = `<!doctype html>
<html><body>
<form action="/done" method="get">
  <select name="day"><option value="1">1</option><option value="14">14</option></select>
  <input name="city" value="old">
  <input type="submit" id="go" value="Go">
</form>
</body></html>`

// requireChrome skips unless a real browser run was requested
func requireChrome(t *testing.T) {
	t.Helper()
	if os.Getenv("CHARTSCRAPE_E2E") == "" {
		t.Skip("set CHARTSCRAPE_E2E=1 to run against a real Chrome")
	}
}

func TestSessionAgainstChrome(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/done" {
			fmt.Fprintf(w, `<p id="day">%s</p><p id="city">%s</p>`, r.URL.Query().Get("day"), r.URL.Query().Get("city"))
			return
		}
		fmt.Fprint(w, formHTML)
	}))
	defer srv.Close()

	s, err := NewLauncher(Options{Timeout: 20 * time.Second}).Launch(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Navigate(srv.URL))
	require.NoError(t, s.Select(`select[name="day"]`, "14"))
	require.NoError(t, s.Type(`input[name="city"]`, "Zürich"))

	err = s.Select(`select[name="month"]`, "05")
	require.ErrorIs(t, err, ErrTargetNotFound)

	require.NoError(t, s.ClickAndWait("#go"))

	res, err := s.Evaluate(`() => [document.querySelector('#day').textContent, document.querySelector('#city').textContent]`)
	require.NoError(t, err)
	arr := res.Arr()
	require.Len(t, arr, 2)
	assert.Equal(t, "14", arr[0].Str())
	assert.Equal(t, "Zürich", arr[1].Str())

	png, err := s.Screenshot()
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
