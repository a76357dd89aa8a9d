package scrape

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/chartscrape/internal/browser"
	"github.com/v0xg/chartscrape/internal/chart"
	"github.com/v0xg/chartscrape/internal/site"
	"github.com/v0xg/chartscrape/internal/snapshot"
)

func options(name string, from, to int) string {
	s := `<select name="` + name + `">`
	for i := from; i <= to; i++ {
		s += fmt.Sprintf(`<option value="%02d">%d</option>`, i, i)
	}
	return s + `</select>`
}

// fixtureSite serves a form shaped like the real one and echoes the
// submitted values into the results markup.
func fixtureSite() *httptest.Server {
	form := `<!doctype html><html><body><form name="chart" action="/result" method="get">` +
		options("day", 1, 31) + options("month", 1, 12) + options("year", 1900, 2030) +
		options("hour", 0, 23) + options("minute", 0, 59) +
		`<input name="city"><input type="submit" id="go" value="Calculate"></form></body></html>`

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/result" {
			fmt.Fprint(w, form)
			return
		}
		q := r.URL.Query()
		fmt.Fprintf(w, `<html><body><div id="sign">%s</div><div id="houses-a">%s-%s-%s</div><div id="houses-b">%s:%s</div></body></html>`,
			html.EscapeString(q.Get("city")), q.Get("year"), q.Get("month"), q.Get("day"), q.Get("hour"), q.Get("minute"))
	}))
}

func fixtureSelectors() site.Selectors {
	s := site.Default()
	s[site.DayOfBirthSelect] = `select[name="day"]`
	s[site.MonthOfBirthSelect] = `select[name="month"]`
	s[site.YearOfBirthSelect] = `select[name="year"]`
	s[site.HourSelect] = `select[name="hour"]`
	s[site.MinuteSelect] = `select[name="minute"]`
	s[site.CityInput] = `input[name="city"]`
	s[site.SubmitButton] = `#go`
	s[site.ZodiacSign] = `#sign`
	s[site.PlanetPositions] = `#planets` // not on the page
	s[site.HousePlacement1] = `#houses-a`
	s[site.HousePlacement2] = `#houses-b`
	return s
}

func TestWorkflowAgainstChrome(t *testing.T) {
	if os.Getenv("CHARTSCRAPE_E2E") == "" {
		t.Skip("set CHARTSCRAPE_E2E=1 to run against a real Chrome")
	}

	srv := fixtureSite()
	defer srv.Close()

	store := snapshot.New(filepath.Join(t.TempDir(), "chart.json"))
	l := browser.NewLauncher(browser.Options{Timeout: 20 * time.Second})
	svc := New(BrowserLauncher(l), store, Options{URL: srv.URL, Selectors: fixtureSelectors()})

	rec, err := svc.Fetch(context.Background(), chart.Input{Date: "1990-05-14", Time: "08:30", City: "Prague"})
	require.NoError(t, err)

	assert.Equal(t, chart.Record{
		ZodiacSign:      "Prague",
		PlanetPositions: "",
		HousePlacements: [chart.HouseCount]string{"1990-05-14", "08:30"},
	}, rec)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, rec, saved)

	broken := fixtureSelectors()
	broken[site.HourSelect] = `select[name="hours"]`
	svc = New(BrowserLauncher(l), store, Options{URL: srv.URL, Selectors: broken})
	_, err = svc.Fetch(context.Background(), chart.Input{Date: "1990-05-14", Time: "08:30", City: "Prague"})
	assert.ErrorIs(t, err, browser.ErrTargetNotFound)
}
