// Package extractor reads the chart fields out of a rendered results page.
// Every field is resolved on its own: a selector that matches nothing
// yields an empty string and never stops the other fields.
package extractor

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/chartscrape/internal/chart"
	"github.com/v0xg/chartscrape/internal/site"
	"github.com/ysmood/gson"
)

// Evaluator runs a JS function inside the page
type Evaluator interface {
	Evaluate(js string, args ...interface{}) (gson.JSON, error)
}

// extractJS runs in the page so all four lookups cost one round-trip.
// A selector querySelector rejects only blanks its own field.
const extractJS = `(sel) => {
	const text = (s) => {
		try {
			const el = document.querySelector(s);
			return el ? (el.textContent || '') : '';
		} catch (e) {
			return '';
		}
	};
	return {
		zodiacSign: text(sel.zodiacSign),
		planetPositions: text(sel.planetPositions),
		housePlacements: [text(sel.housePlacement1), text(sel.housePlacement2)]
	};
}`

// resultSelectors picks the result-page entries out of the full table
func resultSelectors(sel site.Selectors) map[string]string {
	return map[string]string{
		site.ZodiacSign:      sel.Get(site.ZodiacSign),
		site.PlanetPositions: sel.Get(site.PlanetPositions),
		site.HousePlacement1: sel.Get(site.HousePlacement1),
		site.HousePlacement2: sel.Get(site.HousePlacement2),
	}
}

// FromPage extracts the record from the live page
func FromPage(page Evaluator, sel site.Selectors, log *slog.Logger) (chart.Record, error) {
	res, err := page.Evaluate(extractJS, resultSelectors(sel))
	if err != nil {
		return chart.Record{}, fmt.Errorf("extract: %w", err)
	}

	rec := decode(res)
	warnMissing(rec, log)
	return rec, nil
}

// decode maps the evaluation result onto a Record, defaulting absent keys
func decode(res gson.JSON) chart.Record {
	str := func(j gson.JSON) string {
		if j.Nil() {
			return ""
		}
		return j.Str()
	}

	rec := chart.Record{
		ZodiacSign:      str(res.Get(site.ZodiacSign)),
		PlanetPositions: str(res.Get(site.PlanetPositions)),
	}
	houses := res.Get("housePlacements").Arr()
	for i := 0; i < chart.HouseCount && i < len(houses); i++ {
		rec.HousePlacements[i] = str(houses[i])
	}
	return rec
}

// FromHTML applies the same selectors to saved results markup
func FromHTML(r io.Reader, sel site.Selectors, log *slog.Logger) (chart.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return chart.Record{}, fmt.Errorf("parse html: %w", err)
	}

	text := func(name string) string {
		return doc.Find(sel.Get(name)).First().Text()
	}

	rec := chart.Record{
		ZodiacSign:      text(site.ZodiacSign),
		PlanetPositions: text(site.PlanetPositions),
		HousePlacements: [chart.HouseCount]string{
			text(site.HousePlacement1),
			text(site.HousePlacement2),
		},
	}
	warnMissing(rec, log)
	return rec, nil
}

func warnMissing(rec chart.Record, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	if missing := rec.Missing(); len(missing) > 0 {
		log.Warn("extractor: fields not found", "fields", missing)
	}
}
