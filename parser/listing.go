package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ysmood/gson"

	"github.com/use-agent/jobsift/models"
)

// Listing format names, recorded on the parse result.
const (
	FormatMosaic = "mosaic"
	FormatLegacy = "legacy"
)

// mosaicScriptRe is the last-resort locator for the mosaic script body,
// used when the HTML parser chokes on the page (very long attribute lines
// have been observed to do that).
var mosaicScriptRe = regexp.MustCompile(`(?s)<script[^>]*id="mosaic-data"[^>]*>(.*?)</script>`)

// ListingResult is the outcome of parsing one search-results page.
type ListingResult struct {
	// Jobs preserves the page's card order. Entries without a job key and
	// duplicate keys are already dropped, with diagnostics.
	Jobs []models.JobSummary

	// TotalCount is the site-reported total match count, falling back to
	// len(Jobs) when the page does not carry one.
	TotalCount int

	// Format is which block format produced the jobs; empty when neither
	// matched.
	Format string

	Diagnostics []models.Diagnostic
}

// ParseListing extracts the job cards from a search-results page body.
//
// The mosaic provider block is tried first; when it is absent, malformed,
// or yields zero cards, the legacy comp-initialData block is tried. When
// neither format matches, the result is empty with a format-mismatch
// diagnostic: an empty listing is a reportable condition for the caller,
// not an error.
func ParseListing(body, searchURL string) ListingResult {
	var res ListingResult
	origin := originOf(searchURL)

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(body))

	if cards, total, ok := mosaicCards(doc, docErr == nil, body); ok && len(cards) > 0 {
		res.Format = FormatMosaic
		res.collect(cards, origin)
		res.TotalCount = total
	} else if cards, total, ok := legacyCards(doc, docErr == nil); ok && len(cards) > 0 {
		res.Format = FormatLegacy
		res.collect(cards, origin)
		res.TotalCount = total
	} else {
		res.Diagnostics = append(res.Diagnostics, models.Diagnostic{
			Kind:    models.DiagFormatMismatch,
			Message: "listing page matches neither mosaic nor legacy format",
		})
	}

	// The daemon/filtered count is reported as-is when present; only a
	// page with no count at all falls back to what was parsed.
	if res.TotalCount == 0 {
		res.TotalCount = len(res.Jobs)
	}
	return res
}

// mosaicCards locates the mosaic script, extracts its providers, and
// returns the jobcard entries plus the daemon-reported total.
func mosaicCards(doc *goquery.Document, docOK bool, body string) ([]gson.JSON, int, bool) {
	var script string
	if docOK {
		for _, id := range []string{"mosaic-data", "mosaic-init-data"} {
			if text := doc.Find("script#" + id).First().Text(); strings.TrimSpace(text) != "" {
				script = text
				break
			}
		}
	}
	if script == "" {
		if m := mosaicScriptRe.FindStringSubmatch(body); m != nil {
			script = strings.TrimSpace(m[1])
		}
	}
	if script == "" {
		return nil, 0, false
	}

	providers := extractMosaicProviders(script)

	var cards []gson.JSON
	if jobcards, ok := providers["mosaic-provider-jobcards"]; ok {
		results := jobcards.Get("metaData.mosaicProviderJobCardsModel.results")
		if _, isArr := results.Val().([]interface{}); isArr {
			cards = results.Arr()
		}
	}

	total := 0
	if rich, ok := providers["MosaicProviderRichSearchDaemon"]; ok {
		if n, isNum := rich.Get("richSearchComponentModel.totalJobCount").Val().(float64); isNum {
			total = int(n)
		}
	}

	return cards, total, true
}

// legacyCards reads the comp-initialData JSON block used before the mosaic
// rollout.
func legacyCards(doc *goquery.Document, docOK bool) ([]gson.JSON, int, bool) {
	if !docOK {
		return nil, 0, false
	}
	text := strings.TrimSpace(doc.Find(`script#comp-initialData[type="application/json"]`).First().Text())
	if text == "" || !json.Valid([]byte(text)) {
		return nil, 0, false
	}

	data := gson.NewFrom(text)
	jobs := data.Get("jobList.jobs")
	if _, isArr := jobs.Val().([]interface{}); !isArr {
		return nil, 0, false
	}

	total := 0
	if n, isNum := data.Get("jobList.filteredJobCount").Val().(float64); isNum {
		total = int(n)
	}
	return jobs.Arr(), total, true
}

// collect maps raw cards to summaries, dropping keyless entries and
// duplicate keys (first occurrence wins) with diagnostics.
func (r *ListingResult) collect(cards []gson.JSON, origin string) {
	seen := make(map[string]struct{}, len(cards))
	for i, card := range cards {
		summary, ok := summaryFromCard(card, origin)
		if !ok {
			r.Diagnostics = append(r.Diagnostics, models.Diagnostic{
				Kind:    models.DiagMissingJobKey,
				Message: fmt.Sprintf("card %d has no job key and cannot be joined to detail data; dropped", i),
			})
			continue
		}
		if _, dup := seen[summary.JobKey]; dup {
			r.Diagnostics = append(r.Diagnostics, models.Diagnostic{
				Kind:    models.DiagDuplicateJobKey,
				JobKey:  summary.JobKey,
				Message: fmt.Sprintf("card %d repeats job key %s; keeping first occurrence", i, summary.JobKey),
			})
			continue
		}
		seen[summary.JobKey] = struct{}{}
		r.Jobs = append(r.Jobs, summary)
	}
}

// summaryFromCard maps one card's fields to a JobSummary. Both the mosaic
// and legacy formats use the same card vocabulary, so one mapper serves
// both. ok is false when the card carries no job key under any known name.
func summaryFromCard(card gson.JSON, origin string) (models.JobSummary, bool) {
	jobKey := firstString(card,
		"jobKey",
		"jobkey",
		"mouseDownHandlerOption.jobKey",
	)
	if jobKey == "" {
		return models.JobSummary{}, false
	}

	posted := epochToRFC3339(card.Get("pubDate"))
	if posted == "" {
		posted = epochToRFC3339(card.Get("createDate"))
	}
	if posted == "" {
		posted = firstString(card, "formattedRelativeTime")
	}

	return models.JobSummary{
		JobKey:   jobKey,
		Title:    firstString(card, "title"),
		Company:  firstString(card, "company"),
		Location: firstString(card, "formattedLocation", "jobLocationCity"),
		Salary:   firstString(card, "salarySnippet.text"),
		URL:      origin + "/viewjob?jk=" + url.QueryEscape(jobKey),
		PostedAt: posted,
	}, true
}

// originOf reduces a URL to scheme://host for building detail links.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimSuffix(rawURL, "/")
	}
	return u.Scheme + "://" + u.Host
}
