package parser

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/use-agent/jobsift/models"
)

const searchURL = "https://fr.indeed.com/jobs?q=golang&l=Paris"

// mosaicPage wraps card JSON objects in a full mosaic listing page.
func mosaicPage(total int, cards ...string) string {
	joined := ""
	for i, c := range cards {
		if i > 0 {
			joined += ","
		}
		joined += c
	}
	return fmt.Sprintf(`<html><head><title>jobs</title></head><body>
<div id="app"></div>
<script id="mosaic-data">
window.mosaic.providerData["mosaic-provider-jobcards"] = {"metaData":{"mosaicProviderJobCardsModel":{"results":[%s]}}};
window.mosaic.providerData["MosaicProviderRichSearchDaemon"] = {"richSearchComponentModel":{"totalJobCount":%d}};
</script>
</body></html>`, joined, total)
}

// legacyPage wraps the same cards in the pre-mosaic initial-data page.
func legacyPage(total int, cards ...string) string {
	joined := ""
	for i, c := range cards {
		if i > 0 {
			joined += ","
		}
		joined += c
	}
	return fmt.Sprintf(`<html><head><title>jobs</title></head><body>
<script id="comp-initialData" type="application/json">{"jobList":{"jobs":[%s],"filteredJobCount":%d}}</script>
</body></html>`, joined, total)
}

const cardGoDev = `{"jobkey":"abc123","title":"Go Developer","company":"Acme","formattedLocation":"Paris","salarySnippet":{"text":"45 000 € par an"},"pubDate":1700000000000}`
const cardSRE = `{"jobkey":"def456","title":"SRE","company":"Globex","formattedLocation":"Lyon","formattedRelativeTime":"il y a 3 jours"}`

func TestParseListing_Mosaic(t *testing.T) {
	res := ParseListing(mosaicPage(182, cardGoDev, cardSRE), searchURL)

	if res.Format != FormatMosaic {
		t.Fatalf("format = %q, want %q", res.Format, FormatMosaic)
	}
	if len(res.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(res.Jobs))
	}
	if res.TotalCount != 182 {
		t.Errorf("total = %d, want 182", res.TotalCount)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}

	first := res.Jobs[0]
	if first.JobKey != "abc123" {
		t.Errorf("job key = %q, want abc123", first.JobKey)
	}
	if first.Title != "Go Developer" || first.Company != "Acme" || first.Location != "Paris" {
		t.Errorf("unexpected summary fields: %+v", first)
	}
	if first.Salary != "45 000 € par an" {
		t.Errorf("salary = %q", first.Salary)
	}
	if first.URL != "https://fr.indeed.com/viewjob?jk=abc123" {
		t.Errorf("url = %q", first.URL)
	}
	// pubDate is epoch milliseconds; must come out as RFC 3339 UTC.
	if first.PostedAt != "2023-11-14T22:13:20Z" {
		t.Errorf("posted = %q, want 2023-11-14T22:13:20Z", first.PostedAt)
	}

	// Relative-time cards keep the site's free text.
	if res.Jobs[1].PostedAt != "il y a 3 jours" {
		t.Errorf("relative posted = %q", res.Jobs[1].PostedAt)
	}
}

func TestParseListing_LegacyFallback(t *testing.T) {
	res := ParseListing(legacyPage(55, cardGoDev, cardSRE), searchURL)

	if res.Format != FormatLegacy {
		t.Fatalf("format = %q, want %q", res.Format, FormatLegacy)
	}
	if len(res.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(res.Jobs))
	}
	if res.TotalCount != 55 {
		t.Errorf("total = %d, want 55", res.TotalCount)
	}
}

func TestParseListing_MalformedMosaicFallsBackToLegacy(t *testing.T) {
	// Mosaic script is present but its provider blob never closes, so the
	// legacy block must win.
	page := `<html><body>
<script id="mosaic-data">window.mosaic.providerData["mosaic-provider-jobcards"] = {"metaData":{</script>
<script id="comp-initialData" type="application/json">{"jobList":{"jobs":[` + cardGoDev + `],"filteredJobCount":1}}</script>
</body></html>`

	res := ParseListing(page, searchURL)
	if res.Format != FormatLegacy {
		t.Fatalf("format = %q, want %q", res.Format, FormatLegacy)
	}
	if len(res.Jobs) != 1 || res.Jobs[0].JobKey != "abc123" {
		t.Fatalf("unexpected jobs: %+v", res.Jobs)
	}
}

func TestParseListing_FormatEquivalence(t *testing.T) {
	// The same cards must produce the same summaries whichever block
	// format carried them.
	mosaic := ParseListing(mosaicPage(10, cardGoDev, cardSRE), searchURL)
	legacy := ParseListing(legacyPage(10, cardGoDev, cardSRE), searchURL)

	if !reflect.DeepEqual(mosaic.Jobs, legacy.Jobs) {
		t.Errorf("formats disagree:\nmosaic: %+v\nlegacy: %+v", mosaic.Jobs, legacy.Jobs)
	}
	if mosaic.TotalCount != legacy.TotalCount {
		t.Errorf("totals disagree: %d vs %d", mosaic.TotalCount, legacy.TotalCount)
	}
}

func TestParseListing_MissingKeyDropped(t *testing.T) {
	keyless := `{"title":"Mystery Role","company":"Nowhere"}`
	res := ParseListing(mosaicPage(3, cardGoDev, keyless, cardSRE), searchURL)

	if len(res.Jobs) != 2 {
		t.Fatalf("expected keyless card dropped, got %d jobs", len(res.Jobs))
	}
	if res.Jobs[0].JobKey != "abc123" || res.Jobs[1].JobKey != "def456" {
		t.Errorf("order not preserved: %+v", res.Jobs)
	}

	var found bool
	for _, d := range res.Diagnostics {
		if d.Kind == models.DiagMissingJobKey {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %s diagnostic, got %v", models.DiagMissingJobKey, res.Diagnostics)
	}
}

func TestParseListing_DuplicateKeyFirstWins(t *testing.T) {
	dup := `{"jobkey":"abc123","title":"Go Developer (repost)","company":"Acme"}`
	res := ParseListing(mosaicPage(2, cardGoDev, dup), searchURL)

	if len(res.Jobs) != 1 {
		t.Fatalf("expected duplicate dropped, got %d jobs", len(res.Jobs))
	}
	if res.Jobs[0].Title != "Go Developer" {
		t.Errorf("first occurrence did not win: %+v", res.Jobs[0])
	}

	var found bool
	for _, d := range res.Diagnostics {
		if d.Kind == models.DiagDuplicateJobKey && d.JobKey == "abc123" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %s diagnostic, got %v", models.DiagDuplicateJobKey, res.Diagnostics)
	}
}

func TestParseListing_NeitherFormat(t *testing.T) {
	res := ParseListing(`<html><body><h1>Verify you are human</h1></body></html>`, searchURL)

	if len(res.Jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(res.Jobs))
	}
	if res.Format != "" {
		t.Errorf("format = %q, want empty", res.Format)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != models.DiagFormatMismatch {
		t.Errorf("expected one %s diagnostic, got %v", models.DiagFormatMismatch, res.Diagnostics)
	}
}

func TestParseListing_TotalCountAbsent(t *testing.T) {
	// Without a site-reported count, the parsed card count stands in.
	res := ParseListing(mosaicPage(0, cardGoDev, cardSRE), searchURL)
	if res.TotalCount != 2 {
		t.Errorf("total = %d, want 2", res.TotalCount)
	}
}

func TestParseListing_TotalCountReportedAsIs(t *testing.T) {
	// The site's count is passed through even when it disagrees with the
	// number of cards on the page.
	res := ParseListing(mosaicPage(1, cardGoDev, cardSRE), searchURL)
	if res.TotalCount != 1 {
		t.Errorf("total = %d, want the reported 1", res.TotalCount)
	}
}

func TestParseListing_Idempotent(t *testing.T) {
	page := mosaicPage(42, cardGoDev, cardSRE)
	first := ParseListing(page, searchURL)
	second := ParseListing(page, searchURL)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("same input parsed differently:\n%+v\n%+v", first, second)
	}
}

func TestParseListing_JobKeyFieldVariants(t *testing.T) {
	// All three key spellings observed across page versions must resolve.
	cards := []string{
		`{"jobKey":"k1","title":"A"}`,
		`{"jobkey":"k2","title":"B"}`,
		`{"mouseDownHandlerOption":{"jobKey":"k3"},"title":"C"}`,
	}
	res := ParseListing(mosaicPage(3, cards...), searchURL)

	if len(res.Jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(res.Jobs))
	}
	for i, want := range []string{"k1", "k2", "k3"} {
		if res.Jobs[i].JobKey != want {
			t.Errorf("job[%d] key = %q, want %q", i, res.Jobs[i].JobKey, want)
		}
	}
}
