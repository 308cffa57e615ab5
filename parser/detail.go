package parser

import (
	"encoding/json"
	nurl "net/url"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"github.com/ysmood/gson"
	"golang.org/x/net/html"

	"github.com/use-agent/jobsift/clean"
	"github.com/use-agent/jobsift/models"
)

// Candidate locations for each JobDetail field in the embedded-view
// payload, in priority order. The payload's shape drifts between the
// wrapper-model and host-query renderings, so every field names all the
// places it has been seen.
const detailsSection = "body.jobInfoWrapperModel.jobInfoModel.jobDescriptionSectionModel.jobDetailsSection"
const hostJob = "body.hostQueryExecutionResult.data.jobData.results.0.job"

var (
	embeddedKeyPaths = []string{
		"body.jobKey",
		hostJob + ".key",
	}
	embeddedCompanyPaths = []string{
		"body.jobInfoWrapperModel.jobInfoModel.jobInfoHeaderModel.companyName",
		hostJob + ".sourceEmployerName",
	}
	embeddedLocationPaths = []string{
		"body.jobLocation",
	}
	embeddedDescriptionPaths = []string{
		"body.jobInfoWrapperModel.jobInfoModel.sanitizedJobDescription.content",
		"body.jobInfoWrapperModel.jobInfoModel.sanitizedJobDescription",
	}

	// Localized section headings the salary has been filed under.
	salaryContentKeys = []string{"Salaire", "Rémunération", "Pay", "Salary"}
)

// minReadableLength is the minimum extracted text length for the
// readability fallback to count as a real description rather than chrome.
const minReadableLength = 50

// jsonLDSelector matches linked-data script blocks; parsed once.
var jsonLDSelector = cascadia.MustCompile(`script[type="application/ld+json"]`)

// ParseDetail extracts one optional JobDetail from a detail-page body.
//
// Extraction order:
//  1. Embedded view: the detail request carries viewtype=embedded, which
//     the site answers with a pure JSON payload.
//  2. Linked data: a schema.org JobPosting block inside full HTML.
//  3. Readability: recover at least the description from rendered HTML.
//
// All three missing means no detail (nil), never an error: the caller
// falls back to summary-only data for this job. expectedKey is used as the
// detail's join key when the payload does not state its own.
func ParseDetail(body, expectedKey, pageURL string) *models.JobDetail {
	trimmed := strings.TrimSpace(body)

	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return fromEmbeddedJSON(gson.NewFrom(trimmed), expectedKey)
	}

	if d := fromJSONLD(trimmed, expectedKey); d != nil {
		return d
	}

	return fromReadability(trimmed, expectedKey, pageURL)
}

// fromEmbeddedJSON maps the embedded-view payload. A payload that yields
// no fields at all is treated as format absence.
func fromEmbeddedJSON(data gson.JSON, expectedKey string) *models.JobDetail {
	d := &models.JobDetail{RawFormat: models.RawFormatEmbeddedJSON}

	d.JobKey = firstString(data, embeddedKeyPaths...)
	d.Company = firstString(data, embeddedCompanyPaths...)
	d.Location = firstString(data, embeddedLocationPaths...)
	d.Salary = embeddedSalary(data)
	d.JobType = embeddedJobType(data)

	if raw := firstString(data, embeddedDescriptionPaths...); raw != "" {
		d.DescriptionHTML = raw
		d.Description = clean.HTMLToText(raw)
	}

	d.PostedAt = epochToRFC3339(data.Get(hostJob + ".datePublished"))
	if d.PostedAt == "" {
		d.PostedAt = epochToRFC3339(data.Get(hostJob + ".dateOnIndeed"))
	}

	if d.Empty() {
		return nil
	}
	if d.JobKey == "" {
		d.JobKey = expectedKey
	}
	return d
}

// embeddedSalary reads the salary from the localized details-section
// contents first, then from the structured salary model.
func embeddedSalary(data gson.JSON) string {
	contents := data.Get(detailsSection + ".contents")
	if _, ok := contents.Val().(map[string]interface{}); ok {
		for _, key := range salaryContentKeys {
			if s := joinStrings(contents.Get(key), ", "); s != "" {
				return s
			}
		}
	}
	return firstString(data,
		detailsSection+".salaryInfoModel.salaryText",
		detailsSection+".salaryInfoModel.formattedSalary",
	)
}

// embeddedJobType reads the contract type from the localized contents
// entry, then from the jobTypes label list.
func embeddedJobType(data gson.JSON) string {
	if s := joinStrings(data.Get(detailsSection+".contents.Type de contrat"), ", "); s != "" {
		return s
	}

	jobTypes := data.Get(detailsSection + ".jobTypes")
	if _, ok := jobTypes.Val().([]interface{}); !ok {
		return ""
	}
	var labels []string
	for _, jt := range jobTypes.Arr() {
		if label := firstString(jt, "label"); label != "" {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ", ")
}

// fromJSONLD scans the HTML for linked-data blocks and maps the first
// JobPosting found. Blocks may hold a single object, a list, or an @graph
// list.
func fromJSONLD(body, expectedKey string) *models.JobDetail {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	for _, node := range cascadia.QueryAll(doc, jsonLDSelector) {
		raw := strings.TrimSpace(textContent(node))
		if raw == "" || !json.Valid([]byte(raw)) {
			continue
		}
		ld := gson.NewFrom(raw)

		var candidates []gson.JSON
		switch {
		case isArray(ld):
			candidates = ld.Arr()
		case isArray(ld.Get("@graph")):
			candidates = ld.Get("@graph").Arr()
		default:
			candidates = []gson.JSON{ld}
		}

		for _, c := range candidates {
			if !isJobPosting(c) {
				continue
			}
			if d := mapJobPosting(c, expectedKey); d != nil {
				return d
			}
		}
	}
	return nil
}

// isJobPosting accepts @type as a string or a list containing JobPosting.
func isJobPosting(c gson.JSON) bool {
	t := c.Get("@type")
	if s, ok := t.Val().(string); ok {
		return s == "JobPosting"
	}
	if isArray(t) {
		for _, v := range t.Arr() {
			if s, ok := v.Val().(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

// mapJobPosting maps a schema.org JobPosting object to a JobDetail.
func mapJobPosting(jp gson.JSON, expectedKey string) *models.JobDetail {
	d := &models.JobDetail{RawFormat: models.RawFormatJSONLD}

	d.Company = firstString(jp, "hiringOrganization.name")
	d.Location = jsonLDLocation(jp.Get("jobLocation"))
	d.Salary = jsonLDSalary(jp)
	d.JobType = stringOrJoined(jp.Get("employmentType"))

	if raw, ok := jp.Get("description").Val().(string); ok && strings.TrimSpace(raw) != "" {
		d.DescriptionHTML = raw
		d.Description = clean.HTMLToText(raw)
	}
	d.PostedAt = NormalizeDate(firstString(jp, "datePosted"))

	// schema.org identifier is either a bare string or a PropertyValue.
	d.JobKey = firstString(jp, "identifier.value")
	if d.JobKey == "" {
		if s, ok := jp.Get("identifier").Val().(string); ok {
			d.JobKey = strings.TrimSpace(s)
		}
	}

	if d.Empty() {
		return nil
	}
	if d.JobKey == "" {
		d.JobKey = expectedKey
	}
	return d
}

// jsonLDLocation joins the address parts of the first jobLocation entry.
func jsonLDLocation(jl gson.JSON) string {
	if isArray(jl) {
		arr := jl.Arr()
		if len(arr) == 0 {
			return ""
		}
		jl = arr[0]
	}
	addr := jl.Get("address")
	var parts []string
	for _, p := range []string{"addressLocality", "addressRegion", "addressCountry"} {
		v := addr.Get(p)
		// addressCountry is sometimes a Country object rather than a string.
		if s, ok := v.Val().(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		} else if s := firstString(v, "name"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// jsonLDSalary formats baseSalary / estimatedSalary, handling both the
// single-value and min-max MonetaryAmount shapes.
func jsonLDSalary(jp gson.JSON) string {
	base := jp.Get("baseSalary")
	if base.Val() == nil {
		base = jp.Get("estimatedSalary")
	}
	if _, ok := base.Val().(map[string]interface{}); !ok {
		return ""
	}

	val := base.Get("value")
	if _, ok := val.Val().(map[string]interface{}); !ok {
		val = base
	}
	currency := firstString(base, "currency")
	unit := firstString(val, "unitText")

	format := func(amount string) string {
		s := amount
		if currency != "" {
			s += " " + currency
		}
		if unit != "" {
			s += " / " + unit
		}
		return s
	}

	if v, ok := val.Get("value").Val().(float64); ok {
		return format(formatAmount(v))
	}
	minV, minOK := val.Get("minValue").Val().(float64)
	maxV, maxOK := val.Get("maxValue").Val().(float64)
	if minOK && maxOK {
		return format(formatAmount(minV) + " - " + formatAmount(maxV))
	}
	return ""
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fromReadability recovers a description from rendered HTML when neither
// structured form is present. Short extractions are page chrome, not a
// job description, and are discarded.
func fromReadability(body, expectedKey, pageURL string) *models.JobDetail {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return nil
	}
	article, err := readability.FromReader(strings.NewReader(body), parsed)
	if err != nil {
		return nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) < minReadableLength {
		return nil
	}

	return &models.JobDetail{
		JobKey:          expectedKey,
		Description:     text,
		DescriptionHTML: article.Content,
		RawFormat:       models.RawFormatReadability,
	}
}

// stringOrJoined renders a value that may be a string or a string list.
func stringOrJoined(j gson.JSON) string {
	if s, ok := j.Val().(string); ok {
		return strings.TrimSpace(s)
	}
	return joinStrings(j, ", ")
}

func isArray(j gson.JSON) bool {
	_, ok := j.Val().([]interface{})
	return ok
}

// textContent concatenates the text nodes under an HTML node.
func textContent(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return buf.String()
}
