package models

// RawFormat records which detail-parser path produced a JobDetail.
type RawFormat string

const (
	// RawFormatEmbeddedJSON means the detail page answered the embedded-view
	// request with a pure JSON payload.
	RawFormatEmbeddedJSON RawFormat = "embedded_json"

	// RawFormatJSONLD means the fields came from a schema.org JobPosting
	// linked-data block inside the detail HTML.
	RawFormatJSONLD RawFormat = "json_ld"

	// RawFormatReadability means neither structured form was present and the
	// description was recovered from the rendered HTML via readability.
	RawFormatReadability RawFormat = "readability"
)

// JobSummary is one job card extracted from a search-results page.
// Immutable once produced by the listing parser.
type JobSummary struct {
	// JobKey is the site's opaque job identifier, unique per listing page.
	// It is the join key for detail enrichment.
	JobKey string `json:"job_key"`

	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`

	// Salary is the listing-card salary snippet, when the card has one.
	Salary string `json:"salary,omitempty"`

	// URL is the absolute link to the job's detail page.
	URL string `json:"url,omitempty"`

	// PostedAt is RFC 3339 UTC when the source value was an epoch timestamp
	// or a parseable date; otherwise the source's free-text relative time.
	PostedAt string `json:"posted_at,omitempty"`
}

// JobDetail is the enrichment extracted from one detail page.
// Every field is best-effort: absent source fields stay empty.
type JobDetail struct {
	// JobKey is the identifier found in the detail payload itself. It may
	// differ in formatting from the listing's key (prefixed vs bare); the
	// merger treats that as a diagnostic, not an error.
	JobKey string `json:"job_key,omitempty"`

	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`
	Salary   string `json:"salary,omitempty"`
	JobType  string `json:"job_type,omitempty"`

	// Description is the HTML-stripped long-form description.
	Description string `json:"description,omitempty"`

	// DescriptionHTML keeps the sanitized source markup for the markdown
	// export path. Never serialized.
	DescriptionHTML string `json:"-"`

	PostedAt string `json:"posted_at,omitempty"`

	// RawFormat records which parser path succeeded.
	RawFormat RawFormat `json:"raw_format"`
}

// Empty reports whether no enrichment field was mapped from the source
// payload. The job key alone does not count: a payload that only echoes
// the key back enriches nothing.
func (d *JobDetail) Empty() bool {
	return d.Company == "" && d.Location == "" && d.Salary == "" &&
		d.JobType == "" && d.Description == "" && d.PostedAt == ""
}

// EnrichedJob is the terminal output record: JobSummary fields overlaid with
// JobDetail fields where the detail page provided them. Never mutated after
// the merge creates it.
type EnrichedJob struct {
	JobKey   string `json:"job_key"`
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`
	Salary   string `json:"salary,omitempty"`
	JobType  string `json:"job_type,omitempty"`
	URL      string `json:"url,omitempty"`
	PostedAt string `json:"posted_at,omitempty"`

	Description     string `json:"description,omitempty"`
	DescriptionHTML string `json:"-"`

	// DetailFormat is empty when no detail enrichment happened and the
	// record is the summary passed through unchanged.
	DetailFormat RawFormat `json:"detail_format,omitempty"`
}

// Diagnostic kinds. Diagnostics are non-fatal, reported inline, and never
// alter pipeline completion.
const (
	DiagMissingJobKey   = "missing_job_key"
	DiagDuplicateJobKey = "duplicate_job_key"
	DiagFormatMismatch  = "parse_format_mismatch"
	DiagTransport       = "transport_error"
	DiagJoinKeyMismatch = "join_key_mismatch"
	DiagExport          = "export_error"
)

// Diagnostic is a recorded non-fatal condition.
type Diagnostic struct {
	Kind    string `json:"kind"`
	JobKey  string `json:"job_key,omitempty"`
	Message string `json:"message"`
}

// SearchResult is the full outcome of one pipeline run. Jobs preserves
// listing order and its length always equals the listing parser's output
// length, regardless of per-item enrichment failures.
type SearchResult struct {
	Jobs []EnrichedJob `json:"jobs"`

	// TotalCount is the site-reported number of matches for the search,
	// which is usually larger than the single page scraped.
	TotalCount int `json:"total_count"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Timing holds the per-phase durations of the run (TotalMs is filled
	// in by callers that wrap further work around the pipeline).
	Timing TimingInfo `json:"timing"`
}
