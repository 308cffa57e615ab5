// Package pipeline sequences one scrape run: fetch the search page, parse
// its job cards, enrich a bounded prefix of them from detail pages, and
// report the merged records.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/jobsift/engine"
	"github.com/use-agent/jobsift/models"
	"github.com/use-agent/jobsift/parser"
	"github.com/use-agent/jobsift/report"
	"github.com/use-agent/jobsift/store"
)

// State is the pipeline's current phase.
type State string

const (
	StateListing   State = "listing"
	StateDetailing State = "detailing"
	StateReporting State = "reporting"
	StateDone      State = "done"

	// StateFailed is terminal and reachable only from StateListing: the
	// one fetch the whole run depends on did not succeed.
	StateFailed State = "failed"
)

// Options is the full, explicit configuration of one run. Nothing below
// the entrypoint reads ambient environment; the proxy binds earlier, at
// engine construction, where the transport credential belongs.
type Options struct {
	// SearchURL is the listing page to scrape.
	SearchURL string

	// MaxDetails caps how many jobs get a detail-page fetch. Jobs past the
	// cap still appear in the output as summary-only records.
	MaxDetails int

	// ListingOnly skips the detailing phase entirely.
	ListingOnly bool

	// DetailRPS paces detail requests; <= 0 disables pacing.
	DetailRPS float64

	// ExportPath, when set, writes the result sequence to this file during
	// reporting.
	ExportPath string

	// ExportFormat is "json" (default) or "markdown".
	ExportFormat string
}

// Pipeline runs the Listing → Detailing → Reporting sequence. One request
// is in flight at a time, in listing order; the site sees a single
// consistent client identity and the output order never depends on fetch
// completion order.
type Pipeline struct {
	eng     engine.Engine
	opts    Options
	limiter *rate.Limiter
	db      *store.Store
	out     io.Writer
	state   State
}

// New creates a Pipeline using the given fetch engine. Console output goes
// to stdout unless SetOutput overrides it.
func New(eng engine.Engine, opts Options) *Pipeline {
	p := &Pipeline{eng: eng, opts: opts, out: os.Stdout, state: StateListing}
	if opts.DetailRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.DetailRPS), 1)
	}
	return p
}

// SetOutput redirects console rendering and progress lines.
func (p *Pipeline) SetOutput(w io.Writer) { p.out = w }

// SetStore attaches the optional seen-jobs store; merged jobs are recorded
// during reporting.
func (p *Pipeline) SetStore(s *store.Store) { p.db = s }

// State returns the phase the pipeline is in (terminal after Run).
func (p *Pipeline) State() State { return p.state }

// Run executes the pipeline. The returned error is non-nil only when the
// listing fetch itself fails; every other failure mode degrades to
// diagnostics on the result.
func (p *Pipeline) Run(ctx context.Context) (*models.SearchResult, error) {
	origin := originOf(p.opts.SearchURL)

	// ── Listing ─────────────────────────────────────────────────────
	p.state = StateListing
	listingStart := time.Now()
	slog.Info("fetching listing page", "url", p.opts.SearchURL)

	res, err := p.eng.Fetch(ctx, &engine.FetchRequest{
		URL:     p.opts.SearchURL,
		Headers: map[string]string{"Referer": origin + "/jobs"},
	})
	if err != nil {
		p.state = StateFailed
		return nil, models.NewScrapeError(models.ErrCodeListingFetch, "listing fetch failed", err)
	}
	slog.Info("listing page received", "engine", res.EngineName, "bytes", len(res.Body))

	listing := parser.ParseListing(res.Body, p.opts.SearchURL)
	result := &models.SearchResult{
		TotalCount:  listing.TotalCount,
		Diagnostics: listing.Diagnostics,
	}
	for _, d := range listing.Diagnostics {
		slog.Warn("listing diagnostic", "kind", d.Kind, "job_key", d.JobKey, "message", d.Message)
	}
	slog.Info("listing parsed",
		"format", listing.Format,
		"jobs", len(listing.Jobs),
		"total", listing.TotalCount,
	)
	result.Timing.ListingMs = time.Since(listingStart).Milliseconds()

	// ── Detailing ───────────────────────────────────────────────────
	detailStart := time.Now()
	limit := 0
	if !p.opts.ListingOnly && len(listing.Jobs) > 0 {
		p.state = StateDetailing
		limit = p.opts.MaxDetails
		if limit > len(listing.Jobs) {
			limit = len(listing.Jobs)
		}
	}

	for i, summary := range listing.Jobs {
		var detail *models.JobDetail
		if i < limit {
			detail = p.fetchDetail(ctx, result, summary, i+1, limit, origin)
		}

		merged, diag := Merge(summary, detail)
		if diag != nil {
			result.Diagnostics = append(result.Diagnostics, *diag)
			slog.Warn("merge diagnostic", "kind", diag.Kind, "job_key", diag.JobKey, "message", diag.Message)
		}
		result.Jobs = append(result.Jobs, merged)
	}
	result.Timing.DetailMs = time.Since(detailStart).Milliseconds()

	// ── Reporting ───────────────────────────────────────────────────
	p.state = StateReporting
	p.report(ctx, result)

	p.state = StateDone
	return result, nil
}

// fetchDetail fetches and parses one detail page. Every failure is
// isolated to this item: it records a diagnostic and returns nil so the
// job falls back to its summary data.
func (p *Pipeline) fetchDetail(ctx context.Context, result *models.SearchResult, summary models.JobSummary, index, total int, origin string) *models.JobDetail {
	if p.limiter != nil && index > 1 {
		if err := p.limiter.Wait(ctx); err != nil {
			diag := models.Diagnostic{
				Kind:    models.DiagTransport,
				JobKey:  summary.JobKey,
				Message: fmt.Sprintf("detail fetch skipped: %v", err),
			}
			result.Diagnostics = append(result.Diagnostics, diag)
			slog.Warn("detail diagnostic", "kind", diag.Kind, "job_key", diag.JobKey, "message", diag.Message)
			return nil
		}
	}

	fmt.Fprintf(p.out, "[%d/%d] %s (jk=%s)\n", index, total, summary.Title, summary.JobKey)

	detailURL := origin + "/viewjob?viewtype=embedded&jk=" + url.QueryEscape(summary.JobKey) +
		"&from=shareddesktop_copy&spa=1&hidecmpheader=1"

	res, err := p.eng.Fetch(ctx, &engine.FetchRequest{
		URL:     detailURL,
		Headers: map[string]string{"Referer": summary.URL},
	})
	if err != nil {
		diag := models.Diagnostic{
			Kind:    models.DiagTransport,
			JobKey:  summary.JobKey,
			Message: fmt.Sprintf("detail fetch failed: %v", err),
		}
		result.Diagnostics = append(result.Diagnostics, diag)
		slog.Warn("detail diagnostic", "kind", diag.Kind, "job_key", diag.JobKey, "message", diag.Message)
		return nil
	}

	detail := parser.ParseDetail(res.Body, summary.JobKey, detailURL)
	if detail == nil {
		diag := models.Diagnostic{
			Kind:    models.DiagFormatMismatch,
			JobKey:  summary.JobKey,
			Message: "detail page matches neither embedded-json nor linked-data format",
		}
		result.Diagnostics = append(result.Diagnostics, diag)
		slog.Warn("detail diagnostic", "kind", diag.Kind, "job_key", diag.JobKey, "message", diag.Message)
		return nil
	}

	slog.Info("job enriched", "job_key", summary.JobKey, "format", string(detail.RawFormat))
	return detail
}

// report renders the console summary and runs the optional store and
// export steps. Export and store failures are diagnostics: the data is
// already assembled, so the run still completes.
func (p *Pipeline) report(ctx context.Context, result *models.SearchResult) {
	report.WriteSummary(p.out, result.Jobs)

	if p.db != nil {
		added := 0
		for _, job := range result.Jobs {
			isNew, err := p.db.RecordIfNew(ctx, job)
			if err != nil {
				slog.Warn("store record failed", "job_key", job.JobKey, "error", err)
				continue
			}
			if isNew {
				added++
			}
		}
		slog.Info("store updated", "new_jobs", added, "total", len(result.Jobs))
	}

	if p.opts.ExportPath == "" {
		return
	}
	var err error
	if p.opts.ExportFormat == "markdown" {
		err = report.ExportMarkdown(p.opts.ExportPath, result.Jobs)
	} else {
		err = report.ExportJSON(p.opts.ExportPath, result.Jobs)
	}
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, models.Diagnostic{
			Kind:    models.DiagExport,
			Message: fmt.Sprintf("export failed: %v", err),
		})
		slog.Warn("export failed", "path", p.opts.ExportPath, "error", err)
		return
	}
	slog.Info("results exported", "path", p.opts.ExportPath, "format", p.opts.ExportFormat)
}

// originOf reduces a URL to scheme://host.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
