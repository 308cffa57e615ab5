package report

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/use-agent/jobsift/clean"
	"github.com/use-agent/jobsift/models"
)

// ExportJSON writes the jobs as a single UTF-8 JSON array, array order =
// listing order.
func ExportJSON(path string, jobs []models.EnrichedJob) error {
	if jobs == nil {
		jobs = []models.EnrichedJob{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal jobs: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// ExportMarkdown writes a readable Markdown report. Descriptions that
// still carry their sanitized source markup are converted properly;
// plain-text descriptions are emitted as-is.
func ExportMarkdown(path string, jobs []models.EnrichedJob) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Job search results (%d jobs)\n", len(jobs))

	for i, job := range jobs {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, orUnknown(job.Title))
		writeField(&b, "Company", job.Company)
		writeField(&b, "Location", job.Location)
		writeField(&b, "Salary", job.Salary)
		writeField(&b, "Type", job.JobType)
		writeField(&b, "Posted", job.PostedAt)
		if job.URL != "" {
			fmt.Fprintf(&b, "- Link: <%s>\n", job.URL)
		}

		if desc := renderDescription(job); desc != "" {
			fmt.Fprintf(&b, "\n%s\n", desc)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
}

// renderDescription prefers converting the original markup so lists and
// headings survive; the pre-stripped text is the fallback.
func renderDescription(job models.EnrichedJob) string {
	if job.DescriptionHTML != "" {
		md, err := clean.HTMLToMarkdown(job.DescriptionHTML, domainOf(job.URL))
		if err == nil && strings.TrimSpace(md) != "" {
			return strings.TrimSpace(md)
		}
	}
	return strings.TrimSpace(job.Description)
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
