// Package report renders pipeline results: a compact console view plus
// JSON and Markdown file exports.
package report

import (
	"fmt"
	"io"

	"github.com/use-agent/jobsift/models"
)

// WriteSummary renders one compact line per job, in listing order.
func WriteSummary(w io.Writer, jobs []models.EnrichedJob) {
	for i, job := range jobs {
		line := fmt.Sprintf("#%d %s @ %s -- %s",
			i+1, orUnknown(job.Title), orUnknown(job.Company), orUnknown(job.Location))
		if job.Salary != "" {
			line += " | " + job.Salary
		}
		fmt.Fprintln(w, line)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
