package pipeline

import (
	"fmt"

	"github.com/use-agent/jobsift/models"
)

// Merge overlays an optional JobDetail onto a JobSummary to produce the
// terminal EnrichedJob. Detail pages are the more authoritative source, so
// every field the detail carries overwrites the summary's value; fields
// the detail lacks keep the summary's value.
//
// A detail whose job key differs from the summary's is still merged: the
// detail fetch was addressed by the summary's key, so a differing key in
// the payload is formatting drift (prefixed vs bare), not a wrong join.
// The mismatch is reported as a diagnostic so stricter callers can see it.
func Merge(s models.JobSummary, d *models.JobDetail) (models.EnrichedJob, *models.Diagnostic) {
	job := models.EnrichedJob{
		JobKey:   s.JobKey,
		Title:    s.Title,
		Company:  s.Company,
		Location: s.Location,
		Salary:   s.Salary,
		URL:      s.URL,
		PostedAt: s.PostedAt,
	}
	if d == nil {
		return job, nil
	}

	if d.Company != "" {
		job.Company = d.Company
	}
	if d.Location != "" {
		job.Location = d.Location
	}
	if d.Salary != "" {
		job.Salary = d.Salary
	}
	if d.JobType != "" {
		job.JobType = d.JobType
	}
	if d.Description != "" {
		job.Description = d.Description
	}
	if d.DescriptionHTML != "" {
		job.DescriptionHTML = d.DescriptionHTML
	}
	if d.PostedAt != "" {
		job.PostedAt = d.PostedAt
	}
	job.DetailFormat = d.RawFormat

	var diag *models.Diagnostic
	if d.JobKey != "" && d.JobKey != s.JobKey {
		diag = &models.Diagnostic{
			Kind:    models.DiagJoinKeyMismatch,
			JobKey:  s.JobKey,
			Message: fmt.Sprintf("detail payload reports key %q for listing key %q; merged anyway", d.JobKey, s.JobKey),
		}
	}
	return job, diag
}
