package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/use-agent/jobsift/models"
)

func sampleJobs() []models.EnrichedJob {
	return []models.EnrichedJob{
		{
			JobKey:   "abc123",
			Title:    "Go Developer",
			Company:  "Acme",
			Location: "Paris",
			Salary:   "45 000 € par an",
			URL:      "https://fr.indeed.com/viewjob?jk=abc123",
		},
		{
			JobKey:  "def456",
			Title:   "SRE",
			Company: "Globex",
		},
	}
}

func TestWriteSummary(t *testing.T) {
	var sb strings.Builder
	WriteSummary(&sb, sampleJobs())

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), sb.String())
	}
	if lines[0] != "#1 Go Developer @ Acme -- Paris | 45 000 € par an" {
		t.Errorf("line 1 = %q", lines[0])
	}
	// Missing fields render as "?" and salary is omitted entirely.
	if lines[1] != "#2 SRE @ Globex -- ?" {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := ExportJSON(path, sampleJobs()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("not a JSON array: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0]["job_key"] != "abc123" || out[1]["job_key"] != "def456" {
		t.Errorf("order or keys wrong: %v", out)
	}
	// The raw markup never reaches the serialized form.
	if _, ok := out[0]["DescriptionHTML"]; ok {
		t.Error("description html leaked into the JSON export")
	}
}

func TestExportJSON_NilJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := ExportJSON(path, nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("nil jobs should export an empty array, got %q", data)
	}
}

func TestExportMarkdown(t *testing.T) {
	jobs := sampleJobs()
	jobs[0].DescriptionHTML = "<p>Build <strong>Go</strong> services.</p><ul><li>Ship</li><li>Operate</li></ul>"
	jobs[0].Description = "Build Go services. Ship Operate"

	path := filepath.Join(t.TempDir(), "jobs.md")
	if err := ExportMarkdown(path, jobs); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)

	if !strings.Contains(md, "# Job search results (2 jobs)") {
		t.Errorf("missing header: %q", md)
	}
	if !strings.Contains(md, "## 1. Go Developer") || !strings.Contains(md, "## 2. SRE") {
		t.Errorf("missing job headings: %q", md)
	}
	if !strings.Contains(md, "- Link: <https://fr.indeed.com/viewjob?jk=abc123>") {
		t.Errorf("missing link: %q", md)
	}
	// The markup converts to Markdown instead of being stripped.
	if !strings.Contains(md, "**Go**") {
		t.Errorf("description markup not converted: %q", md)
	}
	if !strings.Contains(md, "- Ship") {
		t.Errorf("list items not converted: %q", md)
	}
}

func TestExportMarkdown_TextFallback(t *testing.T) {
	jobs := []models.EnrichedJob{{
		JobKey:      "abc123",
		Title:       "Go Developer",
		Description: "Plain text description only.",
	}}

	path := filepath.Join(t.TempDir(), "jobs.md")
	if err := ExportMarkdown(path, jobs); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Plain text description only.") {
		t.Errorf("plain description lost: %q", data)
	}
}
