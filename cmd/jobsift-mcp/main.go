package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// searchRequest mirrors the Jobsift API request model. MaxDetails is a
// pointer so an explicit 0 (no detail fetches) survives serialization.
type searchRequest struct {
	SearchURL   string `json:"search_url"`
	MaxDetails  *int   `json:"max_details,omitempty"`
	ListingOnly bool   `json:"listing_only,omitempty"`
	ProxyURL    string `json:"proxy_url,omitempty"`
}

// searchResponse mirrors the Jobsift API response model.
type searchResponse struct {
	Success bool `json:"success"`
	Jobs    []struct {
		JobKey      string `json:"job_key"`
		Title       string `json:"title"`
		Company     string `json:"company"`
		Location    string `json:"location"`
		Salary      string `json:"salary"`
		JobType     string `json:"job_type"`
		Description string `json:"description"`
		PostedAt    string `json:"posted_at"`
		URL         string `json:"url"`
	} `json:"jobs"`
	TotalCount  int `json:"total_count"`
	Diagnostics []struct {
		Kind    string `json:"kind"`
		JobKey  string `json:"job_key,omitempty"`
		Message string `json:"message"`
	} `json:"diagnostics"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// healthResponse mirrors the Jobsift API health model.
type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

func main() {
	apiURL := os.Getenv("JOBSIFT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("JOBSIFT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "JOBSIFT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"jobsift",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchJobsTool := mcp.NewTool("search_jobs",
		mcp.WithDescription("Scrape a job-board search results page and return the listed jobs, enriched with detail-page data (description, salary, job type) where available."),
		mcp.WithString("search_url",
			mcp.Required(),
			mcp.Description("The URL of the job search results page to scrape"),
		),
		mcp.WithNumber("max_details",
			mcp.Description("How many jobs get a detail-page fetch (default: 10, max: 50). Jobs past the cap are returned with summary data only."),
		),
		mcp.WithBoolean("listing_only",
			mcp.Description("Skip detail pages entirely and return summary data only (faster)"),
		),
	)
	s.AddTool(searchJobsTool, handleSearchJobs(apiURL, apiKey))

	healthTool := mcp.NewTool("health",
		mcp.WithDescription("Check that the Jobsift API is up and report its uptime and version."),
	)
	s.AddTool(healthTool, handleHealth(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleSearchJobs(apiURL, apiKey string) server.ToolHandlerFunc {
	// Detail fetches are paced, so a full run can take a few minutes.
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		searchURL, err := request.RequireString("search_url")
		if err != nil {
			return mcp.NewToolResultError("search_url is required"), nil
		}

		reqBody := searchRequest{SearchURL: searchURL}

		args := request.GetArguments()
		if maxDetails, ok := args["max_details"].(float64); ok {
			n := int(maxDetails)
			reqBody.MaxDetails = &n
		}
		if listingOnly, ok := args["listing_only"].(bool); ok {
			reqBody.ListingOnly = listingOnly
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/search", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var searchResp searchResponse
		if err := json.Unmarshal(respBody, &searchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !searchResp.Success {
			errMsg := "search failed"
			if searchResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", searchResp.Error.Code, searchResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d jobs (%d total available on the site)\n\n", len(searchResp.Jobs), searchResp.TotalCount))

		for i, job := range searchResp.Jobs {
			sb.WriteString(fmt.Sprintf("--- [%d] %s ---\n", i+1, job.Title))
			if job.Company != "" {
				sb.WriteString("Company: " + job.Company + "\n")
			}
			if job.Location != "" {
				sb.WriteString("Location: " + job.Location + "\n")
			}
			if job.Salary != "" {
				sb.WriteString("Salary: " + job.Salary + "\n")
			}
			if job.JobType != "" {
				sb.WriteString("Type: " + job.JobType + "\n")
			}
			if job.PostedAt != "" {
				sb.WriteString("Posted: " + job.PostedAt + "\n")
			}
			sb.WriteString("Link: " + job.URL + "\n")
			if job.Description != "" {
				sb.WriteString("\n" + job.Description + "\n")
			}
			sb.WriteString("\n")
		}

		if len(searchResp.Diagnostics) > 0 {
			sb.WriteString(fmt.Sprintf("---\n%d diagnostics:\n", len(searchResp.Diagnostics)))
			for _, d := range searchResp.Diagnostics {
				if d.JobKey != "" {
					sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", d.Kind, d.JobKey, d.Message))
				} else {
					sb.WriteString(fmt.Sprintf("- [%s] %s\n", d.Kind, d.Message))
				}
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleHealth(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/v1/health", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API unreachable: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var health healthResponse
		if err := json.Unmarshal(respBody, &health); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Status: %s\nUptime: %s\nVersion: %s", health.Status, health.Uptime, health.Version)), nil
	}
}
