package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/jobsift/config"
	"github.com/use-agent/jobsift/engine"
	"github.com/use-agent/jobsift/models"
)

// pageEngine serves one canned body for every fetch.
type pageEngine struct {
	body  string
	calls int
}

func (e *pageEngine) Name() string { return "page" }

func (e *pageEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	e.calls++
	return &engine.FetchResult{Body: e.body, StatusCode: 200, FinalURL: req.URL, EngineName: "page"}, nil
}

const routerListingPage = `<html><body>
<script id="mosaic-data">
window.mosaic.providerData["mosaic-provider-jobcards"] = {"metaData":{"mosaicProviderJobCardsModel":{"results":[
{"jobkey":"abc123","title":"Go Developer","company":"Acme"}
]}}};
</script>
</body></html>`

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"sekrit"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 10},
		Search:    config.SearchConfig{DetailRPS: 0},
		Engine:    config.EngineConfig{HTTPTimeout: 30 * time.Second},
	}
}

func postSearch(r http.Handler, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthNeedsNoKey(t *testing.T) {
	r := NewRouter(&pageEngine{}, testConfig(), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var health models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("not a HealthResponse: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q", health.Status)
	}
}

func TestRouter_SearchWithoutKeyRejected(t *testing.T) {
	eng := &pageEngine{body: routerListingPage}
	r := NewRouter(eng, testConfig(), time.Now())

	w := postSearch(r, "", `{"search_url":"https://fr.indeed.com/jobs?q=golang"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("not a SearchResponse: %v", err)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != models.ErrCodeUnauthorized {
		t.Errorf("unexpected rejection body: %+v", resp)
	}
	if eng.calls != 0 {
		t.Errorf("rejected request reached the engine: %d calls", eng.calls)
	}
}

func TestRouter_SearchRuns(t *testing.T) {
	eng := &pageEngine{body: routerListingPage}
	r := NewRouter(eng, testConfig(), time.Now())

	w := postSearch(r, "sekrit", `{"search_url":"https://fr.indeed.com/jobs?q=golang","listing_only":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("not a SearchResponse: %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false: %+v", resp.Error)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].JobKey != "abc123" {
		t.Errorf("unexpected jobs: %+v", resp.Jobs)
	}
}

func TestRouter_SearchExplicitZeroDetails(t *testing.T) {
	eng := &pageEngine{body: routerListingPage}
	r := NewRouter(eng, testConfig(), time.Now())

	w := postSearch(r, "sekrit", `{"search_url":"https://fr.indeed.com/jobs?q=golang","max_details":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	// max_details 0 means the listing fetch and nothing else.
	if eng.calls != 1 {
		t.Errorf("engine calls = %d, want 1", eng.calls)
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("not a SearchResponse: %v", err)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].DetailFormat != "" {
		t.Errorf("jobs should be summary-only: %+v", resp.Jobs)
	}
}

func TestRouter_SearchRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.0001, Burst: 1}
	r := NewRouter(&pageEngine{body: routerListingPage}, cfg, time.Now())

	body := `{"search_url":"https://fr.indeed.com/jobs?q=golang","listing_only":true}`
	if w := postSearch(r, "sekrit", body); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}

	w := postSearch(r, "sekrit", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("not a SearchResponse: %v", err)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != models.ErrCodeRateLimited {
		t.Errorf("unexpected rejection body: %+v", resp)
	}
}
