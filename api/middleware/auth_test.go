package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jobsift/models"
)

// authRouter builds a router whose one route echoes the stored identity.
func authRouter(keys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(keys))
	r.GET("/x", func(c *gin.Context) {
		identity := ""
		if key, ok := c.Get("api_key"); ok {
			identity = key.(string)
		}
		c.String(http.StatusOK, "%s", identity)
	})
	return r
}

func doRequest(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *models.ErrorDetail {
	t.Helper()
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not a SearchResponse: %v (%s)", err, w.Body.String())
	}
	if resp.Success {
		t.Fatal("rejected request must not report success")
	}
	if resp.Error == nil {
		t.Fatal("rejected request carries no error detail")
	}
	return resp.Error
}

func TestAuth_OpenWhenNoKeys(t *testing.T) {
	w := doRequest(authRouter(nil), "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuth_BlankKeysMeanOpen(t *testing.T) {
	w := doRequest(authRouter([]string{"", "   "}), "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (blank keys are not keys)", w.Code)
	}
}

func TestAuth_MissingKey(t *testing.T) {
	w := doRequest(authRouter([]string{"sekrit"}), "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if e := decodeError(t, w); e.Code != models.ErrCodeUnauthorized {
		t.Errorf("error code = %q, want %q", e.Code, models.ErrCodeUnauthorized)
	}
}

func TestAuth_UnknownKey(t *testing.T) {
	w := doRequest(authRouter([]string{"sekrit"}), "X-API-Key", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if e := decodeError(t, w); e.Code != models.ErrCodeUnauthorized {
		t.Errorf("error code = %q, want %q", e.Code, models.ErrCodeUnauthorized)
	}
}

func TestAuth_HeaderKeyAccepted(t *testing.T) {
	w := doRequest(authRouter([]string{"sekrit", "other"}), "X-API-Key", "sekrit")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// The accepted key is stored as the caller identity.
	if w.Body.String() != "sekrit" {
		t.Errorf("identity = %q, want sekrit", w.Body.String())
	}
}

func TestAuth_BearerKeyAccepted(t *testing.T) {
	w := doRequest(authRouter([]string{"sekrit"}), "Authorization", "Bearer sekrit")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "sekrit" {
		t.Errorf("identity = %q, want sekrit", w.Body.String())
	}
}

func TestKeyMatches_LengthMismatch(t *testing.T) {
	keys := [][]byte{[]byte("sekrit")}
	if keyMatches(keys, "sekrit-longer") {
		t.Error("longer candidate must not match")
	}
	if keyMatches(keys, "sek") {
		t.Error("prefix must not match")
	}
	if !keyMatches(keys, "sekrit") {
		t.Error("exact key must match")
	}
}
