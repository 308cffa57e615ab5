package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/jobsift/models"
)

// Auth returns API-key middleware for the protected routes. The key
// arrives as `X-API-Key: <key>` or `Authorization: Bearer <key>`. An empty
// key list leaves the API open, which is the single-user default when
// serve mode runs next to the CLI on one machine.
//
// The accepted key is stored in the context under "api_key" so the rate
// limiter can bucket per key.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := requestKey(c)
		if key == "" {
			unauthorized(c, "missing API key: send X-API-Key or Authorization: Bearer <key>")
			return
		}
		if !keyMatches(keys, key) {
			unauthorized(c, "unknown API key")
			return
		}
		c.Set("api_key", key)
		c.Next()
	}
}

// requestKey reads X-API-Key first, then the bearer token.
func requestKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// keyMatches checks the candidate against every configured key. Each
// comparison is constant time and all keys are always checked, so the
// response time does not depend on how much of any key matched.
func keyMatches(keys [][]byte, candidate string) bool {
	cb := []byte(candidate)
	matched := false
	for _, k := range keys {
		if len(k) == len(cb) && subtle.ConstantTimeCompare(k, cb) == 1 {
			matched = true
		}
	}
	return matched
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.SearchResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: message,
		},
	})
}
