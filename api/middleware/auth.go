package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/placescout/models"
)

// IdentityKey is the gin context key holding the caller's API key once
// Auth has accepted it. RateLimit buckets by it.
const IdentityKey = "api_key"

// Auth accepts requests carrying one of apiKeys, either as
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// An empty key list disables the check.
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
		key := requestKey(c.Request)
		switch {
		case key == "":
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized,
				"missing API key: send X-API-Key or Authorization: Bearer <key>")
		case !knownKey(keys, key):
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid API key")
		default:
			c.Set(IdentityKey, key)
			c.Next()
		}
	}
}

// knownKey compares against every key in constant time.
func knownKey(keys [][]byte, key string) bool {
	got := []byte(key)
	found := 0
	for _, want := range keys {
		found |= subtle.ConstantTimeCompare(want, got)
	}
	return found == 1
}

func requestKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
