package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiKeyHeader = "X-API-Key"
	apiKeyQuery  = "key"
)

// APIKeyAuth guards wallet intents behind the X-API-Key header. An empty key
// disables the check.
func APIKeyAuth(key string) gin.HandlerFunc {
	return keyAuth(key, "missing "+apiKeyHeader+" header", headerKey)
}

// BridgeKeyAuth guards WebSocket handshakes. Browsers cannot set headers on
// a WebSocket, so the key may also arrive as the "key" query parameter.
func BridgeKeyAuth(key string) gin.HandlerFunc {
	return keyAuth(key, "missing API key", func(c *gin.Context) string {
		if v := headerKey(c); v != "" {
			return v
		}
		return strings.TrimSpace(c.Query(apiKeyQuery))
	})
}

func headerKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(apiKeyHeader))
}

func keyAuth(key, missingMsg string, extract func(*gin.Context) string) gin.HandlerFunc {
	if key == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(key)
	return func(c *gin.Context) {
		provided := extract(c)
		switch {
		case provided == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": missingMsg})
		case subtle.ConstantTimeCompare([]byte(provided), want) != 1:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
		default:
			c.Next()
		}
	}
}

// originChecker accepts handshakes whose Origin is in allowed. With no
// configured origins it returns nil, which makes gorilla require the Origin
// host to match the request host. Requests without an Origin header are not
// from a browser and are left to the key check.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[normalizeOrigin(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[normalizeOrigin(origin)]
		return ok
	}
}

func normalizeOrigin(o string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
}
