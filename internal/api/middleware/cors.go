package middleware

import (
	"net/http"
	"strings"

	"github.com/wb-go/wbf/ginext"
)

var (
	allowedMethods = strings.Join([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}, ", ")
	allowedHeaders = strings.Join([]string{"Accept", "Content-Type", "Origin"}, ", ")
	exposedHeaders = strings.Join([]string{"Content-Disposition", "X-Export-Path"}, ", ")
)

// CORS answers preflight requests and sets CORS headers for the allowed origins.
// An empty list or "*" allows every origin.
func CORS(allowedOrigins []string) func(*ginext.Context) {
	return func(c *ginext.Context) {
		origin := c.Request.Header.Get("Origin")

		if OriginAllowed(origin, allowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Expose-Headers", exposedHeaders)
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", allowedMethods)
			c.Header("Access-Control-Allow-Headers", allowedHeaders)
			c.Header("Access-Control-Max-Age", "3600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// OriginAllowed reports whether origin matches one of allowed.
// Entries of the form "*.example.com" match subdomains only.
func OriginAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}

	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		if domain, ok := strings.CutPrefix(a, "*."); ok {
			if prefix, ok := strings.CutSuffix(origin, domain); ok && strings.HasSuffix(prefix, ".") {
				return true
			}
		}
	}
	return false
}
