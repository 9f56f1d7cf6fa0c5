// Package cors answers cross-origin requests for the read-only record API.
package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	allowedMethods = []string{http.MethodGet, http.MethodOptions}
	allowedHeaders = []string{"Content-Type", "X-Requested-With", "X-Request-ID"}
	exposedHeaders = []string{"Content-Disposition", "X-Row-Count", "X-Cache", "X-Request-ID"}
)

// Policy decides which origins may read record responses.
type Policy struct {
	origins map[string]struct{}
}

// NewPolicy builds a policy from configured origins. Trailing slashes are
// ignored and an empty list allows any origin.
func NewPolicy(origins []string) Policy {
	p := Policy{}
	for _, o := range origins {
		if o = normalize(o); o != "" {
			if p.origins == nil {
				p.origins = make(map[string]struct{})
			}
			p.origins[o] = struct{}{}
		}
	}
	return p
}

// AllowsAny reports whether no origin list is configured.
func (p Policy) AllowsAny() bool { return len(p.origins) == 0 }

// Allows reports whether origin may read responses.
func (p Policy) Allows(origin string) bool {
	if p.AllowsAny() {
		return true
	}
	_, ok := p.origins[normalize(origin)]
	return ok
}

// New returns the CORS middleware for origins.
func New(origins []string) gin.HandlerFunc {
	policy := NewPolicy(origins)
	methods := strings.Join(allowedMethods, ", ")
	headers := strings.Join(allowedHeaders, ", ")
	exposed := strings.Join(exposedHeaders, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		switch origin := c.GetHeader("Origin"); {
		case origin == "" && policy.AllowsAny():
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && policy.Allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
		}
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Expose-Headers", exposed)
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func normalize(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}
