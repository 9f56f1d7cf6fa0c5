package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	CacheHeader     = "X-Cache"
)

type responseMeta struct {
	start    time.Time
	cacheHit *bool
	rowCount *int
}

// WithResponseMeta starts per-request metadata collection. Handlers fill it
// in with SetCacheHit and SetRowCount and read it back with ExtractMeta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the listing came from cache and mirrors it in
// the X-Cache header.
func SetCacheHit(c *gin.Context, hit bool) {
	if m := metaOf(c); m != nil {
		m.cacheHit = &hit
	}
	if hit {
		c.Header(CacheHeader, "HIT")
	} else {
		c.Header(CacheHeader, "MISS")
	}
}

// SetRowCount records how many records the response carries.
func SetRowCount(c *gin.Context, n int) {
	if m := metaOf(c); m != nil {
		m.rowCount = &n
	}
}

// ExtractMeta renders the collected metadata, timing the request up to now.
// It returns nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := metaOf(c)
	if m == nil {
		return nil
	}
	out := map[string]interface{}{
		"processing_time_ms": time.Since(m.start).Milliseconds(),
	}
	if m.cacheHit != nil {
		out["cache_hit"] = *m.cacheHit
	}
	if m.rowCount != nil {
		out["row_count"] = *m.rowCount
	}
	return out
}

func metaOf(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	v, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	m, _ := v.(*responseMeta)
	return m
}
