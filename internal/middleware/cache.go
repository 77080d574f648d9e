package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-invigilation-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	fingerprintKey  = "fingerprint"

	// CacheHeader mirrors the run cache outcome for clients that only read headers.
	CacheHeader = "X-Cache"
)

// WithResponseMeta prepares the meta block of the response envelope. The
// request id and processing time are filled in for every request; handlers
// add run details through SetCacheHit and SetFingerprint.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta["request_id"] = id
		}
		c.Set(responseMetaKey, meta)
		c.Next()
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether the assignment run was served from the run cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
	if c != nil && c.Writer != nil {
		value := "MISS"
		if hit {
			value = "HIT"
		}
		c.Header(CacheHeader, value)
	}
}

// SetFingerprint records the input fingerprint of the run behind the response.
func SetFingerprint(c *gin.Context, fingerprint string) {
	if fingerprint == "" {
		return
	}
	ensureMeta(c)[fingerprintKey] = fingerprint
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	if c != nil {
		c.Set(responseMetaKey, meta)
	}
	return meta
}
