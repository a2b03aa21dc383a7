package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

const cacheKeyPrefix = "results-api:"

type cacheWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Cache serves successful GET responses from redis for the given TTL. Run
// results are immutable once written, so a short TTL only bounds staleness of
// the "latest run" lookup. Every redis failure falls through to the handler.
func Cache(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) gin.HandlerFunc {
	cacheLog := log.With("middleware", "Cache")
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		key := cacheKeyPrefix + c.Request.URL.RequestURI()

		if cached, err := rdb.Get(c.Request.Context(), key).Bytes(); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}

		writer := &cacheWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		if c.Writer.Status() != http.StatusOK || writer.buf.Len() == 0 {
			return
		}
		if err := rdb.Set(c.Request.Context(), key, writer.buf.Bytes(), ttl).Err(); err != nil {
			cacheLog.Debug("cache store failed", "key", key, "error", err)
		}
	}
}
