package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, inbound string) (string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(headerKey, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return seen, w.Header().Get(headerKey)
}

func TestMiddlewareKeepsInboundID(t *testing.T) {
	seen, header := serve(t, "upload-42")
	assert.Equal(t, "upload-42", seen)
	assert.Equal(t, "upload-42", header)
}

func TestMiddlewareReplacesMissingOrHostileID(t *testing.T) {
	for _, inbound := range []string{"", "has space", strings.Repeat("x", 200)} {
		seen, header := serve(t, inbound)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, inbound)
		assert.Equal(t, seen, header)
	}
}
