package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWith(header string) (seen, fromCtx string, rec *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		fromCtx = FromContext(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(Header, header)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return seen, fromCtx, rec
}

func TestMiddlewareGeneratesID(t *testing.T) {
	seen, fromCtx, rec := serveWith("")

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, fromCtx)
	assert.Equal(t, seen, rec.Header().Get(Header))
}

func TestMiddlewareKeepsCallerID(t *testing.T) {
	seen, _, rec := serveWith("batch-42")

	assert.Equal(t, "batch-42", seen)
	assert.Equal(t, "batch-42", rec.Header().Get(Header))
}

func TestMiddlewareReplacesUnusableCallerID(t *testing.T) {
	for _, id := range []string{"has space", strings.Repeat("x", maxCallerIDLen+1), "tab\tid"} {
		seen, _, _ := serveWith(id)
		assert.NotEqual(t, id, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, id)
	}
}

func TestFromContext(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
	assert.Equal(t, "abc", FromContext(NewContext(context.Background(), "abc")))
}
