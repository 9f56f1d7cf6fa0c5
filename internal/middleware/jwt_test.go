package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "records-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "registrar",
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var subject string
	r := gin.New()
	r.GET("/records", JWT(testSecret), func(c *gin.Context) {
		subject = c.GetString(ContextSubjectKey)
		c.Status(http.StatusOK)
	})

	valid := signToken(t, jwt.SigningMethodHS256, testSecret, time.Now().Add(time.Hour))
	cases := map[string]struct {
		header string
		want   int
	}{
		"missing":      {"", http.StatusUnauthorized},
		"not bearer":   {"Basic " + valid, http.StatusUnauthorized},
		"wrong secret": {"Bearer " + signToken(t, jwt.SigningMethodHS256, "other", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		"wrong alg":    {"Bearer " + signToken(t, jwt.SigningMethodHS384, testSecret, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		"expired":      {"Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		"valid":        {"bearer " + valid, http.StatusOK},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodGet, "/records", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "registrar", subject)
			} else {
				assert.Empty(t, subject)
				assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}
