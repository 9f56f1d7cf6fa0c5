package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/app"
	"github.com/noah-isme/sma-records/pkg/config"
	"github.com/noah-isme/sma-records/pkg/database"
)

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	legacy, _, err := sqlmock.New()
	require.NoError(t, err)
	ods, _, err := sqlmock.New()
	require.NoError(t, err)

	a, err := app.Assemble(cfg, zap.NewNop(), map[database.Source]*sqlx.DB{
		database.SourceLegacy: sqlx.NewDb(legacy, "sqlmock"),
		database.SourceODS:    sqlx.NewDb(ods, "sqlmock"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() }) //nolint:errcheck
	return router(cfg, zap.NewNop(), a)
}

func serve(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterGuardsRecordsWithJWT(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1", JWT: config.JWTConfig{Secret: "s3cret"}}
	r := newTestRouter(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api/v1/records", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/api/v1/status", "").Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "registrar",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	rec := serve(r, "/api/v1/records", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "terms")
}

func TestRouterOpenWithoutSecret(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"}
	r := newTestRouter(t, cfg)

	assert.Equal(t, http.StatusOK, serve(r, "/api/v1/records", "").Code)
}

func TestRouterServesSwaggerOutsideProduction(t *testing.T) {
	r := newTestRouter(t, &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"})
	rec := serve(r, "/docs/doc.json", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SMA Records API")
	assert.Contains(t, rec.Body.String(), "/api/v1/records/{entity}/export")

	prod := newTestRouter(t, &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"})
	assert.Equal(t, http.StatusNotFound, serve(prod, "/docs/doc.json", "").Code)
}
