package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/internal/middleware"
	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/service"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

type fakeRecordSrv struct {
	records  []models.Exportable
	hit      bool
	err      error
	count    int
	export   *service.ExportResult
	lastReq  service.ExportRequest
	entities []service.EntityInfo
}

func (f *fakeRecordSrv) Entities() []service.EntityInfo { return f.entities }

func (f *fakeRecordSrv) Count(context.Context, string) (int, error) { return f.count, f.err }

func (f *fakeRecordSrv) List(context.Context, string) ([]models.Exportable, bool, error) {
	return f.records, f.hit, f.err
}

func (f *fakeRecordSrv) Export(_ context.Context, req service.ExportRequest) (*service.ExportResult, error) {
	f.lastReq = req
	return f.export, f.err
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newRecordRouter(srv *fakeRecordSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	NewRecordHandler(srv).Register(r.Group("/api/v1"))
	return r
}

func serve(r *gin.Engine, path string) (*httptest.ResponseRecorder, responseEnvelope) {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func termRecords() []models.Exportable {
	return []models.Exportable{
		models.Term{Code: "T1", Name: models.TermFall},
		models.Term{Code: "T2", Name: models.TermWinter},
		models.Term{Code: "T3", Name: models.TermSpring},
	}
}

func TestRecordHandlerList(t *testing.T) {
	r := newRecordRouter(&fakeRecordSrv{records: termRecords(), hit: true})

	rec, env := serve(r, "/api/v1/records/terms")

	assert.Equal(t, http.StatusOK, rec.Code)
	var terms []models.Term
	require.NoError(t, json.Unmarshal(env.Data, &terms))
	assert.Len(t, terms, 3)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, float64(3), env.Meta["row_count"])
	assert.Nil(t, env.Pagination)
}

func TestRecordHandlerListPaged(t *testing.T) {
	r := newRecordRouter(&fakeRecordSrv{records: termRecords()})

	rec, env := serve(r, "/api/v1/records/terms?limit=2&page=2")

	assert.Equal(t, http.StatusOK, rec.Code)
	var terms []models.Term
	require.NoError(t, json.Unmarshal(env.Data, &terms))
	require.Len(t, terms, 1)
	assert.Equal(t, "T3", terms[0].Code)
	assert.Equal(t, float64(3), env.Pagination["total_count"])

	rec, env = serve(r, "/api/v1/records/terms?limit=2&page=9")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestRecordHandlerListEmptyTable(t *testing.T) {
	r := newRecordRouter(&fakeRecordSrv{records: []models.Exportable{}})

	rec, env := serve(r, "/api/v1/records/terms")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestRecordHandlerInvalidLimit(t *testing.T) {
	r := newRecordRouter(&fakeRecordSrv{})

	rec, env := serve(r, "/api/v1/records/terms?limit=0")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error["code"])
}

func TestRecordHandlerErrors(t *testing.T) {
	r := newRecordRouter(&fakeRecordSrv{err: appErrors.Clone(appErrors.ErrUnknownEntity, "unknown record entity \"grades\"")})

	rec, env := serve(r, "/api/v1/records/grades")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, appErrors.ErrUnknownEntity.Code, env.Error["code"])

	r = newRecordRouter(&fakeRecordSrv{err: errors.New("driver failure")})
	rec, _ = serve(r, "/api/v1/records/terms/count")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecordHandlerCount(t *testing.T) {
	r := newRecordRouter(&fakeRecordSrv{count: 42})

	rec, env := serve(r, "/api/v1/records/students/count")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entity":"students","count":42}`, string(env.Data))
}

func TestRecordHandlerEntities(t *testing.T) {
	r := newRecordRouter(&fakeRecordSrv{entities: []service.EntityInfo{{Name: "terms", Source: "legacy", Table: "sch_term"}}})

	rec, env := serve(r, "/api/v1/records")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"table":"sch_term"`)
}

func TestRecordHandlerExport(t *testing.T) {
	srv := &fakeRecordSrv{export: &service.ExportResult{
		Filename:    "terms-20240115.csv",
		ContentType: "text/csv",
		Body:        []byte("code,name\nT1,FALL\n"),
		Rows:        1,
	}}
	r := newRecordRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records/terms/export", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.lastReq.Format)
	assert.Equal(t, "terms", srv.lastReq.Entity)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="terms-20240115.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Row-Count"))
	assert.Equal(t, "code,name\nT1,FALL\n", rec.Body.String())
}
