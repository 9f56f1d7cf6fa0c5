package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records/internal/middleware"
	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/service"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
	"github.com/noah-isme/sma-records/pkg/response"
)

const maxPageSize = 500

type recordService interface {
	Entities() []service.EntityInfo
	Count(ctx context.Context, name string) (int, error)
	List(ctx context.Context, name string) ([]models.Exportable, bool, error)
	Export(ctx context.Context, req service.ExportRequest) (*service.ExportResult, error)
}

// RecordHandler exposes read-only record endpoints. Cleaning tables is left
// to the administrative CLI.
type RecordHandler struct {
	service recordService
}

// NewRecordHandler constructs a record handler.
func NewRecordHandler(svc recordService) *RecordHandler {
	return &RecordHandler{service: svc}
}

// Register mounts the record routes on the group.
func (h *RecordHandler) Register(g *gin.RouterGroup) {
	g.GET("/records", h.Entities)
	g.GET("/records/:entity", h.List)
	g.GET("/records/:entity/count", h.Count)
	g.GET("/records/:entity/export", h.Export)
}

// Entities godoc
// @Summary List record entities
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/records [get]
func (h *RecordHandler) Entities(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Entities(), nil)
}

// Count godoc
// @Summary Count entity rows
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param entity path string true "Entity name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/records/{entity}/count [get]
func (h *RecordHandler) Count(c *gin.Context) {
	name := c.Param("entity")
	total, err := h.service.Count(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"entity": name, "count": total}, nil)
}

// List returns all records of an entity. Passing limit pages the result in
// memory; the underlying query always reads the full table.
// @Summary List entity records
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param entity path string true "Entity name"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (1-500)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /api/v1/records/{entity} [get]
func (h *RecordHandler) List(c *gin.Context) {
	name := c.Param("entity")

	page, size, paged, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, hit, err := h.service.List(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetRowCount(c, len(records))

	if !paged {
		response.JSON(c, http.StatusOK, records, nil, middleware.ExtractMeta(c))
		return
	}

	start := (page - 1) * size
	if start > len(records) {
		start = len(records)
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(records)}
	response.JSON(c, http.StatusOK, records[start:end], pagination, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export entity records
// @Tags Records
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param entity path string true "Entity name"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /api/v1/records/{entity}/export [get]
func (h *RecordHandler) Export(c *gin.Context) {
	req := service.ExportRequest{
		Entity: c.Param("entity"),
		Format: c.DefaultQuery("format", "csv"),
	}
	result, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Rows, result.Body)
}

func pageParams(c *gin.Context) (page, size int, paged bool, err error) {
	rawLimit := strings.TrimSpace(c.Query("limit"))
	if rawLimit == "" {
		return 0, 0, false, nil
	}
	size, convErr := strconv.Atoi(rawLimit)
	if convErr != nil || size <= 0 || size > maxPageSize {
		return 0, 0, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
	}
	page = 1
	if rawPage := strings.TrimSpace(c.Query("page")); rawPage != "" {
		page, convErr = strconv.Atoi(rawPage)
		if convErr != nil || page < 1 {
			return 0, 0, false, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
	}
	return page, size, true, nil
}
