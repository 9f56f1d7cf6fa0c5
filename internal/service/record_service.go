package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/record"
	"github.com/noah-isme/sma-records/internal/repository"
	"github.com/noah-isme/sma-records/pkg/config"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
	"github.com/noah-isme/sma-records/pkg/export"
	"github.com/noah-isme/sma-records/pkg/logger"
)

const (
	// maxParallelLoads bounds concurrent table reads in ListMany.
	maxParallelLoads   = 4
	defaultLoadTimeout = 2 * time.Minute
)

// ExportRequest selects an entity and an output format.
type ExportRequest struct {
	Entity string `json:"entity" validate:"required"`
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportResult is a rendered export file.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// RecordService exposes catalog entities to the HTTP and CLI surfaces.
type RecordService struct {
	catalog   *Catalog
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.RecordsConfig
	now       func() time.Time
	loads     singleflight.Group
}

// NewRecordService wires the record service.
func NewRecordService(catalog *Catalog, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg config.RecordsConfig) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{
		catalog:   catalog,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Entities lists registered entities.
func (s *RecordService) Entities() []EntityInfo {
	return s.catalog.Entities()
}

// Count returns the row count of an entity's table.
func (s *RecordService) Count(ctx context.Context, name string) (int, error) {
	e, err := s.entry(name)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	total, err := e.count(ctx)
	s.metrics.ObserveDBQuery("count", name, time.Since(start))
	if err != nil {
		s.log(ctx).Error("count records failed", zap.String("entity", name), zap.Error(err))
		return 0, mapRecordError(err)
	}
	return total, nil
}

// List loads every record of an entity. The boolean reports a cache hit.
// Concurrent misses for the same entity share one table read; a caller
// that cancels stops waiting without failing the read for the others.
func (s *RecordService) List(ctx context.Context, name string) ([]models.Exportable, bool, error) {
	e, err := s.entry(name)
	if err != nil {
		return nil, false, err
	}

	key := repository.RecordListKey(name)
	if cached, hit := e.cached(ctx, s.cache, key); hit {
		return cached, true, nil
	}

	ch := s.loads.DoChan(name, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout())
		defer cancel()
		return s.load(loadCtx, e, key)
	})
	select {
	case <-ctx.Done():
		return nil, false, mapRecordError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]models.Exportable), false, nil
	}
}

// loadTimeout bounds a shared table read, which no single caller's
// context governs.
func (s *RecordService) loadTimeout() time.Duration {
	if s.cfg.LoadTimeout > 0 {
		return s.cfg.LoadTimeout
	}
	return defaultLoadTimeout
}

func (s *RecordService) load(ctx context.Context, e entry, key string) ([]models.Exportable, error) {
	name := e.info.Name
	start := time.Now()
	records, err := e.list(ctx)
	s.metrics.ObserveDBQuery("list", name, time.Since(start))
	if err != nil {
		s.log(ctx).Error("list records failed", zap.String("entity", name), zap.Error(err))
		return nil, mapRecordError(err)
	}
	s.metrics.ObserveRecordsLoaded(name, len(records))
	s.cache.Set(ctx, key, records, s.cfg.CacheTTL)
	return records, nil
}

// ListMany loads several entities in parallel and groups the combined
// result by record type. Any failure cancels the remaining loads.
func (s *RecordService) ListMany(ctx context.Context, names ...string) ([]models.Exportable, error) {
	results := make([][]models.Exportable, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			records, _, err := s.List(gctx, name)
			results[i] = records
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.Exportable
	for _, records := range results {
		all = append(all, records...)
	}
	record.SortByType(all)
	return all, nil
}

// Export renders an entity listing as CSV or PDF.
func (s *RecordService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid export request")
	}
	e, err := s.entry(req.Entity)
	if err != nil {
		return nil, err
	}

	records, _, err := s.List(ctx, req.Entity)
	if err != nil {
		return nil, err
	}

	format := export.Format(req.Format)
	renderer, err := export.For(format)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrUnsupportedFormat, "")
	}

	data := Dataset(req.Entity, e.info.Headers, records)
	body, err := renderer.Render(data)
	if err != nil {
		s.log(ctx).Error("render export failed", zap.String("entity", req.Entity), zap.String("format", req.Format), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "render export")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("%s-%s.%s", req.Entity, s.now().Format("20060102"), format),
		ContentType: format.ContentType(),
		Body:        body,
		Rows:        len(records),
	}, nil
}

// Clean empties an entity's table after the TEST descriptor check and drops
// any cached listing.
func (s *RecordService) Clean(ctx context.Context, name string) (int64, error) {
	e, err := s.entry(name)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	deleted, err := e.clean(ctx, s.cfg.EnvironmentQuery)
	s.metrics.ObserveDBQuery("clean", name, time.Since(start))
	if errors.Is(err, record.ErrRowCountUnknown) {
		s.metrics.ObserveClean(name, CleanOutcomeCleaned)
		s.log(ctx).Warn("table cleaned without a row count", zap.String("entity", name), zap.Error(err))
		s.invalidate(ctx, name)
		return 0, mapRecordError(err)
	}
	if err != nil {
		if errors.Is(err, record.ErrNotTestEnvironment) {
			s.metrics.ObserveClean(name, CleanOutcomeRefused)
			s.log(ctx).Warn("clean refused", zap.String("entity", name), zap.Error(err))
		} else {
			s.metrics.ObserveClean(name, CleanOutcomeFailed)
			s.log(ctx).Error("clean failed", zap.String("entity", name), zap.Error(err))
		}
		return 0, mapRecordError(err)
	}
	s.metrics.ObserveClean(name, CleanOutcomeCleaned)
	s.log(ctx).Info("table cleaned", zap.String("entity", name), zap.String("table", e.info.Table), zap.Int64("rows", deleted))

	s.invalidate(ctx, name)
	return deleted, nil
}

func (s *RecordService) invalidate(ctx context.Context, name string) {
	if err := s.cache.Invalidate(ctx, repository.RecordPattern(name)); err != nil {
		s.log(ctx).Warn("cache invalidation after clean failed", zap.String("entity", name), zap.Error(err))
	}
}

func (s *RecordService) log(ctx context.Context) *zap.Logger {
	return logger.ForContext(ctx, s.logger)
}

func (s *RecordService) entry(name string) (entry, error) {
	e, ok := s.catalog.lookup(name)
	if !ok {
		return entry{}, appErrors.Clone(appErrors.ErrUnknownEntity, fmt.Sprintf("unknown record entity %q", name))
	}
	return e, nil
}

// Dataset flattens records into an export dataset with the given headers.
func Dataset(title string, headers []string, records []models.Exportable) export.Dataset {
	rows := make([]map[string]string, len(records))
	for i, r := range records {
		rows[i] = r.ExportRow()
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows}
}

func mapRecordError(err error) error {
	var coercion *record.CoercionError
	var missing *record.MissingColumnError
	switch {
	case errors.Is(err, record.ErrNotTestEnvironment):
		return appErrors.WrapAs(err, appErrors.ErrEnvironment, "")
	case errors.As(err, &coercion), errors.As(err, &missing):
		return appErrors.WrapAs(err, appErrors.ErrCoercion, "")
	case errors.Is(err, record.ErrEmptyTableName), errors.Is(err, record.ErrRowCountUnknown):
		return appErrors.WrapAs(err, appErrors.ErrInternal, "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return appErrors.WrapAs(err, appErrors.ErrSourceUnavailable, "")
	default:
		return appErrors.WrapAs(err, appErrors.ErrQueryFailed, "")
	}
}
