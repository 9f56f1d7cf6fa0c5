package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/repository"
	"github.com/noah-isme/sma-records/pkg/database"
)

// Entity names exposed by the catalog.
const (
	EntityWorkplaces          = "workplaces"
	EntityTerms               = "terms"
	EntityStudents            = "students"
	EntityDisciplineIncidents = "discipline-incidents"
	EntityDisciplineActions   = "discipline-actions"
)

// recordStore is the per-entity repository surface the catalog needs.
type recordStore[E any] interface {
	TableName() string
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]E, error)
	Clean(ctx context.Context, descriptorQuery string) (int64, error)
}

// EntityInfo describes a registered entity.
type EntityInfo struct {
	Name    string          `json:"name"`
	Source  database.Source `json:"source"`
	Table   string          `json:"table"`
	Headers []string        `json:"headers"`
}

// entry erases the record type of one registered store.
type entry struct {
	info   EntityInfo
	count  func(ctx context.Context) (int, error)
	list   func(ctx context.Context) ([]models.Exportable, error)
	cached func(ctx context.Context, cache *CacheService, key string) ([]models.Exportable, bool)
	clean  func(ctx context.Context, descriptorQuery string) (int64, error)
}

// Catalog maps entity names to their stores.
type Catalog struct {
	entries map[string]entry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]entry)}
}

// Register adds a store under name. Registering a name twice is an error.
func Register[E models.Exportable](c *Catalog, name string, source database.Source, store recordStore[E]) error {
	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("entity %q already registered", name)
	}

	var zero E
	c.entries[name] = entry{
		info: EntityInfo{
			Name:    name,
			Source:  source,
			Table:   store.TableName(),
			Headers: zero.ExportHeaders(),
		},
		count: store.Count,
		list: func(ctx context.Context) ([]models.Exportable, error) {
			records, err := store.List(ctx)
			if err != nil {
				return nil, err
			}
			return exportables(records), nil
		},
		cached: func(ctx context.Context, cache *CacheService, key string) ([]models.Exportable, bool) {
			var records []E
			if !cache.Get(ctx, key, &records) {
				return nil, false
			}
			return exportables(records), true
		},
		clean: store.Clean,
	}
	return nil
}

// lookup returns the entry registered under name.
func (c *Catalog) lookup(name string) (entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Entities lists registered entities sorted by name.
func (c *Catalog) Entities() []EntityInfo {
	out := make([]EntityInfo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultCatalog registers every known entity against its source database.
func DefaultCatalog(sources map[database.Source]*sqlx.DB) (*Catalog, error) {
	legacy, ok := sources[database.SourceLegacy]
	if !ok {
		return nil, fmt.Errorf("missing %s source", database.SourceLegacy)
	}
	ods, ok := sources[database.SourceODS]
	if !ok {
		return nil, fmt.Errorf("missing %s source", database.SourceODS)
	}

	c := NewCatalog()
	regs := []func() error{
		func() error {
			return Register[models.Workplace](c, EntityWorkplaces, database.SourceLegacy,
				repository.NewRecordRepository[models.Workplace](legacy, repository.WorkplaceMapping{}))
		},
		func() error {
			return Register[models.Term](c, EntityTerms, database.SourceLegacy,
				repository.NewRecordRepository[models.Term](legacy, repository.TermMapping{}))
		},
		func() error {
			return Register[models.Student](c, EntityStudents, database.SourceODS,
				repository.NewRecordRepository[models.Student](ods, repository.StudentMapping{}))
		},
		func() error {
			return Register[models.DisciplineIncident](c, EntityDisciplineIncidents, database.SourceODS,
				repository.NewRecordRepository[models.DisciplineIncident](ods, repository.DisciplineIncidentMapping{}))
		},
		func() error {
			return Register[models.DisciplineAction](c, EntityDisciplineActions, database.SourceODS,
				repository.NewRecordRepository[models.DisciplineAction](ods, repository.DisciplineActionMapping{}))
		},
	}
	for _, reg := range regs {
		if err := reg(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func exportables[E models.Exportable](records []E) []models.Exportable {
	out := make([]models.Exportable, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
