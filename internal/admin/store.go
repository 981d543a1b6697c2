package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/metrics"
	"github.com/equisy/equisy-api/internal/models"
	"github.com/equisy/equisy-api/internal/store/postgres"
)

const maxPerPage = 1000

// Scope identifies the tenant and the acting user of an admin request.
type Scope struct {
	TenantID uuid.UUID
	Schema   string
	UserID   uuid.UUID
	Role     string
}

// bypassObjectPermissions reports whether the actor skips per-object
// checks. Tenant owners do.
func (s Scope) bypassObjectPermissions() bool {
	return s.Role == domain.RoleOwner
}

type ListParams struct {
	Page     int
	PerPage  int
	Query    string
	Ordering string
}

// Page is one page of list rows projected onto list_display.
type Page struct {
	Items   []map[string]any `json:"items"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// Store runs admin reads and writes inside the tenant schema.
type Store struct {
	db      *gorm.DB
	auditor *Auditor
	metrics *metrics.Metrics
}

// NewStore creates a Store. auditor and m may be nil.
func NewStore(db *gorm.DB, auditor *Auditor, m *metrics.Metrics) *Store {
	return &Store{db: db, auditor: auditor, metrics: m}
}

func (s *Store) run(ctx context.Context, scope Scope, fn func(tx *gorm.DB) error) error {
	if scope.UserID != uuid.Nil {
		ctx = models.WithActor(ctx, scope.UserID)
	}
	return postgres.InSchema(ctx, s.db, scope.Schema, fn)
}

// List returns one page of records filtered by the search fields.
func (s *Store) List(ctx context.Context, scope Scope, ma *ModelAdmin, p ListParams) (*Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = ma.ListPerPage
	}
	p.PerPage = min(p.PerPage, maxPerPage)

	ordering := ma.Ordering
	if p.Ordering != "" {
		ordering = strings.Split(p.Ordering, ",")
	}

	page := &Page{Items: []map[string]any{}, Page: p.Page, PerPage: p.PerPage}
	rows := ma.NewSlice()

	err := s.run(ctx, scope, func(tx *gorm.DB) error {
		q := ma.search(tx.Model(ma.New()), p.Query)
		if err := q.Count(&page.Total).Error; err != nil {
			return err
		}

		q = ma.search(tx.Model(ma.New()), p.Query)
		for _, o := range ordering {
			f, desc := ma.orderColumn(strings.TrimSpace(o))
			if f == nil {
				return fmt.Errorf("%w: cannot order by %q", ErrInvalidInput, o)
			}
			q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: f.DBName}, Desc: desc})
		}

		return q.Offset((p.Page - 1) * p.PerPage).Limit(p.PerPage).Find(rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("admin.List %s: %w", ma.Name, models.TranslateError(err))
	}

	v := reflect.ValueOf(rows).Elem()
	for i := range v.Len() {
		page.Items = append(page.Items, ma.row(ctx, v.Index(i)))
	}
	return page, nil
}

func (ma *ModelAdmin) search(q *gorm.DB, term string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" || len(ma.SearchFields) == 0 {
		return q
	}

	pattern := "%" + likeEscaper.Replace(term) + "%"
	conds := make([]clause.Expression, 0, len(ma.SearchFields))
	for _, name := range ma.SearchFields {
		f := ma.column(name)
		conds = append(conds, clause.Expr{
			SQL:  "CAST(? AS TEXT) ILIKE ?",
			Vars: []any{clause.Column{Name: f.DBName}, pattern},
		})
	}
	return q.Where(clause.Or(conds...))
}

//nolint:gochecknoglobals // stateless
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// row projects one record onto list_display.
func (ma *ModelAdmin) row(ctx context.Context, rv reflect.Value) map[string]any {
	out := make(map[string]any, len(ma.ListDisplay)+1)
	out["id"], _ = ma.schema.PrioritizedPrimaryField.ValueOf(ctx, rv)
	for _, name := range ma.ListDisplay {
		if name == DisplayColumn {
			out[DisplayColumn] = models.Describe(rv.Interface())
			continue
		}
		f := ma.column(name)
		out[f.DBName], _ = f.ValueOf(ctx, rv)
	}
	return out
}

// Get loads one record after checking the view permission.
func (s *Store) Get(ctx context.Context, scope Scope, ma *ModelAdmin, id int64) (any, error) {
	obj := ma.New()
	err := s.run(ctx, scope, func(tx *gorm.DB) error {
		if err := s.load(tx, ma, id, obj); err != nil {
			return err
		}
		return s.authorize(ctx, tx, scope, obj, models.PermView)
	})
	if err != nil {
		return nil, fmt.Errorf("admin.Get %s: %w", ma.Name, err)
	}
	return obj, nil
}

// Create inserts a record from a request body. Read-only and unknown keys
// are ignored.
func (s *Store) Create(ctx context.Context, scope Scope, ma *ModelAdmin, data map[string]any) (any, error) {
	if err := checkGrantWrite(scope, ma); err != nil {
		return nil, fmt.Errorf("admin.Create %s: %w", ma.Name, err)
	}

	obj := ma.New()
	changed, err := ma.assign(obj, data)
	if err != nil {
		return nil, fmt.Errorf("admin.Create %s: %w", ma.Name, err)
	}

	err = s.run(ctx, scope, func(tx *gorm.DB) error {
		return tx.Create(obj).Error
	})
	if err != nil {
		return nil, fmt.Errorf("admin.Create %s: %w", ma.Name, models.TranslateError(err))
	}

	s.auditor.Record(ctx, scope, ma, objectID(ctx, ma, obj), models.Describe(obj), domain.AdminLogAddition,
		map[string]any{"fields": changed})
	return obj, nil
}

// Update applies a partial body to a record after checking the change
// permission.
func (s *Store) Update(ctx context.Context, scope Scope, ma *ModelAdmin, id int64, data map[string]any) (any, error) {
	if err := checkGrantWrite(scope, ma); err != nil {
		return nil, fmt.Errorf("admin.Update %s: %w", ma.Name, err)
	}

	obj := ma.New()
	var changed []string

	err := s.run(ctx, scope, func(tx *gorm.DB) error {
		if err := s.load(tx, ma, id, obj); err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, scope, obj, models.PermChange); err != nil {
			return err
		}

		var err error
		if changed, err = ma.assign(obj, data); err != nil {
			return err
		}
		return tx.Save(obj).Error
	})
	if err != nil {
		return nil, fmt.Errorf("admin.Update %s: %w", ma.Name, models.TranslateError(err))
	}

	s.auditor.Record(ctx, scope, ma, id, models.Describe(obj), domain.AdminLogChange,
		map[string]any{"fields": changed})
	return obj, nil
}

// Delete removes a record after checking the delete permission.
func (s *Store) Delete(ctx context.Context, scope Scope, ma *ModelAdmin, id int64) error {
	if err := checkGrantWrite(scope, ma); err != nil {
		return fmt.Errorf("admin.Delete %s: %w", ma.Name, err)
	}

	obj := ma.New()
	err := s.run(ctx, scope, func(tx *gorm.DB) error {
		if err := s.load(tx, ma, id, obj); err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, scope, obj, models.PermDelete); err != nil {
			return err
		}
		return tx.Delete(obj).Error
	})
	if err != nil {
		return fmt.Errorf("admin.Delete %s: %w", ma.Name, models.TranslateError(err))
	}

	s.auditor.Record(ctx, scope, ma, id, models.Describe(obj), domain.AdminLogDeletion, nil)
	return nil
}

// RunAction applies an action to each selected record in one transaction
// and returns how many records it touched.
func (s *Store) RunAction(ctx context.Context, scope Scope, ma *ModelAdmin, name string, ids []int64) (int, error) {
	if err := checkGrantWrite(scope, ma); err != nil {
		return 0, fmt.Errorf("admin.RunAction %s: %w", ma.Name, err)
	}
	action, err := ma.Action(name)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("admin.RunAction: %w: no records selected", ErrInvalidInput)
	}

	rows := ma.NewSlice()
	var done []reflect.Value

	err = s.run(ctx, scope, func(tx *gorm.DB) error {
		pk := ma.schema.PrioritizedPrimaryField.DBName
		err := tx.Where(clause.IN{Column: clause.Column{Name: pk}, Values: toAny(ids)}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: pk}}).
			Find(rows).Error
		if err != nil {
			return err
		}

		v := reflect.ValueOf(rows).Elem()
		for i := range v.Len() {
			obj := v.Index(i).Interface()
			if err = s.authorize(ctx, tx, scope, obj, models.PermChange); err != nil {
				return err
			}
			if err = action.Run(ctx, tx, obj); err != nil {
				return fmt.Errorf("%s: %w", action.Name, err)
			}
			done = append(done, v.Index(i))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("admin.RunAction %s: %w", ma.Name, models.TranslateError(err))
	}

	s.metrics.AdminAction(ma.Name, action.Name)
	log.Info().Str("tenant", scope.TenantID.String()).Str("model", ma.Name).Str("action", action.Name).
		Int("records", len(done)).Msg("admin action run")

	for _, rv := range done {
		obj := rv.Interface()
		s.auditor.Record(ctx, scope, ma, objectID(ctx, ma, obj), models.Describe(obj), domain.AdminLogAction,
			map[string]any{"action": action.Name})
	}
	return len(done), nil
}

func (s *Store) load(tx *gorm.DB, ma *ModelAdmin, id int64, obj any) error {
	pk := ma.schema.PrioritizedPrimaryField.DBName
	err := tx.Where(clause.Eq{Column: clause.Column{Name: pk}, Value: id}).Take(obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// checkGrantWrite keeps object permission grants owner-only. Staff pass the
// object-level gate through grants, so they must not write their own.
func checkGrantWrite(scope Scope, ma *ModelAdmin) error {
	if _, ok := ma.New().(*models.ObjectPermission); ok && !scope.bypassObjectPermissions() {
		return fmt.Errorf("%w: only tenant owners manage object permissions", domain.ErrForbidden)
	}
	return nil
}

// authorize applies the object-level permission gate for the actor.
func (s *Store) authorize(ctx context.Context, tx *gorm.DB, scope Scope, obj any, verb string) error {
	g, ok := obj.(models.Guarded)
	if !ok || scope.bypassObjectPermissions() {
		return nil
	}

	codename := models.Codename(verb, obj)
	allowed, err := models.CheckObjectPermission(ctx, tx, g, scope.UserID, codename)
	if err != nil {
		return err
	}
	if !allowed {
		s.metrics.PermissionDenied(codename)
		return fmt.Errorf("%w: %s on %s #%d", domain.ErrForbidden, codename, models.ContentType(obj), g.ObjectID())
	}
	return nil
}

// assign copies writable keys of data onto obj and returns their column
// names.
func (ma *ModelAdmin) assign(obj any, data map[string]any) ([]string, error) {
	clean := make(map[string]any, len(data))
	changed := make([]string, 0, len(data))
	for key, v := range data {
		f := ma.column(key)
		if f == nil || ma.Readonly(f.DBName) {
			continue
		}
		clean[jsonKey(f)] = v
		changed = append(changed, f.DBName)
	}
	slices.Sort(changed)

	b, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err = json.Unmarshal(b, obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return changed, nil
}

func objectID(ctx context.Context, ma *ModelAdmin, obj any) int64 {
	v, _ := ma.schema.PrioritizedPrimaryField.ValueOf(ctx, reflect.ValueOf(obj))
	id, _ := v.(int64)
	return id
}

func toAny(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
