package admin

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/schema"

	"github.com/equisy/equisy-api/internal/models"
)

// DisplayColumn is the list_display entry rendered from the record's
// String method.
const DisplayColumn = "display"

const defaultListPerPage = 100

type verboseNamer interface {
	VerboseNamePlural() string
}

// ModelAdmin describes how the admin exposes one model. It is derived
// from the model's struct tags and its AdminMeta.
type ModelAdmin struct {
	Name              string               `json:"name"`
	ContentType       string               `json:"content_type"`
	VerboseNamePlural string               `json:"verbose_name_plural"`
	Meta              map[string]any       `json:"meta"`
	ListDisplay       []string             `json:"list_display"`
	SearchFields      []string             `json:"search_fields"`
	Ordering          []string             `json:"ordering"`
	ListPerPage       int                  `json:"list_per_page"`
	JSONFields        map[string]JSONField `json:"json_fields"`
	ReadonlyFields    []string             `json:"readonly_fields"`
	Fieldsets         []Fieldset           `json:"fieldsets"`
	UploadDirs        map[string]string    `json:"upload_dirs,omitempty"`
	Actions           []*Action            `json:"actions"`
	Guarded           bool                 `json:"has_object_permissions"`

	schema    *schema.Schema
	modelType reflect.Type
}

// NewModelAdmin wraps model, which must be a struct or a pointer to one.
// Malformed metadata is ignored; only an unparsable model is an error.
func NewModelAdmin(model any) (*ModelAdmin, error) {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("admin.NewModelAdmin: %T is not a struct", model)
	}

	proto := reflect.New(t).Interface()
	s, err := parseSchema(proto)
	if err != nil {
		return nil, fmt.Errorf("admin.NewModelAdmin: %w", err)
	}

	ma := &ModelAdmin{
		Name:              t.Name(),
		ContentType:       models.ContentType(proto),
		VerboseNamePlural: t.Name() + "s",
		ListDisplay:       []string{DisplayColumn},
		SearchFields:      []string{},
		Ordering:          []string{"-" + s.PrioritizedPrimaryField.DBName},
		ListPerPage:       defaultListPerPage,
		JSONFields:        map[string]JSONField{},
		ReadonlyFields:    readonlyFields(s),
		Fieldsets:         fieldsets(s),
		UploadDirs:        uploadDirs(s),
		Guarded:           s.LookUpField("has_object_permission") != nil,
		schema:            s,
		modelType:         t,
	}
	if n, ok := proto.(verboseNamer); ok {
		ma.VerboseNamePlural = n.VerboseNamePlural()
	}

	ma.Meta = modelMeta(proto)
	ma.applyMeta()
	ma.Actions = buildActions(ma.Name, reflect.PointerTo(t), ma.Meta, ma.Guarded)

	return ma, nil
}

func (ma *ModelAdmin) applyMeta() {
	var list []string
	if decodeMeta(ma.Name, ma.Meta, MetaListDisplay, &list) {
		ma.ListDisplay = ma.knownColumns(MetaListDisplay, list, true)
	}
	if decodeMeta(ma.Name, ma.Meta, MetaSearchFields, &list) {
		ma.SearchFields = ma.knownColumns(MetaSearchFields, list, false)
	}
	if decodeMeta(ma.Name, ma.Meta, MetaOrdering, &list) {
		var ordering []string
		for _, o := range list {
			if f, _ := ma.orderColumn(o); f != nil {
				ordering = append(ordering, o)
			}
		}
		if len(ordering) > 0 {
			ma.Ordering = ordering
		}
	}

	var perPage int
	if decodeMeta(ma.Name, ma.Meta, MetaListPerPage, &perPage) && perPage > 0 {
		ma.ListPerPage = perPage
	}

	var jsonFields map[string]JSONField
	if decodeMeta(ma.Name, ma.Meta, MetaJSONFields, &jsonFields) {
		for name, jf := range jsonFields {
			if ma.column(name) != nil {
				ma.JSONFields[name] = jf
			}
		}
	}
}

func (ma *ModelAdmin) knownColumns(key string, names []string, allowDisplay bool) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if (allowDisplay && n == DisplayColumn) || ma.column(n) != nil {
			out = append(out, n)
			continue
		}
		log.Debug().Str("model", ma.Name).Str("key", key).Str("field", n).Msg("ignoring unknown admin field")
	}
	return out
}

// column finds a database column by column or Go field name.
func (ma *ModelAdmin) column(name string) *schema.Field {
	f := ma.schema.LookUpField(name)
	if f == nil || f.DBName == "" {
		return nil
	}
	return f
}

// orderColumn parses an ordering entry such as "-created_at".
func (ma *ModelAdmin) orderColumn(o string) (f *schema.Field, desc bool) {
	if strings.HasPrefix(o, "-") {
		return ma.column(o[1:]), true
	}
	return ma.column(o), false
}

// Readonly reports whether column may not be written through the admin.
func (ma *ModelAdmin) Readonly(column string) bool {
	return slices.Contains(ma.ReadonlyFields, column)
}

// Action looks up an action by its registered name.
func (ma *ModelAdmin) Action(name string) (*Action, error) {
	for _, a := range ma.Actions {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrUnknownAction, name, ma.Name)
}

// Table is the model's table name inside the tenant schema.
func (ma *ModelAdmin) Table() string {
	return ma.schema.Table
}

// New returns a pointer to a zero record.
func (ma *ModelAdmin) New() any {
	return reflect.New(ma.modelType).Interface()
}

// NewSlice returns a pointer to an empty []*Model.
func (ma *ModelAdmin) NewSlice() any {
	return reflect.New(reflect.SliceOf(reflect.PointerTo(ma.modelType))).Interface()
}
