package admin

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// BypassPermissions is registered on every model with an object
// permission flag.
const BypassPermissions = "bypass_permissions"

// ActionFunc runs against one selected record inside the tenant
// transaction.
type ActionFunc func(ctx context.Context, tx *gorm.DB, obj any) error

// Action is a bulk operation applied to each selected record.
type Action struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Method string `json:"method"`
	fn     ActionFunc
}

func (a *Action) Run(ctx context.Context, tx *gorm.DB, obj any) error {
	return a.fn(ctx, tx, obj)
}

type permissionToggler interface {
	SetObjectPermission(enabled bool)
}

func bypassAction() *Action {
	return &Action{
		Name:   BypassPermissions,
		Label:  actionLabel(BypassPermissions),
		Method: BypassPermissions,
		fn: func(_ context.Context, tx *gorm.DB, obj any) error {
			t, ok := obj.(permissionToggler)
			if !ok {
				return fmt.Errorf("%w: %T has no object permission flag", ErrInvalidInput, obj)
			}
			t.SetObjectPermission(false)
			return tx.Save(obj).Error
		},
	}
}

//nolint:gochecknoglobals // reflected once
var (
	contextType = reflect.TypeFor[context.Context]()
	gormDBType  = reflect.TypeFor[*gorm.DB]()
	errorType   = reflect.TypeFor[error]()
)

// resolveAction binds a snake_case action name to a method of the form
// func(context.Context, *gorm.DB) error on ptrType.
func resolveAction(modelName string, ptrType reflect.Type, name string) (*Action, error) {
	method := goName(name)
	m, ok := ptrType.MethodByName(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no method %s", ErrUnknownAction, modelName, method)
	}

	// m.Type includes the receiver.
	t := m.Type
	if t.NumIn() != 3 || t.In(1) != contextType || t.In(2) != gormDBType ||
		t.NumOut() != 1 || t.Out(0) != errorType {
		return nil, fmt.Errorf("%w: %s.%s is not func(context.Context, *gorm.DB) error", ErrUnknownAction, modelName, method)
	}

	fn := m.Func
	return &Action{
		Name:   fmt.Sprintf("admin_action_%s_%s", modelName, name),
		Label:  actionLabel(name),
		Method: method,
		fn: func(ctx context.Context, tx *gorm.DB, obj any) error {
			out := fn.Call([]reflect.Value{reflect.ValueOf(obj), reflect.ValueOf(&ctx).Elem(), reflect.ValueOf(tx)})
			if err, _ := out[0].Interface().(error); err != nil {
				return err
			}
			return nil
		},
	}, nil
}

// buildActions returns the built-in actions followed by the model's named
// actions. Names that cannot be bound are logged and skipped.
func buildActions(modelName string, ptrType reflect.Type, meta map[string]any, guarded bool) []*Action {
	var actions []*Action
	if guarded {
		actions = append(actions, bypassAction())
	}

	raw, ok := meta[MetaActions]
	if !ok {
		return actions
	}

	var names []any
	switch v := raw.(type) {
	case []any:
		names = v
	case []string:
		for _, s := range v {
			names = append(names, s)
		}
	default:
		log.Warn().Str("model", modelName).Msgf("admin actions must be a list, got %T", raw)
		return actions
	}

	seen := make(map[string]bool, len(actions)+len(names))
	for _, a := range actions {
		seen[a.Name] = true
	}

	for _, n := range names {
		name, ok := n.(string)
		if !ok || name == "" {
			continue
		}

		a, err := resolveAction(modelName, ptrType, name)
		if err != nil {
			log.Warn().Err(err).Str("model", modelName).Str("action", name).Msg("skipping admin action")
			continue
		}
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		actions = append(actions, a)
		log.Debug().Str("model", modelName).Str("action", a.Name).Msg("admin action registered")
	}

	return actions
}

// goName turns "test_action" into "TestAction".
func goName(name string) string {
	var b strings.Builder
	for part := range strings.SplitSeq(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func actionLabel(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
