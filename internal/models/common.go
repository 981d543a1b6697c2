// Package models holds the gorm models stored inside each tenant schema.
package models

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type actorKey struct{}

// WithActor marks ctx with the user performing writes. CommonModel hooks
// read it to fill created_by and updated_by.
func WithActor(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// CommonModel is embedded by every tenant model.
type CommonModel struct {
	ID                  int64          `gorm:"primaryKey" json:"id"`
	ExtraParams         datatypes.JSON `gorm:"type:jsonb" json:"extra_params,omitempty"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	CreatedByID         *uuid.UUID     `gorm:"type:uuid" json:"created_by_id,omitempty"`
	UpdatedByID         *uuid.UUID     `gorm:"type:uuid" json:"updated_by_id,omitempty"`
	HasObjectPermission bool           `gorm:"not null;default:false" json:"has_object_permission"`
}

func (c *CommonModel) BeforeCreate(tx *gorm.DB) error {
	if id, ok := ActorFrom(tx.Statement.Context); ok {
		c.CreatedByID = &id
		c.UpdatedByID = &id
	}
	return nil
}

func (c *CommonModel) BeforeUpdate(tx *gorm.DB) error {
	if id, ok := ActorFrom(tx.Statement.Context); ok {
		c.UpdatedByID = &id
	}
	return nil
}

// ExtraParam looks up a gjson path in ExtraParams.
func (c *CommonModel) ExtraParam(path string) gjson.Result {
	return gjson.GetBytes(c.ExtraParams, path)
}

// CommonAdminMeta is the admin metadata shared by all models. Per-model
// AdminMeta keys override it.
func (c *CommonModel) CommonAdminMeta() map[string]any {
	return map[string]any{}
}

func (c *CommonModel) ObjectID() int64 {
	return c.ID
}

func (c *CommonModel) RequiresObjectPermission() bool {
	return c.HasObjectPermission
}

// SetObjectPermission toggles per-object permission checks.
func (c *CommonModel) SetObjectPermission(enabled bool) {
	c.HasObjectPermission = enabled
}

// ContentType is the lowercased type name used in permission codenames.
func ContentType(model any) string {
	t := reflect.TypeOf(model)
	for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return strings.ToLower(t.Name())
}

// Codename builds a permission codename such as "change_imagemaster".
func Codename(verb string, model any) string {
	return verb + "_" + ContentType(model)
}

// Describe returns the record's display string.
func Describe(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", v)
}
