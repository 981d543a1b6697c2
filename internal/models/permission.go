package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/equisy/equisy-api/internal/domain"
)

// Permission verbs.
const (
	PermView   = "view"
	PermAdd    = "add"
	PermChange = "change"
	PermDelete = "delete"
)

// ObjectPermission grants one user one permission on one record.
type ObjectPermission struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:object_permissions_grant" json:"user_id"`
	Permission  string    `gorm:"size:100;not null;uniqueIndex:object_permissions_grant" json:"permission"`
	ObjectID    int64     `gorm:"not null;uniqueIndex:object_permissions_grant" json:"object_id"`
	ContentType string    `gorm:"size:100;not null;uniqueIndex:object_permissions_grant" json:"content_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ObjectPermission) TableName() string { return "object_permissions" }

func (p *ObjectPermission) String() string {
	return fmt.Sprintf("%s on %s #%d", p.Permission, p.ContentType, p.ObjectID)
}

func (p *ObjectPermission) AdminMeta() map[string]any {
	return map[string]any{
		"list_display":  []string{"user_id", "permission", "content_type", "object_id", "created_at"},
		"search_fields": []string{"permission", "content_type"},
	}
}

// Guarded is a record that may opt in to per-object permissions.
type Guarded interface {
	ObjectID() int64
	RequiresObjectPermission() bool
}

// CheckObjectPermission reports whether userID holds codename on obj.
// Records with per-object permissions disabled always pass without a query.
func CheckObjectPermission(ctx context.Context, db *gorm.DB, obj Guarded, userID uuid.UUID, codename string) (bool, error) {
	if !obj.RequiresObjectPermission() {
		return true, nil
	}

	var n int64
	err := db.WithContext(ctx).Model(&ObjectPermission{}).
		Where("user_id = ? AND permission = ? AND object_id = ? AND content_type = ?",
			userID, codename, obj.ObjectID(), ContentType(obj)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("models.CheckObjectPermission: %w", err)
	}
	return n > 0, nil
}

// Grant stores a permission for userID on obj. A duplicate grant returns
// domain.ErrConflict.
func Grant(ctx context.Context, db *gorm.DB, obj Guarded, userID uuid.UUID, codename string) (*ObjectPermission, error) {
	p := &ObjectPermission{
		UserID:      userID,
		Permission:  codename,
		ObjectID:    obj.ObjectID(),
		ContentType: ContentType(obj),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("models.Grant: %w", translateErr(err))
	}
	return p, nil
}

// Revoke removes a grant. Missing grants are not an error.
func Revoke(ctx context.Context, db *gorm.DB, obj Guarded, userID uuid.UUID, codename string) error {
	err := db.WithContext(ctx).
		Where("user_id = ? AND permission = ? AND object_id = ? AND content_type = ?",
			userID, codename, obj.ObjectID(), ContentType(obj)).
		Delete(&ObjectPermission{}).Error
	if err != nil {
		return fmt.Errorf("models.Revoke: %w", err)
	}
	return nil
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// TranslateError maps gorm and Postgres errors to domain sentinels.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	return translateErr(err)
}
