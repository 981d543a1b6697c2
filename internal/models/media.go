package models

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ImageMaster is a tenant's image registry.
type ImageMaster struct {
	CommonModel
	Name  string `gorm:"size:300;not null" json:"name"`
	Image string `gorm:"size:500;not null" json:"image" admin:"upload=image_master/"`
}

func (ImageMaster) TableName() string { return "image_masters" }

func (m *ImageMaster) String() string { return m.Name }

func (m *ImageMaster) AdminMeta() map[string]any {
	return map[string]any{
		"list_display": []string{"name", "image", "display", "created_at", "updated_at", "created_by_id", "updated_by_id", "has_object_permission"},
		"actions":      []any{"test_action"},
	}
}

// TestAction logs the selected image.
func (m *ImageMaster) TestAction(_ context.Context, _ *gorm.DB) error {
	log.Info().Int64("id", m.ID).Str("name", m.Name).Str("image", m.Image).Msg("image master test action")
	return nil
}

// FileMaster is a tenant's file registry.
type FileMaster struct {
	CommonModel
	Name string `gorm:"size:300;not null" json:"name"`
	File string `gorm:"size:500;not null" json:"file" admin:"upload=file_master/"`
}

func (FileMaster) TableName() string { return "file_masters" }

func (m *FileMaster) String() string { return m.Name }

func (m *FileMaster) AdminMeta() map[string]any {
	return map[string]any{
		"list_display":  []string{"name", "file", "display", "created_at", "updated_at", "created_by_id", "updated_by_id"},
		"search_fields": []string{"name"},
	}
}
