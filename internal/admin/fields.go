package admin

import (
	"strings"
	"sync"

	"gorm.io/gorm/schema"

	"github.com/equisy/equisy-api/internal/models"
)

// MetaDataFieldset names the section holding the inherited audit fields.
const MetaDataFieldset = "Meta Data"

// Fieldset is a named group of editable fields.
type Fieldset struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

//nolint:gochecknoglobals // gorm schema cache shared by all admins
var schemaCache sync.Map

func parseSchema(model any) (*schema.Schema, error) {
	return schema.Parse(model, &schemaCache, schema.NamingStrategy{})
}

// commonColumns lists the CommonModel columns in declaration order.
//
//nolint:gochecknoglobals // parsed once
var commonColumns = sync.OnceValue(func() []string {
	s, err := parseSchema(&models.CommonModel{})
	if err != nil {
		panic("admin: parse CommonModel: " + err.Error())
	}
	out := make([]string, 0, len(s.DBNames))
	for _, f := range s.Fields {
		if f.DBName != "" {
			out = append(out, f.DBName)
		}
	}
	return out
})

func isCommon(column string) bool {
	for _, c := range commonColumns() {
		if c == column {
			return true
		}
	}
	return false
}

// adminTag parses `admin:"readonly,upload=dir/"`.
func adminTag(f *schema.Field) (readonly bool, upload string) {
	for opt := range strings.SplitSeq(f.Tag.Get("admin"), ",") {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "readonly":
			readonly = true
		case strings.HasPrefix(opt, "upload="):
			upload = strings.TrimPrefix(opt, "upload=")
		}
	}
	return readonly, upload
}

// editable reports whether the admin may write the field.
func editable(f *schema.Field) bool {
	if f.PrimaryKey || f.AutoCreateTime > 0 || f.AutoUpdateTime > 0 {
		return false
	}
	if !f.Creatable && !f.Updatable {
		return false
	}
	ro, _ := adminTag(f)
	return !ro
}

func columns(s *schema.Schema) []*schema.Field {
	out := make([]*schema.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.DBName != "" {
			out = append(out, f)
		}
	}
	return out
}

// readonlyFields returns every non-editable column plus the primary key.
func readonlyFields(s *schema.Schema) []string {
	var out []string
	for _, f := range columns(s) {
		if f.PrimaryKey || !editable(f) {
			out = append(out, f.DBName)
		}
	}
	return out
}

// fieldsets groups editable columns into the model's own fields followed
// by the inherited CommonModel fields.
func fieldsets(s *schema.Schema) []Fieldset {
	own := Fieldset{Name: s.Name, Fields: []string{}}
	meta := Fieldset{Name: MetaDataFieldset, Fields: []string{}}

	for _, f := range columns(s) {
		if !editable(f) {
			continue
		}
		if isCommon(f.DBName) {
			meta.Fields = append(meta.Fields, f.DBName)
			continue
		}
		own.Fields = append(own.Fields, f.DBName)
	}

	return []Fieldset{own, meta}
}

func uploadDirs(s *schema.Schema) map[string]string {
	out := make(map[string]string)
	for _, f := range columns(s) {
		if _, dir := adminTag(f); dir != "" {
			out[f.DBName] = dir
		}
	}
	return out
}

// jsonKey is the key the field uses in request and response bodies.
func jsonKey(f *schema.Field) string {
	tag := f.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
		return name
	}
	return f.Name
}
