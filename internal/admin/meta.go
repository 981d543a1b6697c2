package admin

import (
	"encoding/json"
	"maps"

	"github.com/rs/zerolog/log"
)

// Metadata keys understood by ModelAdmin. Other keys are kept in Meta
// untouched.
const (
	MetaListDisplay  = "list_display"
	MetaSearchFields = "search_fields"
	MetaOrdering     = "ordering"
	MetaListPerPage  = "list_per_page"
	MetaJSONFields   = "json_fields"
	MetaActions      = "actions"
)

// JSONField carries the editor hint for a JSON column.
type JSONField struct {
	Schema string `json:"schema"`
}

type metaProvider interface {
	AdminMeta() map[string]any
}

type commonMetaProvider interface {
	CommonAdminMeta() map[string]any
}

// MergeMeta overlays model on common. Keys present in model win.
func MergeMeta(common, model map[string]any) map[string]any {
	out := make(map[string]any, len(common)+len(model))
	maps.Copy(out, common)
	maps.Copy(out, model)
	return out
}

func modelMeta(model any) map[string]any {
	var common, own map[string]any
	if p, ok := model.(commonMetaProvider); ok {
		common = p.CommonAdminMeta()
	}
	if p, ok := model.(metaProvider); ok {
		own = p.AdminMeta()
	}
	return MergeMeta(common, own)
}

// decodeMeta converts meta[key] into dst. Missing keys and values of the
// wrong shape leave dst unchanged.
func decodeMeta(model string, meta map[string]any, key string, dst any) bool {
	raw, ok := meta[key]
	if !ok {
		return false
	}

	b, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(b, dst)
	}
	if err != nil {
		log.Debug().Err(err).Str("model", model).Str("key", key).Msg("ignoring admin meta value")
		return false
	}
	return true
}
