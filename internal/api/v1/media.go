package v1

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/media"
)

type UploadMediaInput struct {
	RawBody multipart.Form
}

type UploadMediaOutput struct {
	Body struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
}

// RegisterMediaRoutes mounts the admin upload endpoint. The form carries
// "file", "content_type" and "field"; the field's upload directory decides
// where the file lands inside the tenant's prefix.
func RegisterMediaRoutes(api huma.API, site *admin.Site, storage MediaStorage, maxBytes int64) {
	huma.Register(api, huma.Operation{
		OperationID:   "admin-upload",
		Method:        http.MethodPost,
		Path:          "/admin/media",
		Summary:       "Upload a file for an image or file field",
		Tags:          []string{"Admin"},
		MaxBodyBytes:  maxBytes,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *UploadMediaInput) (*UploadMediaOutput, error) {
		scope, err := adminScope(ctx)
		if err != nil {
			return nil, err
		}

		files := input.RawBody.File["file"]
		if len(files) != 1 {
			return nil, huma.Error422UnprocessableEntity("exactly one file is required")
		}

		ma, err := site.Lookup(formValue(input.RawBody, "content_type"))
		if err != nil {
			return nil, toHTTPError(err, "")
		}
		field := formValue(input.RawBody, "field")
		dir, ok := ma.UploadDirs[field]
		if !ok {
			return nil, huma.Error422UnprocessableEntity("field " + field + " does not accept uploads")
		}

		fh := files[0]
		key, err := media.Key(scope.Schema, dir, fh.Filename)
		if err != nil {
			return nil, toHTTPError(err, "")
		}

		f, err := fh.Open()
		if err != nil {
			return nil, huma.Error400BadRequest("cannot read upload", err)
		}
		defer f.Close()

		url, err := storage.Save(ctx, key, f, fh.Header.Get("Content-Type"))
		if err != nil {
			return nil, toHTTPError(err, "failed to store upload")
		}

		log.Info().
			Str("schema", scope.Schema).
			Str("key", key).
			Int64("size", fh.Size).
			Msg("media: stored upload")

		out := &UploadMediaOutput{}
		out.Body.Key = key
		out.Body.URL = url
		return out, nil
	})
}

func formValue(form multipart.Form, name string) string {
	if v := form.Value[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}
