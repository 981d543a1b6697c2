package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/equisy/equisy-api/internal/api/v1"
	"github.com/equisy/equisy-api/internal/domain"
)

// uploadForm returns a multipart body and its Content-Type header line.
func uploadForm(t *testing.T, contentType, field, filename, data string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content_type", contentType))
	require.NoError(t, w.WriteField("field", field))
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, "Content-Type: " + w.FormDataContentType()
}

func TestUploadMedia(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("stores_under_tenant_prefix", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		storage := &mockStorage{
			saveFunc: func(_ context.Context, key string, r io.Reader, _ string) (string, error) {
				assert.True(t, strings.HasPrefix(key, "acme/image_master/"), key)
				assert.True(t, strings.HasSuffix(key, "-logo.png"), key)
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, "PNGDATA", string(data))
				return "/media/" + key, nil
			},
		}
		v1.RegisterMediaRoutes(api, newAdminSite(t), storage, 1<<20)

		body, header := uploadForm(t, "imagemaster", "image", "logo.png", "PNGDATA")
		resp := api.PostCtx(roleCtx(tenantID, uuid.New(), domain.RoleStaff), "/admin/media", header, body)

		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var out struct {
			Key string `json:"key"`
			URL string `json:"url"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "/media/"+out.Key, out.URL)
	})

	t.Run("field_without_upload_dir", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterMediaRoutes(api, newAdminSite(t), &mockStorage{}, 1<<20)

		body, header := uploadForm(t, "imagemaster", "name", "logo.png", "PNGDATA")
		resp := api.PostCtx(roleCtx(tenantID, uuid.New(), domain.RoleStaff), "/admin/media", header, body)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("unknown_model", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterMediaRoutes(api, newAdminSite(t), &mockStorage{}, 1<<20)

		body, header := uploadForm(t, "nosuchmodel", "image", "logo.png", "PNGDATA")
		resp := api.PostCtx(roleCtx(tenantID, uuid.New(), domain.RoleStaff), "/admin/media", header, body)

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("member_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterMediaRoutes(api, newAdminSite(t), &mockStorage{}, 1<<20)

		body, header := uploadForm(t, "imagemaster", "image", "logo.png", "PNGDATA")
		resp := api.PostCtx(roleCtx(tenantID, uuid.New(), domain.RoleMember), "/admin/media", header, body)

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("storage_failure", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		storage := &mockStorage{
			saveFunc: func(_ context.Context, _ string, _ io.Reader, _ string) (string, error) {
				return "", errors.New("bucket unavailable")
			},
		}
		v1.RegisterMediaRoutes(api, newAdminSite(t), storage, 1<<20)

		body, header := uploadForm(t, "filemaster", "file", "report.pdf", "%PDF")
		resp := api.PostCtx(roleCtx(tenantID, uuid.New(), domain.RoleOwner), "/admin/media", header, body)

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}
