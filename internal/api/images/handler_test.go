package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"image-metadata-app/internal/domain/media"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	uploadFunc func(ctx context.Context, in UploadInput) (*media.ImageMetadata, error)
	listFunc   func(ctx context.Context, skip, limit int) ([]media.ImageMetadata, error)
	updateFunc func(ctx context.Context, id uint, label string, metadata *string) (*media.ImageMetadata, error)
	deleteFunc func(ctx context.Context, id uint) (*media.ImageMetadata, error)
	openFunc   func(ctx context.Context, id uint) (*media.ImageMetadata, error)
	exportFunc func(ctx context.Context) ([]byte, error)
}

var errNotImplemented = fmt.Errorf("not implemented")

func (f *fakeService) Upload(ctx context.Context, in UploadInput) (*media.ImageMetadata, error) {
	if f.uploadFunc != nil {
		return f.uploadFunc(ctx, in)
	}
	return nil, errNotImplemented
}

func (f *fakeService) List(ctx context.Context, skip, limit int) ([]media.ImageMetadata, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, skip, limit)
	}
	return nil, errNotImplemented
}

func (f *fakeService) Update(ctx context.Context, id uint, label string, metadata *string) (*media.ImageMetadata, error) {
	if f.updateFunc != nil {
		return f.updateFunc(ctx, id, label, metadata)
	}
	return nil, errNotImplemented
}

func (f *fakeService) Delete(ctx context.Context, id uint) (*media.ImageMetadata, error) {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (f *fakeService) Open(ctx context.Context, id uint) (*media.ImageMetadata, error) {
	if f.openFunc != nil {
		return f.openFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (f *fakeService) Export(ctx context.Context) ([]byte, error) {
	if f.exportFunc != nil {
		return f.exportFunc(ctx)
	}
	return nil, errNotImplemented
}

func newTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, zap.NewNop())

	r := gin.New()
	r.POST("/image_metadata/", h.UploadImage)
	r.GET("/image_metadata/", h.ListImages)
	r.PUT("/image_metadata/:id", h.UpdateImage)
	r.DELETE("/image_metadata/:id", h.DeleteImage)
	r.GET("/image_metadata/:id", h.GetImage)
	r.GET("/image_metadata_export_h5", h.ExportImages)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, file *formFile, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, file.name))
		h.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/image_metadata/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadImage(t *testing.T) {
	var got UploadInput
	var gotBody []byte
	svc := &fakeService{
		uploadFunc: func(ctx context.Context, in UploadInput) (*media.ImageMetadata, error) {
			got = in
			b, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			gotBody = b
			return &media.ImageMetadata{ID: 1, ImagePath: "app/images/x.png", Label: in.Label, Metadata: in.Metadata}, nil
		},
	}

	req := multipartRequest(t,
		&formFile{name: "cat.png", contentType: "image/png", data: pngData},
		map[string]string{"label": "cat", "image_metadata": `{"k":"v"}`})
	w := do(newTestRouter(svc), req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cat.png", got.Filename)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, "cat", got.Label)
	assert.Equal(t, `{"k":"v"}`, *got.Metadata)
	assert.Equal(t, pngData, gotBody)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "cat", body["label"])
	assert.Equal(t, `{"k":"v"}`, body["image_metadata"])
	assert.Equal(t, "app/images/x.png", body["image_path"])
}

func TestUploadImageValidation(t *testing.T) {
	png := &formFile{name: "cat.png", contentType: "image/png", data: pngData}

	tests := []struct {
		name   string
		file   *formFile
		fields map[string]string
		want   string
	}{
		{name: "missing file", file: nil, fields: map[string]string{"label": "cat", "image_metadata": ""}, want: "File is required"},
		{name: "missing label", file: png, fields: map[string]string{"image_metadata": ""}, want: "Label is required"},
		{name: "blank label", file: png, fields: map[string]string{"label": "  ", "image_metadata": ""}, want: "Label is required"},
		{name: "long label", file: png, fields: map[string]string{"label": strings.Repeat("a", 101), "image_metadata": ""}, want: "Label is too long"},
		{name: "missing metadata", file: png, fields: map[string]string{"label": "cat"}, want: "Image metadata is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &fakeService{
				uploadFunc: func(ctx context.Context, in UploadInput) (*media.ImageMetadata, error) {
					called = true
					return nil, errNotImplemented
				},
			}

			w := do(newTestRouter(svc), multipartRequest(t, tt.file, tt.fields))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["error"])
			assert.False(t, called)
		})
	}
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	svc := &fakeService{
		uploadFunc: func(ctx context.Context, in UploadInput) (*media.ImageMetadata, error) {
			return nil, ErrNotAnImage
		},
	}

	req := multipartRequest(t,
		&formFile{name: "notes.txt", contentType: "text/plain", data: []byte("hello")},
		map[string]string{"label": "cat", "image_metadata": ""})
	w := do(newTestRouter(svc), req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File must be an image", decode(t, w)["error"])
}

func TestListImages(t *testing.T) {
	var gotSkip, gotLimit int
	svc := &fakeService{
		listFunc: func(ctx context.Context, skip, limit int) ([]media.ImageMetadata, error) {
			gotSkip, gotLimit = skip, limit
			return []media.ImageMetadata{{ID: 1, Label: "cat"}, {ID: 2, Label: "dog"}}, nil
		},
	}
	r := newTestRouter(svc)

	w := do(r, httptest.NewRequest(http.MethodGet, "/image_metadata/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gotSkip)
	assert.Equal(t, 10, gotLimit)

	var out []ImageMetadataResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "dog", out[1].Label)

	w = do(r, httptest.NewRequest(http.MethodGet, "/image_metadata/?skip=20&limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, gotSkip)
	assert.Equal(t, 5, gotLimit)
}

func TestListImagesEmptyIsArray(t *testing.T) {
	svc := &fakeService{
		listFunc: func(ctx context.Context, skip, limit int) ([]media.ImageMetadata, error) {
			return nil, nil
		},
	}

	w := do(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/image_metadata/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListImagesInvalidPagination(t *testing.T) {
	r := newTestRouter(&fakeService{})

	for _, query := range []string{"skip=-1", "limit=0", "limit=101", "skip=abc"} {
		w := do(r, httptest.NewRequest(http.MethodGet, "/image_metadata/?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestListImagesStoreFailure(t *testing.T) {
	svc := &fakeService{
		listFunc: func(ctx context.Context, skip, limit int) ([]media.ImageMetadata, error) {
			return nil, errors.New("db down")
		},
	}

	w := do(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/image_metadata/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db down", decode(t, w)["details"])
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUpdateImage(t *testing.T) {
	var gotID uint
	svc := &fakeService{
		updateFunc: func(ctx context.Context, id uint, label string, metadata *string) (*media.ImageMetadata, error) {
			gotID = id
			return &media.ImageMetadata{ID: id, ImagePath: "app/images/a.png", Label: label, Metadata: metadata}, nil
		},
	}

	w := do(newTestRouter(svc), jsonRequest(http.MethodPut, "/image_metadata/3", `{"label":"dog","image_metadata":""}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, uint(3), gotID)

	var out UpdateImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Image updated successfully", out.Message)
	assert.Equal(t, "dog", out.Data.Label)
	assert.Equal(t, "", *out.Data.ImageMetadata)
	assert.Equal(t, "app/images/a.png", out.Data.ImagePath)
}

func TestUpdateImageErrors(t *testing.T) {
	svc := &fakeService{
		updateFunc: func(ctx context.Context, id uint, label string, metadata *string) (*media.ImageMetadata, error) {
			return nil, ErrImageNotFound
		},
	}
	r := newTestRouter(svc)

	w := do(r, jsonRequest(http.MethodPut, "/image_metadata/404", `{"label":"dog","image_metadata":"m"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Image not found", decode(t, w)["error"])

	w = do(r, jsonRequest(http.MethodPut, "/image_metadata/abc", `{"label":"dog","image_metadata":"m"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid image id", decode(t, w)["error"])

	w = do(r, jsonRequest(http.MethodPut, "/image_metadata/1", `{"image_metadata":"m"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, jsonRequest(http.MethodPut, "/image_metadata/1", `{"label":"dog"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteImage(t *testing.T) {
	svc := &fakeService{
		deleteFunc: func(ctx context.Context, id uint) (*media.ImageMetadata, error) {
			if id == 2 {
				return nil, ErrImageNotFound
			}
			return &media.ImageMetadata{ID: id}, nil
		},
	}
	r := newTestRouter(svc)

	w := do(r, httptest.NewRequest(http.MethodDelete, "/image_metadata/5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Image and record deleted successfully", body["message"])
	assert.Equal(t, float64(5), body["image_id"])

	w = do(r, httptest.NewRequest(http.MethodDelete, "/image_metadata/2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, pngData, 0644))

	svc := &fakeService{
		openFunc: func(ctx context.Context, id uint) (*media.ImageMetadata, error) {
			switch id {
			case 1:
				return &media.ImageMetadata{ID: 1, ImagePath: path}, nil
			case 2:
				return nil, ErrImageFileNotFound
			}
			return nil, ErrImageNotFound
		},
	}
	r := newTestRouter(svc)

	w := do(r, httptest.NewRequest(http.MethodGet, "/image_metadata/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngData, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = do(r, httptest.NewRequest(http.MethodGet, "/image_metadata/2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Image file not found", decode(t, w)["error"])

	w = do(r, httptest.NewRequest(http.MethodGet, "/image_metadata/3", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Image not found", decode(t, w)["error"])
}

func TestExportImages(t *testing.T) {
	svc := &fakeService{
		exportFunc: func(ctx context.Context) ([]byte, error) {
			return []byte("\x89HDF\r\n\x1a\n..."), nil
		},
	}

	w := do(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/image_metadata_export_h5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-hdf5", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=images_data.h5", w.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("\x89HDF\r\n\x1a\n..."), w.Body.Bytes())
}

func TestExportImagesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "no data", err: ErrNoImageData, code: http.StatusNotFound, msg: "No image data found"},
		{name: "unreadable", err: fmt.Errorf("%w: app/images/a.png: permission denied", ErrImageUnreadable), code: http.StatusBadRequest, msg: "error reading image: app/images/a.png: permission denied"},
		{name: "encoder", err: fmt.Errorf("%w: boom", ErrExportFailed), code: http.StatusInternalServerError, msg: "Error exporting to HDF5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				exportFunc: func(ctx context.Context) ([]byte, error) {
					return nil, tt.err
				},
			}

			w := do(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/image_metadata_export_h5", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["error"])
			assert.Empty(t, w.Header().Get("Content-Disposition"))
		})
	}
}
