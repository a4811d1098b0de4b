package photo

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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/retro-booth/internal/capture"
	"github.com/aliskhannn/retro-booth/internal/exporter"
	"github.com/aliskhannn/retro-booth/internal/model"
	"github.com/aliskhannn/retro-booth/internal/processor"
	photorepo "github.com/aliskhannn/retro-booth/internal/repository/photo"
	photosvc "github.com/aliskhannn/retro-booth/internal/service/photo"
	"github.com/aliskhannn/retro-booth/internal/storage/file"
)

// fakeService keeps photos in a map and returns err, when set, from every fallible call.
type fakeService struct {
	photos  map[string]model.Photo
	err     error
	upload  *capture.Imported
	deleted []string
	patch   model.PhotoPatch
	layout  model.Layout
	// exp, when set, renders the desk for real.
	exp     *exporter.Exporter
}

func newFake() *fakeService {
	return &fakeService{photos: map[string]model.Photo{
		"p1": {ID: "p1", Image: []byte("jpeg"), MIMEType: "image/jpeg", Scale: 1, Filter: "normal"},
	}}
}

func (f *fakeService) lookup(id string) (model.Photo, error) {
	if f.err != nil {
		return model.Photo{}, f.err
	}
	p, ok := f.photos[id]
	if !ok {
		return model.Photo{}, photorepo.ErrPhotoNotFound
	}
	return p, nil
}

func (f *fakeService) mutate(id string, fn func(*model.Photo)) (model.Photo, error) {
	p, err := f.lookup(id)
	if err != nil {
		return p, err
	}
	fn(&p)
	f.photos[id] = p
	return p, nil
}

func (f *fakeService) Shutter(_ context.Context, upload *capture.Imported) (model.Photo, error) {
	f.upload = upload
	if f.err != nil {
		return model.Photo{}, f.err
	}
	return model.Photo{ID: "new"}, nil
}

func (f *fakeService) Import(ctx context.Context, upload *capture.Imported) (model.Photo, error) {
	return f.Shutter(ctx, upload)
}

func (f *fakeService) Move(_ context.Context, id string, pos model.Point) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Position = pos })
}

func (f *fakeService) Rotate(_ context.Context, id string, deg float64) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Rotation = deg })
}

func (f *fakeService) Resize(_ context.Context, id string, scale float64) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Scale = model.ClampScale(scale) })
}

func (f *fakeService) SetCaption(_ context.Context, id, text string) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Caption = text })
}

func (f *fakeService) RandomCaption(_ context.Context, id string) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Caption = "random" })
}

func (f *fakeService) CycleFilter(_ context.Context, id string) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Filter = "bw" })
}

func (f *fakeService) Edit(_ context.Context, id string, patch model.PhotoPatch) (model.Photo, error) {
	f.patch = patch
	return f.lookup(id)
}

func (f *fakeService) BringToFront(_ context.Context, id string) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.StackOrder = 99 })
}

func (f *fakeService) Delete(_ context.Context, id string) {
	f.deleted = append(f.deleted, id)
	delete(f.photos, id)
}

func (f *fakeService) Get(_ context.Context, id string) (model.Photo, error) { return f.lookup(id) }

func (f *fakeService) List(context.Context) []model.Photo {
	out := make([]model.Photo, 0, len(f.photos))
	for _, p := range f.photos {
		out = append(out, p)
	}
	return out
}

func (f *fakeService) Gallery(ctx context.Context) []model.Photo { return f.List(ctx) }

func (f *fakeService) Image(_ context.Context, id string) ([]byte, string, error) {
	p, err := f.lookup(id)
	return p.Image, p.MIMEType, err
}

func (f *fakeService) Preview(_ context.Context, id, filterID string) ([]byte, error) {
	if _, err := f.lookup(id); err != nil {
		return nil, err
	}
	return []byte("png:" + filterID), nil
}

func (f *fakeService) AICaption(_ context.Context, id string) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Caption = "ai" })
}

func (f *fakeService) AIRemix(_ context.Context, id, prompt string) (model.Photo, error) {
	return f.mutate(id, func(p *model.Photo) { p.Caption = prompt })
}

func (f *fakeService) Export(_ context.Context, layout model.Layout) (exporter.Artifact, string, error) {
	f.layout = layout
	if f.err != nil {
		return exporter.Artifact{}, "", f.err
	}
	if f.exp != nil {
		photos := make([]model.Photo, 0, len(f.photos))
		for _, p := range f.photos {
			photos = append(photos, p)
		}
		art, err := f.exp.Export(context.Background(), photos, model.Settings{}, layout)
		if err != nil {
			return exporter.Artifact{}, "", err
		}
		return art, "exports/" + art.Name, nil
	}
	return exporter.Artifact{Name: "BCC_Collage_1.png", Data: []byte("png")}, "exports/BCC_Collage_1.png", nil
}

func (f *fakeService) Exports(context.Context) ([]model.StoredFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.StoredFile{{Path: "exports/BCC_Collage_1.png", Size: 3}}, nil
}

func (f *fakeService) ExportFile(_ context.Context, name string) (io.ReadCloser, error) {
	if name != "BCC_Collage_1.png" {
		return nil, file.ErrFileNotFound
	}
	return io.NopCloser(strings.NewReader("png")), nil
}

func (f *fakeService) DeleteExport(_ context.Context, name string) error {
	if strings.Contains(name, "/") {
		return photosvc.ErrInvalidPatch
	}
	return f.err
}

func newRouter(s service) *ginext.Engine {
	h := NewHandler(s, 1<<20)
	r := ginext.New()
	r.POST("/shutter", h.Shutter)
	r.POST("/photos", h.Import)
	r.GET("/photos", h.List)
	r.GET("/photos/:id", h.Get)
	r.GET("/photos/:id/image", h.Image)
	r.GET("/photos/:id/preview", h.Preview)
	r.PATCH("/photos/:id", h.Edit)
	r.PUT("/photos/:id/position", h.Move)
	r.PUT("/photos/:id/scale", h.Resize)
	r.PUT("/photos/:id/caption", h.SetCaption)
	r.POST("/photos/:id/front", h.BringToFront)
	r.POST("/photos/:id/remix", h.Remix)
	r.DELETE("/photos/:id", h.Delete)
	r.POST("/export", h.Export)
	r.GET("/exports", h.Exports)
	r.GET("/exports/:name", h.ExportFile)
	r.DELETE("/exports/:name", h.DeleteExport)
	return r
}

func do(r http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	return do(r, method, target, strings.NewReader(body), "application/json")
}

func multipartImage(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env struct {
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Result, v))
}

func TestShutter_WithoutFile(t *testing.T) {
	f := newFake()
	w := do(newRouter(f), http.MethodPost, "/shutter", nil, "")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, f.upload)
}

func TestShutter_WithFile(t *testing.T) {
	f := newFake()
	body, ct := multipartImage(t, []byte("fake-jpeg"))
	w := do(newRouter(f), http.MethodPost, "/shutter", body, ct)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotNil(t, f.upload)
}

func TestShutter_NoFeed(t *testing.T) {
	f := newFake()
	f.err = fmt.Errorf("shutter: %w", capture.ErrNoFeed)
	w := do(newRouter(f), http.MethodPost, "/shutter", nil, "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "no camera feed")
}

func TestImport_RequiresFile(t *testing.T) {
	w := do(newRouter(newFake()), http.MethodPost, "/photos", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGet(t *testing.T) {
	r := newRouter(newFake())

	w := do(r, http.MethodGet, "/photos/p1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var p model.Photo
	decodeResult(t, w, &p)
	assert.Equal(t, "p1", p.ID)
	assert.Empty(t, p.Image)

	w = do(r, http.MethodGet, "/photos/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageAndPreview(t *testing.T) {
	r := newRouter(newFake())

	w := do(r, http.MethodGet, "/photos/p1/image", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg", w.Body.String())
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")

	w = do(r, http.MethodGet, "/photos/p1/preview?filter=bw", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png:bw", w.Body.String())
}

func TestEdit(t *testing.T) {
	f := newFake()
	w := doJSON(newRouter(f), http.MethodPatch, "/photos/p1", `{"caption":"hi","scale":2,"template":"cinema"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.patch.Caption)
	assert.Equal(t, "hi", *f.patch.Caption)
	require.NotNil(t, f.patch.Template)
	assert.Equal(t, model.TemplateCinema, *f.patch.Template)
	assert.Nil(t, f.patch.Position)
}

func TestEdit_Invalid(t *testing.T) {
	f := newFake()
	f.err = fmt.Errorf("%w: unknown filter", photosvc.ErrInvalidPatch)

	w := doJSON(newRouter(f), http.MethodPatch, "/photos/p1", `{"filter":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(newRouter(newFake()), http.MethodPatch, "/photos/p1", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMoveAndResize(t *testing.T) {
	f := newFake()
	r := newRouter(f)

	w := doJSON(r, http.MethodPut, "/photos/p1/position", `{"x":-40,"y":25}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.Point{X: -40, Y: 25}, f.photos["p1"].Position)

	w = doJSON(r, http.MethodPut, "/photos/p1/position", `{"x":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/photos/p1/scale", `{"value":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, f.photos["p1"].Scale)

	w = doJSON(r, http.MethodPut, "/photos/missing/caption", `{"text":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete_Idempotent(t *testing.T) {
	f := newFake()
	r := newRouter(f)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/photos/p1", nil, "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/photos/p1", nil, "").Code)
	assert.Equal(t, []string{"p1", "p1"}, f.deleted)
}

func TestRemix_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", fmt.Errorf("remix: %w", photosvc.ErrAIUnavailable), http.StatusServiceUnavailable},
		{"failed", fmt.Errorf("remix: %w", photosvc.ErrAIFailed), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			f.err = tt.err
			w := doJSON(newRouter(f), http.MethodPost, "/photos/p1/remix", `{"prompt":"make it snow"}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestExport(t *testing.T) {
	f := newFake()
	w := doJSON(newRouter(f), http.MethodPost, "/export", `{"width":1280,"height":720}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.Layout{Width: 1280, Height: 720}, f.layout)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "BCC_Collage_1.png")
	assert.Equal(t, "exports/BCC_Collage_1.png", w.Header().Get("X-Export-Path"))
	assert.Equal(t, "png", w.Body.String())
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{exporter.ErrNothingToExport, http.StatusUnprocessableEntity},
		{photosvc.ErrExportInProgress, http.StatusConflict},
		{exporter.ErrInvalidLayout, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := newFake()
			f.err = fmt.Errorf("export: %w", tt.err)
			w := doJSON(newRouter(f), http.MethodPost, "/export", `{"width":10,"height":10}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestExport_TinyLayoutIsBadRequest(t *testing.T) {
	proc, err := processor.New()
	require.NoError(t, err)

	for _, body := range []string{`{"width":40,"height":40}`, `{"width":1,"height":1}`, `{"width":5000,"height":1}`} {
		f := newFake()
		f.exp = exporter.New(proc, 0)
		w := doJSON(newRouter(f), http.MethodPost, "/export", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Empty(t, w.Header().Get("X-Export-Path"), body)
	}
}

func TestExportFiles(t *testing.T) {
	r := newRouter(newFake())

	w := do(r, http.MethodGet, "/exports", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var files []model.StoredFile
	decodeResult(t, w, &files)
	require.Len(t, files, 1)

	w = do(r, http.MethodGet, "/exports/BCC_Collage_1.png", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	w = do(r, http.MethodGet, "/exports/other.png", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/exports/BCC_Collage_1.png", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
