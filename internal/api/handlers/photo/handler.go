package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/api/respond"
	"github.com/aliskhannn/retro-booth/internal/capture"
	"github.com/aliskhannn/retro-booth/internal/exporter"
	"github.com/aliskhannn/retro-booth/internal/model"
	photorepo "github.com/aliskhannn/retro-booth/internal/repository/photo"
	photosvc "github.com/aliskhannn/retro-booth/internal/service/photo"
	"github.com/aliskhannn/retro-booth/internal/storage/file"
)

// service defines the desk operations used by the handlers.
type service interface {
	Shutter(ctx context.Context, upload *capture.Imported) (model.Photo, error)
	Import(ctx context.Context, upload *capture.Imported) (model.Photo, error)
	Move(ctx context.Context, id string, pos model.Point) (model.Photo, error)
	Rotate(ctx context.Context, id string, degrees float64) (model.Photo, error)
	Resize(ctx context.Context, id string, scale float64) (model.Photo, error)
	SetCaption(ctx context.Context, id, text string) (model.Photo, error)
	RandomCaption(ctx context.Context, id string) (model.Photo, error)
	CycleFilter(ctx context.Context, id string) (model.Photo, error)
	Edit(ctx context.Context, id string, patch model.PhotoPatch) (model.Photo, error)
	BringToFront(ctx context.Context, id string) (model.Photo, error)
	Delete(ctx context.Context, id string)
	Get(ctx context.Context, id string) (model.Photo, error)
	List(ctx context.Context) []model.Photo
	Gallery(ctx context.Context) []model.Photo
	Image(ctx context.Context, id string) ([]byte, string, error)
	Preview(ctx context.Context, id, filterID string) ([]byte, error)
	AICaption(ctx context.Context, id string) (model.Photo, error)
	AIRemix(ctx context.Context, id, prompt string) (model.Photo, error)
	Export(ctx context.Context, layout model.Layout) (exporter.Artifact, string, error)
	Exports(ctx context.Context) ([]model.StoredFile, error)
	ExportFile(ctx context.Context, name string) (io.ReadCloser, error)
	DeleteExport(ctx context.Context, name string) error
}

// Handler provides HTTP handlers for the desk.
type Handler struct {
	service        service
	maxUploadBytes int64
}

// NewHandler creates a new Handler with the given service.
// Uploads larger than maxUploadBytes are rejected.
func NewHandler(s service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{service: s, maxUploadBytes: maxUploadBytes}
}

// Shutter takes a picture. A multipart "image" file, when present, is used if no camera feed answers.
func (h *Handler) Shutter(c *ginext.Context) {
	upload, err := h.upload(c, false)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	p, err := h.service.Shutter(c.Request.Context(), upload)
	if err != nil {
		fail(c, "shutter failed", err)
		return
	}

	respond.Created(c, p)
}

// Import places an uploaded file on the desk.
func (h *Handler) Import(c *ginext.Context) {
	upload, err := h.upload(c, true)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	p, err := h.service.Import(c.Request.Context(), upload)
	if err != nil {
		fail(c, "import failed", err)
		return
	}

	respond.Created(c, p)
}

// List returns the desk in draw order.
func (h *Handler) List(c *ginext.Context) {
	respond.OK(c, h.service.List(c.Request.Context()))
}

// Gallery returns every photo, newest first.
func (h *Handler) Gallery(c *ginext.Context) {
	respond.OK(c, h.service.Gallery(c.Request.Context()))
}

// Get returns the metadata of one photo.
func (h *Handler) Get(c *ginext.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "failed to get photo", err)
		return
	}
	respond.OK(c, p)
}

// Image serves the photo bytes.
func (h *Handler) Image(c *ginext.Context) {
	data, mimeType, err := h.service.Image(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "failed to get image", err)
		return
	}
	respond.Image(c, mimeType, data)
}

// Preview serves the photo rendered with the "filter" query parameter, or its own filter.
func (h *Handler) Preview(c *ginext.Context) {
	data, err := h.service.Preview(c.Request.Context(), c.Param("id"), c.Query("filter"))
	if err != nil {
		fail(c, "failed to render preview", err)
		return
	}
	respond.Image(c, "image/png", data)
}

// Edit applies a partial update from the editor.
func (h *Handler) Edit(c *ginext.Context) {
	var patch model.PhotoPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	p, err := h.service.Edit(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		fail(c, "failed to edit photo", err)
		return
	}
	respond.OK(c, p)
}

// positionRequest is the body of a drag end.
type positionRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Move sets the desk position of a photo.
func (h *Handler) Move(c *ginext.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.X == nil || req.Y == nil {
		respond.Fail(c, http.StatusBadRequest, errors.New("x and y are required"))
		return
	}

	p, err := h.service.Move(c.Request.Context(), c.Param("id"), model.Point{X: *req.X, Y: *req.Y})
	if err != nil {
		fail(c, "failed to move photo", err)
		return
	}
	respond.OK(c, p)
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

// Rotate sets the rotation of a photo, in degrees.
func (h *Handler) Rotate(c *ginext.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		respond.Fail(c, http.StatusBadRequest, errors.New("value is required"))
		return
	}

	p, err := h.service.Rotate(c.Request.Context(), c.Param("id"), *req.Value)
	if err != nil {
		fail(c, "failed to rotate photo", err)
		return
	}
	respond.OK(c, p)
}

// Resize sets the scale of a photo.
func (h *Handler) Resize(c *ginext.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		respond.Fail(c, http.StatusBadRequest, errors.New("value is required"))
		return
	}

	p, err := h.service.Resize(c.Request.Context(), c.Param("id"), *req.Value)
	if err != nil {
		fail(c, "failed to resize photo", err)
		return
	}
	respond.OK(c, p)
}

type captionRequest struct {
	Text string `json:"text"`
}

// SetCaption replaces the caption. An empty text clears it.
func (h *Handler) SetCaption(c *ginext.Context) {
	var req captionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	p, err := h.service.SetCaption(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		fail(c, "failed to set caption", err)
		return
	}
	respond.OK(c, p)
}

// RandomCaption fills the caption from the caption pool.
func (h *Handler) RandomCaption(c *ginext.Context) {
	p, err := h.service.RandomCaption(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "failed to pick caption", err)
		return
	}
	respond.OK(c, p)
}

// CycleFilter moves the photo to the next active filter.
func (h *Handler) CycleFilter(c *ginext.Context) {
	p, err := h.service.CycleFilter(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "failed to cycle filter", err)
		return
	}
	respond.OK(c, p)
}

// BringToFront raises the photo above the others.
func (h *Handler) BringToFront(c *ginext.Context) {
	p, err := h.service.BringToFront(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "failed to bring photo to front", err)
		return
	}
	respond.OK(c, p)
}

// AICaption asks the model for a caption.
func (h *Handler) AICaption(c *ginext.Context) {
	p, err := h.service.AICaption(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "ai caption failed", err)
		return
	}
	respond.OK(c, p)
}

type remixRequest struct {
	Prompt string `json:"prompt"`
}

// Remix asks the model to edit the photo.
func (h *Handler) Remix(c *ginext.Context) {
	var req remixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	p, err := h.service.AIRemix(c.Request.Context(), c.Param("id"), req.Prompt)
	if err != nil {
		fail(c, "ai remix failed", err)
		return
	}
	respond.OK(c, p)
}

// Delete removes a photo. Unknown ids succeed too.
func (h *Handler) Delete(c *ginext.Context) {
	h.service.Delete(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// Export flattens the desk into a PNG download.
func (h *Handler) Export(c *ginext.Context) {
	var layout model.Layout
	if err := c.ShouldBindJSON(&layout); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	art, stored, err := h.service.Export(c.Request.Context(), layout)
	if err != nil {
		fail(c, "export failed", err)
		return
	}

	if stored != "" {
		c.Header("X-Export-Path", stored)
	}
	respond.Attachment(c, "image/png", art.Name, int64(len(art.Data)), bytes.NewReader(art.Data))
}

// Exports lists stored exports.
func (h *Handler) Exports(c *ginext.Context) {
	files, err := h.service.Exports(c.Request.Context())
	if err != nil {
		fail(c, "failed to list exports", err)
		return
	}
	respond.OK(c, files)
}

// ExportFile downloads a stored export.
func (h *Handler) ExportFile(c *ginext.Context) {
	name := c.Param("name")

	reader, err := h.service.ExportFile(c.Request.Context(), name)
	if err != nil {
		fail(c, "failed to load export", err)
		return
	}
	defer reader.Close()

	respond.Attachment(c, "image/png", name, -1, reader)
}

// DeleteExport removes a stored export.
func (h *Handler) DeleteExport(c *ginext.Context) {
	if err := h.service.DeleteExport(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, "failed to delete export", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// upload reads the optional multipart "image" file.
func (h *Handler) upload(c *ginext.Context, required bool) (*capture.Imported, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	f, header, err := c.Request.FormFile("image")
	if err != nil {
		if !required && (errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)) {
			return nil, nil
		}
		zlog.Logger.Err(err).Msg("failed to read uploaded file")
		return nil, errors.New("failed to retrieve the file")
	}
	defer f.Close()

	zlog.Logger.Debug().Str("filename", header.Filename).Int64("size", header.Size).Msg("file uploaded")

	upload, err := capture.NewImported(f)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to read uploaded file")
		return nil, errors.New("failed to read the file")
	}
	return upload, nil
}

// status maps a service error to its HTTP status.
func status(err error) int {
	switch {
	case errors.Is(err, photorepo.ErrPhotoNotFound), errors.Is(err, file.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, photosvc.ErrInvalidPatch), errors.Is(err, capture.ErrInvalidImage),
		errors.Is(err, exporter.ErrInvalidLayout):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrNoFeed), errors.Is(err, photosvc.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, exporter.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, photosvc.ErrAIUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, photosvc.ErrAIFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *ginext.Context, msg string, err error) {
	code := status(err)
	if code >= http.StatusInternalServerError {
		zlog.Logger.Err(err).Str("photo_id", c.Param("id")).Msg(msg)
	} else {
		zlog.Logger.Warn().Err(err).Str("photo_id", c.Param("id")).Msg(msg)
	}
	respond.Fail(c, code, err)
}
