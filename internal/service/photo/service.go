// Package photo implements the desk operations: capturing, editing, AI touch-ups and export.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/ai"
	"github.com/aliskhannn/retro-booth/internal/caption"
	"github.com/aliskhannn/retro-booth/internal/capture"
	"github.com/aliskhannn/retro-booth/internal/exporter"
	"github.com/aliskhannn/retro-booth/internal/filter"
	"github.com/aliskhannn/retro-booth/internal/metrics"
	"github.com/aliskhannn/retro-booth/internal/model"
	photorepo "github.com/aliskhannn/retro-booth/internal/repository/photo"
)

var (
	ErrInvalidPatch     = errors.New("invalid photo update")
	ErrAIUnavailable    = errors.New("ai service unavailable")
	ErrAIFailed         = errors.New("ai request failed")
	ErrExportInProgress = errors.New("an export is already running")
)

const exportsDir = "exports"

// photoRepository is the photo entity store.
type photoRepository interface {
	Create(ctx context.Context, np photorepo.NewPhoto) (model.Photo, error)
	Update(ctx context.Context, id string, patch model.PhotoPatch) (model.Photo, bool)
	Delete(ctx context.Context, id string) bool
	BringToFront(ctx context.Context, id string) (model.Photo, bool)
	Get(ctx context.Context, id string) (model.Photo, error)
	List(ctx context.Context) []model.Photo
	Gallery(ctx context.Context) []model.Photo
}

// settingsProvider hands out a snapshot of the current settings.
type settingsProvider interface {
	Get() model.Settings
}

// producer enqueues smart-crop work for a new photo.
type producer interface {
	Enqueue(ctx context.Context, task model.EnrichTask) error
}

// cropAdvisor revises the crop of a photo from its face position.
type cropAdvisor interface {
	Advise(ctx context.Context, id string, image []byte, mimeType string) bool
}

type previewRenderer interface {
	Preview(photo model.Photo, filterID string, maxSide int) (*image.NRGBA, error)
}

type deskExporter interface {
	Export(ctx context.Context, photos []model.Photo, settings model.Settings, layout model.Layout) (exporter.Artifact, error)
}

// fileStorage keeps export artifacts.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, subdir string) ([]model.StoredFile, error)
	Delete(ctx context.Context, path string) error
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Photos   photoRepository
	Settings settingsProvider
	Camera   capture.Source
	Queue    producer
	Advisor  cropAdvisor
	AI       ai.Client
	Renderer previewRenderer
	Exporter deskExporter
	Files    fileStorage

	ExportTimeout time.Duration // zero means no limit
}

// Service provides business logic for the desk.
type Service struct {
	photos   photoRepository
	settings settingsProvider
	camera   capture.Source
	queue    producer
	advisor  cropAdvisor
	ai       ai.Client
	renderer previewRenderer
	exporter deskExporter
	files    fileStorage

	exporting     atomic.Bool
	exportTimeout time.Duration
	previewSide   int
}

// NewService creates a new Service.
func NewService(d Deps, previewSide int) *Service {
	if d.AI == nil {
		d.AI = ai.Disabled{}
	}
	return &Service{
		photos:      d.Photos,
		settings:    d.Settings,
		camera:      d.Camera,
		queue:       d.Queue,
		advisor:     d.Advisor,
		ai:          d.AI,
		renderer:    d.Renderer,
		exporter:    d.Exporter,
		files:       d.Files,
		previewSide: previewSide,

		exportTimeout: d.ExportTimeout,
	}
}

// Shutter takes a picture from the live camera. When no feed is available and the request
// carried a file, the file is used instead; otherwise capture.ErrNoFeed tells the client to pick one.
func (s *Service) Shutter(ctx context.Context, upload *capture.Imported) (model.Photo, error) {
	source := "camera"
	var frame capture.Frame
	var err error

	if s.camera != nil {
		frame, err = s.camera.Frame(ctx)
	} else {
		err = capture.ErrNoFeed
	}

	if errors.Is(err, capture.ErrNoFeed) && upload != nil {
		zlog.Logger.Info().Msg("no camera feed, using uploaded file")
		source = "upload"
		frame, err = upload.Frame(ctx)
	}
	if err != nil {
		return model.Photo{}, fmt.Errorf("shutter: %w", err)
	}

	return s.create(ctx, frame, source)
}

// Import places an uploaded file on the desk.
func (s *Service) Import(ctx context.Context, upload *capture.Imported) (model.Photo, error) {
	frame, err := upload.Frame(ctx)
	if err != nil {
		return model.Photo{}, fmt.Errorf("import: %w", err)
	}
	return s.create(ctx, frame, "upload")
}

func (s *Service) create(ctx context.Context, frame capture.Frame, source string) (model.Photo, error) {
	p, err := s.photos.Create(ctx, photorepo.NewPhoto{
		Image:    frame.Data,
		MIMEType: frame.MIMEType,
		Settings: s.settings.Get(),
	})
	if err != nil {
		return model.Photo{}, fmt.Errorf("create photo: %w", err)
	}
	metrics.RecordPhotoCreated(source)

	// Smart crop is best effort; the photo stands with cover/center defaults without it.
	task := model.EnrichTask{PhotoID: p.ID, CreatedAt: p.CreatedAt}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		zlog.Logger.Err(err).Str("photo_id", p.ID).Msg("failed to enqueue smart crop")
		metrics.RecordEnrichment("failed")
	}

	return p, nil
}

// Enrich runs the smart-crop advisor for a queued photo. A photo deleted in the meantime is skipped.
func (s *Service) Enrich(ctx context.Context, task model.EnrichTask) error {
	p, err := s.photos.Get(ctx, task.PhotoID)
	if err != nil {
		if errors.Is(err, photorepo.ErrPhotoNotFound) {
			metrics.RecordEnrichment("dropped")
			return nil
		}
		return fmt.Errorf("enrich: %w", err)
	}

	if s.advisor.Advise(ctx, p.ID, p.Image, p.MIMEType) {
		metrics.RecordEnrichment("applied")
	} else {
		metrics.RecordEnrichment("failed")
	}

	return nil
}

// Move sets the desk position of a photo.
func (s *Service) Move(ctx context.Context, id string, pos model.Point) (model.Photo, error) {
	return s.update(ctx, id, model.PhotoPatch{Position: &pos})
}

// Rotate sets the rotation of a photo, in degrees.
func (s *Service) Rotate(ctx context.Context, id string, degrees float64) (model.Photo, error) {
	return s.update(ctx, id, model.PhotoPatch{Rotation: &degrees})
}

// Resize sets the scale of a photo. Values outside [0.5, 3] are clamped.
func (s *Service) Resize(ctx context.Context, id string, scale float64) (model.Photo, error) {
	return s.update(ctx, id, model.PhotoPatch{Scale: &scale})
}

// SetCaption replaces the caption.
func (s *Service) SetCaption(ctx context.Context, id, text string) (model.Photo, error) {
	return s.update(ctx, id, model.PhotoPatch{Caption: &text})
}

// RandomCaption picks a caption from the current pool. An empty pool leaves the caption untouched.
func (s *Service) RandomCaption(ctx context.Context, id string) (model.Photo, error) {
	text := caption.NewPool(s.settings.Get().CaptionPool, nil).PickRandom()
	if text == "" {
		return s.Get(ctx, id)
	}
	return s.SetCaption(ctx, id, text)
}

// CycleFilter moves the photo to the next filter of the active set.
func (s *Service) CycleFilter(ctx context.Context, id string) (model.Photo, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return model.Photo{}, err
	}

	next := filter.Next(s.settings.Get().ActiveFilters, p.Filter)
	return s.update(ctx, id, model.PhotoPatch{Filter: &next})
}

// Edit applies an editor save. Unknown filters, templates and font sizes are rejected.
func (s *Service) Edit(ctx context.Context, id string, patch model.PhotoPatch) (model.Photo, error) {
	if err := validatePatch(patch); err != nil {
		return model.Photo{}, err
	}

	// Image and crop fields are owned by the service, never by a client edit.
	patch.Image, patch.MIMEType, patch.CropMode, patch.FocusPoint = nil, nil, nil, nil

	return s.update(ctx, id, patch)
}

// BringToFront raises the photo above every other card.
func (s *Service) BringToFront(ctx context.Context, id string) (model.Photo, error) {
	p, ok := s.photos.BringToFront(ctx, id)
	if !ok {
		return model.Photo{}, photorepo.ErrPhotoNotFound
	}
	return p, nil
}

// Delete removes a photo. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) {
	if s.photos.Delete(ctx, id) {
		zlog.Logger.Info().Str("photo_id", id).Msg("photo deleted")
	}
}

// Get returns one photo.
func (s *Service) Get(ctx context.Context, id string) (model.Photo, error) {
	return s.photos.Get(ctx, id)
}

// List returns the desk in draw order.
func (s *Service) List(ctx context.Context) []model.Photo {
	return s.photos.List(ctx)
}

// Gallery returns every photo, newest first.
func (s *Service) Gallery(ctx context.Context) []model.Photo {
	return s.photos.Gallery(ctx)
}

// Image returns the encoded image of a photo.
func (s *Service) Image(ctx context.Context, id string) ([]byte, string, error) {
	p, err := s.photos.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return p.Image, p.MIMEType, nil
}

// Preview renders the photo with filterID, or its own filter when filterID is empty, as PNG.
func (s *Service) Preview(ctx context.Context, id, filterID string) ([]byte, error) {
	p, err := s.photos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if filterID == "" {
		filterID = p.Filter
	}
	if !filter.Valid(filterID) {
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidPatch, filterID)
	}

	img, err := s.renderer.Preview(p, filterID, s.previewSide)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("preview: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// AICaption asks the model for a caption in the configured style and stores it.
func (s *Service) AICaption(ctx context.Context, id string) (model.Photo, error) {
	p, err := s.photos.Get(ctx, id)
	if err != nil {
		return model.Photo{}, err
	}

	st := s.settings.Get()
	text, err := s.ai.Caption(ctx, p.Image, p.MIMEType, ai.CaptionStyle{
		Personality: st.AIPersonality,
		Length:      st.AILength,
	})
	metrics.RecordAIRequest("caption", err)
	if err != nil {
		return model.Photo{}, aiError("caption", err)
	}

	return s.SetCaption(ctx, id, text)
}

// AIRemix replaces the image of the photo with a model edit following prompt.
func (s *Service) AIRemix(ctx context.Context, id, prompt string) (model.Photo, error) {
	if prompt == "" {
		return model.Photo{}, fmt.Errorf("%w: empty prompt", ErrInvalidPatch)
	}

	p, err := s.photos.Get(ctx, id)
	if err != nil {
		return model.Photo{}, err
	}

	data, mimeType, err := s.ai.Remix(ctx, p.Image, p.MIMEType, prompt)
	metrics.RecordAIRequest("remix", err)
	if err != nil {
		return model.Photo{}, aiError("remix", err)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	return s.update(ctx, id, model.PhotoPatch{Image: data, MIMEType: &mimeType})
}

// Export flattens the desk into a PNG and keeps a copy in file storage.
// Only one export runs at a time.
func (s *Service) Export(ctx context.Context, layout model.Layout) (exporter.Artifact, string, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return exporter.Artifact{}, "", ErrExportInProgress
	}
	defer s.exporting.Store(false)

	if s.exportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.exportTimeout)
		defer cancel()
	}

	started := time.Now()
	art, stored, err := s.export(ctx, layout)
	metrics.RecordExport(err, time.Since(started))
	if err != nil {
		return exporter.Artifact{}, "", err
	}

	zlog.Logger.Info().
		Str("file", art.Name).
		Int("photos", art.Photos).
		Int("width", art.Width).
		Int("height", art.Height).
		Dur("took", time.Since(started)).
		Msg("desk exported")

	return art, stored, nil
}

func (s *Service) export(ctx context.Context, layout model.Layout) (exporter.Artifact, string, error) {
	art, err := s.exporter.Export(ctx, s.photos.List(ctx), s.settings.Get(), layout)
	if err != nil {
		return exporter.Artifact{}, "", fmt.Errorf("export: %w", err)
	}

	stored, err := s.files.Save(ctx, exportsDir, art.Name, bytes.NewReader(art.Data))
	if err != nil {
		// The artifact is still handed to the client.
		zlog.Logger.Err(err).Str("file", art.Name).Msg("failed to store export")
		return art, "", nil
	}

	return art, stored, nil
}

// Exports lists the stored desk exports, newest first.
func (s *Service) Exports(ctx context.Context) ([]model.StoredFile, error) {
	files, err := s.files.List(ctx, exportsDir)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	return files, nil
}

// ExportFile opens a stored export by file name.
func (s *Service) ExportFile(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" || name != path.Base(name) {
		return nil, fmt.Errorf("%w: bad export name %q", ErrInvalidPatch, name)
	}
	return s.files.Load(ctx, path.Join(exportsDir, name))
}

// DeleteExport removes a stored export by file name.
func (s *Service) DeleteExport(ctx context.Context, name string) error {
	if name == "" || name != path.Base(name) {
		return fmt.Errorf("%w: bad export name %q", ErrInvalidPatch, name)
	}
	if err := s.files.Delete(ctx, path.Join(exportsDir, name)); err != nil {
		return fmt.Errorf("delete export: %w", err)
	}
	zlog.Logger.Info().Str("file", name).Msg("export deleted")
	return nil
}

func (s *Service) update(ctx context.Context, id string, patch model.PhotoPatch) (model.Photo, error) {
	p, ok := s.photos.Update(ctx, id, patch)
	if !ok {
		return model.Photo{}, photorepo.ErrPhotoNotFound
	}
	return p, nil
}

func aiError(op string, err error) error {
	if errors.Is(err, ai.ErrUnavailable) || errors.Is(err, ai.ErrUnsupported) {
		return fmt.Errorf("%s: %w: %v", op, ErrAIUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrAIFailed, err)
}

var fontSizes = map[string]bool{"small": true, "medium": true, "large": true}

func validatePatch(p model.PhotoPatch) error {
	if p.Filter != nil && !filter.Valid(*p.Filter) {
		return fmt.Errorf("%w: unknown filter %q", ErrInvalidPatch, *p.Filter)
	}
	if p.Template != nil && !p.Template.Valid() {
		return fmt.Errorf("%w: unknown template %q", ErrInvalidPatch, *p.Template)
	}
	if p.FontSize != nil && *p.FontSize != "" && !fontSizes[*p.FontSize] {
		return fmt.Errorf("%w: unknown font size %q", ErrInvalidPatch, *p.FontSize)
	}
	return nil
}
