package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/retro-booth/internal/ai"
	"github.com/aliskhannn/retro-booth/internal/capture"
	"github.com/aliskhannn/retro-booth/internal/exporter"
	"github.com/aliskhannn/retro-booth/internal/model"
	"github.com/aliskhannn/retro-booth/internal/processor"
	photorepo "github.com/aliskhannn/retro-booth/internal/repository/photo"
	"github.com/aliskhannn/retro-booth/internal/service/settings"
	"github.com/aliskhannn/retro-booth/internal/storage/file"
)

type fakeCamera struct {
	frame capture.Frame
	err   error
}

func (c fakeCamera) Frame(context.Context) (capture.Frame, error) { return c.frame, c.err }

type fakeQueue struct {
	mu    sync.Mutex
	tasks []model.EnrichTask
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, t model.EnrichTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return q.err
}

type fakeAdvisor struct {
	ids []string
}

func (a *fakeAdvisor) Advise(_ context.Context, id string, _ []byte, _ string) bool {
	a.ids = append(a.ids, id)
	return true
}

type fakeAI struct {
	caption string
	remix   []byte
	err     error
}

func (f fakeAI) LocateFace(context.Context, []byte, string) (model.FaceLocation, error) {
	return model.FaceLocation{}, f.err
}

func (f fakeAI) Caption(context.Context, []byte, string, ai.CaptionStyle) (string, error) {
	return f.caption, f.err
}

func (f fakeAI) Remix(context.Context, []byte, string, string) ([]byte, string, error) {
	return f.remix, "image/png", f.err
}

type memFiles struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (m *memFiles) Save(_ context.Context, subdir, filename string, src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	path := subdir + "/" + filename
	m.saved[path] = data
	return path, nil
}

func (m *memFiles) Load(_ context.Context, p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.saved[p]
	if !ok {
		return nil, file.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memFiles) List(_ context.Context, subdir string) ([]model.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StoredFile
	for p, data := range m.saved {
		if strings.HasPrefix(p, subdir+"/") {
			out = append(out, model.StoredFile{Path: p, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memFiles) Delete(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, p)
	return nil
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 6), B: 40, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, jpeg.Encode(buf, img, nil))
	return buf.Bytes()
}

type fixture struct {
	svc      *Service
	repo     *photorepo.Repository
	settings *settings.Service
	queue    *fakeQueue
	advisor  *fakeAdvisor
	files    *memFiles
}

func newFixture(t *testing.T, camera capture.Source, client ai.Client) fixture {
	t.Helper()
	proc, err := processor.New()
	require.NoError(t, err)

	f := fixture{
		repo:     photorepo.NewRepository(),
		settings: settings.NewService(settings.Defaults()),
		queue:    &fakeQueue{},
		advisor:  &fakeAdvisor{},
		files:    &memFiles{},
	}
	f.svc = NewService(Deps{
		Photos:   f.repo,
		Settings: f.settings,
		Camera:   camera,
		Queue:    f.queue,
		Advisor:  f.advisor,
		AI:       client,
		Renderer: proc,
		Exporter: exporter.New(proc, 320),
		Files:    f.files,
	}, 256)
	return f
}

func upload(t *testing.T, data []byte) *capture.Imported {
	t.Helper()
	u, err := capture.NewImported(bytes.NewReader(data))
	require.NoError(t, err)
	return u
}

func TestShutter_LiveCamera(t *testing.T) {
	cam := fakeCamera{frame: capture.Frame{Data: jpegBytes(t), MIMEType: "image/jpeg"}}
	f := newFixture(t, cam, nil)

	p, err := f.svc.Shutter(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "normal", p.Filter)
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, p.ID, f.queue.tasks[0].PhotoID)
}

func TestShutter_FallsBackToUpload(t *testing.T) {
	f := newFixture(t, fakeCamera{err: capture.ErrNoFeed}, nil)

	p, err := f.svc.Shutter(context.Background(), upload(t, jpegBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", p.MIMEType)
}

func TestShutter_NoFeedNoUpload(t *testing.T) {
	f := newFixture(t, fakeCamera{err: capture.ErrNoFeed}, nil)

	_, err := f.svc.Shutter(context.Background(), nil)
	assert.ErrorIs(t, err, capture.ErrNoFeed)
	assert.Empty(t, f.svc.List(context.Background()))
}

func TestImport_InvalidImage(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.svc.Import(context.Background(), upload(t, []byte("garbage")))
	assert.ErrorIs(t, err, capture.ErrInvalidImage)
	assert.Empty(t, f.queue.tasks)
}

func TestCreate_EnqueueFailureKeepsPhoto(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.queue.err = errors.New("broker down")

	p, err := f.svc.Import(context.Background(), upload(t, jpegBytes(t)))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), p.ID)
	assert.NoError(t, err)
}

func TestSettingsSnapshotAtCreation(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.settings.SetDefaultTemplate(model.TemplateCinema)
	require.NoError(t, err)
	a, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)

	_, err = f.settings.SetDefaultTemplate(model.TemplateStamp)
	require.NoError(t, err)
	b, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)

	got, _ := f.svc.Get(ctx, a.ID)
	assert.Equal(t, model.TemplateCinema, got.Template)
	assert.Equal(t, model.TemplateStamp, b.Template)
}

func TestEnrich(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	p, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)
	require.NoError(t, f.svc.Enrich(ctx, f.queue.tasks[0]))
	assert.Equal(t, []string{p.ID}, f.advisor.ids)

	f.svc.Delete(ctx, p.ID)
	require.NoError(t, f.svc.Enrich(ctx, f.queue.tasks[0]))
	assert.Len(t, f.advisor.ids, 1)
}

func TestEditOperations(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	p, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)

	got, err := f.svc.Move(ctx, p.ID, model.Point{X: 12, Y: -30})
	require.NoError(t, err)
	assert.Equal(t, model.Point{X: 12, Y: -30}, got.Position)

	got, err = f.svc.Resize(ctx, p.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Scale)

	got, err = f.svc.Rotate(ctx, p.ID, -12)
	require.NoError(t, err)
	assert.Equal(t, -12.0, got.Rotation)

	got, err = f.svc.CycleFilter(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "bw", got.Filter)

	got, err = f.svc.RandomCaption(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Caption)

	tmpl := model.TemplateFilm
	size := "large"
	got, err = f.svc.Edit(ctx, p.ID, model.PhotoPatch{Template: &tmpl, FontSize: &size})
	require.NoError(t, err)
	assert.Equal(t, model.TemplateFilm, got.Template)
	assert.Equal(t, "large", got.FontSize)
	assert.Equal(t, -12.0, got.Rotation)
}

func TestEdit_RejectsUnknownValues(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	p, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)

	bad := "glitter"
	_, err = f.svc.Edit(ctx, p.ID, model.PhotoPatch{Filter: &bad})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	tmpl := model.Template("poster")
	_, err = f.svc.Edit(ctx, p.ID, model.PhotoPatch{Template: &tmpl})
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestMissingPhoto(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Move(ctx, "ghost", model.Point{})
	assert.ErrorIs(t, err, photorepo.ErrPhotoNotFound)
	_, err = f.svc.BringToFront(ctx, "ghost")
	assert.ErrorIs(t, err, photorepo.ErrPhotoNotFound)
	_, _, err = f.svc.Image(ctx, "ghost")
	assert.ErrorIs(t, err, photorepo.ErrPhotoNotFound)
	f.svc.Delete(ctx, "ghost")
}

func TestAICaption(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil, fakeAI{caption: "旧时光"})
	p, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)
	got, err := f.svc.AICaption(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "旧时光", got.Caption)

	f = newFixture(t, nil, nil)
	p, err = f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)
	_, err = f.svc.AICaption(ctx, p.ID)
	assert.ErrorIs(t, err, ErrAIUnavailable)

	f = newFixture(t, nil, fakeAI{err: errors.New("quota")})
	p, err = f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)
	_, err = f.svc.AICaption(ctx, p.ID)
	assert.ErrorIs(t, err, ErrAIFailed)
}

func TestAIRemix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, fakeAI{remix: []byte("png")})
	p, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)

	_, err = f.svc.AIRemix(ctx, p.ID, "")
	assert.ErrorIs(t, err, ErrInvalidPatch)

	got, err := f.svc.AIRemix(ctx, p.ID, "make it snow")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MIMEType)

	data, mime, err := f.svc.Image(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "image/png", mime)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	p, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)

	data, err := f.svc.Preview(ctx, p.ID, "kodak")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])

	_, err = f.svc.Preview(ctx, p.ID, "glitter")
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestExport(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	layout := model.Layout{Width: 800, Height: 600}

	_, _, err := f.svc.Export(ctx, layout)
	assert.ErrorIs(t, err, exporter.ErrNothingToExport)

	p, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)
	before, _ := f.svc.Get(ctx, p.ID)

	art, path, err := f.svc.Export(ctx, layout)
	require.NoError(t, err)
	assert.Equal(t, 320, art.Width)
	assert.Equal(t, 240, art.Height)
	assert.Equal(t, "exports/"+art.Name, path)
	assert.Equal(t, art.Data, f.files.saved[path])

	after, _ := f.svc.Get(ctx, p.ID)
	assert.Equal(t, before, after)

	files, err := f.svc.Exports(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, path, files[0].Path)

	r, err := f.svc.ExportFile(ctx, art.Name)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, art.Data, data)

	_, err = f.svc.ExportFile(ctx, "../secrets")
	assert.ErrorIs(t, err, ErrInvalidPatch)
	_, err = f.svc.ExportFile(ctx, "missing.png")
	assert.ErrorIs(t, err, file.ErrFileNotFound)

	require.NoError(t, f.svc.DeleteExport(ctx, art.Name))
	files, err = f.svc.Exports(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.ErrorIs(t, f.svc.DeleteExport(ctx, "a/b.png"), ErrInvalidPatch)
}

func TestExport_TinyLayout(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Import(ctx, upload(t, jpegBytes(t)))
	require.NoError(t, err)

	_, path, err := f.svc.Export(ctx, model.Layout{Width: 40, Height: 40})
	assert.ErrorIs(t, err, exporter.ErrInvalidLayout)
	assert.Empty(t, path)

	files, err := f.svc.Exports(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

type blockingExporter struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingExporter) Export(context.Context, []model.Photo, model.Settings, model.Layout) (exporter.Artifact, error) {
	close(b.started)
	<-b.release
	return exporter.Artifact{Name: "x.png"}, nil
}

func TestExport_SingleFlight(t *testing.T) {
	f := newFixture(t, nil, nil)
	be := blockingExporter{started: make(chan struct{}), release: make(chan struct{})}
	f.svc.exporter = be
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, _, err := f.svc.Export(ctx, model.Layout{Width: 10, Height: 10})
		done <- err
	}()

	<-be.started
	_, _, err := f.svc.Export(ctx, model.Layout{Width: 10, Height: 10})
	assert.ErrorIs(t, err, ErrExportInProgress)

	close(be.release)
	require.NoError(t, <-done)
}
