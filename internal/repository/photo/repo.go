package photo

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/retro-booth/internal/caption"
	"github.com/aliskhannn/retro-booth/internal/model"
)

var ErrPhotoNotFound = errors.New("photo not found")

// Initial placement ranges, in desk units relative to the canvas anchor.
const (
	minX, maxX           = -20.0, 20.0
	minY, maxY           = -100.0, -50.0
	maxRotationJitter    = 5.0
	minScaleJ, maxScaleJ = 0.95, 1.05
)

// notifier receives every store mutation, in call order.
type notifier interface {
	Notify(event model.Event)
}

// NewPhoto is everything needed to create a card.
type NewPhoto struct {
	Image    []byte
	MIMEType string
	Settings model.Settings
}

// Repository is the in-memory photo entity store.
// Every mutation replaces a whole record under the lock, so readers never see a partial update.
type Repository struct {
	mu       sync.RWMutex
	photos   map[string]model.Photo
	maxStack int64

	notifier  notifier
	randFloat func() float64
	randIntN  func(n int) int
	now       func() time.Time
}

// Option customizes a Repository.
type Option func(*Repository)

// WithNotifier registers the observer of store mutations.
func WithNotifier(n notifier) Option {
	return func(r *Repository) { r.notifier = n }
}

// WithRand replaces the random source used for placement jitter and caption picks.
func WithRand(rnd *rand.Rand) Option {
	return func(r *Repository) {
		r.randFloat = rnd.Float64
		r.randIntN = rnd.IntN
	}
}

// WithClock replaces the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// NewRepository creates an empty store.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		photos:    make(map[string]model.Photo),
		randFloat: rand.Float64,
		randIntN:  rand.IntN,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a new photo with provisional crop defaults and puts it on top of the stack.
func (r *Repository) Create(ctx context.Context, np NewPhoto) (model.Photo, error) {
	s := np.Settings

	r.mu.Lock()
	defer r.mu.Unlock()

	rotation := 0.0
	if s.AllowRotation {
		rotation = r.between(-maxRotationJitter, maxRotationJitter)
	}

	scale := 1.0
	if s.AllowResize {
		scale = r.between(minScaleJ, maxScaleJ)
	}

	template := s.DefaultTemplate
	if !template.Valid() {
		template = model.TemplateClassic
	}

	p := model.Photo{
		Image:      np.Image,
		MIMEType:   np.MIMEType,
		Caption:    caption.NewPool(s.CaptionPool, r.randIntN).PickRandom(),
		Position:   model.Point{X: r.between(minX, maxX), Y: r.between(minY, maxY)},
		Rotation:   rotation,
		Scale:      scale,
		CreatedAt:  r.now(),
		Filter:     s.DefaultFilter(),
		Template:   template,
		CropMode:   model.CropCover,
		FocusPoint: model.Center,
	}

	p.ID = r.newID()
	r.maxStack++
	p.StackOrder = r.maxStack
	r.photos[p.ID] = p

	r.notify(model.EventCreated, p)

	return p, nil
}

// Update merges patch into the photo with the given id.
// A missing id is not an error: the call is dropped and ok is false.
func (r *Repository) Update(ctx context.Context, id string, patch model.PhotoPatch) (model.Photo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.photos[id]
	if !ok {
		return model.Photo{}, false
	}

	p = applyPatch(p, patch)
	r.photos[id] = p

	r.notify(model.EventUpdated, p)

	return p, true
}

// Delete removes the photo. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.photos[id]; !ok {
		return false
	}
	delete(r.photos, id)

	if r.notifier != nil {
		r.notifier.Notify(model.Event{Type: model.EventDeleted, PhotoID: id})
	}

	return true
}

// BringToFront gives the photo the highest stack order on the desk.
func (r *Repository) BringToFront(ctx context.Context, id string) (model.Photo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.photos[id]
	if !ok {
		return model.Photo{}, false
	}

	r.maxStack++
	p.StackOrder = r.maxStack
	r.photos[id] = p

	r.notify(model.EventUpdated, p)

	return p, true
}

// Get returns the photo with the given id.
func (r *Repository) Get(ctx context.Context, id string) (model.Photo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.photos[id]
	if !ok {
		return model.Photo{}, ErrPhotoNotFound
	}
	return p, nil
}

// List returns all photos in draw order (lowest stack order first).
func (r *Repository) List(ctx context.Context) []model.Photo {
	photos := r.snapshot()
	sort.Slice(photos, func(i, j int) bool {
		return photos[i].StackOrder < photos[j].StackOrder
	})
	return photos
}

// Gallery returns all photos, newest first.
func (r *Repository) Gallery(ctx context.Context) []model.Photo {
	photos := r.snapshot()
	sort.SliceStable(photos, func(i, j int) bool {
		if photos[i].CreatedAt.Equal(photos[j].CreatedAt) {
			return photos[i].StackOrder > photos[j].StackOrder
		}
		return photos[i].CreatedAt.After(photos[j].CreatedAt)
	})
	return photos
}

// Len returns the number of photos on the desk.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.photos)
}

func (r *Repository) snapshot() []model.Photo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	photos := make([]model.Photo, 0, len(r.photos))
	for _, p := range r.photos {
		photos = append(photos, p)
	}
	return photos
}

// newID must be called with the lock held.
func (r *Repository) newID() string {
	for {
		id := uuid.Must(uuid.NewV7()).String()
		if _, taken := r.photos[id]; !taken {
			return id
		}
	}
}

func (r *Repository) notify(t model.EventType, p model.Photo) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(model.Event{Type: t, PhotoID: p.ID, Photo: &p})
}

func (r *Repository) between(lo, hi float64) float64 {
	return lo + r.randFloat()*(hi-lo)
}

func applyPatch(p model.Photo, patch model.PhotoPatch) model.Photo {
	if patch.Image != nil {
		p.Image = patch.Image
	}
	if patch.MIMEType != nil {
		p.MIMEType = *patch.MIMEType
	}
	if patch.Caption != nil {
		p.Caption = *patch.Caption
	}
	if patch.Position != nil {
		p.Position = *patch.Position
	}
	if patch.Rotation != nil {
		p.Rotation = *patch.Rotation
	}
	if patch.Scale != nil {
		p.Scale = model.ClampScale(*patch.Scale)
	}
	if patch.Filter != nil {
		p.Filter = *patch.Filter
	}
	if patch.Template != nil {
		p.Template = *patch.Template
	}
	if patch.FontSize != nil {
		p.FontSize = *patch.FontSize
	}
	if patch.CropMode != nil {
		p.CropMode = *patch.CropMode
	}
	if patch.FocusPoint != nil {
		p.FocusPoint = model.ClampPercent(*patch.FocusPoint)
	}
	return p
}
