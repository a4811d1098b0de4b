// Package exporter flattens the desk into one high-resolution PNG.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/model"
	"github.com/aliskhannn/retro-booth/internal/processor"
)

var (
	ErrNothingToExport = errors.New("no photos to save")
	ErrInvalidLayout   = errors.New("invalid desk layout")
)

// DefaultTarget is the long edge of the exported image, in pixels.
const DefaultTarget = 3840

// MinLayoutSide is the smallest accepted long edge of the live desk, in pixels.
// Smaller desks would blow cards up by more than the target allows.
const MinLayoutSide = 320

// Desk look.
var (
	deskColor = color.NRGBA{R: 0xe8, G: 0xe6, B: 0xe1, A: 0xff}
	dotColor  = color.NRGBA{R: 0xb0, G: 0xa8, B: 0x9e, A: 0xff}
)

const (
	dotSpacing = 30.0
	dotRadius  = 1.0
)

// cardRenderer draws one upright card.
type cardRenderer interface {
	Card(photo model.Photo, opts processor.CardOptions) (*image.NRGBA, error)
}

// Artifact is an encoded export.
type Artifact struct {
	Name   string
	Data   []byte
	Width  int
	Height int
	Photos int
}

// Exporter composes the desk.
type Exporter struct {
	renderer cardRenderer
	target   int
	now      func() time.Time
}

// New creates an Exporter. A non-positive target falls back to DefaultTarget.
func New(renderer cardRenderer, target int) *Exporter {
	if target <= 0 {
		target = DefaultTarget
	}
	return &Exporter{renderer: renderer, target: target, now: time.Now}
}

// FileName returns the artifact name for an export started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("BCC_Collage_%d.png", t.UnixMilli())
}

// Export draws the photos in the given order over the desk background.
// The canvas keeps the aspect ratio of layout and its long edge is the exporter's target.
func (e *Exporter) Export(ctx context.Context, photos []model.Photo, settings model.Settings, layout model.Layout) (Artifact, error) {
	if len(photos) == 0 {
		return Artifact{}, ErrNothingToExport
	}
	if layout.Width <= 0 || layout.Height <= 0 {
		return Artifact{}, ErrInvalidLayout
	}
	if long := max(layout.Width, layout.Height); long < MinLayoutSide {
		return Artifact{}, fmt.Errorf("%w: long side %d px is below %d px", ErrInvalidLayout, long, MinLayoutSide)
	}

	started := e.now()
	k := float64(e.target) / float64(max(layout.Width, layout.Height))
	width := int(math.Round(float64(layout.Width) * k))
	height := int(math.Round(float64(layout.Height) * k))
	if width < 1 || height < 1 {
		return Artifact{}, fmt.Errorf("%w: %dx%d", ErrInvalidLayout, layout.Width, layout.Height)
	}

	dc := gg.NewContext(width, height)
	drawDesk(dc, k)

	drawn := 0
	for _, p := range photos {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}

		card, err := e.renderer.Card(p, processor.CardOptions{
			PixelScale:    k,
			ShowDateStamp: settings.ShowDateStamp,
			FontSize:      settings.FontSize,
		})
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("photo_id", p.ID).Msg("skipping photo in export")
			continue
		}

		cx, cy := cardCenter(p, layout)
		if p.Rotation != 0 {
			card = imaging.Rotate(card, -p.Rotation, color.Transparent)
		}
		dc.DrawImageAnchored(card, int(math.Round(cx*k)), int(math.Round(cy*k)), 0.5, 0.5)
		drawn++
	}

	buf := new(bytes.Buffer)
	if err := dc.EncodePNG(buf); err != nil {
		return Artifact{}, fmt.Errorf("failed to encode export: %w", err)
	}

	return Artifact{
		Name:   FileName(started),
		Data:   buf.Bytes(),
		Width:  width,
		Height: height,
		Photos: drawn,
	}, nil
}

// cardCenter returns the centre of a card in desk units.
// Cards hang from the canvas centre minus the anchor, offset by their position; rotation and scale pivot on the centre.
func cardCenter(p model.Photo, layout model.Layout) (float64, float64) {
	w, h := processor.CardSize(p.Template)
	left := float64(layout.Width)/2 - processor.CardAnchor + p.Position.X
	top := float64(layout.Height)/2 - processor.CardAnchor + p.Position.Y
	return left + w/2, top + h/2
}

func drawDesk(dc *gg.Context, k float64) {
	dc.SetColor(deskColor)
	dc.Clear()

	dc.SetColor(dotColor)
	step := dotSpacing * k
	for y := step / 2; y < float64(dc.Height()); y += step {
		for x := step / 2; x < float64(dc.Width()); x += step {
			dc.DrawCircle(x, y, dotRadius*k)
		}
	}
	dc.Fill()
}
