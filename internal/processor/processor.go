// Package processor renders photo cards: the frame, the filtered image window, the caption and the date stamp.
package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/aliskhannn/retro-booth/internal/filter"
	"github.com/aliskhannn/retro-booth/internal/model"
)

// ErrCardTooLarge rejects a render whose pixel size exceeds MaxCardSide.
var ErrCardTooLarge = errors.New("card too large to render")

// MaxCardSide bounds either edge of a rendered card, in pixels.
const MaxCardSide = 8192

// CardAnchor is the offset, in desk units, from the canvas centre to a card's top-left corner at position {0,0}.
const CardAnchor = 88.0

// Date stamp look.
var (
	stampColor  = color.NRGBA{R: 0xff, G: 0x7e, B: 0x33, A: 0xcc}
	paperColor  = color.NRGBA{R: 0xfd, G: 0xfd, B: 0xfd, A: 0xff}
	windowColor = color.NRGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xff}
	inkColor    = color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
)

// DateStamp formats a capture time the way the printed stamp shows it.
func DateStamp(t time.Time) string {
	return t.Format("'06 01 02")
}

// captionSize maps the font size setting to desk units.
func captionSize(size string) float64 {
	switch size {
	case "small":
		return 10
	case "large":
		return 18
	default:
		return 14
	}
}

// Processor renders cards. It is safe for concurrent use.
type Processor struct {
	regular *truetype.Font
	bold    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	size float64
}

// New creates a Processor with the embedded Go fonts.
func New() (*Processor, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}

	return &Processor{
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// face returns a cached font face. gg measures and draws with it, so one face per size is enough.
func (p *Processor) face(bold bool, size float64) font.Face {
	size = math.Round(size*4) / 4
	key := faceKey{bold: bold, size: size}

	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.faces[key]; ok {
		return f
	}

	ttf := p.regular
	if bold {
		ttf = p.bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: size, Hinting: font.HintingFull})
	p.faces[key] = f
	return f
}

// CardOptions tune a single render.
type CardOptions struct {
	PixelScale    float64 // output pixels per desk unit, before the photo's own scale
	ShowDateStamp bool
	FontSize      string // settings default, overridden by the photo's own font size
}

// Card renders the photo as an upright card, ignoring its position and rotation.
// The card is PixelScale*photo.Scale times its desk size.
func (p *Processor) Card(photo model.Photo, opts CardOptions) (*image.NRGBA, error) {
	src, err := decode(photo.Image)
	if err != nil {
		return nil, err
	}

	k := opts.PixelScale
	if k <= 0 {
		k = 1
	}
	k *= model.ClampScale(photo.Scale)

	fontSize := photo.FontSize
	if fontSize == "" {
		fontSize = opts.FontSize
	}

	l := layoutFor(photo.Template)
	cw, ch := px(l.width*k), px(l.height*k)
	if cw > MaxCardSide || ch > MaxCardSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrCardTooLarge, cw, ch)
	}

	dc := gg.NewContext(cw, ch)
	dc.Scale(k, k)

	l.frame(dc, l)

	win := l.window
	dc.SetColor(l.windowBg)
	dc.DrawRectangle(win.x, win.y, win.w, win.h)
	dc.Fill()

	filtered := filter.Apply(fitWindow(src, photo, px(win.w*k), px(win.h*k)), photo.Filter, k)
	dc.Push()
	dc.Identity()
	dc.DrawImage(filtered, px(win.x*k), px(win.y*k))
	dc.Pop()

	if opts.ShowDateStamp {
		dc.SetFontFace(p.face(true, 10*k))
		dc.SetColor(stampColor)
		dc.Push()
		dc.Identity()
		dc.DrawStringAnchored(DateStamp(photo.CreatedAt), (win.x+win.w-8)*k, (win.y+win.h-8)*k, 1, 0)
		dc.Pop()
	}

	if photo.Caption != "" && l.caption != nil {
		l.caption(p, dc, l, photo.Caption, fontSize, k)
	}

	return imaging.Clone(dc.Image()), nil
}

// CardSize returns the desk size of a card for the given template.
func CardSize(t model.Template) (w, h float64) {
	l := layoutFor(t)
	return l.width, l.height
}

// Preview renders the photo image alone, filtered, rotated and scaled the way the editor shows it.
// maxSide bounds the longer edge before scaling.
func (p *Processor) Preview(photo model.Photo, filterID string, maxSide int) (*image.NRGBA, error) {
	src, err := decode(photo.Image)
	if err != nil {
		return nil, err
	}

	if maxSide > 0 {
		b := src.Bounds()
		if b.Dx() > maxSide || b.Dy() > maxSide {
			src = imaging.Fit(src, maxSide, maxSide, imaging.Lanczos)
		}
	}

	out := filter.Apply(src, filterID, 1)

	if scale := model.ClampScale(photo.Scale); scale != 1 {
		b := out.Bounds()
		out = imaging.Resize(out, px(float64(b.Dx())*scale), 0, imaging.Lanczos)
	}

	if photo.Rotation != 0 {
		// imaging rotates counter-clockwise; desk rotation is clockwise.
		out = imaging.Rotate(out, -photo.Rotation, color.Transparent)
	}

	return out, nil
}

func decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// fitWindow sizes the source for a w x h window.
//
// Cover fills the window and crops the overflow so that the focus point of the image lines up with the same
// point of the window. Contain letterboxes the whole image on a transparent background.
func fitWindow(src image.Image, photo model.Photo, w, h int) *image.NRGBA {
	b := src.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())
	if sw == 0 || sh == 0 || w <= 0 || h <= 0 {
		return imaging.New(max(w, 1), max(h, 1), color.Transparent)
	}

	if photo.CropMode == model.CropContain {
		fitted := imaging.Fit(src, w, h, imaging.Lanczos)
		return imaging.PasteCenter(imaging.New(w, h, color.Transparent), fitted)
	}

	ratio := math.Max(float64(w)/sw, float64(h)/sh)
	rw, rh := px(sw*ratio), px(sh*ratio)
	resized := imaging.Resize(src, max(rw, w), max(rh, h), imaging.Lanczos)

	focus := model.ClampPercent(photo.FocusPoint)
	ox := int(math.Round(float64(resized.Bounds().Dx()-w) * focus.X / 100))
	oy := int(math.Round(float64(resized.Bounds().Dy()-h) * focus.Y / 100))

	return imaging.Crop(resized, image.Rect(ox, oy, ox+w, oy+h))
}

func px(v float64) int {
	return int(math.Round(v))
}
