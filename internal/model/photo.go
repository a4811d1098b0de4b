package model

import (
	"math"
	"time"
)

// Scale bounds for a photo card.
const (
	MinScale = 0.5
	MaxScale = 3.0
)

// CropMode describes how the image fills the card window.
type CropMode string

const (
	CropCover   CropMode = "cover"   // square crop anchored on the focus point
	CropContain CropMode = "contain" // original aspect ratio preserved
)

// Template is the frame style of a card.
type Template string

const (
	TemplateClassic    Template = "classic"
	TemplateCinema     Template = "cinema"
	TemplateMinimal    Template = "minimal"
	TemplateStamp      Template = "stamp"
	TemplateFilm       Template = "film"
	TemplateMagazine   Template = "magazine"
	TemplateCDCover    Template = "cd_cover"
	TemplateSocialPost Template = "social_post"
)

// Templates lists every known template in catalog order.
var Templates = []Template{
	TemplateClassic, TemplateCinema, TemplateMinimal, TemplateStamp,
	TemplateFilm, TemplateMagazine, TemplateCDCover, TemplateSocialPost,
}

// Valid reports whether t is a known template.
func (t Template) Valid() bool {
	for _, known := range Templates {
		if t == known {
			return true
		}
	}
	return false
}

// Point is a pair of coordinates. Its unit depends on the field holding it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center is the default focus point.
var Center = Point{X: 50, Y: 50}

// Photo is one instant-photo card on the desk.
type Photo struct {
	ID         string    `json:"id"`
	Image      []byte    `json:"-"`
	MIMEType   string    `json:"mime_type"`
	Caption    string    `json:"caption"`
	Position   Point     `json:"position"`
	Rotation   float64   `json:"rotation"`
	Scale      float64   `json:"scale"`
	CreatedAt  time.Time `json:"created_at"`
	StackOrder int64     `json:"stack_order"`
	Filter     string    `json:"filter"`
	Template   Template  `json:"template"`
	FontSize   string    `json:"font_size,omitempty"`
	CropMode   CropMode  `json:"crop_mode"`
	FocusPoint Point     `json:"focus_point"` // percentages, 0-100 on both axes
}

// PhotoPatch carries a partial update. Nil fields are left untouched.
type PhotoPatch struct {
	Image      []byte    `json:"-"`
	MIMEType   *string   `json:"-"`
	Caption    *string   `json:"caption,omitempty"`
	Position   *Point    `json:"position,omitempty"`
	Rotation   *float64  `json:"rotation,omitempty"`
	Scale      *float64  `json:"scale,omitempty"`
	Filter     *string   `json:"filter,omitempty"`
	Template   *Template `json:"template,omitempty"`
	FontSize   *string   `json:"font_size,omitempty"`
	CropMode   *CropMode `json:"-"`
	FocusPoint *Point    `json:"-"`
}

// ClampScale forces s into [MinScale, MaxScale]. NaN resets to the natural size.
func ClampScale(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

// ClampPercent forces p into [0, 100] on both axes.
func ClampPercent(p Point) Point {
	return Point{X: clamp(p.X, 0, 100), Y: clamp(p.Y, 0, 100)}
}

// clamp maps NaN to the middle of the range.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
