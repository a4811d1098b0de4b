// Package filter maps cosmetic filter presets to visual adjustments and renders them.
//
// The same Apply function backs both the desk export and the editor preview,
// so a card looks identical in both places.
package filter

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Normal is the identity filter.
const Normal = "normal"

// Adjustment is a fixed tuple of CSS-style filter magnitudes.
// Multipliers (Contrast, Brightness, Saturation) are identity at 1,
// amounts (Sepia, Grayscale) at 0, HueRotate is in degrees and Blur in pixels.
type Adjustment struct {
	Contrast   float64 `json:"contrast"`
	Brightness float64 `json:"brightness"`
	Saturation float64 `json:"saturation"`
	HueRotate  float64 `json:"hue_rotate"`
	Sepia      float64 `json:"sepia"`
	Blur       float64 `json:"blur"`
	Grayscale  float64 `json:"grayscale"`
}

// Identity leaves the image untouched.
var Identity = Adjustment{Contrast: 1, Brightness: 1, Saturation: 1}

// Preset is one entry of the filter catalog.
type Preset struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Adjustment Adjustment `json:"adjustment"`
}

var presets = []Preset{
	{ID: Normal, Label: "Standard", Adjustment: Identity},
	{ID: "vivid", Label: "Vivid", Adjustment: adj(1.3, 1, 1.6, 0, 0, 0, 0)},
	{ID: "bw", Label: "Mono", Adjustment: adj(1.2, 1.1, 1, 0, 0, 0, 1)},
	{ID: "vintage", Label: "Vintage", Adjustment: adj(0.9, 1.1, 1, -10, 0.4, 0, 0)},
	{ID: "warm", Label: "Warm", Adjustment: adj(1.05, 1, 1.3, -5, 0.2, 0, 0)},
	{ID: "cool", Label: "Cool", Adjustment: adj(1, 1.1, 0.8, 180, 0.1, 0, 0)},
	{ID: "drama", Label: "Drama", Adjustment: adj(1.4, 0.9, 0.8, 0, 0, 0, 0)},
	{ID: "cyber", Label: "Cyber", Adjustment: adj(1.2, 1.1, 1.4, 20, 0, 0, 0)},
	{ID: "beauty_face", Label: "Reshape", Adjustment: adj(0.95, 1.05, 0.9, 0, 0, 0.5, 0)},
	{ID: "makeup", Label: "Makeup", Adjustment: adj(1.1, 1.05, 1.3, 0, 0, 0, 0)},
	{ID: "micro_sculpt", Label: "Sculpt", Adjustment: adj(1.2, 1.1, 1, 0, 0.1, 0, 0)},
	{ID: "kodak", Label: "Kodak", Adjustment: adj(1.2, 1.05, 1.3, -5, 0.2, 0, 0)},
	{ID: "fuji", Label: "Fuji", Adjustment: adj(1.05, 1.05, 1.1, 5, 0.1, 0, 0)},
	{ID: "agfa", Label: "Agfa", Adjustment: adj(1.3, 1.1, 1.4, -10, 0.3, 0, 0)},
}

var byID = func() map[string]Preset {
	m := make(map[string]Preset, len(presets))
	for _, p := range presets {
		m[p.ID] = p
	}
	return m
}()

func adj(contrast, brightness, saturation, hue, sepia, blur, grayscale float64) Adjustment {
	return Adjustment{
		Contrast:   contrast,
		Brightness: brightness,
		Saturation: saturation,
		HueRotate:  hue,
		Sepia:      sepia,
		Blur:       blur,
		Grayscale:  grayscale,
	}
}

// Catalog returns every preset in display order.
func Catalog() []Preset {
	return append([]Preset(nil), presets...)
}

// IDs returns every filter identifier in display order.
func IDs() []string {
	ids := make([]string, 0, len(presets))
	for _, p := range presets {
		ids = append(ids, p.ID)
	}
	return ids
}

// Valid reports whether id names a known preset.
func Valid(id string) bool {
	_, ok := byID[id]
	return ok
}

// Lookup returns the adjustment for id. Unknown ids map to Identity.
func Lookup(id string) Adjustment {
	if p, ok := byID[id]; ok {
		return p.Adjustment
	}
	return Identity
}

// Next returns the filter after current in the active set, wrapping around.
// A current filter outside the set restarts at the first entry.
func Next(active []string, current string) string {
	if len(active) == 0 {
		return current
	}
	for i, id := range active {
		if id == current {
			return active[(i+1)%len(active)]
		}
	}
	return active[0]
}

// Apply renders the preset id onto img. pxScale converts the blur radius from
// desk pixels to the pixel density of img.
func Apply(img image.Image, id string, pxScale float64) *image.NRGBA {
	return Lookup(id).Apply(img, pxScale)
}

// IsIdentity reports whether a leaves pixels untouched.
func (a Adjustment) IsIdentity() bool {
	return a == Identity
}

// colorStep is one per-pixel stage of the filter chain.
type colorStep struct {
	name   string
	active func(a Adjustment) bool
	apply  func(a Adjustment, r, g, b float64) (float64, float64, float64)
}

// chain lists the colour stages in the order the booth's stylesheet composes
// them: brightness, contrast, grayscale, hue-rotate, saturate, sepia.
// Blur is spatial and runs on the result.
var chain = []colorStep{
	{
		name:   "brightness",
		active: func(a Adjustment) bool { return a.Brightness != 1 },
		apply: func(a Adjustment, r, g, b float64) (float64, float64, float64) {
			return unit(r * a.Brightness), unit(g * a.Brightness), unit(b * a.Brightness)
		},
	},
	{
		name:   "contrast",
		active: func(a Adjustment) bool { return a.Contrast != 1 },
		apply: func(a Adjustment, r, g, b float64) (float64, float64, float64) {
			return contrast(r, a.Contrast), contrast(g, a.Contrast), contrast(b, a.Contrast)
		},
	},
	{
		name:   "grayscale",
		active: func(a Adjustment) bool { return a.Grayscale > 0 },
		apply: func(a Adjustment, r, g, b float64) (float64, float64, float64) {
			return grayscale(r, g, b, a.Grayscale)
		},
	},
	{
		name:   "hue-rotate",
		active: func(a Adjustment) bool { return a.HueRotate != 0 },
		apply: func(a Adjustment, r, g, b float64) (float64, float64, float64) {
			return hueRotate(r, g, b, a.HueRotate)
		},
	},
	{
		name:   "saturate",
		active: func(a Adjustment) bool { return a.Saturation != 1 },
		apply: func(a Adjustment, r, g, b float64) (float64, float64, float64) {
			return saturate(r, g, b, a.Saturation)
		},
	},
	{
		name:   "sepia",
		active: func(a Adjustment) bool { return a.Sepia > 0 },
		apply: func(a Adjustment, r, g, b float64) (float64, float64, float64) {
			return sepia(r, g, b, a.Sepia)
		},
	},
}

// Steps names the colour stages a runs, in application order.
func (a Adjustment) Steps() []string {
	var names []string
	for _, s := range chain {
		if s.active(a) {
			names = append(names, s.name)
		}
	}
	if a.Blur > 0 {
		names = append(names, "blur")
	}
	return names
}

// Apply renders the adjustment onto img, running the colour chain and then blur.
func (a Adjustment) Apply(img image.Image, pxScale float64) *image.NRGBA {
	if a.IsIdentity() {
		return imaging.Clone(img)
	}

	steps := make([]colorStep, 0, len(chain))
	for _, s := range chain {
		if s.active(a) {
			steps = append(steps, s)
		}
	}

	out := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
		for _, s := range steps {
			r, g, b = s.apply(a, r, g, b)
		}
		return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: c.A}
	})

	if a.Blur > 0 {
		if pxScale <= 0 {
			pxScale = 1
		}
		out = imaging.Blur(out, a.Blur*pxScale)
	}

	return out
}

// The matrices below follow the W3C Filter Effects definitions.

func grayscale(r, g, b, amount float64) (float64, float64, float64) {
	k := 1 - math.Min(amount, 1)
	return mix(r, g, b,
		0.2126+0.7874*k, 0.7152-0.7152*k, 0.0722-0.0722*k,
		0.2126-0.2126*k, 0.7152+0.2848*k, 0.0722-0.0722*k,
		0.2126-0.2126*k, 0.7152-0.7152*k, 0.0722+0.9278*k,
	)
}

func sepia(r, g, b, amount float64) (float64, float64, float64) {
	k := 1 - math.Min(amount, 1)
	return mix(r, g, b,
		0.393+0.607*k, 0.769-0.769*k, 0.189-0.189*k,
		0.349-0.349*k, 0.686+0.314*k, 0.168-0.168*k,
		0.272-0.272*k, 0.534-0.534*k, 0.131+0.869*k,
	)
}

func saturate(r, g, b, s float64) (float64, float64, float64) {
	return mix(r, g, b,
		0.213+0.787*s, 0.715-0.715*s, 0.072-0.072*s,
		0.213-0.213*s, 0.715+0.285*s, 0.072-0.072*s,
		0.213-0.213*s, 0.715-0.715*s, 0.072+0.928*s,
	)
}

func hueRotate(r, g, b, deg float64) (float64, float64, float64) {
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return mix(r, g, b,
		0.213+cos*0.787-sin*0.213, 0.715-cos*0.715-sin*0.715, 0.072-cos*0.072+sin*0.928,
		0.213-cos*0.213+sin*0.143, 0.715+cos*0.285+sin*0.140, 0.072-cos*0.072-sin*0.283,
		0.213-cos*0.213-sin*0.787, 0.715-cos*0.715+sin*0.715, 0.072+cos*0.928+sin*0.072,
	)
}

func contrast(v, c float64) float64 {
	return unit((v-0.5)*c + 0.5)
}

func mix(r, g, b, m00, m01, m02, m10, m11, m12, m20, m21, m22 float64) (float64, float64, float64) {
	return unit(m00*r + m01*g + m02*b),
		unit(m10*r + m11*g + m12*b),
		unit(m20*r + m21*g + m22*b)
}

func unit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
