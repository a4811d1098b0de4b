package filter

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestCatalogHasFourteenPresets(t *testing.T) {
	ids := IDs()
	require.Len(t, ids, 14)
	assert.Equal(t, Normal, ids[0])

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.True(t, Valid(id))
	}
}

func TestLookup_UnknownFallsBackToIdentity(t *testing.T) {
	assert.Equal(t, Identity, Lookup("polaroid-9000"))
	assert.Equal(t, Identity, Lookup(""))
	assert.True(t, Lookup(Normal).IsIdentity())
	assert.False(t, Lookup("vivid").IsIdentity())
}

func TestLookup_Values(t *testing.T) {
	bw := Lookup("bw")
	assert.Equal(t, 1.0, bw.Grayscale)
	assert.Equal(t, 1.2, bw.Contrast)
	assert.Equal(t, 1.1, bw.Brightness)

	beauty := Lookup("beauty_face")
	assert.Equal(t, 0.5, beauty.Blur)
}

func TestNext(t *testing.T) {
	active := []string{"normal", "bw", "vintage"}

	assert.Equal(t, "bw", Next(active, "normal"))
	assert.Equal(t, "vintage", Next(active, "bw"))
	assert.Equal(t, "normal", Next(active, "vintage"))
	assert.Equal(t, "normal", Next(active, "agfa"))
	assert.Equal(t, "agfa", Next(nil, "agfa"))
}

func TestApply_IdentityKeepsPixels(t *testing.T) {
	src := solid(color.NRGBA{R: 120, G: 60, B: 200, A: 255})

	out := Apply(src, Normal, 1)
	assert.Equal(t, src.Pix, out.Pix)

	out = Apply(src, "unknown", 1)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestApply_GrayscaleEqualisesChannels(t *testing.T) {
	src := solid(color.NRGBA{R: 200, G: 40, B: 90, A: 255})

	out := Apply(src, "bw", 1)
	c := out.NRGBAAt(3, 3)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
	assert.Equal(t, uint8(255), c.A)
}

func TestApply_IsDeterministic(t *testing.T) {
	src := solid(color.NRGBA{R: 10, G: 180, B: 90, A: 255})

	for _, id := range IDs() {
		a := Apply(src, id, 2)
		b := Apply(src, id, 2)
		assert.Equal(t, a.Pix, b.Pix, "filter %s", id)
		assert.Equal(t, src.Bounds(), a.Bounds(), "filter %s", id)
	}
}

func TestApply_KeepsAlpha(t *testing.T) {
	src := solid(color.NRGBA{R: 100, G: 100, B: 100, A: 128})

	out := Apply(src, "vivid", 1)
	assert.Equal(t, uint8(128), out.NRGBAAt(0, 0).A)
}

func TestSteps_FollowStylesheetOrder(t *testing.T) {
	tests := []struct {
		id   string
		want []string
	}{
		{Normal, nil},
		{"vintage", []string{"brightness", "contrast", "hue-rotate", "sepia"}},
		{"bw", []string{"brightness", "contrast", "grayscale"}},
		{"beauty_face", []string{"brightness", "contrast", "saturate", "blur"}},
		{"agfa", []string{"brightness", "contrast", "hue-rotate", "saturate", "sepia"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Lookup(tt.id).Steps(), tt.id)
	}
}

func TestApply_ComposesInChainOrder(t *testing.T) {
	in := color.NRGBA{R: 200, G: 120, B: 40, A: 255}
	a := Lookup("vintage")

	r, g, b := float64(in.R)/255, float64(in.G)/255, float64(in.B)/255
	r, g, b = unit(r*a.Brightness), unit(g*a.Brightness), unit(b*a.Brightness)
	r, g, b = contrast(r, a.Contrast), contrast(g, a.Contrast), contrast(b, a.Contrast)
	r, g, b = hueRotate(r, g, b, a.HueRotate)
	r, g, b = sepia(r, g, b, a.Sepia)

	got := a.Apply(solid(in), 1).NRGBAAt(3, 3)
	assert.Equal(t, color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}, got)
}
