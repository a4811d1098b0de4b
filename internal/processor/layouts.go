package processor

import (
	"image/color"

	"github.com/fogleman/gg"

	"github.com/aliskhannn/retro-booth/internal/model"
)

type rect struct {
	x, y, w, h float64
}

// layout is the geometry of a template in desk units.
type layout struct {
	width, height float64
	window        rect
	windowBg      color.Color

	frame   func(dc *gg.Context, l layout)
	caption func(p *Processor, dc *gg.Context, l layout, text, size string, k float64)
}

var (
	cinemaBg      = color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	cinemaCaption = color.NRGBA{R: 0xea, G: 0xb3, B: 0x08, A: 0xcc}
	sprocketColor = color.NRGBA{R: 0xe5, G: 0xe5, B: 0xe5, A: 0xff}
)

var layouts = map[model.Template]layout{
	model.TemplateClassic: {
		width: 176, height: 208,
		window:   rect{12, 12, 152, 152},
		windowBg: windowColor,
		frame:    paperFrame,
		caption:  belowWindow(172, 204, inkColor),
	},
	model.TemplateCinema: {
		width: 224, height: 160,
		window:   rect{12, 25.6, 200, 108.8},
		windowBg: color.Black,
		frame:    cinemaFrame,
		caption:  cinemaLine,
	},
	model.TemplateMinimal: {
		width: 176, height: 196,
		window:   rect{4, 4, 168, 168},
		windowBg: windowColor,
		frame:    paperFrame,
		caption:  belowWindow(174, 194, inkColor),
	},
	model.TemplateStamp: {
		width: 176, height: 208,
		window:   rect{18, 18, 140, 140},
		windowBg: windowColor,
		frame:    stampFrame,
		caption:  belowWindow(162, 196, inkColor),
	},
	model.TemplateFilm: {
		width: 224, height: 176,
		window:   rect{12, 28, 200, 120},
		windowBg: color.Black,
		frame:    filmFrame,
		caption:  cinemaLine,
	},
	model.TemplateMagazine: {
		width: 176, height: 236,
		window:   rect{0, 0, 176, 236},
		windowBg: windowColor,
		frame:    paperFrame,
		caption:  headline,
	},
	model.TemplateCDCover: {
		width: 192, height: 192,
		window:   rect{8, 8, 176, 176},
		windowBg: windowColor,
		frame:    cdFrame,
		caption:  headline,
	},
	model.TemplateSocialPost: {
		width: 192, height: 248,
		window:   rect{0, 32, 192, 192},
		windowBg: windowColor,
		frame:    socialFrame,
		caption:  belowWindow(226, 246, inkColor),
	},
}

// layoutFor returns the template geometry, falling back to classic for unknown templates.
func layoutFor(t model.Template) layout {
	if l, ok := layouts[t]; ok {
		return l
	}
	return layouts[model.TemplateClassic]
}

func paperFrame(dc *gg.Context, l layout) {
	dc.SetColor(paperColor)
	dc.DrawRoundedRectangle(0, 0, l.width, l.height, 2)
	dc.Fill()
}

func cinemaFrame(dc *gg.Context, l layout) {
	dc.SetColor(cinemaBg)
	dc.DrawRoundedRectangle(0, 0, l.width, l.height, 2)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.DrawRectangle(12, 12, l.width-24, l.height-24)
	dc.Fill()
}

// stampFrame punches perforations along every edge.
func stampFrame(dc *gg.Context, l layout) {
	const r, step = 4.0, 12.0
	for x := step / 2; x < l.width; x += step {
		dc.DrawCircle(x, 0, r)
		dc.DrawCircle(x, l.height, r)
	}
	for y := step / 2; y < l.height; y += step {
		dc.DrawCircle(0, y, r)
		dc.DrawCircle(l.width, y, r)
	}
	dc.Clip()
	dc.InvertMask()

	dc.SetColor(paperColor)
	dc.DrawRectangle(0, 0, l.width, l.height)
	dc.Fill()
	dc.ResetClip()
}

// filmFrame draws a negative strip with sprocket holes above and below the window.
func filmFrame(dc *gg.Context, l layout) {
	dc.SetColor(cinemaBg)
	dc.DrawRectangle(0, 0, l.width, l.height)
	dc.Fill()

	dc.SetColor(sprocketColor)
	for x := 8.0; x+8 <= l.width; x += 16 {
		dc.DrawRoundedRectangle(x, 8, 8, 10, 1.5)
		dc.DrawRoundedRectangle(x, l.height-18, 8, 10, 1.5)
	}
	dc.Fill()
}

func cdFrame(dc *gg.Context, l layout) {
	dc.SetColor(color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff})
	dc.DrawRoundedRectangle(0, 0, l.width, l.height, 4)
	dc.Fill()
}

func socialFrame(dc *gg.Context, l layout) {
	paperFrame(dc, l)

	dc.SetColor(color.NRGBA{R: 0xf4, G: 0x3f, B: 0x5e, A: 0xff})
	dc.DrawCircle(16, 16, 10)
	dc.Fill()

	dc.SetColor(color.NRGBA{R: 0xd1, G: 0xd5, B: 0xdb, A: 0xff})
	dc.DrawRoundedRectangle(32, 12, 64, 8, 4)
	dc.Fill()
}

// belowWindow centres the caption in the paper strip between top and bottom.
func belowWindow(top, bottom float64, ink color.Color) func(*Processor, *gg.Context, layout, string, string, float64) {
	return func(p *Processor, dc *gg.Context, l layout, text, size string, k float64) {
		dc.Push()
		dc.Identity()
		dc.SetFontFace(p.face(false, captionSize(size)*k))
		dc.SetColor(ink)
		dc.DrawStringWrapped(text, l.width/2*k, (top+bottom)/2*k, 0.5, 0.5, (l.width-16)*k, 1.1, gg.AlignCenter)
		dc.Pop()
	}
}

func cinemaLine(p *Processor, dc *gg.Context, l layout, text, _ string, k float64) {
	dc.Push()
	dc.Identity()
	dc.SetFontFace(p.face(false, 8*k))
	dc.SetColor(cinemaCaption)
	dc.DrawStringAnchored(text, l.width/2*k, (l.height-16)*k, 0.5, 1)
	dc.Pop()
}

// headline overlays the caption on the image, like a cover title.
func headline(p *Processor, dc *gg.Context, l layout, text, size string, k float64) {
	dc.Push()
	dc.Identity()
	dc.SetFontFace(p.face(true, (captionSize(size)+4)*k))
	dc.SetColor(color.NRGBA{A: 0x99})
	dc.DrawStringWrapped(text, (l.window.x+9)*k, (l.window.y+13)*k, 0, 0, (l.window.w-16)*k, 1.1, gg.AlignLeft)
	dc.SetColor(color.White)
	dc.DrawStringWrapped(text, (l.window.x+8)*k, (l.window.y+12)*k, 0, 0, (l.window.w-16)*k, 1.1, gg.AlignLeft)
	dc.Pop()
}
