package renderer

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/blend"
	bildblur "github.com/anthonynsimon/bild/blur"
	"golang.org/x/image/draw"
)

// parseHex разбирает #rgb, #rrggbb и #rrggbbaa. Некорректная строка дает fallback.
func parseHex(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

// rgba - цвет в духе CSS rgba(): компоненты 0-255, альфа 0-1, без премультипликации.
type rgba struct {
	R, G, B uint8
	A       float64
}

func (c rgba) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{c.R, c.G, c.B, uint8(math.Round(clamp01(c.A) * 255))}.RGBA()
}

func (c rgba) alpha(k float64) rgba {
	c.A *= k
	return c
}

func withAlpha(c color.RGBA, a float64) rgba {
	return rgba{c.R, c.G, c.B, a}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// blendOver смешивает непрозрачный цвет c с альфой a поверх пикселя (x, y).
func blendOver(img *image.RGBA, x, y int, c color.RGBA, a float64) {
	if !image.Pt(x, y).In(img.Rect) || a <= 0 {
		return
	}
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	inv := 1 - a
	p[0] = uint8(float64(c.R)*a + float64(p[0])*inv)
	p[1] = uint8(float64(c.G)*a + float64(p[1])*inv)
	p[2] = uint8(float64(c.B)*a + float64(p[2])*inv)
	p[3] = uint8(255*a + float64(p[3])*inv)
}

// gaussianBlur размывает img на месте; sigma в пикселях, как у CSS blur().
func gaussianBlur(img *image.RGBA, sigma float64) {
	if sigma <= 0 || img.Rect.Empty() {
		return
	}
	out := bildblur.Gaussian(img, sigma)
	draw.Draw(img, img.Rect, out, out.Bounds().Min, draw.Src)
}

// screenOnto накладывает src на dst в режиме "screen" со сдвигом at.
func screenOnto(dst, src *image.RGBA, at image.Point) {
	r := src.Rect.Add(at).Intersect(dst.Rect)
	if r.Empty() {
		return
	}
	out := blend.Screen(dst.SubImage(r), src.SubImage(r.Sub(at)))
	draw.Draw(dst, r, out, out.Bounds().Min, draw.Src)
}

// overlayOnto смешивает маску поверх dst в режиме "overlay".
// Каналы маски bild читает без премультипликации.
func overlayOnto(dst, mask *image.RGBA) {
	out := blend.Overlay(dst, mask)
	draw.Draw(dst, out.Bounds().Add(dst.Rect.Min), out, out.Bounds().Min, draw.Src)
}
