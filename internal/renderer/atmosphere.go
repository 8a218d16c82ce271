package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/ivlev/quotereel/internal/system"
)

const (
	fogBlobs    = 3
	fogAlpha    = 0.1
	grainSpecks = 2000
	grainAlpha  = 0.05
	scanStep    = 4
	scanAlpha   = 0.1
)

// fogLayer - три медленно плывущих облака в режиме overlay.
type fogLayer struct{}

func (fogLayer) Name() string { return "fog" }

func (fogLayer) Draw(s *Surface, elapsed float64, _ *State) {
	b := s.Frame.Rect
	mask := system.GetFrame(b.Dx(), b.Dy())
	defer system.PutFrame(mask)

	t := elapsed * 0.5
	for i := 0; i < fogBlobs; i++ {
		fi := float64(i)
		x := math.Sin(t*0.2+fi)*100 + s.W/2
		y := math.Mod(t*20+fi*200, s.H+400) - 200
		r := 400 + math.Sin(t*0.5+fi)*100
		fogBlob(mask, x, y, r)
	}
	overlayOnto(s.Frame, mask)
}

// fogBlob добавляет в маску радиальный градиент белого (0.1 в центре, 0 на краю).
// Маска хранит белый с прямой (не премультиплицированной) альфой.
func fogBlob(mask *image.RGBA, cx, cy, r float64) {
	b := mask.Rect
	x0, x1 := max(b.Min.X, int(cx-r)), min(b.Max.X, int(cx+r)+1)
	y0, y1 := max(b.Min.Y, int(cy-r)), min(b.Max.Y, int(cy+r)+1)

	for y := y0; y < y1; y++ {
		dy := float64(y) + 0.5 - cy
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - cx
			d := math.Sqrt(dx*dx + dy*dy)
			if d >= r {
				continue
			}
			a := fogAlpha * (1 - d/r)
			p := mask.Pix[mask.PixOffset(x, y):]
			old := float64(p[3]) / 255
			p[0], p[1], p[2] = 255, 255, 255
			p[3] = uint8(math.Round((a + old*(1-a)) * 255))
		}
	}
}

// vignetteLayer - затемнение сверху и снизу, сила задается эффектами.
type vignetteLayer struct{}

func (vignetteLayer) Name() string { return "vignette" }

func (vignetteLayer) Draw(s *Surface, _ float64, st *State) {
	k := st.Effects.Vignette
	if k <= 0 {
		return
	}
	black := color.RGBA{A: 255}
	grad := gg.NewLinearGradient(0, 0, 0, s.H)
	grad.AddColorStop(0, withAlpha(black, math.Min(1, 0.1*k)))
	grad.AddColorStop(0.5, withAlpha(black, math.Min(1, 0.05*k)))
	grad.AddColorStop(1, withAlpha(black, math.Min(1, 0.3*k)))
	s.SetFillStyle(grad)
	s.DrawRectangle(0, 0, s.W, s.H)
	s.Fill()
}

// grainLayer - пленочное зерно и строки развертки.
type grainLayer struct{}

func (grainLayer) Name() string { return "grain" }

func (grainLayer) Draw(s *Surface, _ float64, st *State) {
	img := s.Frame
	b := img.Rect
	white := color.RGBA{255, 255, 255, 255}
	for i := 0; i < grainSpecks; i++ {
		x := b.Min.X + int(st.rng.Float64()*s.W)
		y := b.Min.Y + int(st.rng.Float64()*s.H)
		a := st.rng.Float64() * grainAlpha
		blendOver(img, x, y, white, a)
		blendOver(img, x+1, y, white, a)
		blendOver(img, x, y+1, white, a)
		blendOver(img, x+1, y+1, white, a)
	}

	for y := b.Min.Y; y < b.Max.Y; y += scanStep {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Min.X, y)+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = uint8(float64(row[i]) * (1 - scanAlpha))
			row[i+1] = uint8(float64(row[i+1]) * (1 - scanAlpha))
			row[i+2] = uint8(float64(row[i+2]) * (1 - scanAlpha))
			row[i+3] = uint8(float64(row[i+3])*(1-scanAlpha) + 255*scanAlpha)
		}
	}
}
