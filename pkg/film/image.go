package film

import (
	"fmt"
	"image"
	stdcolor "image/color"
	"slices"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"
)

// HDRImage is a dense row-major buffer of XYZ pixels
type HDRImage struct {
	Width, Height int
	Pixels        []color.XYZ
}

// NewHDRImage creates an all-black HDR image
func NewHDRImage(width, height int) *HDRImage {
	return &HDRImage{Width: width, Height: height, Pixels: make([]color.XYZ, width*height)}
}

// At returns the pixel at (x, y)
func (h *HDRImage) At(x, y int) color.XYZ { return h.Pixels[y*h.Width+x] }

// Set replaces the pixel at (x, y)
func (h *HDRImage) Set(x, y int, xyz color.XYZ) { h.Pixels[y*h.Width+x] = xyz }

// Clone returns a deep copy
func (h *HDRImage) Clone() *HDRImage {
	return &HDRImage{Width: h.Width, Height: h.Height, Pixels: slices.Clone(h.Pixels)}
}

// ToHDR converts to a linear RGB image of the hdr package, for RGBE export
// and the operators of hdr/tmo
func (h *HDRImage) ToHDR(space color.ColorSpace) *hdr.RGB {
	m := hdr.NewRGB(image.Rect(0, 0, h.Width, h.Height))
	for y := 0; y < h.Height; y++ {
		for x := 0; x < h.Width; x++ {
			rgb := h.At(x, y).ToRGB(space).Clamp(0, maxRadiance)
			m.SetRGB(x, y, hdrcolor.RGB{R: rgb.Red(), G: rgb.Green(), B: rgb.Blue()})
		}
	}
	return m
}

// maxRadiance bounds exported values
const maxRadiance = 1e30

// RGBA32 is a packed 0xAARRGGBB pixel
type RGBA32 uint32

// PackRGBA32 packs four 8-bit channels
func PackRGBA32(r, g, b, a uint8) RGBA32 {
	return RGBA32(a)<<24 | RGBA32(r)<<16 | RGBA32(g)<<8 | RGBA32(b)
}

// R returns the red channel
func (p RGBA32) R() uint8 { return uint8(p >> 16) }

// G returns the green channel
func (p RGBA32) G() uint8 { return uint8(p >> 8) }

// B returns the blue channel
func (p RGBA32) B() uint8 { return uint8(p) }

// A returns the alpha channel
func (p RGBA32) A() uint8 { return uint8(p >> 24) }

// Opaque black, the value of a skipped pixel
const Black RGBA32 = 0xFF000000

// LDRImage is a dense row-major buffer of packed 8-bit pixels
type LDRImage struct {
	Width, Height int
	Pixels        []RGBA32
}

// NewLDRImage creates an opaque black LDR image
func NewLDRImage(width, height int) *LDRImage {
	l := &LDRImage{Width: width, Height: height, Pixels: make([]RGBA32, width*height)}
	l.Fill(Black)
	return l
}

// Fill sets every pixel to p
func (l *LDRImage) Fill(p RGBA32) {
	for i := range l.Pixels {
		l.Pixels[i] = p
	}
}

// At returns the pixel at (x, y)
func (l *LDRImage) At(x, y int) RGBA32 { return l.Pixels[y*l.Width+x] }

func (l *LDRImage) Clone() *LDRImage {
	return &LDRImage{Width: l.Width, Height: l.Height, Pixels: slices.Clone(l.Pixels)}
}

// SameSize panics unless h and l have the same resolution
func SameSize(h *HDRImage, l *LDRImage) {
	if h == nil || l == nil {
		panic("film: nil image")
	}
	if h.Width != l.Width || h.Height != l.Height {
		panic(fmt.Sprintf("film: HDR image is %dx%d, LDR image is %dx%d", h.Width, h.Height, l.Width, l.Height))
	}
}

// ToRGBA converts to a standard library image for encoding
func (l *LDRImage) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			p := l.At(x, y)
			img.SetRGBA(x, y, stdcolor.RGBA{R: p.R(), G: p.G(), B: p.B(), A: p.A()})
		}
	}
	return img
}

// FromImage copies any image into an LDR image, e.g. the result of an hdr/tmo operator
func FromImage(img image.Image) *LDRImage {
	b := img.Bounds()
	l := NewLDRImage(b.Dx(), b.Dy())
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			c := stdcolor.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(stdcolor.RGBA)
			l.Pixels[y*l.Width+x] = PackRGBA32(c.R, c.G, c.B, c.A)
		}
	}
	return l
}
