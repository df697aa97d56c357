package tonemap

import (
	stdcolor "image/color"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
	"github.com/mdouchement/hdr/tmo"
)

// Drago03Operator is the adaptive logarithmic operator of Drago et al. 2003,
// as implemented by hdr/tmo. Unlike the curve operators it looks at the
// log-average luminance of the whole image.
type Drago03Operator struct {
	base
}

// Map tone maps hdr into ldr
func (o *Drago03Operator) Map(pool *core.WorkerPool, hdr *film.HDRImage, ldr *film.LDRImage) {
	film.SameSize(hdr, ldr)

	exposed := film.NewHDRImage(hdr.Width, hdr.Height)
	pool.ParallelRanges(len(hdr.Pixels), func(_, begin, end int) {
		for i := begin; i < end; i++ {
			exposed.Pixels[i] = hdr.Pixels[i].MulScalar(o.exposure)
		}
	})

	mapped := tmo.NewDefaultDrago03(exposed.ToHDR(o.space)).Perform()
	bounds := mapped.Bounds()
	pool.ParallelRanges(len(hdr.Pixels), func(_, begin, end int) {
		for i := begin; i < end; i++ {
			if !(hdr.Pixels[i].Y() > 0) {
				ldr.Pixels[i] = film.Black
				continue
			}
			x, y := i%hdr.Width, i/hdr.Width
			c := stdcolor.RGBAModel.Convert(mapped.At(bounds.Min.X+x, bounds.Min.Y+y)).(stdcolor.RGBA)
			ldr.Pixels[i] = film.PackRGBA32(c.R, c.G, c.B, 0xFF)
		}
	})
}
