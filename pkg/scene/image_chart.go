package scene

import (
	"fmt"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/loaders"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// ImageChart treats every texel of an image as a reflective patch. Texels
// are looked up nearest-neighbour, so the image is stretched over the film.
type ImageChart struct {
	width, height int
	texels        []int                  // index into radiance
	radiance      []spectra.Distribution // one per distinct texel color
}

// NewImageChart converts the image into reflectances under the illuminant.
// Each distinct color is upsampled once.
func NewImageChart(system *spectra.System, illuminant spectra.Distribution, img *loaders.ImageData) (*ImageChart, error) {
	c := &ImageChart{
		width:  img.Width,
		height: img.Height,
		texels: make([]int, len(img.Pixels)),
	}

	seen := make(map[color.RGB]int)
	for i, rgb := range img.Pixels {
		index, ok := seen[rgb]
		if !ok {
			d, err := spectra.MakeReflectiveDistribution(system, spectra.RGBDefinition(rgb))
			if err != nil {
				return nil, fmt.Errorf("texel %d: %w", i, err)
			}
			index = len(c.radiance)
			c.radiance = append(c.radiance, illuminant.Mul(d))
			seen[rgb] = index
		}
		c.texels[i] = index
	}
	return c, nil
}

// Colors returns the number of distinct texel colors
func (c *ImageChart) Colors() int { return len(c.radiance) }

// Radiance returns the reflected radiance of the texel under (u, v)
func (c *ImageChart) Radiance(u, v float64, w spectra.SampledWavelengths, _ core.Sampler) spectra.SampledSpectra {
	x := min(max(int(u*float64(c.width)), 0), c.width-1)
	y := min(max(int(v*float64(c.height)), 0), c.height-1)
	return spectra.Sample(c.radiance[c.texels[y*c.width+x]], w)
}
