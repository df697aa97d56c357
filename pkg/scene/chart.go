package scene

import (
	"fmt"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/loaders"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// Patch is one reflective square of a color chart
type Patch struct {
	Name        string
	Reflectance spectra.Distribution
}

// chartBorder is the dark gap around each patch, as a fraction of its cell
const chartBorder = 0.08

// ColorChart is a grid of diffuse patches under a single illuminant, seen
// head-on. The gaps between patches are black.
type ColorChart struct {
	columns, rows int
	names         []string
	radiance      []spectra.Distribution // illuminant times reflectance
}

// NewColorChart lays out patches row by row, columns per row
func NewColorChart(illuminant spectra.Distribution, patches []Patch, columns int) *ColorChart {
	if columns <= 0 {
		panic(fmt.Sprintf("scene: invalid chart columns %d", columns))
	}
	if len(patches) == 0 {
		panic("scene: color chart without patches")
	}

	c := &ColorChart{
		columns: columns,
		rows:    (len(patches) + columns - 1) / columns,
	}
	for _, p := range patches {
		c.names = append(c.names, p.Name)
		c.radiance = append(c.radiance, illuminant.Mul(p.Reflectance))
	}
	return c
}

// Columns returns the number of patches per row
func (c *ColorChart) Columns() int { return c.columns }

// Rows returns the number of patch rows
func (c *ColorChart) Rows() int { return c.rows }

// PatchAt returns the index of the patch under (u, v), or false over a gap
func (c *ColorChart) PatchAt(u, v float64) (int, bool) {
	fu := u * float64(c.columns)
	fv := v * float64(c.rows)
	col := min(int(fu), c.columns-1)
	row := min(int(fv), c.rows-1)
	if col < 0 || row < 0 {
		return 0, false
	}

	du, dv := fu-float64(col), fv-float64(row)
	if du < chartBorder || du > 1-chartBorder || dv < chartBorder || dv > 1-chartBorder {
		return 0, false
	}
	i := row*c.columns + col
	return i, i < len(c.radiance)
}

// PatchName returns the name of patch i
func (c *ColorChart) PatchName(i int) string { return c.names[i] }

// PatchRadiance returns the reflected radiance of patch i
func (c *ColorChart) PatchRadiance(i int) spectra.Distribution { return c.radiance[i] }

// Radiance returns the reflected radiance of the patch under (u, v)
func (c *ColorChart) Radiance(u, v float64, w spectra.SampledWavelengths, _ core.Sampler) spectra.SampledSpectra {
	i, ok := c.PatchAt(u, v)
	if !ok {
		return spectra.NewSampledSpectra(w)
	}
	return spectra.Sample(c.radiance[i], w)
}

// NewPatches converts settings patches into reflectances. An empty list gives
// the default chart.
func NewPatches(system *spectra.System, settings []loaders.PatchSettings) ([]Patch, error) {
	if len(settings) == 0 {
		return DefaultPatches(system)
	}

	patches := make([]Patch, 0, len(settings))
	for i, s := range settings {
		def, err := s.Definition()
		if err != nil {
			return nil, fmt.Errorf("patch %d (%s): %w", i, s.Name, err)
		}
		d, err := spectra.MakeReflectiveDistribution(system, def)
		if err != nil {
			return nil, fmt.Errorf("patch %d (%s): %w", i, s.Name, err)
		}
		patches = append(patches, Patch{Name: s.Name, Reflectance: d})
	}
	return patches, nil
}

// colorChecker holds the 24 patches of the classic 6x4 color checker as
// display-encoded 8-bit sRGB
var colorChecker = []struct {
	name    string
	r, g, b uint8
}{
	{"dark skin", 115, 82, 68},
	{"light skin", 194, 150, 130},
	{"blue sky", 98, 122, 157},
	{"foliage", 87, 108, 67},
	{"blue flower", 133, 128, 177},
	{"bluish green", 103, 189, 170},
	{"orange", 214, 126, 44},
	{"purplish blue", 80, 91, 166},
	{"moderate red", 193, 90, 99},
	{"purple", 94, 60, 108},
	{"yellow green", 157, 188, 64},
	{"orange yellow", 224, 163, 46},
	{"blue", 56, 61, 150},
	{"green", 70, 148, 73},
	{"red", 175, 54, 60},
	{"yellow", 231, 199, 31},
	{"magenta", 187, 86, 149},
	{"cyan", 8, 133, 161},
	{"white", 243, 243, 242},
	{"neutral 8", 200, 200, 200},
	{"neutral 6.5", 160, 160, 160},
	{"neutral 5", 122, 122, 121},
	{"neutral 3.5", 85, 85, 85},
	{"black", 52, 52, 52},
}

// DefaultPatches returns the color checker patches in the system's representation
func DefaultPatches(system *spectra.System) ([]Patch, error) {
	patches := make([]Patch, len(colorChecker))
	for i, p := range colorChecker {
		rgb := color.NewRGB(float64(p.r)/255, float64(p.g)/255, float64(p.b)/255)
		d, err := spectra.MakeReflectiveDistribution(system, spectra.RGBDefinition(rgb))
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", p.name, err)
		}
		patches[i] = Patch{Name: p.name, Reflectance: d}
	}
	return patches, nil
}
