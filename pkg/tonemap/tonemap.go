// Package tonemap compresses HDR XYZ images into displayable 8-bit images.
package tonemap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// ErrUnknownKind is returned when an operator name is not recognized
var ErrUnknownKind = errors.New("unknown tone mapping operator")

// Kind identifies a tone mapping operator
type Kind int

const (
	Reinhard Kind = iota
	ModifiedReinhard
	Filmic
	Uncharted2Filmic
	Drago03
)

var kindNames = []string{
	Reinhard:         "reinhard",
	ModifiedReinhard: "modified-reinhard",
	Filmic:           "filmic",
	Uncharted2Filmic: "uncharted2-filmic",
	Drago03:          "drago03",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds returns every operator in declaration order
func Kinds() []Kind {
	return []Kind{Reinhard, ModifiedReinhard, Filmic, Uncharted2Filmic, Drago03}
}

// ParseKind resolves an operator name. Case, '-', '_' and spaces are ignored,
// so "Modified_Reinhard" and "modifiedReinhard" both work.
func ParseKind(name string) (Kind, error) {
	key := normalizeName(name)
	for _, k := range Kinds() {
		if normalizeName(k.String()) == key {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func normalizeName(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
}

// Params are the settings shared by every operator
type Params struct {
	Exposure float64
}

// DefaultParams returns unit exposure
func DefaultParams() Params {
	return Params{Exposure: 1}
}

// Operator maps an HDR image into an LDR image of the same resolution.
// Pixels with non-positive luminance become opaque black. Map panics if
// the resolutions differ.
type Operator interface {
	Kind() Kind
	Map(pool *core.WorkerPool, hdr *film.HDRImage, ldr *film.LDRImage)
}

// New creates an operator using the color space and gamma of system.
// Panics on an unknown kind; use ParseKind to validate names first.
func New(kind Kind, system *spectra.System, params Params) Operator {
	b := base{
		kind:         kind,
		space:        system.ColorSpace,
		inverseGamma: 1.0 / system.Gamma,
		exposure:     params.Exposure,
		applyGamma:   true,
	}
	switch kind {
	case Reinhard:
		return &ReinhardOperator{base: b}
	case ModifiedReinhard:
		return &ModifiedReinhardOperator{base: b}
	case Filmic:
		// The filmic curve already includes a display gamma
		b.applyGamma = false
		return &FilmicOperator{base: b}
	case Uncharted2Filmic:
		return &Uncharted2Operator{base: b}
	case Drago03:
		return &Drago03Operator{base: b}
	}
	panic(fmt.Sprintf("tonemap: unknown operator %d", int(kind)))
}

// base carries the pipeline shared by every luminance curve
type base struct {
	kind         Kind
	space        color.ColorSpace
	inverseGamma float64
	exposure     float64
	applyGamma   bool
}

// Kind returns the operator kind
func (b *base) Kind() Kind { return b.kind }

// mapPixels runs the per-pixel pipeline over disjoint ranges of the image:
// curve on exposed luminance, back to RGB, scale down if any channel
// exceeds 1, gamma and pack
func (b *base) mapPixels(pool *core.WorkerPool, hdr *film.HDRImage, ldr *film.LDRImage, curve func(l float64) float64) {
	film.SameSize(hdr, ldr)
	pool.ParallelRanges(len(hdr.Pixels), func(_, begin, end int) {
		for i := begin; i < end; i++ {
			xyz := hdr.Pixels[i]
			if !(xyz.Y() > 0) {
				ldr.Pixels[i] = film.Black
				continue
			}
			yxy := xyz.ToYxy()
			l := clamp01(curve(b.exposure * yxy.Y()))
			rgb := yxy.WithY(l).ToXYZ().ToRGB(b.space)
			if rgb.Max() > 1 {
				rgb = rgb.Scale()
			}
			rgb = rgb.Clamp(0, 1)
			if b.applyGamma {
				rgb = rgb.CorrectGamma(b.inverseGamma)
			}
			ldr.Pixels[i] = pack(rgb)
		}
	})
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// pack truncates each channel of a [0,1] color to 8 bits
func pack(rgb color.RGB) film.RGBA32 {
	return film.PackRGBA32(uint8(255*rgb.Red()), uint8(255*rgb.Green()), uint8(255*rgb.Blue()), 0xFF)
}

// WhitePoint returns the largest luminance of the image. The maximum of each
// range is found in parallel and the partial results combined on the caller.
func WhitePoint(pool *core.WorkerPool, hdr *film.HDRImage) float64 {
	if hdr == nil {
		panic("tonemap: nil HDR image")
	}
	partial := make([]float64, pool.GetNumWorkers())
	pool.ParallelRanges(len(hdr.Pixels), func(part, begin, end int) {
		m := 0.0
		for i := begin; i < end; i++ {
			m = max(m, hdr.Pixels[i].Y())
		}
		partial[part] = m
	})

	white := 0.0
	for _, m := range partial {
		white = max(white, m)
	}
	return white
}
