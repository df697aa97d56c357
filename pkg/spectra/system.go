package spectra

import (
	"errors"
	"fmt"
	"strings"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
)

// ColorMode selects whether the renderer transports RGB or full spectra
type ColorMode int

const (
	RGBMode ColorMode = iota
	SpectraMode
)

// ErrUnknownColorMode is returned when a color mode name is not recognized
var ErrUnknownColorMode = errors.New("unknown color mode")

func (m ColorMode) String() string {
	switch m {
	case RGBMode:
		return "rgb"
	case SpectraMode:
		return "spectra"
	}
	return fmt.Sprintf("ColorMode(%d)", int(m))
}

// ParseColorMode resolves "rgb" or "spectra"
func ParseColorMode(name string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rgb":
		return RGBMode, nil
	case "spectra", "spectral", "spectrum":
		return SpectraMode, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColorMode, name)
}

// System bundles the color configuration of a render
type System struct {
	ColorMode  ColorMode
	ColorSpace color.ColorSpace
	Gamma      float64
	Summation  core.Summation

	cmf       *CMF
	upsampler *Upsampler
}

// NewSystem creates a system using the shared observer and upsampling tables
func NewSystem(mode ColorMode, space color.ColorSpace, gamma float64) *System {
	return &System{
		ColorMode:  mode,
		ColorSpace: space,
		Gamma:      gamma,
		Summation:  core.KahanSummation{},
	}
}

// DefaultSystem returns a spectral sRGB-D65 system with gamma 2.2
func DefaultSystem() *System {
	return NewSystem(SpectraMode, color.SRGBD65, 2.2)
}

// CMF returns the observer table
func (s *System) CMF() *CMF {
	if s.cmf == nil {
		return DefaultCMF()
	}
	return s.cmf
}

// Upsampler returns the spectral upsampling table. It is built on first use.
func (s *System) Upsampler() *Upsampler {
	if s.upsampler == nil {
		return DefaultUpsampler()
	}
	return s.upsampler
}

// Prepare builds the shared tables the color mode needs so the first
// render pass does not pay for them
func (s *System) Prepare() {
	s.CMF()
	if s.ColorMode == SpectraMode {
		s.Upsampler()
	}
}

// Representation returns the distribution representation used by the color mode
func (s *System) Representation() Representation {
	if s.ColorMode == RGBMode {
		return RGBRepresentation
	}
	return SpectraRepresentation
}

// NewDistribution returns an all-zero distribution in the system's representation
func (s *System) NewDistribution() Distribution {
	return NewDistributionWith(s.Representation(), s.Summation)
}

// ToXYZ projects d onto XYZ. RGB distributions use the color space matrix,
// spectral ones the observer with the emitter convention.
func (s *System) ToXYZ(d Distribution) color.XYZ {
	return d.ToXYZForEmitter(s)
}
