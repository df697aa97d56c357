package loaders

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/spectra"
	"github.com/df07/go-spectral-film/pkg/tonemap"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedSettings is returned for settings files that are neither TOML nor YAML
	ErrUnsupportedSettings = errors.New("unsupported settings format")
	// ErrInvalidSettings is returned when decoded settings fail validation
	ErrInvalidSettings = errors.New("invalid settings")
)

// Settings is the content of a scene settings file
type Settings struct {
	System     SystemSettings     `toml:"system" yaml:"system"`
	ToneMap    ToneMapSettings    `toml:"tonemap" yaml:"tonemap"`
	Render     RenderSettings     `toml:"render" yaml:"render"`
	Illuminant IlluminantSettings `toml:"illuminant" yaml:"illuminant"`
	Scene      SceneSettings      `toml:"scene" yaml:"scene"`
	Patches    []PatchSettings    `toml:"patches" yaml:"patches"`
}

// SystemSettings selects the color system and output resolution
type SystemSettings struct {
	ColorMode          string  `toml:"color_mode" yaml:"color_mode"`
	ColorSpace         string  `toml:"color_space" yaml:"color_space"`
	Gamma              float64 `toml:"gamma" yaml:"gamma"`
	Width              int     `toml:"width" yaml:"width"`
	Height             int     `toml:"height" yaml:"height"`
	Threads            int     `toml:"threads" yaml:"threads"` // 0 = use CPU count
	Summation          string  `toml:"summation" yaml:"summation"`
	WavelengthSampling string  `toml:"wavelength_sampling" yaml:"wavelength_sampling"`
}

// ToneMapSettings selects the operator applied after every pass
type ToneMapSettings struct {
	Operator string  `toml:"operator" yaml:"operator"`
	Exposure float64 `toml:"exposure" yaml:"exposure"`
}

// RenderSettings is the progressive pass schedule
type RenderSettings struct {
	Passes         int `toml:"passes" yaml:"passes"`
	InitialSamples int `toml:"initial_samples" yaml:"initial_samples"`
	MaxSamples     int `toml:"max_samples" yaml:"max_samples"`
	TileSize       int `toml:"tile_size" yaml:"tile_size"`
}

// ColorSettings is a color written as exactly one of an RGB triple, a list
// of [wavelength, value] pairs or a CSV file of such pairs
type ColorSettings struct {
	RGB      []float64   `toml:"rgb,omitempty" yaml:"rgb,omitempty"`
	Spectrum [][]float64 `toml:"spectrum,omitempty" yaml:"spectrum,omitempty"`
	CSV      string      `toml:"csv,omitempty" yaml:"csv,omitempty"`
}

// IlluminantSettings is the light falling on the scene. A positive
// temperature selects a blackbody and excludes the color fields.
type IlluminantSettings struct {
	ColorSettings `toml:",inline" yaml:",inline"`
	Temperature   float64 `toml:"temperature,omitempty" yaml:"temperature,omitempty"`
	Intensity     float64 `toml:"intensity" yaml:"intensity"`
}

// SceneSettings selects the test pattern
type SceneSettings struct {
	Name    string `toml:"name" yaml:"name"`
	Type    string `toml:"type" yaml:"type"` // chart, ramp or image
	Columns int    `toml:"columns" yaml:"columns"`
	Stops   int    `toml:"stops" yaml:"stops"`
	Image   string `toml:"image" yaml:"image"`
}

// PatchSettings is one reflective patch of a color chart
type PatchSettings struct {
	Name          string `toml:"name" yaml:"name"`
	ColorSettings `toml:",inline" yaml:",inline"`
}

// DefaultTemperature is the blackbody illuminant used when none is configured
const DefaultTemperature = 6500

// DefaultSettings returns the settings used for anything a file leaves out
func DefaultSettings() Settings {
	return Settings{
		System: SystemSettings{
			ColorMode:          spectra.SpectraMode.String(),
			ColorSpace:         color.SRGBD65.String(),
			Gamma:              2.2,
			Width:              240,
			Height:             160,
			Threads:            0,
			Summation:          "kahan",
			WavelengthSampling: spectra.StratifiedSampling.String(),
		},
		ToneMap: ToneMapSettings{
			Operator: tonemap.ModifiedReinhard.String(),
			Exposure: 1,
		},
		Render: RenderSettings{
			Passes:         7,
			InitialSamples: 1,
			MaxSamples:     50,
			TileSize:       64,
		},
		Illuminant: IlluminantSettings{
			Temperature: DefaultTemperature,
			Intensity:   1,
		},
		Scene: SceneSettings{
			Name:    "Color Chart",
			Type:    "chart",
			Columns: 6,
			Stops:   12,
		},
	}
}

// Decoder is implemented by the TOML and YAML decoders
type Decoder interface {
	Decode(v any) error
}

// DecoderFunc creates a strict decoder reading from r
type DecoderFunc func(r io.Reader) Decoder

// TOMLDecoder rejects keys that do not map to a settings field
func TOMLDecoder(r io.Reader) Decoder {
	return toml.NewDecoder(r).DisallowUnknownFields()
}

// YAMLDecoder rejects keys that do not map to a settings field
func YAMLDecoder(r io.Reader) Decoder {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	return d
}

// DecoderForPath picks the decoder matching the file extension
func DecoderForPath(path string) (DecoderFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOMLDecoder, nil
	case ".yaml", ".yml":
		return YAMLDecoder, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSettings, path)
}

// ReadSettings decodes settings on top of DefaultSettings and validates them
func ReadSettings(r io.Reader, f DecoderFunc) (*Settings, error) {
	s := DefaultSettings()
	// The default blackbody only applies when the file names no other illuminant
	s.Illuminant.Temperature = 0
	if err := f(r).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if s.Illuminant.Temperature == 0 && s.Illuminant.count() == 0 {
		s.Illuminant.Temperature = DefaultTemperature
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSettings reads a TOML or YAML settings file, chosen by extension.
// Relative file references inside it are resolved against its directory.
func LoadSettings(path string) (*Settings, error) {
	f, err := DecoderForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	defer file.Close()

	s, err := ReadSettings(bufio.NewReader(file), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.resolvePaths(filepath.Dir(path))
	return s, nil
}

// resolvePaths makes relative CSV and image paths relative to dir
func (s *Settings) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&s.Illuminant.CSV)
	resolve(&s.Scene.Image)
	for i := range s.Patches {
		resolve(&s.Patches[i].CSV)
	}
}

// Validate checks every field that can be checked without reading other files
func (s *Settings) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...))
	}

	if _, err := s.ColorMode(); err != nil {
		return invalid("%v", err)
	}
	if _, err := color.ParseColorSpace(s.System.ColorSpace); err != nil {
		return invalid("%v", err)
	}
	if _, ok := core.SummationByName(s.System.Summation); !ok {
		return invalid("unknown summation %q", s.System.Summation)
	}
	if _, err := spectra.ParseSamplingMode(s.System.WavelengthSampling); err != nil {
		return invalid("%v", err)
	}
	if _, err := tonemap.ParseKind(s.ToneMap.Operator); err != nil {
		return invalid("%v", err)
	}

	switch {
	case !(s.System.Gamma > 0):
		return invalid("gamma must be positive, got %g", s.System.Gamma)
	case s.System.Width <= 0 || s.System.Height <= 0:
		return invalid("resolution must be positive, got %dx%d", s.System.Width, s.System.Height)
	case s.System.Threads < 0:
		return invalid("threads must not be negative, got %d", s.System.Threads)
	case !(s.ToneMap.Exposure > 0):
		return invalid("exposure must be positive, got %g", s.ToneMap.Exposure)
	case s.Render.Passes <= 0:
		return invalid("passes must be positive, got %d", s.Render.Passes)
	case s.Render.InitialSamples <= 0:
		return invalid("initial samples must be positive, got %d", s.Render.InitialSamples)
	case s.Render.MaxSamples < s.Render.InitialSamples:
		return invalid("max samples %d is below initial samples %d", s.Render.MaxSamples, s.Render.InitialSamples)
	case s.Render.TileSize <= 0:
		return invalid("tile size must be positive, got %d", s.Render.TileSize)
	case !(s.Illuminant.Intensity > 0):
		return invalid("illuminant intensity must be positive, got %g", s.Illuminant.Intensity)
	case s.Illuminant.Temperature < 0:
		return invalid("illuminant temperature must not be negative, got %g", s.Illuminant.Temperature)
	}

	colors := 0
	if s.Illuminant.Temperature > 0 {
		colors++
	}
	colors += s.Illuminant.ColorSettings.count()
	if colors != 1 {
		return invalid("illuminant needs exactly one of temperature, rgb, spectrum or csv")
	}
	if err := s.Illuminant.ColorSettings.validate(); err != nil {
		return invalid("illuminant: %v", err)
	}

	switch s.Scene.Type {
	case "chart":
		if s.Scene.Columns <= 0 {
			return invalid("chart columns must be positive, got %d", s.Scene.Columns)
		}
	case "ramp":
		if s.Scene.Stops <= 0 {
			return invalid("ramp stops must be positive, got %d", s.Scene.Stops)
		}
	case "image":
		if s.Scene.Image == "" {
			return invalid("image scene needs an image path")
		}
	default:
		return invalid("unknown scene type %q", s.Scene.Type)
	}

	for i, p := range s.Patches {
		if p.count() != 1 {
			return invalid("patch %d (%s) needs exactly one of rgb, spectrum or csv", i, p.Name)
		}
		if err := p.validate(); err != nil {
			return invalid("patch %d (%s): %v", i, p.Name, err)
		}
	}
	return nil
}

// count returns how many of the color fields are set
func (c ColorSettings) count() int {
	n := 0
	if c.RGB != nil {
		n++
	}
	if c.Spectrum != nil {
		n++
	}
	if c.CSV != "" {
		n++
	}
	return n
}

func (c ColorSettings) validate() error {
	if c.RGB != nil && len(c.RGB) != 3 {
		return fmt.Errorf("rgb needs 3 components, got %d", len(c.RGB))
	}
	for i, pair := range c.Spectrum {
		if len(pair) != 2 {
			return fmt.Errorf("spectrum entry %d needs [wavelength, value], got %v", i, pair)
		}
	}
	return nil
}

// Definition converts the color into a definition, reading the CSV file if
// one is named
func (c ColorSettings) Definition() (spectra.ColorDefinition, error) {
	switch {
	case c.RGB != nil:
		if err := c.validate(); err != nil {
			return spectra.ColorDefinition{}, err
		}
		return spectra.RGBDefinition(color.NewRGB(c.RGB[0], c.RGB[1], c.RGB[2])), nil
	case c.Spectrum != nil:
		if err := c.validate(); err != nil {
			return spectra.ColorDefinition{}, err
		}
		samples := make([]spectra.WavelengthValue, len(c.Spectrum))
		for i, pair := range c.Spectrum {
			samples[i] = spectra.WavelengthValue{Wavelength: pair[0], Value: pair[1]}
		}
		return spectra.SpectraDefinition(samples), nil
	case c.CSV != "":
		samples, err := LoadSpectraCSV(c.CSV)
		if err != nil {
			return spectra.ColorDefinition{}, err
		}
		return spectra.SpectraDefinition(samples), nil
	}
	return spectra.ColorDefinition{}, spectra.ErrEmptyDefinition
}

// ColorMode parses the configured color mode
func (s *Settings) ColorMode() (spectra.ColorMode, error) {
	return spectra.ParseColorMode(s.System.ColorMode)
}

// NewSystem builds the color system described by the settings.
// Validate must have succeeded.
func (s *Settings) NewSystem() (*spectra.System, error) {
	mode, err := s.ColorMode()
	if err != nil {
		return nil, err
	}
	space, err := color.ParseColorSpace(s.System.ColorSpace)
	if err != nil {
		return nil, err
	}
	summation, ok := core.SummationByName(s.System.Summation)
	if !ok {
		return nil, fmt.Errorf("%w: unknown summation %q", ErrInvalidSettings, s.System.Summation)
	}
	system := spectra.NewSystem(mode, space, s.System.Gamma)
	system.Summation = summation
	return system, nil
}
