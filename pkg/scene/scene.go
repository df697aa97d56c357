// Package scene builds the test patterns rendered from a settings file.
package scene

import (
	"fmt"

	"github.com/df07/go-spectral-film/pkg/loaders"
	"github.com/df07/go-spectral-film/pkg/renderer"
	"github.com/df07/go-spectral-film/pkg/spectra"
	"github.com/df07/go-spectral-film/pkg/tonemap"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name       string
	System     *spectra.System
	Illuminant spectra.Distribution
	Transport  renderer.Transport
	Width      int
	Height     int
	Config     renderer.ProgressiveConfig
}

// NewScene builds the scene described by validated settings
func NewScene(settings *loaders.Settings) (*Scene, error) {
	system, err := settings.NewSystem()
	if err != nil {
		return nil, err
	}
	config, err := NewProgressiveConfig(settings)
	if err != nil {
		return nil, err
	}
	illuminant, err := NewIlluminant(system, settings.Illuminant)
	if err != nil {
		return nil, err
	}

	s := &Scene{
		Name:       settings.Scene.Name,
		System:     system,
		Illuminant: illuminant,
		Width:      settings.System.Width,
		Height:     settings.System.Height,
		Config:     config,
	}

	switch settings.Scene.Type {
	case "chart":
		patches, err := NewPatches(system, settings.Patches)
		if err != nil {
			return nil, err
		}
		s.Transport = NewColorChart(illuminant, patches, settings.Scene.Columns)
	case "ramp":
		s.Transport = NewExposureRamp(illuminant, settings.Scene.Stops)
	case "image":
		img, err := loaders.LoadImage(settings.Scene.Image)
		if err != nil {
			return nil, err
		}
		chart, err := NewImageChart(system, illuminant, img)
		if err != nil {
			return nil, err
		}
		s.Transport = chart
	default:
		return nil, fmt.Errorf("%w: unknown scene type %q", loaders.ErrInvalidSettings, settings.Scene.Type)
	}
	return s, nil
}

// NewProgressiveConfig maps the settings onto the renderer configuration
func NewProgressiveConfig(settings *loaders.Settings) (renderer.ProgressiveConfig, error) {
	sampling, err := spectra.ParseSamplingMode(settings.System.WavelengthSampling)
	if err != nil {
		return renderer.ProgressiveConfig{}, err
	}
	kind, err := tonemap.ParseKind(settings.ToneMap.Operator)
	if err != nil {
		return renderer.ProgressiveConfig{}, err
	}

	config := renderer.DefaultProgressiveConfig()
	config.TileSize = settings.Render.TileSize
	config.InitialSamples = settings.Render.InitialSamples
	config.MaxSamplesPerPixel = settings.Render.MaxSamples
	config.MaxPasses = settings.Render.Passes
	config.NumWorkers = settings.System.Threads
	config.WavelengthSampling = sampling
	config.ToneMap = kind
	config.ToneMapParams = tonemap.Params{Exposure: settings.ToneMap.Exposure}
	return config, config.Validate()
}
