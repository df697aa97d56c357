package server

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/scene"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// SpectrumSample is the radiance at one wavelength
type SpectrumSample struct {
	Wavelength int     `json:"wavelength"`
	Value      float64 `json:"value"`
}

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	X          int              `json:"x"`
	Y          int              `json:"y"`
	Patch      string           `json:"patch,omitempty"` // Chart patch under the pixel
	PatchIndex int              `json:"patchIndex"`      // -1 outside a patch
	Spectrum   []SpectrumSample `json:"spectrum"`
	XYZ        [3]float64       `json:"xyz"`
	RGB        [3]float64       `json:"rgb"`   // Linear RGB of the scene color space
	Color      string           `json:"color"` // Display color, clipped
}

// inspectPixel evaluates the radiance through the center of a pixel at
// every wavelength the color mode stores
func inspectPixel(sc *scene.Scene, x, y int) InspectResponse {
	u := (float64(x) + 0.5) / float64(sc.Width)
	v := (float64(y) + 0.5) / float64(sc.Height)

	response := InspectResponse{X: x, Y: y, PatchIndex: -1}
	if chart, ok := sc.Transport.(*scene.ColorChart); ok {
		if i, ok := chart.PatchAt(u, v); ok {
			response.PatchIndex = i
			response.Patch = chart.PatchName(i)
		}
	}

	// Create a deterministic sampler for the transport
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(0)))
	d := sc.System.NewDistribution()
	for begin := 0; begin < d.Size(); begin += spectra.WavelengthSampleSize {
		var w [spectra.WavelengthSampleSize]int
		for i := range w {
			w[i] = d.WavelengthOf(begin + i)
		}
		s := sc.Transport.Radiance(u, v, spectra.NewSampledWavelengths(w, 1), sampler)
		for i, value := range s.Intensities {
			d.Set(begin+i, value)
		}
	}

	for i := 0; i < d.Size(); i++ {
		response.Spectrum = append(response.Spectrum, SpectrumSample{Wavelength: d.WavelengthOf(i), Value: d.Get(i)})
	}

	xyz := sc.System.ToXYZ(d)
	rgb := xyz.ToRGB(sc.System.ColorSpace)
	response.XYZ = xyz
	response.RGB = rgb

	display := rgb.Clamp(0, 1).CorrectGamma(1 / sc.System.Gamma)
	response.Color = fmt.Sprintf("#%02x%02x%02x",
		int(display.Red()*255+0.5), int(display.Green()*255+0.5), int(display.Blue()*255+0.5))
	return response
}

// handleInspect reports the radiance under a pixel
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	settings, err := s.parseSceneParams(r)
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid scene parameters: " + err.Error()})
		return
	}

	// Parse pixel coordinates
	pixelX, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid x coordinate"})
		return
	}
	pixelY, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid y coordinate"})
		return
	}

	if pixelX < 0 || pixelX >= settings.System.Width || pixelY < 0 || pixelY >= settings.System.Height {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Pixel coordinates out of bounds"})
		return
	}

	sc, err := newScene(settings, s.logger)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, inspectPixel(sc, pixelX, pixelY))
}
