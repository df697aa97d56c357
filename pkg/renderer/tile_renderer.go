package renderer

import (
	"image"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// TileRenderer deposits camera samples for a rectangle of pixels into a film
type TileRenderer struct {
	transport   Transport
	film        film.Film
	wavelengths *spectra.WavelengthSampler
}

// NewTileRenderer creates a new tile renderer writing into f
func NewTileRenderer(transport Transport, f film.Film, wavelengths *spectra.WavelengthSampler) *TileRenderer {
	return &TileRenderer{
		transport:   transport,
		film:        f,
		wavelengths: wavelengths,
	}
}

// RenderTileBounds adds samples camera samples to every pixel within bounds
// and returns the number of samples taken. Each sample jitters the position
// inside the pixel and draws a fresh set of wavelengths.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, sampler core.Sampler, samples int) int {
	width := float64(tr.film.Width())
	height := float64(tr.film.Height())

	taken := 0
	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			for s := 0; s < samples; s++ {
				du, dv := sampler.Get2D()
				u := (float64(i) + du) / width
				v := (float64(j) + dv) / height

				w := tr.wavelengths.Sample(sampler)
				radiance := tr.transport.Radiance(u, v, w, sampler)
				tr.film.AddContribution(i, j, radiance.Weighted())
				taken++
			}
		}
	}
	return taken
}
