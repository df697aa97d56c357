package renderer

import (
	"math"
	"time"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
)

// RenderStats contains statistics about a completed pass
type RenderStats struct {
	TotalPixels      int           // Total number of pixels rendered
	TotalSamples     int           // Total number of samples taken so far
	SamplesPerPixel  int           // Samples accumulated in every pixel
	MaxSamples       int           // Maximum samples allowed per pixel
	AverageLuminance float64       // Mean Y of the HDR image
	LogAverageLum    float64       // Geometric mean of Y over lit pixels
	WhitePoint       float64       // Largest Y of the HDR image
	BlackPixels      int           // Pixels with non-positive luminance
	Duration         time.Duration // Wall time of the pass
}

// luminanceStats is the per-range partial of CalculateLuminanceStats
type luminanceStats struct {
	sum, logSum float64
	lit, black  int
	white       float64
}

// CalculateLuminanceStats fills the luminance fields of stats from hdr.
// Each worker reduces its own range and the partials are combined here.
func CalculateLuminanceStats(pool *core.WorkerPool, hdr *film.HDRImage, stats *RenderStats) {
	partial := make([]luminanceStats, pool.GetNumWorkers())
	pool.ParallelRanges(len(hdr.Pixels), func(part, begin, end int) {
		p := &partial[part]
		for i := begin; i < end; i++ {
			y := hdr.Pixels[i].Y()
			if !(y > 0) {
				p.black++
				continue
			}
			p.sum += y
			p.logSum += math.Log(y)
			p.lit++
			p.white = max(p.white, y)
		}
	})

	var total luminanceStats
	for _, p := range partial {
		total.sum += p.sum
		total.logSum += p.logSum
		total.lit += p.lit
		total.black += p.black
		total.white = max(total.white, p.white)
	}

	stats.TotalPixels = len(hdr.Pixels)
	stats.BlackPixels = total.black
	stats.WhitePoint = total.white
	stats.AverageLuminance = 0
	stats.LogAverageLum = 0
	if stats.TotalPixels > 0 {
		stats.AverageLuminance = total.sum / float64(stats.TotalPixels)
	}
	if total.lit > 0 {
		stats.LogAverageLum = math.Exp(total.logSum / float64(total.lit))
	}
}

// CalculateAverageLuminance returns the mean Y of hdr
func CalculateAverageLuminance(pool *core.WorkerPool, hdr *film.HDRImage) float64 {
	var stats RenderStats
	CalculateLuminanceStats(pool, hdr, &stats)
	return stats.AverageLuminance
}
