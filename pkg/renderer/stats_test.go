package renderer

import (
	"math"
	"testing"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
)

func TestCalculateAverageLuminance(t *testing.T) {
	pool := core.NewWorkerPool(3)
	defer pool.Stop()

	// Y values 0.25, 1, 0 and a negative pixel counted as black
	hdr := film.NewHDRImage(2, 2)
	hdr.Set(0, 0, color.XYZ{0, 0.25, 0})
	hdr.Set(1, 0, color.XYZ{0, 1, 0})
	hdr.Set(1, 1, color.XYZ{0, -1, 0})

	avgLum := CalculateAverageLuminance(pool, hdr)
	expected := 1.25 / 4
	if math.Abs(avgLum-expected) > 1e-12 {
		t.Errorf("Expected average luminance %f, got %f", expected, avgLum)
	}
}

func TestCalculateLuminanceStats(t *testing.T) {
	pool := core.NewWorkerPool(4)
	defer pool.Stop()

	hdr := film.NewHDRImage(5, 3)
	hdr.Set(0, 0, color.XYZ{0, 0.25, 0})
	hdr.Set(4, 2, color.XYZ{0, 4, 0})

	var stats RenderStats
	CalculateLuminanceStats(pool, hdr, &stats)

	if stats.TotalPixels != 15 {
		t.Errorf("Expected 15 pixels, got %d", stats.TotalPixels)
	}
	if stats.BlackPixels != 13 {
		t.Errorf("Expected 13 black pixels, got %d", stats.BlackPixels)
	}
	if stats.WhitePoint != 4 {
		t.Errorf("Expected white point 4, got %g", stats.WhitePoint)
	}
	// Geometric mean of 0.25 and 4
	if math.Abs(stats.LogAverageLum-1) > 1e-12 {
		t.Errorf("Expected log average 1, got %g", stats.LogAverageLum)
	}
}

func TestCalculateLuminanceStats_AllBlack(t *testing.T) {
	pool := core.NewWorkerPool(2)
	defer pool.Stop()

	var stats RenderStats
	CalculateLuminanceStats(pool, film.NewHDRImage(3, 3), &stats)
	if stats.WhitePoint != 0 || stats.LogAverageLum != 0 || stats.AverageLuminance != 0 || stats.BlackPixels != 9 {
		t.Errorf("Unexpected stats for a black image: %+v", stats)
	}
}
