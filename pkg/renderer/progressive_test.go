package renderer

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/spectra"
	"github.com/df07/go-spectral-film/pkg/tonemap"
)

// constantTransport returns the same distribution for every film position
func constantTransport(d spectra.Distribution) Transport {
	return TransportFunc(func(u, v float64, w spectra.SampledWavelengths, _ core.Sampler) spectra.SampledSpectra {
		return spectra.Sample(d, w)
	})
}

func smallConfig() ProgressiveConfig {
	config := DefaultProgressiveConfig()
	config.TileSize = 4
	config.InitialSamples = 1
	config.MaxSamplesPerPixel = 5
	config.MaxPasses = 3
	config.NumWorkers = 3
	config.ToneMap = tonemap.Reinhard
	return config
}

func TestProgressiveSampleCalculation(t *testing.T) {
	config := DefaultProgressiveConfig()
	config.InitialSamples = 1
	config.MaxSamplesPerPixel = 50
	config.MaxPasses = 7

	pr := &ProgressiveRenderer{
		config: config,
	}

	// Pass 1: 1 sample
	// Pass 2-6: (50-1)/6 = 8.16 -> 8 samples per pass -> 1 + 8*1 = 9, 1 + 8*2 = 17, etc.
	// Pass 7: 50 (final pass gets all remaining)
	expectedTotalSamples := []int{1, 9, 17, 25, 33, 41, 50}

	for pass := 1; pass <= 7; pass++ {
		totalSamples := pr.getSamplesForPass(pass)

		if totalSamples != expectedTotalSamples[pass-1] {
			t.Errorf("Pass %d: expected %d total samples, got %d",
				pass, expectedTotalSamples[pass-1], totalSamples)
		}
	}

	pr.config.MaxPasses = 1
	if got := pr.getSamplesForPass(1); got != 50 {
		t.Errorf("Single pass: expected 50 samples, got %d", got)
	}
}

func TestProgressiveConfig(t *testing.T) {
	config := DefaultProgressiveConfig()

	if config.TileSize != 64 {
		t.Errorf("Expected default tile size 64, got %d", config.TileSize)
	}
	if config.InitialSamples != 1 {
		t.Errorf("Expected default initial samples 1, got %d", config.InitialSamples)
	}
	if config.MaxSamplesPerPixel != 50 {
		t.Errorf("Expected default max samples 50, got %d", config.MaxSamplesPerPixel)
	}
	if config.MaxPasses != 7 {
		t.Errorf("Expected default max passes 7, got %d", config.MaxPasses)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	invalid := map[string]func(c *ProgressiveConfig){
		"tile size":   func(c *ProgressiveConfig) { c.TileSize = 0 },
		"passes":      func(c *ProgressiveConfig) { c.MaxPasses = 0 },
		"initial":     func(c *ProgressiveConfig) { c.InitialSamples = 0 },
		"max samples": func(c *ProgressiveConfig) { c.MaxSamplesPerPixel = 0 },
		"exposure":    func(c *ProgressiveConfig) { c.ToneMapParams.Exposure = 0 },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			c := DefaultProgressiveConfig()
			mutate(&c)
			if c.Validate() == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestNewTileGrid(t *testing.T) {
	// Test tile grid generation for a 400x225 image with 64x64 tiles
	width, height, tileSize := 400, 225, 64
	tiles := NewTileGrid(width, height, tileSize)

	expectedTilesX := (width + tileSize - 1) / tileSize   // 7 tiles
	expectedTilesY := (height + tileSize - 1) / tileSize  // 4 tiles
	expectedTotalTiles := expectedTilesX * expectedTilesY // 28 tiles

	if len(tiles) != expectedTotalTiles {
		t.Errorf("Expected %d tiles, got %d", expectedTotalTiles, len(tiles))
	}

	// Tiles must cover the image without gaps or overlaps
	covered := make([][]bool, height)
	for y := range covered {
		covered[y] = make([]bool, width)
	}

	for _, tile := range tiles {
		for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
			for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
				if x >= width || y >= height {
					t.Errorf("Tile %d extends beyond image bounds at (%d,%d)", tile.ID, x, y)
				}
				if covered[y][x] {
					t.Errorf("Pixel (%d,%d) is covered by multiple tiles", x, y)
				}
				covered[y][x] = true
			}
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !covered[y][x] {
				t.Errorf("Pixel (%d,%d) is not covered by any tile", x, y)
			}
		}
	}
}

func TestTileDeterministicRandom(t *testing.T) {
	bounds := image.Rect(0, 0, 64, 64)
	tile1 := NewTile(42, bounds)
	tile2 := NewTile(42, bounds)

	val1 := tile1.Sampler.Get1D()
	val2 := tile2.Sampler.Get1D()

	if val1 != val2 {
		t.Errorf("Tiles with same ID should produce same random values: %f != %f", val1, val2)
	}

	tile3 := NewTile(43, bounds)
	val3 := tile3.Sampler.Get1D()

	if val1 == val3 {
		t.Error("Tiles with different IDs should produce different random values")
	}
}

func TestRenderProgressive_RGBConstant(t *testing.T) {
	system := spectra.NewSystem(spectra.RGBMode, color.SRGBD65, 2.2)
	gray := spectra.NewRGBDistribution(color.Gray(0.5))
	pr := NewProgressiveRenderer(constantTransport(gray), system, 10, 7, smallConfig(), nil)

	passChan, errChan := pr.RenderProgressive(context.Background())

	expectedSamples := []int{1, 3, 5}
	expectedXYZ := color.Gray(0.5).ToXYZ(color.SRGBD65)
	var results []PassResult
	for result := range passChan {
		results = append(results, result)
	}
	if err := <-errChan; err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(results) != len(expectedSamples) {
		t.Fatalf("Expected %d passes, got %d", len(expectedSamples), len(results))
	}
	for i, result := range results {
		if result.PassNumber != i+1 {
			t.Errorf("Expected pass %d, got %d", i+1, result.PassNumber)
		}
		if result.Stats.SamplesPerPixel != expectedSamples[i] {
			t.Errorf("Pass %d: expected %d samples, got %d", i+1, expectedSamples[i], result.Stats.SamplesPerPixel)
		}
		if result.IsLast != (i == len(results)-1) {
			t.Errorf("Pass %d: unexpected IsLast %v", i+1, result.IsLast)
		}
		if result.Stats.TotalPixels != 70 || result.Stats.BlackPixels != 0 {
			t.Errorf("Pass %d: unexpected pixel counts %+v", i+1, result.Stats)
		}

		// Every sample is identical, so the average is exact up to rounding
		for p, xyz := range result.HDR.Pixels {
			for c := range xyz {
				if math.Abs(xyz[c]-expectedXYZ[c]) > 1e-12 {
					t.Fatalf("Pass %d pixel %d: expected %v, got %v", i+1, p, expectedXYZ, xyz)
				}
			}
		}
	}

	// All pixels are equal, so the LDR image is uniform and lit
	last := results[len(results)-1].Image
	for _, p := range last.Pixels {
		if p != last.Pixels[0] || p.G() == 0 {
			t.Fatalf("Expected a uniform gray image, got %#x and %#x", uint32(p), uint32(last.Pixels[0]))
		}
	}
}

func TestRenderProgressive_SnapshotsAreIndependent(t *testing.T) {
	system := spectra.NewSystem(spectra.RGBMode, color.SRGBD65, 2.2)
	// Brightness grows with every call, so each pass changes the image
	calls := 0.0
	transport := TransportFunc(func(u, v float64, w spectra.SampledWavelengths, _ core.Sampler) spectra.SampledSpectra {
		calls++
		return spectra.Sample(spectra.NewRGBDistribution(color.Gray(calls)), w)
	})
	config := smallConfig()
	config.NumWorkers = 1
	pr := NewProgressiveRenderer(transport, system, 2, 2, config, nil)

	passChan, errChan := pr.RenderProgressive(context.Background())
	var results []PassResult
	for result := range passChan {
		results = append(results, result)
	}
	if err := <-errChan; err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	first, last := results[0].HDR.At(0, 0), results[len(results)-1].HDR.At(0, 0)
	if !(last.Y() > first.Y()) {
		t.Errorf("Expected later passes to be brighter: first %v, last %v", first, last)
	}
}

func TestRenderProgressive_SpectralIsUnbiased(t *testing.T) {
	system := spectra.DefaultSystem()
	d := spectra.NewDistribution(spectra.SpectraRepresentation)
	d.Fill(1)
	expected := system.ToXYZ(d)

	config := smallConfig()
	config.MaxSamplesPerPixel = 16
	config.MaxPasses = 1
	pr := NewProgressiveRenderer(constantTransport(d), system, 16, 16, config, nil)
	defer pr.Close()

	hdr, _, stats, err := pr.RenderPass(context.Background(), 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.SamplesPerPixel != 16 {
		t.Errorf("Expected 16 samples, got %d", stats.SamplesPerPixel)
	}

	var mean color.XYZ
	for _, xyz := range hdr.Pixels {
		mean = mean.Add(xyz)
	}
	mean = mean.MulScalar(1.0 / float64(len(hdr.Pixels)))
	for c := range mean {
		if math.Abs(mean[c]-expected[c]) > 0.05*expected[c] {
			t.Errorf("Channel %d: expected %g, got %g", c, expected[c], mean[c])
		}
	}
	if math.Abs(stats.AverageLuminance-mean.Y()) > 1e-9 {
		t.Errorf("Stats average %g does not match image mean %g", stats.AverageLuminance, mean.Y())
	}
}

func TestRenderProgressive_Cancelled(t *testing.T) {
	system := spectra.DefaultSystem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := spectra.NewDistribution(spectra.SpectraRepresentation)
	pr := NewProgressiveRenderer(constantTransport(d), system, 4, 4, smallConfig(), nil)
	passChan, errChan := pr.RenderProgressive(ctx)

	for result := range passChan {
		t.Errorf("Unexpected pass %d after cancellation", result.PassNumber)
	}
	if err := <-errChan; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRenderPass_AfterClose(t *testing.T) {
	system := spectra.NewSystem(spectra.RGBMode, color.SRGBD65, 2.2)
	d := spectra.NewRGBDistribution(color.Gray(0.5))
	pr := NewProgressiveRenderer(constantTransport(d), system, 4, 4, smallConfig(), nil)

	passChan, errChan := pr.RenderProgressive(context.Background())
	for range passChan {
	}
	if err := <-errChan; err != nil {
		t.Fatalf("Unexpected render error: %v", err)
	}

	// RenderProgressive stopped the pool on return
	_, _, _, err := pr.RenderPass(context.Background(), 1)
	if !errors.Is(err, ErrRendererClosed) {
		t.Errorf("Expected ErrRendererClosed, got %v", err)
	}
	pr.Close()
}

func TestRenderProgressive_InvalidRadianceIsAnError(t *testing.T) {
	system := spectra.NewSystem(spectra.RGBMode, color.SRGBD65, 2.2)
	transport := TransportFunc(func(u, v float64, w spectra.SampledWavelengths, _ core.Sampler) spectra.SampledSpectra {
		s := spectra.NewSampledSpectra(w)
		if u > 0.5 {
			s.Intensities[0] = math.NaN()
		}
		return s
	})
	pr := NewProgressiveRenderer(transport, system, 8, 8, smallConfig(), nil)
	passChan, errChan := pr.RenderProgressive(context.Background())

	for result := range passChan {
		t.Errorf("Unexpected pass %d", result.PassNumber)
	}
	if err := <-errChan; err == nil {
		t.Error("Expected an error for NaN radiance")
	}
}
