package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sync"
	"time"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
	"github.com/df07/go-spectral-film/pkg/spectra"
	"github.com/df07/go-spectral-film/pkg/tonemap"
)

// ErrRendererClosed is returned when a pass is requested after Close
var ErrRendererClosed = errors.New("renderer is closed")

// ProgressiveConfig contains configuration for progressive rendering
type ProgressiveConfig struct {
	TileSize           int // Size of each tile (64x64 recommended)
	InitialSamples     int // Samples for first pass (1 recommended)
	MaxSamplesPerPixel int // Maximum total samples per pixel
	MaxPasses          int // Maximum number of passes
	NumWorkers         int // Number of parallel workers (0 = use CPU count)

	WavelengthSampling spectra.SamplingMode // Ignored for RGB mode systems
	ToneMap            tonemap.Kind
	ToneMapParams      tonemap.Params
}

// DefaultProgressiveConfig returns sensible default values
func DefaultProgressiveConfig() ProgressiveConfig {
	return ProgressiveConfig{
		TileSize:           64,
		InitialSamples:     1,
		MaxSamplesPerPixel: 50,
		MaxPasses:          7, // 1, 9, 17, ... then the remainder on the last pass
		NumWorkers:         0, // Auto-detect CPU count
		WavelengthSampling: spectra.StratifiedSampling,
		ToneMap:            tonemap.ModifiedReinhard,
		ToneMapParams:      tonemap.DefaultParams(),
	}
}

// Validate checks the pass schedule
func (c ProgressiveConfig) Validate() error {
	switch {
	case c.TileSize <= 0:
		return fmt.Errorf("tile size must be positive, got %d", c.TileSize)
	case c.MaxPasses <= 0:
		return fmt.Errorf("max passes must be positive, got %d", c.MaxPasses)
	case c.InitialSamples <= 0:
		return fmt.Errorf("initial samples must be positive, got %d", c.InitialSamples)
	case c.MaxSamplesPerPixel < c.InitialSamples:
		return fmt.Errorf("max samples per pixel (%d) is below initial samples (%d)", c.MaxSamplesPerPixel, c.InitialSamples)
	case !(c.ToneMapParams.Exposure > 0):
		return fmt.Errorf("exposure must be positive, got %g", c.ToneMapParams.Exposure)
	}
	return nil
}

// ProgressiveRenderer accumulates samples into a film over several passes.
// After each pass the film is reduced to an HDR image and tone mapped.
type ProgressiveRenderer struct {
	transport     Transport
	system        *spectra.System
	width, height int
	config        ProgressiveConfig
	tiles         []*Tile
	film          film.Film
	tileRenderer  *TileRenderer
	operator      tonemap.Operator
	workerPool    *core.WorkerPool
	logger        core.Logger

	samplesTaken int // samples per pixel accumulated in the film
	hdr          *film.HDRImage
	ldr          *film.LDRImage
}

// NewProgressiveRenderer creates a renderer for a width x height image.
// The caller must run Validate on config first.
func NewProgressiveRenderer(transport Transport, system *spectra.System, width, height int, config ProgressiveConfig, logger core.Logger) *ProgressiveRenderer {
	if logger == nil {
		logger = core.NopLogger{}
	}

	f := film.NewFilm(system, width, height)
	wavelengths := spectra.NewWavelengthSampler(system, config.WavelengthSampling)

	return &ProgressiveRenderer{
		transport:    transport,
		system:       system,
		width:        width,
		height:       height,
		config:       config,
		tiles:        NewTileGrid(width, height, config.TileSize),
		film:         f,
		tileRenderer: NewTileRenderer(transport, f, wavelengths),
		operator:     tonemap.New(config.ToneMap, system, config.ToneMapParams),
		workerPool:   core.NewWorkerPool(config.NumWorkers),
		logger:       logger,
		hdr:          film.NewHDRImage(width, height),
		ldr:          film.NewLDRImage(width, height),
	}
}

// Close stops the worker pool. RenderProgressive calls it when done.
func (pr *ProgressiveRenderer) Close() {
	pr.workerPool.Stop()
}

// getSamplesForPass calculates the target total samples for a given pass
func (pr *ProgressiveRenderer) getSamplesForPass(passNumber int) int {
	// Special case: if only 1 pass, use all samples
	if pr.config.MaxPasses == 1 {
		return pr.config.MaxSamplesPerPixel
	}

	if passNumber == 1 {
		return pr.config.InitialSamples
	}

	// Divide remaining samples evenly across remaining passes
	remainingSamples := pr.config.MaxSamplesPerPixel - pr.config.InitialSamples
	remainingPasses := pr.config.MaxPasses - 1
	samplesPerPass := remainingSamples / remainingPasses

	targetSamples := pr.config.InitialSamples + (passNumber-1)*samplesPerPass

	// For the final pass, use all remaining samples
	if passNumber == pr.config.MaxPasses {
		targetSamples = pr.config.MaxSamplesPerPixel
	}

	return targetSamples
}

// RenderPass brings every pixel up to the pass's target sample count, then
// reduces the film to HDR and tone maps it. The returned images are the
// renderer's own buffers and are overwritten by the next pass.
func (pr *ProgressiveRenderer) RenderPass(ctx context.Context, passNumber int) (*film.HDRImage, *film.LDRImage, RenderStats, error) {
	if pr.workerPool.Stopped() {
		return nil, nil, RenderStats{}, ErrRendererClosed
	}
	startTime := time.Now()
	targetSamples := pr.getSamplesForPass(passNumber)
	newSamples := targetSamples - pr.samplesTaken

	pr.logger.Debug("rendering pass",
		"pass", passNumber,
		"target_samples", targetSamples,
		"workers", pr.workerPool.GetNumWorkers(),
		"tiles", len(pr.tiles))

	var (
		errOnce sync.Once
		tileErr error
	)
	task := pr.workerPool.EnqueueLoop(func(i int) {
		if ctx.Err() != nil {
			return
		}
		tile := pr.tiles[i]
		defer func() {
			if r := recover(); r != nil {
				errOnce.Do(func() { tileErr = fmt.Errorf("tile %d: %v", tile.ID, r) })
			}
		}()
		pr.tileRenderer.RenderTileBounds(tile.Bounds, tile.Sampler, newSamples)
		tile.PassesCompleted++
	}, 0, len(pr.tiles))
	task.Wait()

	if tileErr != nil {
		return nil, nil, RenderStats{}, fmt.Errorf("failed to render pass %d: %w", passNumber, tileErr)
	}
	if err := ctx.Err(); err != nil {
		// Tiles may have been skipped, so the film no longer holds a uniform sample count
		return nil, nil, RenderStats{}, err
	}
	pr.samplesTaken = targetSamples

	pr.film.ToHDRImage(pr.workerPool, targetSamples, pr.hdr)
	pr.operator.Map(pr.workerPool, pr.hdr, pr.ldr)

	stats := RenderStats{
		SamplesPerPixel: targetSamples,
		TotalSamples:    targetSamples * pr.width * pr.height,
		MaxSamples:      pr.config.MaxSamplesPerPixel,
	}
	CalculateLuminanceStats(pr.workerPool, pr.hdr, &stats)
	stats.Duration = time.Since(startTime)

	return pr.hdr, pr.ldr, stats, nil
}

// PassResult contains the result of a single pass. The images are snapshots
// owned by the receiver.
type PassResult struct {
	PassNumber int
	HDR        *film.HDRImage
	Image      *film.LDRImage
	Stats      RenderStats
	IsLast     bool
}

// RenderProgressive renders with channel-based communication.
// The pass channel is closed when rendering stops. At most one error is sent,
// including ctx.Err() on cancellation. The worker pool is stopped on return.
func (pr *ProgressiveRenderer) RenderProgressive(ctx context.Context) (<-chan PassResult, <-chan error) {
	passChan := make(chan PassResult, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(passChan)
		defer close(errChan)
		defer pr.Close()

		pr.logger.Info("starting progressive rendering",
			"passes", pr.config.MaxPasses,
			"max_samples", pr.config.MaxSamplesPerPixel,
			"width", pr.width, "height", pr.height,
			"color_mode", pr.system.ColorMode,
			"tonemap", pr.operator.Kind())

		for pass := 1; pass <= pr.config.MaxPasses; pass++ {
			// Check for cancellation before starting this pass
			select {
			case <-ctx.Done():
				pr.logger.Warn("rendering cancelled", "pass", pass)
				errChan <- ctx.Err()
				return
			default:
			}

			hdr, ldr, stats, err := pr.RenderPass(ctx, pass)
			if err != nil {
				errChan <- err
				return
			}

			pr.logger.Info("pass completed",
				"pass", pass,
				"duration", stats.Duration,
				"samples", stats.SamplesPerPixel,
				"white_point", stats.WhitePoint)

			isLast := pass == pr.config.MaxPasses || stats.SamplesPerPixel >= pr.config.MaxSamplesPerPixel
			result := PassResult{
				PassNumber: pass,
				HDR:        hdr.Clone(),
				Image:      ldr.Clone(),
				Stats:      stats,
				IsLast:     isLast,
			}

			select {
			case passChan <- result:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}

			if isLast {
				break
			}
		}
	}()

	return passChan, errChan
}

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID              int             // Unique tile identifier
	Bounds          image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	PassesCompleted int             // Number of passes completed for this tile
	Sampler         core.Sampler    // Tile-specific sampler for deterministic results
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	random := rand.New(rand.NewSource(int64(id + 42))) // +42 to avoid seed 0

	return &Tile{
		ID:      id,
		Bounds:  bounds,
		Sampler: core.NewRandomSampler(random),
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1)))
			tileID++
		}
	}

	return tiles
}
