package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
	"github.com/df07/go-spectral-film/pkg/loaders"
	"github.com/df07/go-spectral-film/pkg/renderer"
	"github.com/df07/go-spectral-film/pkg/scene"
	"github.com/df07/go-spectral-film/pkg/spectra"
	"github.com/df07/go-spectral-film/pkg/tonemap"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownScene is returned when a scene is neither built in nor a settings file
var ErrUnknownScene = errors.New("unknown scene")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// renderOptions holds the render command flags
type renderOptions struct {
	scene        string
	output       string
	hdrOutput    string
	allOperators bool

	width, height int
	passes        int
	samples       int
	threads       int
	operator      string
	exposure      float64
	colorMode     string
	sampling      string
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "spectral-film",
		Short:        "Spectral film and tone mapping for test pattern renders",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	newLogger := func(cmd *cobra.Command) (*slog.Logger, error) {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		return core.NewDefaultLogger(cmd.ErrOrStderr(), level), nil
	}

	root.AddCommand(newRenderCmd(newLogger), newSpectrumCmd(), newListCmd(newLogger))
	return root
}

func newRenderCmd(newLogger func(*cobra.Command) (*slog.Logger, error)) *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a scene progressively and write the tone mapped image",
		Long: "Render a built-in scene (chart, ramp) or a TOML/YAML settings file.\n" +
			"Flags override the values from the settings file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			settings, err := loadSceneSettings(opts.scene)
			if err != nil {
				return err
			}
			if err := applyOverrides(cmd, &opts, settings); err != nil {
				return err
			}
			return runRender(cmd.Context(), opts, settings, logger)
		},
	}

	bindRenderFlags(cmd, &opts)
	return cmd
}

// bindRenderFlags registers the render flags on cmd
func bindRenderFlags(cmd *cobra.Command, opts *renderOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.scene, "scene", "s", "chart", "built-in scene id or settings file")
	f.StringVarP(&opts.output, "output", "o", "", "output image (.png, .tiff or .bmp); defaults to output/<scene>/render_<timestamp>.png")
	f.StringVar(&opts.hdrOutput, "hdr", "", "also write the HDR image as Radiance RGBE")
	f.BoolVar(&opts.allOperators, "all-operators", false, "write one image per tone mapping operator")
	f.IntVar(&opts.width, "width", 0, "image width")
	f.IntVar(&opts.height, "height", 0, "image height")
	f.IntVar(&opts.passes, "passes", 0, "number of progressive passes")
	f.IntVar(&opts.samples, "samples", 0, "samples per pixel after the last pass")
	f.IntVar(&opts.threads, "threads", 0, "worker count (0 = CPU count)")
	f.StringVar(&opts.operator, "operator", "", "tone mapping operator: "+kindList())
	f.Float64Var(&opts.exposure, "exposure", 0, "exposure multiplier")
	f.StringVar(&opts.colorMode, "color-mode", "", "rgb or spectra")
	f.StringVar(&opts.sampling, "sampling", "", "wavelength sampling: rgb, regular, random or stratified")
}

func kindList() string {
	var names []string
	for _, k := range tonemap.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

// loadSceneSettings resolves a built-in scene id or loads a settings file
func loadSceneSettings(sceneArg string) (*loaders.Settings, error) {
	if settings, ok := scene.BuiltInSettings(sceneArg); ok {
		return settings, nil
	}
	if _, err := loaders.DecoderForPath(sceneArg); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, sceneArg)
	}
	return loaders.LoadSettings(sceneArg)
}

// applyOverrides copies every flag the user set onto the settings and
// validates the result
func applyOverrides(cmd *cobra.Command, opts *renderOptions, s *loaders.Settings) error {
	f := cmd.Flags()
	if f.Changed("width") {
		s.System.Width = opts.width
	}
	if f.Changed("height") {
		s.System.Height = opts.height
	}
	if f.Changed("passes") {
		s.Render.Passes = opts.passes
	}
	if f.Changed("samples") {
		s.Render.MaxSamples = opts.samples
	}
	if f.Changed("threads") {
		s.System.Threads = opts.threads
	}
	if f.Changed("operator") {
		s.ToneMap.Operator = opts.operator
	}
	if f.Changed("exposure") {
		s.ToneMap.Exposure = opts.exposure
	}
	if f.Changed("color-mode") {
		s.System.ColorMode = opts.colorMode
	}
	if f.Changed("sampling") {
		s.System.WavelengthSampling = opts.sampling
	}
	return s.Validate()
}

// defaultOutputPath returns output/<scene>/render_<timestamp>.png
func defaultOutputPath(sceneArg string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(sceneArg), filepath.Ext(sceneArg))
	return filepath.Join("output", name, fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
}

func runRender(ctx context.Context, opts renderOptions, settings *loaders.Settings, logger *slog.Logger) error {
	s, err := scene.NewScene(settings)
	if err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = defaultOutputPath(opts.scene, time.Now())
	}
	if _, err := film.FormatFromPath(output); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logger.Info("preparing color tables", "color_mode", s.System.ColorMode)
	s.System.Prepare()

	startTime := time.Now()
	pr := renderer.NewProgressiveRenderer(s.Transport, s.System, s.Width, s.Height, s.Config, logger)
	passChan, errChan := pr.RenderProgressive(ctx)

	var final *renderer.PassResult
	for result := range passChan {
		final = &result
	}
	if err := <-errChan; err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if final == nil {
		return errors.New("render produced no passes")
	}
	logger.Info("render completed",
		"duration", time.Since(startTime),
		"samples", final.Stats.SamplesPerPixel,
		"average_luminance", final.Stats.AverageLuminance,
		"white_point", final.Stats.WhitePoint)

	if err := film.WriteLDR(output, final.Image); err != nil {
		return err
	}
	logger.Info("image saved", "file", output, "operator", s.Config.ToneMap)

	if opts.hdrOutput != "" {
		if err := film.WriteRGBE(opts.hdrOutput, final.HDR, s.System.ColorSpace); err != nil {
			return err
		}
		logger.Info("HDR image saved", "file", opts.hdrOutput)
	}

	if opts.allOperators {
		return writeAllOperators(ctx, s, final.HDR, output, logger)
	}
	return nil
}

// operatorPath inserts the operator name before the extension
func operatorPath(output string, kind tonemap.Kind) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "_" + kind.String() + ext
}

// writeAllOperators tone maps hdr with every operator concurrently and
// writes one image per operator
func writeAllOperators(ctx context.Context, s *scene.Scene, hdr *film.HDRImage, output string, logger core.Logger) error {
	pool := core.NewWorkerPool(s.Config.NumWorkers)
	defer pool.Stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range tonemap.Kinds() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			op := tonemap.New(kind, s.System, s.Config.ToneMapParams)
			ldr := film.NewLDRImage(hdr.Width, hdr.Height)
			op.Map(pool, hdr, ldr)

			path := operatorPath(output, kind)
			if err := film.WriteLDR(path, ldr); err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			logger.Info("image saved", "file", path, "operator", kind)
			return nil
		})
	}
	return g.Wait()
}

func newSpectrumCmd() *cobra.Command {
	var (
		colorSpace string
		reflective bool
	)

	cmd := &cobra.Command{
		Use:   "spectrum R G B",
		Short: "Print the upsampled spectrum of a linear RGB color and its round trip",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rgb color.RGB
			for i, arg := range args {
				if _, err := fmt.Sscanf(arg, "%g", &rgb[i]); err != nil {
					return fmt.Errorf("invalid component %q: %w", arg, err)
				}
			}
			space, err := color.ParseColorSpace(colorSpace)
			if err != nil {
				return err
			}
			return printSpectrum(cmd.OutOrStdout(), rgb, space, reflective)
		},
	}
	cmd.Flags().StringVar(&colorSpace, "color-space", color.SRGBD65.String(), "RGB color space")
	cmd.Flags().BoolVar(&reflective, "reflective", false, "clamp to [0,1] like a surface reflectance")
	return cmd
}

// printSpectrum writes one "wavelength,value" row per bin followed by the
// XYZ of the input and the RGB recovered from the spectrum
func printSpectrum(w io.Writer, rgb color.RGB, space color.ColorSpace, reflective bool) error {
	system := spectra.NewSystem(spectra.SpectraMode, space, 1)
	xyz := rgb.ToXYZ(space)
	d := system.Upsampler().ToSpectra(xyz)
	if reflective {
		d = d.ClampAll(0, 1)
	}

	if _, err := fmt.Fprintln(w, "wavelength,value"); err != nil {
		return err
	}
	for i := 0; i < d.Size(); i++ {
		if _, err := fmt.Fprintf(w, "%d,%.6f\n", d.WavelengthOf(i), d.Get(i)); err != nil {
			return err
		}
	}

	back := d.ToXYZForReflector(system)
	out := back.ToRGB(space)
	_, err := fmt.Fprintf(w, "# xyz in  %.6f %.6f %.6f\n# xyz out %.6f %.6f %.6f\n# rgb out %.6f %.6f %.6f\n",
		xyz.X(), xyz.Y(), xyz.Z(),
		back.X(), back.Y(), back.Z(),
		out.Red(), out.Green(), out.Blue())
	return err
}

func newListCmd(newLogger func(*cobra.Command) (*slog.Logger, error)) *cobra.Command {
	var (
		dir    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in scenes and the settings files in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			response, err := scene.ListAllScenes(dir, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(response)
			}
			for _, group := range response.Groups {
				fmt.Fprintf(out, "%s:\n", group.Name)
				for _, s := range group.Scenes {
					id := s.ID
					if s.FilePath != "" {
						id = s.FilePath
					}
					fmt.Fprintf(out, "  %-32s %s\n", id, s.DisplayName)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "scenes", "directory of settings files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
