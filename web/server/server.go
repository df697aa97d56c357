package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/loaders"
	"github.com/df07/go-spectral-film/pkg/scene"
)

// ErrUnknownScene is returned for scene ids that are neither built in nor
// a settings file of the scenes directory
var ErrUnknownScene = errors.New("unknown scene")

// Request limits shared by the render and inspect endpoints
const (
	minDimension = 16
	maxDimension = 2000
	maxSamples   = 10000
	maxPasses    = 10000
	minExposure  = 1e-3
	maxExposure  = 1e3
)

// Server handles web requests for the progressive spectral renderer
type Server struct {
	port      int
	scenesDir string
	staticDir string
	logger    *slog.Logger
}

// NewServer creates a new web server. Settings files are listed from
// scenesDir; staticDir is served at / when not empty.
func NewServer(port int, scenesDir, staticDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:      port,
		scenesDir: scenesDir,
		staticDir: staticDir,
		logger:    logger,
	}
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	mux.HandleFunc("GET /api/render", s.handleRender)
	mux.HandleFunc("GET /api/inspect", s.handleInspect)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/scenes", s.handleScenes)
	mux.HandleFunc("GET /api/scene-config", s.handleSceneConfig)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown failed", "error", err)
		}
	}()

	s.logger.Info("starting web server", "addr", fmt.Sprintf("http://localhost:%d", s.port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes and the settings files
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes(s.scenesDir, s.logger)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// loadSettings resolves a built-in id or the "file:<name>" id of a settings
// file in the scenes directory. Arbitrary paths are never opened.
func (s *Server) loadSettings(id string) (*loaders.Settings, error) {
	if settings, ok := scene.BuiltInSettings(id); ok {
		return settings, nil
	}
	files, err := scene.ListSceneFiles(s.scenesDir, s.logger)
	if err != nil {
		return nil, err
	}
	for _, info := range files {
		if info.ID == id {
			return loaders.LoadSettings(info.FilePath)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownScene, id)
}

// parseSceneParams loads the requested scene and applies the query
// overrides shared by every endpoint
func (s *Server) parseSceneParams(r *http.Request) (*loaders.Settings, error) {
	values := r.URL.Query()
	id := values.Get("scene")
	if id == "" {
		id = "chart" // Default scene
	}

	settings, err := s.loadSettings(id)
	if err != nil {
		return nil, err
	}

	if settings.System.Width, err = parseIntParam(values, "width", settings.System.Width, minDimension, maxDimension); err != nil {
		return nil, err
	}
	if settings.System.Height, err = parseIntParam(values, "height", settings.System.Height, minDimension, maxDimension); err != nil {
		return nil, err
	}
	if v := values.Get("colorMode"); v != "" {
		settings.System.ColorMode = v
	}
	if v := values.Get("sampling"); v != "" {
		settings.System.WavelengthSampling = v
	}
	return settings, nil
}

// parseRenderParams adds the render-only parameters and validates the result
func (s *Server) parseRenderParams(r *http.Request) (*loaders.Settings, error) {
	settings, err := s.parseSceneParams(r)
	if err != nil {
		return nil, err
	}

	values := r.URL.Query()
	if settings.Render.MaxSamples, err = parseIntParam(values, "maxSamples", settings.Render.MaxSamples, 1, maxSamples); err != nil {
		return nil, err
	}
	if settings.Render.Passes, err = parseIntParam(values, "maxPasses", settings.Render.Passes, 1, maxPasses); err != nil {
		return nil, err
	}
	if settings.ToneMap.Exposure, err = parseFloatParam(values, "exposure", settings.ToneMap.Exposure, minExposure, maxExposure); err != nil {
		return nil, err
	}
	if v := values.Get("operator"); v != "" {
		settings.ToneMap.Operator = v
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	// Performance warning
	if settings.System.Width*settings.System.Height > 800*600 && settings.Render.MaxSamples > 100 {
		s.logger.Warn("large image with high samples may render slowly",
			"width", settings.System.Width, "height", settings.System.Height, "max_samples", settings.Render.MaxSamples)
	}
	return settings, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("scene")
	if id == "" {
		id = "chart" // Default scene
	}

	settings, err := s.loadSettings(id)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	type intRange struct {
		Min int `json:"min"`
		Max int `json:"max"`
	}
	type floatRange struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}

	response := map[string]any{
		"scene":    id,
		"defaults": settings,
		"limits": map[string]any{
			"width":      intRange{minDimension, maxDimension},
			"height":     intRange{minDimension, maxDimension},
			"maxSamples": intRange{1, maxSamples},
			"maxPasses":  intRange{1, maxPasses},
			"exposure":   floatRange{minExposure, maxExposure},
		},
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", "error", err)
	}
}

// newScene builds the scene for validated settings and logs through logger
func newScene(settings *loaders.Settings, logger core.Logger) (*scene.Scene, error) {
	sc, err := scene.NewScene(settings)
	if err != nil {
		return nil, err
	}
	logger.Debug("scene created", "name", sc.Name, "width", sc.Width, "height", sc.Height)
	return sc, nil
}
