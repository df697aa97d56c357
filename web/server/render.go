package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
	"github.com/df07/go-spectral-film/pkg/renderer"
)

// PassUpdate represents a single progressive update sent via SSE
type PassUpdate struct {
	PassNumber  int    `json:"passNumber"`
	TotalPasses int    `json:"totalPasses"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG
	Stats       Stats  `json:"stats"`
	IsComplete  bool   `json:"isComplete"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// Stats represents render statistics
type Stats struct {
	TotalPixels         int     `json:"totalPixels"`
	TotalSamples        int     `json:"totalSamples"`
	SamplesPerPixel     int     `json:"samplesPerPixel"`
	MaxSamples          int     `json:"maxSamples"`
	AverageLuminance    float64 `json:"averageLuminance"`
	LogAverageLuminance float64 `json:"logAverageLuminance"`
	WhitePoint          float64 `json:"whitePoint"`
	BlackPixels         int     `json:"blackPixels"`
}

// sseWriter writes Server-Sent Events. It is only used from the handler
// goroutine.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// send writes one event and flushes it to the client
func (e *sseWriter) send(event, data string) error {
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// sendJSON writes one event with a JSON payload
func (e *sseWriter) sendJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return e.send(event, string(data))
}

// handleRender handles progressive rendering requests with SSE
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	s.setSSEHeaders(w)
	events := &sseWriter{w: w, flusher: flusher}
	ctx := r.Context()

	settings, err := s.parseRenderParams(r)
	if err != nil {
		events.send("error", fmt.Sprintf("Invalid request: %v", err))
		return
	}

	consoleChan, webLogger := s.setupConsoleLogging()

	sc, err := newScene(settings, webLogger)
	if err != nil {
		events.send("error", err.Error())
		return
	}

	startTime := time.Now()
	pr := renderer.NewProgressiveRenderer(sc.Transport, sc.System, sc.Width, sc.Height, sc.Config, webLogger)
	passChan, errChan := pr.RenderProgressive(ctx)

	s.handleRenderingEvents(ctx, events, consoleChan, passChan, errChan, sc.Config.MaxPasses, startTime)
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// setupConsoleLogging creates the console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	return consoleChan, NewWebLogger(renderID, consoleChan, s.logger)
}

// handleRenderingEvents forwards console messages and passes to the client
// until the renderer closes its pass channel
func (s *Server) handleRenderingEvents(ctx context.Context, events *sseWriter, consoleChan <-chan ConsoleMessage,
	passChan <-chan renderer.PassResult, errChan <-chan error, totalPasses int, startTime time.Time) {

	for passChan != nil {
		select {
		case msg := <-consoleChan:
			if err := events.sendJSON("console", msg); err != nil {
				return
			}

		case result, ok := <-passChan:
			if !ok {
				passChan = nil
				continue
			}
			if err := s.sendPass(events, result, totalPasses, startTime); err != nil {
				s.logger.Warn("failed to send pass", "pass", result.PassNumber, "error", err)
				return
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}

	// Flush whatever the renderer logged after the last pass
	for len(consoleChan) > 0 {
		if err := events.sendJSON("console", <-consoleChan); err != nil {
			return
		}
	}

	if err := <-errChan; err != nil {
		events.send("error", fmt.Sprintf("Rendering failed: %v", err))
		return
	}
	events.send("complete", "Rendering completed")
}

// sendPass encodes the tone mapped image of a pass and sends it
func (s *Server) sendPass(events *sseWriter, result renderer.PassResult, totalPasses int, startTime time.Time) error {
	imageData, err := imageToBase64PNG(result.Image)
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	update := PassUpdate{
		PassNumber:  result.PassNumber,
		TotalPasses: totalPasses,
		ImageData:   imageData,
		Stats: Stats{
			TotalPixels:         result.Stats.TotalPixels,
			TotalSamples:        result.Stats.TotalSamples,
			SamplesPerPixel:     result.Stats.SamplesPerPixel,
			MaxSamples:          result.Stats.MaxSamples,
			AverageLuminance:    result.Stats.AverageLuminance,
			LogAverageLuminance: result.Stats.LogAverageLum,
			WhitePoint:          result.Stats.WhitePoint,
			BlackPixels:         result.Stats.BlackPixels,
		},
		IsComplete: result.IsLast,
		ElapsedMs:  time.Since(startTime).Milliseconds(),
	}
	return events.sendJSON("passComplete", update)
}

// imageToBase64PNG converts an LDR image to base64-encoded PNG
func imageToBase64PNG(img *film.LDRImage) (string, error) {
	var buf bytes.Buffer
	if err := film.EncodeLDR(&buf, film.FormatPNG, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
