// Package server exposes the chat service over HTTP: a streaming exchange
// endpoint, a history read endpoint, and the static frontend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/auccello/amanda-go/internal/history"
	"github.com/auccello/amanda-go/internal/logger"
	"github.com/auccello/amanda-go/internal/pipeline"
)

// Exchanger runs one streamed conversational exchange.
type Exchanger interface {
	Exchange(ctx context.Context, prompt string, sink pipeline.EventSink) error
}

// Reconstructor yields the full ordered history.
type Reconstructor interface {
	Reconstruct(ctx context.Context) ([]history.Message, error)
}

// Server holds the HTTP handlers.
type Server struct {
	pipe        Exchanger
	hist        Reconstructor
	frontendDir string
}

// New creates a Server.
func New(pipe Exchanger, hist Reconstructor, frontendDir string) *Server {
	return &Server{pipe: pipe, hist: hist, frontendDir: frontendDir}
}

// Routes returns the request multiplexer.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.serveFile("chat_frontend.html", "text/html"))
	mux.HandleFunc("GET /chat_app.ts", s.serveFile("chat_frontend.ts", "text/plain"))
	mux.HandleFunc("GET /favicon.png", s.serveFile("favicon.png", "image/png"))
	mux.HandleFunc("GET /chat/", s.handleGetChat)
	mux.HandleFunc("POST /chat/", s.handlePostChat)
	return mux
}

func (s *Server) serveFile(name, contentType string) http.HandlerFunc {
	path := filepath.Join(s.frontendDir, name)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		http.ServeFile(w, r, path)
	}
}

// handleGetChat returns the reconstructed history as newline-delimited JSON.
func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.hist.Reconstruct(r.Context())
	if err != nil {
		logger.L.Error("history reconstruction failed", "error", err)
		http.Error(w, "failed to load chat history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	enc := json.NewEncoder(w)
	for _, m := range msgs {
		ev, ok := pipeline.FromMessage(m)
		if !ok {
			continue
		}
		if err := enc.Encode(ev); err != nil {
			logger.L.Warn("history write failed", "error", err)
			return
		}
	}
}

// handlePostChat streams one exchange as newline-delimited JSON.
func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	if prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}
	logger.L.Info("chat request", "prompt", prompt)

	w.Header().Set("Content-Type", "text/plain")
	sink := newFlushSink(w)

	if err := s.pipe.Exchange(r.Context(), prompt, sink); err != nil {
		if errors.Is(err, pipeline.ErrEmptyPrompt) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Events may already be on the wire; the stream just ends here and
		// the failure is logged as the terminal outcome of this exchange.
		logger.L.Error("exchange failed", "error", err)
	}
}

// flushSink writes each event as one JSON line and flushes it immediately,
// so the client sees the user message before the model finishes.
type flushSink struct {
	w http.ResponseWriter
	f http.Flusher
}

func newFlushSink(w http.ResponseWriter) *flushSink {
	f, _ := w.(http.Flusher)
	return &flushSink{w: w, f: f}
}

func (s *flushSink) Emit(ev pipeline.Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return err
	}
	if s.f != nil {
		s.f.Flush()
	}
	return nil
}
