// Package http implements the HTTP/JSON transport for shadowcast.
//
// This transport exposes the practice operations as a REST API: streamed text
// sessions (with server-sent progress events), narration control, and the
// non-streamed helpers. Swagger UI is served under /swagger/.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/shadowcast/docs"
	"github.com/nadzzz/shadowcast/internal/generation"
	"github.com/nadzzz/shadowcast/internal/lesson"
	"github.com/nadzzz/shadowcast/internal/narration"
	"github.com/nadzzz/shadowcast/internal/practice"
	"github.com/nadzzz/shadowcast/internal/provider"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// sessionPaths maps URL collections to session kinds.
var sessionPaths = map[string]string{
	"generations":  practice.KindGeneration,
	"translations": practice.KindTranslation,
	"explanations": practice.KindExplanation,
}

// Transport serves the practice service over HTTP.
type Transport struct {
	port   int
	svc    *practice.Service
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int, svc *practice.Service) *Transport {
	return &Transport{port: port, svc: svc}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the API routes.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /generations", t.handleStartGeneration)
	mux.HandleFunc("POST /translations", t.handleStartTranslation)
	mux.HandleFunc("POST /explanations", t.handleStartExplanation)
	for path, kind := range sessionPaths {
		mux.HandleFunc("GET /"+path+"/{id}", t.withController(kind, t.handleGetSession))
		mux.HandleFunc("GET /"+path+"/{id}/events", t.withController(kind, t.handleSessionEvents))
		mux.HandleFunc("DELETE /"+path+"/{id}", t.withController(kind, t.handleCancelSession))
		mux.HandleFunc("POST /"+path+"/retry", t.withController(kind, t.handleRetrySession))
	}

	mux.HandleFunc("POST /narrations", t.handleNarrate)
	mux.HandleFunc("GET /narrations/{id}", t.handleGetNarration)
	mux.HandleFunc("DELETE /narrations/{id}", t.handleStopNarration)
	mux.HandleFunc("POST /narrations/prefetch", t.handlePrefetch)
	mux.HandleFunc("POST /narrations/pause", t.handlePause)
	mux.HandleFunc("POST /narrations/resume", t.handleResume)
	mux.HandleFunc("POST /speech", t.handleSpeech)

	mux.HandleFunc("POST /phonetics", t.handlePhonetics)
	mux.HandleFunc("POST /chat", t.handleChat)
	mux.HandleFunc("GET /languages", t.handleLanguages)
	mux.HandleFunc("DELETE /cache/audio", t.handleClearCache)

	// Swagger UI over the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server.
func (t *Transport) Listen(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// prefetchResponse reports how many segments are being warmed up.
type prefetchResponse struct {
	Segments int `json:"segments"`
}

// textResponse carries a non-streamed completion.
type textResponse struct {
	Text string `json:"text"`
}

// clearResponse reports how many cache entries were dropped.
type clearResponse struct {
	Cleared int `json:"cleared"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var pe *provider.ProviderError
	switch {
	case errors.Is(err, practice.ErrValidation):
		status = http.StatusBadRequest
	case provider.IsAborted(err):
		status = http.StatusServiceUnavailable
	case errors.As(err, &pe):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

// handleStartGeneration starts streaming practice content.
//
// @Summary     Generate practice content
// @Description Starts a streamed generation session. Any previous generation session is cancelled.
// @Description Follow progress with GET /generations/{id}/events.
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request  body      lesson.Request  true  "What to generate"
// @Success     202  {object}  generation.Snapshot
// @Failure     400  {object}  errorResponse
// @Router      /generations [post]
func (t *Transport) handleStartGeneration(w http.ResponseWriter, r *http.Request) {
	var req lesson.Request
	if !decode(w, r, &req) {
		return
	}
	s, err := t.svc.StartGeneration(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

// handleStartTranslation starts a streamed translation.
//
// @Summary     Translate text
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request  body      practice.TranslateRequest  true  "Text and languages"
// @Success     202  {object}  generation.Snapshot
// @Failure     400  {object}  errorResponse
// @Router      /translations [post]
func (t *Transport) handleStartTranslation(w http.ResponseWriter, r *http.Request) {
	var req practice.TranslateRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := t.svc.StartTranslation(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

// handleStartExplanation starts a streamed word explanation.
//
// @Summary     Explain a word or phrase
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request  body      practice.ExplainRequest  true  "Word and languages"
// @Success     202  {object}  generation.Snapshot
// @Failure     400  {object}  errorResponse
// @Router      /explanations [post]
func (t *Transport) handleStartExplanation(w http.ResponseWriter, r *http.Request) {
	var req practice.ExplainRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := t.svc.StartExplanation(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

type controllerHandler func(w http.ResponseWriter, r *http.Request, c *generation.Controller)

func (t *Transport) withController(kind string, h controllerHandler) http.HandlerFunc {
	c, ok := t.svc.Controller(kind)
	if !ok {
		panic("no controller for " + kind)
	}
	return func(w http.ResponseWriter, r *http.Request) { h(w, r, c) }
}

func sessionByID(w http.ResponseWriter, r *http.Request, c *generation.Controller) (*generation.Session, bool) {
	s, ok := c.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
	}
	return s, ok
}

// handleGetSession returns a session snapshot.
//
// @Summary     Get a session
// @Tags        sessions
// @Produce     json
// @Param       kind  path      string  true  "generations, translations or explanations"
// @Param       id    path      string  true  "Session id"
// @Success     200  {object}  generation.Snapshot
// @Failure     404  {object}  errorResponse
// @Router      /{kind}/{id} [get]
func (t *Transport) handleGetSession(w http.ResponseWriter, r *http.Request, c *generation.Controller) {
	if s, ok := sessionByID(w, r, c); ok {
		writeJSON(w, http.StatusOK, s.Snapshot())
	}
}

// handleSessionEvents streams session progress as server-sent events.
//
// @Summary     Stream session progress
// @Description Emits "chunk" events with the displayed text, then one "complete" or "error" event.
// @Description A cancelled session ends the stream without a terminal event.
// @Tags        sessions
// @Produce     text/event-stream
// @Param       kind  path      string  true  "generations, translations or explanations"
// @Param       id    path      string  true  "Session id"
// @Success     200  {object}  generation.Event
// @Failure     404  {object}  errorResponse
// @Router      /{kind}/{id}/events [get]
func (t *Transport) handleSessionEvents(w http.ResponseWriter, r *http.Request, c *generation.Controller) {
	s, ok := sessionByID(w, r, c)
	if !ok {
		return
	}
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				slog.Error("encoding event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// handleCancelSession cancels a session.
//
// @Summary     Cancel a session
// @Tags        sessions
// @Param       kind  path  string  true  "generations, translations or explanations"
// @Param       id    path  string  true  "Session id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /{kind}/{id} [delete]
func (t *Transport) handleCancelSession(w http.ResponseWriter, r *http.Request, c *generation.Controller) {
	if !c.Cancel(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRetrySession restarts the last job of a kind as a new session.
//
// @Summary     Retry the last session
// @Tags        sessions
// @Produce     json
// @Param       kind  path      string  true  "generations, translations or explanations"
// @Success     202  {object}  generation.Snapshot
// @Failure     409  {object}  errorResponse
// @Router      /{kind}/retry [post]
func (t *Transport) handleRetrySession(w http.ResponseWriter, r *http.Request, c *generation.Controller) {
	s, err := c.Retry()
	if errors.Is(err, generation.ErrNoJob) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

// handleNarrate starts narrating text on the local audio output.
//
// @Summary     Narrate text
// @Description Segments the text and plays it in order, prefetching ahead. Any narration in progress is stopped.
// @Tags        narration
// @Accept      json
// @Produce     json
// @Param       request  body      practice.NarrateRequest  true  "Text and voice options"
// @Success     202  {object}  narration.RunStatus
// @Failure     400  {object}  errorResponse
// @Router      /narrations [post]
func (t *Transport) handleNarrate(w http.ResponseWriter, r *http.Request) {
	var req practice.NarrateRequest
	if !decode(w, r, &req) {
		return
	}
	run, err := t.svc.Narrate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run.Status())
}

func (t *Transport) runByID(w http.ResponseWriter, r *http.Request) (*narration.Run, bool) {
	run, ok := t.svc.Narrator().Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown narration"})
	}
	return run, ok
}

// handleGetNarration returns the status of a narration run.
//
// @Summary     Get a narration
// @Tags        narration
// @Produce     json
// @Param       id  path      string  true  "Run id"
// @Success     200  {object}  narration.RunStatus
// @Failure     404  {object}  errorResponse
// @Router      /narrations/{id} [get]
func (t *Transport) handleGetNarration(w http.ResponseWriter, r *http.Request) {
	if run, ok := t.runByID(w, r); ok {
		writeJSON(w, http.StatusOK, run.Status())
	}
}

// handleStopNarration stops a narration run.
//
// @Summary     Stop a narration
// @Tags        narration
// @Param       id  path  string  true  "Run id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /narrations/{id} [delete]
func (t *Transport) handleStopNarration(w http.ResponseWriter, r *http.Request) {
	run, ok := t.runByID(w, r)
	if !ok {
		return
	}
	run.Stop()
	<-run.Done()
	w.WriteHeader(http.StatusNoContent)
}

// handlePrefetch warms the audio cache for text.
//
// @Summary     Prefetch narration audio
// @Description Best effort: synthesis failures are ignored.
// @Tags        narration
// @Accept      json
// @Produce     json
// @Param       request  body      practice.NarrateRequest  true  "Text and voice options"
// @Success     202  {object}  prefetchResponse
// @Router      /narrations/prefetch [post]
func (t *Transport) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	var req practice.NarrateRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusAccepted, prefetchResponse{Segments: t.svc.Prefetch(req)})
}

// handlePause pauses the current sound.
//
// @Summary     Pause playback
// @Tags        narration
// @Success     204
// @Failure     500  {object}  errorResponse
// @Router      /narrations/pause [post]
func (t *Transport) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := t.svc.Narrator().Pause(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResume resumes a paused sound.
//
// @Summary     Resume playback
// @Tags        narration
// @Success     204
// @Failure     500  {object}  errorResponse
// @Router      /narrations/resume [post]
func (t *Transport) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := t.svc.Narrator().Resume(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSpeech returns the synthesized audio of a short text.
//
// @Summary     Synthesize text
// @Description Returns the audio bytes, served from the audio cache when the same text was spoken before.
// @Tags        narration
// @Accept      json
// @Produce     audio/mpeg
// @Produce     audio/wav
// @Param       request  body  practice.NarrateRequest  true  "Text and voice options"
// @Success     200  {file}    binary
// @Failure     400  {object}  errorResponse
// @Failure     502  {object}  errorResponse
// @Router      /speech [post]
func (t *Transport) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req practice.NarrateRequest
	if !decode(w, r, &req) {
		return
	}
	clip, err := t.svc.Synthesize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", clip.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(clip.Data)
}

// handlePhonetics returns an IPA transcription.
//
// @Summary     IPA transcription
// @Tags        helpers
// @Accept      json
// @Produce     json
// @Param       request  body      practice.PhoneticsRequest  true  "Text and language"
// @Success     200  {object}  textResponse
// @Failure     400  {object}  errorResponse
// @Failure     502  {object}  errorResponse
// @Router      /phonetics [post]
func (t *Transport) handlePhonetics(w http.ResponseWriter, r *http.Request) {
	var req practice.PhoneticsRequest
	if !decode(w, r, &req) {
		return
	}
	text, err := t.svc.Phonetics(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

// handleChat answers a question about selected text.
//
// @Summary     Ask about selected text
// @Tags        helpers
// @Accept      json
// @Produce     json
// @Param       request  body      practice.ChatRequest  true  "Selection, question and history"
// @Success     200  {object}  textResponse
// @Failure     400  {object}  errorResponse
// @Failure     502  {object}  errorResponse
// @Router      /chat [post]
func (t *Transport) handleChat(w http.ResponseWriter, r *http.Request) {
	var req practice.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	text, err := t.svc.Chat(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

// handleLanguages lists the supported languages.
//
// @Summary     Supported languages
// @Tags        helpers
// @Produce     json
// @Success     200  {array}  lesson.Language
// @Router      /languages [get]
func (t *Transport) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, lesson.Languages)
}

// handleClearCache drops every cached audio clip.
//
// @Summary     Clear the audio cache
// @Tags        narration
// @Produce     json
// @Success     200  {object}  clearResponse
// @Router      /cache/audio [delete]
func (t *Transport) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, clearResponse{Cleared: t.svc.ClearAudioCache()})
}
