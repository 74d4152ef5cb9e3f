// Package server implements the framed synthesis request transport on
// top of a websocket connection: each accepted connection is handled in
// its own goroutine, reading one {type, voicename, text} JSON message per
// websocket frame and writing back the matching reply. The same HTTP
// surface also carries the health probes and the Prometheus scrape
// endpoint.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/synthline/ttscore/internal/health"
	"github.com/synthline/ttscore/internal/observe"
	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/waveform"
)

// Synthesizer is satisfied by both *voice.Voice and *voice.MultiVoice;
// defined here rather than imported from pkg/voice so this package does
// not need to know which of the two it was handed.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*waveform.Waveform, *hrg.Utterance, error)
}

// Registry resolves a voice name to its [Synthesizer] and lists every
// loaded voice's name for the "listvoices" reply.
type Registry interface {
	Voice(name string) (Synthesizer, bool)
	Names() []string
}

// requestType enumerates the two request kinds clients may send.
type requestType string

const (
	requestSynth      requestType = "synth"
	requestListVoices requestType = "listvoices"
)

// request is the wire shape of one client message.
type request struct {
	Type      requestType `json:"type"`
	VoiceName string      `json:"voicename"`
	Text      string      `json:"text"`
}

// Server accepts websocket connections and dispatches synth/listvoices
// requests against a [Registry]. Concurrent in-flight syntheses are
// bounded by an errgroup-backed limiter.
type Server struct {
	registry Registry
	metrics  *observe.Metrics

	// synthLimit bounds the number of syntheses running at once across
	// every connection. Calling Go on a full group blocks the calling
	// connection's goroutine until a slot frees, which is exactly the
	// backpressure we want; it never reports an error back up
	// because request handling already converts every failure into a
	// reply, never a propagated error.
	synthLimit *errgroup.Group
}

// New returns a Server dispatching against registry. maxConcurrent bounds
// simultaneous syntheses; zero or negative means unlimited.
func New(registry Registry, maxConcurrent int, metrics *observe.Metrics) *Server {
	g := &errgroup.Group{}
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}
	return &Server{registry: registry, metrics: metrics, synthLimit: g}
}

// Handler returns an http.Handler that upgrades every request to a
// websocket connection and serves it until the client disconnects or ctx
// is cancelled.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("server: websocket accept failed", "err", err)
			return
		}
		// Each accepted connection runs in its own
		// goroutine (net/http already gives us one per request; this
		// call simply occupies it until the connection closes).
		s.serveConn(ctx, conn)
	})
}

// serveConn reads one JSON request per websocket message until the
// connection closes or ctx is cancelled, replying to each in turn.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, context.Canceled) {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			slog.Debug("server: read error, closing connection", "err", err)
			return
		}

		reply, err := s.Handle(ctx, data)
		if err != nil {
			slog.Warn("server: request handling error", "err", err)
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
			slog.Debug("server: write error, closing connection", "err", err)
			return
		}
	}
}

// Handle parses one JSON request and returns its reply bytes. A "synth"
// request that fails synthesis still returns a reply (the empty-string
// payload) rather than an error — the server never surfaces a synthesis
// failure to the client; the returned error here covers only requests
// this server cannot even attempt (malformed JSON, unknown type).
func (s *Server) Handle(ctx context.Context, data []byte) ([]byte, error) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("server: malformed request: %w", err)
	}

	switch req.Type {
	case requestListVoices:
		return json.Marshal(s.registry.Names())

	case requestSynth:
		return s.handleSynth(ctx, req)

	default:
		return nil, fmt.Errorf("server: unknown request type %q", req.Type)
	}
}

func (s *Server) handleSynth(ctx context.Context, req request) ([]byte, error) {
	v, ok := s.registry.Voice(req.VoiceName)
	if !ok {
		slog.Warn("server: synth request for unknown voice", "voice", req.VoiceName)
		return json.Marshal("")
	}

	audio := ""
	done := make(chan struct{})
	s.synthLimit.Go(func() error {
		defer close(done)
		if s.metrics != nil {
			s.metrics.ActiveSyntheses.Add(ctx, 1)
			defer s.metrics.ActiveSyntheses.Add(ctx, -1)
		}
		wf, _, err := v.Synthesize(ctx, req.Text)
		if err != nil {
			slog.Warn("server: synthesis failed", "voice", req.VoiceName, "err", err)
			return nil
		}
		audio = encodeWaveform(wf)
		return nil
	})
	<-done

	return json.Marshal(audio)
}

// encodeWaveform serializes wf as a RIFF/WAVE container and base64-encodes
// it, matching the reply shape clients expect (a JSON string of a
// base64-encoded RIFF wave). A nil waveform or encode failure yields "",
// so a failed synthesis is an empty payload, never an error frame.
func encodeWaveform(wf *waveform.Waveform) string {
	if wf == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := wf.WriteRIFF(&buf); err != nil {
		slog.Warn("server: encode waveform failed", "err", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// Routes returns the server's full HTTP surface: the websocket synthesis
// endpoint at "/", the probe endpoints from hh (when non-nil), and the
// Prometheus scrape endpoint, all behind [observe.Middleware] when the
// server has a metrics recorder.
func (s *Server) Routes(ctx context.Context, hh *health.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler(ctx))
	if hh != nil {
		hh.Register(mux)
	}
	mux.Handle("GET /metrics", observe.MetricsHandler())

	if s.metrics == nil {
		return mux
	}
	return observe.Middleware(s.metrics)(mux)
}

// ListenAndServe starts an HTTP server at addr serving [Server.Routes]
// until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, hh *health.Handler) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Routes(ctx, hh),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	}
}
