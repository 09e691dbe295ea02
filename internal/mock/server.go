package mock

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/webbOF/SmileAdventure-sub000/internal/analysis"
)

// Server serves the mock analysis service on a loopback port: the
// /insights/{sessionId} WebSocket stream plus the /realtime-ai REST
// endpoints with generator-backed canned payloads.
type Server struct {
	interval time.Duration
	log      zerolog.Logger

	ln     net.Listener
	server *http.Server
	cancel context.CancelFunc
}

// NewServer creates a mock service that emits one frame per interval on
// every insight stream.
func NewServer(interval time.Duration, log zerolog.Logger) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	return &Server{
		interval: interval,
		log:      log.With().Str("component", "mock").Logger(),
	}
}

// Start binds a loopback port and begins serving. It returns the HTTP base
// URL; the WebSocket base is the same host with the ws scheme.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	s.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	mux := http.NewServeMux()
	mux.HandleFunc("/insights/", func(w http.ResponseWriter, r *http.Request) {
		s.serveStream(ctx, w, r)
	})
	mux.HandleFunc("/realtime-ai/", s.serveREST)

	s.server = &http.Server{Handler: mux}
	go s.server.Serve(ln)

	base := "http://" + ln.Addr().String()
	s.log.Info().Str("addr", base).Msg("mock analysis service listening")
	return base, nil
}

// WSBase returns the WebSocket base URL for a started server.
func (s *Server) WSBase() string {
	return "ws://" + s.ln.Addr().String()
}

func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server != nil {
		s.server.Close()
	}
}

func (s *Server) serveStream(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/insights/")
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	s.log.Info().Str("session", sessionID).Msg("stream client connected")

	// Drain client control frames (start_monitoring, telemetry updates) so
	// the connection stays healthy; the reader also notices disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	gen := NewGenerator(sessionID)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer conn.Close()

	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-done:
			s.log.Info().Str("session", sessionID).Msg("stream client disconnected")
			return
		case <-ticker.C:
			if err := conn.WriteJSON(gen.Frame(tick)); err != nil {
				return
			}
		}
	}
}

func (s *Server) serveREST(w http.ResponseWriter, r *http.Request) {
	gen := NewGenerator("mock")
	path := strings.TrimPrefix(r.URL.Path, "/realtime-ai")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case path == "/health":
		json.NewEncoder(w).Encode(analysis.Health{Status: "healthy", Service: "mock-realtime-ai"})
	case path == "/analyze-session":
		json.NewEncoder(w).Encode(analysis.SessionAnalysis{
			Summary:   "Engaged session with stable mood",
			RiskLevel: "low",
		})
	case path == "/analyze-emotional-patterns":
		json.NewEncoder(w).Encode(gen.emotional(3))
	case path == "/analyze-behavioral-patterns":
		json.NewEncoder(w).Encode(gen.behavioral(3))
	case path == "/generate-recommendations":
		json.NewEncoder(w).Encode(gen.recommendations())
	case path == "/analyze-progress":
		json.NewEncoder(w).Encode(gen.progress(12))
	case strings.HasPrefix(path, "/start-monitoring/"), strings.HasPrefix(path, "/stop-monitoring/"):
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	default:
		http.NotFound(w, r)
	}
}
