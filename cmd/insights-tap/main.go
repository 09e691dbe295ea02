// insights-tap subscribes to a session's real-time insight stream and logs
// everything it receives. With -mock it runs against a built-in stand-in
// for the analysis service, which makes it a self-contained demo.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/webbOF/SmileAdventure-sub000/internal/analysis"
	"github.com/webbOF/SmileAdventure-sub000/internal/config"
	"github.com/webbOF/SmileAdventure-sub000/internal/insight"
	"github.com/webbOF/SmileAdventure-sub000/internal/mock"
	"github.com/webbOF/SmileAdventure-sub000/internal/service"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	sessionID := flag.String("session", "demo-session", "Session to monitor")
	mockMode := flag.Bool("mock", false, "Run against a built-in mock analysis service")
	topics := flag.String("topics", "emotion,behavior,recommendation,progress,unknown", "Comma-separated insight topics to tap")
	analyze := flag.Bool("analyze", false, "Trigger a comprehensive analysis after connecting")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if *mockMode {
		log.Info().Msg("starting in mock mode")
		mockSrv := mock.NewServer(2*time.Second, log)
		base, err := mockSrv.Start()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start mock service")
		}
		defer mockSrv.Close()
		cfg.API.BaseURL = base
		cfg.Realtime.BaseURL = mockSrv.WSBase()
	}

	svc := service.New(cfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, topic := range strings.Split(*topics, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		topic := topic
		svc.Subscribe(topic, func(_ string, payload interface{}) {
			ins, ok := payload.(insight.Insight)
			if !ok {
				return
			}
			ev := log.Info().Str("topic", topic).Str("kind", string(ins.Kind)).
				Float64("confidence", ins.Confidence)
			if len(ins.Payload) > 0 {
				ev = ev.RawJSON("payload", ins.Payload)
			}
			ev.Msg("insight")
		})
	}
	svc.Subscribe(insight.TopicConnection, func(_ string, payload interface{}) {
		ev, ok := payload.(service.ConnectionEvent)
		if !ok {
			return
		}
		log.Warn().Str("session", ev.SessionID).Str("state", string(ev.State)).
			Str("error", ev.Err).Msg("connection event")
	})

	if h, err := svc.CheckHealth(ctx); err != nil {
		log.Warn().Err(err).Msg("analysis service health check failed")
	} else {
		log.Info().Str("status", h.Status).Str("service", h.Service).Msg("analysis service healthy")
	}

	svc.StartSession(ctx, *sessionID)
	log.Info().Str("session", *sessionID).Msg("tapping insight stream (ctrl-c to stop)")

	if *analyze {
		res := svc.RunAnalysis(ctx, analysis.SessionData{SessionID: *sessionID})
		log.Info().
			Bool("session_ok", res.Session.Success).
			Bool("emotional_ok", res.Emotional.Success).
			Bool("behavioral_ok", res.Behavioral.Success).
			Bool("recommendations_ok", res.Recommendations.Success).
			Bool("progress_ok", res.Progress.Success).
			Str("summary", res.Session.Data.Summary).
			Msg("comprehensive analysis settled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	svc.StopSession(ctx, *sessionID)
}
