// Package service is the single entry point consumers use for real-time
// insights: session channels, topic subscriptions, telemetry, and one-shot
// analyses behind one instantiable object. Constructing independent Service
// values gives tests fully isolated state.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/webbOF/SmileAdventure-sub000/internal/analysis"
	"github.com/webbOF/SmileAdventure-sub000/internal/config"
	"github.com/webbOF/SmileAdventure-sub000/internal/insight"
	"github.com/webbOF/SmileAdventure-sub000/internal/pubsub"
	"github.com/webbOF/SmileAdventure-sub000/internal/realtime"
)

// ConnectionEvent is published on the reserved connection topic when a
// session's channel reaches a state worth telling the UI about.
type ConnectionEvent struct {
	SessionID string         `json:"sessionId"`
	State     realtime.State `json:"state"`
	Err       string         `json:"error,omitempty"`
}

// Service wires the connection manager, the subscription registry, and the
// analysis client together. Insights from the live channel and successful
// on-demand analyses flow through the same registry.
type Service struct {
	log      zerolog.Logger
	conns    *realtime.Manager
	registry *pubsub.Registry
	analysis *analysis.Client
}

func New(cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "service").Logger(),
		conns: realtime.NewManager(realtime.Options{
			BaseURL:    cfg.Realtime.BaseURL,
			AuthToken:  cfg.API.Token,
			MaxRetries: cfg.Realtime.MaxRetries,
			BaseDelay:  cfg.Realtime.BaseDelay,
			MaxDelay:   cfg.Realtime.MaxDelay,
		}, log),
		registry: pubsub.NewRegistry(log),
		analysis: analysis.NewClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout, log),
	}
}

// StartSession opens the real-time channel for a session and tells the
// service to begin monitoring. Insights arriving on the channel are fanned
// out on their kind's topic; a terminal transport failure is published as a
// ConnectionEvent on the connection topic.
func (s *Service) StartSession(ctx context.Context, sessionID string) {
	if err := s.analysis.StartMonitoring(ctx, sessionID); err != nil {
		// The WebSocket start_monitoring control frame covers this; the REST
		// call is best effort.
		s.log.Warn().Str("session", sessionID).Err(err).Msg("start-monitoring request failed")
	}

	s.conns.Open(sessionID,
		func(ins insight.Insight) {
			s.publishInsight(ins)
		},
		func(err error) {
			s.log.Error().Str("session", sessionID).Err(err).Msg("real-time channel lost")
			s.registry.Publish(insight.TopicConnection, ConnectionEvent{
				SessionID: sessionID,
				State:     realtime.StateClosed,
				Err:       err.Error(),
			})
		})
}

// StopSession cancels pending reconnects and closes the session's channel.
// Subscriptions are topic-scoped, not session-scoped: they stay registered
// and keep receiving from other sessions.
func (s *Service) StopSession(ctx context.Context, sessionID string) {
	s.conns.Close(sessionID)
	if err := s.analysis.StopMonitoring(ctx, sessionID); err != nil {
		s.log.Warn().Str("session", sessionID).Err(err).Msg("stop-monitoring request failed")
	}
}

// Subscribe registers a callback on a topic and returns its subscription ID.
func (s *Service) Subscribe(topic string, fn pubsub.Callback) string {
	return s.registry.Subscribe(topic, fn)
}

// Unsubscribe removes a subscription. Unknown IDs are a no-op.
func (s *Service) Unsubscribe(topic, id string) {
	s.registry.Unsubscribe(topic, id)
}

// SendEmotionSample streams one telemetry sample to the service. Dropped
// with a warning when the session's channel is not open.
func (s *Service) SendEmotionSample(sessionID string, sample analysis.EmotionSample) {
	s.conns.Send(sessionID, insight.ControlFrame{
		Type:      insight.FrameEmotionUpdate,
		SessionID: sessionID,
		Data:      sample,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendBehaviorSample streams one behavioral telemetry sample to the service.
func (s *Service) SendBehaviorSample(sessionID string, sample analysis.BehaviorSample) {
	s.conns.Send(sessionID, insight.ControlFrame{
		Type:      insight.FrameBehaviorUpdate,
		SessionID: sessionID,
		Data:      sample,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RunAnalysis triggers the comprehensive one-shot analysis. Successful
// sub-results are also published on their insight topics so on-demand and
// real-time results share one notification path; fallback results are
// returned but not published.
func (s *Service) RunAnalysis(ctx context.Context, data analysis.SessionData) analysis.ComprehensiveResult {
	res := s.analysis.Comprehensive(ctx, data)

	now := time.Now()
	if res.Emotional.Success {
		s.publishData(insight.KindEmotion, data.SessionID, res.Emotional.Data, now)
	}
	if res.Behavioral.Success {
		s.publishData(insight.KindBehavior, data.SessionID, res.Behavioral.Data, now)
	}
	if res.Recommendations.Success {
		s.publishData(insight.KindRecommendation, data.SessionID, res.Recommendations.Data, now)
	}
	if res.Progress.Success {
		s.publishData(insight.KindProgress, data.SessionID, res.Progress.Data, now)
	}
	return res
}

// CheckHealth probes the analysis service and surfaces failures: unlike
// analysis fallbacks, connectivity problems here are user-visible.
func (s *Service) CheckHealth(ctx context.Context) (analysis.Health, error) {
	return s.analysis.CheckHealth(ctx)
}

// SessionState reports the lifecycle state of a session's channel.
func (s *Service) SessionState(sessionID string) realtime.State {
	return s.conns.State(sessionID)
}

func (s *Service) publishInsight(ins insight.Insight) {
	deliveries := s.registry.Publish(ins.Kind.Topic(), ins)
	for _, d := range deliveries {
		if d.Err != nil {
			s.log.Error().Str("topic", ins.Kind.Topic()).Str("subscription", d.SubscriptionID).
				Err(d.Err).Msg("subscriber failed")
		}
	}
}

func (s *Service) publishData(kind insight.Kind, sessionID string, data interface{}, now time.Time) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal analysis result")
		return
	}
	s.publishInsight(insight.Insight{
		Kind:       kind,
		SessionID:  sessionID,
		Payload:    payload,
		Timestamp:  now,
		ReceivedAt: now,
	})
}
