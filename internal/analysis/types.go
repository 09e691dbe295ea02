// Package analysis implements the one-shot request/response client for the
// clinical analysis service. Every call resolves to a populated result:
// failures carry a conservative fallback payload instead of an error return,
// so callers always have something sensible to render.
package analysis

import "time"

// EmotionSample is one observed emotional data point for a session.
type EmotionSample struct {
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
}

// BehaviorSample is one observed behavioral data point for a session.
type BehaviorSample struct {
	Behavior  string    `json:"behavior"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionData is the request body shared by all analysis endpoints.
type SessionData struct {
	SessionID string           `json:"session_id"`
	ChildID   string           `json:"child_id,omitempty"`
	Emotions  []EmotionSample  `json:"emotions,omitempty"`
	Behaviors []BehaviorSample `json:"behaviors,omitempty"`
}

// EmotionalAnalysis is the normalised emotional-pattern response.
type EmotionalAnalysis struct {
	DominantEmotions []string `json:"dominant_emotions"`
	Stability        float64  `json:"emotional_stability"`
	Triggers         []string `json:"triggers,omitempty"`
}

// BehavioralAnalysis is the normalised behavioral-pattern response.
type BehavioralAnalysis struct {
	Patterns       []string `json:"patterns"`
	AttentionLevel float64  `json:"attention_level"`
	Engagement     float64  `json:"engagement_score"`
}

// Recommendation is one clinical recommendation.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ProgressAnalysis is the normalised progress response.
type ProgressAnalysis struct {
	Trend      string   `json:"trend"`
	Score      float64  `json:"score"`
	Milestones []string `json:"milestones,omitempty"`
}

// SessionAnalysis is the normalised whole-session response.
type SessionAnalysis struct {
	Summary    string              `json:"summary"`
	RiskLevel  string              `json:"risk_level"`
	Emotional  *EmotionalAnalysis  `json:"emotional,omitempty"`
	Behavioral *BehavioralAnalysis `json:"behavioral,omitempty"`
}

// Health is the analysis service health response.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// Status is the outcome shared by all result envelopes. Success false
// means Data holds the documented fallback and Err describes the failure.
type Status struct {
	Success  bool   `json:"success"`
	Fallback bool   `json:"fallback,omitempty"`
	Err      string `json:"error,omitempty"`
}

// SessionResult is the always-populated outcome of AnalyzeSession.
type SessionResult struct {
	Status
	Data SessionAnalysis `json:"data"`
}

// EmotionalResult is the always-populated outcome of AnalyzeEmotionalPatterns.
type EmotionalResult struct {
	Status
	Data EmotionalAnalysis `json:"data"`
}

// BehavioralResult is the always-populated outcome of AnalyzeBehavioralPatterns.
type BehavioralResult struct {
	Status
	Data BehavioralAnalysis `json:"data"`
}

// RecommendationResult is the always-populated outcome of GenerateRecommendations.
type RecommendationResult struct {
	Status
	Data []Recommendation `json:"data"`
}

// ProgressResult is the always-populated outcome of AnalyzeProgress.
type ProgressResult struct {
	Status
	Data ProgressAnalysis `json:"data"`
}

// ComprehensiveResult aggregates the concurrent sub-analyses. Each slot is
// settled independently; one failing sub-call never discards the others.
type ComprehensiveResult struct {
	Session         SessionResult        `json:"session"`
	Emotional       EmotionalResult      `json:"emotional"`
	Behavioral      BehavioralResult     `json:"behavioral"`
	Recommendations RecommendationResult `json:"recommendations"`
	Progress        ProgressResult       `json:"progress"`
}

// Conservative fallbacks: neutral, non-alarming defaults the UI can render
// when the service is unreachable or returns garbage.

func fallbackEmotional() EmotionalAnalysis {
	return EmotionalAnalysis{DominantEmotions: []string{"neutral"}, Stability: 0.5}
}

func fallbackBehavioral() BehavioralAnalysis {
	return BehavioralAnalysis{Patterns: []string{}, AttentionLevel: 0.5, Engagement: 0.5}
}

func fallbackRecommendations() []Recommendation {
	return []Recommendation{{
		Title:       "Continue current approach",
		Description: "Analysis is temporarily unavailable; keep the current session plan.",
		Priority:    "low",
	}}
}

func fallbackProgress() ProgressAnalysis {
	return ProgressAnalysis{Trend: "stable", Score: 0}
}

func fallbackSession() SessionAnalysis {
	return SessionAnalysis{Summary: "Analysis unavailable", RiskLevel: "unknown"}
}
