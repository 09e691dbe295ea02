// Package mock provides a local stand-in for the analysis service: a
// scripted insight generator behind the same WebSocket and REST surface the
// real service exposes. It backs the demo binary's -mock mode and the
// service-level tests.
package mock

import (
	"encoding/json"
	"math"
	"time"

	"github.com/webbOF/SmileAdventure-sub000/internal/analysis"
	"github.com/webbOF/SmileAdventure-sub000/internal/insight"
)

var emotionCycle = []string{"joy", "calm", "curiosity", "frustration", "calm"}

var behaviorPatterns = []string{
	"sustained attention on puzzle task",
	"frequent task switching",
	"seeks caregiver confirmation",
	"self-directed exploration",
}

// Generator produces a deterministic, tick-driven stream of insight frames
// for one session. Tick 0 starts the script from the beginning.
type Generator struct {
	sessionID string
}

func NewGenerator(sessionID string) *Generator {
	return &Generator{sessionID: sessionID}
}

// Frame returns the wire frame for the given tick. The script interleaves
// the four insight kinds and slips in an unrecognised frame now and then so
// consumers exercise their unknown handling.
func (g *Generator) Frame(tick int) insight.Frame {
	ts := time.Now().UTC().Format(time.RFC3339)
	switch tick % 9 {
	case 0, 3, 6:
		return insight.Frame{
			Type:       insight.FrameEmotionalInsight,
			Analysis:   mustJSON(g.emotional(tick)),
			Confidence: 0.6 + 0.3*math.Abs(math.Sin(float64(tick)/4)),
			Timestamp:  ts,
		}
	case 1, 5:
		return insight.Frame{
			Type:       insight.FrameBehavioralInsight,
			Analysis:   mustJSON(g.behavioral(tick)),
			Confidence: 0.7,
			Timestamp:  ts,
		}
	case 2:
		return insight.Frame{
			Type:            insight.FrameRecommendation,
			Recommendations: mustJSON(g.recommendations()),
			Confidence:      0.8,
			Timestamp:       ts,
		}
	case 4, 7:
		return insight.Frame{
			Type:      insight.FrameProgressUpdate,
			Progress:  mustJSON(g.progress(tick)),
			Timestamp: ts,
		}
	default:
		return insight.Frame{Type: "calibration_ping", Timestamp: ts}
	}
}

func (g *Generator) emotional(tick int) analysis.EmotionalAnalysis {
	return analysis.EmotionalAnalysis{
		DominantEmotions: []string{emotionCycle[tick%len(emotionCycle)]},
		Stability:        0.5 + 0.4*math.Cos(float64(tick)/6),
	}
}

func (g *Generator) behavioral(tick int) analysis.BehavioralAnalysis {
	return analysis.BehavioralAnalysis{
		Patterns:       []string{behaviorPatterns[tick%len(behaviorPatterns)]},
		AttentionLevel: 0.4 + 0.5*math.Abs(math.Sin(float64(tick)/5)),
		Engagement:     0.75,
	}
}

func (g *Generator) recommendations() []analysis.Recommendation {
	return []analysis.Recommendation{
		{
			Title:       "Shorten task blocks",
			Description: "Attention dips after ~8 minutes; break activities into shorter blocks.",
			Priority:    "medium",
		},
		{
			Title:       "Reinforce calm transitions",
			Description: "Use the breathing mini-game between activities.",
			Priority:    "low",
		},
	}
}

func (g *Generator) progress(tick int) analysis.ProgressAnalysis {
	trend := "stable"
	if tick > 10 {
		trend = "improving"
	}
	return analysis.ProgressAnalysis{
		Trend:      trend,
		Score:      math.Min(1, float64(tick)/40),
		Milestones: []string{"completed level 2 without prompts"},
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
