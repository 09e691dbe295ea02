// Package insight defines the typed unit of real-time analysis output and
// the router that classifies raw service frames into it. Types mirror the
// analysis service wire protocol without importing transport packages.
package insight

import (
	"encoding/json"
	"time"
)

// Kind identifies the class of an insight.
type Kind string

const (
	KindEmotion        Kind = "emotion"
	KindBehavior       Kind = "behavior"
	KindRecommendation Kind = "recommendation"
	KindProgress       Kind = "progress"
	KindUnknown        Kind = "unknown"
)

// Topic returns the pub/sub topic insights of this kind are published on.
// Topics are keyed one-to-one by kind.
func (k Kind) Topic() string {
	return string(k)
}

// TopicConnection is the reserved topic for connection lifecycle events.
// It is not a Kind: nothing the router produces is published there.
const TopicConnection = "connection"

// Insight is one classified unit of analysis output. It is immutable once
// produced; subscribers may retain copies.
type Insight struct {
	Kind       Kind            `json:"kind"`
	SessionID  string          `json:"sessionId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Confidence float64         `json:"confidence,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Frame is the envelope for all inbound service frames. Exactly one of the
// payload fields is populated depending on Type.
type Frame struct {
	Type            string          `json:"type"`
	Analysis        json.RawMessage `json:"analysis,omitempty"`
	Recommendations json.RawMessage `json:"recommendations,omitempty"`
	Progress        json.RawMessage `json:"progress,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	Timestamp       string          `json:"timestamp,omitempty"`
}

// Frame type values recognised on the wire.
const (
	FrameEmotionalInsight  = "emotional_insight"
	FrameBehavioralInsight = "behavioral_insight"
	FrameRecommendation    = "recommendation"
	FrameProgressUpdate    = "progress_update"
)

// Outbound control frame types.
const (
	FrameStartMonitoring = "start_monitoring"
	FrameEmotionUpdate   = "emotion_update"
	FrameBehaviorUpdate  = "behavior_update"
)

// ControlFrame is the envelope for outbound control messages.
type ControlFrame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}
