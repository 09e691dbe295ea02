package insight

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolError reports a frame that could not be parsed. Frames carrying it
// are dropped by the caller; the connection stays up.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unparseable frame: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// kindByFrameType maps recognised wire types to insight kinds. Anything not
// listed classifies as KindUnknown.
var kindByFrameType = map[string]Kind{
	FrameEmotionalInsight:  KindEmotion,
	FrameBehavioralInsight: KindBehavior,
	FrameRecommendation:    KindRecommendation,
	FrameProgressUpdate:    KindProgress,
}

// Classify parses one raw frame into an Insight. A frame whose type is not
// recognised still yields an Insight (KindUnknown, payload = whole frame) so
// callers can decide whether to ignore it. A frame that fails to parse
// returns a ProtocolError and no Insight.
func Classify(raw []byte) (Insight, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Insight{}, &ProtocolError{Err: err}
	}

	ins := Insight{
		Confidence: f.Confidence,
		ReceivedAt: time.Now(),
	}
	if ts, err := time.Parse(time.RFC3339, f.Timestamp); err == nil {
		ins.Timestamp = ts
	}

	kind, ok := kindByFrameType[f.Type]
	if !ok {
		ins.Kind = KindUnknown
		ins.Payload = append(json.RawMessage(nil), raw...)
		return ins, nil
	}

	ins.Kind = kind
	switch kind {
	case KindRecommendation:
		ins.Payload = f.Recommendations
	case KindProgress:
		ins.Payload = f.Progress
	default:
		ins.Payload = f.Analysis
	}
	return ins, nil
}
