package insight

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestClassifyRecognisedTypes(t *testing.T) {
	tests := []struct {
		frameType string
		want      Kind
	}{
		{"emotional_insight", KindEmotion},
		{"behavioral_insight", KindBehavior},
		{"recommendation", KindRecommendation},
		{"progress_update", KindProgress},
	}

	for _, tt := range tests {
		raw := []byte(`{"type":"` + tt.frameType + `","analysis":{"a":1},"recommendations":[{"r":1}],"progress":{"p":1},"timestamp":"2026-08-25T10:00:00Z"}`)
		ins, err := Classify(raw)
		if err != nil {
			t.Fatalf("Classify(%s): unexpected error: %v", tt.frameType, err)
		}
		if ins.Kind != tt.want {
			t.Errorf("Classify(%s) kind = %q, want %q", tt.frameType, ins.Kind, tt.want)
		}
		if len(ins.Payload) == 0 {
			t.Errorf("Classify(%s) produced empty payload", tt.frameType)
		}
	}
}

func TestClassifyPayloadSelection(t *testing.T) {
	raw := []byte(`{"type":"recommendation","recommendations":[{"title":"shorter sessions"}],"timestamp":"2026-08-25T10:00:00Z"}`)
	ins, err := Classify(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var recs []map[string]string
	if err := json.Unmarshal(ins.Payload, &recs); err != nil {
		t.Fatalf("payload is not the recommendations array: %v", err)
	}
	if len(recs) != 1 || recs[0]["title"] != "shorter sessions" {
		t.Errorf("unexpected payload: %s", ins.Payload)
	}
}

func TestClassifyUnknownTypeIsDelivered(t *testing.T) {
	raw := []byte(`{"type":"calibration_ping","timestamp":"2026-08-25T10:00:00Z"}`)
	ins, err := Classify(raw)
	if err != nil {
		t.Fatalf("unknown type must not be an error, got %v", err)
	}
	if ins.Kind != KindUnknown {
		t.Errorf("kind = %q, want %q", ins.Kind, KindUnknown)
	}
	// The whole frame is kept so callers can inspect it.
	var f Frame
	if err := json.Unmarshal(ins.Payload, &f); err != nil || f.Type != "calibration_ping" {
		t.Errorf("payload should be the raw frame, got %s", ins.Payload)
	}
}

func TestClassifyMalformedFrame(t *testing.T) {
	_, err := Classify([]byte(`{"type":`))
	if err == nil {
		t.Fatal("expected ProtocolError for malformed frame")
	}
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Errorf("error type = %T, want *ProtocolError", err)
	}
}

func TestClassifyTimestamp(t *testing.T) {
	ins, err := Classify([]byte(`{"type":"progress_update","progress":{},"timestamp":"2026-08-25T10:30:00Z"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	if !ins.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ins.Timestamp, want)
	}
	if ins.ReceivedAt.IsZero() {
		t.Error("ReceivedAt should be set")
	}
}

func TestClassifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("unrecognised types always classify as unknown", prop.ForAll(
		func(frameType string) bool {
			if _, recognised := kindByFrameType[frameType]; recognised {
				return true
			}
			raw, err := json.Marshal(Frame{Type: frameType, Timestamp: "2026-08-25T10:00:00Z"})
			if err != nil {
				return false
			}
			ins, err := Classify(raw)
			return err == nil && ins.Kind == KindUnknown
		},
		gen.AnyString(),
	))

	properties.Property("classification never panics on arbitrary input", prop.ForAll(
		func(raw string) bool {
			ins, err := Classify([]byte(raw))
			if err != nil {
				var perr *ProtocolError
				return errors.As(err, &perr)
			}
			return ins.Kind != ""
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
