package mock

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/webbOF/SmileAdventure-sub000/internal/analysis"
	"github.com/webbOF/SmileAdventure-sub000/internal/insight"
)

func TestGeneratorScriptCoversAllKinds(t *testing.T) {
	gen := NewGenerator("s")

	seen := map[insight.Kind]bool{}
	for tick := 0; tick < 18; tick++ {
		f := gen.Frame(tick)
		raw, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		ins, err := insight.Classify(raw)
		if err != nil {
			t.Fatalf("tick %d produced an unparseable frame: %v", tick, err)
		}
		seen[ins.Kind] = true
	}

	for _, kind := range []insight.Kind{
		insight.KindEmotion, insight.KindBehavior,
		insight.KindRecommendation, insight.KindProgress, insight.KindUnknown,
	} {
		if !seen[kind] {
			t.Errorf("script never produced kind %q", kind)
		}
	}
}

func TestServerServesHealthAndStream(t *testing.T) {
	srv := NewServer(10*time.Millisecond, zerolog.Nop())
	base, err := srv.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get(base + "/realtime-ai/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	var h analysis.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if h.Status != "healthy" {
		t.Errorf("status = %q, want healthy", h.Status)
	}

	conn, _, err := websocket.DefaultDialer.Dial(srv.WSBase()+"/insights/test-session?token=x", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := insight.Classify(data); err != nil {
		t.Errorf("stream emitted unparseable frame: %s", data)
	}
}
