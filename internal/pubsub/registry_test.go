package pubsub

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestRegistry() *Registry {
	return NewRegistry(zerolog.Nop())
}

func TestPublishFanOut(t *testing.T) {
	r := newTestRegistry()

	var got []int
	for i := 0; i < 3; i++ {
		i := i
		r.Subscribe("recommendation", func(string, interface{}) {
			got = append(got, i)
		})
	}

	deliveries := r.Publish("recommendation", "payload")
	if len(deliveries) != 3 {
		t.Fatalf("deliveries = %d, want 3", len(deliveries))
	}
	// Registration order is preserved within one publish.
	for i, want := range []int{0, 1, 2} {
		if got[i] != want {
			t.Errorf("invocation order = %v, want [0 1 2]", got)
			break
		}
	}
}

func TestPublishIsolatesPanickingSubscriber(t *testing.T) {
	r := newTestRegistry()

	calls := make([]string, 0, 3)
	r.Subscribe("recommendation", func(string, interface{}) { calls = append(calls, "first") })
	r.Subscribe("recommendation", func(string, interface{}) { panic("bad subscriber") })
	r.Subscribe("recommendation", func(string, interface{}) { calls = append(calls, "third") })

	deliveries := r.Publish("recommendation", nil)

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "third" {
		t.Errorf("surviving calls = %v, want [first third]", calls)
	}
	if deliveries[0].Err != nil || deliveries[2].Err != nil {
		t.Error("healthy subscribers must report no error")
	}
	var cerr *CallbackError
	if !errors.As(deliveries[1].Err, &cerr) {
		t.Fatalf("delivery[1].Err = %v, want *CallbackError", deliveries[1].Err)
	}
	if cerr.Recovered != "bad subscriber" {
		t.Errorf("recovered value = %v, want %q", cerr.Recovered, "bad subscriber")
	}
}

func TestUnsubscribeDuringPublishSnapshot(t *testing.T) {
	r := newTestRegistry()

	var bCalled int
	var bID string
	// A unsubscribes B mid-publish; B was in the snapshot and must still run.
	r.Subscribe("emotion", func(string, interface{}) {
		r.Unsubscribe("emotion", bID)
	})
	bID = r.Subscribe("emotion", func(string, interface{}) { bCalled++ })

	r.Publish("emotion", nil)
	if bCalled != 1 {
		t.Fatalf("B called %d times during in-flight publish, want 1", bCalled)
	}

	// B is excluded from the next publish.
	r.Publish("emotion", nil)
	if bCalled != 1 {
		t.Errorf("B called %d times after unsubscribe, want 1", bCalled)
	}
}

func TestDuplicateRegistrationInvokedPerRegistration(t *testing.T) {
	r := newTestRegistry()

	count := 0
	fn := func(string, interface{}) { count++ }
	r.Subscribe("progress", fn)
	r.Subscribe("progress", fn)

	r.Publish("progress", nil)
	if count != 2 {
		t.Errorf("callback invoked %d times, want once per registration (2)", count)
	}
}

func TestUnsubscribeUnknownIsNoOp(t *testing.T) {
	r := newTestRegistry()
	if r.Unsubscribe("emotion", "missing") {
		t.Error("unsubscribing an unknown subscription should return false")
	}

	id := r.Subscribe("emotion", func(string, interface{}) {})
	if !r.Unsubscribe("emotion", id) {
		t.Error("unsubscribing a live subscription should return true")
	}
	if r.Unsubscribe("emotion", id) {
		t.Error("second unsubscribe of the same ID should be a no-op")
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	r := newTestRegistry()
	if deliveries := r.Publish("behavior", nil); len(deliveries) != 0 {
		t.Errorf("publish with no subscribers returned %d deliveries", len(deliveries))
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	r := newTestRegistry()

	var mu sync.Mutex
	seen := 0
	for i := 0; i < 8; i++ {
		r.Subscribe("emotion", func(string, interface{}) {
			mu.Lock()
			seen++
			mu.Unlock()
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Publish("emotion", j)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := r.Subscribe("emotion", func(string, interface{}) {})
				r.Unsubscribe("emotion", id)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if seen != 8*4*50 {
		t.Errorf("stable subscribers saw %d publishes, want %d", seen, 8*4*50)
	}
}
