package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paolomoz/pagepoof-sub000/internal/stream"
)

func newTestManager(grace time.Duration) *Manager {
	return NewManager(nil, 16, grace, nil)
}

func TestEmitAssignsMonotonicIndices(t *testing.T) {
	m := newTestManager(time.Minute)
	s, _ := m.Create(context.Background())
	defer m.Remove(s.ID)

	for i := 0; i < 5; i++ {
		evt := s.Emit(stream.EventProgress, stream.ProgressPayload{Stage: "x"})
		if evt.Index != i {
			t.Fatalf("expected index %d, got %d", i, evt.Index)
		}
	}
}

func TestSubscribeReplaysFromResumePoint(t *testing.T) {
	m := newTestManager(time.Minute)
	s, _ := m.Create(context.Background())
	defer m.Remove(s.ID)

	s.Emit(stream.EventProgress, nil)     // 0
	s.Emit(stream.EventClassification, nil) // 1
	s.Emit(stream.EventHero, nil)         // 2

	ch, cancel := s.Subscribe(0)
	defer cancel()

	first := <-ch
	if first.Index != 1 {
		t.Fatalf("replay should start after resumeFrom, got index %d", first.Index)
	}
	second := <-ch
	if second.Index != 2 {
		t.Fatalf("expected index 2, got %d", second.Index)
	}

	// Live events continue on the same channel.
	s.Emit(stream.EventComplete, nil) // 3
	third := <-ch
	if third.Index != 3 || third.Name != stream.EventComplete {
		t.Fatalf("expected live complete event, got %#v", third)
	}
}

func TestSubscribeAfterCompletionReplaysAndCloses(t *testing.T) {
	m := newTestManager(time.Minute)
	s, _ := m.Create(context.Background())
	defer m.Remove(s.ID)

	s.Emit(stream.EventProgress, nil)
	s.Emit(stream.EventComplete, nil)

	ch, cancel := s.Subscribe(-1)
	defer cancel()

	var got []stream.Event
	for evt := range ch {
		got = append(got, evt)
	}
	if len(got) != 2 {
		t.Fatalf("expected full replay then close, got %d events", len(got))
	}
	if got[1].Name != stream.EventComplete {
		t.Fatalf("last replayed event should be complete, got %s", got[1].Name)
	}
}

func TestOrphanAbandonmentCancelsPipeline(t *testing.T) {
	m := newTestManager(20 * time.Millisecond)
	s, ctx := m.Create(context.Background())

	_, cancel := s.Subscribe(-1)
	cancel() // last subscriber leaves, orphan clock starts

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("pipeline context not cancelled after orphan grace")
	}
	if _, ok := m.Get(s.ID); ok {
		t.Fatalf("abandoned session still registered")
	}
}

func TestReconnectWithinGraceStopsOrphanClock(t *testing.T) {
	m := newTestManager(50 * time.Millisecond)
	s, ctx := m.Create(context.Background())

	_, first := s.Subscribe(-1)
	first()

	// Reconnect before the grace elapses.
	_, second := s.Subscribe(-1)
	defer second()

	select {
	case <-ctx.Done():
		t.Fatalf("session abandoned despite live subscriber")
	case <-time.After(150 * time.Millisecond):
	}
	m.Remove(s.ID)
}

func TestCompletedSessionRetiredAfterGrace(t *testing.T) {
	m := newTestManager(20 * time.Millisecond)
	s, _ := m.Create(context.Background())

	ch, cancel := s.Subscribe(-1)
	s.Emit(stream.EventComplete, nil)
	<-ch
	cancel()

	deadline := time.After(2 * time.Second)
	for m.Count() > 0 {
		select {
		case <-deadline:
			t.Fatalf("completed session still registered after retention window (count=%d)", m.Count())
		case <-time.After(10 * time.Millisecond):
		}
	}
	if _, ok := m.Get(s.ID); ok {
		t.Fatalf("completed session still retrievable after retirement")
	}
}

func TestTerminalEventMarksCompleted(t *testing.T) {
	m := newTestManager(time.Minute)
	s, _ := m.Create(context.Background())
	defer m.Remove(s.ID)

	if s.Completed() {
		t.Fatalf("fresh session should not be completed")
	}
	s.Emit(stream.EventError, stream.ErrorPayload{Message: "boom"})
	if !s.Completed() {
		t.Fatalf("error event must mark the session completed")
	}
}

func TestConcurrentEmitAndSubscribe(t *testing.T) {
	m := newTestManager(time.Minute)
	s, _ := m.Create(context.Background())
	defer m.Remove(s.ID)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.Emit(stream.EventBlock, stream.BlockPayload{BlockIndex: i})
		}
		s.Emit(stream.EventComplete, nil)
	}()
	wg.Wait()

	ch, cancel := s.Subscribe(-1)
	defer cancel()
	count := 0
	last := -1
	for evt := range ch {
		if evt.Index <= last {
			t.Fatalf("indices not strictly increasing: %d after %d", evt.Index, last)
		}
		last = evt.Index
		count++
	}
	if count != n+1 {
		t.Fatalf("expected %d events, got %d", n+1, count)
	}
}

type memCheckpointer struct {
	mu   sync.Mutex
	data map[string]int
}

func (m *memCheckpointer) Save(ctx context.Context, id string, idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]int)
	}
	m.data[id] = idx
	return nil
}

func (m *memCheckpointer) Load(ctx context.Context, id string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.data[id]
	return idx, ok, nil
}

func TestManagerCheckpointRoundTrip(t *testing.T) {
	cp := &memCheckpointer{}
	m := NewManager(cp, 16, time.Minute, nil)
	s, _ := m.Create(context.Background())
	defer m.Remove(s.ID)

	if idx := m.LastCheckpoint(context.Background(), s.ID); idx != -1 {
		t.Fatalf("expected -1 for unknown checkpoint, got %d", idx)
	}
	m.Checkpoint(context.Background(), s.ID, 7)
	if idx := m.LastCheckpoint(context.Background(), s.ID); idx != 7 {
		t.Fatalf("expected checkpoint 7, got %d", idx)
	}
}
