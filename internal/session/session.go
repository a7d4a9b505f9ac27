// Package session tracks live generation sessions: the in-memory event
// buffer a reconnecting client resumes from, and the Redis checkpoint of
// the last delivered event index. A session whose client stays away past
// the orphan grace window is abandoned and its pipeline cancelled.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/paolomoz/pagepoof-sub000/internal/stream"
)

// Session owns one generation request's stream state. Events are append-
// only; subscribers receive the buffered tail first and live events after.
type Session struct {
	ID string

	mu             sync.Mutex
	events         []stream.Event
	nextIndex      int
	blockIndex     int
	subscribers    map[int]chan stream.Event
	nextSubID      int
	completed      bool
	orphanTimer    *time.Timer
	retentionTimer *time.Timer

	cancel      context.CancelFunc
	bufSize     int
	orphanGrace time.Duration
	onAbandon   func(*Session)
}

// Emit appends an event, assigns its index, and fans it out to
// subscribers. A subscriber that cannot keep up is dropped rather than
// blocking the pipeline.
func (s *Session) Emit(name stream.EventName, data interface{}) stream.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt := stream.Event{Name: name, Index: s.nextIndex, Data: data}
	s.nextIndex++
	s.events = append(s.events, evt)
	if name == stream.EventComplete || name == stream.EventError {
		s.completed = true
		s.startRetentionClockLocked()
	}
	for id, ch := range s.subscribers {
		select {
		case ch <- evt:
		default:
			close(ch)
			delete(s.subscribers, id)
		}
	}
	return evt
}

// NextBlockIndex hands out the monotonically increasing index carried by
// block events.
func (s *Session) NextBlockIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.blockIndex
	s.blockIndex++
	return idx
}

// Subscribe returns a channel that first replays every buffered event with
// index > resumeFrom, then delivers live events. The returned cancel
// detaches the subscriber and, when it was the last one, starts the orphan
// clock. Pass resumeFrom = -1 for a fresh stream.
func (s *Session) Subscribe(resumeFrom int) (<-chan stream.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orphanTimer != nil {
		s.orphanTimer.Stop()
		s.orphanTimer = nil
	}

	ch := make(chan stream.Event, s.bufSize+len(s.events))
	for _, evt := range s.events {
		if evt.Index > resumeFrom {
			ch <- evt
		}
	}
	if s.completed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
		if len(s.subscribers) == 0 && !s.completed {
			s.startOrphanClockLocked()
		}
	}
	return ch, cancel
}

// Completed reports whether the session reached a terminal event.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Close cancels the session's pipeline context and closes all subscriber
// channels.
func (s *Session) Close() {
	s.mu.Lock()
	if s.orphanTimer != nil {
		s.orphanTimer.Stop()
		s.orphanTimer = nil
	}
	if s.retentionTimer != nil {
		s.retentionTimer.Stop()
		s.retentionTimer = nil
	}
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

const defaultOrphanGrace = 30 * time.Second

func (s *Session) startOrphanClockLocked() {
	grace := s.graceLocked()
	s.orphanTimer = time.AfterFunc(grace, func() {
		if s.onAbandon != nil {
			s.onAbandon(s)
		}
	})
}

// startRetentionClockLocked schedules removal of a finished session. The
// buffer stays around for one grace window so late reconnects can still
// replay; after that the registry entry is released. Unlike the orphan
// clock, a new subscriber does not stop this timer.
func (s *Session) startRetentionClockLocked() {
	if s.retentionTimer != nil {
		return
	}
	grace := s.graceLocked()
	s.retentionTimer = time.AfterFunc(grace, func() {
		if s.onAbandon != nil {
			s.onAbandon(s)
		}
	})
}

func (s *Session) graceLocked() time.Duration {
	if s.orphanGrace > 0 {
		return s.orphanGrace
	}
	return defaultOrphanGrace
}
