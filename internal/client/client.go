// Package client implements the consumer side of the generation stream:
// the reconnect state machine, the exponential backoff policy, and the
// dedup bookkeeping that makes replayed events idempotent to apply.
// Server handlers never import this package; it exists so Go consumers
// and the test suite share one reference implementation of the contract.
package client

import (
	"fmt"
	"time"

	"github.com/paolomoz/pagepoof-sub000/internal/stream"
)

// ConnState is the connection lifecycle of one generation stream.
type ConnState string

const (
	StateIdle       ConnState = "idle"
	StateConnecting ConnState = "connecting"
	StateStreaming  ConnState = "streaming"
	StateRetrying   ConnState = "retrying"
	StateFailed     ConnState = "failed"
	StateCompleted  ConnState = "completed"
)

// RetryPolicy is exponential backoff with a hard attempt ceiling.
type RetryPolicy struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxRetries int
}

// DefaultRetryPolicy mirrors the server's advertised defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{BaseDelay: time.Second, Multiplier: 2, MaxRetries: 5}
}

// Delay returns the backoff before the given attempt (0-based). Attempts
// at or past MaxRetries return a negative duration, meaning give up.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt >= p.MaxRetries {
		return -1
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}

// Action tells the caller what to do with an applied event.
type Action int

const (
	// ActionApply means the event is new; render it.
	ActionApply Action = iota
	// ActionSkip means the event is a replay duplicate; ignore it.
	ActionSkip
	// ActionDone means the stream reached a terminal event.
	ActionDone
)

// GenerationState accumulates a client's view of one session across any
// number of reconnects. Blocks dedup on (name, block index); images dedup
// on their id.
type GenerationState struct {
	State          ConnState
	LastEventIndex int
	RetryCount     int
	Completed      bool
	Failed         bool

	receivedBlocks map[string]bool
	receivedImages map[string]bool
}

func NewGenerationState() *GenerationState {
	return &GenerationState{
		State:          StateIdle,
		LastEventIndex: -1,
		receivedBlocks: make(map[string]bool),
		receivedImages: make(map[string]bool),
	}
}

// Connected transitions into streaming and resets the retry counter; a
// successful reconnect earns back the full retry budget.
func (g *GenerationState) Connected() {
	g.State = StateStreaming
	g.RetryCount = 0
}

// Disconnected reports whether another reconnect attempt is allowed under
// the policy and, if so, the delay to wait first.
func (g *GenerationState) Disconnected(p RetryPolicy) (time.Duration, bool) {
	if g.Completed {
		g.State = StateCompleted
		return 0, false
	}
	d := p.Delay(g.RetryCount)
	if d < 0 {
		g.State = StateFailed
		g.Failed = true
		return 0, false
	}
	g.RetryCount++
	g.State = StateRetrying
	return d, true
}

// ResumeFrom is the event index to pass on reconnect.
func (g *GenerationState) ResumeFrom() int {
	return g.LastEventIndex
}

// Apply folds one event into the state and says whether to act on it.
// Events are applied in arrival order; replays of already-seen blocks and
// images come back as ActionSkip while the index still advances.
func (g *GenerationState) Apply(evt stream.Event) Action {
	if evt.Index > g.LastEventIndex {
		g.LastEventIndex = evt.Index
	}

	switch evt.Name {
	case stream.EventBlock:
		key := blockKey(evt.Data)
		if key == "" {
			return ActionApply
		}
		if g.receivedBlocks[key] {
			return ActionSkip
		}
		g.receivedBlocks[key] = true
		return ActionApply
	case stream.EventImageReady:
		id := imageID(evt.Data)
		if id == "" {
			return ActionApply
		}
		if g.receivedImages[id] {
			return ActionSkip
		}
		g.receivedImages[id] = true
		return ActionApply
	case stream.EventComplete:
		g.Completed = true
		g.State = StateCompleted
		return ActionDone
	case stream.EventError:
		g.Completed = true
		g.Failed = true
		g.State = StateFailed
		return ActionDone
	default:
		return ActionApply
	}
}

// BlocksReceived reports how many distinct blocks have been applied.
func (g *GenerationState) BlocksReceived() int { return len(g.receivedBlocks) }

// ImagesReceived reports how many distinct images have been applied.
func (g *GenerationState) ImagesReceived() int { return len(g.receivedImages) }

func blockKey(data interface{}) string {
	switch p := data.(type) {
	case stream.BlockPayload:
		return fmt.Sprintf("%s#%d", p.Name, p.BlockIndex)
	case *stream.BlockPayload:
		return fmt.Sprintf("%s#%d", p.Name, p.BlockIndex)
	case map[string]interface{}:
		name, _ := p["name"].(string)
		idx, ok := p["block_index"].(float64)
		if name == "" || !ok {
			return ""
		}
		return fmt.Sprintf("%s#%d", name, int(idx))
	default:
		return ""
	}
}

func imageID(data interface{}) string {
	switch p := data.(type) {
	case stream.ImagePayload:
		return p.ID
	case *stream.ImagePayload:
		return p.ID
	case map[string]interface{}:
		id, _ := p["id"].(string)
		return id
	default:
		return ""
	}
}
