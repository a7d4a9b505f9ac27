package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/paolomoz/pagepoof-sub000/internal/stream"
)

// Checkpointer persists the last delivered event index per session so a
// client can resume after the process it first connected to forgot it.
type Checkpointer interface {
	Save(ctx context.Context, sessionID string, lastEventIndex int) error
	Load(ctx context.Context, sessionID string) (int, bool, error)
}

// Manager owns live sessions. Event buffers live in memory; only the
// resume checkpoint survives in Redis.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	checkpoints Checkpointer
	bufSize     int
	orphanGrace time.Duration
	logger      *log.Logger
}

func NewManager(checkpoints Checkpointer, bufSize int, orphanGrace time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		checkpoints: checkpoints,
		bufSize:     bufSize,
		orphanGrace: orphanGrace,
		logger:      logger,
	}
}

// Create registers a new session and returns it together with the context
// the pipeline should run under. Abandoning the session cancels that
// context.
func (m *Manager) Create(parent context.Context) (*Session, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:          uuid.NewString(),
		subscribers: make(map[int]chan stream.Event),
		cancel:      cancel,
		bufSize:     m.bufSize,
		orphanGrace: m.orphanGrace,
	}
	s.onAbandon = func(sess *Session) {
		m.logger.Printf("[SESSION] removing session %s", sess.ID)
		m.Remove(sess.ID)
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, ctx
}

// Get returns the live session with the given id, if any.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session from the registry and cancels its pipeline.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Checkpoint records the last event index a client acknowledged receiving.
func (m *Manager) Checkpoint(ctx context.Context, sessionID string, lastEventIndex int) {
	if m.checkpoints == nil {
		return
	}
	if err := m.checkpoints.Save(ctx, sessionID, lastEventIndex); err != nil {
		m.logger.Printf("[SESSION] checkpoint save failed for %s: %v", sessionID, err)
	}
}

// LastCheckpoint returns the persisted resume index for a session, or -1
// when none has been stored.
func (m *Manager) LastCheckpoint(ctx context.Context, sessionID string) int {
	if m.checkpoints == nil {
		return -1
	}
	idx, ok, err := m.checkpoints.Load(ctx, sessionID)
	if err != nil || !ok {
		return -1
	}
	return idx
}

// RedisCheckpointer stores resume indices under genstate:<id> with a TTL.
type RedisCheckpointer struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCheckpointer(addr, password string, db int, ttl time.Duration) *RedisCheckpointer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCheckpointer{client: rdb, ttl: ttl}
}

type checkpoint struct {
	LastEventIndex int       `json:"last_event_index"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r *RedisCheckpointer) key(sessionID string) string {
	return fmt.Sprintf("genstate:%s", sessionID)
}

func (r *RedisCheckpointer) Save(ctx context.Context, sessionID string, lastEventIndex int) error {
	data, err := json.Marshal(checkpoint{LastEventIndex: lastEventIndex, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err()
}

func (r *RedisCheckpointer) Load(ctx context.Context, sessionID string) (int, bool, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var cp checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return 0, false, err
	}
	return cp.LastEventIndex, true, nil
}
