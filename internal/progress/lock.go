package progress

import (
	"context"
	"sync"
)

// Locker serializes work on a key. Lock blocks until the key is free or ctx
// is done and returns the function that releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// LockKey builds the per-(user, topic) key used to serialize progress writes.
func LockKey(userID, topicID string) string {
	return "progress:" + userID + ":" + topicID
}

// KeyedMutex is an in-process Locker holding one mutex per active key.
// Keys with no holders or waiters are dropped.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.release(key, s)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, s *slot) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
	m.mu.Unlock()
}

// active reports the number of keys currently tracked.
func (m *KeyedMutex) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
