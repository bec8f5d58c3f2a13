package progress

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

type recordKey struct {
	userID, topicID, subtopicID string
}

type weakKey struct {
	userID, topicID string
}

// MemoryStore is an in-memory implementation of ProgressStore,
// WeakTopicStore and ProblemProgress. It is meant for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[recordKey]Record
	order    map[string][]recordKey
	weak     map[weakKey]WeakTopicEntry
	problems map[weakKey]float64
	failing  map[weakKey]error
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[recordKey]Record),
		order:    make(map[string][]recordKey),
		weak:     make(map[weakKey]WeakTopicEntry),
		problems: make(map[weakKey]float64),
		failing:  make(map[weakKey]error),
	}
}

// List returns a user's records in first-write order.
func (s *MemoryStore) List(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.order[userID]
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, cloneRecord(s.records[k]))
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, userID, topicID, subtopicID string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey{userID, topicID, subtopicID}]
	return cloneRecord(rec), ok, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec Record) error {
	if rec.UserID == "" || rec.TopicID == "" {
		return fmt.Errorf("user_id and topic_id are required")
	}
	if rec.LastAccessed.IsZero() {
		rec.LastAccessed = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey{rec.UserID, rec.TopicID, rec.SubtopicID}
	prev, exists := s.records[k]
	if !exists {
		s.order[rec.UserID] = append(s.order[rec.UserID], k)
	}
	// A write without a score keeps the recorded one.
	if rec.QuizScore == nil {
		rec.QuizScore = prev.QuizScore
	}
	s.records[k] = cloneRecord(rec)
	return nil
}

// ListWeak returns a user's weak topics sorted by topic id.
func (s *MemoryStore) ListWeak(_ context.Context, userID string) ([]WeakTopicEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []WeakTopicEntry
	for k, e := range s.weak {
		if k.userID == userID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b WeakTopicEntry) int {
		return strings.Compare(a.TopicID, b.TopicID)
	})
	return out, nil
}

func (s *MemoryStore) UpsertWeak(_ context.Context, entry WeakTopicEntry) error {
	if entry.UserID == "" || entry.TopicID == "" {
		return fmt.Errorf("user_id and topic_id are required")
	}
	if entry.LastAttempt.IsZero() {
		entry.LastAttempt = time.Now()
	}

	s.mu.Lock()
	s.weak[weakKey{entry.UserID, entry.TopicID}] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RemoveWeak(_ context.Context, userID, topicID string) error {
	s.mu.Lock()
	delete(s.weak, weakKey{userID, topicID})
	s.mu.Unlock()
	return nil
}

// Ratio returns the solved fraction set by SetRatio, or 0.
func (s *MemoryStore) Ratio(_ context.Context, userID, topicID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := weakKey{userID, topicID}
	if err := s.failing[k]; err != nil {
		return 0, err
	}
	return s.problems[k], nil
}

// SetRatio records the solved fraction of a topic's problems for a user.
func (s *MemoryStore) SetRatio(userID, topicID string, ratio float64) {
	s.mu.Lock()
	s.problems[weakKey{userID, topicID}] = ratio
	s.mu.Unlock()
}

// FailRatio makes Ratio return err for the (user, topic) pair.
func (s *MemoryStore) FailRatio(userID, topicID string, err error) {
	s.mu.Lock()
	s.failing[weakKey{userID, topicID}] = err
	s.mu.Unlock()
}

func cloneRecord(r Record) Record {
	if r.QuizScore != nil {
		v := *r.QuizScore
		r.QuizScore = &v
	}
	return r
}
