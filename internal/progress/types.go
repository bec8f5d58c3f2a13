// Package progress holds per-user learning state: topic progress records,
// weak-topic entries and problem completion, behind swappable stores.
package progress

import (
	"context"
	"fmt"
	"time"
)

// Status is the stored state of a (user, topic) progress record.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown progress status %q", s)
}

// Record is a user's progress on one topic. Absence of a record means
// not started.
type Record struct {
	UserID       string    `json:"user_id"`
	TopicID      string    `json:"topic_id"`
	SubtopicID   string    `json:"subtopic_id,omitempty"`
	Status       Status    `json:"status"`
	QuizScore    *int      `json:"quiz_score,omitempty"`
	LastAccessed time.Time `json:"last_accessed"`
}

// WeakTopicEntry marks a topic the user failed to pass above threshold.
type WeakTopicEntry struct {
	UserID      string    `json:"user_id"`
	TopicID     string    `json:"topic_id"`
	QuizScore   int       `json:"quiz_score"`
	LastAttempt time.Time `json:"last_attempt"`
}

// ProgressStore persists progress records keyed by (user, topic, subtopic).
// An empty subtopic id addresses the topic-level record.
type ProgressStore interface {
	List(ctx context.Context, userID string) ([]Record, error)
	Get(ctx context.Context, userID, topicID, subtopicID string) (Record, bool, error)
	Upsert(ctx context.Context, rec Record) error
}

// WeakTopicStore persists weak-topic entries.
type WeakTopicStore interface {
	ListWeak(ctx context.Context, userID string) ([]WeakTopicEntry, error)
	UpsertWeak(ctx context.Context, entry WeakTopicEntry) error
	RemoveWeak(ctx context.Context, userID, topicID string) error
}

// ProblemProgress reports the fraction of a topic's problems a user has
// solved, in [0, 1].
type ProblemProgress interface {
	Ratio(ctx context.Context, userID, topicID string) (float64, error)
}

// Completed returns the topic ids of topic-level records with
// StatusCompleted. Completed subtopics do not complete their topic.
func Completed(records []Record) []string {
	var ids []string
	for _, r := range records {
		if r.Status == StatusCompleted && r.SubtopicID == "" {
			ids = append(ids, r.TopicID)
		}
	}
	return ids
}
