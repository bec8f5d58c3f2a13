package pathing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
	"github.com/p-n-ai/pai-pathfinder/internal/progress"
)

// WeakTopicPolicy decides what happens to a weak-topic entry once the topic
// is passed.
type WeakTopicPolicy string

const (
	// PolicyRetain keeps weak-topic entries until cleared explicitly.
	PolicyRetain WeakTopicPolicy = "retain"
	// PolicyClearOnPass removes the entry when the topic is completed.
	PolicyClearOnPass WeakTopicPolicy = "clear_on_pass"
)

// ParseWeakTopicPolicy converts a configuration value into a policy. An
// empty value means PolicyRetain.
func ParseWeakTopicPolicy(s string) (WeakTopicPolicy, error) {
	switch p := WeakTopicPolicy(s); p {
	case "":
		return PolicyRetain, nil
	case PolicyRetain, PolicyClearOnPass:
		return p, nil
	}
	return "", fmt.Errorf("unknown weak topic policy %q", s)
}

// Submission is a validated progress update for one topic.
type Submission struct {
	UserID     string
	SubtopicID string
	Status     progress.Status
	QuizScore  *int
}

// Verdict reports what the gate stored for a submission.
type Verdict struct {
	TopicID          string          `json:"topic_id"`
	SubtopicID       string          `json:"subtopic_id,omitempty"`
	Requested        progress.Status `json:"requested_status"`
	Stored           progress.Status `json:"stored_status"`
	QuizScore        *int            `json:"quiz_score,omitempty"`
	Downgraded       bool            `json:"downgraded"`
	WeakTopicAdded   bool            `json:"weak_topic_added"`
	WeakTopicCleared bool            `json:"weak_topic_cleared"`
	LastAccessed     time.Time       `json:"last_accessed"`
}

// Gate records progress and enforces quiz thresholds on completion.
// Submissions for the same (user, topic) are serialized through the Locker.
type Gate struct {
	progress progress.ProgressStore
	weak     progress.WeakTopicStore
	locker   progress.Locker
	events   progress.EventLogger
	policy   WeakTopicPolicy
	now      func() time.Time
}

// NewGate builds a gate over the given stores.
func NewGate(store progress.ProgressStore, weak progress.WeakTopicStore, locker progress.Locker, events progress.EventLogger, policy WeakTopicPolicy) *Gate {
	if locker == nil {
		locker = progress.NewKeyedMutex()
	}
	if events == nil {
		events = progress.NopEventLogger{}
	}
	if policy == "" {
		policy = PolicyRetain
	}
	return &Gate{
		progress: store,
		weak:     weak,
		locker:   locker,
		events:   events,
		policy:   policy,
		now:      time.Now,
	}
}

// Apply records sub against topic.
//
// A completion request on a quiz-gated topic is stored as in_progress when
// the score is below the threshold or missing. Every such failed attempt adds
// the topic to the user's weak topics. Once a record is completed it stays
// completed; later submissions only refresh its score and timestamp.
func (g *Gate) Apply(ctx context.Context, topic curriculum.Topic, sub Submission) (Verdict, error) {
	topicKey := curriculum.NormalizeID(topic.ID)

	unlock, err := g.locker.Lock(ctx, progress.LockKey(sub.UserID, topicKey))
	if err != nil {
		return Verdict{}, fmt.Errorf("locking progress for %s: %w", topicKey, err)
	}
	defer unlock()

	current, found, err := g.progress.Get(ctx, sub.UserID, topicKey, sub.SubtopicID)
	if err != nil {
		return Verdict{}, fmt.Errorf("reading progress: %w", err)
	}
	wasCompleted := found && current.Status == progress.StatusCompleted

	now := g.now().UTC()
	verdict := Verdict{
		TopicID:      topic.ID,
		SubtopicID:   sub.SubtopicID,
		Requested:    sub.Status,
		Stored:       sub.Status,
		QuizScore:    sub.QuizScore,
		LastAccessed: now,
	}

	failed := false
	if sub.Status == progress.StatusCompleted && topic.HasQuizGate() {
		score := 0
		if sub.QuizScore != nil {
			score = *sub.QuizScore
		}
		if score < *topic.QuizThreshold {
			failed = true
			if err := g.weak.UpsertWeak(ctx, progress.WeakTopicEntry{
				UserID:      sub.UserID,
				TopicID:     topicKey,
				QuizScore:   score,
				LastAttempt: now,
			}); err != nil {
				return Verdict{}, fmt.Errorf("recording weak topic: %w", err)
			}
			verdict.WeakTopicAdded = true
		}
	}

	switch {
	case wasCompleted:
		verdict.Stored = progress.StatusCompleted
	case failed:
		verdict.Stored = progress.StatusInProgress
		verdict.Downgraded = true
	}

	// A write without a score keeps the recorded one.
	if verdict.QuizScore == nil && found {
		verdict.QuizScore = current.QuizScore
	}

	if err := g.progress.Upsert(ctx, progress.Record{
		UserID:       sub.UserID,
		TopicID:      topicKey,
		SubtopicID:   sub.SubtopicID,
		Status:       verdict.Stored,
		QuizScore:    verdict.QuizScore,
		LastAccessed: now,
	}); err != nil {
		return Verdict{}, fmt.Errorf("writing progress: %w", err)
	}

	if g.policy == PolicyClearOnPass && !wasCompleted && verdict.Stored == progress.StatusCompleted && sub.SubtopicID == "" {
		if err := g.weak.RemoveWeak(ctx, sub.UserID, topicKey); err != nil {
			return Verdict{}, fmt.Errorf("clearing weak topic: %w", err)
		}
		verdict.WeakTopicCleared = true
	}

	g.emit(ctx, sub.UserID, topicKey, verdict)
	return verdict, nil
}

func (g *Gate) emit(ctx context.Context, userID, topicKey string, v Verdict) {
	data := map[string]any{
		"subtopic_id":      v.SubtopicID,
		"requested_status": string(v.Requested),
		"stored_status":    string(v.Stored),
	}
	if v.QuizScore != nil {
		data["quiz_score"] = *v.QuizScore
	}

	types := []string{progress.EventProgressRecorded}
	if v.Downgraded {
		types = append(types, progress.EventCompletionDowngraded)
	}
	if v.WeakTopicCleared {
		types = append(types, progress.EventWeakTopicCleared)
	}
	for _, t := range types {
		err := g.events.LogEvent(ctx, progress.Event{
			UserID:    userID,
			TopicID:   topicKey,
			EventType: t,
			Data:      data,
			CreatedAt: v.LastAccessed,
		})
		if err != nil {
			slog.Warn("failed to log progress event", "type", t, "user_id", userID, "topic_id", topicKey, "error", err)
		}
	}
}
