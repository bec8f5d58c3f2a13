package pathing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
	"github.com/p-n-ai/pai-pathfinder/internal/progress"
)

// ServiceConfig holds dependencies for the path service.
type ServiceConfig struct {
	Catalogue       *curriculum.Store
	Progress        progress.ProgressStore
	WeakTopics      progress.WeakTopicStore
	Problems        progress.ProblemProgress // optional
	Subtopics       SubtopicCounter          // defaults to the current catalogue
	Locker          progress.Locker          // defaults to an in-process KeyedMutex
	Events          progress.EventLogger     // defaults to NopEventLogger
	WeakTopicPolicy WeakTopicPolicy          // defaults to PolicyRetain
	Now             func() time.Time
}

// ProgressRequest is a progress update as received from a client.
type ProgressRequest struct {
	UserID     string `json:"user_id"`
	TopicID    string `json:"topic_id"`
	SubtopicID string `json:"subtopic_id,omitempty"`
	Status     string `json:"status"`
	QuizScore  *int   `json:"quiz_score,omitempty"`
}

// Service exposes path resolution, progress submission and mastery
// selection over the current catalogue snapshot.
type Service struct {
	catalogue *curriculum.Store
	weak      progress.WeakTopicStore
	subtopics SubtopicCounter
	planner   *Planner
	gate      *Gate
}

// NewService creates a path service. A nil progress or weak-topic store
// falls back to one shared in-memory store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalogue == nil {
		return nil, fmt.Errorf("catalogue store is required")
	}
	store := cfg.Progress
	weak := cfg.WeakTopics
	if store == nil || weak == nil {
		mem := progress.NewMemoryStore()
		if store == nil {
			store = mem
		}
		if weak == nil {
			weak = mem
		}
	}

	gate := NewGate(store, weak, cfg.Locker, cfg.Events, cfg.WeakTopicPolicy)
	if cfg.Now != nil {
		gate.now = cfg.Now
	}
	return &Service{
		catalogue: cfg.Catalogue,
		weak:      weak,
		subtopics: cfg.Subtopics,
		planner:   NewPlanner(store, weak, cfg.Problems),
		gate:      gate,
	}, nil
}

// ResolvePath returns every topic outside known with its availability.
func (s *Service) ResolvePath(_ context.Context, known []string) ([]LearningPathNode, error) {
	cat, err := s.catalogue.Current()
	if err != nil {
		return nil, err
	}
	return ResolveAvailability(cat, curriculum.NormalizeSet(known)), nil
}

// ResolveAdaptivePath returns a path personalized with the user's stored
// progress and weak topics.
func (s *Service) ResolveAdaptivePath(ctx context.Context, userID string, known []string) ([]LearningPathNode, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalidf("user id is required")
	}
	cat, err := s.catalogue.Current()
	if err != nil {
		return nil, err
	}
	return s.planner.Plan(ctx, cat, userID, known)
}

// SubmitProgress validates req and records it through the completion gate.
// Invalid requests and unknown topics are rejected before anything is
// written.
func (s *Service) SubmitProgress(ctx context.Context, req ProgressRequest) (Verdict, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return Verdict{}, invalidf("user id is required")
	}
	if curriculum.NormalizeID(req.TopicID) == "" {
		return Verdict{}, invalidf("topic id is required")
	}
	status, err := progress.ParseStatus(req.Status)
	if err != nil {
		return Verdict{}, invalidf("%v", err)
	}
	if req.QuizScore != nil && (*req.QuizScore < 0 || *req.QuizScore > 100) {
		return Verdict{}, invalidf("quiz score %d out of range 0-100", *req.QuizScore)
	}

	cat, err := s.catalogue.Current()
	if err != nil {
		return Verdict{}, err
	}
	topic, err := cat.TopicByID(req.TopicID)
	if err != nil {
		return Verdict{}, err
	}

	subtopicID := curriculum.NormalizeID(req.SubtopicID)
	if subtopicID != "" && !hasSubtopic(topic, subtopicID) {
		return Verdict{}, invalidf("topic %s has no subtopic %q", topic.ID, req.SubtopicID)
	}

	verdict, err := s.gate.Apply(ctx, topic, Submission{
		UserID:     userID,
		SubtopicID: subtopicID,
		Status:     status,
		QuizScore:  req.QuizScore,
	})
	if err != nil {
		return Verdict{}, err
	}
	if verdict.Downgraded {
		slog.Info("completion downgraded",
			"user_id", userID,
			"topic_id", topic.ID,
			"threshold", *topic.QuizThreshold,
		)
	}
	return verdict, nil
}

// SelectMasteryPath returns the mastery path for the current catalogue.
func (s *Service) SelectMasteryPath(ctx context.Context) ([]MasteryTopic, error) {
	cat, err := s.catalogue.Current()
	if err != nil {
		return nil, err
	}
	return SelectMastery(ctx, cat, s.subtopics), nil
}

// WeakTopics lists the user's weak-topic entries.
func (s *Service) WeakTopics(ctx context.Context, userID string) ([]progress.WeakTopicEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalidf("user id is required")
	}
	entries, err := s.weak.ListWeak(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing weak topics: %w", err)
	}
	if entries == nil {
		entries = []progress.WeakTopicEntry{}
	}
	return entries, nil
}

// ClearWeakTopic removes a topic from the user's weak topics. Clearing a
// topic that is not weak is a no-op.
func (s *Service) ClearWeakTopic(ctx context.Context, userID, topicID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return invalidf("user id is required")
	}
	cat, err := s.catalogue.Current()
	if err != nil {
		return err
	}
	topic, err := cat.TopicByID(topicID)
	if err != nil {
		return err
	}
	if err := s.weak.RemoveWeak(ctx, userID, curriculum.NormalizeID(topic.ID)); err != nil {
		return fmt.Errorf("clearing weak topic: %w", err)
	}
	return nil
}

// ReloadCatalogue reloads the catalogue from its source and returns the
// active snapshot.
func (s *Service) ReloadCatalogue(ctx context.Context) (*curriculum.Catalogue, error) {
	return s.catalogue.Reload(ctx)
}

// Catalogue returns the active snapshot.
func (s *Service) Catalogue() (*curriculum.Catalogue, error) {
	return s.catalogue.Current()
}

func hasSubtopic(t curriculum.Topic, id string) bool {
	for _, st := range t.Subtopics {
		if curriculum.NormalizeID(st.ID) == id {
			return true
		}
	}
	return false
}
