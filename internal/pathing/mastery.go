package pathing

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
)

const (
	// MasteryPathSize caps the number of topics in a mastery path.
	MasteryPathSize = 5
	// MinMasterySubtopics is the subtopic count a core topic needs to qualify.
	MinMasterySubtopics = 3
)

// SubtopicCounter reports how many subtopics a topic has.
type SubtopicCounter interface {
	SubtopicCount(ctx context.Context, topicID string) (int, error)
}

// MasteryTopic is one unit of a mastery path.
type MasteryTopic struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	DifficultyScore   float64  `json:"difficulty_score"`
	SubtopicCount     int      `json:"subtopic_count"`
	EssentialProblems []string `json:"essential_problems"`
	Resources         []string `json:"resources"`
}

// SelectMastery picks up to MasteryPathSize core topics with at least
// MinMasterySubtopics subtopics, hardest first. Topics with equal difficulty
// keep catalogue order. A topic whose subtopic count cannot be read is left
// out.
func SelectMastery(ctx context.Context, cat *curriculum.Catalogue, counter SubtopicCounter) []MasteryTopic {
	if counter == nil {
		counter = cat
	}

	var out []MasteryTopic
	for _, t := range cat.AllTopics() {
		if !t.IsCore {
			continue
		}
		n, err := counter.SubtopicCount(ctx, t.ID)
		if err != nil {
			slog.Warn("subtopic count lookup failed", "topic_id", t.ID, "error", err)
			continue
		}
		if n < MinMasterySubtopics {
			continue
		}
		out = append(out, MasteryTopic{
			ID:                t.ID,
			Name:              t.Name,
			DifficultyScore:   t.DifficultyScore,
			SubtopicCount:     n,
			EssentialProblems: nonNil(t.EssentialProblems),
			Resources:         nonNil(t.Resources),
		})
	}

	slices.SortStableFunc(out, func(a, b MasteryTopic) int {
		return cmp.Compare(b.DifficultyScore, a.DifficultyScore)
	})
	if len(out) > MasteryPathSize {
		out = out[:MasteryPathSize]
	}
	return out
}

func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
