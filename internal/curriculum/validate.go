package curriculum

import (
	"fmt"
	"strings"
)

// Problem describes one structural defect in a topic set.
type Problem struct {
	TopicID string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("topic %q: %s", p.TopicID, p.Message)
}

// ValidationError aggregates every problem found in a topic set.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = p.String()
	}
	return fmt.Sprintf("catalogue validation failed:\n  %s", strings.Join(lines, "\n  "))
}

// Validate checks topics for duplicate ids, self references, dangling
// prerequisites, prerequisite cycles and out-of-range fields. It returns
// nil or a *ValidationError listing all problems.
func Validate(topics []Topic) error {
	var problems []Problem
	add := func(id, format string, args ...any) {
		problems = append(problems, Problem{TopicID: id, Message: fmt.Sprintf(format, args...)})
	}

	ids := make(map[string]bool, len(topics))
	for _, t := range topics {
		key := NormalizeID(t.ID)
		if key == "" {
			add(t.ID, "empty id")
			continue
		}
		if ids[key] {
			add(t.ID, "duplicate id")
		}
		ids[key] = true
	}

	for _, t := range topics {
		self := NormalizeID(t.ID)
		for _, p := range t.Prerequisites {
			key := NormalizeID(p)
			switch {
			case key == self:
				add(t.ID, "references itself as a prerequisite")
			case !ids[key]:
				add(t.ID, "references nonexistent prerequisite %q", p)
			}
		}
		if t.DifficultyScore < 0 || t.DifficultyScore > 1 {
			add(t.ID, "difficulty_score must be in [0, 1], got %v", t.DifficultyScore)
		}
		if t.EstimatedTimeMins <= 0 {
			add(t.ID, "estimated_time_mins must be > 0, got %d", t.EstimatedTimeMins)
		}
		if t.QuizThreshold != nil && (*t.QuizThreshold < 0 || *t.QuizThreshold > 100) {
			add(t.ID, "quiz_threshold must be in [0, 100], got %d", *t.QuizThreshold)
		}
	}

	if cyclic := cycleMembers(topics, ids); len(cyclic) > 0 {
		add(strings.Join(cyclic, ","), "prerequisite cycle")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// cycleMembers runs Kahn's algorithm over the edges between known topics and
// returns the ids that never reach in-degree zero.
func cycleMembers(topics []Topic, ids map[string]bool) []string {
	inDegree := make(map[string]int, len(topics))
	dependents := make(map[string][]string)
	for _, t := range topics {
		key := NormalizeID(t.ID)
		if key == "" {
			continue
		}
		if _, seen := inDegree[key]; !seen {
			inDegree[key] = 0
		}
		for _, p := range t.Prerequisites {
			pk := NormalizeID(p)
			if !ids[pk] {
				continue
			}
			inDegree[key]++
			dependents[pk] = append(dependents[pk], key)
		}
	}

	var queue []string
	queued := make(map[string]bool)
	for _, t := range topics {
		key := NormalizeID(t.ID)
		if key != "" && inDegree[key] == 0 && !queued[key] {
			queued[key] = true
			queue = append(queue, key)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	var cyclic []string
	seen := make(map[string]bool)
	for _, t := range topics {
		key := NormalizeID(t.ID)
		if inDegree[key] > 0 && !seen[key] {
			seen[key] = true
			cyclic = append(cyclic, t.ID)
		}
	}
	return cyclic
}
