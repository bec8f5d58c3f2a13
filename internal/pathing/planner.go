package pathing

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
	"github.com/p-n-ai/pai-pathfinder/internal/progress"
)

// ratioLookupLimit caps concurrent problem-progress lookups per plan.
const ratioLookupLimit = 8

// Planner combines stated knowledge with stored progress, weak topics and
// problem completion into a personalized path.
type Planner struct {
	progress progress.ProgressStore
	weak     progress.WeakTopicStore
	problems progress.ProblemProgress
}

// NewPlanner builds a planner. problems may be nil, in which case problem
// completion never marks a topic completed.
func NewPlanner(store progress.ProgressStore, weak progress.WeakTopicStore, problems progress.ProblemProgress) *Planner {
	return &Planner{progress: store, weak: weak, problems: problems}
}

// Plan resolves a path for userID.
//
// Weak topics are treated as known so that their dependents unlock, and are
// put back into the path as in_progress. A node is completed when the user
// has a completed topic record or has solved every problem of the topic.
// Nodes for topics in known or weak that are not completed are in_progress.
func (p *Planner) Plan(ctx context.Context, cat *curriculum.Catalogue, userID string, known []string) ([]LearningPathNode, error) {
	records, err := p.progress.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing progress for %s: %w", userID, err)
	}
	entries, err := p.weak.ListWeak(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing weak topics for %s: %w", userID, err)
	}

	completed := curriculum.NormalizeSet(progress.Completed(records))
	weak := make(map[string]bool, len(entries))
	for _, e := range entries {
		if id := curriculum.NormalizeID(e.TopicID); id != "" {
			weak[id] = true
		}
	}
	knownSet := curriculum.NormalizeSet(known)

	effective := make(map[string]bool, len(knownSet)+len(weak))
	for id := range knownSet {
		effective[id] = true
	}
	for id := range weak {
		effective[id] = true
	}

	nodes := ResolveAvailability(cat, effective)
	nodes = p.resurface(cat, nodes, weak, effective)

	solved := p.solvedAll(ctx, userID, nodes, completed)
	for i := range nodes {
		id := curriculum.NormalizeID(nodes[i].ID)
		switch {
		case completed[id] || solved[i]:
			nodes[i].Status = NodeCompleted
		case knownSet[id] || weak[id]:
			nodes[i].Status = NodeInProgress
		}
	}
	sortNodes(nodes)
	return nodes, nil
}

// resurface appends catalogue topics from weak that the resolver left out
// because they count as known.
func (p *Planner) resurface(cat *curriculum.Catalogue, nodes []LearningPathNode, weak, effective map[string]bool) []LearningPathNode {
	if len(weak) == 0 {
		return nodes
	}
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[curriculum.NormalizeID(n.ID)] = true
	}
	for i, t := range cat.AllTopics() {
		id := curriculum.NormalizeID(t.ID)
		if !weak[id] || present[id] {
			continue
		}
		nodes = append(nodes, newNode(t, i, availability(t, effective)))
		present[id] = true
	}
	return nodes
}

// solvedAll reports, per node, whether the user has solved every problem of
// the topic. Lookups run concurrently; a failed lookup counts as unsolved.
// Topics already completed by record are not looked up.
func (p *Planner) solvedAll(ctx context.Context, userID string, nodes []LearningPathNode, completed map[string]bool) []bool {
	solved := make([]bool, len(nodes))
	if p.problems == nil {
		return solved
	}

	var g errgroup.Group
	g.SetLimit(ratioLookupLimit)
	for i, n := range nodes {
		id := curriculum.NormalizeID(n.ID)
		if completed[id] {
			continue
		}
		g.Go(func() error {
			ratio, err := p.problems.Ratio(ctx, userID, id)
			if err != nil {
				slog.Warn("problem progress lookup failed",
					"user_id", userID,
					"topic_id", id,
					"error", err,
				)
				return nil
			}
			solved[i] = ratio >= 1.0
			return nil
		})
	}
	_ = g.Wait()
	return solved
}
