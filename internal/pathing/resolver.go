// Package pathing turns a topic catalogue and per-user progress into ordered,
// status-annotated learning paths, and gates topic completion on quiz scores.
package pathing

import (
	"cmp"
	"slices"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
)

// NodeStatus is the status of a topic within a learning path.
type NodeStatus string

const (
	NodeLocked     NodeStatus = "locked"
	NodeAvailable  NodeStatus = "available"
	NodeInProgress NodeStatus = "in_progress"
	NodeCompleted  NodeStatus = "completed"
)

// LearningPathNode is one topic in a resolved path. Nodes are built fresh for
// every call and never shared.
type LearningPathNode struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        NodeStatus `json:"status"`
	Prerequisites []string   `json:"prerequisites"`

	priority int
	position int
}

// ResolveAvailability returns every catalogue topic whose normalized id is
// not in known, marked available when all of its prerequisites are in known
// and locked otherwise. Prerequisites that name no catalogue topic can never
// be satisfied. Only one layer is evaluated: a topic unlocked by another
// available topic in the same result stays locked.
//
// known must already be normalized (see curriculum.NormalizeSet). The result
// is ordered by ascending priority, ties kept in catalogue order.
func ResolveAvailability(cat *curriculum.Catalogue, known map[string]bool) []LearningPathNode {
	topics := cat.AllTopics()
	nodes := make([]LearningPathNode, 0, len(topics))
	for i, t := range topics {
		if known[curriculum.NormalizeID(t.ID)] {
			continue
		}
		nodes = append(nodes, newNode(t, i, availability(t, known)))
	}
	sortNodes(nodes)
	return nodes
}

func availability(t curriculum.Topic, known map[string]bool) NodeStatus {
	for _, p := range t.Prerequisites {
		if !known[curriculum.NormalizeID(p)] {
			return NodeLocked
		}
	}
	return NodeAvailable
}

func newNode(t curriculum.Topic, position int, status NodeStatus) LearningPathNode {
	prereqs := make([]string, len(t.Prerequisites))
	copy(prereqs, t.Prerequisites)
	return LearningPathNode{
		ID:            t.ID,
		Name:          t.Name,
		Status:        status,
		Prerequisites: prereqs,
		priority:      t.Priority,
		position:      position,
	}
}

func sortNodes(nodes []LearningPathNode) {
	slices.SortStableFunc(nodes, func(a, b LearningPathNode) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.position, b.position)
	})
}
