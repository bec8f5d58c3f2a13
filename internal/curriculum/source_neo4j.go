package curriculum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/p-n-ai/pai-pathfinder/internal/platform/graphdb"
)

// topicGraphQuery reads every topic with its REQUIRES edges. Prerequisites are
// ordered by the edge's position property, then by id.
const topicGraphQuery = `
MATCH (t:Topic)
OPTIONAL MATCH (t)-[r:REQUIRES]->(p:Topic)
WITH t, r, p ORDER BY coalesce(r.position, 0), p.id
WITH t, [x IN collect(p.id) WHERE x IS NOT NULL] AS prereqs
OPTIONAL MATCH (t)-[:HAS_SUBTOPIC]->(s:Subtopic)
WITH t, prereqs, collect(s {.id, .name}) AS subtopics
RETURN t.id AS id,
       coalesce(t.name, t.id) AS name,
       coalesce(t.description, '') AS description,
       prereqs,
       coalesce(t.priority, 0) AS priority,
       coalesce(t.difficulty_score, 0.0) AS difficulty_score,
       coalesce(t.estimated_time_mins, 0) AS estimated_time_mins,
       coalesce(t.is_core, false) AS is_core,
       t.quiz_threshold AS quiz_threshold,
       subtopics,
       coalesce(t.essential_problems, []) AS essential_problems,
       coalesce(t.resources, []) AS resources
ORDER BY priority, id
`

// Neo4jSource loads topics from (:Topic)-[:REQUIRES]->(:Topic) graph data.
type Neo4jSource struct {
	graph *graphdb.Graph
}

// NewNeo4jSource creates a graph-backed source.
func NewNeo4jSource(g *graphdb.Graph) *Neo4jSource {
	return &Neo4jSource{graph: g}
}

func (s *Neo4jSource) Load(ctx context.Context) ([]Topic, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("graph is nil")
	}

	out, err := s.graph.Read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, topicGraphQuery, nil)
		if err != nil {
			return nil, err
		}
		var topics []Topic
		for res.Next(ctx) {
			t, err := topicFromRecord(res.Record())
			if err != nil {
				slog.Warn("skipping topic node", "error", err)
				continue
			}
			topics = append(topics, t)
		}
		return topics, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("querying topic graph: %w", err)
	}

	topics, _ := out.([]Topic)
	slog.Info("graph topics loaded", "topics", len(topics))
	return topics, nil
}

func topicFromRecord(rec *neo4j.Record) (Topic, error) {
	m := rec.AsMap()
	id, _ := m["id"].(string)
	if id == "" {
		return Topic{}, fmt.Errorf("topic node without id")
	}

	t := Topic{
		ID:                id,
		Name:              asString(m["name"]),
		Description:       asString(m["description"]),
		Prerequisites:     asStrings(m["prereqs"]),
		Priority:          int(asInt(m["priority"])),
		DifficultyScore:   asFloat(m["difficulty_score"]),
		EstimatedTimeMins: int(asInt(m["estimated_time_mins"])),
		EssentialProblems: asStrings(m["essential_problems"]),
		Resources:         asStrings(m["resources"]),
	}
	t.IsCore, _ = m["is_core"].(bool)
	if q, ok := m["quiz_threshold"].(int64); ok {
		v := int(q)
		t.QuizThreshold = &v
	}
	if raw, ok := m["subtopics"].([]any); ok {
		for _, item := range raw {
			sm, ok := item.(map[string]any)
			if !ok {
				continue
			}
			st := Subtopic{ID: asString(sm["id"]), Name: asString(sm["name"])}
			if st.ID != "" {
				t.Subtopics = append(t.Subtopics, st)
			}
		}
	}
	return t, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asStrings(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
