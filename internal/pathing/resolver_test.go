package pathing_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
	"github.com/p-n-ai/pai-pathfinder/internal/pathing"
)

func intPtr(v int) *int { return &v }

func abcTopics() []curriculum.Topic {
	return []curriculum.Topic{
		{ID: "A", Name: "Alpha", Priority: 1, EstimatedTimeMins: 10},
		{ID: "B", Name: "Beta", Prerequisites: []string{"A"}, Priority: 2, EstimatedTimeMins: 10},
		{ID: "C", Name: "Gamma", Prerequisites: []string{"A", "B"}, Priority: 3, EstimatedTimeMins: 10},
	}
}

type nodeWant struct {
	id     string
	status pathing.NodeStatus
}

func assertNodes(t *testing.T, got []pathing.LearningPathNode, want []nodeWant) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d nodes %+v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Status != w.status {
			t.Errorf("node[%d] = %s(%s), want %s(%s)", i, got[i].ID, got[i].Status, w.id, w.status)
		}
	}
}

func TestResolveAvailability_Scenarios(t *testing.T) {
	cat := curriculum.NewCatalogue(abcTopics())

	tests := []struct {
		name  string
		known []string
		want  []nodeWant
	}{
		{
			name:  "nothing known",
			known: nil,
			want: []nodeWant{
				{"A", pathing.NodeAvailable},
				{"B", pathing.NodeLocked},
				{"C", pathing.NodeLocked},
			},
		},
		{
			name:  "A known",
			known: []string{"A"},
			want: []nodeWant{
				{"B", pathing.NodeAvailable},
				{"C", pathing.NodeLocked},
			},
		},
		{
			name:  "A and B known",
			known: []string{"A", "B"},
			want: []nodeWant{
				{"C", pathing.NodeAvailable},
			},
		},
		{
			name:  "known ids are normalized",
			known: []string{" a ", "B", "b"},
			want: []nodeWant{
				{"C", pathing.NodeAvailable},
			},
		},
		{
			name:  "everything known",
			known: []string{"A", "B", "C"},
			want:  []nodeWant{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pathing.ResolveAvailability(cat, curriculum.NormalizeSet(tt.known))
			assertNodes(t, got, tt.want)
		})
	}
}

func TestResolveAvailability_OneLayerOnly(t *testing.T) {
	cat := curriculum.NewCatalogue(abcTopics())

	got := pathing.ResolveAvailability(cat, curriculum.NormalizeSet(nil))
	// B is unlocked by A, which is itself only available. B stays locked.
	if got[1].ID != "B" || got[1].Status != pathing.NodeLocked {
		t.Errorf("B = %+v, want locked", got[1])
	}
}

func TestResolveAvailability_AvailabilityMatchesPrerequisites(t *testing.T) {
	topics := append(abcTopics(),
		curriculum.Topic{ID: "D", Name: "Delta", Prerequisites: []string{"missing"}, Priority: 1, EstimatedTimeMins: 5},
		curriculum.Topic{ID: "E", Name: "Epsilon", Priority: 0, EstimatedTimeMins: 5},
	)
	cat := curriculum.NewCatalogue(topics)
	ids := []string{"A", "B", "C", "D", "E"}

	// Every subset of the catalogue as the known set.
	for mask := 0; mask < 1<<len(ids); mask++ {
		var known []string
		for i, id := range ids {
			if mask&(1<<i) != 0 {
				known = append(known, id)
			}
		}
		set := curriculum.NormalizeSet(known)
		nodes := pathing.ResolveAvailability(cat, set)

		seen := map[string]bool{}
		for _, n := range nodes {
			seen[n.ID] = true
			if set[curriculum.NormalizeID(n.ID)] {
				t.Errorf("known=%v: known topic %s in output", known, n.ID)
			}
			allKnown := true
			for _, p := range n.Prerequisites {
				if !set[curriculum.NormalizeID(p)] {
					allKnown = false
				}
			}
			want := pathing.NodeLocked
			if allKnown {
				want = pathing.NodeAvailable
			}
			if n.Status != want {
				t.Errorf("known=%v: %s status = %s, want %s", known, n.ID, n.Status, want)
			}
			if n.ID == "D" && n.Status != pathing.NodeLocked {
				t.Errorf("known=%v: D with unknown prerequisite must stay locked", known)
			}
		}
		if len(seen)+len(set) != len(ids) {
			t.Errorf("known=%v: output has %d nodes, want %d", known, len(seen), len(ids)-len(set))
		}
	}
}

func TestResolveAvailability_SortsByPriorityThenCatalogueOrder(t *testing.T) {
	cat := curriculum.NewCatalogue([]curriculum.Topic{
		{ID: "late", Name: "Late", Priority: 5, EstimatedTimeMins: 1},
		{ID: "first-tie", Name: "First tie", Priority: 2, EstimatedTimeMins: 1},
		{ID: "early", Name: "Early", Priority: 1, EstimatedTimeMins: 1},
		{ID: "second-tie", Name: "Second tie", Priority: 2, EstimatedTimeMins: 1},
	})

	got := pathing.ResolveAvailability(cat, nil)
	want := []string{"early", "first-tie", "second-tie", "late"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("node[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestResolveAvailability_Idempotent(t *testing.T) {
	cat := curriculum.NewCatalogue(abcTopics())
	known := curriculum.NormalizeSet([]string{"A"})

	first, err := json.Marshal(pathing.ResolveAvailability(cat, known))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	second, err := json.Marshal(pathing.ResolveAvailability(cat, known))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("outputs differ:\n%s\n%s", first, second)
	}
}

func TestResolveAvailability_NodesAreIndependent(t *testing.T) {
	cat := curriculum.NewCatalogue(abcTopics())

	got := pathing.ResolveAvailability(cat, nil)
	got[2].Prerequisites[0] = "mutated"

	again := pathing.ResolveAvailability(cat, nil)
	if again[2].Prerequisites[0] != "A" {
		t.Errorf("catalogue prerequisites were mutated: %v", again[2].Prerequisites)
	}
}

func TestLearningPathNode_JSON(t *testing.T) {
	cat := curriculum.NewCatalogue(abcTopics())

	data, err := json.Marshal(pathing.ResolveAvailability(cat, nil)[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"A","name":"Alpha","status":"available","prerequisites":[]}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
