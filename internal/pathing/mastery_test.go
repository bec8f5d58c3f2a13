package pathing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
	"github.com/p-n-ai/pai-pathfinder/internal/pathing"
)

func subtopics(n int) []curriculum.Subtopic {
	out := make([]curriculum.Subtopic, n)
	for i := range out {
		out[i] = curriculum.Subtopic{ID: fmt.Sprintf("s%d", i+1)}
	}
	return out
}

func coreTopic(id string, difficulty float64, nSub int) curriculum.Topic {
	return curriculum.Topic{
		ID:                id,
		Name:              "Topic " + id,
		DifficultyScore:   difficulty,
		EstimatedTimeMins: 30,
		IsCore:            true,
		Subtopics:         subtopics(nSub),
		EssentialProblems: []string{id + "-p1"},
		Resources:         []string{"https://example.org/" + id},
	}
}

func TestSelectMastery_TopFiveByDifficulty(t *testing.T) {
	var topics []curriculum.Topic
	for i, d := range []float64{0.9, 0.8, 0.95, 0.7, 0.85, 0.99} {
		topics = append(topics, coreTopic(fmt.Sprintf("T%d", i), d, 3))
	}
	cat := curriculum.NewCatalogue(topics)

	got := pathing.SelectMastery(context.Background(), cat, nil)
	want := []float64{0.99, 0.95, 0.9, 0.85, 0.8}
	if len(got) != len(want) {
		t.Fatalf("got %d topics, want %d", len(got), len(want))
	}
	for i, d := range want {
		if got[i].DifficultyScore != d {
			t.Errorf("topic[%d] difficulty = %v, want %v", i, got[i].DifficultyScore, d)
		}
	}
	if got[0].ID != "T5" || got[0].SubtopicCount != 3 {
		t.Errorf("first topic = %+v, want T5 with 3 subtopics", got[0])
	}
	if len(got[0].EssentialProblems) != 1 || len(got[0].Resources) != 1 {
		t.Errorf("mastery content missing: %+v", got[0])
	}
}

func TestSelectMastery_Filters(t *testing.T) {
	nonCore := coreTopic("elective", 0.99, 5)
	nonCore.IsCore = false

	cat := curriculum.NewCatalogue([]curriculum.Topic{
		nonCore,
		coreTopic("thin", 0.98, 2),
		coreTopic("keep", 0.5, 3),
	})

	got := pathing.SelectMastery(context.Background(), cat, nil)
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("got %+v, want only keep", got)
	}
}

func TestSelectMastery_TiesKeepCatalogueOrder(t *testing.T) {
	cat := curriculum.NewCatalogue([]curriculum.Topic{
		coreTopic("first", 0.5, 3),
		coreTopic("second", 0.5, 4),
		coreTopic("third", 0.5, 5),
	})

	got := pathing.SelectMastery(context.Background(), cat, nil)
	for i, id := range []string{"first", "second", "third"} {
		if got[i].ID != id {
			t.Errorf("topic[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

type flakyCounter struct {
	fail map[string]bool
}

func (c flakyCounter) SubtopicCount(_ context.Context, id string) (int, error) {
	if c.fail[id] {
		return 0, errors.New("count unavailable")
	}
	return 4, nil
}

func TestSelectMastery_CountFailureExcludesTopic(t *testing.T) {
	cat := curriculum.NewCatalogue([]curriculum.Topic{
		coreTopic("ok", 0.4, 0),
		coreTopic("broken", 0.9, 0),
	})

	got := pathing.SelectMastery(context.Background(), cat, flakyCounter{fail: map[string]bool{"broken": true}})
	if len(got) != 1 || got[0].ID != "ok" || got[0].SubtopicCount != 4 {
		t.Errorf("got %+v, want only ok with 4 subtopics", got)
	}
}

func TestSelectMastery_Empty(t *testing.T) {
	got := pathing.SelectMastery(context.Background(), curriculum.NewCatalogue(nil), nil)
	if len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}
