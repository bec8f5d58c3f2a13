package curriculum_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
)

func TestXLSXSource_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.xlsx")
	topics := []curriculum.Topic{
		{ID: "A", Name: "Alpha", Priority: 1, DifficultyScore: 0.25, EstimatedTimeMins: 20},
		{
			ID: "B", Name: "Beta", Prerequisites: []string{"A"}, Priority: 2,
			DifficultyScore: 0.75, EstimatedTimeMins: 40, IsCore: true, QuizThreshold: intPtr(70),
			Subtopics:         []curriculum.Subtopic{{ID: "b1", Name: "b1"}, {ID: "b2", Name: "b2"}},
			EssentialProblems: []string{"p1", "p2"},
			Resources:         []string{"r1"},
		},
	}
	if err := curriculum.WriteWorkbook(path, topics); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	got, err := curriculum.NewXLSXSource(path, "").Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() = %d topics, want 2", len(got))
	}

	b := got[1]
	if b.ID != "B" || b.Name != "Beta" {
		t.Errorf("topic = %s/%s, want B/Beta", b.ID, b.Name)
	}
	if len(b.Prerequisites) != 1 || b.Prerequisites[0] != "A" {
		t.Errorf("Prerequisites = %v, want [A]", b.Prerequisites)
	}
	if b.QuizThreshold == nil || *b.QuizThreshold != 70 {
		t.Errorf("QuizThreshold = %v, want 70", b.QuizThreshold)
	}
	if !b.IsCore {
		t.Error("IsCore should be true")
	}
	if b.DifficultyScore != 0.75 {
		t.Errorf("DifficultyScore = %v, want 0.75", b.DifficultyScore)
	}
	if len(b.Subtopics) != 2 || len(b.EssentialProblems) != 2 || len(b.Resources) != 1 {
		t.Errorf("lists = %d/%d/%d, want 2/2/1", len(b.Subtopics), len(b.EssentialProblems), len(b.Resources))
	}
	if got[0].QuizThreshold != nil {
		t.Error("empty quiz_threshold cell should mean no quiz gate")
	}
}

func TestXLSXSource_SkipsBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.xlsx")

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "topics")
	f.SetSheetRow("topics", "A1", &[]any{"id", "name", "priority"})
	f.SetSheetRow("topics", "A2", &[]any{"A", "Alpha", "1"})
	f.SetSheetRow("topics", "A3", &[]any{"B", "Beta", "not-a-number"})
	f.SetSheetRow("topics", "A4", &[]any{"", "no id", "3"})
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	f.Close()

	got, err := curriculum.NewXLSXSource(path, "topics").Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "A" {
		t.Errorf("Load() = %v, want only A", got)
	}
}

func TestXLSXSource_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.xlsx")
	if err := curriculum.WriteWorkbook(path, nil); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	if _, err := curriculum.NewXLSXSource(path, "nope").Load(context.Background()); err == nil {
		t.Error("Load() should fail for a missing sheet")
	}
}
