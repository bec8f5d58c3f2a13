package curriculum_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
)

func intPtr(v int) *int { return &v }

func TestValidate_ValidCatalogue(t *testing.T) {
	if err := curriculum.Validate(sampleTopics()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		topics []curriculum.Topic
		want   string
	}{
		{
			name: "cycle",
			topics: []curriculum.Topic{
				{ID: "a", Prerequisites: []string{"b"}, EstimatedTimeMins: 1},
				{ID: "b", Prerequisites: []string{"a"}, EstimatedTimeMins: 1},
			},
			want: "cycle",
		},
		{
			name: "dangling prerequisite",
			topics: []curriculum.Topic{
				{ID: "a", Prerequisites: []string{"nonexistent"}, EstimatedTimeMins: 1},
			},
			want: "nonexistent",
		},
		{
			name: "self reference",
			topics: []curriculum.Topic{
				{ID: "a", Prerequisites: []string{"A"}, EstimatedTimeMins: 1},
			},
			want: "itself",
		},
		{
			name: "duplicate id",
			topics: []curriculum.Topic{
				{ID: "a", EstimatedTimeMins: 1},
				{ID: "A", EstimatedTimeMins: 1},
			},
			want: "duplicate",
		},
		{
			name: "difficulty out of range",
			topics: []curriculum.Topic{
				{ID: "a", DifficultyScore: 1.5, EstimatedTimeMins: 1},
			},
			want: "difficulty_score",
		},
		{
			name: "threshold out of range",
			topics: []curriculum.Topic{
				{ID: "a", QuizThreshold: intPtr(101), EstimatedTimeMins: 1},
			},
			want: "quiz_threshold",
		},
		{
			name: "estimated time not positive",
			topics: []curriculum.Topic{
				{ID: "a"},
			},
			want: "estimated_time_mins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := curriculum.Validate(tt.topics)
			if err == nil {
				t.Fatal("Validate() error = nil, want problem")
			}
			var verr *curriculum.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_CycleListsOnlyMembers(t *testing.T) {
	err := curriculum.Validate([]curriculum.Topic{
		{ID: "root", EstimatedTimeMins: 1},
		{ID: "x", Prerequisites: []string{"root", "y"}, EstimatedTimeMins: 1},
		{ID: "y", Prerequisites: []string{"x"}, EstimatedTimeMins: 1},
	})
	var verr *curriculum.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if len(verr.Problems) != 1 {
		t.Fatalf("problems = %v, want exactly one", verr.Problems)
	}
	if verr.Problems[0].TopicID != "x,y" {
		t.Errorf("cycle members = %q, want x,y", verr.Problems[0].TopicID)
	}
}
