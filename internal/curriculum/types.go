package curriculum

// Topic is a unit of curriculum content with prerequisite edges.
// Topics are owned by a Catalogue snapshot and must not be mutated.
type Topic struct {
	ID                string
	Name              string
	Description       string
	SubjectID         string
	Prerequisites     []string // required, ordered
	Recommended       []string // informational only, never gates availability
	Priority          int
	DifficultyScore   float64
	EstimatedTimeMins int
	IsCore            bool
	QuizThreshold     *int // nil means no quiz gate
	Subtopics         []Subtopic
	EssentialProblems []string
	Resources         []string
	TeachingNotes     string
}

// Subtopic is a named subdivision of a topic.
type Subtopic struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// HasQuizGate reports whether completing the topic requires a passing quiz score.
func (t Topic) HasQuizGate() bool {
	return t.QuizThreshold != nil
}

// topicDocument is the on-disk YAML shape of a topic file.
type topicDocument struct {
	ID                string        `yaml:"id" json:"id"`
	Name              string        `yaml:"name" json:"name"`
	Description       string        `yaml:"description,omitempty" json:"description,omitempty"`
	SubjectID         string        `yaml:"subject_id,omitempty" json:"subject_id,omitempty"`
	Prerequisites     Prerequisites `yaml:"prerequisites" json:"prerequisites"`
	Priority          int           `yaml:"priority" json:"priority"`
	DifficultyScore   float64       `yaml:"difficulty_score" json:"difficulty_score"`
	EstimatedTimeMins int           `yaml:"estimated_time_mins" json:"estimated_time_mins"`
	IsCore            bool          `yaml:"is_core" json:"is_core"`
	QuizThreshold     *int          `yaml:"quiz_threshold,omitempty" json:"quiz_threshold,omitempty"`
	Subtopics         []Subtopic    `yaml:"subtopics,omitempty" json:"subtopics,omitempty"`
	EssentialProblems []string      `yaml:"essential_problems,omitempty" json:"essential_problems,omitempty"`
	Resources         []string      `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// Prerequisites holds required and recommended prerequisites.
type Prerequisites struct {
	Required    []string `yaml:"required" json:"required"`
	Recommended []string `yaml:"recommended,omitempty" json:"recommended,omitempty"`
}

func (d topicDocument) topic() Topic {
	return Topic{
		ID:                d.ID,
		Name:              d.Name,
		Description:       d.Description,
		SubjectID:         d.SubjectID,
		Prerequisites:     d.Prerequisites.Required,
		Recommended:       d.Prerequisites.Recommended,
		Priority:          d.Priority,
		DifficultyScore:   d.DifficultyScore,
		EstimatedTimeMins: d.EstimatedTimeMins,
		IsCore:            d.IsCore,
		QuizThreshold:     d.QuizThreshold,
		Subtopics:         d.Subtopics,
		EssentialProblems: d.EssentialProblems,
		Resources:         d.Resources,
	}
}
