package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultTopicSheet is the worksheet XLSXSource reads when none is given.
const DefaultTopicSheet = "topics"

// XLSXSource loads topics from an authoring workbook. The first row is a
// header; list-valued columns are separated by ';'.
type XLSXSource struct {
	path  string
	sheet string
}

// NewXLSXSource creates a workbook source. An empty sheet means DefaultTopicSheet.
func NewXLSXSource(path, sheet string) *XLSXSource {
	if sheet == "" {
		sheet = DefaultTopicSheet
	}
	return &XLSXSource{path: path, sheet: sheet}
}

// TopicColumns lists the recognised header names in export order.
var TopicColumns = []string{
	"id", "name", "description", "subject_id", "prerequisites", "priority",
	"difficulty_score", "estimated_time_mins", "is_core", "quiz_threshold",
	"subtopics", "essential_problems", "resources",
}

func (s *XLSXSource) Load(ctx context.Context) ([]Topic, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", s.sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, fmt.Errorf("sheet %q has no id column", s.sheet)
	}

	var topics []Topic
	for n, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cell := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if cell("id") == "" {
			continue
		}

		t, err := topicFromRow(cell)
		if err != nil {
			slog.Warn("skipping workbook row", "sheet", s.sheet, "row", n+2, "error", err)
			continue
		}
		topics = append(topics, t)
	}

	slog.Info("workbook topics loaded", "path", s.path, "topics", len(topics))
	return topics, nil
}

func topicFromRow(cell func(string) string) (Topic, error) {
	t := Topic{
		ID:                cell("id"),
		Name:              cell("name"),
		Description:       cell("description"),
		SubjectID:         cell("subject_id"),
		Prerequisites:     splitList(cell("prerequisites")),
		EssentialProblems: splitList(cell("essential_problems")),
		Resources:         splitList(cell("resources")),
	}
	if t.Name == "" {
		t.Name = t.ID
	}

	var err error
	if v := cell("priority"); v != "" {
		if t.Priority, err = strconv.Atoi(v); err != nil {
			return Topic{}, fmt.Errorf("priority: %w", err)
		}
	}
	if v := cell("difficulty_score"); v != "" {
		if t.DifficultyScore, err = strconv.ParseFloat(v, 64); err != nil {
			return Topic{}, fmt.Errorf("difficulty_score: %w", err)
		}
	}
	if v := cell("estimated_time_mins"); v != "" {
		if t.EstimatedTimeMins, err = strconv.Atoi(v); err != nil {
			return Topic{}, fmt.Errorf("estimated_time_mins: %w", err)
		}
	}
	if v := cell("is_core"); v != "" {
		if t.IsCore, err = strconv.ParseBool(strings.ToLower(v)); err != nil {
			return Topic{}, fmt.Errorf("is_core: %w", err)
		}
	}
	if v := cell("quiz_threshold"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return Topic{}, fmt.Errorf("quiz_threshold: %w", err)
		}
		t.QuizThreshold = &q
	}
	for _, id := range splitList(cell("subtopics")) {
		t.Subtopics = append(t.Subtopics, Subtopic{ID: id, Name: id})
	}
	return t, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WriteWorkbook writes topics to a new workbook at path in the layout
// XLSXSource reads.
func WriteWorkbook(path string, topics []Topic) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DefaultTopicSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(TopicColumns))
	for i, c := range TopicColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(DefaultTopicSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range topics {
		threshold := ""
		if t.QuizThreshold != nil {
			threshold = strconv.Itoa(*t.QuizThreshold)
		}
		subtopics := make([]string, len(t.Subtopics))
		for j, st := range t.Subtopics {
			subtopics[j] = st.ID
		}
		row := []any{
			t.ID, t.Name, t.Description, t.SubjectID,
			strings.Join(t.Prerequisites, ";"),
			t.Priority, t.DifficultyScore, t.EstimatedTimeMins,
			strconv.FormatBool(t.IsCore), threshold,
			strings.Join(subtopics, ";"),
			strings.Join(t.EssentialProblems, ";"),
			strings.Join(t.Resources, ";"),
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DefaultTopicSheet, cellRef, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
