package curriculum

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed topic.schema.json
var topicSchemaJSON string

// Source loads the full topic list for a catalogue snapshot.
type Source interface {
	Load(ctx context.Context) ([]Topic, error)
}

// DirSource loads topics from a directory tree of YAML files. Files ending in
// .teaching.md are attached to the topic of the same base name.
type DirSource struct {
	root   string
	schema *gojsonschema.Schema
}

// NewDirSource creates a YAML directory source rooted at rootDir.
func NewDirSource(rootDir string) (*DirSource, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(topicSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compiling topic schema: %w", err)
	}
	return &DirSource{root: rootDir, schema: schema}, nil
}

// Load walks the directory in lexical order. Invalid topic files are logged
// and skipped; I/O errors abort the load.
func (s *DirSource) Load(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	var bases []string
	notes := make(map[string]string)

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".teaching.md"):
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			notes[strings.TrimSuffix(path, ".teaching.md")] = string(data)
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			if strings.HasSuffix(path, ".assessments.yaml") || strings.HasSuffix(path, ".examples.yaml") {
				return nil // Skip non-topic YAML
			}
			topic, ok, err := s.loadTopic(path)
			if err != nil {
				return err
			}
			if ok {
				topics = append(topics, topic)
				bases = append(bases, strings.TrimSuffix(strings.TrimSuffix(path, ".yaml"), ".yml"))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}

	for i := range topics {
		if n, ok := notes[bases[i]]; ok {
			topics[i].TeachingNotes = n
		}
	}

	slog.Info("topic files loaded", "root", s.root, "topics", len(topics))
	return topics, nil
}

func (s *DirSource) loadTopic(path string) (Topic, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Topic{}, false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
		return Topic{}, false, nil
	}
	if id, _ := raw["id"].(string); id == "" {
		return Topic{}, false, nil // Not a topic file
	}

	result, err := s.schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		slog.Warn("skipping topic YAML", "path", path, "error", err)
		return Topic{}, false, nil
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		slog.Warn("skipping topic YAML that fails schema", "path", path, "errors", strings.Join(msgs, "; "))
		return Topic{}, false, nil
	}

	var doc topicDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
		return Topic{}, false, nil
	}

	return doc.topic(), true, nil
}
