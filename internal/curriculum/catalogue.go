package curriculum

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/crypto/blake2b"
)

// ErrNotFound is returned when a topic id is absent from the catalogue.
var ErrNotFound = errors.New("topic not found")

// Catalogue is an immutable snapshot of all topics and their prerequisite
// edges. It is safe for concurrent use; reloads produce a new Catalogue.
type Catalogue struct {
	topics  []Topic
	byID    map[string]int
	version string
}

// NewCatalogue builds a snapshot from topics in catalogue order. Later
// duplicates of a normalized id are ignored.
func NewCatalogue(topics []Topic) *Catalogue {
	c := &Catalogue{
		topics: make([]Topic, 0, len(topics)),
		byID:   make(map[string]int, len(topics)),
	}
	for _, t := range topics {
		key := NormalizeID(t.ID)
		if key == "" {
			continue
		}
		if _, dup := c.byID[key]; dup {
			continue
		}
		t.Prerequisites = slices.Clone(t.Prerequisites)
		c.byID[key] = len(c.topics)
		c.topics = append(c.topics, t)
	}
	c.version = fingerprint(c.topics)
	return c
}

// AllTopics returns all topics in catalogue order.
func (c *Catalogue) AllTopics() []Topic {
	return slices.Clone(c.topics)
}

// Len returns the number of topics.
func (c *Catalogue) Len() int {
	return len(c.topics)
}

// TopicByID returns a topic by id. The lookup is normalized.
func (c *Catalogue) TopicByID(id string) (Topic, error) {
	i, ok := c.byID[NormalizeID(id)]
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.topics[i], nil
}

// Index returns the catalogue position of a topic, or -1.
func (c *Catalogue) Index(id string) int {
	if i, ok := c.byID[NormalizeID(id)]; ok {
		return i
	}
	return -1
}

// PrerequisitesOf returns the required prerequisite ids of a topic as
// declared. Ids that do not resolve to a topic are kept.
func (c *Catalogue) PrerequisitesOf(id string) ([]string, error) {
	t, err := c.TopicByID(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.Prerequisites), nil
}

// SubtopicCount returns the number of subtopics declared for a topic.
func (c *Catalogue) SubtopicCount(_ context.Context, id string) (int, error) {
	t, err := c.TopicByID(id)
	if err != nil {
		return 0, err
	}
	return len(t.Subtopics), nil
}

// Version identifies the snapshot contents. Two catalogues with the same
// topics in the same order share a version.
func (c *Catalogue) Version() string {
	return c.version
}

func fingerprint(topics []Topic) string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	writeStr := func(s string) {
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for _, t := range topics {
		writeStr(t.ID)
		writeStr(t.Name)
		writeInt(int64(len(t.Prerequisites)))
		for _, p := range t.Prerequisites {
			writeStr(p)
		}
		writeInt(int64(t.Priority))
		writeInt(int64(math.Float64bits(t.DifficultyScore)))
		writeInt(int64(t.EstimatedTimeMins))
		if t.IsCore {
			writeInt(1)
		} else {
			writeInt(0)
		}
		if t.QuizThreshold != nil {
			writeInt(int64(*t.QuizThreshold))
		} else {
			writeInt(-1)
		}
		writeInt(int64(len(t.Subtopics)))
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}
