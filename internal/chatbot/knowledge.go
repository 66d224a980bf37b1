// Package chatbot answers visitor questions from a fixed FAQ knowledge base.
package chatbot

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidKnowledgeBase is returned when a knowledge base document fails validation.
var ErrInvalidKnowledgeBase = errors.New("invalid knowledge base")

//go:embed knowledge.yaml
var defaultKnowledge []byte

// Topic is a FAQ category with trigger keywords and a canned answer.
type Topic struct {
	ID       string   `yaml:"id" json:"id"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Response string   `yaml:"response" json:"response"`
}

// KnowledgeBase is an ordered, read-only list of topics.
type KnowledgeBase struct {
	topics []Topic
}

type knowledgeDocument struct {
	Topics []Topic `yaml:"topics"`
}

// Default returns the knowledge base shipped with the site.
func Default() *KnowledgeBase {
	kb, err := Parse(defaultKnowledge)
	if err != nil {
		panic(fmt.Sprintf("embedded knowledge base: %v", err))
	}
	return kb
}

// Parse reads a YAML knowledge base document. Keywords are lower-cased and
// topics keep the order they are declared in.
func Parse(data []byte) (*KnowledgeBase, error) {
	var doc knowledgeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKnowledgeBase, err)
	}
	return New(doc.Topics)
}

// New validates topics and builds a knowledge base from them.
func New(topics []Topic) (*KnowledgeBase, error) {
	seen := make(map[string]bool, len(topics))
	out := make([]Topic, 0, len(topics))

	for i, t := range topics {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: topic %d has no id", ErrInvalidKnowledgeBase, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate topic %q", ErrInvalidKnowledgeBase, id)
		}
		seen[id] = true

		if strings.TrimSpace(t.Response) == "" {
			return nil, fmt.Errorf("%w: topic %q has no response", ErrInvalidKnowledgeBase, id)
		}

		keywords := make([]string, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("%w: topic %q has no keywords", ErrInvalidKnowledgeBase, id)
		}

		out = append(out, Topic{ID: id, Keywords: keywords, Response: t.Response})
	}

	return &KnowledgeBase{topics: out}, nil
}

// Topics returns a copy of the topics in declaration order.
func (kb *KnowledgeBase) Topics() []Topic {
	out := make([]Topic, len(kb.topics))
	for i, t := range kb.topics {
		t.Keywords = append([]string(nil), t.Keywords...)
		out[i] = t
	}
	return out
}

// Len reports the number of topics.
func (kb *KnowledgeBase) Len() int {
	return len(kb.topics)
}
