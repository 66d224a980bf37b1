package chatbot

import "strings"

// Fallback is returned when no topic matches.
const Fallback = "I'm not sure about that one. Try asking about Alex's skills, projects, or how to get in contact!"

// FallbackTopicID labels unmatched questions in analytics.
const FallbackTopicID = "fallback"

// Matcher resolves free-text questions against a knowledge base.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	kb *KnowledgeBase
}

// NewMatcher returns a Matcher over kb.
func NewMatcher(kb *KnowledgeBase) *Matcher {
	return &Matcher{kb: kb}
}

// Match returns the first topic, in declaration order, that has a keyword
// contained in the lower-cased input.
func (m *Matcher) Match(input string) (Topic, bool) {
	normalized := strings.ToLower(input)
	if normalized == "" {
		return Topic{}, false
	}
	for _, t := range m.kb.topics {
		for _, kw := range t.Keywords {
			if strings.Contains(normalized, kw) {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// Resolve returns the response for input, or Fallback.
func (m *Matcher) Resolve(input string) string {
	if t, ok := m.Match(input); ok {
		return t.Response
	}
	return Fallback
}
