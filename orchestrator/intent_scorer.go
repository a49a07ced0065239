// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"regexp"
	"strings"
)

const (
	// matchWeight is the contribution of each regex occurrence to a
	// category's raw score, summed and clamped to 1.0.
	matchWeight = 0.2

	// positionBonus is added when a primary keyword for the category
	// appears among the leading tokens of the query.
	positionBonus = 0.5
)

type intentMatcher struct {
	re     *regexp.Regexp
	weight float64
}

// IntentPattern groups the matchers for one IntentCategory. Patterns are
// immutable at runtime; the set is compiled once at startup.
type IntentPattern struct {
	Category IntentCategory
	matchers []intentMatcher

	// primaryKeywords trigger the position bonus when found within the
	// first primaryWindow whitespace tokens of the query.
	primaryKeywords []string
	primaryWindow   int
}

func mustPattern(category IntentCategory, window int, primary []string, exprs ...string) IntentPattern {
	matchers := make([]intentMatcher, 0, len(exprs))
	for _, expr := range exprs {
		matchers = append(matchers, intentMatcher{
			re:     regexp.MustCompile(`(?i)` + expr),
			weight: matchWeight,
		})
	}
	return IntentPattern{
		Category:        category,
		matchers:        matchers,
		primaryKeywords: primary,
		primaryWindow:   window,
	}
}

// DefaultIntentPatterns returns the built-in pattern set. Declaration order
// here is the tie-break order for arg-max downstream.
func DefaultIntentPatterns() []IntentPattern {
	return []IntentPattern{
		mustPattern(IntentSummarization, 3,
			[]string{"summarize", "summary", "summarise"},
			`\b(summarize|summary|summarise|condense|abstract|overview|recap|brief|shorten|digest|key points)\b`,
			`\b(tl;dr|too long; didn't read|give me the gist|bottom line)\b`,
			`\b(can you summarize|please summarize|summarize this|summarize the)\b`,
		),
		mustPattern(IntentPlanning, 3,
			[]string{"plan", "strategy", "project"},
			`\b(plan|planning|strategy|strategic|project|task|schedule|timeline|roadmap|goals|objectives)\b`,
			`\b(organize|coordinate|manage|execute|implement|how to|steps to|process for)\b`,
			`\b(create a plan|make a plan|develop a strategy|design a roadmap)\b`,
		),
		mustPattern(IntentFileSearch, 3,
			[]string{"search", "find", "locate"},
			`\b(search|find|locate|retrieve|lookup|discover|file|document|folder|directory)\b`,
			`\b(where is|where can I find|look for|search for|find me)\b`,
			`\b(in the files|in documents|in the database|in the knowledge base)\b`,
		),
		// qna's bonus only fires on an interrogative first word.
		mustPattern(IntentQnA, 1,
			[]string{"what", "how", "why", "when", "where", "who", "which"},
			`\b(what|how|why|when|where|who|which|explain|describe|tell me)\b`,
			`\b(question|answer|help|assist|clarify|understand|mean|definition)\b`,
			`\b(can you explain|please explain|I want to know|I'm curious about)\b`,
		),
	}
}

// PatternIntentScorer scores free-text queries against per-intent pattern
// sets. It is a pure function of (patterns, query): no side effects, no
// internal state beyond the compiled patterns.
type PatternIntentScorer struct {
	patterns   []IntentPattern
	categories []IntentCategory
}

// NewPatternIntentScorer builds a scorer over the given pattern groups.
func NewPatternIntentScorer(patterns []IntentPattern) *PatternIntentScorer {
	categories := make([]IntentCategory, 0, len(patterns))
	for _, p := range patterns {
		categories = append(categories, p.Category)
	}
	return &PatternIntentScorer{patterns: patterns, categories: categories}
}

// Categories returns the known categories in declaration order.
func (s *PatternIntentScorer) Categories() []IntentCategory {
	return append([]IntentCategory(nil), s.categories...)
}

// Score produces a confidence-weighted intent distribution for the query.
// An empty query yields an all-zero vector.
func (s *PatternIntentScorer) Score(query string) *ScoreVector {
	vector := NewScoreVector(s.categories)

	queryLower := strings.ToLower(query)
	tokens := splitWords(queryLower)
	if len(tokens) == 0 {
		return vector
	}

	for _, pattern := range s.patterns {
		score := 0.0
		for _, m := range pattern.matchers {
			occurrences := len(m.re.FindAllString(queryLower, -1))
			score += float64(occurrences) * m.weight
		}
		if score > 1.0 {
			score = 1.0
		}

		if hasLeadingKeyword(tokens, pattern.primaryKeywords, pattern.primaryWindow) {
			score += positionBonus
		}

		if score > 1.0 {
			score = 1.0
		}
		vector.set(pattern.Category, score)
	}

	return vector
}

func hasLeadingKeyword(tokens, keywords []string, window int) bool {
	if window > len(tokens) {
		window = len(tokens)
	}
	for _, tok := range tokens[:window] {
		for _, kw := range keywords {
			if tok == kw {
				return true
			}
		}
	}
	return false
}

func splitWords(s string) []string {
	return strings.Fields(s)
}
