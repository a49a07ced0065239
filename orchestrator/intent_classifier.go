// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bhiv/core/orchestrator/llm"
	"bhiv/core/shared/logger"
)

const (
	// fallbackIntent is the hard default when LLM classification cannot be
	// trusted: qna has the broadest coverage of the known categories.
	fallbackIntent IntentCategory = IntentQnA

	// fallbackConfidence accompanies the hard default.
	fallbackConfidence = 0.5

	classifierMaxTokens   = 50
	classifierTemperature = 0.3
)

// LLMIntentClassifier asks the LLM generator capability to classify a query
// when pattern matching is uncertain. Classification never fails upward: any
// transport, parse, or range error resolves to the documented default
// (qna, 0.5).
type LLMIntentClassifier struct {
	generator llm.Generator
	known     map[IntentCategory]bool
	log       *logger.Logger
}

// NewLLMIntentClassifier builds a classifier restricted to the given
// category set.
func NewLLMIntentClassifier(generator llm.Generator, categories []IntentCategory) *LLMIntentClassifier {
	known := make(map[IntentCategory]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}
	return &LLMIntentClassifier{
		generator: generator,
		known:     known,
		log:       logger.New("intent_classifier"),
	}
}

// Classify returns the LLM's intent pick and confidence. The returned values
// are always usable; the bool reports whether the LLM answer was accepted or
// the hard default applied.
func (c *LLMIntentClassifier) Classify(ctx context.Context, query string) (IntentCategory, float64, bool) {
	prompt := c.buildPrompt(query)

	response, ok := c.generator.Generate(ctx, prompt, classifierMaxTokens, classifierTemperature)
	if !ok || response == "" {
		c.log.Warn("", "LLM intent classification unavailable, using fallback", nil)
		return fallbackIntent, fallbackConfidence, false
	}

	intent, confidence, err := c.parseResponse(response)
	if err != nil {
		c.log.Warn("", "LLM intent classification failed, using fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackIntent, fallbackConfidence, false
	}

	return intent, confidence, true
}

func (c *LLMIntentClassifier) parseResponse(response string) (IntentCategory, float64, error) {
	parts := strings.SplitN(strings.TrimSpace(response), ",", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("expected 'category,confidence', got %q", response)
	}

	intent := IntentCategory(strings.ToLower(strings.TrimSpace(parts[0])))
	if !c.known[intent] {
		return "", 0, fmt.Errorf("unknown intent category %q", intent)
	}

	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed confidence: %w", err)
	}
	if confidence < 0 || confidence > 1 {
		return "", 0, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}

	return intent, confidence, nil
}

func (c *LLMIntentClassifier) buildPrompt(query string) string {
	return fmt.Sprintf(`Analyze this user query and classify the primary intent. Choose from: summarization, planning, file_search, or qna.

Query: %q

Respond with only the intent name and confidence score (0.0-1.0), separated by a comma.
Example: qna,0.9

Intent definitions:
- summarization: Requests to condense, shorten, or provide overview of content
- planning: Requests for strategies, plans, timelines, or project management
- file_search: Requests to find, locate, or retrieve specific information or files
- qna: Questions seeking explanations, definitions, or general information

Classification:`, query)
}
