// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"bhiv/core/orchestrator/llm"
)

func TestClassifierParsesWellFormedResponse(t *testing.T) {
	gen := &llm.MockGenerator{Response: "planning,0.85"}
	classifier := NewLLMIntentClassifier(gen, AllIntentCategories())

	intent, confidence, accepted := classifier.Classify(context.Background(), "plan my week")

	assert.True(t, accepted)
	assert.Equal(t, IntentPlanning, intent)
	assert.Equal(t, 0.85, confidence)
}

func TestClassifierNormalizesWhitespaceAndCase(t *testing.T) {
	gen := &llm.MockGenerator{Response: "  File_Search , 0.7  "}
	classifier := NewLLMIntentClassifier(gen, AllIntentCategories())

	intent, confidence, accepted := classifier.Classify(context.Background(), "find the report")

	assert.True(t, accepted)
	assert.Equal(t, IntentFileSearch, intent)
	assert.Equal(t, 0.7, confidence)
}

func TestClassifierNeverFailsUpward(t *testing.T) {
	cases := []struct {
		name     string
		response string
		fail     bool
	}{
		{"generator unavailable", "", true},
		{"empty response", "", false},
		{"garbage response", "I think this is probably a question?", false},
		{"unknown category", "chitchat,0.9", false},
		{"missing confidence", "planning", false},
		{"malformed confidence", "planning,high", false},
		{"confidence above one", "planning,1.5", false},
		{"negative confidence", "planning,-0.2", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &llm.MockGenerator{Response: tc.response, Fail: tc.fail}
			classifier := NewLLMIntentClassifier(gen, AllIntentCategories())

			intent, confidence, accepted := classifier.Classify(context.Background(), "some query")

			assert.False(t, accepted)
			assert.Equal(t, IntentQnA, intent, "every failure resolves to the hard default")
			assert.Equal(t, 0.5, confidence)
		})
	}
}

func TestClassifierPromptContainsQueryAndCategories(t *testing.T) {
	gen := &llm.MockGenerator{Response: "qna,0.9"}
	classifier := NewLLMIntentClassifier(gen, AllIntentCategories())

	classifier.Classify(context.Background(), "what is dharma")

	prompts := gen.Prompts()
	assert.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "what is dharma")
	assert.Contains(t, prompts[0], "summarization")
	assert.Contains(t, prompts[0], "file_search")
}
