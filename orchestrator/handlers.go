// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"bhiv/core/orchestrator/knowledge"
	"bhiv/core/orchestrator/llm"
	"bhiv/core/shared/logger"
)

// Handler is an opaque capability reached by agent id. The router treats it
// as a black box: given a task it produces an output, and any failure is
// converted to a structured error at the dispatch boundary.
type Handler interface {
	ID() string
	Handle(ctx context.Context, task TaskContext) (HandlerOutput, error)
}

// HandlerMap binds agent ids to handler instances. The set is known at
// compile time and wired explicitly; there is no runtime string-to-type
// resolution.
type HandlerMap map[string]Handler

// RetrievalHandler is the standard knowledge-grounded handler: it retrieves
// top-k chunks for the query and asks the LLM generator for an answer
// grounded in them. When the generator declines, the retrieved content
// itself is returned as a degraded answer rather than an error.
type RetrievalHandler struct {
	id        string
	retriever knowledge.Retriever
	generator llm.Generator
	topK      int
	maxTokens int
	log       *logger.Logger
}

// NewRetrievalHandler builds a retrieval-grounded handler for the agent id.
func NewRetrievalHandler(id string, retriever knowledge.Retriever, generator llm.Generator, topK, maxTokens int) *RetrievalHandler {
	if topK <= 0 {
		topK = 5
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &RetrievalHandler{
		id:        id,
		retriever: retriever,
		generator: generator,
		topK:      topK,
		maxTokens: maxTokens,
		log:       logger.New("handler." + id),
	}
}

func (h *RetrievalHandler) ID() string { return h.id }

// Handle answers the query from retrieved knowledge. A transport failure of
// the retriever is a handler error; empty retrieval results are not.
func (h *RetrievalHandler) Handle(ctx context.Context, task TaskContext) (HandlerOutput, error) {
	chunks, err := h.retriever.Query(ctx, task.Query, h.topK)
	if err != nil {
		return HandlerOutput{}, fmt.Errorf("knowledge retrieval failed: %w", err)
	}

	sources := make([]string, 0, len(chunks))
	contents := make([]string, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, c.Source)
		contents = append(contents, c.Content)
	}

	prompt := h.buildPrompt(task.Query, contents)
	answer, ok := h.generator.Generate(ctx, prompt, h.maxTokens, 0.7)
	if !ok || answer == "" {
		// Degraded: fall back to the raw retrieved content.
		h.log.Warn(task.TaskID, "generator declined, returning retrieved content", nil)
		if len(contents) == 0 {
			return HandlerOutput{
				Agent:  h.id,
				Status: 200,
				Texts:  []string{"No relevant knowledge found for this query."},
			}, nil
		}
		return HandlerOutput{
			Agent:   h.id,
			Status:  200,
			Texts:   contents,
			Sources: sources,
		}, nil
	}

	return HandlerOutput{
		Agent:   h.id,
		Status:  200,
		Texts:   []string{answer},
		Sources: sources,
	}, nil
}

// GeneratorHandler answers directly from the LLM generator with a
// role-specific instruction, no retrieval step. Summarization and planning
// agents are of this kind.
type GeneratorHandler struct {
	id          string
	instruction string
	generator   llm.Generator
	maxTokens   int
	temperature float64
}

// NewGeneratorHandler builds a plain LLM-backed handler. The instruction is
// prepended to every query.
func NewGeneratorHandler(id, instruction string, generator llm.Generator, maxTokens int, temperature float64) *GeneratorHandler {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if temperature <= 0 {
		temperature = 0.7
	}
	return &GeneratorHandler{
		id:          id,
		instruction: instruction,
		generator:   generator,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (h *GeneratorHandler) ID() string { return h.id }

// Handle asks the generator for an answer. A declined generation is a
// handler error here: with no retrieval step there is nothing to degrade to.
func (h *GeneratorHandler) Handle(ctx context.Context, task TaskContext) (HandlerOutput, error) {
	prompt := task.Query
	if h.instruction != "" {
		prompt = h.instruction + "\n\n" + task.Query
	}
	answer, ok := h.generator.Generate(ctx, prompt, h.maxTokens, h.temperature)
	if !ok || answer == "" {
		return HandlerOutput{}, fmt.Errorf("generation failed for agent %s", h.id)
	}
	return HandlerOutput{
		Agent:  h.id,
		Status: 200,
		Texts:  []string{answer},
	}, nil
}

func (h *RetrievalHandler) buildPrompt(query string, contents []string) string {
	var b strings.Builder
	b.WriteString("Answer the user's query using the knowledge base context below.\n\n")
	if len(contents) > 0 {
		b.WriteString("Context:\n")
		for _, c := range contents {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Query: ")
	b.WriteString(query)
	return b.String()
}
