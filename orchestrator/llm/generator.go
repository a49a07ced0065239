// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package llm

import "context"

// Generator produces text for a prompt. ok is false when no usable text
// could be produced within the context's budget; the caller decides what
// degraded behavior applies.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (text string, ok bool)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, bool)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, bool) {
	return f(ctx, prompt, maxTokens, temperature)
}
