// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

// Package llm provides the text-generation capability used by the
// orchestrator's handlers and fallback classifier.
//
// The Generator interface deliberately reports failure as a boolean rather
// than an error: callers always have a degraded path (pattern defaults,
// raw retrieved content) and never need to inspect why generation failed.
// The concrete clients log the cause themselves.
package llm
