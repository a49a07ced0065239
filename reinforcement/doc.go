// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

// Package reinforcement learns which agent handles tasks best from observed
// rewards. It feeds the routing core agent suggestions scored by running
// average reward; exploration between a suggestion and an explicit user
// request is the router's decision, not this package's.
//
// Reward history lives in a bounded replay buffer with two backings: an
// in-process ring for single-instance deployments and a Redis list shared
// across replicas.
package reinforcement
