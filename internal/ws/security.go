// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package ws

import (
	"sync"
	"time"
)

const (
	// maxMessageSize is the maximum size of a single inbound frame.
	maxMessageSize = 64 * 1024

	// maxTermCols and maxTermRows clamp resize requests.
	maxTermCols = 500
	maxTermRows = 200

	// messageRate is the sustained inbound messages-per-second allowance;
	// messageBurst covers paste bursts before throttling kicks in.
	messageRate  = 200
	messageBurst = 200
)

// RateLimiter is a token bucket limiter for inbound WebSocket messages.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimiter creates a limiter with the given rate (tokens/sec) and burst.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

// Allow returns true if a message is permitted, consuming one token.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
