// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package sessions

import "sync"

// defaultScrollbackSize is the maximum scrollback buffer size (256 KB).
const defaultScrollbackSize = 256 * 1024

// Scrollback is a thread-safe bounded byte buffer that stores output produced
// while a session has no bound connection. When the buffer exceeds maxLen,
// older data is trimmed from the front. The whole buffer is replayed on
// reconnect and then cleared.
type Scrollback struct {
	mu     sync.Mutex
	data   []byte
	maxLen int
}

// NewScrollback creates a scrollback buffer with the given maximum size.
// If maxLen <= 0, defaultScrollbackSize is used.
func NewScrollback(maxLen int) *Scrollback {
	if maxLen <= 0 {
		maxLen = defaultScrollbackSize
	}
	return &Scrollback{maxLen: maxLen}
}

// Write appends data, trimming from the front if the total exceeds maxLen.
func (s *Scrollback) Write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, p...)
	if len(s.data) > s.maxLen {
		s.data = s.data[len(s.data)-s.maxLen:]
	}
}

// Drain returns the buffered contents and resets the buffer.
func (s *Scrollback) Drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.data
	s.data = nil
	return out
}

// Snapshot returns a copy of the buffered contents without clearing them.
func (s *Scrollback) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// Len returns the current buffer length.
func (s *Scrollback) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
