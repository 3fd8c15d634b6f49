// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package sessions manages shell session lifecycle.
//
// A Session pairs one live PTY-backed shell process with its bookkeeping
// metadata. Sessions survive transport disconnects: dropping the bound
// connection leaves the process running ("orphaned") until either a client
// reconnects or the expiry sweeper destroys it.
//
// State machine per session:
//
//	Active (bound) <-> Orphaned (process alive, no connection) -> Destroyed
//
// The transition to Destroyed is one-way; a destroyed id can never be revived.
package sessions

import (
	"errors"
	"sync"
	"time"

	"github.com/shellgate/shellgate/internal/pty"
)

// State is the lifecycle state of a session.
type State string

const (
	// StateActive means the process is alive and a connection is bound.
	StateActive State = "active"
	// StateOrphaned means the process is alive but no connection is bound.
	StateOrphaned State = "orphaned"
	// StateDestroyed is terminal: the process is dead and the id is retired.
	StateDestroyed State = "destroyed"
)

var errNotStarted = errors.New("session process not started")

// Sink consumes a session's output while a connection is bound to it.
type Sink interface {
	// Output delivers a chunk of process output, in production order.
	Output(data []byte)
	// Closed reports that the process exited on its own.
	Closed(code int, signal string)
}

// Session is the unit of persistence: one shell process plus metadata.
type Session struct {
	ID         string
	Owner      string // identity bound at creation; empty when auth is disabled
	WorkingDir string
	CreatedAt  time.Time

	scrollback *Scrollback
	timeout    time.Duration

	mu         sync.Mutex
	proc       *pty.Process
	state      State
	binder     string // connection id currently bound, empty when orphaned
	sink       Sink
	lastAccess time.Time
	expiresAt  time.Time
}

func newSession(id, owner, workingDir string, timeout time.Duration, scrollbackSize int) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Owner:      owner,
		WorkingDir: workingDir,
		CreatedAt:  now,
		scrollback: NewScrollback(scrollbackSize),
		timeout:    timeout,
		state:      StateOrphaned,
		lastAccess: now,
		expiresAt:  now.Add(timeout),
	}
}

// setProcess attaches the spawned process to the placeholder session. It
// returns false if the session was destroyed while the spawn was in flight;
// the caller still owns the process and must kill it.
func (s *Session) setProcess(p *pty.Process) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDestroyed {
		return false
	}
	s.proc = p
	return true
}

// deliver routes process output to the bound sink, or into the scrollback
// buffer when no connection is bound. It is only ever called from the
// process's single read goroutine, which preserves per-session ordering.
func (s *Session) deliver(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != nil {
		s.sink.Output(data)
		return
	}
	s.scrollback.Write(data)
}

// Bind attaches a connection's sink, replacing any previous binding. Output
// buffered while the session was orphaned is replayed into the sink before
// the binding takes effect; because deliver holds the same lock, live output
// can never overtake the replay. onBound, when non-nil, runs once the session
// is known to be live but before the replay, so an acknowledgement frame can
// be ordered ahead of the buffered output. Returns false, without invoking
// onBound, if the session is already destroyed.
func (s *Session) Bind(connID string, sink Sink, onBound func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDestroyed {
		return false
	}
	if onBound != nil {
		onBound()
	}
	if replay := s.scrollback.Drain(); len(replay) > 0 {
		sink.Output(replay)
	}
	s.binder = connID
	s.sink = sink
	s.state = StateActive
	s.touchLocked()
	return true
}

// Unbind severs the binding held by the given connection. A stale unbind
// (after another connection rebound) is a no-op. The process keeps running.
func (s *Session) Unbind(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.binder != connID {
		return
	}
	s.binder = ""
	s.sink = nil
	if s.state == StateActive {
		s.state = StateOrphaned
	}
	s.touchLocked()
}

// Touch resets the expiry deadline to now + timeout.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.lastAccess = time.Now()
	s.expiresAt = s.lastAccess.Add(s.timeout)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastAccess returns the time of the last touch.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// ExpiresAt returns the current expiry deadline.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Expired reports whether the session's deadline has passed.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt.Before(now)
}

// Buffered returns how many output bytes are waiting in the scrollback.
func (s *Session) Buffered() int {
	return s.scrollback.Len()
}

// Write forwards input bytes to the process.
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	proc := s.proc
	destroyed := s.state == StateDestroyed
	s.mu.Unlock()

	if destroyed || proc == nil {
		return errNotStarted
	}
	_, err := proc.Write(data)
	return err
}

// Resize changes the process window size.
func (s *Session) Resize(cols, rows uint16) error {
	s.mu.Lock()
	proc := s.proc
	destroyed := s.state == StateDestroyed
	s.mu.Unlock()

	if destroyed || proc == nil {
		return errNotStarted
	}
	return proc.Resize(cols, rows)
}

// destroy moves the session to the terminal state and kills the process.
// Returns false if the session was already destroyed.
func (s *Session) destroy() bool {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return false
	}
	s.state = StateDestroyed
	proc := s.proc
	s.sink = nil
	s.binder = ""
	s.mu.Unlock()

	if proc != nil {
		proc.Close()
	}
	return true
}

// markExited records a process exit. It returns the sink that was bound at
// exit time (nil if none, or if the session was already explicitly destroyed
// and the exit is just the kill taking effect).
func (s *Session) markExited() Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDestroyed {
		return nil
	}
	s.state = StateDestroyed
	sink := s.sink
	s.sink = nil
	s.binder = ""
	return sink
}
