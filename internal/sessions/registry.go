// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package sessions

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shellgate/shellgate/internal/fs"
	"github.com/shellgate/shellgate/internal/pty"
)

var spawn = pty.Spawn

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("session limit reached")
)

// Config carries the static settings the registry needs.
type Config struct {
	// Shell is the executable spawned for every session.
	Shell string
	// Timeout is how long a session lives past its last access.
	Timeout time.Duration
	// MaxSessions caps the number of live sessions. Zero means unlimited.
	MaxSessions int
	// ScrollbackSize bounds the per-session replay buffer.
	ScrollbackSize int
	// Workspace validates and scopes session working directories.
	Workspace *fs.Workspace
}

// SpawnParams describes one create request.
type SpawnParams struct {
	Owner string
	Cwd   string
	Cols  uint16
	Rows  uint16
}

// Registry owns the authoritative session table. All mutations of the table
// go through a single lock, which makes the existence check plus insert in
// Create one atomic step: of two concurrent creates for the same id exactly
// one wins and the loser performs no spawn.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	return &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Create reserves the id, spawns the shell process, and returns the new
// session. Fails with ErrSessionExists if the id is live, ErrTooManySessions
// at the concurrency cap, ErrSessionNotFound if the reservation was destroyed
// while the spawn was in flight, or a wrapped spawn error. In every failure
// case no entry and no live process are left behind.
func (r *Registry) Create(id string, p SpawnParams) (*Session, error) {
	cwd := r.cfg.Workspace.ResolveDir(p.Cwd)
	cols, rows := p.Cols, p.Rows
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}

	// Reserve the id before spawning so a concurrent duplicate create
	// observes ErrSessionExists instead of racing the spawn.
	s := newSession(id, p.Owner, cwd, r.cfg.Timeout, r.cfg.ScrollbackSize)
	r.mu.Lock()
	if _, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return nil, ErrSessionExists
	}
	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		return nil, ErrTooManySessions
	}
	r.sessions[id] = s
	r.mu.Unlock()

	proc, err := spawn(r.cfg.Shell, cwd, cols, rows, map[string]string{
		"SHELLGATE_SESSION_ID": id,
	})
	if err != nil {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return nil, fmt.Errorf("spawn shell: %w", err)
	}

	// A destroy that landed during the spawn found a nil process; the fresh
	// process must not outlive its session. Kill it, with a discard read
	// loop so the child is still reaped, and report the session gone.
	if !s.setProcess(proc) {
		proc.Start(func([]byte) {}, func(int, string) {})
		proc.Close()
		log.Printf("[session-mgr] session %s destroyed during create, killed spawned process", id)
		return nil, ErrSessionNotFound
	}
	proc.Start(s.deliver, func(code int, signal string) {
		r.handleExit(s, code, signal)
	})

	log.Printf("[session-mgr] created session %s (owner=%q, cwd=%s)", id, p.Owner, cwd)
	return s, nil
}

// handleExit runs when a session's process exits on its own (or when a kill
// from destroy takes effect). It removes the entry and notifies the sink
// that was bound at exit time.
func (r *Registry) handleExit(s *Session, code int, signal string) {
	r.mu.Lock()
	if cur, ok := r.sessions[s.ID]; ok && cur == s {
		delete(r.sessions, s.ID)
	}
	r.mu.Unlock()

	sink := s.markExited()
	if sink != nil {
		sink.Closed(code, signal)
	}
	log.Printf("[session-mgr] session %s process exited (code=%d, signal=%q)", s.ID, code, signal)
}

// Get returns the session for id, or nil if absent.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Write forwards input to the session's process and counts as activity.
// Returns ErrSessionNotFound if the id is absent; callers log and move on
// rather than treating a race with destroy as fatal.
func (r *Registry) Write(id string, data []byte) error {
	s := r.Get(id)
	if s == nil {
		return ErrSessionNotFound
	}
	s.Touch()
	return s.Write(data)
}

// Resize changes the session's window size. Unknown ids are a no-op.
func (r *Registry) Resize(id string, cols, rows uint16) error {
	s := r.Get(id)
	if s == nil {
		return ErrSessionNotFound
	}
	return s.Resize(cols, rows)
}

// Touch resets the expiry deadline for id. Unknown ids are a no-op.
func (r *Registry) Touch(id string) {
	if s := r.Get(id); s != nil {
		s.Touch()
	}
}

// Destroy kills the session's process and removes the entry. Idempotent:
// destroying an unknown or already-destroyed id reports false and is not an
// error.
func (r *Registry) Destroy(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	destroyed := s.destroy()
	if destroyed {
		log.Printf("[session-mgr] destroyed session %s", id)
	}
	return destroyed
}

// SweepExpired destroys every session whose deadline has passed and returns
// the destroyed ids. Concurrent sweeps cannot double-destroy: removal from
// the table happens under the lock and destroy itself is idempotent.
func (r *Registry) SweepExpired(now time.Time) []string {
	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.Expired(now) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		if s.destroy() {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown destroys all sessions.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.destroy()
	}
	log.Printf("[session-mgr] shutdown, destroyed %d session(s)", len(all))
}
