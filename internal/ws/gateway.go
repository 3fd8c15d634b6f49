// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package ws is the transport gateway: it terminates WebSocket connections,
// authenticates them, and translates protocol messages into session registry
// operations. Output flows back only to the connection currently bound to a
// session; disconnecting severs the binding but never destroys the session.
package ws

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shellgate/shellgate/internal/auth"
	"github.com/shellgate/shellgate/internal/config"
	"github.com/shellgate/shellgate/internal/sessions"
)

// Gateway terminates remote connections and drives the session registry.
type Gateway struct {
	reg      *sessions.Registry
	verifier *auth.Verifier // nil when authentication is disabled

	quickAccessDirs []string
	cannedCommands  []config.CannedCommand

	upgrader websocket.Upgrader
}

// NewGateway creates a gateway over the given registry. A nil verifier
// disables authentication entirely.
func NewGateway(reg *sessions.Registry, verifier *auth.Verifier, quickAccessDirs []string, cannedCommands []config.CannedCommand, allowedOrigins []string) *Gateway {
	return &Gateway{
		reg:             reg,
		verifier:        verifier,
		quickAccessDirs: quickAccessDirs,
		cannedCommands:  cannedCommands,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// credential extracts the presented credential: a "token" query parameter or
// an Authorization bearer header.
func credential(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	header := r.Header.Get("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// HandleWebSocket authenticates and upgrades a connection attempt. A bad or
// missing credential rejects the attach before any message is processed.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var identity string
	if g.verifier != nil {
		id, err := g.verifier.Verify(credential(r))
		if err != nil {
			log.Printf("[gateway] rejected connection from %s: %v", r.RemoteAddr, err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		identity = id
	}

	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] websocket upgrade failed: %v", err)
		return
	}

	c := newConn(uuid.New().String(), identity, wsConn, g)
	log.Printf("[gateway] conn %s attached (identity=%q)", c.id, identity)
	go c.readPump()
	go c.writePump()
}

// disconnect runs when a connection drops: every owned session is touched and
// unbound so it gets the full timeout window as an orphan, then the
// authorization set dies with the connection. Sessions are not destroyed.
func (g *Gateway) disconnect(c *Conn) {
	for _, id := range c.authorizedIDs() {
		if s := g.reg.Get(id); s != nil {
			s.Unbind(c.id)
			s.Touch()
		}
	}
	log.Printf("[gateway] conn %s detached", c.id)
}

// handleMessage dispatches one decoded client message.
func (g *Gateway) handleMessage(c *Conn, msg ClientMessage) {
	switch msg.Type {
	case MsgCreateSession:
		g.handleCreate(c, msg)
	case MsgInput:
		g.handleInput(c, msg)
	case MsgResize:
		g.handleResize(c, msg)
	case MsgDestroySession:
		g.handleDestroy(c, msg)
	case MsgReconnectSession:
		g.handleReconnect(c, msg)
	case MsgListSessions:
		g.handleListSessions(c)
	case MsgGetQuickAccessDirs:
		c.push(ServerMessage{Type: MsgQuickAccessDirs, Dirs: g.quickAccessDirs})
	case MsgGetCannedCommands:
		c.push(ServerMessage{Type: MsgCannedCommands, Commands: g.cannedCommands})
	default:
		c.pushError("", "unknown message type: "+msg.Type)
	}
}

func (g *Gateway) handleCreate(c *Conn, msg ClientMessage) {
	if msg.SessionID == "" {
		c.pushError("", "sessionId is required")
		return
	}
	if c.isAuthorized(msg.SessionID) {
		c.pushError(msg.SessionID, "session already exists")
		return
	}

	s, err := g.reg.Create(msg.SessionID, sessions.SpawnParams{
		Owner: c.identity,
		Cwd:   msg.Cwd,
		Cols:  clamp(msg.Cols, maxTermCols),
		Rows:  clamp(msg.Rows, maxTermRows),
	})
	if err != nil {
		switch {
		case errors.Is(err, sessions.ErrSessionExists):
			c.pushError(msg.SessionID, "session already exists")
		case errors.Is(err, sessions.ErrTooManySessions):
			c.pushError(msg.SessionID, "session limit reached")
		case errors.Is(err, sessions.ErrSessionNotFound):
			c.pushError(msg.SessionID, "session destroyed")
		default:
			log.Printf("[gateway] conn %s create %s failed: %v", c.id, msg.SessionID, err)
			c.pushError(msg.SessionID, "failed to start shell")
		}
		return
	}

	c.authorize(msg.SessionID)
	if !s.Bind(c.id, &sessionSink{conn: c, sessionID: msg.SessionID}, func() {
		c.push(ServerMessage{Type: MsgSessionCreated, SessionID: msg.SessionID})
	}) {
		// Destroyed between Create returning and the binding landing
		c.pushError(msg.SessionID, "session destroyed")
	}
}

func (g *Gateway) handleInput(c *Conn, msg ClientMessage) {
	if msg.SessionID == "" {
		c.pushError("", "sessionId is required")
		return
	}
	if !c.isAuthorized(msg.SessionID) {
		log.Printf("[gateway] conn %s unauthorized input for session %s", c.id, msg.SessionID)
		c.pushError(msg.SessionID, "not authorized for session")
		return
	}
	if err := g.reg.Write(msg.SessionID, []byte(msg.Data)); err != nil {
		// Racing a destroy is not the caller's fault: log and move on
		log.Printf("[gateway] conn %s input for session %s dropped: %v", c.id, msg.SessionID, err)
	}
}

func (g *Gateway) handleResize(c *Conn, msg ClientMessage) {
	if msg.SessionID == "" {
		c.pushError("", "sessionId is required")
		return
	}
	if !c.isAuthorized(msg.SessionID) {
		log.Printf("[gateway] conn %s unauthorized resize for session %s", c.id, msg.SessionID)
		c.pushError(msg.SessionID, "not authorized for session")
		return
	}
	if msg.Cols == 0 || msg.Rows == 0 {
		c.pushError(msg.SessionID, "cols and rows are required")
		return
	}
	g.reg.Resize(msg.SessionID, clamp(msg.Cols, maxTermCols), clamp(msg.Rows, maxTermRows))
	g.reg.Touch(msg.SessionID)
}

func (g *Gateway) handleDestroy(c *Conn, msg ClientMessage) {
	if msg.SessionID == "" {
		c.pushError("", "sessionId is required")
		return
	}
	if !c.isAuthorized(msg.SessionID) {
		log.Printf("[gateway] conn %s unauthorized destroy for session %s", c.id, msg.SessionID)
		c.pushError(msg.SessionID, "not authorized for session")
		return
	}
	g.reg.Destroy(msg.SessionID)
	c.push(ServerMessage{Type: MsgSessionDestroyed, SessionID: msg.SessionID})
}

func (g *Gateway) handleReconnect(c *Conn, msg ClientMessage) {
	if msg.SessionID == "" {
		c.pushError("", "sessionId is required")
		return
	}

	s := g.reg.Get(msg.SessionID)
	if s == nil {
		c.push(ServerMessage{Type: MsgReconnectFailed, SessionID: msg.SessionID, Message: "session not found or expired"})
		return
	}
	// With authentication on, only the creating identity may reconnect.
	if g.verifier != nil && s.Owner != c.identity {
		log.Printf("[gateway] conn %s (identity=%q) denied reconnect to session %s owned by %q",
			c.id, c.identity, msg.SessionID, s.Owner)
		c.push(ServerMessage{Type: MsgReconnectFailed, SessionID: msg.SessionID, Message: "not session owner"})
		return
	}

	c.authorize(msg.SessionID)
	if !s.Bind(c.id, &sessionSink{conn: c, sessionID: msg.SessionID}, func() {
		c.push(ServerMessage{Type: MsgReconnectSuccess, SessionID: msg.SessionID})
	}) {
		// Lost a race with destroy after the lookup; the success frame was
		// never emitted, so the client sees exactly one reply.
		c.push(ServerMessage{Type: MsgReconnectFailed, SessionID: msg.SessionID, Message: "session destroyed"})
	}
}

func (g *Gateway) handleListSessions(c *Conn) {
	ids := c.authorizedIDs()
	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		if s := g.reg.Get(id); s != nil {
			infos = append(infos, SessionInfo{SessionID: id, State: string(s.State())})
		}
	}
	c.push(ServerMessage{Type: MsgSessionList, Sessions: infos})
}

func clamp(v, max uint16) uint16 {
	if v > max {
		return max
	}
	return v
}
