// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
)

// Conn is one live transport attachment. It is ephemeral: its authorization
// set is built up by create/reconnect and discarded on disconnect, never the
// storage for session state.
type Conn struct {
	id       string
	identity string // empty when authentication is disabled
	ws       *websocket.Conn
	gw       *Gateway

	send    chan ServerMessage
	limiter *RateLimiter

	mu         sync.Mutex
	authorized map[string]bool
}

func newConn(id, identity string, wsConn *websocket.Conn, gw *Gateway) *Conn {
	return &Conn{
		id:         id,
		identity:   identity,
		ws:         wsConn,
		gw:         gw,
		send:       make(chan ServerMessage, sendBuffer),
		limiter:    NewRateLimiter(messageRate, messageBurst),
		authorized: make(map[string]bool),
	}
}

// authorize adds a session id to this connection's authorization set.
func (c *Conn) authorize(id string) {
	c.mu.Lock()
	c.authorized[id] = true
	c.mu.Unlock()
}

// isAuthorized reports whether this connection may drive the session id.
func (c *Conn) isAuthorized(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authorized[id]
}

// authorizedIDs returns a snapshot of the authorization set.
func (c *Conn) authorizedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.authorized))
	for id := range c.authorized {
		ids = append(ids, id)
	}
	return ids
}

// push queues a message for delivery. A full buffer drops the message rather
// than blocking the producer, matching the output fan-out contract.
func (c *Conn) push(msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

// pushError queues an error event.
func (c *Conn) pushError(sessionID, message string) {
	c.push(ServerMessage{Type: MsgError, SessionID: sessionID, Message: message})
}

// readPump reads inbound frames until the connection drops, then unbinds.
func (c *Conn) readPump() {
	defer func() {
		c.gw.disconnect(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[gateway] conn %s read error: %v", c.id, err)
			}
			return
		}

		if !c.limiter.Allow() {
			// Throttled: drop the frame rather than kill the connection
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.pushError("", "malformed message")
			continue
		}
		c.gw.handleMessage(c, msg)
	}
}

// writePump delivers queued messages and keepalive pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sessionSink adapts a Conn to the sessions.Sink interface for one session.
type sessionSink struct {
	conn      *Conn
	sessionID string
}

func (s *sessionSink) Output(data []byte) {
	s.conn.push(ServerMessage{Type: MsgOutput, SessionID: s.sessionID, Data: string(data)})
}

func (s *sessionSink) Closed(code int, signal string) {
	s.conn.push(ServerMessage{Type: MsgSessionClosed, SessionID: s.sessionID})
}
