// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package ws

import "github.com/shellgate/shellgate/internal/config"

// Client to server message types.
const (
	MsgCreateSession      = "create-session"
	MsgInput              = "input"
	MsgResize             = "resize"
	MsgDestroySession     = "destroy-session"
	MsgReconnectSession   = "reconnect-session"
	MsgListSessions       = "list-sessions"
	MsgGetQuickAccessDirs = "get-quick-access-dirs"
	MsgGetCannedCommands  = "get-canned-commands"
)

// Server to client message types.
const (
	MsgSessionCreated   = "session-created"
	MsgOutput           = "output"
	MsgError            = "error"
	MsgSessionClosed    = "session-closed"
	MsgSessionDestroyed = "session-destroyed"
	MsgReconnectSuccess = "reconnect-success"
	MsgReconnectFailed  = "reconnect-failed"
	MsgSessionList      = "session-list"
	MsgQuickAccessDirs  = "quick-access-dirs"
	MsgCannedCommands   = "canned-commands"
)

// ClientMessage is the JSON envelope for every inbound frame.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      string `json:"data,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
	Cols      uint16 `json:"cols,omitempty"`
	Rows      uint16 `json:"rows,omitempty"`
}

// ServerMessage is the JSON envelope for every outbound frame.
type ServerMessage struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"sessionId,omitempty"`
	Data      string                 `json:"data,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Dirs      []string               `json:"dirs,omitempty"`
	Commands  []config.CannedCommand `json:"commands,omitempty"`
	Sessions  []SessionInfo          `json:"sessions,omitempty"`
}

// SessionInfo describes one session in a session-list reply.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
}
