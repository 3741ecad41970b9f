// Package session owns the live connection to the remote game session: the
// wire protocol, the websocket client, and the supervisor that keeps the
// connection alive across disconnects, kicks and version mismatches.
package session

import (
	"context"
	"errors"
)

// ErrVersionMismatch marks a handshake rejected for a protocol version
// problem; the supervisor retries once with the configured fallback version.
var ErrVersionMismatch = errors.New("session: protocol version mismatch")

// ErrNotConnected is returned by outbound calls between connections. Callers
// treat it as "not yet connected", never as fatal.
var ErrNotConnected = errors.New("session: not connected")

// DisconnectCause classifies why a connection ended; the supervisor picks the
// reconnect delay from it.
type DisconnectCause int

const (
	CauseDisconnect DisconnectCause = iota
	CauseError
	CauseKicked
)

func (c DisconnectCause) String() string {
	switch c {
	case CauseDisconnect:
		return "disconnect"
	case CauseError:
		return "error"
	case CauseKicked:
		return "kicked"
	default:
		return "unknown"
	}
}

// Handlers are the event subscriptions installed on every connection.
// Subscriptions do not survive a reconnect; the supervisor reinstalls the
// full set after each successful connect.
type Handlers struct {
	OnChat       func(actor, text string)
	OnWhisper    func(actor, text string)
	OnRaw        func(line string)
	OnPlayers    func(names []string)
	OnDisconnect func(cause DisconnectCause, err error)
}

// Conn is one live connection. Implementations must be safe for concurrent
// writers.
type Conn interface {
	Chat(text string) error
	Whisper(to, text string) error
	Command(cmd string) error
	SendGoal(f GoalFrame) error
	Close() error
}

type DialConfig struct {
	URL             string
	Name            string
	Token           string
	ProtocolVersion string
}

// Dialer establishes a connection and installs the given handlers on its
// read loop.
type Dialer interface {
	Dial(ctx context.Context, cfg DialConfig, h *Handlers) (Conn, error)
}
