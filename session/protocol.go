package session

import "encoding/json"

// Wire protocol version. The server may pin a different version; the
// supervisor retries the handshake once with the configured fallback when the
// server rejects ours.
const ProtocolVersion = "1.1"

// Frame types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeChat    = "CHAT"
	TypeWhisper = "WHISPER"
	TypeSystem  = "SYSTEM"
	TypePlayers = "PLAYERS"
	TypeGoal    = "GOAL"
	TypeCommand = "COMMAND"
	TypeKick    = "KICK"
	TypeError   = "ERROR"
)

// BaseFrame lets us route unknown JSON frames by type.
type BaseFrame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseFrame, error) {
	var f BaseFrame
	err := json.Unmarshal(b, &f)
	return f, err
}

type HelloFrame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	Token           string `json:"token,omitempty"`
}

type WelcomeFrame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	MOTD            string `json:"motd,omitempty"`
}

type ChatFrame struct {
	Type string `json:"type"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
}

type SystemFrame struct {
	Type string `json:"type"`
	Line string `json:"line"`
}

type PlayersFrame struct {
	Type  string   `json:"type"`
	Names []string `json:"names"`
}

// GoalFrame carries a movement directive to the server-side controller.
// A frame with Clear set cancels whatever goal is active.
type GoalFrame struct {
	Type   string `json:"type"`
	Clear  bool   `json:"clear,omitempty"`
	Goal   string `json:"goal,omitempty"` // follow|block
	Player string `json:"player,omitempty"`
	Radius int    `json:"radius,omitempty"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Z      int    `json:"z,omitempty"`
}

type CommandFrame struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type KickFrame struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
