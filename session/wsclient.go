package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readIdleTimeout  = 90 * time.Second
)

// WSDialer dials the game server over websocket and performs the
// HELLO/WELCOME handshake before handing back a usable connection.
type WSDialer struct{}

func (WSDialer) Dial(ctx context.Context, cfg DialConfig, h *Handlers) (Conn, error) {
	d := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := d.DialContext(ctx, cfg.URL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	version := cfg.ProtocolVersion
	if version == "" {
		version = ProtocolVersion
	}
	hello := HelloFrame{
		Type:            TypeHello,
		ProtocolVersion: version,
		Name:            cfg.Name,
		Token:           cfg.Token,
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	// The first frame decides the handshake: WELCOME or ERROR.
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake read: %w", err)
	}
	base, err := DecodeBase(raw)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake decode: %w", err)
	}
	switch base.Type {
	case TypeWelcome:
		// proceed
	case TypeError:
		var ef ErrorFrame
		_ = json.Unmarshal(raw, &ef)
		_ = conn.Close()
		if isVersionMismatchSignature(ef.Code, ef.Message) {
			return nil, fmt.Errorf("%w: %s", ErrVersionMismatch, ef.Message)
		}
		return nil, fmt.Errorf("handshake rejected: %s %s", ef.Code, ef.Message)
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected handshake frame: %s", base.Type)
	}

	c := &wsConn{conn: conn, handlers: h}
	go c.readLoop()
	return c, nil
}

func isVersionMismatchSignature(code, message string) bool {
	if strings.EqualFold(code, "E_PROTO_VERSION") {
		return true
	}
	m := strings.ToLower(message)
	return strings.Contains(m, "protocol") && strings.Contains(m, "version")
}

type wsConn struct {
	conn     *websocket.Conn
	handlers *Handlers

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsConn) readLoop() {
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.dispatchDisconnect(CauseError, err)
			return
		}
		base, err := DecodeBase(raw)
		if err != nil {
			continue
		}
		switch base.Type {
		case TypeChat:
			var f ChatFrame
			if json.Unmarshal(raw, &f) == nil && c.handlers.OnChat != nil {
				c.handlers.OnChat(f.From, f.Text)
			}
		case TypeWhisper:
			var f ChatFrame
			if json.Unmarshal(raw, &f) == nil && c.handlers.OnWhisper != nil {
				c.handlers.OnWhisper(f.From, f.Text)
			}
		case TypeSystem:
			var f SystemFrame
			if json.Unmarshal(raw, &f) == nil && c.handlers.OnRaw != nil {
				c.handlers.OnRaw(f.Line)
			}
		case TypePlayers:
			var f PlayersFrame
			if json.Unmarshal(raw, &f) == nil && c.handlers.OnPlayers != nil {
				c.handlers.OnPlayers(f.Names)
			}
		case TypeKick:
			var f KickFrame
			_ = json.Unmarshal(raw, &f)
			c.dispatchDisconnect(CauseKicked, fmt.Errorf("kicked: %s", f.Reason))
			return
		case TypeError:
			var f ErrorFrame
			_ = json.Unmarshal(raw, &f)
			c.dispatchDisconnect(CauseError, fmt.Errorf("server error: %s %s", f.Code, f.Message))
			return
		}
	}
}

func (c *wsConn) dispatchDisconnect(cause DisconnectCause, err error) {
	_ = c.Close()
	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect(cause, err)
	}
}

func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Chat(text string) error {
	return c.writeJSON(ChatFrame{Type: TypeChat, Text: text})
}

func (c *wsConn) Whisper(to, text string) error {
	return c.writeJSON(ChatFrame{Type: TypeWhisper, To: to, Text: text})
}

func (c *wsConn) Command(cmd string) error {
	return c.writeJSON(CommandFrame{Type: TypeCommand, Command: cmd})
}

func (c *wsConn) SendGoal(f GoalFrame) error {
	f.Type = TypeGoal
	return c.writeJSON(f)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
