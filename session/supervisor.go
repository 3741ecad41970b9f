package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
	StateKicked
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateKicked:
		return "kicked"
	default:
		return "unknown"
	}
}

type Config struct {
	URL             string
	Name            string
	Token           string
	ProtocolVersion string
	FallbackVersion string

	// MaxAttempts bounds one connection cycle; delay between attempts
	// grows linearly (attempt * AttemptDelay).
	MaxAttempts  int
	AttemptDelay time.Duration

	// Per-cause reconnect delays. Kicks wait longest to respect any
	// temporary ban or cooldown on the server side.
	DisconnectDelay time.Duration
	ErrorDelay      time.Duration
	KickDelay       time.Duration

	// CycleDelay applies after a whole cycle of attempts is exhausted.
	CycleDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.AttemptDelay <= 0 {
		c.AttemptDelay = 5 * time.Second
	}
	if c.DisconnectDelay <= 0 {
		c.DisconnectDelay = 5 * time.Second
	}
	if c.ErrorDelay <= 0 {
		c.ErrorDelay = 10 * time.Second
	}
	if c.KickDelay <= 0 {
		c.KickDelay = 30 * time.Second
	}
	if c.CycleDelay <= 0 {
		c.CycleDelay = 60 * time.Second
	}
	return c
}

// Supervisor owns the live connection handle. It is the only layer that
// retries at the connection level; every other component receives the handle
// through Conn() and must treat a nil result as "not yet connected".
type Supervisor struct {
	cfg    Config
	dialer Dialer
	log    *slog.Logger

	// Subscribe returns a fresh handler set for a new connection. It is
	// invoked on every connect, never reused, so subscriptions are always
	// fully reinstalled.
	subscribe func() *Handlers

	mu    sync.RWMutex
	conn  Conn
	state State

	disconnected chan disconnectEvent
}

type disconnectEvent struct {
	cause DisconnectCause
	err   error
}

func NewSupervisor(cfg Config, dialer Dialer, subscribe func() *Handlers, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		cfg:          cfg.withDefaults(),
		dialer:       dialer,
		log:          log,
		subscribe:    subscribe,
		state:        StateDisconnected,
		disconnected: make(chan disconnectEvent, 1),
	}
}

func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Conn returns the live connection, or nil between connections.
func (s *Supervisor) Conn() Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run drives the connection state machine until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.connectCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Exhausted this cycle. The process stays up; operators
			// may restart externally or let the next cycle try.
			s.log.Error("connect_cycle_exhausted", "attempts", s.cfg.MaxAttempts, "error", err.Error())
			s.setState(StateDisconnected)
			if !sleepCtx(ctx, s.cfg.CycleDelay) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.state = StateConnected
		s.mu.Unlock()
		s.log.Info("session_connected", "url", s.cfg.URL, "name", s.cfg.Name)

		var ev disconnectEvent
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case ev = <-s.disconnected:
		}

		s.mu.Lock()
		s.conn = nil
		switch ev.cause {
		case CauseKicked:
			s.state = StateKicked
		case CauseError:
			s.state = StateError
		default:
			s.state = StateDisconnected
		}
		s.mu.Unlock()

		delay := s.reconnectDelay(ev.cause)
		errText := ""
		if ev.err != nil {
			errText = ev.err.Error()
		}
		s.log.Warn("session_lost", "cause", ev.cause.String(), "error", errText, "reconnect_in", delay.String())
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

func (s *Supervisor) reconnectDelay(cause DisconnectCause) time.Duration {
	switch cause {
	case CauseKicked:
		return s.cfg.KickDelay
	case CauseError:
		return s.cfg.ErrorDelay
	default:
		return s.cfg.DisconnectDelay
	}
}

// connectCycle runs one bounded cycle of connection attempts with linearly
// increasing delays between them.
func (s *Supervisor) connectCycle(ctx context.Context) (Conn, error) {
	s.setState(StateConnecting)
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		conn, err := s.dialOnce(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		s.log.Warn("connect_attempt_failed", "attempt", attempt, "error", err.Error())
		if attempt < s.cfg.MaxAttempts {
			if !sleepCtx(ctx, time.Duration(attempt)*s.cfg.AttemptDelay) {
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// dialOnce performs a single handshake, falling back once to the configured
// protocol version when the server signals a version mismatch.
func (s *Supervisor) dialOnce(ctx context.Context) (Conn, error) {
	handlers := s.freshHandlers()
	cfg := DialConfig{
		URL:             s.cfg.URL,
		Name:            s.cfg.Name,
		Token:           s.cfg.Token,
		ProtocolVersion: s.cfg.ProtocolVersion,
	}
	conn, err := s.dialer.Dial(ctx, cfg, handlers)
	if err == nil {
		return conn, nil
	}
	if errors.Is(err, ErrVersionMismatch) && s.cfg.FallbackVersion != "" && s.cfg.FallbackVersion != cfg.ProtocolVersion {
		s.log.Info("version_fallback", "from", cfg.ProtocolVersion, "to", s.cfg.FallbackVersion)
		cfg.ProtocolVersion = s.cfg.FallbackVersion
		return s.dialer.Dial(ctx, cfg, s.freshHandlers())
	}
	return nil, err
}

// freshHandlers builds the full subscription set for a new connection and
// chains the disconnect signal back into the supervisor loop.
func (s *Supervisor) freshHandlers() *Handlers {
	var h *Handlers
	if s.subscribe != nil {
		h = s.subscribe()
	}
	if h == nil {
		h = &Handlers{}
	}
	userDisconnect := h.OnDisconnect
	h.OnDisconnect = func(cause DisconnectCause, err error) {
		if userDisconnect != nil {
			userDisconnect(cause, err)
		}
		select {
		case s.disconnected <- disconnectEvent{cause: cause, err: err}:
		default:
		}
	}
	return h
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
