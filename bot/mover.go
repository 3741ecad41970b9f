package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/voxmate/voxmate/botexec"
	"github.com/voxmate/voxmate/session"
)

// SessionMover adapts the session connection to the movement controller
// contract. Goals are relayed to the server-side pathing engine as GOAL
// frames; the last installed goal is tracked locally so the executor's
// goal-identity checks work without a round trip.
type SessionMover struct {
	Conn   func() session.Conn
	Online func() []string

	mu          sync.Mutex
	goal        *botexec.Goal
	initialized bool
}

// Ready performs the lazy one-time capability check: the controller is
// usable once a live connection exists. Between connections it reports
// ErrNotConnected and the executor skips the step.
func (m *SessionMover) Ready(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}
	if m.Conn == nil || m.Conn() == nil {
		return session.ErrNotConnected
	}
	m.initialized = true
	return nil
}

func (m *SessionMover) SetGoal(g *botexec.Goal) error {
	c := m.Conn()
	if c == nil {
		return session.ErrNotConnected
	}

	var frame session.GoalFrame
	if g == nil {
		frame = session.GoalFrame{Clear: true}
	} else {
		switch g.Kind {
		case botexec.GoalFollow:
			frame = session.GoalFrame{Goal: "follow", Player: g.Player, Radius: g.Radius}
		case botexec.GoalBlock:
			frame = session.GoalFrame{Goal: "block", X: g.X, Y: g.Y, Z: g.Z}
		}
	}
	if err := c.SendGoal(frame); err != nil {
		return err
	}

	m.mu.Lock()
	m.goal = g
	m.mu.Unlock()
	return nil
}

func (m *SessionMover) Goal() *botexec.Goal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goal
}

func (m *SessionMover) CanSee(player string) bool {
	if m.Online == nil {
		return false
	}
	for _, n := range m.Online() {
		if strings.EqualFold(n, player) {
			return true
		}
	}
	return false
}
