// Package bot wires the chat command pipeline: inbound session events flow
// through the normalizer and the authorization gate, trusted instructions are
// planned and executed, and replies go back out on the session. The bot holds
// no connection of its own; it asks the supervisor for the live handle and
// treats its absence as "not yet connected".
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/voxmate/voxmate/botexec"
	"github.com/voxmate/voxmate/chat"
	"github.com/voxmate/voxmate/gate"
	"github.com/voxmate/voxmate/llm"
	"github.com/voxmate/voxmate/plan"
	"github.com/voxmate/voxmate/session"
	"github.com/voxmate/voxmate/state"
)

// ApologyReply covers the conversational path when no language backend is
// configured. Degrading beats crashing.
const ApologyReply = "Sorry, I can't chat right now."

var tpRequestRe = regexp.MustCompile(`(?i)^([A-Za-z0-9_]+) has requested (?:to teleport|that you teleport)`)

type Config struct {
	Owner     string
	Name      string
	CallNames []string
	Model     string
}

type Bot struct {
	cfg      Config
	log      *slog.Logger
	norm     *chat.Normalizer
	gate     *gate.Gate
	planner  plan.Planner
	exec     *botexec.Executor
	convo    *state.ConvoLog
	lists    *state.Lists
	client   llm.Client
	connFunc func() session.Conn

	mu     sync.Mutex
	online []string
}

type Deps struct {
	Lists   *state.Lists
	Convo   *state.ConvoLog
	Planner plan.Planner
	Exec    *botexec.Executor
	Client  llm.Client
	// Conn returns the supervisor-owned connection handle; nil means not
	// yet connected.
	Conn func() session.Conn
	Log  *slog.Logger
}

func New(cfg Config, deps Deps) *Bot {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	b := &Bot{
		cfg:      cfg,
		log:      log,
		convo:    deps.Convo,
		lists:    deps.Lists,
		planner:  deps.Planner,
		exec:     deps.Exec,
		client:   deps.Client,
		connFunc: deps.Conn,
	}
	b.norm = &chat.Normalizer{Online: b.Online}
	b.gate = gate.New(gate.Config{
		Owner:     cfg.Owner,
		SelfName:  cfg.Name,
		CallNames: cfg.CallNames,
	}, deps.Lists, deps.Convo, log)
	return b
}

// Handlers builds a fresh subscription set for the supervisor. Called on
// every connect so nothing stale survives a reconnect.
func (b *Bot) Handlers() *session.Handlers {
	return &session.Handlers{
		OnChat:    func(actor, text string) { b.HandleMessage(actor, text) },
		OnWhisper: func(actor, text string) { b.HandleMessage(actor, text) },
		OnRaw:     b.HandleRaw,
		OnPlayers: b.setOnline,
	}
}

func (b *Bot) setOnline(names []string) {
	b.mu.Lock()
	b.online = append([]string{}, names...)
	b.mu.Unlock()
}

func (b *Bot) Online() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.online...)
}

// HandleRaw normalizes a broadcast/system line and feeds any addressable
// message into the pipeline.
func (b *Bot) HandleRaw(line string) {
	if b.autoAcceptTeleport(line) {
		return
	}
	msg, ok := b.norm.Parse(line)
	if !ok {
		// Observability only; unparsed lines never enter the pipeline.
		b.log.Debug("line_unparsed", "len", len(line))
		return
	}
	if msg.System {
		b.log.Info("player_presence", "line", msg.Text)
		return
	}
	b.HandleMessage(msg.Actor, msg.Text)
}

// autoAcceptTeleport answers teleport-request notifications from trusted
// players. This listener is deliberately outside plan execution.
func (b *Bot) autoAcceptTeleport(line string) bool {
	m := tpRequestRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return false
	}
	requester := m[1]
	if !strings.EqualFold(requester, b.cfg.Owner) && !b.lists.IsTrusted(requester) {
		b.log.Info("tp_request_ignored", "from", requester)
		return true
	}
	if err := b.Command("/tpaccept " + requester); err != nil {
		b.log.Warn("tp_accept_failed", "from", requester, "error", err.Error())
	}
	return true
}

// HandleMessage runs one normalized message through gate, planner and
// executor.
func (b *Bot) HandleMessage(actor, text string) {
	d := b.gate.Process(actor, text)
	switch d.Kind {
	case gate.Discard:
		return
	case gate.Reply:
		b.Reply(actor, d.Reply)
		return
	}

	if d.Tier == gate.TierOwner {
		if b.ownerCommand(actor, text) {
			return
		}
	}

	if d.Tier == gate.TierUntrusted {
		// Untrusted actors converse; they never reach the planner.
		b.converse(actor, text)
		return
	}

	p, err := b.planner.Plan(context.Background(), actor, text)
	if err != nil {
		b.log.Warn("plan_failed", "actor", actor, "error", err.Error())
		p = plan.Plan{}
	}
	if p.Empty() {
		b.converse(actor, text)
		return
	}

	// Plans run off the inbound path so a wait step never blocks other
	// actors' traffic.
	go b.exec.Execute(context.Background(), actor, p)
}

// ownerCommand handles the owner-only extras that bypass planning.
func (b *Bot) ownerCommand(actor, text string) bool {
	lower := strings.ToLower(text)
	if containsWord(lower, "stop") {
		b.exec.Stop()
		b.Reply(actor, "Stopped.")
		return true
	}
	if containsWord(lower, "status") {
		b.broadcast(b.statusLine())
		return true
	}
	return false
}

func (b *Bot) statusLine() string {
	goal := "idle"
	if g := b.exec.ActiveGoal(); g != nil {
		switch g.Kind {
		case botexec.GoalFollow:
			goal = "following " + g.Player
		case botexec.GoalBlock:
			goal = fmt.Sprintf("heading to %d %d %d", g.X, g.Y, g.Z)
		}
	}
	connected := "disconnected"
	if b.conn() != nil {
		connected = "connected"
	}
	return fmt.Sprintf("Status: %s, %s.", connected, goal)
}

// converse answers with the generative backend, feeding it the bounded
// conversation history. Failures degrade to a fixed apology.
func (b *Bot) converse(actor, text string) {
	if b.client == nil {
		b.Reply(actor, ApologyReply)
		return
	}
	messages := []llm.Message{{
		Role: "system",
		Content: fmt.Sprintf("You are %s, a helpful in-game companion bot owned by %s. Reply in one short chat line.",
			b.cfg.Name, b.cfg.Owner),
	}}
	messages = append(messages, b.convo.Messages()...)
	messages = append(messages, llm.Message{Role: "user", Content: fmt.Sprintf("%s: %s", actor, text)})

	res, err := b.client.Chat(context.Background(), llm.Request{
		Model:       b.cfg.Model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   120,
	})
	reply := strings.TrimSpace(res.Text)
	if err != nil || reply == "" {
		b.log.Warn("converse_failed", "actor", actor, "error", errText(err))
		reply = llm.Unavailable
	}
	b.convo.Append("assistant", reply)
	b.Reply(actor, reply)
}

func (b *Bot) conn() session.Conn {
	if b.connFunc == nil {
		return nil
	}
	return b.connFunc()
}

// Reply whispers to the actor, falling back to broadcast when no direct
// channel is available.
func (b *Bot) Reply(actor, text string) {
	c := b.conn()
	if c == nil {
		b.log.Debug("reply_dropped", "actor", actor)
		return
	}
	if err := c.Whisper(actor, text); err != nil {
		_ = c.Chat(fmt.Sprintf("%s: %s", actor, text))
	}
}

func (b *Bot) broadcast(text string) {
	if c := b.conn(); c != nil {
		_ = c.Chat(text)
	}
}

func (b *Bot) Command(cmd string) error {
	c := b.conn()
	if c == nil {
		return session.ErrNotConnected
	}
	return c.Command(cmd)
}

func containsWord(text, word string) bool {
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, ".,!?\"'") == word {
			return true
		}
	}
	return false
}

func errText(err error) string {
	if err == nil {
		return "empty reply"
	}
	return err.Error()
}
