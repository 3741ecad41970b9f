package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxmate/voxmate/botexec"
	"github.com/voxmate/voxmate/llm"
	"github.com/voxmate/voxmate/plan"
	"github.com/voxmate/voxmate/session"
	"github.com/voxmate/voxmate/state"
)

type fakeConn struct {
	mu       sync.Mutex
	chats    []string
	whispers []string
	commands []string
	goals    []session.GoalFrame
}

func (c *fakeConn) Chat(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = append(c.chats, text)
	return nil
}

func (c *fakeConn) Whisper(to, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.whispers = append(c.whispers, to+"|"+text)
	return nil
}

func (c *fakeConn) Command(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, cmd)
	return nil
}

func (c *fakeConn) SendGoal(f session.GoalFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goals = append(c.goals, f)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) snapshot() (chats, whispers, commands []string, goals []session.GoalFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.chats...),
		append([]string{}, c.whispers...),
		append([]string{}, c.commands...),
		append([]session.GoalFrame{}, c.goals...)
}

type fixture struct {
	bot   *Bot
	conn  *fakeConn
	lists *state.Lists
	convo *state.ConvoLog
	mover *SessionMover
}

func newFixture(t *testing.T, client llm.Client) *fixture {
	t.Helper()
	dir := t.TempDir()
	lists := state.LoadLists(dir, nil)
	convo := state.LoadConvoLog(dir, nil)
	conn := &fakeConn{}
	connFn := func() session.Conn { return conn }

	var online func() []string
	mover := &SessionMover{Conn: connFn, Online: func() []string {
		if online == nil {
			return nil
		}
		return online()
	}}

	exec := &botexec.Executor{
		Mover: mover,
		Convo: convo,
		Pace:  time.Nanosecond,
	}
	exec.Reply = func(actor, text string) { _ = conn.Whisper(actor, text) }
	exec.Command = conn.Command

	b := New(Config{
		Owner:     "Steve",
		Name:      "voxmate",
		CallNames: []string{"bot", "voxmate"},
		Model:     "test",
	}, Deps{
		Lists:   lists,
		Convo:   convo,
		Planner: plan.RulePlanner{},
		Exec:    exec,
		Client:  client,
		Conn:    connFn,
	})
	online = b.Online
	b.setOnline([]string{"Steve", "Alice", "Bob"})
	return &fixture{bot: b, conn: conn, lists: lists, convo: convo, mover: mover}
}

func waitUntil(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestOwnerTrustScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.HandleMessage("Steve", "Bot trust Alice")

	if !f.lists.IsTrusted("Alice") {
		t.Error("Alice should be trusted")
	}
	_, whispers, _, _ := f.conn.snapshot()
	if len(whispers) != 1 || !strings.Contains(whispers[0], "Alice is now trusted!") {
		t.Errorf("got whispers %v", whispers)
	}
}

func TestTrustedGotoScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.lists.Trust("Alice")

	f.bot.HandleMessage("Alice", "Bot go to 10 64 10")

	waitUntil(t, func() bool {
		_, _, _, goals := f.conn.snapshot()
		return len(goals) == 1
	}, "goal frame")

	_, _, _, goals := f.conn.snapshot()
	g := goals[0]
	if g.Goal != "block" || g.X != 10 || g.Y != 64 || g.Z != 10 {
		t.Errorf("got goal frame %+v", g)
	}
	waitUntil(t, func() bool {
		_, whispers, _, _ := f.conn.snapshot()
		return len(whispers) == 1 && strings.Contains(whispers[0], "10 64 10")
	}, "destination reply")
}

func TestUntrustedFollowScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.HandleMessage("Bob", "Bot follow me")

	_, whispers, _, _ := f.conn.snapshot()
	if len(whispers) != 1 || !strings.Contains(whispers[0], "trusted players") {
		t.Errorf("got whispers %v", whispers)
	}
	// Give any stray goroutine a beat, then confirm no controller calls.
	time.Sleep(10 * time.Millisecond)
	_, _, _, goals := f.conn.snapshot()
	if len(goals) != 0 {
		t.Errorf("controller must receive no calls, got %v", goals)
	}
}

func TestOwnerStopCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.lists.Trust("Alice")
	f.bot.HandleMessage("Alice", "bot go to 5 64 5")
	waitUntil(t, func() bool { return f.mover.Goal() != nil }, "goal installed")

	f.bot.HandleMessage("Steve", "bot stop")
	if f.mover.Goal() != nil {
		t.Error("stop must clear the goal")
	}
	_, whispers, _, _ := f.conn.snapshot()
	joined := strings.Join(whispers, "\n")
	if !strings.Contains(joined, "Stopped.") {
		t.Errorf("got %v", whispers)
	}
}

func TestOwnerStatusBroadcast(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.HandleMessage("Steve", "bot status")
	chats, _, _, _ := f.conn.snapshot()
	if len(chats) != 1 || !strings.Contains(chats[0], "Status: connected") {
		t.Errorf("got %v", chats)
	}
}

func TestRawLinePipeline(t *testing.T) {
	f := newFixture(t, nil)
	f.lists.Trust("Alice")
	f.bot.HandleRaw("<Alice> bot wait 1 second")

	waitUntil(t, func() bool {
		_, whispers, _, _ := f.conn.snapshot()
		return strings.Contains(strings.Join(whispers, "\n"), "Done waiting")
	}, "wait completion")
}

func TestUnparsedRawLineIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.HandleRaw("!!! server broadcast !!!")
	time.Sleep(5 * time.Millisecond)
	chats, whispers, commands, goals := f.conn.snapshot()
	if len(chats)+len(whispers)+len(commands)+len(goals) != 0 {
		t.Error("unparsed lines must produce no traffic")
	}
}

func TestAutoAcceptTrustedTeleport(t *testing.T) {
	f := newFixture(t, nil)
	f.lists.Trust("Alice")
	f.bot.HandleRaw("Alice has requested to teleport to you.")

	_, _, commands, _ := f.conn.snapshot()
	if len(commands) != 1 || commands[0] != "/tpaccept Alice" {
		t.Errorf("got commands %v", commands)
	}
}

func TestAutoAcceptUntrustedTeleportIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.HandleRaw("Mallory has requested to teleport to you.")
	_, _, commands, _ := f.conn.snapshot()
	if len(commands) != 0 {
		t.Errorf("untrusted teleport request must be ignored, got %v", commands)
	}
}

type cannedClient struct {
	text string
	err  error
}

func (c cannedClient) Chat(context.Context, llm.Request) (llm.Result, error) {
	return llm.Result{Text: c.text}, c.err
}

func TestConversationalFallback(t *testing.T) {
	f := newFixture(t, cannedClient{text: "Hello Steve!"})
	f.bot.HandleMessage("Steve", "bot how are you?")

	_, whispers, _, _ := f.conn.snapshot()
	if len(whispers) != 1 || !strings.Contains(whispers[0], "Hello Steve!") {
		t.Errorf("got %v", whispers)
	}
	msgs := f.convo.Messages()
	if len(msgs) != 2 || msgs[1].Role != "assistant" {
		t.Errorf("conversation log: %+v", msgs)
	}
}

func TestConversationalApologyWithoutBackend(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.HandleMessage("Steve", "bot tell me a story")
	_, whispers, _, _ := f.conn.snapshot()
	if len(whispers) != 1 || !strings.Contains(whispers[0], ApologyReply) {
		t.Errorf("got %v", whispers)
	}
}

func TestConversationalBackendErrorDegrades(t *testing.T) {
	f := newFixture(t, cannedClient{err: errors.New("backend down")})
	f.bot.HandleMessage("Steve", "bot hello")
	_, whispers, _, _ := f.conn.snapshot()
	if len(whispers) != 1 || !strings.Contains(whispers[0], llm.Unavailable) {
		t.Errorf("got %v", whispers)
	}
}

func TestNoConnectionMeansNoCrash(t *testing.T) {
	dir := t.TempDir()
	lists := state.LoadLists(dir, nil)
	convo := state.LoadConvoLog(dir, nil)
	exec := &botexec.Executor{Mover: &SessionMover{Conn: func() session.Conn { return nil }}}
	b := New(Config{Owner: "Steve", Name: "voxmate", CallNames: []string{"bot"}}, Deps{
		Lists:   lists,
		Convo:   convo,
		Planner: plan.RulePlanner{},
		Exec:    exec,
		Conn:    func() session.Conn { return nil },
	})
	// Nothing to assert beyond "does not panic with a nil handle".
	b.HandleMessage("Steve", "bot trust Alice")
	b.HandleRaw("<Alice> bot hello")
}
