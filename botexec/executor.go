package botexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxmate/voxmate/plan"
)

const (
	// Horizontal world border and build height limits. Goals outside these
	// bounds are refused before the controller is ever invoked.
	MaxHorizontal = 30_000_000
	MinY          = -64
	MaxY          = 320

	FollowRadius = 1

	defaultFollowTTL = 60 * time.Second
	defaultPace      = 500 * time.Millisecond
)

// ConvoAppender receives the assistant-role summary after a plan completes.
type ConvoAppender interface {
	Append(role, content string)
}

type Executor struct {
	Mover   Mover
	Reply   func(actor, text string)
	Command func(cmd string) error
	Convo   ConvoAppender
	Log     *slog.Logger

	// FollowTTL and Pace exist so tests can compress time; zero means the
	// production defaults.
	FollowTTL time.Duration
	Pace      time.Duration

	afterFunc func(d time.Duration, f func()) *time.Timer
	sleepFn   func(ctx context.Context, d time.Duration)
}

func (e *Executor) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Executor) reply(actor, text string) {
	if e.Reply != nil {
		e.Reply(actor, text)
	}
}

func (e *Executor) followTTL() time.Duration {
	if e.FollowTTL > 0 {
		return e.FollowTTL
	}
	return defaultFollowTTL
}

func (e *Executor) pace() time.Duration {
	if e.Pace > 0 {
		return e.Pace
	}
	return defaultPace
}

func (e *Executor) after(d time.Duration, f func()) {
	if e.afterFunc != nil {
		e.afterFunc(d, f)
		return
	}
	time.AfterFunc(d, f)
}

// Execute runs the plan's steps strictly in order. A failing step is
// reported and skipped, never fatal to the plan. The blocking parts (waits,
// pacing) are local to this call, so callers run it off the inbound path.
func (e *Executor) Execute(ctx context.Context, actor string, p plan.Plan) {
	log := e.logger().With("plan_id", p.ID, "actor", actor, "steps", len(p.Steps))
	log.Info("plan_start")

	for i, step := range p.Steps {
		if ctx.Err() != nil {
			log.Warn("plan_aborted", "at_step", i)
			return
		}
		if i > 0 {
			// Pacing between outbound actions; best effort.
			e.sleep(ctx, e.pace())
		}
		if err := e.runStep(ctx, actor, step); err != nil {
			log.Warn("step_failed", "step", step.String(), "error", err.Error())
			e.reply(actor, fmt.Sprintf("Something went wrong with: %s", step.String()))
		}
	}

	if e.Convo != nil {
		e.Convo.Append("assistant", fmt.Sprintf("executed %d instructions for %s", len(p.Steps), actor))
	}
	log.Info("plan_done")
}

// Stop clears any active movement goal. Exposed for the owner's stop command.
func (e *Executor) Stop() {
	if e.Mover == nil {
		return
	}
	if e.Mover.Goal() != nil {
		_ = e.Mover.SetGoal(nil)
	}
}

// ActiveGoal reports the current goal for status replies; nil when idle.
func (e *Executor) ActiveGoal() *Goal {
	if e.Mover == nil {
		return nil
	}
	return e.Mover.Goal()
}

func (e *Executor) runStep(ctx context.Context, actor string, step plan.Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()

	switch step.Kind {
	case plan.KindFollow:
		return e.follow(ctx, actor, step.Player)
	case plan.KindGoto:
		return e.gotoBlock(actor, step.X, step.Y, step.Z)
	case plan.KindTeleport:
		return e.teleportRequest(actor, step.Player)
	case plan.KindWait:
		return e.wait(ctx, actor, step.Seconds)
	default:
		e.reply(actor, fmt.Sprintf("I don't know how to do: %s", step.String()))
		return nil
	}
}

func (e *Executor) follow(ctx context.Context, actor, player string) error {
	if e.Mover == nil {
		e.reply(actor, "I can't move right now.")
		return nil
	}
	if err := e.Mover.Ready(ctx); err != nil {
		// The controller being unreachable is a skip, not a crash.
		e.reply(actor, "I can't move right now.")
		return nil
	}
	if !e.Mover.CanSee(player) {
		e.reply(actor, fmt.Sprintf("I can't see %s.", player))
		return nil
	}

	e.clearGoal()
	goal := &Goal{Kind: GoalFollow, Player: player, Radius: FollowRadius}
	if err := e.Mover.SetGoal(goal); err != nil {
		return err
	}
	e.reply(actor, fmt.Sprintf("Following %s.", player))

	// Auto-stop unless a different goal has superseded this one. The
	// identity check keeps a stale timer from clobbering a newer command.
	e.after(e.followTTL(), func() {
		if e.Mover.Goal() != goal {
			return
		}
		_ = e.Mover.SetGoal(nil)
		e.reply(actor, fmt.Sprintf("Stopped following %s.", player))
	})
	return nil
}

func (e *Executor) gotoBlock(actor string, x, y, z int) error {
	if !ValidCoordinates(x, y, z) {
		e.reply(actor, fmt.Sprintf("Those coordinates are out of range: %d %d %d", x, y, z))
		return nil
	}
	if e.Mover == nil {
		e.reply(actor, "I can't move right now.")
		return nil
	}
	e.clearGoal()
	if err := e.Mover.SetGoal(&Goal{Kind: GoalBlock, X: x, Y: y, Z: z}); err != nil {
		return err
	}
	e.reply(actor, fmt.Sprintf("Heading to %d %d %d.", x, y, z))
	return nil
}

func (e *Executor) teleportRequest(actor, player string) error {
	if player == "" {
		e.reply(actor, "Who should I send the teleport request to?")
		return nil
	}
	if e.Command == nil {
		e.reply(actor, "I can't send commands right now.")
		return nil
	}
	if err := e.Command("/tpa " + player); err != nil {
		return err
	}
	// Acceptance is out of scope here; a separate listener handles it.
	e.reply(actor, fmt.Sprintf("Teleport request sent to %s.", player))
	return nil
}

func (e *Executor) wait(ctx context.Context, actor string, seconds int) error {
	seconds = plan.ClampWait(seconds)
	e.reply(actor, fmt.Sprintf("Waiting %d seconds...", seconds))
	e.sleep(ctx, time.Duration(seconds)*time.Second)
	e.reply(actor, "Done waiting.")
	return nil
}

func (e *Executor) clearGoal() {
	if e.Mover.Goal() != nil {
		_ = e.Mover.SetGoal(nil)
	}
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) {
	if e.sleepFn != nil {
		e.sleepFn(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ValidCoordinates bounds-checks a block goal before any pathing happens.
func ValidCoordinates(x, y, z int) bool {
	if x > MaxHorizontal || x < -MaxHorizontal {
		return false
	}
	if z > MaxHorizontal || z < -MaxHorizontal {
		return false
	}
	return y >= MinY && y <= MaxY
}
