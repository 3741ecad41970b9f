// Package botexec executes one action plan at a time against the movement
// controller: a sequential state machine with per-step failure isolation,
// coordinate validation, and the single-active-goal invariant.
package botexec

import "context"

type GoalKind string

const (
	GoalFollow GoalKind = "follow"
	GoalBlock  GoalKind = "block"
)

// Goal is a movement directive. At most one goal is active at any instant;
// installing a new one replaces whatever preceded it.
type Goal struct {
	Kind    GoalKind
	Player  string
	Radius  int
	X, Y, Z int
}

// Mover is the movement controller contract. Ready performs the lazy
// one-time capability setup and must be called before the first goal;
// SetGoal(nil) clears the active goal.
type Mover interface {
	Ready(ctx context.Context) error
	SetGoal(g *Goal) error
	Goal() *Goal
	CanSee(player string) bool
}
