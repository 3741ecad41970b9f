// Package plan converts a trusted actor's free-form instruction into an
// ordered action plan. Two interchangeable strategies exist: local rule
// matching and a generative backend held to a strict JSON contract. Both
// produce the same closed set of step shapes.
package plan

import (
	"context"
	"fmt"
	"strings"
)

type StepKind string

const (
	KindFollow   StepKind = "follow"
	KindGoto     StepKind = "goto"
	KindTeleport StepKind = "tp"
	KindWait     StepKind = "wait"
	// KindInvalid marks a step whose action was not one of the known
	// shapes. Invalid steps are kept so the executor can name the
	// unrecognized action instead of silently dropping it.
	KindInvalid StepKind = "invalid"
)

type Step struct {
	Kind    StepKind
	Player  string
	X, Y, Z int
	Seconds int
	// Raw holds the unrecognized action name for KindInvalid.
	Raw string
}

func (s Step) String() string {
	switch s.Kind {
	case KindFollow:
		return fmt.Sprintf("follow %s", s.Player)
	case KindGoto:
		return fmt.Sprintf("goto %d %d %d", s.X, s.Y, s.Z)
	case KindTeleport:
		return fmt.Sprintf("tp %s", s.Player)
	case KindWait:
		return fmt.Sprintf("wait %d", s.Seconds)
	default:
		if s.Raw != "" {
			return s.Raw
		}
		return "invalid"
	}
}

// Plan is the ordered step list for one instruction. It has no identity
// beyond the single execution that consumes it; ID exists only to correlate
// log lines.
type Plan struct {
	ID    string
	Steps []Step
}

func (p Plan) Empty() bool { return len(p.Steps) == 0 }

// Planner is the strategy contract. Implementations never return an error
// for "nothing to do"; that is an empty plan.
type Planner interface {
	Plan(ctx context.Context, actor, text string) (Plan, error)
}

const (
	MinWaitSeconds = 1
	MaxWaitSeconds = 30
)

// ClampWait forces a wait duration into [MinWaitSeconds, MaxWaitSeconds].
// Anything unusable (zero, negative, unparsed) becomes the minimum.
func ClampWait(seconds int) int {
	if seconds < MinWaitSeconds {
		return MinWaitSeconds
	}
	if seconds > MaxWaitSeconds {
		return MaxWaitSeconds
	}
	return seconds
}

var targetStopWords = map[string]bool{
	"me":  true,
	"to":  true,
	"at":  true,
	"the": true,
}

// ResolveTarget finds the player name a command refers to: the first
// plausible name token following a command verb, skipping stop words.
// Most commands implicitly mean "to me", so the requesting actor is the
// default.
func ResolveTarget(text, actor string, verbs ...string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		word := strings.ToLower(strings.Trim(f, ".,!?"))
		if !containsFold(verbs, word) {
			continue
		}
		for j := i + 1; j < len(fields); j++ {
			cand := strings.Trim(fields[j], ".,!?")
			lower := strings.ToLower(cand)
			if targetStopWords[lower] {
				continue
			}
			if !isNameToken(cand) {
				break
			}
			return cand
		}
	}
	return actor
}

func containsFold(list []string, word string) bool {
	for _, v := range list {
		if strings.EqualFold(v, word) {
			return true
		}
	}
	return false
}

func isNameToken(s string) bool {
	if s == "" {
		return false
	}
	digitsOnly := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			digitsOnly = false
		default:
			return false
		}
	}
	return !digitsOnly
}
