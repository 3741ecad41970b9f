// Package gate decides who may command the bot. Every normalized message
// passes through here before any planning happens: ignored actors are
// silenced, the call-name filter drops unaddressed chatter, owner-only list
// management is applied, and untrusted actors are blocked from action verbs.
package gate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/voxmate/voxmate/state"
)

type Tier int

const (
	TierUntrusted Tier = iota
	TierTrusted
	TierOwner
)

func (t Tier) String() string {
	switch t {
	case TierOwner:
		return "owner"
	case TierTrusted:
		return "trusted"
	default:
		return "untrusted"
	}
}

type DecisionKind int

const (
	// Discard: say nothing, do nothing.
	Discard DecisionKind = iota
	// Reply: terminal; send the reply and stop (list management, refusals).
	Reply
	// Forward: hand (actor, text, tier) to the planner.
	Forward
)

type Decision struct {
	Kind  DecisionKind
	Reply string
	Tier  Tier
}

// RefusalReply is the fixed answer for untrusted actors who try action verbs.
const RefusalReply = "I only take commands from trusted players. Ask my owner to trust you first."

// Order matters: the remove patterns contain the add words as substrings, so
// they are checked first.
var (
	unignoreRe = regexp.MustCompile(`(?i)\bunignore\s+([A-Za-z0-9_]+)`)
	ignoreRe   = regexp.MustCompile(`(?i)\bignore\s+([A-Za-z0-9_]+)`)
	untrustRe  = regexp.MustCompile(`(?i)\b(?:untrust|distrust)\s+([A-Za-z0-9_]+)`)
	trustRe    = regexp.MustCompile(`(?i)\btrust\s+([A-Za-z0-9_]+)`)
)

// actionVerbs triggers the untrusted block. Deliberately broad: a missed
// verb means an untrusted actor gets planning, so false positives are the
// safer failure.
var actionVerbs = []string{
	"follow", "goto", "come", "tp", "tpa", "wait",
	"mine", "build", "attack", "hold", "drop",
}

type Config struct {
	Owner     string
	SelfName  string
	CallNames []string
}

type Gate struct {
	cfg   Config
	lists *state.Lists
	convo *state.ConvoLog
	log   *slog.Logger
}

func New(cfg Config, lists *state.Lists, convo *state.ConvoLog, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{cfg: cfg, lists: lists, convo: convo, log: log}
}

// TierOf derives an actor's tier. The owner outranks the trusted set and is
// implicitly always trusted.
func (g *Gate) TierOf(actor string) Tier {
	if strings.EqualFold(actor, g.cfg.Owner) {
		return TierOwner
	}
	if g.lists.IsTrusted(actor) {
		return TierTrusted
	}
	return TierUntrusted
}

// Process applies the gate to one inbound message.
func (g *Gate) Process(actor, text string) Decision {
	// The bot's own chat echoes back; never treat it as inbound.
	if strings.EqualFold(actor, g.cfg.SelfName) {
		return Decision{Kind: Discard}
	}
	if g.lists.IsIgnored(actor) {
		return Decision{Kind: Discard}
	}
	if !g.addressed(text) {
		return Decision{Kind: Discard}
	}

	tier := g.TierOf(actor)

	if tier == TierOwner {
		if reply, ok := g.listCommand(text); ok {
			return Decision{Kind: Reply, Reply: reply, Tier: tier}
		}
	}

	if g.convo != nil {
		g.convo.Append("user", fmt.Sprintf("%s: %s", actor, text))
	}

	if tier == TierUntrusted && containsActionVerb(text) {
		// Terminal even when the verb sits inside an otherwise
		// conversational sentence.
		g.log.Info("untrusted_verb_blocked", "actor", actor)
		return Decision{Kind: Reply, Reply: RefusalReply, Tier: tier}
	}

	return Decision{Kind: Forward, Tier: tier}
}

// addressed reports whether the text names the bot. Substring matching is a
// deliberate low-precision filter: false positives beat missed addressing.
func (g *Gate) addressed(text string) bool {
	lower := strings.ToLower(text)
	for _, name := range g.cfg.CallNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// listCommand handles the owner's add/remove phrases. A match is terminal.
func (g *Gate) listCommand(text string) (string, bool) {
	if m := untrustRe.FindStringSubmatch(text); m != nil {
		return g.applyList(m[1], g.lists.Untrust,
			"%s is no longer trusted.", "%s wasn't trusted."), true
	}
	if m := trustRe.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[1], g.cfg.Owner) {
			return "You're my owner, always trusted.", true
		}
		return g.applyList(m[1], g.lists.Trust,
			"%s is now trusted!", "%s is already trusted."), true
	}
	if m := unignoreRe.FindStringSubmatch(text); m != nil {
		return g.applyList(m[1], g.lists.Unignore,
			"%s is no longer ignored.", "%s wasn't ignored."), true
	}
	if m := ignoreRe.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[1], g.cfg.Owner) {
			return "I can't ignore my owner.", true
		}
		return g.applyList(m[1], g.lists.Ignore,
			"%s is now ignored.", "%s is already ignored."), true
	}
	return "", false
}

func (g *Gate) applyList(name string, mutate func(string) bool, changed, unchanged string) string {
	if mutate(name) {
		g.log.Info("list_updated", "name", name)
		return fmt.Sprintf(changed, name)
	}
	return fmt.Sprintf(unchanged, name)
}

func containsActionVerb(text string) bool {
	for _, f := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(f, ".,!?\"'")
		for _, v := range actionVerbs {
			if word == v {
				return true
			}
		}
	}
	return false
}
