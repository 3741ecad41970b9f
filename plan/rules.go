package plan

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	followRe = regexp.MustCompile(`(?i)\b(follow|come)\b`)
	gotoRe   = regexp.MustCompile(`(?i)\b(?:go(?:to)?|move|head|walk)\b[^-\d]*(-?\d+)[,\s]+(-?\d+)[,\s]+(-?\d+)`)
	tpRe     = regexp.MustCompile(`(?i)\b(tpa?|teleport)\b`)
	waitRe   = regexp.MustCompile(`(?i)\bwait\b(?:\s+(?:for\s+)?(-?\d+))?`)
)

// RulePlanner builds a plan from independent pattern checks. Each check may
// contribute one step, so a single utterance can yield several steps.
type RulePlanner struct{}

func (RulePlanner) Plan(_ context.Context, actor, text string) (Plan, error) {
	p := Plan{ID: uuid.NewString()}

	if m := gotoRe.FindStringSubmatch(text); m != nil {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		z, _ := strconv.Atoi(m[3])
		p.Steps = append(p.Steps, Step{Kind: KindGoto, X: x, Y: y, Z: z})
	}

	if followRe.MatchString(text) {
		target := ResolveTarget(text, actor, "follow", "come")
		p.Steps = append(p.Steps, Step{Kind: KindFollow, Player: target})
	}

	// "request" is excluded so teleport-request notifications echoed into
	// chat don't read as commands.
	if tpRe.MatchString(text) && !strings.Contains(strings.ToLower(text), "request") {
		target := ResolveTarget(text, actor, "tp", "tpa", "teleport")
		p.Steps = append(p.Steps, Step{Kind: KindTeleport, Player: target})
	}

	if m := waitRe.FindStringSubmatch(text); m != nil {
		seconds := 0
		if m[1] != "" {
			seconds, _ = strconv.Atoi(m[1])
		}
		p.Steps = append(p.Steps, Step{Kind: KindWait, Seconds: ClampWait(seconds)})
	}

	return p, nil
}
