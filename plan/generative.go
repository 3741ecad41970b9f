package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxmate/voxmate/llm"
)

const basePrompt = `You translate a player's chat instruction into actions for a game bot.
The only valid actions are, verbatim:
  {"action":"follow","player":"<name>"}
  {"action":"goto","x":<int>,"y":<int>,"z":<int>}
  {"action":"tp","player":"<name>"}
  {"action":"wait","seconds":<int>}
Respond with ONLY a JSON object of the form {"steps":[...]} containing zero or
more of those actions, in order. If the player does not name who to follow or
teleport to, use the requesting player's own name. If the instruction asks for
nothing actionable, return {"steps":[]}.`

const strictSuffix = "\nJSON only. No explanation, no markdown, no prose."

// GenPlanner delegates planning to a generative backend. The backend's output
// is untrusted: the first brace-delimited JSON object is extracted from
// wherever it appears in the reply, schema-checked, and decoded into known
// step shapes. One stricter retry is allowed; after that the plan is empty.
type GenPlanner struct {
	Client      llm.Client
	Model       string
	Log         *slog.Logger
	History     func() []llm.Message
	CallTimeout time.Duration
}

func (g *GenPlanner) logger() *slog.Logger {
	if g.Log != nil {
		return g.Log
	}
	return slog.Default()
}

func (g *GenPlanner) Plan(ctx context.Context, actor, text string) (Plan, error) {
	p := Plan{ID: uuid.NewString()}
	if g.Client == nil {
		return p, nil
	}
	log := g.logger().With("plan_id", p.ID, "actor", actor)

	timeout := g.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Ordered prompt variants, same validation predicate; first success
	// wins.
	variants := []string{basePrompt, basePrompt + strictSuffix}
	for i, system := range variants {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		steps, err := g.tryOnce(callCtx, system, actor, text)
		cancel()
		if err != nil {
			log.Warn("gen_plan_attempt_failed", "attempt", i+1, "error", err.Error())
			continue
		}
		p.Steps = steps
		log.Info("gen_plan_ok", "attempt", i+1, "steps", len(steps))
		return p, nil
	}

	log.Warn("gen_plan_gave_up")
	return p, nil
}

func (g *GenPlanner) tryOnce(ctx context.Context, system, actor, text string) ([]Step, error) {
	messages := []llm.Message{{Role: "system", Content: system}}
	if g.History != nil {
		messages = append(messages, g.History()...)
	}
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("Player %q says: %s", actor, text),
	})

	res, err := g.Client.Chat(ctx, llm.Request{
		Model:       g.Model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   512,
		ForceJSON:   true,
	})
	if err != nil {
		return nil, err
	}

	obj := ExtractJSONObject(res.Text)
	if obj == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var payload any
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("decode plan object: %w", err)
	}
	if err := ValidatePlanPayload(payload); err != nil {
		return nil, err
	}
	return decodeSteps(payload, actor), nil
}

// decodeSteps maps raw step objects onto the closed step set. Entries that
// are not objects are dropped; objects with an unknown action survive as
// KindInvalid so the executor can report them.
func decodeSteps(payload any, actor string) []Step {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["steps"].([]any)
	if !ok {
		return nil
	}

	out := make([]Step, 0, len(raw))
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		action, _ := obj["action"].(string)
		switch strings.ToLower(strings.TrimSpace(action)) {
		case "follow":
			out = append(out, Step{Kind: KindFollow, Player: stringField(obj, "player", actor)})
		case "goto":
			x, okX := intField(obj, "x")
			y, okY := intField(obj, "y")
			z, okZ := intField(obj, "z")
			if !okX || !okY || !okZ {
				out = append(out, Step{Kind: KindInvalid, Raw: "goto (bad coordinates)"})
				continue
			}
			out = append(out, Step{Kind: KindGoto, X: x, Y: y, Z: z})
		case "tp", "teleport":
			out = append(out, Step{Kind: KindTeleport, Player: stringField(obj, "player", actor)})
		case "wait":
			seconds, ok := intField(obj, "seconds")
			if !ok {
				seconds = 0
			}
			out = append(out, Step{Kind: KindWait, Seconds: ClampWait(seconds)})
		case "":
			continue
		default:
			out = append(out, Step{Kind: KindInvalid, Raw: action})
		}
	}
	return out
}

func stringField(obj map[string]any, key, fallback string) string {
	if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func intField(obj map[string]any, key string) (int, bool) {
	switch v := obj[key].(type) {
	case float64:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
