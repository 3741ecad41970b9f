// Package chat turns raw server text lines into addressable (actor, text)
// messages. Servers, bridge plugins and system broadcasts all format chat
// differently, so normalization is a fixed-priority list of rules; the first
// rule that matches wins. Lines no rule recognizes are not messages and never
// reach the rest of the pipeline.
package chat

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Message is one normalized inbound line. System marks synthesized
// join/leave announcements, which carry information but are not instructions.
type Message struct {
	Actor  string
	Text   string
	System bool
}

const defaultBridgeTag = "[discord]"

var (
	angleRe = regexp.MustCompile(`^\s*<([^>\s]+)>\s?(.*)$`)
	bareRe  = regexp.MustCompile(`^\s*([A-Za-z0-9_]{1,16}):\s?(.*)$`)
	guillRe = regexp.MustCompile(`^\s*([A-Za-z0-9_]{1,32})\s*»\s?(.*)$`)
	joinRe  = regexp.MustCompile(`^\s*([A-Za-z0-9_]{1,16}) has (joined|left)\b`)
)

// Normalizer applies the recognition rules in order. Online, when set,
// supplies the names currently known to be online for the prefix heuristic.
type Normalizer struct {
	BridgeTag string
	Online    func() []string
}

func (n *Normalizer) bridgeTag() string {
	if n != nil && strings.TrimSpace(n.BridgeTag) != "" {
		return strings.ToLower(strings.TrimSpace(n.BridgeTag))
	}
	return defaultBridgeTag
}

// Parse normalizes one raw line. ok is false when the line is not an
// addressable message.
func (n *Normalizer) Parse(line string) (Message, bool) {
	if msg, ok := n.parseFlat(line); ok {
		return msg, true
	}

	// Rich-text payloads: flatten nested fragments, then re-apply the
	// flat rules to the joined string.
	if flat, ok := flattenRichText(line); ok {
		if msg, ok := n.parseFlat(flat); ok {
			return msg, true
		}
	}

	// Last resort: a known online name as a literal prefix.
	if n != nil && n.Online != nil {
		if msg, ok := splitOnOnlineName(line, n.Online()); ok {
			return msg, true
		}
	}

	return Message{}, false
}

func (n *Normalizer) parseFlat(line string) (Message, bool) {
	if m := angleRe.FindStringSubmatch(line); m != nil {
		return Message{Actor: m[1], Text: m[2]}, true
	}

	if rest, ok := stripBridgeTag(line, n.bridgeTag()); ok {
		if m := guillRe.FindStringSubmatch(rest); m != nil {
			return Message{Actor: m[1], Text: m[2]}, true
		}
		if m := bareRe.FindStringSubmatch(rest); m != nil {
			return Message{Actor: m[1], Text: m[2]}, true
		}
	}

	if m := bareRe.FindStringSubmatch(line); m != nil {
		return Message{Actor: m[1], Text: m[2]}, true
	}

	if m := joinRe.FindStringSubmatch(line); m != nil {
		return Message{Actor: m[1], Text: strings.TrimSpace(line), System: true}, true
	}

	return Message{}, false
}

func stripBridgeTag(line, tag string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(tag) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(tag)], tag) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(tag):]), true
}

// richFragment mirrors the nested text-component shape used by rich chat
// payloads: a text field plus optional child fragments.
type richFragment struct {
	Text  string         `json:"text"`
	Extra []richFragment `json:"extra,omitempty"`
	With  []richFragment `json:"with,omitempty"`
}

func flattenRichText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	var frag richFragment
	if err := json.Unmarshal([]byte(trimmed), &frag); err != nil {
		return "", false
	}
	var b strings.Builder
	collectFragmentText(&b, frag)
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", false
	}
	return out, true
}

func collectFragmentText(b *strings.Builder, frag richFragment) {
	b.WriteString(frag.Text)
	for _, f := range frag.With {
		collectFragmentText(b, f)
	}
	for _, f := range frag.Extra {
		collectFragmentText(b, f)
	}
}

func splitOnOnlineName(line string, online []string) (Message, bool) {
	trimmed := strings.TrimSpace(line)
	for _, name := range online {
		name = strings.TrimSpace(name)
		if name == "" || len(trimmed) <= len(name) {
			continue
		}
		if !strings.HasPrefix(trimmed, name) {
			continue
		}
		sep := trimmed[len(name)]
		if sep != ' ' && sep != ':' && sep != ',' && sep != '>' && sep != '-' {
			continue
		}
		rest := strings.TrimLeft(trimmed[len(name):], " :,>-")
		if rest == "" {
			continue
		}
		return Message{Actor: name, Text: rest}, true
	}
	return Message{}, false
}
