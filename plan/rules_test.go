package plan

import (
	"context"
	"testing"
)

func TestRulePlannerGoto(t *testing.T) {
	p, err := RulePlanner{}.Plan(context.Background(), "Alice", "Bot go to 10 64 10")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Steps) != 1 {
		t.Fatalf("expected 1 step, got %v", p.Steps)
	}
	s := p.Steps[0]
	if s.Kind != KindGoto || s.X != 10 || s.Y != 64 || s.Z != 10 {
		t.Errorf("got %+v", s)
	}
}

func TestRulePlannerNegativeCoordinates(t *testing.T) {
	p, _ := RulePlanner{}.Plan(context.Background(), "Alice", "move to -100, -60, 250")
	if len(p.Steps) != 1 || p.Steps[0].Kind != KindGoto {
		t.Fatalf("got %v", p.Steps)
	}
	s := p.Steps[0]
	if s.X != -100 || s.Y != -60 || s.Z != 250 {
		t.Errorf("got %+v", s)
	}
}

func TestRulePlannerFollowDefaultsToActor(t *testing.T) {
	p, _ := RulePlanner{}.Plan(context.Background(), "Alice", "follow me please")
	if len(p.Steps) != 1 || p.Steps[0].Kind != KindFollow {
		t.Fatalf("got %v", p.Steps)
	}
	if p.Steps[0].Player != "Alice" {
		t.Errorf("expected implicit target Alice, got %q", p.Steps[0].Player)
	}
}

func TestRulePlannerFollowNamedTarget(t *testing.T) {
	p, _ := RulePlanner{}.Plan(context.Background(), "Alice", "follow Bob")
	if len(p.Steps) != 1 || p.Steps[0].Player != "Bob" {
		t.Fatalf("got %v", p.Steps)
	}
}

func TestRulePlannerMultiStepUtterance(t *testing.T) {
	p, _ := RulePlanner{}.Plan(context.Background(), "Alice", "go to 10 5 10 then follow me")
	if len(p.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %v", p.Steps)
	}
	if p.Steps[0].Kind != KindGoto || p.Steps[1].Kind != KindFollow {
		t.Errorf("got %v", p.Steps)
	}
}

func TestRulePlannerTeleport(t *testing.T) {
	p, _ := RulePlanner{}.Plan(context.Background(), "Alice", "tp to me")
	if len(p.Steps) != 1 || p.Steps[0].Kind != KindTeleport {
		t.Fatalf("got %v", p.Steps)
	}
	if p.Steps[0].Player != "Alice" {
		t.Errorf("got %q", p.Steps[0].Player)
	}
}

func TestRulePlannerTeleportRequestNotificationExcluded(t *testing.T) {
	p, _ := RulePlanner{}.Plan(context.Background(), "Alice", "Bob sent a teleport request")
	for _, s := range p.Steps {
		if s.Kind == KindTeleport {
			t.Error("teleport-request notification must not plan a teleport")
		}
	}
}

func TestRulePlannerWaitParsing(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"wait 5 seconds", 5},
		{"wait 500 seconds", 30},
		{"wait -3 seconds", 1},
		{"wait a moment", 1},
	}
	for _, tc := range cases {
		p, _ := RulePlanner{}.Plan(context.Background(), "Alice", tc.text)
		if len(p.Steps) != 1 || p.Steps[0].Kind != KindWait {
			t.Fatalf("%q: got %v", tc.text, p.Steps)
		}
		if p.Steps[0].Seconds != tc.want {
			t.Errorf("%q: seconds=%d want %d", tc.text, p.Steps[0].Seconds, tc.want)
		}
	}
}

func TestRulePlannerNoActionableText(t *testing.T) {
	p, _ := RulePlanner{}.Plan(context.Background(), "Alice", "nice weather today")
	if !p.Empty() {
		t.Errorf("expected empty plan, got %v", p.Steps)
	}
}

func TestClampWait(t *testing.T) {
	cases := map[int]int{-10: 1, 0: 1, 1: 1, 15: 15, 30: 30, 31: 30, 1000: 30}
	for in, want := range cases {
		if got := ClampWait(in); got != want {
			t.Errorf("ClampWait(%d)=%d want %d", in, got, want)
		}
	}
}

func TestResolveTargetSkipsStopWords(t *testing.T) {
	if got := ResolveTarget("come to the base", "Alice", "come"); got != "base" {
		t.Errorf("got %q", got)
	}
	if got := ResolveTarget("come to me", "Alice", "come"); got != "Alice" {
		t.Errorf("got %q", got)
	}
}
