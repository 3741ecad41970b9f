package state

import (
	"fmt"
	"testing"
)

func TestConvoAppendBounded(t *testing.T) {
	c := LoadConvoLog(t.TempDir(), nil)
	for i := 0; i < 3*MaxConvoEntries; i++ {
		c.Append("user", fmt.Sprintf("message %d", i))
		if c.Len() > MaxConvoEntries {
			t.Fatalf("log exceeded cap after %d appends", i+1)
		}
	}
	msgs := c.Messages()
	if len(msgs) != MaxConvoEntries {
		t.Fatalf("expected %d entries, got %d", MaxConvoEntries, len(msgs))
	}
	// Oldest evicted first: the last append must be present at the tail.
	if msgs[len(msgs)-1].Content != fmt.Sprintf("message %d", 3*MaxConvoEntries-1) {
		t.Errorf("unexpected tail entry: %q", msgs[len(msgs)-1].Content)
	}
}

func TestConvoBlankAppendDropped(t *testing.T) {
	c := LoadConvoLog(t.TempDir(), nil)
	c.Append("user", "   ")
	if c.Len() != 0 {
		t.Error("blank content must not be appended")
	}
}

func TestConvoFlushAndReload(t *testing.T) {
	dir := t.TempDir()
	c := LoadConvoLog(dir, nil)
	c.Append("user", "hello")
	c.Append("assistant", "hi")
	if err := c.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	re := LoadConvoLog(dir, nil)
	msgs := re.Messages()
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("reload mismatch: %+v", msgs)
	}
}

func TestConvoFlushCleanIsNoop(t *testing.T) {
	c := LoadConvoLog(t.TempDir(), nil)
	if err := c.Flush(); err != nil {
		t.Fatalf("flush of clean log should succeed: %v", err)
	}
}

func TestConvoReloadTruncatesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	c := LoadConvoLog(dir, nil)
	for i := 0; i < MaxConvoEntries; i++ {
		c.Append("user", fmt.Sprintf("m%d", i))
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	re := LoadConvoLog(dir, nil)
	if re.Len() > MaxConvoEntries {
		t.Errorf("reload exceeded cap: %d", re.Len())
	}
}
