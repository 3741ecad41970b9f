package state

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/voxmate/voxmate/internal/fsstore"
	"github.com/voxmate/voxmate/llm"
)

const (
	convoFile = "memory.json"

	// MaxConvoEntries bounds the conversation log; the oldest entries are
	// evicted first. The log is advisory context for the language backend,
	// so losing it is harmless.
	MaxConvoEntries = 50

	defaultFlushInterval = 60 * time.Second
)

type ConvoLog struct {
	mu      sync.Mutex
	path    string
	log     *slog.Logger
	entries []llm.Message
	dirty   bool
}

func LoadConvoLog(dir string, log *slog.Logger) *ConvoLog {
	if log == nil {
		log = slog.Default()
	}
	c := &ConvoLog{path: filepath.Join(dir, convoFile), log: log}
	var entries []llm.Message
	found, err := fsstore.ReadJSON(c.path, &entries)
	if err != nil {
		log.Warn("convo_load_failed", "error", err.Error())
		return c
	}
	if found {
		if len(entries) > MaxConvoEntries {
			entries = entries[len(entries)-MaxConvoEntries:]
		}
		c.entries = entries
	}
	return c
}

func (c *ConvoLog) Append(role, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	c.mu.Lock()
	c.entries = append(c.entries, llm.Message{Role: role, Content: content})
	if len(c.entries) > MaxConvoEntries {
		c.entries = c.entries[len(c.entries)-MaxConvoEntries:]
	}
	c.dirty = true
	c.mu.Unlock()
}

// Messages returns a copy of the current log, oldest first.
func (c *ConvoLog) Messages() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Message, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *ConvoLog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush writes the log to disk if it changed since the last flush.
func (c *ConvoLog) Flush() error {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	snapshot := make([]llm.Message, len(c.entries))
	copy(snapshot, c.entries)
	c.dirty = false
	c.mu.Unlock()

	if err := fsstore.WriteJSONAtomic(c.path, snapshot); err != nil {
		c.log.Error("convo_flush_failed", "error", err.Error())
		return err
	}
	return nil
}

// StartFlusher flushes on a fixed interval until ctx is done, then once more
// on the way out.
func (c *ConvoLog) StartFlusher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = c.Flush()
				return
			case <-t.C:
				_ = c.Flush()
			}
		}
	}()
}
