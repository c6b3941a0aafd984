package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
)

// fakeCompletion is a scripted CompletionService for tests. The reply
// function receives the prompt and system prompt and returns the
// completion. When reply is nil, every call returns a fixed answer.
type fakeCompletion struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   func(prompt, system string) (string, int, error)
}

var _ driven.CompletionService = (*fakeCompletion)(nil)

func (f *fakeCompletion) Complete(_ context.Context, prompt, system string, _ driven.CompleteOptions) (string, int, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(prompt, system)
	}
	return "fake answer", 10, nil
}

func (f *fakeCompletion) ModelName() string { return "fake-model" }

func (f *fakeCompletion) Ping(_ context.Context) error { return nil }

func (f *fakeCompletion) Close() error { return nil }

func (f *fakeCompletion) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCache is an in-memory ResultCache for tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]driven.CachedResult
	gets    int
	hits    int
}

var _ driven.ResultCache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]driven.CachedResult)}
}

func (c *fakeCache) Get(_ context.Context, key string) (driven.CachedResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	entry, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return entry, ok, nil
}

func (c *fakeCache) Put(_ context.Context, key string, result driven.CachedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	return nil
}

func (c *fakeCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]driven.CachedResult)
	return nil
}

func (c *fakeCache) Len(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), nil
}

func (c *fakeCache) Close() error { return nil }

// fakeSource serves a preset record slice as a RecordSource.
type fakeSource struct {
	records []domain.Record
	err     error
}

var _ driven.RecordSource = (*fakeSource)(nil)

func (s *fakeSource) Load(_ context.Context, _ string) ([]domain.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *fakeSource) Stat(_ context.Context, _ string) (int64, error) {
	return 1024, nil
}

// discordRecords builds n Discord-shaped records with sequential
// timestamps, cycling authors and channels.
func discordRecords(n int) []domain.Record {
	authors := []string{"alice", "bob", "carol"}
	channels := []string{"general", "feedback"}

	records := make([]domain.Record, n)
	for i := 0; i < n; i++ {
		records[i] = domain.Record{
			"id":        i,
			"author":    authors[i%len(authors)],
			"content":   fmt.Sprintf("message number %d", i),
			"timestamp": timestampFor(i),
			"channel":   channels[i%len(channels)],
		}
	}
	return records
}

// timestampFor spreads records over calendar days: ten records per day,
// one minute apart.
func timestampFor(i int) string {
	return fmt.Sprintf("2024-03-%02dT10:%02d:00Z", i/10+1, i%10)
}
