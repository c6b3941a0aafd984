package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// TraceLevel controls how much of the execution trace is captured.
type TraceLevel string

// Trace levels.
const (
	// TraceLevelMinimal records only query start and end.
	TraceLevelMinimal TraceLevel = "minimal"

	// TraceLevelSummary records pipeline stages but not per-chunk detail.
	TraceLevelSummary TraceLevel = "summary"

	// TraceLevelFull records everything including per-chunk events.
	TraceLevelFull TraceLevel = "full"
)

// TraceEventType identifies what a trace entry describes.
type TraceEventType string

// Trace event types.
const (
	TraceQueryStart      TraceEventType = "query_start"
	TraceQueryEnd        TraceEventType = "query_end"
	TracePlanStart       TraceEventType = "plan_start"
	TracePlanEnd         TraceEventType = "plan_end"
	TraceChunkStart      TraceEventType = "chunk_start"
	TraceChunkEnd        TraceEventType = "chunk_end"
	TraceChunkSkip       TraceEventType = "chunk_skip"
	TraceCompletionStart TraceEventType = "llm_call_start"
	TraceCompletionEnd   TraceEventType = "llm_call_end"
	TraceAggregateStart  TraceEventType = "aggregate_start"
	TraceAggregateEnd    TraceEventType = "aggregate_end"
	TraceCitationStart   TraceEventType = "citation_start"
	TraceCitationEnd     TraceEventType = "citation_end"
	TraceError           TraceEventType = "error"
	TraceWarning         TraceEventType = "warning"
	TraceInfo            TraceEventType = "info"
)

// TraceEntry is a single recorded event in an execution trace.
type TraceEntry struct {
	// Seq is the entry's position in the trace, starting at 0.
	Seq int `json:"seq"`

	// Timestamp is when the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Event identifies the event type.
	Event TraceEventType `json:"event"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// ChunkIndex is set for per-chunk events, -1 otherwise.
	ChunkIndex int `json:"chunk_index"`

	// Tokens is the token count attached to the event, if any.
	Tokens int `json:"tokens,omitempty"`

	// Duration is the elapsed time attached to the event, if any.
	Duration time.Duration `json:"duration_ns,omitempty"`

	// Detail carries arbitrary structured context.
	Detail map[string]any `json:"detail,omitempty"`
}

// Trace is an append-only log of everything that happened while a query
// executed. Workers append concurrently; it is never read for control
// flow, only exported afterwards for inspection and debugging.
type Trace struct {
	mu sync.Mutex

	// Query is the query the trace belongs to.
	Query string `json:"query"`

	// Level is the capture level the trace was recorded at.
	Level TraceLevel `json:"level"`

	// StartedAt is when recording began.
	StartedAt time.Time `json:"started_at"`

	// Entries holds the recorded events in append order.
	Entries []TraceEntry `json:"entries"`

	// CompletionCalls counts completion service invocations.
	CompletionCalls int `json:"completion_calls"`

	// TotalTokens sums tokens across completion calls.
	TotalTokens int `json:"total_tokens"`

	// ChunksProcessed counts chunks that ran to completion.
	ChunksProcessed int `json:"chunks_processed"`

	// ChunksSkipped counts chunks filtered out before execution.
	ChunksSkipped int `json:"chunks_skipped"`
}

// NewTrace starts a trace for the given query at the given level.
func NewTrace(query string, level TraceLevel) *Trace {
	if level == "" {
		level = TraceLevelFull
	}
	return &Trace{
		Query:     query,
		Level:     level,
		StartedAt: time.Now(),
	}
}

// Add appends an event with no chunk association.
func (t *Trace) Add(event TraceEventType, message string) {
	t.add(TraceEntry{Event: event, Message: message, ChunkIndex: -1})
}

// AddChunk appends a per-chunk event.
func (t *Trace) AddChunk(event TraceEventType, chunkIndex int, message string) {
	t.add(TraceEntry{Event: event, Message: message, ChunkIndex: chunkIndex})
}

// AddCompletion appends a completion call event carrying its token count
// and duration.
func (t *Trace) AddCompletion(event TraceEventType, chunkIndex, tokens int, duration time.Duration, message string) {
	t.add(TraceEntry{
		Event:      event,
		Message:    message,
		ChunkIndex: chunkIndex,
		Tokens:     tokens,
		Duration:   duration,
	})
}

// AddDetail appends an event with structured context attached.
func (t *Trace) AddDetail(event TraceEventType, message string, detail map[string]any) {
	t.add(TraceEntry{Event: event, Message: message, ChunkIndex: -1, Detail: detail})
}

func (t *Trace) add(e TraceEntry) {
	if t == nil {
		return
	}
	if t.Level == TraceLevelMinimal && e.Event != TraceQueryStart && e.Event != TraceQueryEnd && e.Event != TraceError {
		return
	}
	if t.Level == TraceLevelSummary {
		switch e.Event {
		case TraceChunkStart, TraceChunkEnd, TraceChunkSkip, TraceCompletionStart, TraceCompletionEnd:
			// Summary keeps running totals but drops per-chunk entries.
			t.mu.Lock()
			t.applyTotals(e)
			t.mu.Unlock()
			return
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e.Seq = len(t.Entries)
	e.Timestamp = time.Now()
	t.Entries = append(t.Entries, e)
	t.applyTotals(e)
}

// applyTotals updates running counters. Caller holds mu.
func (t *Trace) applyTotals(e TraceEntry) {
	switch e.Event {
	case TraceCompletionEnd:
		t.CompletionCalls++
		t.TotalTokens += e.Tokens
	case TraceChunkEnd:
		t.ChunksProcessed++
	case TraceChunkSkip:
		t.ChunksSkipped++
	}
}

// Len returns the number of recorded entries.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Entries)
}

// Snapshot returns a copy of the entries safe to read without the lock.
func (t *Trace) Snapshot() []TraceEntry {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.Entries))
	copy(out, t.Entries)
	return out
}

// JSON serialises the full trace as indented JSON.
func (t *Trace) JSON() ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("trace is nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling trace: %w", err)
	}
	return data, nil
}

// Markdown renders the trace as a human-readable report.
func (t *Trace) Markdown() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	b.WriteString("# Execution Trace\n\n")
	fmt.Fprintf(&b, "**Query:** %s\n", t.Query)
	fmt.Fprintf(&b, "**Started:** %s\n", t.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Level:** %s\n\n", t.Level)

	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Completion calls: %d\n", t.CompletionCalls)
	fmt.Fprintf(&b, "- Total tokens: %d\n", t.TotalTokens)
	fmt.Fprintf(&b, "- Chunks processed: %d\n", t.ChunksProcessed)
	fmt.Fprintf(&b, "- Chunks skipped: %d\n\n", t.ChunksSkipped)

	b.WriteString("## Events\n\n")
	for _, e := range t.Entries {
		elapsed := e.Timestamp.Sub(t.StartedAt).Round(time.Millisecond)
		fmt.Fprintf(&b, "- `+%s` **%s**", elapsed, e.Event)
		if e.ChunkIndex >= 0 {
			fmt.Fprintf(&b, " [chunk %d]", e.ChunkIndex)
		}
		if e.Message != "" {
			fmt.Fprintf(&b, " %s", e.Message)
		}
		if e.Tokens > 0 {
			fmt.Fprintf(&b, " (%d tokens)", e.Tokens)
		}
		b.WriteString("\n")
	}

	return b.String()
}
