package llmcall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/promptiverse/internal/store"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db.DB())
}

func TestNewCall(t *testing.T) {
	step := 2
	started := time.Now().Add(-150 * time.Millisecond)
	c := NewCall(RecordOptions{
		Operation: OpSuggestions,
		Step:      &step,
		Provider:  "groq",
		Started:   started,
		ErrorKind: "rate_limit",
		Err:       errors.New("429 Too Many Requests"),
	})

	if c.ID == "" {
		t.Error("expected ID")
	}
	if c.Success {
		t.Error("expected failure")
	}
	if c.LatencyMs < 150 {
		t.Errorf("latency = %d, want >= 150", c.LatencyMs)
	}
	if c.ErrorKind != "rate_limit" || c.Error != "429 Too Many Requests" {
		t.Errorf("unexpected error fields: %+v", c)
	}
	step = 3
	if *c.Step != 2 {
		t.Error("step should be copied")
	}

	ok := NewCall(RecordOptions{Operation: OpPrompt, Provider: "openai", ErrorKind: "auth"})
	if !ok.Success || ok.ErrorKind != "" {
		t.Errorf("error kind should be ignored on success: %+v", ok)
	}
}

func TestStoreInsertListGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	calls := []*Call{
		{ID: "a", Timestamp: base, Operation: OpSuggestions, Step: &step, Provider: "openai", Success: false, ErrorKind: "auth", Error: "invalid API key"},
		{ID: "b", Timestamp: base.Add(time.Second), Operation: OpSuggestions, Step: &step, Provider: "groq", Success: true, ResponseSize: 5},
		{ID: "c", Timestamp: base.Add(2 * time.Second), Operation: OpPrompt, Provider: "groq", Success: true, ResponseSize: 120, UserID: "u1"},
	}
	if err := s.Insert(ctx, calls...); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	all, err := s.List(ctx, QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	failed := false
	got, _ := s.List(ctx, QueryFilter{Success: &failed})
	if len(got) != 1 || got[0].ErrorKind != "auth" {
		t.Errorf("success filter: %+v", got)
	}

	got, _ = s.List(ctx, QueryFilter{Provider: "groq", Operation: OpPrompt})
	if len(got) != 1 || got[0].ID != "c" || got[0].Step != nil {
		t.Errorf("provider/operation filter: %+v", got)
	}

	after := base.Add(500 * time.Millisecond)
	got, _ = s.List(ctx, QueryFilter{After: &after, Limit: 1, Offset: 1})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("after/limit/offset: %+v", got)
	}

	c, err := s.Get(ctx, "b")
	if err != nil || c == nil {
		t.Fatalf("Get: %v %v", c, err)
	}
	if c.Step == nil || *c.Step != 0 || c.ResponseSize != 5 || !c.Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("Get returned %+v", c)
	}
	if c, _ := s.Get(ctx, "missing"); c != nil {
		t.Error("expected nil for missing call")
	}

	counts, err := s.CountByProvider(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["groq"].Succeeded != 2 || counts["openai"].Failed != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]*Call
}

func (w *fakeWriter) Insert(_ context.Context, calls ...*Call) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, calls)
	return nil
}

func (w *fakeWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func TestRecorderBatchesAndFlushes(t *testing.T) {
	w := &fakeWriter{}
	r := NewRecorder(RecorderConfig{Writer: w, BatchSize: 2, FlushInterval: time.Hour})
	r.Start(context.Background())

	for i := 0; i < 3; i++ {
		r.Record(&Call{ID: string(rune('a' + i)), Provider: "groq"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if got := w.total(); got != 3 {
		t.Errorf("recorded %d calls, want 3", got)
	}

	r.Record(&Call{ID: "d"})
	r.Stop()
	if got := w.total(); got != 4 {
		t.Errorf("Stop should flush remaining calls, got %d", got)
	}

	// Recording after Stop is dropped, not a panic.
	r.Record(&Call{ID: "e"})
	if err := r.Flush(ctx); err != nil {
		t.Errorf("Flush after Stop: %v", err)
	}
}

func TestRecorderWritesToStore(t *testing.T) {
	s := openStore(t)
	r := NewRecorder(RecorderConfig{Writer: s, FlushInterval: 10 * time.Millisecond})
	r.Start(context.Background())

	r.Record(NewCall(RecordOptions{Operation: OpTest, Provider: "gemini"}))
	r.Stop()

	calls, err := s.List(context.Background(), QueryFilter{Operation: OpTest})
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0].Provider != "gemini" || !calls[0].Success {
		t.Errorf("unexpected calls: %+v", calls)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Record(&Call{ID: "x"})
}
