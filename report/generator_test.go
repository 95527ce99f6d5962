package report

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/infergate/cache"
	"github.com/jonwraymond/infergate/observe"
	"github.com/jonwraymond/infergate/resilience"
)

func newTestGenerator(src Source, model Streamer, c cache.Cache) *Generator {
	return NewGenerator(src, model, c, Config{BaseDelay: time.Millisecond})
}

func TestGenerator_RecoversAfterTransientFailures(t *testing.T) {
	store := cache.NewMemoryCache()
	model := &fakeModel{scripts: []script{
		{chunks: []string{"Hel"}, err: transient("503 mid-stream")},
		{openErr: transient("503 on open")},
		{chunks: []string{"Hello", " world"}},
	}}
	sink := &recordingSink{}

	s := newTestGenerator(&fakeSource{}, model, store).Run(context.Background(), Options{}, sink)

	if s.State != StateComplete {
		t.Fatalf("State = %v (%v: %v), want complete", s.State, s.Reason, s.Err)
	}
	if s.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", s.Attempts)
	}
	if got := s.Document(); got != "Hello world" {
		t.Errorf("Document() = %q, want %q", got, "Hello world")
	}

	wantEvents := []string{"chunk:Hel", "reset", "chunk:Hello", "chunk: world"}
	if got := sink.Events(); !reflect.DeepEqual(got, wantEvents) {
		t.Errorf("sink events = %v, want %v", got, wantEvents)
	}

	if store.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", store.Len())
	}
	cached, ok := store.Get(context.Background(), DefaultCacheKey)
	if !ok || string(cached) != "Hello world" {
		t.Errorf("cached = %q, %v", cached, ok)
	}
}

func TestGenerator_BusyAfterExhaustingAttempts(t *testing.T) {
	store := cache.NewMemoryCache()
	model := &fakeModel{scripts: []script{
		{openErr: transient("1")},
		{chunks: []string{"partial"}, err: transient("2")},
		{openErr: transient("3")},
	}}

	s := newTestGenerator(&fakeSource{}, model, store).Run(context.Background(), Options{}, &recordingSink{})

	if s.State != StateFailed || s.Reason != ReasonBusy {
		t.Fatalf("State/Reason = %v/%v, want failed/busy", s.State, s.Reason)
	}
	if !errors.Is(s.Err, resilience.ErrMaxRetriesExceeded) {
		t.Errorf("Err = %v, want ErrMaxRetriesExceeded", s.Err)
	}
	if s.Notice() != BusyNotice {
		t.Errorf("Notice() = %q", s.Notice())
	}
	if s.Document() != "" {
		t.Errorf("Document() = %q, want empty", s.Document())
	}
	if store.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", store.Len())
	}
	if model.attempts() != 3 {
		t.Errorf("model attempts = %d, want 3", model.attempts())
	}
}

func TestGenerator_NonTransientFailsImmediately(t *testing.T) {
	store := cache.NewMemoryCache()
	model := &fakeModel{scripts: []script{
		{openErr: errors.New("invalid api key")},
		{chunks: []string{"never"}},
	}}

	s := newTestGenerator(&fakeSource{}, model, store).Run(context.Background(), Options{}, &recordingSink{})

	if s.State != StateFailed || s.Reason != ReasonProvider {
		t.Fatalf("State/Reason = %v/%v, want failed/provider", s.State, s.Reason)
	}
	if model.attempts() != 1 {
		t.Errorf("model attempts = %d, want 1", model.attempts())
	}
	if store.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", store.Len())
	}
}

func TestGenerator_GatheringFailure(t *testing.T) {
	store := cache.NewMemoryCache()
	model := &fakeModel{scripts: []script{{chunks: []string{"x"}}}}
	src := &fakeSource{forecastErr: map[int]error{LongHorizonSteps: errors.New("forecast down")}}
	sink := &recordingSink{}

	s := newTestGenerator(src, model, store).Run(context.Background(), Options{}, sink)

	if s.State != StateFailed || s.Reason != ReasonGathering {
		t.Fatalf("State/Reason = %v/%v, want failed/gathering", s.State, s.Reason)
	}
	if !strings.Contains(s.Notice(), "long-term forecast") {
		t.Errorf("Notice() = %q", s.Notice())
	}
	if model.attempts() != 0 {
		t.Errorf("model called %d times", model.attempts())
	}
	if len(sink.Events()) != 0 {
		t.Errorf("sink events = %v, want none", sink.Events())
	}
	if store.Len() != 0 {
		t.Errorf("cache entries = %d", store.Len())
	}
}

func TestGenerator_PromptCarriesGatheredData(t *testing.T) {
	model := &fakeModel{scripts: []script{{chunks: []string{"ok"}}}}
	params := DefaultParams()
	params.Temperature = 0.7

	s := newTestGenerator(&fakeSource{}, model, nil).Run(context.Background(), Options{Params: params}, &recordingSink{})
	if s.State != StateComplete {
		t.Fatalf("State = %v", s.State)
	}

	p := model.prompts[0]
	for _, want := range []string{"METRICS: {\"rmse\"", `SHORT-TERM FORECAST: {"steps":12}`, `LONG-TERM FORECAST: {"steps":48}`} {
		if !strings.Contains(p.Content, want) {
			t.Errorf("prompt missing %q:\n%s", want, p.Content)
		}
	}
	if p.Temperature != 0.7 || p.MaxTokens != 2500 {
		t.Errorf("prompt params = %+v", p.Params)
	}
}

func TestGenerator_CacheShortCircuitAndRefresh(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache()
	if err := store.Set(ctx, DefaultCacheKey, []byte("cached report"), time.Hour); err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{}
	model := &fakeModel{scripts: []script{{chunks: []string{"fresh ", "report"}}}}
	g := newTestGenerator(src, model, store)

	sink := &recordingSink{}
	s := g.Run(ctx, Options{}, sink)
	if !s.FromCache || s.Document() != "cached report" {
		t.Fatalf("warm run = %+v", s)
	}
	if src.calls.Load() != 0 || model.attempts() != 0 {
		t.Fatalf("warm run reached providers: source=%d model=%d", src.calls.Load(), model.attempts())
	}
	if got := sink.Events(); !reflect.DeepEqual(got, []string{"chunk:cached report"}) {
		t.Errorf("warm sink events = %v", got)
	}

	s = g.Run(ctx, Options{Refresh: true}, &recordingSink{})
	if s.FromCache || s.State != StateComplete {
		t.Fatalf("refresh run = %+v", s)
	}
	if src.calls.Load() != 3 {
		t.Errorf("source calls = %d, want 3", src.calls.Load())
	}
	cached, _ := store.Get(ctx, DefaultCacheKey)
	if string(cached) != "fresh report" {
		t.Errorf("cached = %q, want refreshed document", cached)
	}
}

func TestGenerator_EmptyDocumentNotCached(t *testing.T) {
	store := cache.NewMemoryCache()
	model := &fakeModel{scripts: []script{{}}}

	s := newTestGenerator(&fakeSource{}, model, store).Run(context.Background(), Options{}, &recordingSink{})
	if s.State != StateComplete {
		t.Fatalf("State = %v", s.State)
	}
	if store.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", store.Len())
	}
}

func TestGenerator_CallerDisconnectAborts(t *testing.T) {
	store := cache.NewMemoryCache()
	model := &fakeModel{scripts: []script{{chunks: []string{"first part"}, block: true}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{onChunk: cancel}

	s := newTestGenerator(&fakeSource{}, model, store).Run(ctx, Options{}, sink)

	if s.State != StateFailed || s.Reason != ReasonCancelled {
		t.Fatalf("State/Reason = %v/%v, want failed/cancelled", s.State, s.Reason)
	}
	if store.Len() != 0 {
		t.Errorf("partial document cached")
	}
}

func TestGenerator_InvalidParams(t *testing.T) {
	model := &fakeModel{}
	params := DefaultParams()
	params.TopP = 0

	s := newTestGenerator(&fakeSource{}, model, nil).Run(context.Background(), Options{Params: params}, &recordingSink{})
	if s.State != StateFailed || !errors.Is(s.Err, ErrInvalidParams) {
		t.Fatalf("session = %+v", s)
	}
	if model.attempts() != 0 {
		t.Errorf("model called")
	}
}

type unwritableCache struct{ cache.Cache }

func (unwritableCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis: connection refused")
}

func TestGenerator_CacheWriteFailureLogged(t *testing.T) {
	var logs bytes.Buffer
	model := &fakeModel{scripts: []script{{chunks: []string{"Hello"}}}}
	g := NewGenerator(&fakeSource{}, model, unwritableCache{cache.NewMemoryCache()}, Config{
		BaseDelay: time.Millisecond,
		Logger:    observe.NewLoggerWithWriter("info", &logs),
	})

	s := g.Run(context.Background(), Options{}, &recordingSink{})

	if s.State != StateComplete || s.Document() != "Hello" {
		t.Fatalf("session = %v %q (%v), want complete", s.State, s.Document(), s.Err)
	}
	out := logs.String()
	for _, want := range []string{"report cache write failed", "connection refused", DefaultCacheKey} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}
