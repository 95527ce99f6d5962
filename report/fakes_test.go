package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

type fakeSource struct {
	metricsErr  error
	forecastErr map[int]error
	calls       atomic.Int32
}

func (f *fakeSource) Metrics(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	if f.metricsErr != nil {
		return nil, f.metricsErr
	}
	return []byte(`{"rmse":1.2,"mae":0.8,"theils_u":0.4}`), nil
}

func (f *fakeSource) Forecast(ctx context.Context, steps int) ([]byte, error) {
	f.calls.Add(1)
	if err := f.forecastErr[steps]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(`{"steps":%d}`, steps)), nil
}

// script is one attempt: chunks are yielded in order, then err (io.EOF when
// nil). openErr fails the attempt before any chunk.
type script struct {
	openErr error
	chunks  []string
	err     error
	// block makes Recv wait for cancellation after the chunks.
	block bool
}

type fakeModel struct {
	mu       sync.Mutex
	scripts  []script
	prompts  []Prompt
	complete func(Prompt) (string, error)
}

func (m *fakeModel) Stream(ctx context.Context, p Prompt) (ChunkReader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.prompts)
	m.prompts = append(m.prompts, p)
	if n >= len(m.scripts) {
		return nil, errors.New("fake: no script for attempt")
	}
	sc := m.scripts[n]
	if sc.openErr != nil {
		return nil, sc.openErr
	}
	return &fakeReader{ctx: ctx, sc: sc}, nil
}

func (m *fakeModel) Complete(ctx context.Context, p Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	m.mu.Unlock()
	if m.complete == nil {
		return "", errors.New("fake: no completion")
	}
	return m.complete(p)
}

func (m *fakeModel) attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type fakeReader struct {
	ctx context.Context
	sc  script
	pos int
}

func (r *fakeReader) Recv() (string, error) {
	if r.pos < len(r.sc.chunks) {
		r.pos++
		return r.sc.chunks[r.pos-1], nil
	}
	if r.sc.block {
		<-r.ctx.Done()
		return "", r.ctx.Err()
	}
	if r.sc.err != nil {
		return "", r.sc.err
	}
	return "", io.EOF
}

func (r *fakeReader) Close() error { return nil }

type recordingSink struct {
	mu      sync.Mutex
	events  []string
	onChunk func()
}

func (s *recordingSink) Chunk(text string) error {
	s.mu.Lock()
	s.events = append(s.events, "chunk:"+text)
	fn := s.onChunk
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (s *recordingSink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "reset")
	return nil
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func transient(msg string) error {
	return fmt.Errorf("%w: %s", ErrTransient, msg)
}
