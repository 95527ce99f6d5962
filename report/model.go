package report

import (
	"context"
	"errors"
	"sync"

	"github.com/jonwraymond/infergate/inference"
)

var (
	// ErrTransient marks a model failure worth retrying (overload, rate limit).
	ErrTransient = errors.New("report: transient model failure")

	// ErrNoModel is returned when no generative model is configured.
	ErrNoModel = errors.New("report: no generative model configured")
)

// ChunkReader yields the text fragments of one streamed answer. Recv returns
// io.EOF after the last fragment.
type ChunkReader interface {
	Recv() (string, error)
	Close() error
}

// Streamer starts a streamed generation.
type Streamer interface {
	Stream(ctx context.Context, p Prompt) (ChunkReader, error)
}

// Completer runs a short, non-streamed generation.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Model is a generative provider offering both call shapes.
type Model interface {
	Streamer
	Completer
}

// IsTransient reports whether err is a retryable provider overload.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || inference.IsTransient(err)
}

// Lazy owns the process-wide model handle. The factory runs once, on first
// use; concurrent first callers share its result, including a failure.
type Lazy struct {
	once    sync.Once
	factory func() (Model, error)
	model   Model
	err     error
}

// NewLazy creates a Lazy around factory.
func NewLazy(factory func() (Model, error)) *Lazy {
	return &Lazy{factory: factory}
}

// Get returns the model, building it on first call.
func (l *Lazy) Get() (Model, error) {
	l.once.Do(func() {
		if l.factory == nil {
			l.err = ErrNoModel
			return
		}
		l.model, l.err = l.factory()
		if l.err == nil && l.model == nil {
			l.err = ErrNoModel
		}
	})
	return l.model, l.err
}

// Stream implements Streamer.
func (l *Lazy) Stream(ctx context.Context, p Prompt) (ChunkReader, error) {
	m, err := l.Get()
	if err != nil {
		return nil, err
	}
	return m.Stream(ctx, p)
}

// Complete implements Completer.
func (l *Lazy) Complete(ctx context.Context, p Prompt) (string, error) {
	m, err := l.Get()
	if err != nil {
		return "", err
	}
	return m.Complete(ctx, p)
}

var _ Model = (*Lazy)(nil)
