package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/infergate/cache"
	"github.com/jonwraymond/infergate/observe"
	"github.com/jonwraymond/infergate/resilience"
)

// Defaults for Config.
const (
	DefaultCacheKey    = "report:/ts-model/report-stream"
	DefaultTTL         = 24 * time.Hour
	DefaultAttempts    = 3
	DefaultBaseDelay   = time.Second
	ShortHorizonSteps  = 12
	LongHorizonSteps   = 48
	chunkChannelBuffer = 16
)

// ErrNoData is returned when a data source returns an empty body.
var ErrNoData = errors.New("report: data source returned no data")

// Source supplies the forecast data the report is written from.
type Source interface {
	Metrics(ctx context.Context) ([]byte, error)
	Forecast(ctx context.Context, steps int) ([]byte, error)
}

// Sink receives live output. Reset tells the caller to discard fragments
// already relayed from an abandoned attempt.
type Sink interface {
	Chunk(text string) error
	Reset() error
}

// Config configures a Generator.
type Config struct {
	// CacheKey is the fixed key the finished document is stored under.
	CacheKey string
	TTL      time.Duration

	// Attempts bounds the number of streaming attempts.
	Attempts int
	// BaseDelay is the first backoff; each later one doubles it.
	BaseDelay time.Duration

	Logger observe.Logger
}

// Options are per-session inputs.
type Options struct {
	// Refresh skips the cached document.
	Refresh bool
	Params  Params
}

// Session is the outcome of one Run.
type Session struct {
	State    State
	Reason   Reason
	Attempts int
	// FromCache is set when the document was served from the cache.
	FromCache bool
	Err       error

	chunks  []string
	relayed bool
}

// Document returns the concatenated output of the successful attempt.
func (s *Session) Document() string {
	return strings.Join(s.chunks, "")
}

// Notice returns the terminal message for a failed session.
func (s *Session) Notice() string {
	if s.State != StateFailed {
		return ""
	}
	if s.Reason == ReasonGathering {
		return fmt.Sprintf("Error gathering data: %v", s.Err)
	}
	return BusyNotice
}

// Generator runs report sessions.
type Generator struct {
	source Source
	model  Streamer
	cache  cache.Cache
	cfg    Config
	logger observe.Logger
}

// NewGenerator creates a Generator. c may be nil, which disables caching.
func NewGenerator(source Source, model Streamer, c cache.Cache, cfg Config) *Generator {
	if cfg.CacheKey == "" {
		cfg.CacheKey = DefaultCacheKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Generator{source: source, model: model, cache: c, cfg: cfg, logger: logger}
}

// CacheKey returns the key finished documents are stored under.
func (g *Generator) CacheKey() string {
	return g.cfg.CacheKey
}

// Cached returns the stored document, if any.
func (g *Generator) Cached(ctx context.Context) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	doc, ok := g.cache.Get(ctx, g.cfg.CacheKey)
	if !ok || len(doc) == 0 {
		return "", false
	}
	return string(doc), true
}

// Run executes one session, relaying output to sink as it arrives.
func (g *Generator) Run(ctx context.Context, opts Options, sink Sink) *Session {
	s := &Session{State: StateGathering}

	if !opts.Refresh {
		if doc, ok := g.Cached(ctx); ok {
			s.chunks = []string{doc}
			s.FromCache = true
			s.State = StateComplete
			if err := sink.Chunk(doc); err != nil {
				return g.fail(ctx, s, ReasonCancelled, err)
			}
			return s
		}
	}

	params := opts.Params
	if params == (Params{}) {
		params = DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return g.fail(ctx, s, ReasonProvider, err)
	}

	content, err := g.gather(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return g.fail(ctx, s, ReasonCancelled, ctx.Err())
		}
		return g.fail(ctx, s, ReasonGathering, err)
	}

	s.State = StateStreaming
	prompt := Prompt{Params: params, Content: content}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: g.cfg.Attempts,
		BaseDelay:   g.cfg.BaseDelay,
		MaxDelay:    g.cfg.BaseDelay << g.cfg.Attempts,
		Multiplier:  2,
		RetryIf:     IsTransient,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			g.logger.Warn(ctx, "report attempt failed, retrying",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
				observe.Field{Key: "error", Value: err.Error()},
			)
		},
	})

	err = retry.Execute(ctx, func(ctx context.Context) error {
		return g.attempt(ctx, s, prompt, sink)
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return g.fail(ctx, s, ReasonCancelled, ctx.Err())
	case errors.Is(err, resilience.ErrMaxRetriesExceeded):
		return g.fail(ctx, s, ReasonBusy, err)
	default:
		return g.fail(ctx, s, ReasonProvider, err)
	}

	s.State = StateComplete
	doc := s.Document()
	if doc != "" && g.cache != nil {
		if err := g.cache.Set(ctx, g.cfg.CacheKey, []byte(doc), g.cfg.TTL); err != nil {
			g.logger.Warn(ctx, "report cache write failed",
				observe.Field{Key: "key", Value: g.cfg.CacheKey},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	g.logger.Info(ctx, "report generated",
		observe.Field{Key: "attempts", Value: s.Attempts},
		observe.Field{Key: "bytes", Value: len(doc)},
	)
	return s
}

func (g *Generator) fail(ctx context.Context, s *Session, reason Reason, err error) *Session {
	s.State = StateFailed
	s.Reason = reason
	s.Err = err
	s.chunks = nil
	if reason != ReasonCancelled {
		g.logger.Error(ctx, "report generation failed",
			observe.Field{Key: "reason", Value: reason.String()},
			observe.Field{Key: "attempts", Value: s.Attempts},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return s
}

// gather fetches metrics and both forecast horizons concurrently. Any failure
// discards everything fetched.
func (g *Generator) gather(ctx context.Context) (string, error) {
	var metrics, short, long []byte

	eg, ctx := errgroup.WithContext(ctx)
	fetch := func(dst *[]byte, name string, fn func(context.Context) ([]byte, error)) {
		eg.Go(func() error {
			b, err := fn(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if len(b) == 0 {
				return fmt.Errorf("%s: %w", name, ErrNoData)
			}
			*dst = b
			return nil
		})
	}
	fetch(&metrics, "metrics", g.source.Metrics)
	fetch(&short, "short-term forecast", func(ctx context.Context) ([]byte, error) {
		return g.source.Forecast(ctx, ShortHorizonSteps)
	})
	fetch(&long, "long-term forecast", func(ctx context.Context) ([]byte, error) {
		return g.source.Forecast(ctx, LongHorizonSteps)
	})
	if err := eg.Wait(); err != nil {
		return "", err
	}

	return fmt.Sprintf("Detailed Analysis Request for the following data:\n"+
		"METRICS: %s\n"+
		"SHORT-TERM FORECAST: %s\n"+
		"LONG-TERM FORECAST: %s\n", metrics, short, long), nil
}

type fragment struct {
	text string
	err  error
}

// attempt runs one streaming attempt. The producer reads the model stream
// into a channel; this goroutine relays each fragment and records it.
func (g *Generator) attempt(ctx context.Context, s *Session, p Prompt, sink Sink) error {
	s.Attempts++
	s.chunks = s.chunks[:0]
	if s.relayed {
		if err := sink.Reset(); err != nil {
			return err
		}
		s.relayed = false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader, err := g.model.Stream(ctx, p)
	if err != nil {
		return err
	}

	ch := make(chan fragment, chunkChannelBuffer)
	go func() {
		defer close(ch)
		defer reader.Close()
		for {
			text, err := reader.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case ch <- fragment{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-ch:
			if !ok {
				return nil
			}
			if f.err != nil {
				return f.err
			}
			if f.text == "" {
				continue
			}
			s.chunks = append(s.chunks, f.text)
			s.relayed = true
			if err := sink.Chunk(f.text); err != nil {
				return fmt.Errorf("report: relay: %w", err)
			}
		}
	}
}
