package report

import (
	"context"
	"strings"
	"time"

	"github.com/jonwraymond/infergate/resilience"
)

// ExplanationKind distinguishes model output from the stock fallback text.
type ExplanationKind int

const (
	Generated ExplanationKind = iota
	Fallback
)

// String returns the kind name.
func (k ExplanationKind) String() string {
	if k == Generated {
		return "generated"
	}
	return "fallback"
}

// Explanation is a short piece of model-written text, or the fallback used
// when the model could not answer.
type Explanation struct {
	Kind ExplanationKind
	Text string
}

// ExplainerConfig configures an Explainer.
type ExplainerConfig struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	// Timeout bounds each completion. Zero means no extra bound.
	Timeout time.Duration
	// FallbackText is returned whenever generation fails.
	FallbackText string
}

// Explainer produces short explanations.
type Explainer struct {
	model Completer
	cfg   ExplainerConfig
}

// NewExplainer creates an Explainer over model.
func NewExplainer(model Completer, cfg ExplainerConfig) *Explainer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100
	}
	return &Explainer{model: model, cfg: cfg}
}

// Explain asks the model about content. Any failure, including an empty
// answer, yields the Fallback branch.
func (e *Explainer) Explain(ctx context.Context, content string) Explanation {
	if e == nil {
		return Explanation{Kind: Fallback}
	}
	fallback := Explanation{Kind: Fallback, Text: e.cfg.FallbackText}
	if e.model == nil {
		return fallback
	}

	prompt := Prompt{
		Params: Params{
			SystemPrompt: e.cfg.SystemPrompt,
			Temperature:  e.cfg.Temperature,
			TopP:         1,
			MaxTokens:    e.cfg.MaxTokens,
		},
		Content: content,
	}
	text, err := resilience.Do(ctx, e.cfg.Timeout, func(ctx context.Context) (string, error) {
		return e.model.Complete(ctx, prompt)
	})
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		return fallback
	}
	return Explanation{Kind: Generated, Text: text}
}
