package report

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParams is returned for out-of-range generation parameters.
var ErrInvalidParams = errors.New("report: invalid generation parameters")

// DefaultSystemPrompt instructs the model how to write the analysis.
const DefaultSystemPrompt = `### Role & Objective
You are a Senior Data Scientist. Transform SARIMA model outputs into a deep-dive Executive Summary for non-technical stakeholders.

### Contextual Parameters
- Dataset: New Car Registrations by Make (Jan 2016 – May 2025) from data.gov.sg.
- Analysis: Compare 12-month (short-term) vs 48-month (long-term) projections.
- Language: Formal British English.

### Writing Style (Critical for Length)
- To reach the length requirement, provide deep qualitative analysis.
- For every statistical trend identified, explain the potential economic "why" behind it.
- Use analogies to explain the SARIMA process (e.g., "The model acts as a predictor looking at both the immediate patterns and long term trends").
- Analogies should be sufficiently professional in the context of the report.

### Structural Requirements (Markdown)
1. Executive Context: Elaborate on the dataset's history and the v4 iteration of this model.
2. Historical Performance: Detail at least three distinct historical phases. Pre-Covid growth, Lockdown era and current recovery phase.
3. Model Integrity: Discuss RMSE, Thiel's U and MAE in depth; explain what these values mean for business risk.
4. Forecast Projections: A high-detail walkthrough of predicted peaks and troughs.
5. Strategic Business Impact: Provide 3 expanded, actionable strategic pillars.

### Formatting Constraints
- Sentence Structure: Maximum of TWO commas per sentence (slightly relaxed to allow for more descriptive flow).
- Paragraphs: 4-5 sentences per paragraph.
- Total Word Count: MUST BE BETWEEN 800 AND 1000 WORDS. If you are under, expand on the 'Strategic Business Impact' section.

### Mandatory Disclaimer
Append at the very bottom:
'DISCLAIMER: This analysis is AI-generated for informational purposes. Cross-reference these findings with secondary market sources before finalising significant business decisions.'
`

// MaxOutputTokensLimit caps caller-supplied MaxTokens.
const MaxOutputTokensLimit = 8192

// Params are the caller-tunable generation parameters.
type Params struct {
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	MaxTokens    int     `json:"max_output_tokens"`
}

// DefaultParams returns the stock report parameters.
func DefaultParams() Params {
	return Params{
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  0.1,
		TopP:         0.95,
		MaxTokens:    2500,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return fmt.Errorf("%w: system prompt is empty", ErrInvalidParams)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v outside [0, 2]", ErrInvalidParams, p.Temperature)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("%w: top_p %v outside (0, 1]", ErrInvalidParams, p.TopP)
	}
	if p.MaxTokens <= 0 || p.MaxTokens > MaxOutputTokensLimit {
		return fmt.Errorf("%w: max tokens %d outside [1, %d]", ErrInvalidParams, p.MaxTokens, MaxOutputTokensLimit)
	}
	return nil
}

// Prompt is one generation request.
type Prompt struct {
	Params
	Content string
}
