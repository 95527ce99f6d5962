package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when OpenAIConfig.Model is empty.
const DefaultModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAI-compatible chat completions provider.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API root, e.g. a self-hosted compatible server.
	BaseURL string
	Model   string
}

// OpenAIModel talks to an OpenAI-compatible chat completions API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates a model client. It performs no network call.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is empty", ErrNoModel)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

func (m *OpenAIModel) request(p Prompt, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.Content,
	})
	// The client drops a zero temperature (omitempty), which the provider
	// then reads as its default of 1.
	temperature := float32(p.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	return openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: temperature,
		TopP:        float32(p.TopP),
		MaxTokens:   p.MaxTokens,
		Stream:      stream,
	}
}

// Stream implements Streamer.
func (m *OpenAIModel) Stream(ctx context.Context, p Prompt) (ChunkReader, error) {
	stream, err := m.client.CreateChatCompletionStream(ctx, m.request(p, true))
	if err != nil {
		return nil, classify(err)
	}
	return &openAIStream{stream: stream}, nil
}

// Complete implements Completer.
func (m *OpenAIModel) Complete(ctx context.Context, p Prompt) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, m.request(p, false))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("report: model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next non-empty fragment.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", classify(err)
		}
		var b strings.Builder
		for _, choice := range resp.Choices {
			b.WriteString(choice.Delta.Content)
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

// classify marks overload answers as transient.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("report: model: %w", err)
}

var _ Model = (*OpenAIModel)(nil)
