package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIModel_TemperatureSent(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		min, max    float64
	}{
		{name: "zero stays deterministic", temperature: 0, min: 0, max: 1e-6},
		{name: "explicit", temperature: 0.7, min: 0.69, max: 0.71},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				if err := json.Unmarshal(body, &sent); err != nil {
					t.Errorf("request body: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
			}))
			defer srv.Close()

			m, err := NewOpenAIModel(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("NewOpenAIModel() error = %v", err)
			}
			p := Prompt{Params: DefaultParams(), Content: "why"}
			p.Temperature = tt.temperature

			got, err := m.Complete(context.Background(), p)
			if err != nil || got != "ok" {
				t.Fatalf("Complete() = %q, %v", got, err)
			}

			raw, ok := sent["temperature"]
			if !ok {
				t.Fatalf("request omitted temperature: %v", sent)
			}
			temp, _ := raw.(float64)
			if temp <= tt.min || temp > tt.max {
				t.Errorf("temperature = %v, want in (%v, %v]", temp, tt.min, tt.max)
			}
		})
	}
}
