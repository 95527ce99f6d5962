package inference

import (
	"context"
	"net/http"
)

// RenderClient calls the document renderer, which turns HTML into PDF.
type RenderClient struct {
	proxy *Proxy
}

// NewRenderClient wraps p.
func NewRenderClient(p *Proxy) *RenderClient {
	return &RenderClient{proxy: p}
}

// Render posts html to /render and returns the PDF bytes.
func (c *RenderClient) Render(ctx context.Context, html []byte) ([]byte, error) {
	return c.proxy.Forward(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/render",
		Payload:     html,
		ContentType: "text/html; charset=utf-8",
		Class:       ClassRender,
	})
}
