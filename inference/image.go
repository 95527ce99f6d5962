package inference

import (
	"context"
	"net/http"
)

// ImageClient calls the image classification and inpainting provider.
type ImageClient struct {
	proxy *Proxy
}

// NewImageClient wraps p.
func NewImageClient(p *Proxy) *ImageClient {
	return &ImageClient{proxy: p}
}

// Classify posts an image as multipart field "file" to /predictImage and
// returns the provider's JSON answer.
func (c *ImageClient) Classify(ctx context.Context, image Part) ([]byte, error) {
	image.Field = "file"
	return c.proxy.Forward(ctx, Request{
		Method: http.MethodPost,
		Path:   "/predictImage",
		Parts:  []Part{image},
		Class:  ClassClassify,
	})
}

// Inpaint posts an image and its mask to /inpaint and returns the provider's
// JSON answer.
func (c *ImageClient) Inpaint(ctx context.Context, image, mask Part) ([]byte, error) {
	image.Field = "image"
	mask.Field = "mask"
	return c.proxy.Forward(ctx, Request{
		Method: http.MethodPost,
		Path:   "/inpaint",
		Parts:  []Part{image, mask},
		Class:  ClassGenerative,
	})
}

// Health returns the provider's own health answer. A non-2xx answer is
// returned as *UpstreamError with Status and Body set.
func (c *ImageClient) Health(ctx context.Context) (*Response, error) {
	return c.proxy.Do(ctx, Request{Method: http.MethodGet, Path: "/health", Class: ClassStatus})
}

// Ping returns an error unless /health answers 2xx.
func (c *ImageClient) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}
