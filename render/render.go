// Package render converts report markdown into a printable PDF by way of a
// styled HTML page and the external renderer.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DownloadName is the attachment name of generated documents.
const DownloadName = "Forecast_Analysis.pdf"

// ErrEmptyMarkdown is returned when there is nothing to render.
var ErrEmptyMarkdown = errors.New("render: no content to generate PDF")

const pageStyle = `@page { margin: 2cm; }
body { font-family: "Liberation Sans", Arial, sans-serif; line-height: 1.6; color: #000; }
h1 { color: #000; border-bottom: 2px solid #000; padding-bottom: 10px; }
h2 { color: #333; margin-top: 1.5em; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th, td { border: 1px solid #dee2e6; padding: 12px; text-align: left; }
th { background-color: #f8f9fa; }`

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func converter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
				extension.Footnote,
			),
		)
	})
	return markdown
}

// HTML renders source as a complete, styled HTML page. Raw HTML in source is
// not passed through.
func HTML(source string) ([]byte, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyMarkdown
	}
	var body bytes.Buffer
	if err := converter().Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("render: markdown: %w", err)
	}

	var page bytes.Buffer
	page.Grow(body.Len() + len(pageStyle) + 128)
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<style>\n")
	page.WriteString(pageStyle)
	page.WriteString("\n</style>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Renderer turns an HTML page into a PDF.
type Renderer interface {
	Render(ctx context.Context, html []byte) ([]byte, error)
}

// Service produces PDFs from markdown.
type Service struct {
	renderer Renderer
}

// NewService creates a Service over renderer.
func NewService(renderer Renderer) *Service {
	return &Service{renderer: renderer}
}

// PDF renders source to a PDF document.
func (s *Service) PDF(ctx context.Context, source string) ([]byte, error) {
	page, err := HTML(source)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(ctx, page)
}
