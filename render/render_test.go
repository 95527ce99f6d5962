package render

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type captureRenderer struct {
	got []byte
	err error
}

func (c *captureRenderer) Render(_ context.Context, html []byte) ([]byte, error) {
	c.got = html
	if c.err != nil {
		return nil, c.err
	}
	return []byte("%PDF-1.7"), nil
}

func TestHTML(t *testing.T) {
	src := "# Executive Context\n\n| Metric | Value |\n|---|---|\n| RMSE | 1.2 |\n\n~~draft~~\n\n<script>alert(1)</script>\n"

	page, err := HTML(src)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	out := string(page)

	for _, want := range []string{
		"<h1>Executive Context</h1>",
		"<table>",
		"<td>RMSE</td>",
		"<del>draft</del>",
		"border-collapse: collapse",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML() missing %q", want)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("raw HTML passed through")
	}
}

func TestHTML_Empty(t *testing.T) {
	for _, src := range []string{"", "   \n"} {
		if _, err := HTML(src); !errors.Is(err, ErrEmptyMarkdown) {
			t.Errorf("HTML(%q) error = %v, want ErrEmptyMarkdown", src, err)
		}
	}
}

func TestService_PDF(t *testing.T) {
	r := &captureRenderer{}
	pdf, err := NewService(r).PDF(context.Background(), "## Forecast")
	if err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
	if string(pdf) != "%PDF-1.7" {
		t.Errorf("PDF() = %q", pdf)
	}
	if !strings.Contains(string(r.got), "<h2>Forecast</h2>") {
		t.Errorf("renderer got %q", r.got)
	}

	r = &captureRenderer{err: errors.New("renderer down")}
	if _, err := NewService(r).PDF(context.Background(), "x"); err == nil {
		t.Error("expected renderer error")
	}
	if _, err := NewService(r).PDF(context.Background(), ""); !errors.Is(err, ErrEmptyMarkdown) {
		t.Errorf("PDF(empty) error = %v", err)
	}
}
