package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonwraymond/infergate/cache"
	"github.com/jonwraymond/infergate/render"
	"github.com/jonwraymond/infergate/reorder"
)

type pdfRequest struct {
	Markdown string `json:"markdown"`
}

func (s *Server) generatePDF(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Renderer == nil {
		return errNotConfigured
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	var req pdfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return mismatch("", "request body must be a JSON object")
	}
	if strings.TrimSpace(req.Markdown) == "" {
		return missing("markdown")
	}

	key := cache.DigestKey(nsPDF, []byte(req.Markdown))
	doc, hit, err := s.memo.Do(r.Context(), key, pdfTTL, func(ctx context.Context) ([]byte, error) {
		return s.deps.Renderer.PDF(ctx, req.Markdown)
	})
	if errors.Is(err, render.ErrEmptyMarkdown) {
		return missing("markdown")
	}
	if err != nil {
		return err
	}

	setCacheHeader(w, hit)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", render.DownloadName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
	return nil
}

func (s *Server) predictReorder(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Reorder == nil {
		return errNotConfigured
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	upload, err := s.formFile(r, "file")
	if err != nil {
		return err
	}
	if err := reorder.CheckFilename(upload.FileName); err != nil {
		return unsupported("file", err.Error())
	}

	key := cache.DigestKey(nsReorder, upload.Data)
	body, hit, err := s.memo.Do(r.Context(), key, reorderTTL, func(ctx context.Context) ([]byte, error) {
		advice, err := s.deps.Reorder.Advise(ctx, upload.Data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(advice)
	})
	if err != nil {
		return reorderError(err)
	}
	setCacheHeader(w, hit)
	writeRawJSON(w, http.StatusOK, body)
	return nil
}

func reorderError(err error) error {
	var schemaErr *reorder.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return mismatch("file", schemaErr.Error())
	case errors.Is(err, reorder.ErrEmpty), errors.Is(err, reorder.ErrMalformed):
		return mismatch("file", err.Error())
	default:
		return err
	}
}
