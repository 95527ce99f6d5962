package gateway

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/jonwraymond/infergate/cache"
	"github.com/jonwraymond/infergate/inference"
)

// formFile reads the named multipart file part.
func (s *Server) formFile(r *http.Request, field string) (inference.Part, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return inference.Part{}, mismatch("", "request body too large")
			}
			if errors.Is(err, http.ErrNotMultipart) {
				return inference.Part{}, unsupported("", "expected multipart/form-data")
			}
			return inference.Part{}, mismatch("", "malformed multipart body")
		}
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return inference.Part{}, missing(field)
	}
	if err != nil {
		return inference.Part{}, mismatch(field, err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return inference.Part{}, mismatch(field, err.Error())
	}
	if len(data) == 0 {
		return inference.Part{}, missing(field)
	}
	return inference.Part{
		Field:       field,
		FileName:    hdr.Filename,
		ContentType: partContentType(hdr),
		Data:        data,
	}, nil
}

func partContentType(hdr *multipart.FileHeader) string {
	if ct := hdr.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func fingerprint(part inference.Part) (string, error) {
	fp, err := cache.ImageFingerprint(part.Data)
	if err != nil {
		return "", unsupported(part.Field, "not a decodable image")
	}
	return fp, nil
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Images == nil {
		return errNotConfigured
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	image, err := s.formFile(r, "file")
	if err != nil {
		return err
	}
	key, err := cache.ContentKey(nsPredict, image.Data)
	if err != nil {
		return unsupported(image.Field, "not a decodable image")
	}

	body, hit, err := s.memo.Do(r.Context(), key, imageTTL, func(ctx context.Context) ([]byte, error) {
		return s.deps.Images.Classify(ctx, image)
	})
	if err != nil {
		return err
	}
	setCacheHeader(w, hit)
	writeRawJSON(w, http.StatusOK, body)
	return nil
}

func (s *Server) inpaint(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Images == nil {
		return errNotConfigured
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	image, err := s.formFile(r, "image")
	if err != nil {
		return err
	}
	mask, err := s.formFile(r, "mask")
	if err != nil {
		return err
	}
	imageFP, err := fingerprint(image)
	if err != nil {
		return err
	}
	maskFP, err := fingerprint(mask)
	if err != nil {
		return err
	}

	key := cache.CompoundKey(nsInpaint, imageFP, maskFP)
	body, hit, err := s.memo.Do(r.Context(), key, imageTTL, func(ctx context.Context) ([]byte, error) {
		return s.deps.Images.Inpaint(ctx, image, mask)
	})
	if err != nil {
		return err
	}
	setCacheHeader(w, hit)
	writeRawJSON(w, http.StatusOK, body)
	return nil
}

// imageHealth relays the provider's own health answer.
func (s *Server) imageHealth(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Images == nil {
		return errNotConfigured
	}
	resp, err := s.deps.Images.Health(r.Context())
	if err == nil {
		writeRawJSON(w, resp.Status, resp.Body)
		return nil
	}
	var upErr *inference.UpstreamError
	if errors.As(err, &upErr) && upErr.Status != 0 {
		writeRawJSON(w, upErr.Status, upErr.Body)
		return nil
	}
	if isClientGone(r, err) {
		return err
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "offline", "error": err.Error()})
	return nil
}
