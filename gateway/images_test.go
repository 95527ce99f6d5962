package gateway

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/infergate/inference"
)

func TestClassify_CachesByImageContent(t *testing.T) {
	images := &fakeImages{body: []byte(`{"label":"red","score":0.99}`)}
	s := newTestServer(t, Deps{Images: images})
	red := solidPNG(t, color.RGBA{R: 255, A: 255})
	token := userToken(t, "alice")

	first := serve(s, multipartRequest(t, "/obj-det/predictImage", token, filePart{"file", "red.png", red}))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, body = %s", first.Code, first.Body)
	}
	if got := first.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("first X-Cache = %q, want MISS", got)
	}

	second := serve(s, multipartRequest(t, "/obj-det/predictImage", token, filePart{"file", "copy.png", red}))
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	if got := second.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", got)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("bodies differ: %q vs %q", first.Body, second.Body)
	}
	if n := images.calls.Load(); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
}

func TestClassify_RequiresAuthentication(t *testing.T) {
	images := &fakeImages{body: []byte(`{}`)}
	s := newTestServer(t, Deps{Images: images})
	red := solidPNG(t, color.RGBA{R: 255, A: 255})

	rec := serve(s, multipartRequest(t, "/obj-det/predictImage", "", filePart{"file", "red.png", red}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
	if n := images.calls.Load(); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestClassify_RejectsInput(t *testing.T) {
	tests := []struct {
		name       string
		parts      []filePart
		wantStatus int
	}{
		{name: "not an image", parts: []filePart{{"file", "notes.txt", []byte("hello")}}, wantStatus: http.StatusUnsupportedMediaType},
		{name: "missing file", parts: []filePart{{"other", "x.png", []byte("x")}}, wantStatus: http.StatusBadRequest},
		{name: "empty file", parts: []filePart{{"file", "x.png", nil}}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &fakeImages{body: []byte(`{}`)}
			s := newTestServer(t, Deps{Images: images})
			rec := serve(s, multipartRequest(t, "/obj-det/predictImage", userToken(t, "alice"), tt.parts...))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if n := images.calls.Load(); n != 0 {
				t.Errorf("provider calls = %d, want 0", n)
			}
		})
	}
}

func TestClassify_ProviderFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unavailable", err: &inference.UpstreamError{Provider: "image", Kind: inference.KindUnavailable}, wantStatus: http.StatusServiceUnavailable},
		{name: "timeout", err: &inference.UpstreamError{Provider: "image", Kind: inference.KindTimeout}, wantStatus: http.StatusBadGateway},
		{name: "permanent", err: &inference.UpstreamError{Provider: "image", Kind: inference.KindPermanent, Status: 422}, wantStatus: http.StatusBadGateway},
		{name: "unexpected", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &fakeImages{err: tt.err}
			s := newTestServer(t, Deps{Images: images})
			red := solidPNG(t, color.RGBA{R: 255, A: 255})
			rec := serve(s, multipartRequest(t, "/obj-det/predictImage", userToken(t, "alice"), filePart{"file", "red.png", red}))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestClassify_FailureIsNotCached(t *testing.T) {
	images := &fakeImages{err: &inference.UpstreamError{Provider: "image", Kind: inference.KindUnavailable}}
	s := newTestServer(t, Deps{Images: images})
	red := solidPNG(t, color.RGBA{R: 255, A: 255})
	token := userToken(t, "alice")

	serve(s, multipartRequest(t, "/obj-det/predictImage", token, filePart{"file", "red.png", red}))
	images.err = nil
	images.body = []byte(`{"label":"red"}`)
	rec := serve(s, multipartRequest(t, "/obj-det/predictImage", token, filePart{"file", "red.png", red}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}
	if n := images.calls.Load(); n != 2 {
		t.Errorf("provider calls = %d, want 2", n)
	}
}

func TestInpaint_KeyCoversBothImages(t *testing.T) {
	images := &fakeImages{body: []byte(`{"image":"..."}`)}
	s := newTestServer(t, Deps{Images: images})
	token := userToken(t, "alice")
	red := solidPNG(t, color.RGBA{R: 255, A: 255})
	white := solidPNG(t, color.White)
	checker := checkerPNG(t)

	req := func(mask []byte) *http.Request {
		return multipartRequest(t, "/obj-det/inpaint", token,
			filePart{"image", "img.png", red}, filePart{"mask", "mask.png", mask})
	}

	if rec := serve(s, req(white)); rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: status = %d, X-Cache = %q", rec.Code, rec.Header().Get("X-Cache"))
	}
	if rec := serve(s, req(white)); rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("repeat X-Cache = %q, want HIT", rec.Header().Get("X-Cache"))
	}
	if rec := serve(s, req(checker)); rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("different mask X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}
	if n := images.calls.Load(); n != 2 {
		t.Errorf("provider calls = %d, want 2", n)
	}
}

func TestInpaint_MissingMask(t *testing.T) {
	images := &fakeImages{body: []byte(`{}`)}
	s := newTestServer(t, Deps{Images: images})
	red := solidPNG(t, color.RGBA{R: 255, A: 255})
	rec := serve(s, multipartRequest(t, "/obj-det/inpaint", userToken(t, "alice"), filePart{"image", "img.png", red}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestImageHealth(t *testing.T) {
	t.Run("relays provider answer", func(t *testing.T) {
		images := &fakeImages{health: &inference.Response{Status: http.StatusOK, Body: []byte(`{"status":"ok"}`)}}
		s := newTestServer(t, Deps{Images: images})
		rec := serve(s, getRequest("/obj-det/health", userToken(t, "alice")))
		if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
			t.Errorf("got %d %s", rec.Code, rec.Body)
		}
	})
	t.Run("offline", func(t *testing.T) {
		images := &fakeImages{err: &inference.UpstreamError{Provider: "image", Kind: inference.KindUnavailable, Err: errors.New("refused")}}
		s := newTestServer(t, Deps{Images: images})
		rec := serve(s, getRequest("/obj-det/health", userToken(t, "alice")))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

// checkerPNG is a half black, half white image whose perceptual hash
// differs from any solid image.
func checkerPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x >= 50 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func getRequest(target, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return req
}
