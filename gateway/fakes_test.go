package gateway

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/infergate/auth"
	"github.com/jonwraymond/infergate/cache"
	"github.com/jonwraymond/infergate/inference"
	"github.com/jonwraymond/infergate/reorder"
	"github.com/jonwraymond/infergate/report"
	"github.com/jonwraymond/infergate/users"
)

var testSecret = []byte("gateway-test-secret")

type fakeImages struct {
	calls   atomic.Int32
	body    []byte
	err     error
	health  *inference.Response
	lastImg inference.Part
}

func (f *fakeImages) Classify(_ context.Context, image inference.Part) ([]byte, error) {
	f.calls.Add(1)
	f.lastImg = image
	return f.body, f.err
}

func (f *fakeImages) Inpaint(_ context.Context, image, _ inference.Part) ([]byte, error) {
	f.calls.Add(1)
	f.lastImg = image
	return f.body, f.err
}

func (f *fakeImages) Health(context.Context) (*inference.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.health, nil
}

type fakeForecast struct {
	calls     atomic.Int32
	lastSteps int
	ready     bool
	err       error
}

func (f *fakeForecast) Forecast(_ context.Context, steps int) ([]byte, error) {
	f.calls.Add(1)
	f.lastSteps = steps
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"forecast":[1,2,3]}`), nil
}

func (f *fakeForecast) History(context.Context) ([]byte, error) {
	f.calls.Add(1)
	return []byte(`{"history":[]}`), f.err
}

func (f *fakeForecast) Metrics(context.Context) ([]byte, error) {
	f.calls.Add(1)
	return []byte(`{"mae":1.5}`), f.err
}

func (f *fakeForecast) Ready(context.Context) bool { return f.ready }

type fakeReports struct {
	cached  string
	chunks  []string
	session *report.Session
	runs    int
	opts    report.Options
}

func (f *fakeReports) Cached(context.Context) (string, bool) {
	return f.cached, f.cached != ""
}

func (f *fakeReports) Run(_ context.Context, opts report.Options, sink report.Sink) *report.Session {
	f.runs++
	f.opts = opts
	for _, c := range f.chunks {
		_ = sink.Chunk(c)
	}
	return f.session
}

type fakeRenderer struct {
	calls atomic.Int32
}

func (f *fakeRenderer) PDF(_ context.Context, markdown string) ([]byte, error) {
	f.calls.Add(1)
	return []byte("%PDF-1.7 " + markdown), nil
}

type fakeAdvisor struct {
	calls atomic.Int32
	err   error
}

func (f *fakeAdvisor) Advise(context.Context, []byte) ([]reorder.Advice, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []reorder.Advice{{PartNo: "A-1", PartName: "Widget", Stock: 2, ReorderQty: 18, Prediction: 1}}, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]users.User
	calls int
}

func newFakeUsers(names ...string) *fakeUsers {
	f := &fakeUsers{users: map[string]users.User{}}
	for _, n := range names {
		f.users[n] = users.User{Username: n}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u users.User) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := f.users[u.Username]; ok {
		return users.User{}, users.ErrExists
	}
	f.users[u.Username] = u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, username string, upd users.Update) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	u, ok := f.users[username]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	f.users[username] = u
	return u, nil
}

func (f *fakeUsers) Delete(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := f.users[username]; !ok {
		return users.ErrNotFound
	}
	delete(f.users, username)
	return nil
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Authenticator == nil {
		deps.Authenticator = auth.NewJWTAuthenticator(auth.JWTConfig{}, auth.NewStaticKeyProvider(testSecret))
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache()
	}
	s, err := New(deps, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func userToken(t *testing.T, name string) string {
	t.Helper()
	tok, err := auth.IssueUserToken(testSecret, name, time.Minute)
	if err != nil {
		t.Fatalf("IssueUserToken() error = %v", err)
	}
	return "Bearer " + tok
}

func serviceToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.IssueServiceToken(testSecret, time.Minute)
	if err != nil {
		t.Fatalf("IssueServiceToken() error = %v", err)
	}
	return "Bearer " + tok
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type filePart struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target, token string, parts ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}
