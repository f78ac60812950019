package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-peerchess/internal/domain"
)

type captured struct {
	Path   string
	Auth   string
	Body   map[string]string
	Status int
}

type fakeServer struct {
	mu       sync.Mutex
	statuses []int
	calls    []captured
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]string{}
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	status := http.StatusOK
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		f.statuses = f.statuses[1:]
	}
	f.calls = append(f.calls, captured{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body, Status: status})
	f.mu.Unlock()

	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"message":"ok"}`))
}

func (f *fakeServer) Calls() []captured {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]captured(nil), f.calls...)
}

func newReporter(t *testing.T, statuses ...int) (*HTTPReporter, *fakeServer) {
	t.Helper()
	fs := &fakeServer{statuses: statuses}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	r, err := NewHTTPReporter(srv.URL+"/", AuthContext{AccessToken: "tok-1", UserID: "u1"}, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewHTTPReporter: %v", err)
	}
	return r, fs
}

func TestReportWinner(t *testing.T) {
	r, fs := newReporter(t)
	if err := r.ReportResult(context.Background(), domain.GameRecord{ID: "g-1", Result: domain.ResultBlack}); err != nil {
		t.Fatalf("ReportResult: %v", err)
	}
	want := []captured{{Path: "/api/games/g-1/end", Auth: "Bearer tok-1", Body: map[string]string{"winnerColor": "black"}, Status: 200}}
	if diff := cmp.Diff(want, fs.Calls()); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestReportDraw(t *testing.T) {
	r, fs := newReporter(t)
	if err := r.ReportResult(context.Background(), domain.GameRecord{ID: "g-2", Result: domain.ResultDraw}); err != nil {
		t.Fatalf("ReportResult: %v", err)
	}
	if got := fs.Calls()[0].Body; !cmp.Equal(got, map[string]string{"result": "draw"}) {
		t.Fatalf("draw body = %v", got)
	}
}

func TestAlreadyClosedIsFinal(t *testing.T) {
	for _, status := range []int{400, 404, 409} {
		r, fs := newReporter(t, status)
		if err := r.ReportResult(context.Background(), domain.GameRecord{ID: "g", Result: domain.ResultWhite}); err != nil {
			t.Fatalf("status %d: %v", status, err)
		}
		if n := len(fs.Calls()); n != 1 {
			t.Fatalf("status %d: expected one call, got %d", status, n)
		}
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	r, fs := newReporter(t, 503, 502, 200)
	if err := r.ReportResult(context.Background(), domain.GameRecord{ID: "g", Result: domain.ResultWhite}); err != nil {
		t.Fatalf("ReportResult: %v", err)
	}
	if n := len(fs.Calls()); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestRetriesExhausted(t *testing.T) {
	r, fs := newReporter(t, 500, 500, 500, 500)
	err := r.ReportResult(context.Background(), domain.GameRecord{ID: "g", Result: domain.ResultWhite})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if n := len(fs.Calls()); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	r, fs := newReporter(t, 401)
	if err := r.ReportResult(context.Background(), domain.GameRecord{ID: "g", Result: domain.ResultWhite}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if n := len(fs.Calls()); n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
}

func TestMissingTokenSkips(t *testing.T) {
	fs := &fakeServer{}
	srv := httptest.NewServer(fs)
	defer srv.Close()
	r, _ := NewHTTPReporter(srv.URL, AuthContext{})
	if err := r.ReportResult(context.Background(), domain.GameRecord{ID: "g", Result: domain.ResultWhite}); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if len(fs.Calls()) != 0 {
		t.Fatalf("no request expected without a token")
	}
	if _, err := NewHTTPReporter(" ", AuthContext{}); !errors.Is(err, ErrNoBaseURL) {
		t.Fatalf("expected ErrNoBaseURL, got %v", err)
	}
}

type stubReporter struct {
	err   error
	calls int
}

func (s *stubReporter) ReportResult(context.Context, domain.GameRecord) error {
	s.calls++
	return s.err
}

func TestFanoutCallsEveryone(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &stubReporter{err: boom}, &stubReporter{err: ErrNoToken}, &stubReporter{}
	err := Fanout{a, nil, b, c}.ReportResult(context.Background(), domain.GameRecord{ID: "g"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if errors.Is(err, ErrNoToken) {
		t.Fatalf("ErrNoToken should be swallowed")
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Fatalf("calls a=%d b=%d c=%d", a.calls, b.calls, c.calls)
	}
}
