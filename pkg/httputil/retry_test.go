package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nodemedic/nodemedic/pkg/observability"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()
	permanent := errors.New("404")
	transient := &RetryableError{Err: errors.New("503")}

	tests := []struct {
		name      string
		fail      []error
		wantCalls int
		wantErr   error
	}{
		{"success", nil, 1, nil},
		{"permanent stops", []error{permanent}, 1, permanent},
		{"transient then ok", []error{transient}, 2, nil},
		{"exhausted", []error{transient, transient, transient, transient}, 3, transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(ctx, 3, time.Millisecond, func() error {
				calls++
				if calls <= len(tt.fail) {
					return tt.fail[calls-1]
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return &RetryableError{Err: errors.New("503")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryHonorsAfter(t *testing.T) {
	// A one hour backoff would time the test out; After wins.
	calls := 0
	err := Retry(context.Background(), 2, time.Hour, func() error {
		calls++
		if calls == 1 {
			return &RetryableError{Err: errors.New("429"), After: time.Millisecond}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestRetryAfter(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	tests := []struct {
		header string
		min    time.Duration
		max    time.Duration
	}{
		{"", 0, 0},
		{"5", 5 * time.Second, 5 * time.Second},
		{" 12 ", 12 * time.Second, 12 * time.Second},
		{"-3", 0, 0},
		{"soon", 0, 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0, 0},
		{future, 58 * time.Minute, time.Hour},
	}
	for _, tt := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		got := RetryAfter(resp)
		if got < tt.min || got > tt.max {
			t.Errorf("RetryAfter(%q) = %v, want in [%v, %v]", tt.header, got, tt.min, tt.max)
		}
	}
}

type httpRecorder struct {
	observability.NoopHTTPHooks
	statuses []int
	errors   int
}

func (r *httpRecorder) OnResponse(_ context.Context, _, _, _ string, code int, _ time.Duration) {
	r.statuses = append(r.statuses, code)
}

func (r *httpRecorder) OnError(context.Context, string, string, string, error) { r.errors++ }

func TestTransport(t *testing.T) {
	rec := &httpRecorder{}
	observability.SetHTTPHooks(rec)
	t.Cleanup(observability.Reset)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := NewClient(time.Second)
	resp, err := client.Get(srv.URL + "/x")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	srv.Close()
	if _, err := client.Get(srv.URL + "/x"); err == nil {
		t.Fatal("request to closed server succeeded")
	}

	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusTeapot {
		t.Errorf("statuses = %v", rec.statuses)
	}
	if rec.errors != 1 {
		t.Errorf("errors = %d, want 1", rec.errors)
	}
}
