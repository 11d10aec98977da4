package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithRetry(3, time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}

	if _, err := New("ftp://example.com"); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("New(ftp) err = %v, want INVALID_INPUT", err)
	}

	c, _ = New("http://localhost:8000/")
	if c.BaseURL() != "http://localhost:8000" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL())
	}
}

func TestFetchDependencies(t *testing.T) {
	var gotPath, gotDepth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotDepth = r.URL.Query().Get("depth")
		w.Write([]byte(`{"nodes":[{"data":{"id":"@types/node"}}],"edges":[]}`))
	}))

	data, err := c.FetchDependencies(context.Background(), "@types/node", 3)
	if err != nil {
		t.Fatalf("FetchDependencies: %v", err)
	}
	if gotPath != "/api/dependencies/@types%2Fnode" {
		t.Errorf("path = %q", gotPath)
	}
	if gotDepth != "3" {
		t.Errorf("depth = %q, want 3", gotDepth)
	}
	if string(data) != `{"nodes":[{"data":{"id":"@types/node"}}],"edges":[]}` {
		t.Errorf("payload = %s", data)
	}
}

func TestFetchDependencies_InvalidName(t *testing.T) {
	c, _ := New("")
	_, err := c.FetchDependencies(context.Background(), "Not Valid", 2)
	if !errs.Is(err, errs.ErrCodeInvalidPackage) {
		t.Errorf("err = %v, want INVALID_PACKAGE", err)
	}
}

func TestFetchDependencies_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  errs.Code
		wantCalls int32
	}{
		{"coded body", http.StatusNotFound, `{"error":"npm package \"nope\" not found","code":"PACKAGE_NOT_FOUND"}`, errs.ErrCodePackageNotFound, 1},
		{"plain 404", http.StatusNotFound, `not found`, errs.ErrCodeNotFound, 1},
		{"bad request", http.StatusBadRequest, `{"detail":"depth must be at least 1"}`, errs.ErrCodeInvalidInput, 1},
		{"server error retried", http.StatusInternalServerError, `{"error":"boom"}`, errs.ErrCodeNetwork, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := c.FetchDependencies(context.Background(), "nope", 2)
			if !errs.Is(err, tt.wantCode) {
				t.Errorf("err = %v, want code %s", err, tt.wantCode)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestFetchDependencies_RetryRecovers(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"nodes":[]}`))
	}))

	data, err := c.FetchDependencies(context.Background(), "express", 2)
	if err != nil {
		t.Fatalf("FetchDependencies: %v", err)
	}
	if string(data) != `{"nodes":[]}` {
		t.Errorf("payload = %s", data)
	}
}

func TestUpload(t *testing.T) {
	var gotName, gotBody string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload" {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)
		w.Write(data)
	}))

	const payload = `{"nodes":[{"id":"a"}],"edges":[]}`
	data, err := c.Paste(context.Background(), payload)
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if gotName != PasteFilename {
		t.Errorf("filename = %q, want %q", gotName, PasteFilename)
	}
	if gotBody != payload || string(data) != payload {
		t.Errorf("uploaded %q, answered %q", gotBody, data)
	}
}

func TestFind(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/typosquats/react" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"name":"reactt","score":0.83},{"name":"raect","score":0.6}]`))
	}))

	var f typosquat.Finder = c
	got, err := f.Find(context.Background(), "react")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if diff := cmp.Diff([]string{"reactt", "raect"}, typosquat.Names(got)); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if got[0].Score == nil || *got[0].Score != 0.83 {
		t.Errorf("score = %v, want 0.83", got[0].Score)
	}
}

func TestFind_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `{"error":"upstream"}`},
		{"not json", http.StatusOK, `<html>oops</html>`},
		{"not found", http.StatusNotFound, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			_, err := c.Find(context.Background(), "react")
			if !errs.Is(err, errs.ErrCodeLookupFailed) {
				t.Errorf("err = %v, want LOOKUP_FAILED", err)
			}
		})
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
