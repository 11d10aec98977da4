package osv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestQuery(t *testing.T) {
	var got query
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/query" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"vulns":[
			{"id":"GHSA-35jh-r3h4-6jhm","summary":"Command Injection in lodash","aliases":["CVE-2021-23337"]},
			{"id":"GHSA-29mw-wpgm-hmr9"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(nil, time.Hour).WithBaseURL(srv.URL)
	vulns, err := c.Query(context.Background(), "lodash", "4.17.20", false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	wantQuery := query{Package: queryPackage{Name: "lodash", Ecosystem: "npm"}, Version: "4.17.20"}
	if diff := cmp.Diff(wantQuery, got); diff != "" {
		t.Errorf("request (-want +got):\n%s", diff)
	}
	want := []Vulnerability{
		{ID: "GHSA-35jh-r3h4-6jhm", Summary: "Command Injection in lodash", Aliases: []string{"CVE-2021-23337"}},
		{ID: "GHSA-29mw-wpgm-hmr9"},
	}
	if diff := cmp.Diff(want, vulns); diff != "" {
		t.Errorf("vulns (-want +got):\n%s", diff)
	}
}

func TestQuery_NoVersionAndNoVulns(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(nil, time.Hour).WithBaseURL(srv.URL)
	vulns, err := c.Query(context.Background(), "left-pad", "", false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(vulns) != 0 {
		t.Errorf("vulns = %v, want none", vulns)
	}
	if _, ok := raw["version"]; ok {
		t.Error("empty version should be omitted from the request")
	}
}

func TestQuery_BadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(nil, time.Hour).WithBaseURL(srv.URL)
	if _, err := c.Query(context.Background(), "x", "", false); err == nil {
		t.Error("Query should fail on 400")
	}
}
