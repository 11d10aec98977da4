package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

func TestNormalize_DegreeAndFilter(t *testing.T) {
	payload := `{
		"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}],
		"edges": [
			{"source": "a", "target": "b"},
			{"source": "a", "target": "c"},
			{"source": "x", "target": "a"}
		]
	}`

	g, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	wantEdges := []Edge{{Source: "a", Target: "b"}, {Source: "a", Target: "c"}}
	if diff := cmp.Diff(wantEdges, g.Edges()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
	if g.DroppedEdges() != 1 {
		t.Errorf("DroppedEdges() = %d, want 1", g.DroppedEdges())
	}

	for id, want := range map[string]int{"a": 2, "b": 1, "c": 1} {
		if got := g.Degree(id); got != want {
			t.Errorf("Degree(%s) = %d, want %d", id, got, want)
		}
	}
}

func TestNormalize_LastDuplicateWins(t *testing.T) {
	payload := `{"nodes": [
		{"id": "p", "version": "1.0"},
		{"id": "q"},
		{"id": "p", "version": "2.0"}
	], "edges": []}`

	g, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if g.NodeCount() != 2 {
		t.Fatalf("NodeCount() = %d, want 2", g.NodeCount())
	}
	p, ok := g.Node("p")
	if !ok {
		t.Fatal("node p missing")
	}
	if p.Version != "2.0" {
		t.Errorf("version = %q, want 2.0", p.Version)
	}
	if diff := cmp.Diff([]string{"p", "q"}, g.NodeIDs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "FlatFromTo",
			payload: `{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"from":"a","to":"b"}]}`,
		},
		{
			name:    "FlatSourceTarget",
			payload: `{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"source":"a","target":"b"}]}`,
		},
		{
			name:    "DataWrapped",
			payload: `{"nodes":[{"data":{"id":"a"}},{"data":{"id":"b"}}],"edges":[{"data":{"source":"a","target":"b"}}]}`,
		},
		{
			name:    "Mixed",
			payload: `{"nodes":[{"data":{"id":"a"}},{"id":"b"}],"edges":[{"data":{"from":"a","to":"b"}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Normalize([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if diff := cmp.Diff([]Edge{{Source: "a", Target: "b"}}, g.Edges()); diff != "" {
				t.Errorf("edges mismatch (-want +got):\n%s", diff)
			}
			if g.Degree("a") != 1 || g.Degree("b") != 1 {
				t.Errorf("degrees = %d/%d, want 1/1", g.Degree("a"), g.Degree("b"))
			}
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"NotJSON", `{nodes`},
		{"Array", `[{"id":"a"}]`},
		{"Null", `null`},
		{"MissingNodes", `{"edges":[]}`},
		{"NullNodes", `{"nodes":null}`},
		{"NodesObject", `{"nodes":{"a":{}}}`},
		{"EdgesString", `{"nodes":[],"edges":"a->b"}`},
		{"NodeWithoutID", `{"nodes":[{"version":"1.0"}]}`},
		{"NumericID", `{"nodes":[{"id":42}]}`},
		{"BlankID", `{"nodes":[{"id":"  "}]}`},
		{"NodeNotObject", `{"nodes":["a"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Normalize([]byte(tt.payload))
			if err == nil {
				t.Fatalf("Normalize() = %v, want error", g)
			}
			if !errs.Is(err, errs.ErrCodeMalformedPayload) {
				t.Errorf("code = %q, want %q", errs.GetCode(err), errs.ErrCodeMalformedPayload)
			}
		})
	}
}

func TestNormalize_MissingEdgesIsEmpty(t *testing.T) {
	g, err := Normalize([]byte(`{"nodes":[{"id":"solo","degree":7}]}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0", g.EdgeCount())
	}
	if g.Degree("solo") != 0 {
		t.Errorf("server degree should be ignored, got %d", g.Degree("solo"))
	}
}

func TestNormalize_Metadata(t *testing.T) {
	payload := `{"nodes":[{
		"id": "express",
		"version": "4.19.2",
		"depth": 0,
		"maintainers": ["dougwilson", {"name": "wesleytodd", "email": "w@example.com"}],
		"vulnerabilities": [{"id": "GHSA-1", "summary": "open redirect"}, {"summary": "no id"}],
		"repo": {
			"name": "expressjs/express",
			"html_url": "https://github.com/expressjs/express",
			"stars": 65000,
			"forks": 15000,
			"contributors": [{"login": "tj", "html_url": "https://github.com/tj", "avatar_url": "https://a/tj", "contributions": 1200}]
		}
	}]}`

	g, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	got, _ := g.Node("express")

	depth := 0
	want := Node{
		ID:                 "express",
		Label:              "express",
		Version:            "4.19.2",
		MaintainerCount:    2,
		Maintainers:        []string{"dougwilson", "wesleytodd"},
		VulnerabilityCount: 1,
		Vulnerabilities:    []Vulnerability{{ID: "GHSA-1", Summary: "open redirect"}},
		Repository: &Repository{
			Name:  "expressjs/express",
			URL:   "https://github.com/expressjs/express",
			Stars: 65000,
			Forks: 15000,
			Contributors: []Contributor{{
				Login:       "tj",
				AvatarURL:   "https://a/tj",
				ProfileURL:  "https://github.com/tj",
				CommitCount: 1200,
			}},
		},
		Depth: &depth,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("node mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_ExplicitCounts(t *testing.T) {
	payload := `{"nodes":[
		{"id":"a","maintainer_count":3,"vulnerability_count":-2},
		{"id":"b","maintainerCount":1,"vulnerabilityCount":4,"maintainers":"not-a-list"}
	]}`
	g, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	a, _ := g.Node("a")
	if a.MaintainerCount != 3 || a.VulnerabilityCount != 0 {
		t.Errorf("a counts = %d/%d, want 3/0", a.MaintainerCount, a.VulnerabilityCount)
	}
	b, _ := g.Node("b")
	if b.MaintainerCount != 1 || b.VulnerabilityCount != 4 || b.Maintainers != nil {
		t.Errorf("b = %+v", b)
	}
}

func TestNormalize_OutOfRangeCounts(t *testing.T) {
	tests := []struct {
		name string
		repo string
		want Repository
	}{
		{
			name: "huge",
			repo: `{"name":"a/b","stars":1e300,"forks":1e19,"contributors":[{"login":"x","contributions":1e300}]}`,
			want: Repository{Name: "a/b", Stars: math.MaxInt, Forks: math.MaxInt,
				Contributors: []Contributor{{Login: "x", CommitCount: math.MaxInt}}},
		},
		{
			name: "negative",
			repo: `{"name":"a/b","stars":-5,"forks":-1e300,"contributors":[{"login":"x","commit_count":-3}]}`,
			want: Repository{Name: "a/b", Contributors: []Contributor{{Login: "x"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"nodes":[{"id":"a","maintainer_count":-1e300,"repository":` + tt.repo + `}]}`
			g, err := Normalize([]byte(payload))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			n, _ := g.Node("a")
			if n.MaintainerCount != 0 {
				t.Errorf("MaintainerCount = %d, want 0", n.MaintainerCount)
			}
			if n.Repository == nil {
				t.Fatal("Repository = nil")
			}
			if diff := cmp.Diff(tt.want, *n.Repository); diff != "" {
				t.Errorf("repository (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	payload := []byte(`{"nodes":[{"id":"a","degree":9},{"id":"a"}],"edges":[{"from":"a","to":"ghost"}]}`)
	orig := bytes.Clone(payload)

	g1, err := Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	g2, _ := Normalize(payload)

	if !bytes.Equal(payload, orig) {
		t.Error("payload was modified")
	}
	if g1 == g2 {
		t.Error("Normalize returned the same Graph twice")
	}
}

func TestGraph_AccessorsReturnCopies(t *testing.T) {
	g, _ := Normalize([]byte(`{"nodes":[{"id":"a","maintainers":["x"]},{"id":"b"}],"edges":[{"from":"a","to":"b"}]}`))

	n, _ := g.Node("a")
	n.Degree = 100
	n.Maintainers[0] = "mallory"

	edges := g.Edges()
	edges[0].Target = "zzz"

	again, _ := g.Node("a")
	if again.Degree != 1 || again.Maintainers[0] != "x" {
		t.Errorf("node mutated through copy: %+v", again)
	}
	if g.Edges()[0].Target != "b" {
		t.Error("edge mutated through copy")
	}
}

func TestGraph_SelfLoopDegree(t *testing.T) {
	g, _ := Normalize([]byte(`{"nodes":[{"id":"a"}],"edges":[{"from":"a","to":"a"}]}`))
	if g.Degree("a") != 1 {
		t.Errorf("Degree(a) = %d, want 1", g.Degree("a"))
	}
}

// TestNormalize_RandomPayloads checks the edge validity and degree invariants
// over generated payloads with dangling references and duplicates.
func TestNormalize_RandomPayloads(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for iter := range 200 {
		pool := 1 + rng.IntN(12)
		var nodes, edges []map[string]any
		for range rng.IntN(20) {
			nodes = append(nodes, map[string]any{"id": fmt.Sprintf("n%d", rng.IntN(pool))})
		}
		for range rng.IntN(40) {
			// Endpoints may reference ids outside the node list.
			edges = append(edges, map[string]any{
				"from": fmt.Sprintf("n%d", rng.IntN(pool+4)),
				"to":   fmt.Sprintf("n%d", rng.IntN(pool+4)),
			})
		}
		data, _ := json.Marshal(map[string]any{"nodes": nodes, "edges": edges})

		g, err := Normalize(data)
		if nodes == nil {
			if err == nil {
				t.Fatalf("iter %d: null nodes accepted", iter)
			}
			continue
		}
		if err != nil {
			t.Fatalf("iter %d: Normalize: %v", iter, err)
		}

		counts := make(map[string]int)
		for _, e := range g.Edges() {
			if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
				t.Fatalf("iter %d: dangling edge %v survived", iter, e)
			}
			counts[e.Source]++
			if e.Target != e.Source {
				counts[e.Target]++
			}
		}
		for _, n := range g.Nodes() {
			if n.Degree != counts[n.ID] {
				t.Fatalf("iter %d: degree(%s) = %d, want %d", iter, n.ID, n.Degree, counts[n.ID])
			}
		}
		if g.EdgeCount()+g.DroppedEdges() != len(edges) {
			t.Fatalf("iter %d: %d kept + %d dropped != %d", iter, g.EdgeCount(), g.DroppedEdges(), len(edges))
		}
	}
}

func TestGraph_JSONRoundTrip(t *testing.T) {
	g, err := Normalize([]byte(`{"nodes":[{"data":{"id":"a","version":"1"}},{"data":{"id":"b"}}],"edges":[{"data":{"source":"a","target":"b"}}]}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var again Graph
	if err := json.Unmarshal(buf.Bytes(), &again); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(g.Nodes(), again.Nodes()); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(g.Edges(), again.Edges()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteYAML(t *testing.T) {
	g, _ := Normalize([]byte(`{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"from":"a","to":"b"}]}`))

	var buf bytes.Buffer
	if err := WriteYAML(g, &buf); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"nodes:", "- id: a", "source: a", "target: b"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML missing %q:\n%s", want, out)
		}
	}
}
