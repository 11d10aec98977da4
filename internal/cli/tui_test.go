package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/explorer"
	"github.com/nodemedic/nodemedic/pkg/graph"
	"github.com/nodemedic/nodemedic/pkg/selection"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

const expressPayload = `{
	"nodes": [
		{"id": "express", "version": "4.21.2", "maintainers": ["wesleytodd", "ulisesgascon"],
		 "vulnerabilities": [{"id": "GHSA-qw6h-vgh9-j6wx", "summary": "XSS via response.redirect()"}],
		 "repository": {"name": "expressjs/express", "url": "https://github.com/expressjs/express", "stars": 65000, "forks": 16000,
		  "contributors": [{"login": "dougwilson", "commit_count": 1500}]}},
		{"id": "body-parser", "version": "1.20.3"},
		{"id": "debug", "version": "2.6.9"}
	],
	"edges": [
		{"source": "express", "target": "body-parser"},
		{"source": "express", "target": "debug"},
		{"source": "body-parser", "target": "debug"}
	]
}`

func score(v float64) *float64 { return &v }

type exploreHarness struct {
	t       *testing.T
	session *explorer.Session
	engine  *termEngine
	model   exploreModel
}

func newExploreHarness(t *testing.T, finder typosquat.Finder, payload string) *exploreHarness {
	t.Helper()
	ctx := context.Background()
	engine := &termEngine{}
	s := explorer.New(ctx, engine, explorer.Options{Finder: finder, Dispatch: engine.dispatch})
	t.Cleanup(s.Close)

	h := &exploreHarness{t: t, session: s, engine: engine}
	h.model = newExploreModel(ctx, s, engine, explorer.FromBytes([]byte(payload)))
	h.send(h.model.load()())
	return h
}

// send feeds msg to the model and runs the resulting commands to
// completion, feeding their messages back in.
func (h *exploreHarness) send(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(exploreModel)
	h.run(cmd)
}

func (h *exploreHarness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c)
		}
	case tea.QuitMsg:
	default:
		h.send(msg)
	}
}

func (h *exploreHarness) key(k string) {
	h.t.Helper()
	switch k {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "down":
		h.send(tea.KeyMsg{Type: tea.KeyDown})
	case "up":
		h.send(tea.KeyMsg{Type: tea.KeyUp})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
}

func TestExploreLoadMountsGraph(t *testing.T) {
	h := newExploreHarness(t, nil, expressPayload)

	if h.model.err != nil {
		t.Fatalf("load error: %v", h.model.err)
	}
	if h.model.inst == nil {
		t.Fatal("no instance after load")
	}
	var ids []string
	for _, n := range h.model.inst.nodes {
		ids = append(ids, n.ID)
	}
	if diff := cmp.Diff([]string{"express", "body-parser", "debug"}, ids); diff != "" {
		t.Errorf("mounted nodes (-want +got):\n%s", diff)
	}
	if got := len(h.model.inst.edges); got != 3 {
		t.Errorf("mounted %d edges, want 3", got)
	}

	view := h.model.View()
	for _, want := range []string{"express", "body-parser", "⚠1", "[1/3]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestExploreEnterSelectsAndLooksUp(t *testing.T) {
	var asked []string
	finder := typosquat.FinderFunc(func(_ context.Context, name string) ([]typosquat.Suggestion, error) {
		asked = append(asked, name)
		return []typosquat.Suggestion{{Name: "bodyparser", Score: score(0.91)}}, nil
	})
	h := newExploreHarness(t, finder, expressPayload)

	h.key("down")
	h.key("enter")

	sel, ok := h.session.Controller().Current()
	if !ok || sel.NodeID != "body-parser" {
		t.Fatalf("selection = %+v, %v; want body-parser", sel, ok)
	}
	if diff := cmp.Diff([]string{"body-parser"}, asked); diff != "" {
		t.Errorf("lookups (-want +got):\n%s", diff)
	}
	st := h.session.Overlay().State()
	if st.NodeID != "body-parser" || st.Pending || len(st.Suggestions) != 1 {
		t.Errorf("overlay state = %+v", st)
	}

	view := h.model.View()
	for _, want := range []string{"Used by (1)", "Depends on (1)", "bodyparser", "0.91"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	h.key("esc")
	if _, ok := h.session.Controller().Current(); ok {
		t.Error("esc should clear the selection")
	}
	if st := h.session.Overlay().State(); st.NodeID != "" || len(st.Suggestions) != 0 {
		t.Errorf("overlay after clear = %+v", st)
	}
}

func TestExploreFailedLookupDegrades(t *testing.T) {
	finder := typosquat.FinderFunc(func(context.Context, string) ([]typosquat.Suggestion, error) {
		return nil, errs.New(errs.ErrCodeNetwork, "backend down")
	})
	h := newExploreHarness(t, finder, expressPayload)
	h.key("enter")

	st := h.session.Overlay().State()
	if !st.Failed || len(st.Suggestions) != 0 {
		t.Errorf("overlay state = %+v, want failed with no suggestions", st)
	}
	if !strings.Contains(h.model.View(), "lookup failed") {
		t.Error("view should report the failed lookup")
	}
}

func TestExploreCursorBounds(t *testing.T) {
	h := newExploreHarness(t, nil, expressPayload)
	h.key("up")
	if h.model.cursor != 0 {
		t.Errorf("cursor = %d after up at top", h.model.cursor)
	}
	for range 5 {
		h.key("down")
	}
	if h.model.cursor != 2 {
		t.Errorf("cursor = %d after moving past the end, want 2", h.model.cursor)
	}
}

func TestExploreReloadReplacesInstance(t *testing.T) {
	h := newExploreHarness(t, nil, expressPayload)
	old := h.model.inst
	h.key("enter")

	// Run the reload command directly; the spinner tick it is batched with
	// would only redraw.
	next, _ := h.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	h.model = next.(exploreModel)
	if !h.model.loading {
		t.Fatal("reload should start loading")
	}
	h.send(h.model.load()())

	if h.model.inst == old {
		t.Fatal("reload kept the old instance")
	}
	if !old.closed.Load() {
		t.Error("old instance should be closed")
	}
	if _, ok := h.session.Controller().Current(); ok {
		t.Error("reload should clear the selection")
	}

	// Taps on the released instance are ignored.
	old.tapNode("debug")
	if _, ok := h.session.Controller().Current(); ok {
		t.Error("tap on a released instance changed the selection")
	}
}

func TestExploreLoadErrorKeepsGraph(t *testing.T) {
	h := newExploreHarness(t, nil, expressPayload)
	inst := h.model.inst

	h.model.source = explorer.FromBytes([]byte(`{"edges": []}`))
	h.send(h.model.load()())

	if !errs.Is(h.model.err, errs.ErrCodeMalformedPayload) {
		t.Errorf("err = %v, want MALFORMED_PAYLOAD", h.model.err)
	}
	if h.model.inst != inst {
		t.Error("failed load replaced the instance")
	}
	if !strings.Contains(h.model.View(), "express") {
		t.Error("previous graph should still be shown")
	}
}

func TestRenderPanel(t *testing.T) {
	g, err := graph.Normalize([]byte(expressPayload))
	if err != nil {
		t.Fatal(err)
	}
	n, _ := g.Node("express")
	sel, err := selection.Neighborhood(g, "express")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		state typosquat.State
		want  []string
	}{
		{
			name:  "pending",
			state: typosquat.State{NodeID: "express", Pending: true},
			want:  []string{"checking…"},
		},
		{
			name:  "stale state",
			state: typosquat.State{NodeID: "debug", Suggestions: []typosquat.Suggestion{{Name: "debugg"}}},
			want:  []string{"checking…"},
		},
		{
			name:  "failed",
			state: typosquat.State{NodeID: "express", Failed: true},
			want:  []string{"lookup failed"},
		},
		{
			name:  "none",
			state: typosquat.State{NodeID: "express"},
			want:  []string{"none found"},
		},
		{
			name:  "suggestions",
			state: typosquat.State{NodeID: "express", Suggestions: []typosquat.Suggestion{{Name: "expres", Score: score(0.86)}, {Name: "exprss"}}},
			want:  []string{"expres 0.86", "exprss"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderPanel(n, sel, tt.state, 80)
			common := []string{
				"express", "4.21.2", "degree 2",
				"Maintainers (2)", "wesleytodd",
				"Vulnerabilities (1)", "GHSA-qw6h-vgh9-j6wx",
				"Depends on (2)", "body-parser", "debug",
				"Used by (0)",
				"expressjs/express", "★ 65000", "dougwilson", "1500 commits",
			}
			for _, want := range append(common, tt.want...) {
				if !strings.Contains(out, want) {
					t.Errorf("panel missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestCapList(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	if got := capList(items, 4); len(got) != 4 {
		t.Errorf("capList(4) = %v", got)
	}
	got := capList(items, 2)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || !strings.Contains(got[2], "2 more") {
		t.Errorf("capList(2) = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"express", 10, "express"},
		{"express", 7, "express"},
		{"body-parser", 5, "body…"},
		{"ab", 0, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
