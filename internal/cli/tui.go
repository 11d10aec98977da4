package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nodemedic/nodemedic/pkg/explorer"
	"github.com/nodemedic/nodemedic/pkg/graph"
	"github.com/nodemedic/nodemedic/pkg/layout"
	"github.com/nodemedic/nodemedic/pkg/selection"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

// =============================================================================
// Engine
// =============================================================================

// termEngine is the layout.Engine behind the terminal explorer. Mount only
// records the instance; the model picks it up once the load that mounted it
// reports back. Typosquat lookups are queued here and run as tea.Cmds so
// their results reach the overlay through the update loop.
type termEngine struct {
	mu      sync.Mutex
	current *termInstance
	lookups []*typosquat.Lookup
}

func (e *termEngine) Mount(ctx context.Context, els []layout.Element, h layout.Handler) (layout.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes, edges := layout.SplitElements(els)
	inst := &termInstance{engine: e, nodes: nodes, edges: edges, handler: h}
	e.mu.Lock()
	e.current = inst
	e.mu.Unlock()
	return inst, nil
}

func (e *termEngine) instance() *termInstance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// dispatch implements typosquat.Dispatcher.
func (e *termEngine) dispatch(_ context.Context, l *typosquat.Lookup) {
	e.mu.Lock()
	e.lookups = append(e.lookups, l)
	e.mu.Unlock()
}

func (e *termEngine) takeLookups() []*typosquat.Lookup {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.lookups
	e.lookups = nil
	return out
}

// termInstance is one mounted graph: its node rows and edges.
type termInstance struct {
	engine  *termEngine
	nodes   []*graph.Node
	edges   []*graph.Edge
	handler layout.Handler
	closed  atomic.Bool
}

func (i *termInstance) Close() error {
	if i.closed.Swap(true) {
		return nil
	}
	i.engine.mu.Lock()
	if i.engine.current == i {
		i.engine.current = nil
	}
	i.engine.mu.Unlock()
	return nil
}

func (i *termInstance) tapNode(id string) {
	if !i.closed.Load() {
		i.handler.NodeTapped(id)
	}
}

func (i *termInstance) tapBackground() {
	if !i.closed.Load() {
		i.handler.BackgroundTapped()
	}
}

// =============================================================================
// Model
// =============================================================================

type exploreKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Clear  key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func defaultExploreKeys() exploreKeys {
	return exploreKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("⏎", "inspect")),
		Clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k exploreKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Clear, k.Reload, k.Quit}
}

func (k exploreKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type (
	loadedMsg struct {
		g   *graph.Graph
		err error
	}
	lookupDoneMsg struct{ result typosquat.Result }
)

// exploreModel is the bubbletea model of the explorer: a package list on
// the left, the inspected package on the right.
type exploreModel struct {
	ctx     context.Context
	session *explorer.Session
	engine  *termEngine
	source  explorer.Source

	inst    *termInstance
	cursor  int
	offset  int
	width   int
	height  int
	loading bool
	err     error

	keys    exploreKeys
	help    help.Model
	spinner spinner.Model
}

func newExploreModel(ctx context.Context, s *explorer.Session, e *termEngine, src explorer.Source) exploreModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styleIconSpinner))
	return exploreModel{
		ctx:     ctx,
		session: s,
		engine:  e,
		source:  src,
		loading: src != nil,
		height:  24,
		width:   100,
		keys:    defaultExploreKeys(),
		help:    help.New(),
		spinner: sp,
	}
}

func (m exploreModel) Init() tea.Cmd {
	if m.source == nil {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m exploreModel) load() tea.Cmd {
	ctx, s, src := m.ctx, m.session, m.source
	return func() tea.Msg {
		g, err := s.Load(ctx, src)
		return loadedMsg{g: g, err: err}
	}
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.inst = m.engine.instance()
			m.cursor, m.offset = 0, 0
		}

	case lookupDoneMsg:
		m.session.Overlay().Deliver(msg.result)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.clampOffset()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.clampOffset()
			}
		case key.Matches(msg, m.keys.Down):
			if m.inst != nil && m.cursor < len(m.inst.nodes)-1 {
				m.cursor++
				m.clampOffset()
			}
		case key.Matches(msg, m.keys.Select):
			if m.inst != nil && m.cursor < len(m.inst.nodes) {
				m.inst.tapNode(m.inst.nodes[m.cursor].ID)
			}
		case key.Matches(msg, m.keys.Clear):
			if m.inst != nil {
				m.inst.tapBackground()
			}
		case key.Matches(msg, m.keys.Reload):
			if m.source != nil && !m.loading {
				m.loading = true
				cmds = append(cmds, m.spinner.Tick, m.load())
			}
		}
	}

	cmds = append(cmds, m.lookupCmds()...)
	return m, tea.Batch(cmds...)
}

// lookupCmds turns queued typosquat lookups into commands.
func (m exploreModel) lookupCmds() []tea.Cmd {
	var cmds []tea.Cmd
	for _, l := range m.engine.takeLookups() {
		ctx := m.ctx
		cmds = append(cmds, func() tea.Msg {
			return lookupDoneMsg{result: l.Run(ctx)}
		})
	}
	return cmds
}

func (m exploreModel) listHeight() int {
	return max(m.height-6, 5)
}

func (m *exploreModel) clampOffset() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m exploreModel) View() string {
	var b strings.Builder

	title := StyleTitle.Render("nodemedic")
	if src := m.session.Source(); src != "" {
		title += StyleDim.Render("  " + src)
	}
	b.WriteString(title + "\n")

	switch {
	case m.loading:
		desc := "graph"
		if m.source != nil {
			desc = m.source.String()
		}
		b.WriteString(m.spinner.View() + " " + StyleDim.Render("Loading "+desc+"...") + "\n")
	case m.err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + StyleDanger.Render(m.err.Error()) + "\n")
	default:
		b.WriteString("\n")
	}

	if m.inst == nil {
		if !m.loading && m.err == nil {
			b.WriteString(StyleDim.Render("Nothing loaded.") + "\n")
		}
		b.WriteString("\n" + m.help.View(m.keys))
		return b.String()
	}

	node, sel, selected := m.session.Inspect()
	listWidth := min(max(m.width/3, 24), 48)
	list := m.renderList(sel, selected, listWidth)

	panel := StyleDim.Render("Press ⏎ to inspect a package.")
	if selected {
		panel = renderPanel(node, sel, m.session.Overlay().State(), max(m.width-listWidth-4, 30))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Render(list),
		lipgloss.NewStyle().PaddingLeft(2).Render(panel),
	))
	b.WriteString("\n\n" + m.help.View(m.keys))
	return b.String()
}

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNeighborStyle = lipgloss.NewStyle().Foreground(colorGreen)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
)

func (m exploreModel) renderList(sel selection.Selection, selected bool, width int) string {
	neighbors := map[string]bool{}
	if selected {
		for _, id := range sel.UniqueNeighbors() {
			neighbors[id] = true
		}
	}

	nodes := m.inst.nodes
	end := min(m.offset+m.listHeight(), len(nodes))

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		n := nodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		line := cursor + truncate(n.DisplayLabel(), width-8)
		if n.HasVulnerabilities() {
			line += " " + StyleDanger.Render(fmt.Sprintf("⚠%d", n.VulnerabilityCount))
		}

		style := listNormalStyle
		switch {
		case selected && n.ID == sel.NodeID:
			style = listSelectedStyle
		case neighbors[n.ID]:
			style = listNeighborStyle
		}
		b.WriteString(style.Render(line) + "\n")
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(nodes))))
	return b.String()
}

// =============================================================================
// Node panel
// =============================================================================

const (
	panelListLimit   = 8
	panelContributor = 5
)

var panelHeading = lipgloss.NewStyle().Bold(true).Foreground(colorGray).MarginTop(1)

// renderPanel describes a selected package: identity, maintainers, known
// vulnerabilities, connected packages, repository and typosquat candidates.
func renderPanel(n graph.Node, sel selection.Selection, ts typosquat.State, width int) string {
	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\n") }

	head := StyleTitle.Render(n.DisplayLabel())
	if n.Version != "" {
		head += " " + StyleDim.Render(n.Version)
	}
	line(head)
	meta := fmt.Sprintf("degree %d", n.Degree)
	if n.Depth != nil {
		meta = fmt.Sprintf("depth %d · ", *n.Depth) + meta
	}
	line(StyleDim.Render(meta))

	line(panelHeading.Render(fmt.Sprintf("Maintainers (%d)", n.MaintainerCount)))
	if len(n.Maintainers) == 0 {
		line(StyleDim.Render("  none listed"))
	}
	for _, m := range capList(n.Maintainers, panelListLimit) {
		line("  " + m)
	}

	line(panelHeading.Render(fmt.Sprintf("Vulnerabilities (%d)", n.VulnerabilityCount)))
	if n.VulnerabilityCount == 0 {
		line(StyleSuccess.Render("  none known"))
	}
	for i, v := range n.Vulnerabilities {
		if i == panelListLimit {
			line(StyleDim.Render(fmt.Sprintf("  … %d more", len(n.Vulnerabilities)-i)))
			break
		}
		text := StyleDanger.Render(v.ID)
		if v.Summary != "" {
			text += " " + truncate(v.Summary, width-len(v.ID)-3)
		}
		line("  " + text)
	}

	deps, dependents := sel.Dependencies(), sel.Dependents()
	line(panelHeading.Render(fmt.Sprintf("Depends on (%d)", len(deps))))
	for _, id := range capList(deps, panelListLimit) {
		line("  " + id)
	}
	line(panelHeading.Render(fmt.Sprintf("Used by (%d)", len(dependents))))
	for _, id := range capList(dependents, panelListLimit) {
		line("  " + id)
	}

	if r := n.Repository; r != nil {
		line(panelHeading.Render("Repository"))
		name := r.Name
		if name == "" {
			name = r.URL
		}
		line("  " + StyleValue.Render(name) + StyleDim.Render(fmt.Sprintf("  ★ %d  ⑂ %d", r.Stars, r.Forks)))
		if r.URL != "" && r.URL != name {
			line("  " + StyleLink.Render(r.URL))
		}
		for i, c := range r.Contributors {
			if i == panelContributor {
				break
			}
			line(fmt.Sprintf("  %s %s", c.Login, StyleDim.Render(plural(c.CommitCount, "commit"))))
		}
	}

	line(panelHeading.Render("Possible typosquats"))
	switch {
	case ts.NodeID != n.ID || ts.Pending:
		line(StyleDim.Render("  checking…"))
	case ts.Failed:
		line(StyleWarning.Render("  lookup failed"))
	case len(ts.Suggestions) == 0:
		line(StyleSuccess.Render("  none found"))
	default:
		for _, s := range ts.Suggestions {
			entry := "  " + StyleWarning.Render(s.Name)
			if s.Score != nil {
				entry += StyleDim.Render(fmt.Sprintf(" %.2f", *s.Score))
			}
			line(entry)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// capList returns at most n items, with a trailing "… k more" marker.
func capList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	out := append([]string{}, items[:n]...)
	return append(out, StyleDim.Render(fmt.Sprintf("… %d more", len(items)-n)))
}

func truncate(s string, n int) string {
	if n < 2 {
		n = 2
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
