package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/feedview/internal/app"
	"github.com/Iron-Ham/feedview/internal/dom"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/i18n"
	"github.com/Iron-Ham/feedview/internal/router"
	"github.com/Iron-Ham/feedview/internal/tui/styles"
)

// Layout constants
const (
	headerHeight = 2 // title + rule
	footerHeight = 3 // announcement + status + help
	boxChrome    = 2 // content box border
	sidebarGap   = 1
)

// navItem is one sidebar entry: the first routed path of each view.
type navItem struct {
	Path   string
	ViewID string
}

// Model is the bubbletea model for browse.
type Model struct {
	ctx  context.Context
	app  *app.Context
	keys keyMap

	help     help.Model
	viewport viewport.Model
	spinner  spinner.Model

	items    []navItem
	selected int

	width, height int
	ready         bool
	busy          int
	version       uint64
	layout        dom.Layout

	status    string
	statusErr bool
	quitting  bool
}

// NewModel creates the browse model over c. Router calls run under ctx.
func NewModel(ctx context.Context, c *app.Context) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styles.Primary

	return Model{
		ctx:     ctx,
		app:     c,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		items:   navItems(c.Router.Routes()),
		busy:    1, // the initial transition started by Init
	}
}

func navItems(routes []router.Route) []navItem {
	seen := make(map[string]bool)
	var items []navItem
	for _, r := range routes {
		if seen[r.ViewID] {
			continue
		}
		seen[r.ViewID] = true
		items = append(items, navItem{Path: r.Path, ViewID: r.ViewID})
	}
	return items
}

// Messages

// docChangedMsg reports a document mutation made off the event loop.
type docChangedMsg struct{}

// navigatedMsg carries the result of a router call.
type navigatedMsg struct {
	err error
}

type refreshedMsg struct {
	err error
}

type loadedMoreMsg struct {
	added int
	err   error
}

// Commands

func (m Model) start() tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg{err: m.app.Start(m.ctx)}
	}
}

func (m Model) navigate(path string) tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg{err: m.app.Router.Navigate(m.ctx, path)}
	}
}

func (m Model) back() tea.Cmd {
	return func() tea.Msg {
		m.app.Router.Back()
		return navigatedMsg{}
	}
}

func (m Model) forward() tea.Cmd {
	return func() tea.Msg {
		m.app.Router.Forward()
		return navigatedMsg{}
	}
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.app.Refresh(m.ctx)}
	}
}

func (m Model) loadMore() tea.Cmd {
	return func() tea.Msg {
		f, ok := m.app.ActiveFeed()
		if !ok {
			return loadedMoreMsg{}
		}
		items, err := f.LoadMore(m.ctx)
		return loadedMoreMsg{added: len(items), err: err}
	}
}

// Init starts the router and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case docChangedMsg:
		m.sync()
		return m, nil

	case navigatedMsg:
		m.busy = max(0, m.busy-1)
		m.setError(msg.err)
		m.selectActive()
		m.sync()
		return m, nil

	case refreshedMsg:
		m.busy = max(0, m.busy-1)
		m.setError(msg.err)
		m.sync()
		return m, nil

	case loadedMoreMsg:
		m.busy = max(0, m.busy-1)
		m.setError(msg.err)
		m.sync()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.NextItem):
		if len(m.items) > 0 {
			m.selected = (m.selected + 1) % len(m.items)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevItem):
		if len(m.items) > 0 {
			m.selected = (m.selected - 1 + len(m.items)) % len(m.items)
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if m.selected < len(m.items) {
			return m.dispatch(m.navigate(m.items[m.selected].Path))
		}
		return m, nil

	case key.Matches(msg, m.keys.Jump):
		idx := int(msg.Runes[0] - '1')
		if idx < len(m.items) {
			m.selected = idx
			return m.dispatch(m.navigate(m.items[idx].Path))
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		return m.dispatch(m.back())

	case key.Matches(msg, m.keys.Forward):
		return m.dispatch(m.forward())

	case key.Matches(msg, m.keys.Refresh):
		return m.dispatch(m.refresh())

	case key.Matches(msg, m.keys.More):
		return m.dispatch(m.loadMore())

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
	default:
		return m, nil
	}
	m.reveal()
	return m, nil
}

// dispatch runs a router command off the event loop; the document it
// mutates reports back through docChangedMsg.
func (m Model) dispatch(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy++
	m.status, m.statusErr = "", false
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) setError(err error) {
	if err == nil || errors.Is(err, errors.ErrStaleNavigation) {
		return
	}
	m.statusErr = true
	if errors.IsUserFacing(err) {
		m.status = err.Error()
		return
	}
	m.app.Logger.Failure("browse command failed", err)
	m.status = m.app.Catalog.T(i18n.MsgSomethingWrong, nil)
}

// selectActive moves the sidebar cursor to the active view.
func (m *Model) selectActive() {
	_, viewID := m.app.Highlighter.Active()
	for i, item := range m.items {
		if item.ViewID == viewID {
			m.selected = i
			return
		}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	cw, ch := m.contentSize()
	if !m.ready {
		m.viewport = viewport.New(cw, ch)
		m.ready = true
	} else {
		m.viewport.Width = cw
		m.viewport.Height = ch
	}
	m.help.Width = width
	m.sync()
}

// contentSize returns the viewport dimensions for the current window.
func (m Model) contentSize() (width, height int) {
	width = m.width - m.app.Config.UI.SidebarWidth - sidebarGap - boxChrome*2
	height = m.height - headerHeight - footerHeight - boxChrome
	if m.help.ShowAll {
		height -= len(m.keys.FullHelp()[0]) - 1
	}
	return max(width, 10), max(height, 3)
}

// sync re-renders the document into the viewport and reports sentinel
// visibility. A new document version starts at the top.
func (m *Model) sync() {
	if !m.ready {
		return
	}
	m.layout = m.app.Doc.Render(m.viewport.Width)
	m.viewport.SetContent(m.layout.Text)
	if v := m.app.Doc.Version(); v != m.version {
		m.version = v
		m.viewport.GotoTop()
	}
	m.reveal()
}

func (m *Model) reveal() {
	if !m.ready {
		return
	}
	m.layout.Reveal(m.viewport.YOffset, m.viewport.Height)
}

// loading reports whether a transition or command is in flight.
func (m Model) loading() bool {
	if m.busy > 0 {
		return true
	}
	s := m.app.Router.State()
	return s == router.StateResolving || s == router.StateRendering
}
