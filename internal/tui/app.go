// Package tui provides a terminal dashboard for portal detection.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/portalwatch/internal/detector"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/portal"
)

const refreshInterval = time.Second

// App is the main TUI application.
type App struct {
	inst portal.Instance
}

// NewApp creates a new TUI application.
func NewApp(inst portal.Instance) *App {
	return &App{inst: inst}
}

// Run starts the TUI application and blocks until the user quits.
func (a *App) Run() error {
	events := make(chan stateMsg, 16)
	h := a.inst.SubscribeAndNotifyNow(func(network model.NetworkIdentity, state model.PortalState) {
		select {
		case events <- stateMsg{network: network, state: state}:
		default:
		}
	})
	defer a.inst.Unsubscribe(h)

	p := tea.NewProgram(newAppModel(a.inst, events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// appModel is the bubbletea model.
type appModel struct {
	inst      portal.Instance
	events    <-chan stateMsg
	data      *DashboardData
	dashboard *Dashboard
	spinner   spinner.Model
	ready     bool
	width     int
	height    int

	session     bool
	errorScreen bool
}

func newAppModel(inst portal.Instance, events <-chan stateMsg) appModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	return appModel{
		inst:    inst,
		events:  events,
		data:    &DashboardData{},
		spinner: s,
	}
}

// Init initializes the model.
func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForState(m.events),
		loadData(m.inst),
		tick(),
	)
}

// Update handles messages.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, detect(m.inst)
		case "e":
			return m, toggleEnabled(m.inst)
		case "s":
			m.session = !m.session
			return m, setSession(m.inst, m.session)
		case "x":
			m.errorScreen = !m.errorScreen
			return m, setErrorScreen(m.inst, m.errorScreen)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.dashboard != nil {
			m.dashboard.SetSize(msg.Width, msg.Height)
		}

	case stateMsg:
		m.data.Notices++
		m.data.LastNotice = fmt.Sprintf("%s at %s", msg.state, time.Now().Format("15:04:05"))
		return m, tea.Batch(waitForState(m.events), loadData(m.inst))

	case dataMsg:
		m.ready = true
		m.data.Snapshot = msg.snapshot
		m.data.Networks = msg.networks
		m.dashboard = NewDashboard(m.data, m.width, m.height)

	case tickMsg:
		return m, tea.Batch(loadData(m.inst), tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m appModel) View() string {
	if !m.ready {
		return LoadingStyle.Render(m.spinner.View() + " Loading...")
	}
	return m.dashboard.View()
}

// Messages
type stateMsg struct {
	network model.NetworkIdentity
	state   model.PortalState
}

type dataMsg struct {
	snapshot model.Snapshot
	networks []detector.Record
}

type tickMsg time.Time

func waitForState(events <-chan stateMsg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadData(inst portal.Instance) tea.Cmd {
	return func() tea.Msg {
		return fetchData(inst)
	}
}

func fetchData(inst portal.Instance) dataMsg {
	return dataMsg{
		snapshot: inst.Snapshot(),
		networks: inst.Records(),
	}
}

func detect(inst portal.Instance) tea.Cmd {
	return func() tea.Msg {
		inst.StartDetectionIfIdle()
		return fetchData(inst)
	}
}

func toggleEnabled(inst portal.Instance) tea.Cmd {
	return func() tea.Msg {
		if inst.IsEnabled() {
			inst.Disable()
		} else {
			inst.Enable(true)
		}
		return fetchData(inst)
	}
}

func setSession(inst portal.Instance, active bool) tea.Cmd {
	return func() tea.Msg {
		inst.SetSessionActive(active)
		return fetchData(inst)
	}
}

func setErrorScreen(inst portal.Instance, visible bool) tea.Cmd {
	return func() tea.Msg {
		inst.SetErrorScreenVisible(visible)
		return fetchData(inst)
	}
}
