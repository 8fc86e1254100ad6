package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/fd1az/chain-oracles/business/watch/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// DefaultMoveThresholdBps is the smallest change listed in the moves panel.
var DefaultMoveThresholdBps = decimal.NewFromInt(5)

var stepOrder = []string{StepConfig, StepNode, StepPricing, StepWatcher}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Options configure the dashboard.
type Options struct {
	Network          string
	MoveThresholdBps decimal.Decimal
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	prices *components.PricesComponent
	moves  *components.MovesComponent
	stats  *components.StatsComponent
	status *components.StatusComponent

	spinner spinner.Model
	help    help.Model
	keys    KeyMap

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	network      string
	ready        bool
	quitting     bool
	paused       bool // snapshots are dropped while paused
	width        int
	height       int
	currentBlock uint64
	lastUpdate   time.Time
	lastRefresh  time.Time
	lastPrices   map[string]decimal.Decimal
	errors       []ErrorEntry // persistent error panel, last 3
	logs         []string
	activityFeed []string

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time
}

// New creates a new TUI model.
func New(opts Options) Model {
	if opts.MoveThresholdBps.IsZero() {
		opts.MoveThresholdBps = DefaultMoveThresholdBps
	}

	now := time.Now()
	return Model{
		prices:       components.NewPricesComponent(),
		moves:        components.NewMovesComponent(50, 8, opts.MoveThresholdBps),
		stats:        components.NewStatsComponent(),
		status:       components.NewStatusComponent(),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		network:      opts.Network,
		lastPrices:   make(map[string]decimal.Decimal),
		logs:         make([]string, 0, 10),
		errors:       make([]ErrorEntry, 0, 3),
		activityFeed: make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			StepConfig:  {Name: "Loading configuration", Status: StatusPending},
			StepNode:    {Name: "Connecting to node", Status: StatusPending},
			StepPricing: {Name: "Building price oracles", Status: StatusPending},
			StepWatcher: {Name: "Subscribing to new heads", Status: StatusPending},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Phase returns the current UI phase.
func (m Model) Phase() Phase {
	return m.phase
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.enterStartup()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.moves.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.moves.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.moves.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.enterStartup()
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		if m.paused {
			return m, nil
		}
		m.applySnapshot(msg.Snapshot)
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()

	case BlockMsg:
		m.currentBlock = msg.Number
		m.stats.CountBlock()
		m.lastUpdate = time.Now()
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Block #%d received", msg.Number))

	case ErrorMsg:
		m.addError(msg.Error.Error())
		m.logs = addLog(m.logs, "error", msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Status == StatusFailed && msg.Message != "" {
			m.addError(msg.Message)
		}
		if m.phase == PhaseStartup && m.startupComplete() {
			m.phase = PhaseDashboard
		}
	}

	return m, nil
}

func (m *Model) enterStartup() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// not Send(): that would block inside Update
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m *Model) startupComplete() bool {
	for _, step := range m.startupSteps {
		if step.Status != StatusConnected {
			return false
		}
	}
	return true
}

func (m *Model) applySnapshot(snap domain.Snapshot) {
	rows := make([]components.PriceRow, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		pair := r.Pair.String()
		if r.Err != nil {
			rows = append(rows, components.PriceRow{Pair: pair, Err: string(apperror.GetCode(r.Err))})
			continue
		}

		rate := r.Price.Rate()
		rows = append(rows, components.PriceRow{
			Pair:      pair,
			Price:     rate,
			ChangeBps: r.ChangeBps,
			Source:    r.Price.Source(),
			Cached:    r.Cached,
		})

		if prev, ok := m.lastPrices[pair]; ok {
			added := m.moves.Add(components.MoveRow{
				Timestamp:   snap.Timestamp.Format("15:04:05"),
				BlockNumber: snap.BlockNumber,
				Pair:        pair,
				From:        prev,
				To:          rate,
				ChangeBps:   r.ChangeBps,
			})
			if added {
				m.activityFeed = addActivity(m.activityFeed,
					fmt.Sprintf("%s moved %+.1f bps", pair, r.ChangeBps.InexactFloat64()))
			}
		}
		m.lastPrices[pair] = rate
	}

	if snap.BlockNumber > m.currentBlock {
		m.currentBlock = snap.BlockNumber
	}
	m.prices.Update(snap.BlockNumber, rows)

	failed := snap.Failed()
	m.stats.Record(len(snap.Rows)-failed, snap.Cached(), failed, float64(snap.Duration.Milliseconds()))
	m.lastRefresh = time.Now()
	m.lastUpdate = m.lastRefresh
}

func (m *Model) addError(message string) {
	m.errors = append(m.errors, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logs = append(logs, fmt.Sprintf("[%s] %s: %s", timestamp, level, message))
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	feed = append(feed, fmt.Sprintf("[%s] %s", timestamp, message))
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" ⛓ Chain Oracles " + m.network + " "))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.prices.View() + "\n\n" + m.stats.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.renderActivityFeed())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.moves.View())
	rightCol := rightContent.String()

	// Side by side if enough width
	if m.width > 120 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := m.width - 4
		if width < 40 {
			width = 80
		}
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(ErrorHeaderStyle.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorLineStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PausedStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderActivityFeed renders the recent activity feed.
func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for blocks..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "Block #") {
			sb.WriteString(BlockValue.Render("  " + activity))
		} else {
			sb.WriteString(MutedValue.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {

	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
    ██████╗ ██████╗  █████╗  ██████╗██╗     ███████╗███████╗
   ██╔═══██╗██╔══██╗██╔══██╗██╔════╝██║     ██╔════╝██╔════╝
   ██║   ██║██████╔╝███████║██║     ██║     █████╗  ███████╗
   ██║   ██║██╔══██╗██╔══██║██║     ██║     ██╔══╝  ╚════██║
   ╚██████╔╝██║  ██║██║  ██║╚██████╗███████╗███████╗███████║
    ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚══════╝╚══════╝╚══════╝
`
	sb.WriteString(LogoStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("             O N - C H A I N   P R I C E   W A T C H"))
	sb.WriteString("\n\n\n")
	sb.WriteString(StepReadyStyle.Render(fmt.Sprintf("                    Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("              Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(HeaderStyle.Render("  ⛓ Chain Oracles"))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.NewStyle().Bold(true).Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range stepOrder {
		step := m.startupSteps[k]

		icon, statusText, style := stepStyle(step.Status, m.spinner.View())

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")

	for _, err := range m.errors {
		sb.WriteString(StepFailedStyle.Render("  " + err.Message))
		sb.WriteString("\n")
	}
	if len(m.errors) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for the first price refresh..."))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastRefresh) < 500*time.Millisecond {
		parts = append(parts, RefreshingStyle.Render(m.spinner.View()+" Refreshing"))
	}

	parts = append(parts, fmt.Sprintf("Block: #%d", m.currentBlock))
	parts = append(parts, m.status.Inline()...)

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// Set by main before Run.
var OnStartModules func()

// NewProgram creates the program and stores it in Program.
func NewProgram(opts Options) *tea.Program {
	Program = tea.NewProgram(New(opts), tea.WithAltScreen())
	return Program
}

// Run starts the Bubble Tea program, creating it when NewProgram was not called.
func Run(opts Options) error {
	if Program == nil {
		NewProgram(opts)
	}
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
