// Package tui renders a live dashboard for one simulation run: the
// record stream, an error pane, the run status, and the operator
// prompt, all inside a bubbletea program.
package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/lifecycle"
	"github.com/AdiPat/ai-simulator/internal/sim"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// recordMsg carries one lifecycle record and its rendered line.
type recordMsg struct {
	line string
	rec  lifecycle.Record
}

// statusMsg carries a controller status snapshot for the footer.
type statusMsg struct{ sim.Status }

// promptMsg hands the model a pending operator decision to answer.
type promptMsg struct{ reply chan sim.Decision }

type setControlMsg struct{ ctrl ControlPort }

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorGray    = "\033[90m"
	colorWhite   = "\033[97m"
)

var eventColors = map[lifecycle.EventType]string{
	lifecycle.EventStart:  colorGreen,
	lifecycle.EventStop:   colorRed,
	lifecycle.EventPause:  colorYellow,
	lifecycle.EventResume: colorGreen,
	lifecycle.EventSystem: colorCyan,
}

const maxSectionHeightPct = 0.2

// ControlPort is the slice of the controller the dashboard drives with
// its pause, resume, and status keys.
type ControlPort interface {
	Pause() error
	Resume() error
	Stop() error
	Status() sim.Status
}

// Dashboard runs a bubbletea program that doubles as a bus sink and as
// the operator console: records flow in through Write, decisions flow
// out through Prompt.
type Dashboard struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
	statusFn   func() sim.Status
}

// New starts the dashboard program in the alternate screen.
func New(cfg *config.SimulationConfig) *Dashboard {
	d := &Dashboard{done: make(chan struct{})}
	d.sendSignal.Store(true)
	m := newModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	d.program = p
	go func() {
		_ = p.Start()
		close(d.done)
		if d.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return d
}

// AttachControls registers the controller behind the pause and resume
// keys and the footer status line.
func (d *Dashboard) AttachControls(ctrl ControlPort) {
	d.statusFn = ctrl.Status
	d.program.Send(setControlMsg{ctrl: ctrl})
}

// Write implements the bus sink. Every record becomes a log line; the
// footer status refreshes alongside so it tracks the loop.
func (d *Dashboard) Write(rec lifecycle.Record) error {
	d.program.Send(recordMsg{line: renderRecordLine(rec), rec: rec})
	if d.statusFn != nil {
		d.program.Send(statusMsg{d.statusFn()})
	}
	return nil
}

// Prompt implements sim.Console. The operator answers with the x or q
// keys; every other key belongs to the dashboard, so unrecognized
// input never reaches the controller.
func (d *Dashboard) Prompt(ctx context.Context) (sim.Decision, error) {
	reply := make(chan sim.Decision, 1)
	d.program.Send(promptMsg{reply: reply})
	select {
	case dec := <-reply:
		return dec, nil
	case <-d.done:
		return sim.Quit, nil
	case <-ctx.Done():
		return sim.Quit, ctx.Err()
	}
}

// Close shuts down the program and waits for the terminal restore.
func (d *Dashboard) Close() error {
	d.sendSignal.Store(false)
	if d.program != nil {
		d.program.Send(tea.Quit())
	}
	if d.done != nil {
		<-d.done
	}
	return nil
}

func renderRecordLine(rec lifecycle.Record) string {
	ec, ok := eventColors[rec.Event]
	if !ok {
		ec = colorWhite
	}
	line := fmt.Sprintf("%s[%s]%s %s%s%s",
		colorGray, rec.Timestamp.Format(time.RFC3339), colorReset,
		ec, rec.Event, colorReset)
	if rec.Level != "" && rec.Level != lifecycle.LevelInfo {
		line += fmt.Sprintf(" %s%s%s", colorRed, strings.ToUpper(rec.Level), colorReset)
	}
	line += " " + rec.Message
	if v, ok := rec.Data["iteration"]; ok {
		line += fmt.Sprintf(" %siter=%v%s", colorYellow, v, colorReset)
	}
	if v, ok := rec.Data["sentients"]; ok {
		line += fmt.Sprintf(" %ssentients=%v%s", colorGreen, v, colorReset)
	}
	if v, ok := rec.Data["non_sentients"]; ok {
		line += fmt.Sprintf(" %snon_sentients=%v%s", colorMagenta, v, colorReset)
	}
	if v, ok := rec.Data["reason"]; ok {
		line += fmt.Sprintf(" %sreason=%v%s", colorBlue, v, colorReset)
	}
	return line
}

type model struct {
	cfg          *config.SimulationConfig
	table        table.Model
	vp           viewport.Model
	errVP        viewport.Model
	logs         []string
	errLogs      []string
	status       sim.Status
	control      ControlPort
	prompt       chan sim.Decision
	wrap         bool
	autoscroll   bool
	summary      bool
	help         bool
	showEnv      bool
	header       string
	headerHeight int
	height       int
	recordCount  int
	errorCount   int
}

func newModel(cfg *config.SimulationConfig) model {
	cols := []table.Column{
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Mode", cfg.Mode, "Iterations", fmt.Sprintf("%d", cfg.Iterations)},
		{"Sentients", fmt.Sprintf("%d", cfg.NumSentients), "Non-Sentients", fmt.Sprintf("%d", cfg.NumNonSentients)},
		{"Max Population", fmt.Sprintf("%d", cfg.MaxPopulationSize), "Spawn Rate", fmt.Sprintf("%.2f", cfg.SpawnRate)},
		{"God Event Prob", fmt.Sprintf("%.2f", cfg.GodEventProbability), "Temperature", fmt.Sprintf("%.2f", cfg.Temperature)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return model{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		errVP:      viewport.New(0, 0),
		autoscroll: true,
		showEnv:    true,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tableWidth := msg.Width
		if m.showEnv {
			tableWidth = msg.Width / 2
		}
		m.table.SetWidth(tableWidth)
		m.vp.Width = msg.Width
		m.errVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshErrors()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.prompt != nil {
				m.prompt <- sim.Quit
				m.prompt = nil
				m.updateViewportHeight()
				return m, nil
			}
			return m, tea.Quit
		case "x":
			if m.prompt != nil {
				m.prompt <- sim.Continue
				m.prompt = nil
				m.updateViewportHeight()
			}
			return m, nil
		case "p":
			if m.control != nil {
				c := m.control
				go func() { _ = c.Pause() }()
			}
			return m, nil
		case "r":
			if m.control != nil {
				c := m.control
				go func() { _ = c.Resume() }()
			}
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.errVP.GotoBottom()
			}
			return m, nil
		case "e":
			m.showEnv = !m.showEnv
			width := m.vp.Width
			if m.showEnv {
				m.table.SetWidth(width / 2)
			} else {
				m.table.SetWidth(width)
			}
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.errVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.errVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.errVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.errVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.errVP, _ = m.errVP.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case recordMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.recordCount++
		if msg.rec.IsError() {
			m.errLogs = append(m.errLogs, msg.line)
			if len(m.errLogs) > 1000 {
				m.errLogs = m.errLogs[len(m.errLogs)-1000:]
			}
			m.errorCount++
			m.updateViewportHeight()
			m.refreshErrors()
		}
		m.refreshViewport()
	case statusMsg:
		m.status = msg.Status
	case promptMsg:
		m.prompt = msg.reply
		m.updateViewportHeight()
	case setControlMsg:
		m.control = msg.ctrl
	}
	return m, nil
}

func (m *model) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())

	maxLines := m.maxSectionLines()
	errLines := len(m.errLogs)
	if errLines == 0 {
		errLines = 1
	}
	if errLines > maxLines {
		errLines = maxLines
	}
	m.errVP.Height = errLines

	errHeight := 1 + m.errVP.Height
	h := m.height - m.headerHeight - bottomHeight - errHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.errVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *model) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *model) refreshErrors() {
	content := "none"
	if len(m.errLogs) > 0 {
		content = strings.Join(m.errLogs, "\n")
	}
	m.errVP.SetContent(content)
	if m.autoscroll {
		m.errVP.GotoBottom()
	}
}

func (m model) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) View() string {
	if m.help {
		return m.renderHelp()
	}
	bottom := m.renderBottom()
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Errors:",
		m.errVP.View(),
		divider,
		bottom,
	}
	return strings.Join(sections, "\n")
}

func (m model) renderHeader() string {
	tableView := m.table.View()
	if !m.showEnv {
		return tableView
	}
	envWidth := m.vp.Width/2 - 1
	env := renderEnvironmentTree(m.cfg, m.wrap, envWidth)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, env)
}

func renderEnvironmentTree(cfg *config.SimulationConfig, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s - %s\n", cfg.Name, cfg.Description))
	keys := make([]string, 0, len(cfg.Environment))
	for k := range cfg.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		prefix := "├─"
		if i == len(keys)-1 {
			prefix = "└─"
		}
		line := fmt.Sprintf("%s %s%s%s: %v", prefix, colorCyan, k, colorReset, cfg.Environment[k])
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) renderSummary() string {
	summary := fmt.Sprintf("%sSUMMARY%s %srecords=%d%s %serrors=%d%s %siteration=%d/%d%s",
		colorBlue, colorReset,
		colorGreen, m.recordCount, colorReset,
		colorRed, m.errorCount, colorReset,
		colorYellow, m.status.Iteration, m.status.Iterations, colorReset)
	if m.status.LastEvent != "" {
		summary = fmt.Sprintf("%s %slast=%s%s", summary, colorGray, m.status.LastEvent, colorReset)
	}
	return summary
}

func (m model) renderBottom() string {
	runColor := lipgloss.Color("9")
	if m.status.Running {
		runColor = lipgloss.Color("10")
	}
	pauseColor := lipgloss.Color("10")
	if m.status.Paused {
		pauseColor = lipgloss.Color("9")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	summaryColor := lipgloss.Color("9")
	if m.summary {
		summaryColor = lipgloss.Color("10")
	}
	envColor := lipgloss.Color("10")
	if !m.showEnv {
		envColor = lipgloss.Color("9")
	}
	runIndicator := lipgloss.NewStyle().Foreground(runColor).Render("●")
	pauseIndicator := lipgloss.NewStyle().Foreground(pauseColor).Render("●")
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	summaryIndicator := lipgloss.NewStyle().Foreground(summaryColor).Render("●")
	envIndicator := lipgloss.NewStyle().Foreground(envColor).Render("●")

	state := fmt.Sprintf("%sRUN%s %siteration=%d/%d%s %ssentients=%d%s %snon_sentients=%d%s %spaused=%t%s",
		colorBlue, colorReset,
		colorYellow, m.status.Iteration, m.status.Iterations, colorReset,
		colorGreen, m.status.Sentients, colorReset,
		colorMagenta, m.status.NonSentients, colorReset,
		colorRed, m.status.Paused, colorReset)
	line := fmt.Sprintf("%s | Run %s | Live %s | Wrap %s | Scroll %s | Summary %s | Env %s",
		state, runIndicator, pauseIndicator, wrapIndicator, scrollIndicator, summaryIndicator, envIndicator)
	if m.prompt != nil {
		line = fmt.Sprintf("%s\n%sawaiting operator%s press x to continue, q to quit", line, colorYellow, colorReset)
	}
	if m.summary {
		return fmt.Sprintf("%s\n%s", m.renderSummary(), line)
	}
	return line
}

func (m model) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" x  continue to the next iteration",
		" q  quit (answers the prompt when one is pending)",
		" p  pause the simulation",
		" r  resume the simulation",
		" w  toggle wrap for record lines",
		" s  toggle auto-scroll",
		" t  toggle summary footer",
		" e  toggle environment pane",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
