package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pitch-velocity/config"
	"pitch-velocity/debug"
	"pitch-velocity/engine"
	"pitch-velocity/midi"
	"pitch-velocity/theme"
	"pitch-velocity/velocity"
	"pitch-velocity/widgets"
)

const (
	frameRate   = 30
	barWidth    = 24
	curveHeight = 10
	minCurveW   = 16
	maxCurveW   = 128
)

// rows of the parameter editor
const (
	rowMin = iota
	rowMax
	rowCurve
	rowBypass
	rowCount
)

var rowParams = [...]velocity.Parameter{
	rowMin:   velocity.MinVelocityParam,
	rowMax:   velocity.MaxVelocityParam,
	rowCurve: velocity.CurveParam,
}

var keyHelp = []widgets.KeySection{
	{Title: "Parameters", Keys: []widgets.KeyBinding{
		{Key: "↑ ↓ / k j", Desc: "select parameter"},
		{Key: "← → / h l", Desc: "adjust by one step"},
		{Key: "H L / [ ]", Desc: "adjust by ten steps"},
		{Key: "0-9", Desc: "jump along the slider"},
		{Key: "b / space", Desc: "toggle bypass"},
		{Key: "r", Desc: "reset to defaults"},
	}},
	{Title: "General", Keys: []widgets.KeyBinding{
		{Key: "s", Desc: "save config"},
		{Key: "?", Desc: "toggle this help"},
		{Key: "q", Desc: "quit"},
	}},
}

type Model struct {
	Engine    *engine.Manager
	DeviceMgr *midi.DeviceManager // nil when ports are fixed at startup
	Theme     *theme.Theme
	Config    *config.Config

	selected int
	status   string
	quitting bool
	showHelp bool
	width    int

	save func(*config.Config) error
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type tickMsg time.Time

func NewModel(eng *engine.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme, cfg *config.Config) Model {
	return Model{
		Engine:    eng,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Config:    cfg,
		width:     80,
		save:      (*config.Config).Save,
	}
}

func ListenForUpdates(eng *engine.Manager) tea.Cmd {
	return func() tea.Msg {
		<-eng.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Engine), tick()}
	if m.DeviceMgr != nil {
		cmds = append(cmds, ListenForDevices(m.DeviceMgr))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Engine)

	case tickMsg:
		return m, tick()

	case DeviceEventMsg:
		m.handleDevice(midi.DeviceEvent(msg))
		if m.DeviceMgr != nil {
			return m, ListenForDevices(m.DeviceMgr)
		}
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp

	case "up", "k":
		m.selected = (m.selected + rowCount - 1) % rowCount

	case "down", "j":
		m.selected = (m.selected + 1) % rowCount

	case "left", "h":
		m.step(-1)

	case "right", "l":
		m.step(1)

	case "H", "[":
		m.step(-10)

	case "L", "]":
		m.step(10)

	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.jump(float64(key[0]-'0') / 9)

	case "b", " ":
		if err := m.Engine.Update(func(p *velocity.Params) { p.Bypass = !p.Bypass }); err != nil {
			m.status = err.Error()
		}

	case "r":
		if err := m.Engine.SetParams(velocity.DefaultParams()); err != nil {
			m.status = err.Error()
		} else {
			m.status = "reset to defaults"
		}

	case "s":
		m.Config.Params = m.Engine.Params()
		if err := m.save(m.Config); err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
			debug.Log("config", "save: %v", err)
		} else {
			m.status = "saved"
		}
	}
	return m, nil
}

// step moves the selected parameter by n steps; on the bypass row any step toggles
func (m *Model) step(n int) {
	var err error
	switch m.selected {
	case rowBypass:
		err = m.Engine.Update(func(p *velocity.Params) { p.Bypass = !p.Bypass })
	case rowMin:
		err = m.Engine.Update(func(p *velocity.Params) {
			p.MinVelocity = velocity.MinVelocityParam.Snap(p.MinVelocity + float64(n)*velocity.MinVelocityParam.Step)
		})
	case rowMax:
		err = m.Engine.Update(func(p *velocity.Params) {
			p.MaxVelocity = velocity.MaxVelocityParam.Snap(p.MaxVelocity + float64(n)*velocity.MaxVelocityParam.Step)
		})
	case rowCurve:
		err = m.Engine.Update(func(p *velocity.Params) {
			p.Curve = velocity.CurveParam.Snap(p.Curve + float64(n)*velocity.CurveParam.Step)
		})
	}
	if err != nil {
		m.status = err.Error()
	}
}

// jump moves the selected slider to a position along its travel (0-1).
// Skewed parameters follow the same travel the slider draws.
func (m *Model) jump(norm float64) {
	if m.selected == rowBypass {
		return
	}
	param := rowParams[m.selected]
	v := param.Snap(param.Denormalize(norm))

	err := m.Engine.Update(func(p *velocity.Params) {
		switch m.selected {
		case rowMin:
			p.MinVelocity = v
		case rowMax:
			p.MaxVelocity = v
		case rowCurve:
			p.Curve = v
		}
	})
	if err != nil {
		m.status = err.Error()
	}
}

func (m *Model) handleDevice(ev midi.DeviceEvent) {
	switch ev.Type {
	case midi.DeviceConnected:
		if ev.Dir == midi.DirIn && ev.Input != nil {
			m.Engine.Attach(ev.Input)
		} else if ev.Dir == midi.DirOut && ev.Output != nil {
			m.Engine.SetOutput(ev.Output)
		}
		m.status = fmt.Sprintf("%s connected: %s", ev.Dir, ev.Name)

	case midi.DeviceDisconnected:
		if ev.Dir == midi.DirOut {
			if out := m.Engine.Output(); out != nil && out.ID() == ev.Name {
				m.Engine.SetOutput(nil)
			}
		}
		m.status = fmt.Sprintf("%s disconnected: %s", ev.Dir, ev.Name)

	case midi.DeviceFailed:
		m.status = fmt.Sprintf("%s failed: %s: %v", ev.Dir, ev.Name, ev.Err)
	}
	debug.Log("device", "%s", m.status)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	p := m.Engine.Params()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	header := "pitch-velocity"
	if p.Bypass {
		header += "  " + warnStyle.Render("BYPASS")
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(header))
	out.WriteString("\n\n")
	out.WriteString(m.paramsView(p, fgStyle, cursorStyle))
	out.WriteString("\n\n")
	out.WriteString(m.curveView(p))
	out.WriteString("\n\n")
	out.WriteString(m.portsView(fgStyle, dimStyle))
	out.WriteString("\n")
	out.WriteString(m.statsView(dimStyle))
	out.WriteString("\n\n")
	out.WriteString(m.recentView(fgStyle, dimStyle))
	out.WriteString("\n")

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(fgStyle.Render(m.status))
	}
	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(keyHelp)))
	} else {
		out.WriteString(dimStyle.Render("↑↓:select  ←→/hl:adjust  H/L:×10  b:bypass  r:reset  s:save  ?:help  q:quit"))
	}

	return out.String()
}

func (m Model) paramsView(p velocity.Params, fg, cursor lipgloss.Style) string {
	values := [...]float64{rowMin: p.MinVelocity, rowMax: p.MaxVelocity, rowCurve: p.Curve}
	sym := m.Theme.Symbols

	var lines []string
	for row := 0; row < rowCount; row++ {
		marker := "  "
		if row == m.selected {
			marker = cursor.Render(string(sym.Selected)) + " "
		}

		if row == rowBypass {
			state := "off"
			if p.Bypass {
				state = "on"
			}
			lines = append(lines, fmt.Sprintf("%s%-14s %s", marker, "Bypass", fg.Render(state)))
			continue
		}

		param := rowParams[row]
		v := values[row]
		norm := param.Normalize(v)
		c := m.Theme.Palette.Lookup(norm)
		bar := widgets.RenderBar(norm, barWidth, sym.BarFull, sym.BarEmpty, c)
		lines = append(lines, fmt.Sprintf("%s%-14s %s %6s", marker, param.Name, bar, fg.Render(param.Format(v))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) curveView(p velocity.Params) string {
	width := m.width - 6
	if width < minCurveW {
		width = minCurveW
	}
	if width > maxCurveW {
		width = maxCurveW
	}

	sym := m.Theme.Symbols
	style := widgets.CurveStyle{
		Point:       sym.CurvePoint,
		Fill:        sym.CurveFill,
		Axis:        sym.CurveAxis,
		Marker:      m.lastNote(),
		MarkerColor: m.Theme.Palette.Lookup(theme.RoleSuccess),
	}
	if !p.Bypass {
		pal := m.Theme.Palette
		style.Color = func(v int) [3]uint8 { return pal.Lookup(float64(v) / 127) }
	} else {
		muted := m.Theme.Palette.Lookup(theme.RoleMuted)
		style.Color = func(int) [3]uint8 { return muted }
	}

	graph := widgets.RenderCurve(velocity.Table(p), width, curveHeight, style)
	if style.Marker < 0 {
		return graph
	}
	legend := widgets.RenderLegendItem(style.MarkerColor, midi.NoteName(uint8(style.Marker)), "last note played")
	return graph + "\n" + legend
}

// lastNote returns the most recent routed note-on, or -1
func (m Model) lastNote() int {
	recent := m.Engine.Recent()
	for i := len(recent) - 1; i >= 0; i-- {
		if r := recent[i]; r.In.Kind == midi.NoteOn && !r.Dropped {
			return int(r.In.Note)
		}
	}
	return -1
}

func (m Model) portsView(fg, dim lipgloss.Style) string {
	in, out := "-", "-"
	if m.DeviceMgr != nil {
		if name, _ := m.DeviceMgr.Connected(); name != "" {
			in = name
		}
	}
	if o := m.Engine.Output(); o != nil {
		out = o.ID()
	}
	return dim.Render("in: ") + fg.Render(in) + dim.Render("   out: ") + fg.Render(out)
}

func (m Model) statsView(dim lipgloss.Style) string {
	s := m.Engine.Stats()
	line := fmt.Sprintf("in:%d out:%d remapped:%d dropped:%d", s.In, s.Out, s.Remapped, s.Dropped)
	if s.Overflow > 0 || s.Unsent > 0 || s.SendErrors > 0 {
		line += fmt.Sprintf(" overflow:%d unsent:%d errors:%d", s.Overflow, s.Unsent, s.SendErrors)
	}
	return dim.Render(line)
}

func (m Model) recentView(fg, dim lipgloss.Style) string {
	recent := m.Engine.Recent()
	if len(recent) == 0 {
		return dim.Render("no events yet")
	}

	var lines []string
	for _, r := range recent {
		switch {
		case r.Dropped:
			lines = append(lines, dim.Render(fmt.Sprintf("%s  dropped", r.In)))
		case r.In.Kind == midi.NoteOn && r.In.Velocity != r.Out.Velocity:
			vel := lipgloss.NewStyle().Foreground(m.Theme.Velocity(int(r.Out.Velocity)))
			lines = append(lines, fg.Render(r.In.String())+"  → "+vel.Render(fmt.Sprintf("vel %d", r.Out.Velocity)))
		default:
			lines = append(lines, fg.Render(r.In.String()))
		}
	}
	return strings.Join(lines, "\n")
}
