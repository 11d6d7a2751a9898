// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"loopfx/internal/audio"
	"loopfx/internal/effects"
	"loopfx/internal/log"
	"loopfx/internal/region"
	"loopfx/internal/source"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval  = 50 * time.Millisecond
	seekStep         = 1.0 // seconds
	crossfadeStep    = 5.0 // ms
	paramSteps       = 50
	defaultBarWidth  = 64
	defaultRegionHex = "#25A065"
	defaultHeadHex   = "#FFFDF5"
)

var waveGlyphs = []rune("▁▂▃▄▅▆▇█")

// Controls is the part of audio.Controller the control surface drives.
type Controls interface {
	TogglePlay()
	CycleMode() region.Mode
	SetPosition(sec float64)
	LoopRegion(start, end float64) bool
	Load(path string) error
	SetCrossfadeMs(ms float64)
	ClearSafety()
	Status() audio.Status
	Params() *effects.Parameters
	StartRecording() (string, error)
	StopRecording() error
}

type tickMsg time.Time

// ControlModel is the interactive transport and effect control screen.
type ControlModel struct {
	ctl    Controls
	bridge *Bridge
	title  string

	status   audio.Status
	overview []source.Span

	regionStart, regionEnd float64
	regionStyle            lipgloss.Style
	headStyle              lipgloss.Style

	params   []effects.ID
	selected int

	prompt    textinput.Model
	prompting bool

	bar      progress.Model
	help     help.Model
	width    int
	message  string
	quitting bool
}

// NewControlModel creates the control screen. bridge may be nil when no feed
// is attached.
func NewControlModel(ctl Controls, bridge *Bridge, title string) ControlModel {
	m := ControlModel{
		ctl:    ctl,
		bridge: bridge,
		title:  title,
		params: effects.All(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:   help.New(),
		width:  defaultBarWidth,
	}
	m.bar.Width = defaultBarWidth
	m.prompt = textinput.New()
	m.prompt.Prompt = "open: "
	m.prompt.Placeholder = "path/to/loop.wav"
	m.prompt.CharLimit = 1024
	m.setColors(defaultRegionHex, defaultHeadHex)
	m.status = ctl.Status()
	return m
}

func (m *ControlModel) setColors(regionHex, headHex string) {
	m.regionStyle = lipgloss.NewStyle().Background(lipgloss.Color(regionHex))
	m.headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(headHex)).Bold(true)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the refresh tick and, with a bridge, the feed listener.
func (m ControlModel) Init() tea.Cmd {
	if m.bridge == nil {
		return tick()
	}
	return tea.Batch(tick(), m.bridge.wait())
}

func (m ControlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(16, min(msg.Width-4, 120))
		m.bar.Width = m.width
		m.help.Width = msg.Width

	case tickMsg:
		m.status = m.ctl.Status()
		return m, tick()

	case regionMsg:
		m.regionStart, m.regionEnd = msg.startNorm, msg.endNorm
		m.setColors(msg.regionColor, msg.playheadColor)
		return m, m.bridge.wait()

	case safetyMsg:
		m.message = fmt.Sprintf("safety latch tripped at peak %.2f", msg.peak)
		return m, m.bridge.wait()

	case endedMsg:
		m.message = "reached the end of the file"
		return m, m.bridge.wait()

	case loadedMsg:
		m.overview = msg.overview
		m.message = fmt.Sprintf("loaded %s (%.2fs)", filepath.Base(msg.path), msg.length)
		return m, m.bridge.wait()

	case tea.KeyMsg:
		if m.prompting {
			return m.handlePrompt(msg)
		}
		return m.handleKey(msg)
	}
	if m.prompting {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handlePrompt feeds keys to the open-file prompt. Enter queues the load,
// Esc closes the prompt.
func (m ControlModel) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.closePrompt()
		m.message = "open cancelled"
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.prompt.Value())
		m.closePrompt()
		if path == "" {
			m.message = "open cancelled"
			return m, nil
		}
		if err := m.ctl.Load(path); err != nil {
			m.message = "open: " + err.Error()
			log.Errorf("Failed to queue %s: %v", path, err)
			return m, nil
		}
		m.message = "loading " + filepath.Base(path)
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *ControlModel) closePrompt() {
	m.prompting = false
	m.prompt.Blur()
	m.prompt.Reset()
}

func (m ControlModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Play):
		m.ctl.TogglePlay()

	case key.Matches(msg, keys.Mode):
		mode := m.ctl.CycleMode()
		m.message = "loop mode: " + mode.String()

	case key.Matches(msg, keys.SeekBack):
		m.ctl.SetPosition(math.Max(0, m.status.Position-seekStep))

	case key.Matches(msg, keys.SeekFwd):
		m.ctl.SetPosition(m.status.Position + seekStep)

	case key.Matches(msg, keys.MarkStart):
		m.markRegion(true)

	case key.Matches(msg, keys.MarkEnd):
		m.markRegion(false)

	case key.Matches(msg, keys.Open):
		m.prompting = true
		cmd := m.prompt.Focus()
		return m, cmd

	case key.Matches(msg, keys.FadeDown):
		m.ctl.SetCrossfadeMs(math.Max(0, m.status.CrossfadeMs-crossfadeStep))

	case key.Matches(msg, keys.FadeUp):
		m.ctl.SetCrossfadeMs(m.status.CrossfadeMs + crossfadeStep)

	case key.Matches(msg, keys.PrevParam):
		if m.selected > 0 {
			m.selected--
		}

	case key.Matches(msg, keys.NextParam):
		if m.selected < len(m.params)-1 {
			m.selected++
		}

	case key.Matches(msg, keys.Decrease):
		m.nudge(-1)

	case key.Matches(msg, keys.Increase):
		m.nudge(1)

	case key.Matches(msg, keys.Clear):
		m.ctl.ClearSafety()
		m.message = "safety latch cleared"

	case key.Matches(msg, keys.Record):
		m.toggleRecording()

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	m.status = m.ctl.Status()
	return m, nil
}

// markRegion sets one loop bound at the playhead. The other bound comes from
// the current region, or from the file edge when that would leave the region
// empty.
func (m *ControlModel) markRegion(start bool) {
	s := m.status
	if s.Length <= 0 {
		m.message = "no file loaded"
		return
	}
	lo, hi := s.Region.Start, s.Region.End
	if start {
		lo = s.Position
		if !(hi > lo) {
			hi = s.Length
		}
	} else {
		hi = s.Position
		if !(hi > lo) {
			lo = 0
		}
	}
	if !m.ctl.LoopRegion(lo, hi) {
		m.message = "loop region would be empty"
		return
	}
	m.message = fmt.Sprintf("looping %.2fs - %.2fs", lo, hi)
}

// nudge moves the selected parameter one step in dir. Booleans toggle.
func (m *ControlModel) nudge(dir float64) {
	id := m.params[m.selected]
	spec := effects.SpecOf(id)
	params := m.ctl.Params()
	if spec.Bool {
		params.Set(id, 1-params.Get(id))
		return
	}
	step := (spec.Max - spec.Min) / paramSteps
	params.Set(id, params.Get(id)+dir*step)
}

func (m *ControlModel) toggleRecording() {
	if m.status.Recording {
		if err := m.ctl.StopRecording(); err != nil {
			m.message = "stop recording: " + err.Error()
			log.Errorf("Failed to stop recording: %v", err)
			return
		}
		m.message = "recording stopped"
		return
	}
	path, err := m.ctl.StartRecording()
	if err != nil {
		m.message = "start recording: " + err.Error()
		log.Errorf("Failed to start recording: %v", err)
		return
	}
	m.message = "recording to " + path
}

func (m ControlModel) View() string {
	if m.quitting {
		return ""
	}
	s := m.status
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	name := "no file loaded"
	if s.Path != "" {
		name = filepath.Base(s.Path)
	}
	state := "stopped"
	if s.Playing {
		state = "playing"
	}
	line := fmt.Sprintf("%s  %6.2fs / %6.2fs  %s  mode %s  xfade %.0fms",
		name, s.Position, s.Length, state, s.Mode, s.CrossfadeMs)
	sb.WriteString(infoStyle.Render(line))
	if s.Recording {
		sb.WriteString("  " + alertStyle.Render("REC"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.renderWave())
	sb.WriteString("\n")
	sb.WriteString(m.bar.ViewAs(m.playhead()))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderParams())

	if s.SafetyTripped {
		sb.WriteString("\n")
		sb.WriteString(alertStyle.Render(fmt.Sprintf("OUTPUT MUTED: peak %.2f exceeded the safety limit, press c to resume", s.SafetyPeak)))
		sb.WriteString("\n")
	}
	if s.DroppedEvents > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%d feed events dropped", s.DroppedEvents)))
		sb.WriteString("\n")
	}
	if m.prompting {
		sb.WriteString("\n" + m.prompt.View() + "\n")
	} else if m.message != "" {
		sb.WriteString("\n" + dimStyle.Render(m.message) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

func (m ControlModel) playhead() float64 {
	if m.status.Length <= 0 {
		return 0
	}
	return math.Min(math.Max(m.status.Position/m.status.Length, 0), 1)
}

// renderWave draws the overview with the active region highlighted and the
// playhead marked.
func (m ControlModel) renderWave() string {
	w := m.width
	head := int(m.playhead() * float64(w-1))
	bounded := m.status.Mode.Bounded() && m.regionEnd > m.regionStart

	var sb strings.Builder
	for i := range w {
		glyph := ' '
		if len(m.overview) > 0 {
			span := m.overview[i*len(m.overview)/w]
			amp := math.Min(math.Max(math.Abs(span.Min), math.Abs(span.Max)), 1)
			glyph = waveGlyphs[int(amp*float64(len(waveGlyphs)-1))]
		}
		cell := string(glyph)
		pos := (float64(i) + 0.5) / float64(w)
		switch {
		case i == head && m.status.Length > 0:
			cell = m.headStyle.Render("│")
		case bounded && pos >= m.regionStart && pos <= m.regionEnd:
			cell = m.regionStyle.Render(cell)
		}
		sb.WriteString(cell)
	}
	return sb.String()
}

func (m ControlModel) renderParams() string {
	params := m.ctl.Params()
	var sb strings.Builder
	for i, id := range m.params {
		spec := effects.SpecOf(id)
		v := params.Get(id)
		var value string
		if spec.Bool {
			value = "off"
			if v >= 0.5 {
				value = "on"
			}
		} else {
			value = fmt.Sprintf("%.2f%s", v, spec.Unit)
		}
		line := fmt.Sprintf("  %-11s %s", spec.Label, value)
		if i == m.selected {
			line = highlightStyle.Render("▶" + line[1:])
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Run shows the control screen until the user quits or done is closed.
func Run(ctl Controls, bridge *Bridge, title string, done <-chan struct{}) error {
	p := tea.NewProgram(NewControlModel(ctl, bridge, title), tea.WithAltScreen())
	go func() {
		<-done
		p.Quit()
	}()
	_, err := p.Run()
	return err
}
