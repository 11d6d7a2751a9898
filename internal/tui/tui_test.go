// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"loopfx/internal/audio"
	"loopfx/internal/effects"
	"loopfx/internal/region"
	"loopfx/internal/source"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeControls struct {
	status    audio.Status
	params    *effects.Parameters
	toggles   int
	cleared   int
	seeks     []float64
	regions   []region.Region
	loads     []string
	loadErr   error
	recordErr error
}

func newFakeControls() *fakeControls {
	return &fakeControls{
		status: audio.Status{Path: "/tmp/loop.wav", Length: 10, Position: 4, CrossfadeMs: 10},
		params: effects.NewParameters(),
	}
}

func (f *fakeControls) TogglePlay() {
	f.toggles++
	f.status.Playing = !f.status.Playing
}

func (f *fakeControls) CycleMode() region.Mode {
	f.status.Mode = f.status.Mode.Next()
	return f.status.Mode
}

func (f *fakeControls) SetPosition(sec float64) {
	f.seeks = append(f.seeks, sec)
	f.status.Position = sec
}

func (f *fakeControls) LoopRegion(start, end float64) bool {
	r := region.Region{Start: start, End: end}.Clamp(f.status.Length)
	if r.Empty() {
		return false
	}
	f.regions = append(f.regions, r)
	f.status.Region = r
	if !f.status.Mode.Bounded() {
		f.status.Mode = region.FixedRegionLoop
	}
	return true
}

func (f *fakeControls) Load(path string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loads = append(f.loads, path)
	return nil
}

func (f *fakeControls) SetCrossfadeMs(ms float64) { f.status.CrossfadeMs = ms }
func (f *fakeControls) ClearSafety()              { f.cleared++; f.status.SafetyTripped = false }
func (f *fakeControls) Status() audio.Status      { return f.status }
func (f *fakeControls) Params() *effects.Parameters {
	return f.params
}

func (f *fakeControls) StartRecording() (string, error) {
	if f.recordErr != nil {
		return "", f.recordErr
	}
	f.status.Recording = true
	return "/tmp/rec.wav", nil
}

func (f *fakeControls) StopRecording() error {
	f.status.Recording = false
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m ControlModel, msgs ...tea.Msg) (ControlModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(ControlModel)
	}
	return m, cmd
}

func TestControlKeys(t *testing.T) {
	tests := []struct {
		name  string
		keys  []tea.Msg
		check func(t *testing.T, f *fakeControls)
	}{
		{"space toggles", []tea.Msg{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}}, func(t *testing.T, f *fakeControls) {
			if f.toggles != 1 || !f.status.Playing {
				t.Errorf("toggles = %d playing = %v", f.toggles, f.status.Playing)
			}
		}},
		{"m cycles mode", []tea.Msg{runes("m"), runes("m")}, func(t *testing.T, f *fakeControls) {
			if f.status.Mode != region.FixedRegionLoop {
				t.Errorf("mode = %v, want region", f.status.Mode)
			}
		}},
		{"seek clamps at zero", []tea.Msg{tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft},
			tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft}},
			func(t *testing.T, f *fakeControls) {
				if got := f.seeks[len(f.seeks)-1]; got != 0 {
					t.Errorf("last seek = %v, want 0", got)
				}
			}},
		{"crossfade steps", []tea.Msg{runes("]"), runes("]"), runes("[")}, func(t *testing.T, f *fakeControls) {
			if f.status.CrossfadeMs != 15 {
				t.Errorf("crossfade = %v, want 15", f.status.CrossfadeMs)
			}
		}},
		{"c clears safety", []tea.Msg{runes("c")}, func(t *testing.T, f *fakeControls) {
			if f.cleared != 1 {
				t.Errorf("cleared = %d, want 1", f.cleared)
			}
		}},
		{"r toggles recording", []tea.Msg{runes("r")}, func(t *testing.T, f *fakeControls) {
			if !f.status.Recording {
				t.Error("recording not started")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeControls()
			send(NewControlModel(f, nil, "loopfx"), tt.keys...)
			tt.check(t, f)
		})
	}
}

func TestRegionMarks(t *testing.T) {
	tests := []struct {
		name string
		pos  []float64 // playhead before each key
		keys []string
		want region.Region
	}{
		{"start runs to the end of the file", []float64{4}, []string{"s"}, region.Region{Start: 4, End: 10}},
		{"end runs from the top", []float64{4}, []string{"e"}, region.Region{Start: 0, End: 4}},
		{"start then end", []float64{4, 7}, []string{"s", "e"}, region.Region{Start: 4, End: 7}},
		{"end before start restarts from the top", []float64{6, 3}, []string{"s", "e"}, region.Region{Start: 0, End: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeControls()
			m := NewControlModel(f, nil, "loopfx")
			for i, k := range tt.keys {
				f.status.Position = tt.pos[i]
				m, _ = send(m, tickMsg{}, runes(k))
			}
			if got := f.status.Region; got != tt.want {
				t.Errorf("region = %+v, want %+v", got, tt.want)
			}
			if f.status.Mode != region.FixedRegionLoop {
				t.Errorf("mode = %v, want region", f.status.Mode)
			}
		})
	}
}

func TestRegionMarkWithoutFile(t *testing.T) {
	f := newFakeControls()
	f.status.Length = 0
	m, _ := send(NewControlModel(f, nil, "loopfx"), runes("s"))
	if len(f.regions) != 0 {
		t.Errorf("regions = %v, want none", f.regions)
	}
	if !strings.Contains(m.View(), "no file loaded") {
		t.Error("missing hint")
	}
}

func TestOpenPrompt(t *testing.T) {
	f := newFakeControls()
	m, _ := send(NewControlModel(f, nil, "loopfx"), runes("o"), runes("/tmp/q.wav"))
	if !m.prompting || m.quitting {
		t.Fatalf("prompting = %v quitting = %v, want the q typed into the prompt", m.prompting, m.quitting)
	}
	if m.prompt.Value() != "/tmp/q.wav" {
		t.Errorf("prompt = %q", m.prompt.Value())
	}
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(f.loads) != 1 || f.loads[0] != "/tmp/q.wav" {
		t.Errorf("loads = %v", f.loads)
	}
	if m.prompting || !strings.Contains(m.View(), "loading q.wav") {
		t.Error("prompt did not close with a loading message")
	}

	m, _ = send(m, runes("o"), runes("/tmp/x.wav"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.prompting || len(f.loads) != 1 {
		t.Errorf("esc should cancel: prompting = %v loads = %v", m.prompting, f.loads)
	}

	f.loadErr = errors.New("load already pending")
	m, _ = send(m, runes("o"), runes("/tmp/y.wav"), tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), "load already pending") {
		t.Error("load error not shown")
	}
}

func TestParamNudge(t *testing.T) {
	f := newFakeControls()
	m := NewControlModel(f, nil, "loopfx")

	spec := effects.SpecOf(effects.Gain)
	send(m, runes("+"))
	want := spec.Default + (spec.Max-spec.Min)/paramSteps
	if got := f.params.Get(effects.Gain); got != want {
		t.Errorf("gain = %v, want %v", got, want)
	}

	// Walk down to the tremolo switch and toggle it.
	var msgs []tea.Msg
	for range int(effects.TremoloEnabled) {
		msgs = append(msgs, tea.KeyMsg{Type: tea.KeyDown})
	}
	msgs = append(msgs, runes("+"))
	send(m, msgs...)
	if f.params.Get(effects.TremoloEnabled) != 1 {
		t.Error("tremolo not enabled")
	}
}

func TestRecordingErrorShown(t *testing.T) {
	f := newFakeControls()
	f.recordErr = errors.New("disk full")
	m, _ := send(NewControlModel(f, nil, "loopfx"), runes("r"))
	if !strings.Contains(m.View(), "disk full") {
		t.Error("recording error not shown")
	}
}

func TestQuit(t *testing.T) {
	_, cmd := send(NewControlModel(newFakeControls(), nil, "loopfx"), runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestBridgeFeedsModel(t *testing.T) {
	b := NewBridge(4)
	b.OnAssetLoaded("/tmp/loop.wav", 10, []source.Span{{Min: -1, Max: 1}})
	b.OnRegionChanged(0.2, 0.4, "#FF0000", "#00FF00")

	f := newFakeControls()
	f.status.Mode = region.RandomRegion
	m := NewControlModel(f, b, "loopfx")

	m, cmd := send(m, b.wait()())
	if len(m.overview) != 1 || cmd == nil {
		t.Fatalf("overview = %v, cmd = %v", m.overview, cmd)
	}
	m, _ = send(m, cmd())
	if m.regionStart != 0.2 || m.regionEnd != 0.4 {
		t.Errorf("region = [%v, %v], want [0.2, 0.4]", m.regionStart, m.regionEnd)
	}
	if !strings.Contains(m.View(), "loop.wav") {
		t.Error("view missing file name")
	}
}

func TestBridgeDropsWhenFull(t *testing.T) {
	b := NewBridge(1)
	b.OnPlaybackEnded()
	b.OnPlaybackEnded()
	if b.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", b.Dropped())
	}
}

func TestSafetyBanner(t *testing.T) {
	f := newFakeControls()
	f.status.SafetyTripped = true
	f.status.SafetyPeak = 1.7
	m := NewControlModel(f, nil, "loopfx")
	if !strings.Contains(m.View(), "OUTPUT MUTED") {
		t.Error("safety banner missing")
	}
}

func TestDevicePicker(t *testing.T) {
	devices := []audio.Device{
		{ID: 0, Name: "Mic", MaxInputChannels: 2},
		{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 2, Name: "Headphones", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	}
	var model tea.Model = NewDeviceListModel(devices)
	msgs := []tea.Msg{
		tea.WindowSizeMsg{Width: 80, Height: 24},
		tea.KeyMsg{Type: tea.KeyEnter}, // Speakers, 48 kHz preselected
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter},
	}
	var cmd tea.Cmd
	for _, msg := range msgs {
		model, cmd = model.Update(msg)
	}
	sel, ok := model.(DeviceListModel).Selection()
	if !ok {
		t.Fatal("no selection")
	}
	if sel.DeviceID != 1 || sel.SampleRate != 88200 {
		t.Errorf("selection = %+v, want device 1 at 88200", sel)
	}
	if cmd == nil {
		t.Error("confirming did not quit")
	}
}
