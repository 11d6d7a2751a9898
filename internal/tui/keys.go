// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play      key.Binding
	Mode      key.Binding
	SeekBack  key.Binding
	SeekFwd   key.Binding
	MarkStart key.Binding
	MarkEnd   key.Binding
	Open      key.Binding
	FadeDown  key.Binding
	FadeUp    key.Binding
	PrevParam key.Binding
	NextParam key.Binding
	Decrease  key.Binding
	Increase  key.Binding
	Clear     key.Binding
	Record    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/stop")),
	Mode:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "loop mode")),
	SeekBack:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "seek -1s")),
	SeekFwd:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "seek +1s")),
	MarkStart: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "loop start here")),
	MarkEnd:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "loop end here")),
	Open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open file")),
	FadeDown:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "crossfade -")),
	FadeUp:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "crossfade +")),
	PrevParam: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev param")),
	NextParam: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next param")),
	Decrease:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "decrease")),
	Increase:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "increase")),
	Clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear safety")),
	Record:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Mode, k.MarkStart, k.MarkEnd, k.Open, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Mode, k.SeekBack, k.SeekFwd},
		{k.MarkStart, k.MarkEnd, k.FadeDown, k.FadeUp},
		{k.PrevParam, k.NextParam, k.Decrease, k.Increase},
		{k.Open, k.Clear, k.Record, k.Help, k.Quit},
	}
}
