package viewer

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Reload     key.Binding
	NextLegend key.Binding
	PrevLegend key.Binding
	ClearFocus key.Binding
	Warnings   key.Binding
	Help       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		NextLegend: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next series"),
		),
		PrevLegend: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab", "prev series"),
		),
		ClearFocus: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear highlight"),
		),
		Warnings: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "warnings"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextLegend, k.Warnings, k.Reload, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextLegend, k.PrevLegend, k.ClearFocus},
		{k.Warnings, k.Reload},
		{k.Help, k.Quit},
	}
}
