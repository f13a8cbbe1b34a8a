package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap maps terminal keys onto the appliance's three buttons.
type keyMap struct {
	Select key.Binding
	Next   key.Binding
	Prev   key.Binding
	Quit   key.Binding
}

// defaultKeyMap returns the simulator key bindings.
func defaultKeyMap() keyMap {
	return keyMap{
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Next: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up", "prev"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
	}
}
