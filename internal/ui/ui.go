// Package ui is the development simulator: it draws the 1-bpp display frame
// as terminal half-blocks and maps keyboard input onto the three hardware
// buttons, so the whole menu can be exercised without the appliance.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alschwalm/piso/internal/bitmap"
	"github.com/alschwalm/piso/internal/menu"
)

// Options configure the simulator runtime.
type Options struct {
	Context context.Context
	Menu    *menu.PISO
	Version string
}

// Run blocks until the operator quits or a fatal error stops the menu.
func Run(opts Options) error {
	if opts.Menu == nil {
		return fmt.Errorf("ui requires a menu controller")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	m := newModel(opts)
	p := tea.NewProgram(m, tea.WithContext(opts.Context))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run simulator: %w", err)
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

type model struct {
	ctx     context.Context
	menu    *menu.PISO
	keys    keyMap
	version string

	frame bitmap.Bitmap
	err   error
}

func newModel(opts Options) model {
	return model{
		ctx:     opts.Context,
		menu:    opts.Menu,
		keys:    defaultKeyMap(),
		version: opts.Version,
	}
}

// Init renders the first frame.
func (m model) Init() tea.Cmd {
	return func() tea.Msg { return refreshMsg{} }
}

type refreshMsg struct{}

// Update feeds key presses through the menu's focus chain and re-renders.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		return m.refresh()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Select):
			return m.handle(menu.EventSelect)
		case key.Matches(msg, m.keys.Next):
			return m.handle(menu.EventNext)
		case key.Matches(msg, m.keys.Prev):
			return m.handle(menu.EventPrev)
		}
	}
	return m, nil
}

func (m model) handle(ev menu.Event) (tea.Model, tea.Cmd) {
	if err := m.menu.HandleEvent(ev); err != nil {
		m.err = err
		return m, tea.Quit
	}
	return m.refresh()
}

func (m model) refresh() (tea.Model, tea.Cmd) {
	frame, err := m.menu.RenderFrame(m.ctx)
	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	if m.menu.Flipped() {
		frame = frame.Mirror()
	}
	m.frame = frame
	return m, nil
}

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("252"))
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// View draws the frame two pixel rows per terminal line using half-blocks.
func (m model) View() string {
	if m.err != nil {
		return "fatal: " + m.err.Error() + "\n"
	}
	return panelStyle.Render(renderHalfBlocks(m.frame)) + "\n" +
		footerStyle.Render("piso "+m.version+"  enter select · up/down navigate · q quit") + "\n"
}

func renderHalfBlocks(frame bitmap.Bitmap) string {
	var out []byte
	for y := 0; y < frame.Height(); y += 2 {
		if y > 0 {
			out = append(out, '\n')
		}
		for x := 0; x < frame.Width(); x++ {
			top := frame.Get(x, y)
			bottom := frame.Get(x, y+1)
			switch {
			case top && bottom:
				out = append(out, "█"...)
			case top:
				out = append(out, "▀"...)
			case bottom:
				out = append(out, "▄"...)
			default:
				out = append(out, ' ')
			}
		}
	}
	return string(out)
}
