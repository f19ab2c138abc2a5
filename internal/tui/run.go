package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"autosaver/internal/config"
	"autosaver/internal/saver"
)

// Watcher runs the engine loop and reports to a listener.
type Watcher interface {
	SetListener(l saver.Listener)
	Run(ctx context.Context) error
}

// Sender delivers a message to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Listener forwards engine events to the program behind s.
func Listener(s Sender) saver.Listener {
	return saver.ListenerFuncs{
		Error:        func(err error) { s.Send(errMsg{err: err}) },
		Log:          func(msg string) { s.Send(logMsg(msg)) },
		StoreChanged: func() { s.Send(storeChangedMsg{}) },
	}
}

// Run shows the browser until the user quits or ctx is cancelled, with w
// watching in the background. It returns the column widths as the user left
// them.
func Run(ctx context.Context, w Watcher, backend Backend, opts Options) (config.TUIConfig, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(backend, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	w.SetListener(Listener(p))
	defer w.SetListener(nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	final, err := p.Run()
	cancel()
	if werr := <-done; werr != nil && !errors.Is(werr, context.Canceled) {
		return opts.Widths, werr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return opts.Widths, err
	}

	if m, ok := final.(Model); ok {
		return m.Widths(), nil
	}
	return opts.Widths, nil
}
