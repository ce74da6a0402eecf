// Package tui is the interactive terminal client: a navigation sidebar,
// the current view in a scrolling viewport, and the announcement line.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/atomic"

	"github.com/Iron-Ham/feedview/internal/app"
	"github.com/Iron-Ham/feedview/internal/errors"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	app     *app.Context
	ctx     context.Context
}

// New creates a new TUI application over c. c must not have been started;
// the model starts it once the program is running.
func New(ctx context.Context, c *app.Context) *App {
	return &App{
		model: NewModel(ctx, c),
		app:   c,
		ctx:   ctx,
	}
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
		tea.WithContext(a.ctx),
	)

	// Document changes arrive from router, observer and scheduler
	// goroutines. At most one notification is queued at a time; the render
	// it triggers reads the latest state.
	var pending atomic.Bool
	a.app.Doc.OnChange(func() {
		if !pending.CompareAndSwap(false, true) {
			return
		}
		go func() {
			pending.Store(false)
			a.program.Send(docChangedMsg{})
		}()
	})
	defer a.app.Doc.OnChange(nil)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		if _, ok := <-sigChan; ok {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)
	close(sigChan)

	if err != nil && !isContextDone(a.ctx, err) {
		return err
	}
	return nil
}

func isContextDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled)
}
