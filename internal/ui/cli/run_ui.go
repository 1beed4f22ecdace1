package cli

import (
	"context"
	"errors"

	coreapp "modgraph/internal/core/app"

	tea "github.com/charmbracelet/bubbletea"
)

// runUI drives the terminal UI from the watch loop until the user quits or
// ctx is cancelled.
func runUI(ctx context.Context, app *coreapp.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(initialModel(nil), tea.WithAltScreen(), tea.WithContext(ctx))

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- app.Watch(ctx, func(r *coreapp.Report, err error) {
			p.Send(updateMsg{report: r, graph: app.Graph(), err: err})
		})
	}()

	_, err := p.Run()
	cancel()
	if werr := <-watchErr; werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
