package cli

import (
	"context"
	"log/slog"

	coreapp "dvamodel/internal/core/app"
	"dvamodel/internal/core/ports"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(ctx context.Context, a *coreapp.App, configPath, root string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(initialModel(root), tea.WithAltScreen(), tea.WithContext(ctx))

	sendUpdate := func(update ports.WatchUpdate) {
		p.Send(updateMsg{
			files:      a.Snapshot(),
			fileCount:  update.Files,
			modelCount: update.Models,
		})
	}
	a.SetUpdateHandler(sendUpdate)

	go func() {
		if err := a.Watch(ctx, configPath); err != nil && ctx.Err() == nil {
			slog.Error("watch stopped", "error", err)
		}
	}()

	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
