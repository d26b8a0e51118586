package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dvx/internal/shared"
	"github.com/desertthunder/dvx/internal/tasks"
	"github.com/desertthunder/dvx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for gallery sync.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.deviantart == nil {
		return fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: sync engine not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/dvx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	baseOpts := tasks.SyncOpts{
		SourceFolder: r.config.Sync.SourceGallery,
		DestFolder:   r.config.Sync.DestGallery,
		TopN:         r.config.Sync.TopN,
		MaxAgeDays:   r.config.Sync.MaxAgeDays,
	}
	if baseOpts.TopN == 0 {
		baseOpts.TopN = 20
	}

	model := ui.NewModel(ctx, r.deviantart, r.engine, baseOpts)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiCommand returns the top-level TUI command for interactive gallery sync.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for gallery sync",
		Action:  r.TUI,
	}
}
