package cmd

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
	"github.com/DayDreammy/Sth-Matters-epub/internal/watcher"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the index whenever the knowledge base changes",
		Long: heredoc.Doc(`
			Watch the knowledge-base root and rebuild the index after each
			burst of changes. Events are debounced (watch.debounce, default
			500ms) and every burst triggers one full rebuild. Editing
			.sthmatters.yaml reloads the configuration.

			Stop with Ctrl+C.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, g)
		},
	}
	return cmd
}

func runWatch(cmd *cobra.Command, g *globalOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := output.New(cmd.OutOrStdout())
	p, err := g.openPipeline(cmd, true)
	if err != nil {
		return err
	}
	printIndexSummary(out, p)

	w, err := watcher.New(watchOptions(p.Config()))
	if err != nil {
		return kberrors.InternalError("failed to create watcher", err)
	}
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, p.Config().Root) }()
	out.Statusf("•", "Watching %s (Ctrl+C to stop)", p.Config().Root)

	events, errs := w.Events(), w.Errors()
	for {
		select {
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			p = g.applyBatch(cmd, out, p, batch)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch error", slog.String("error", err.Error()))
		case err := <-done:
			if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				out.Status("", "Stopped watching")
				return nil
			}
			return kberrors.InternalError("watcher failed", err)
		}
	}
}

func watchOptions(cfg *config.Config) watcher.Options {
	return watcher.Options{
		Debounce:         cfg.WatchDebounce(),
		ExcludePatterns:  cfg.ExcludePatterns(),
		Extensions:       cfg.Index.SupportedExtensions,
		RespectGitignore: cfg.RespectGitignore(),
	}
}

// applyBatch rebuilds the index for one debounced batch. A configuration
// change replaces the pipeline first. Failures are reported and the previous
// pipeline keeps serving.
func (g *globalOptions) applyBatch(cmd *cobra.Command, out *output.Writer, p *pipeline.Pipeline, batch []watcher.FileEvent) *pipeline.Pipeline {
	reload := false
	for _, ev := range batch {
		slog.Debug("change detected", slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))
		if ev.Operation == watcher.OpConfigChange {
			reload = true
		}
	}

	if reload {
		next, err := g.openPipeline(cmd, true)
		if err != nil {
			warn(cmd, err)
			return p
		}
		out.Successf("Configuration reloaded, %d files indexed", next.Index().Snapshot().Metadata().TotalFiles)
		return next
	}

	snap, err := p.Rebuild()
	if err != nil {
		warn(cmd, err)
		return p
	}
	meta := snap.Metadata()
	out.Successf("Rebuilt index v%d: %d files (%d changes)", meta.Version, meta.TotalFiles, len(batch))
	return p
}
