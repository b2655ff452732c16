package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GraphiteEditor/graphdoc/internal/compiler"
	"github.com/GraphiteEditor/graphdoc/internal/log"
	"github.com/GraphiteEditor/graphdoc/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <document.json>",
	Short: "Recompile a document whenever its file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, shutdown, err := newCompiler(ctx)
	if err != nil {
		return err
	}
	defer shutdown()
	service := compiler.NewService(c)

	w, err := watcher.New(watcher.Config{
		Path:        path,
		DebounceDur: cfg.Watch.Debounce(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	if err != nil {
		return err
	}

	compileOnce := func() {
		network, err := loadNetwork(path)
		if err != nil {
			cmd.PrintErrf("load failed: %v\n", err)
			return
		}
		go func() {
			result := <-service.Submit(ctx, path, network)
			switch {
			case result.Superseded:
				// A newer change already queued a fresh compile.
			case result.Err != nil:
				cmd.PrintErrf("compile failed: %v\n", result.Err)
			default:
				cmd.Printf("compiled: %d nodes, %d inputs, output %d\n",
					len(result.Network.Nodes), len(result.Network.Inputs), result.Network.Output)
			}
		}()
	}

	cmd.Printf("watching %s\n", path)
	compileOnce()
	for {
		select {
		case <-onChange:
			log.Debug(log.CatWatch, "document changed", "path", path)
			compileOnce()
		case <-ctx.Done():
			cmd.Println("stopping")
			return nil
		}
	}
}
