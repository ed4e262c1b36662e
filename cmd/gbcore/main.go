// Command gbcore is a thin CLI over the core engine, exercising the
// worktree lock, ref-metadata store, oplog, and rebase-backed
// operations from a terminal the way the teacher's CLI drives its own
// spice.Service.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		cancel()
	}()

	var cmd rootCmd
	kctx := kong.Parse(
		&cmd,
		kong.Name("gbcore"),
		kong.Description("gbcore drives the core version-control engine: stacks, rebases, snapshots, and worktrees."),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)

	kctx.FatalIfErrorf(kctx.Run())
}
