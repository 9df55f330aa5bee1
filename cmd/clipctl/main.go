package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cliphub/internal/startup"

	"github.com/alecthomas/kong"
)

// CLI is the clipctl command tree.
type CLI struct {
	Reprocess ReprocessCmd     `cmd:"" help:"Regenerate thumbnails for a clip"`
	Cleanup   CleanupCmd       `cmd:"" help:"Remove a clip's thumbnail files"`
	Status    StatusCmd        `cmd:"" help:"Show a clip and its thumbnail files"`
	Pending   PendingCmd       `cmd:"" help:"List clips without a thumbnail"`
	Orphans   OrphansCmd       `cmd:"" help:"Find thumbnail files whose clip was deleted"`
	User      UserCmd          `cmd:"" help:"Manage clip owners"`
	Version   kong.VersionFlag `help:"Show version" short:"v"`
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("clipctl"),
		kong.Description("Maintenance commands for a ClipHub data directory. Reads the same environment and .env as the server."),
		kong.UsageOnError(),
		kong.Vars{"version": startup.Version},
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(a)
	if cerr := a.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
