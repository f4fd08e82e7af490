package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Stennix/tilemerge/cmd"
	"github.com/Stennix/tilemerge/internal/buildinfo"
	"github.com/Stennix/tilemerge/internal/conf"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=... -X main.commit=..."
var (
	version   = "dev"
	buildDate = buildinfo.UnknownValue
	commit    = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := conf.NewContext(buildinfo.NewContext(version, buildDate, commit))
	defer func() {
		if err := ctx.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.RootCommand(ctx).ExecuteContext(sigCtx); err != nil {
		cmd.PrintError(os.Stderr, err)
		return 1
	}
	return 0
}
