package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vbp1/datafetch/internal/cli"
	"github.com/vbp1/datafetch/internal/failure"
	"github.com/vbp1/datafetch/internal/util/signalctx"
)

func main() {
	ctx, cancel := signalctx.WithSignals(context.Background())
	err := cli.Execute(ctx)
	cancel()
	if err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "datafetch:", err)
		}
		os.Exit(failure.ExitCode(err))
	}
}
