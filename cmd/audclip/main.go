// SPDX-License-Identifier: EPL-2.0

// Command audclip edits, records and inspects short audio clips.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ik5/audclip/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
