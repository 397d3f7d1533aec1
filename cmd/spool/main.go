// Command spool operates a task spool: it runs workers, enqueues tasks,
// reports status, manages slots and producer tokens, and serves the HTTP API.
//
// Configuration comes from the environment (QUEUE_*, LOG_*, PG_*, REDIS_*,
// HTTP_*) and an optional .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/spool/pkg/preflight"
	"github.com/dmitrymomot/spool/pkg/queue"
)

// Exit statuses. The worker's own timeout hook also exits with exitTimeout.
const (
	exitOK      = 0
	exitError   = 1
	exitTimeout = 2
	exitDrift   = 3
	exitUsage   = 64
)

const usage = `usage: spool <command> [arguments]

commands:
  work [-retire] [-- COMMAND ARGS...]      run one worker life
  enqueue [-at RFC3339 | -delay DURATION] TYPE ID [JSON]
  status                                  print queue counts as JSON
  release-slot [-force] N                 free a worker slot
  tokens                                  print producer tokens
  serve                                   run the HTTP API
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := exitCode(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "work":
		return work(ctx, rest, stderr)
	case "enqueue":
		return enqueue(ctx, rest, stdout, stderr)
	case "status":
		return status(ctx, stdout, stderr)
	case "release-slot":
		return releaseSlot(ctx, rest, stdout, stderr)
	case "tokens":
		return tokens(ctx, stdout, stderr)
	case "serve":
		return serve(ctx, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "spool: unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

var errUsage = errors.New("spool: invalid usage")

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errUsage) {
		return exitUsage
	}

	fmt.Fprintln(os.Stderr, "spool:", err)
	switch {
	case preflight.IsFatal(err):
		return exitDrift
	case errors.Is(err, queue.ErrTaskTimeout):
		return exitTimeout
	default:
		return exitError
	}
}
