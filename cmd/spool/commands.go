package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/spool/pkg/queue"
)

func enqueue(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	at := fs.String("at", "", "schedule at an RFC 3339 time")
	delay := fs.Duration("delay", 0, "schedule after a delay")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}
	if fs.NArg() < 2 || fs.NArg() > 3 {
		fmt.Fprintln(stderr, "usage: spool enqueue [-at RFC3339 | -delay DURATION] TYPE ID [JSON]")
		return errUsage
	}
	if *at != "" && *delay != 0 {
		fmt.Fprintln(stderr, "spool enqueue: -at and -delay are exclusive")
		return errUsage
	}

	var opts []queue.EnqueueOption
	if fs.NArg() == 3 {
		var data map[string]any
		dec := json.NewDecoder(strings.NewReader(fs.Arg(2)))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("spool enqueue: payload must be a JSON object: %w", err)
		}
		opts = append(opts, queue.WithData(data))
	}
	switch {
	case *at != "":
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("spool enqueue: -at: %w", err)
		}
		opts = append(opts, queue.WithScheduledAt(t))
	case *delay > 0:
		opts = append(opts, queue.WithDelay(*delay))
	}

	e, err := openEnv(ctx, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	task, err := e.queue.Add(ctx, fs.Arg(0), fs.Arg(1), opts...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, task.Record)
	return nil
}

func status(ctx context.Context, stdout, stderr io.Writer) error {
	e, err := openEnv(ctx, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(e.queue.Status(ctx))
}

func releaseSlot(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("release-slot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "clear a slot this process does not hold")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: spool release-slot [-force] N")
		return errUsage
	}
	n, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "spool release-slot: invalid slot %q\n", fs.Arg(0))
		return errUsage
	}

	e, err := openEnv(ctx, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	released, err := e.queue.ReleaseSlot(ctx, n, *force)
	if err != nil {
		return err
	}
	if !released {
		return fmt.Errorf("spool release-slot: slot %d is held by a live worker", n)
	}
	fmt.Fprintf(stdout, "slot %d released\n", n)
	return nil
}

func tokens(ctx context.Context, stdout, stderr io.Writer) error {
	e, err := openEnv(ctx, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	list, err := e.queue.Tokens(ctx)
	if err != nil {
		return err
	}
	for _, tok := range list {
		fmt.Fprintln(stdout, tok)
	}
	return nil
}
