package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/dmitrymomot/spool/pkg/config"
	"github.com/dmitrymomot/spool/pkg/logger"
	"github.com/dmitrymomot/spool/pkg/pg"
	"github.com/dmitrymomot/spool/pkg/preflight"
	"github.com/dmitrymomot/spool/pkg/queue"
	"github.com/dmitrymomot/spool/pkg/redis"
)

// work runs one worker life. Tasks are handed to COMMAND, one process per
// task with the task as JSON on stdin; without a command they are logged
// and acknowledged.
func work(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("work", flag.ContinueOnError)
	fs.SetOutput(stderr)
	retire := fs.Bool("retire", false, "exit once no task is eligible")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}

	e, err := openEnv(ctx, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	checks, err := e.preflight(ctx)
	if err != nil {
		return err
	}

	d := queue.NewDispatcher()
	if command := fs.Args(); len(command) > 0 {
		d.OnAnyTask(execHandler(command, stderr))
	} else {
		d.OnAnyTask(queue.HandlerFunc(func(ctx context.Context, ev queue.Event) error {
			e.log.InfoContext(ctx, "task received",
				logger.TaskType(ev.Type), logger.TaskID(ev.ID), logger.Slot(ev.Slot))
			return nil
		}))
	}

	opts := []queue.WorkerOption{queue.WithPreflight(checks), queue.WithDispatcher(d)}
	if *retire {
		opts = append(opts, queue.WithRetireWhenIdle())
	}

	w, err := e.queue.NewWorker(opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// preflight assembles the environment checks enabled by configuration.
func (e *env) preflight(ctx context.Context) (*preflight.Checker, error) {
	checks := preflight.New(preflight.WithLogger(e.log))

	if len(e.cfg.WatchFiles) > 0 {
		check, err := preflight.ConfigFingerprint(e.cfg.WatchFiles...)
		if err != nil {
			return nil, err
		}
		checks.Add("config", check)
	}

	if e.cfg.DatabasePreflight || e.cfg.MaxReplicaLag > 0 {
		var pcfg pg.Config
		if err := config.Load(&pcfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pcfg)
		if err != nil {
			return nil, err
		}
		e.closer = append(e.closer, func() error { pool.Close(); return nil })

		if e.cfg.DatabasePreflight {
			checks.Add("database", pg.Healthcheck(pool))
		}
		if e.cfg.MaxReplicaLag > 0 {
			checks.Add("replica_lag", pg.ReplicaLagCheck(pool, e.cfg.MaxReplicaLag))
		}
	}

	if e.redis != nil {
		checks.Add("redis", redis.Healthcheck(e.redis))
	}

	return checks, nil
}

type taskMessage struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Data        map[string]any `json:"data,omitempty"`
}

func execHandler(command []string, stderr io.Writer) queue.Handler {
	return queue.HandlerFunc(func(ctx context.Context, ev queue.Event) error {
		body, err := json.Marshal(taskMessage{
			Type:        ev.Type,
			ID:          ev.ID,
			ScheduledAt: ev.ScheduledAt,
			Data:        ev.Data,
		})
		if err != nil {
			return err
		}

		cmd := exec.CommandContext(ctx, command[0], command[1:]...)
		cmd.Stdin = bytes.NewReader(body)
		cmd.Stdout = stderr
		cmd.Stderr = stderr
		cmd.Env = append(os.Environ(),
			"SPOOL_TASK_TYPE="+ev.Type,
			"SPOOL_TASK_ID="+ev.ID,
			"SPOOL_SLOT="+strconv.Itoa(ev.Slot),
			"SPOOL_WORKER_ID="+ev.WorkerID,
		)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s: %w", command[0], err)
		}
		return nil
	})
}
