// Package spool implements a durable, filesystem-backed task spool.
//
// Every pending task is one immutable file under the spool root. The file
// name encodes the scheduled time, so a plain lexical sort of the directory
// yields tasks in scheduled order:
//
//	0001760000000.250000-000000.task
//	└── seconds ──┘└ µs ┘ └suffix┘
//
// The suffix disambiguates records scheduled for the same microsecond.
// Records are written to <root>/tmp first and hard-linked into place, which
// never overwrites an existing name and never exposes a partial record.
//
// # Record format
//
// The first line is "type,id" (at most MaxHeaderSize bytes). Everything after
// the newline is an optional JSON object (at most MaxPayloadSize bytes).
// A task without data has nothing after the newline.
//
// # Claiming
//
// GrabTask scans records oldest first. For each eligible record it tries a
// non-blocking exclusive lock; on success it re-checks that the record still
// exists, reads it and removes it, all before releasing the lock. The record's
// existence is its "unclaimed" state, so a record is handed to at most one
// claimant even when many processes scan the same directory.
//
// Records that cannot be parsed are moved to <root>/invalid while locked and
// the scan continues. A record that cannot be removed after it was read is
// reported as ErrRecordNotRemoved; callers must treat it as fatal instead of
// retrying, or they would process the same record forever.
//
// # Usage
//
//	sp, err := spool.New("/var/spool/tasks", spool.WithLocks(lock.File()))
//	if err != nil {
//	    return err
//	}
//
//	_, err = sp.AddTask(ctx, spool.Task{Type: "commit", ID: "100"})
//
//	task, err := sp.GrabTask(ctx)
//	if err != nil {
//	    return err // fatal
//	}
//	if task == nil {
//	    // nothing eligible right now
//	}
package spool
