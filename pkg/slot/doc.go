// Package slot bounds how many workers run at once without a coordinator
// process.
//
// A Registry owns the numbered slots 1..max, each backed by one file under
// a directory and guarded by a lock.Lock. A worker takes the lowest free slot
// with Acquire and keeps it for its whole life. Slot 1 therefore reliably
// identifies the first worker.
//
//	reg, err := slot.NewRegistry(filepath.Join(root, "workers"), 3)
//	n, err := reg.Acquire(ctx)
//	if n == 0 {
//	    return // every slot is busy
//	}
//	defer reg.Release(ctx, n)
//
//	for reg.Holds(n) {
//	    // work
//	}
//
// Deleting a slot file revokes the slot: the holder keeps its lock on the
// unlinked file, but Holds reports false and the worker exits at its next
// check. ForceRelease clears a slot whose holder crashed.
package slot
