package queueapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/spool/pkg/queue"
	"github.com/dmitrymomot/spool/pkg/slot"
	"github.com/dmitrymomot/spool/pkg/spool"
)

// maxBodySize bounds request bodies; a record payload is capped well below.
const maxBodySize = 4 << 20

// TaskRequest is the body of POST /tasks and one element of POST /tasks/batch.
type TaskRequest struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	Data        map[string]any `json:"data,omitempty"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Delay       string         `json:"delay,omitempty"` // Go duration, e.g. "90s"
}

// TaskResponse describes a stored task.
type TaskResponse struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Record      string    `json:"record"`
}

// BatchResponse reports a bulk import.
type BatchResponse struct {
	Added int `json:"added"`
}

// ReleaseResponse reports a slot release.
type ReleaseResponse struct {
	Slot     int  `json:"slot"`
	Released bool `json:"released"`
}

func (t TaskRequest) options() ([]queue.EnqueueOption, error) {
	opts := []queue.EnqueueOption{queue.WithData(t.Data)}

	switch {
	case t.ScheduledAt != nil && t.Delay != "":
		return nil, ErrInvalidWhen
	case t.ScheduledAt != nil:
		opts = append(opts, queue.WithScheduledAt(*t.ScheduledAt))
	case t.Delay != "":
		d, err := time.ParseDuration(t.Delay)
		if err != nil || d < 0 {
			return nil, ErrInvalidDelay
		}
		opts = append(opts, queue.WithDelay(d))
	}
	return opts, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	return nil
}

func (a *api) enqueue(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, a.logger, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	opts, err := req.options()
	if err != nil {
		respondError(w, r, a.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	task, err := a.svc.Add(r.Context(), req.Type, req.ID, opts...)
	if err != nil {
		if status, ok := clientError(err); ok {
			respondError(w, r, a.logger, status, err.Error(), err)
			return
		}
		respondError(w, r, a.logger, http.StatusInternalServerError, "Failed to enqueue task", err)
		return
	}

	respondJSON(w, http.StatusCreated, TaskResponse{
		Type:        task.Type,
		ID:          task.ID,
		ScheduledAt: task.ScheduledAt,
		Record:      task.Record,
	})
}

func (a *api) enqueueBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []TaskRequest
	if err := decode(w, r, &reqs); err != nil {
		respondError(w, r, a.logger, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]queue.BatchItem, 0, len(reqs))
	for i, req := range reqs {
		if req.Delay != "" {
			err := fmt.Errorf("item %d: delay is not supported in batches", i)
			respondError(w, r, a.logger, http.StatusBadRequest, err.Error(), err)
			return
		}
		item := queue.BatchItem{Type: req.Type, ID: req.ID, Data: req.Data}
		if req.ScheduledAt != nil {
			item.ScheduledAt = *req.ScheduledAt
		}
		items = append(items, item)
	}

	added, err := a.svc.EnqueueBatch(r.Context(), items)
	switch {
	case errors.Is(err, queue.ErrBacklogged):
		respondError(w, r, a.logger, http.StatusConflict, err.Error(), err)
		return
	case errors.Is(err, queue.ErrNoItems):
		respondError(w, r, a.logger, http.StatusBadRequest, err.Error(), err)
		return
	case err != nil:
		if status, ok := clientError(err); ok {
			respondError(w, r, a.logger, status, err.Error(), err)
			return
		}
		respondError(w, r, a.logger, http.StatusInternalServerError, "Failed to import batch", err)
		return
	}

	respondJSON(w, http.StatusCreated, BatchResponse{Added: added})
}

func (a *api) releaseSlot(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		respondError(w, r, a.logger, http.StatusBadRequest, "Invalid slot number", err)
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	released, err := a.svc.ReleaseSlot(r.Context(), n, force)
	switch {
	case errors.Is(err, slot.ErrOutOfRange):
		respondError(w, r, a.logger, http.StatusNotFound, "Slot not found", err)
		return
	case errors.Is(err, slot.ErrNotHeld):
		respondError(w, r, a.logger, http.StatusConflict, "Slot not held here, use force=true", err)
		return
	case err != nil:
		respondError(w, r, a.logger, http.StatusInternalServerError, "Failed to release slot", err)
		return
	}

	respondJSON(w, http.StatusOK, ReleaseResponse{Slot: n, Released: released})
}

// clientError maps validation failures from the queue and spool to 400.
func clientError(err error) (int, bool) {
	for _, target := range []error{
		queue.ErrInvalidTask,
		spool.ErrMissingType,
		spool.ErrInvalidType,
		spool.ErrInvalidID,
		spool.ErrHeaderTooLarge,
		spool.ErrPayloadTooLarge,
		spool.ErrInvalidTime,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest, true
		}
	}
	return 0, false
}
