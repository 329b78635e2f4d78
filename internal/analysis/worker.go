// Package analysis runs background score backfill. Responses arrive with raw
// content and confidence scores from the transcription analysis step; the
// worker applies the veto rule to produce the stored final score that the
// evaluation engine later reads.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hireloop/hireloop/internal/scoring"
	"github.com/hireloop/hireloop/internal/storage"
)

// TaskTypeResponseScore is the queue type for final-score backfill tasks.
const TaskTypeResponseScore = "response_score"

// TaskStore abstracts the task queue and response operations.
type TaskStore interface {
	ClaimNextTask(types []string) (*storage.Task, error)
	CompleteTask(id string) error
	FailTask(id string, errMsg string) error
	GetResponse(id string) (storage.Response, error)
	SetResponseFinalScore(id string, score float64) error
}

// Worker processes response_score tasks from the SQLite task queue.
type Worker struct {
	store  TaskStore
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store TaskStore, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single response_score task.
// Returns true if a task was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.store.ClaimNextTask([]string{TaskTypeResponseScore})
	if err != nil {
		return false, fmt.Errorf("claiming task: %w", err)
	}
	if task == nil {
		return false, nil
	}

	if err := w.processTask(task); err != nil {
		w.logger.Warn("task failed", "task_id", task.ID, "error", err)
		if failErr := w.store.FailTask(task.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark task as failed", "task_id", task.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteTask(task.ID); err != nil {
		return true, fmt.Errorf("completing task %s: %w", task.ID, err)
	}
	return true, nil
}

type scorePayload struct {
	ResponseID string `json:"response_id"`
}

func (w *Worker) processTask(task *storage.Task) error {
	var payload scorePayload
	if err := json.Unmarshal([]byte(task.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	resp, err := w.store.GetResponse(payload.ResponseID)
	if err != nil {
		return fmt.Errorf("loading response %s: %w", payload.ResponseID, err)
	}

	// The final score is written once. A response that already has one was
	// backfilled by an earlier attempt of this task.
	if resp.FinalScore != nil {
		return nil
	}
	// A single absent raw score counts as 0; only a response with neither
	// score recorded is not ready yet.
	if resp.ContentScore == nil && resp.ConfidenceScore == nil {
		return fmt.Errorf("response %s has no raw scores yet", resp.ID)
	}

	final := scoring.FinalScore(rawOrZero(resp.ContentScore), rawOrZero(resp.ConfidenceScore))

	err = w.store.SetResponseFinalScore(resp.ID, final)
	if errors.Is(err, storage.ErrNotFound) {
		// Lost a race with another writer; the stored score stands.
		return nil
	}
	if err != nil {
		return fmt.Errorf("storing final score for response %s: %w", resp.ID, err)
	}

	w.logger.Info("backfilled final score", "response_id", resp.ID, "final_score", final)
	return nil
}

func rawOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
