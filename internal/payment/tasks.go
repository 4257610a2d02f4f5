package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskCancelAuthorization voids a processor authorization whose order record
// was never written.
const TaskCancelAuthorization = "payment:cancel_authorization"

type cancelAuthorizationPayload struct {
	AuthorizationID string `json:"authorization_id"`
}

// TaskEnqueuer schedules payment follow-up tasks on the shared queue.
type TaskEnqueuer struct {
	Client *asynq.Client
	Log    zerolog.Logger
}

// EnqueueCancelAuthorization queues cancellation of a dangling authorization.
// Retries back off; a task that exhausts them lands in the archived set for
// manual reconciliation.
func (e TaskEnqueuer) EnqueueCancelAuthorization(ctx context.Context, authorizationID string) error {
	payload, err := json.Marshal(cancelAuthorizationPayload{AuthorizationID: authorizationID})
	if err != nil {
		return fmt.Errorf("marshal cancel payload: %w", err)
	}
	task := asynq.NewTask(TaskCancelAuthorization, payload)
	info, err := e.Client.EnqueueContext(ctx, task,
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
		asynq.Retention(7*24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("enqueue cancel authorization: %w", err)
	}
	e.Log.Info().
		Str("task_id", info.ID).
		Str("authorization_id", authorizationID).
		Msg("queued authorization cancellation")
	return nil
}

// CancelWorker processes cancellation tasks against the processor.
type CancelWorker struct {
	Provider Provider
	Log      zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (w CancelWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload cancelAuthorizationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads never become valid; skip retries.
		w.Log.Error().Err(err).Msg("dropping malformed cancellation task")
		return fmt.Errorf("unmarshal cancel payload: %w: %w", err, asynq.SkipRetry)
	}
	if err := w.Provider.CancelAuthorization(ctx, payload.AuthorizationID); err != nil {
		w.Log.Warn().
			Err(err).
			Str("authorization_id", payload.AuthorizationID).
			Msg("authorization cancellation failed, will retry")
		return err
	}
	w.Log.Info().
		Str("authorization_id", payload.AuthorizationID).
		Msg("dangling authorization canceled")
	return nil
}
