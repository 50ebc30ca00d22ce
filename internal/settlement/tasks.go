package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kasapos/backend-kasa/internal/common"
)

// TaskAutoClose is the asynq task type for the nightly close job.
const TaskAutoClose = "settlement:autoclose"

type autoClosePayload struct {
	Date string `json:"date"`
}

// NewAutoCloseTask enqueues a close for the given calendar date.
func NewAutoCloseTask(date time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(autoClosePayload{Date: date.Format("2006-01-02")})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoClose, payload), nil
}

// AutoCloseWorker closes the previous day's account on a schedule. Days
// already closed by hand are left alone.
type AutoCloseWorker struct {
	Svc    *Service
	Actor  common.Actor
	Logger zerolog.Logger
}

// Handle processes a settlement:autoclose task. An empty payload date means
// "yesterday".
func (w *AutoCloseWorker) Handle(ctx context.Context, t *asynq.Task) error {
	if w == nil || w.Svc == nil {
		return errors.New("autoclose worker not configured")
	}
	var payload autoClosePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode autoclose payload: %w", err)
		}
	}
	date := w.Svc.now().Add(-24 * time.Hour)
	if payload.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.Date, time.UTC)
		if err != nil {
			return fmt.Errorf("parse autoclose date: %w", err)
		}
		date = parsed
	}

	v, err := w.Svc.Close(ctx, date, w.Actor)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case "CONFLICT":
				w.Logger.Info().Str("date", date.Format("2006-01-02")).Msg("day already closed, skipping")
				return nil
			case "VALIDATION":
				w.Logger.Info().Str("date", date.Format("2006-01-02")).Msg("no carts to settle, skipping")
				return nil
			}
		}
		return err
	}
	w.Logger.Info().
		Str("date", date.Format("2006-01-02")).
		Str("total", v.Account.Total.String()).
		Int("carts", v.Account.CartsCount).
		Msg("day closed")
	return nil
}
