package runner

import (
	"context"
	"errors"
	"time"
)

var errPollDeadline = errors.New("poll deadline exceeded")

// pollUntil: check, пауза interval, check ... пока check не вернёт done или не выйдет deadline.
// Ошибка check не прерывает опрос; последняя приклеивается к итоговой.
func pollUntil(ctx context.Context, interval, deadline time.Duration, check func(ctx context.Context) (bool, error)) error {
	dl := time.NewTimer(deadline)
	defer dl.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var lastErr error
	for {
		done, err := check(ctx)
		if err != nil {
			lastErr = err
		} else if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), lastErr)
		case <-dl.C:
			return errors.Join(errPollDeadline, lastErr)
		case <-tick.C:
		}
	}
}

// sleepCtx: false, если ctx отменили раньше.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
