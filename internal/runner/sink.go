package runner

import (
	"context"
	"trade_guard/internal/models"
)

// EventSink получает события сделок и гардианов. Emit не должен блокировать надолго.
type EventSink interface {
	Emit(ctx context.Context, e models.Event)
}

type NopSink struct{}

func (NopSink) Emit(context.Context, models.Event) {}
