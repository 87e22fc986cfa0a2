package events

import (
	"context"
	"sync"
	"trade_guard/internal/models"
	"trade_guard/pkg/logger"
)

// Subscriber обрабатывает одно событие. Вызывается в своей горутине.
type Subscriber func(ctx context.Context, e models.Event)

// Bus: fan-out событий на журнал, websocket и алерты.
type Bus struct {
	mu   sync.RWMutex
	subs map[models.EventType][]Subscriber
	all  []Subscriber
	wg   sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{subs: make(map[models.EventType][]Subscriber)}
}

func (b *Bus) Subscribe(t models.EventType, s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], s)
}

func (b *Bus) SubscribeAll(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, s)
}

// Emit не блокирует: медленный подписчик не тормозит сделку.
func (b *Bus) Emit(ctx context.Context, e models.Event) {
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	subs := append(append([]Subscriber(nil), b.subs[e.Type]...), b.all...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.wg.Add(1)
		go func(s Subscriber) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("[EVENTS] subscriber panic on %s: %v", e.Type, r)
				}
			}()
			s(ctx, e)
		}(s)
	}
}

// Wait ждёт доставки всех уже отправленных событий.
func (b *Bus) Wait() { b.wg.Wait() }
