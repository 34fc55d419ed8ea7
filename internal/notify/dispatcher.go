package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     *zerolog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log *zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log}
}

// Dispatch sends msg in the background. It never blocks on delivery and
// never reports failure to the caller.
func (d *Dispatcher) Dispatch(msg Message) {
	if msg.To == "" {
		d.log.Debug().Str("event", string(msg.Event)).Msg("notification without recipient dropped")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().Interface("panic", r).Str("event", string(msg.Event)).Msg("notification sender panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Warn().Err(err).
				Str("to", msg.To).
				Str("event", string(msg.Event)).
				Msg("notification delivery failed")
			return
		}
		d.log.Debug().Str("to", msg.To).Str("event", string(msg.Event)).Msg("notification delivered")
	}()
}

// Close waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
