package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"procura/internal/delivery"
	"procura/pkg/platform/circuit"
)

// ErrRelayOpen is returned without dialing while the relay breaker is open.
var ErrRelayOpen = errors.New("smtp relay circuit open")

// GuardedSender stops dialing a failing relay. Rejected sends count as
// failures; while open, sends fail fast as rejected so the delivery row is
// marked FAILED and picked up by the retry sweep.
type GuardedSender struct {
	next    delivery.EmailSender
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedSender(next delivery.EmailSender, breaker *circuit.Breaker, logger *slog.Logger) *GuardedSender {
	return &GuardedSender{next: next, breaker: breaker, logger: logger}
}

func (g *GuardedSender) Send(ctx context.Context, msg delivery.Message) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%w: %w", delivery.ErrTransportRejected, ErrRelayOpen)
	}

	err := g.next.Send(ctx, msg)
	if err == nil {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.log(ctx, slog.LevelInfo, "smtp relay circuit closed")
		}
		return nil
	}
	// A cancelled caller says nothing about the relay.
	if errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.log(ctx, slog.LevelWarn, "smtp relay circuit opened", "error", err)
	}
	return err
}

func (g *GuardedSender) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Log(ctx, level, msg, append([]any{"breaker", g.breaker.Name()}, args...)...)
}
