// Package service applies the authorization and lifecycle rules to products, stores and logins.
// Every operation takes the calling Principal explicitly.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/retailinventory/internal/authz"
	"github.com/abgdnv/retailinventory/internal/metrics"
	"github.com/abgdnv/retailinventory/pkg/messaging"
)

// publishTimeout bounds the time a committed transition waits for its audit event,
// retries included. It stays well below the HTTP write timeout.
const publishTimeout = 3 * time.Second

// guard wraps the engine with decision metrics and logging, and publishes audit events.
type guard struct {
	engine         *authz.Engine
	publisher      messaging.Publisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	publishTimeout time.Duration
}

func newGuard(engine *authz.Engine, publisher messaging.Publisher, m *metrics.Metrics, logger *slog.Logger) guard {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return guard{engine: engine, publisher: publisher, metrics: m, logger: logger, publishTimeout: publishTimeout}
}

// decide returns the decision, or its error for any outcome other than Allow.
func (g guard) decide(ctx context.Context, req authz.Request) (authz.Decision, error) {
	d := g.engine.Decide(req)
	g.metrics.Decision(req.Kind.String(), req.Action.String(), d.Outcome.String())
	if !d.Allowed() {
		g.logger.InfoContext(ctx, "request refused",
			"kind", req.Kind.String(),
			"action", req.Action.String(),
			"outcome", d.Outcome.String(),
			"subject", req.Principal.Subject(),
			"reason", d.Err)
		return d, d.Err
	}
	return d, nil
}

// publish never fails the caller: the transition is already committed.
// The event outlives a cancelled request but not publishTimeout.
func (g guard) publish(ctx context.Context, event messaging.Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.publishTimeout)
	defer cancel()
	if err := g.publisher.Publish(pubCtx, event); err != nil {
		g.metrics.PublishFailed(event.Subject())
		g.logger.ErrorContext(ctx, "failed to publish lifecycle event", "subject", event.Subject(), "error", err)
	}
}
