package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hiepcp/full-crm-sub005/pkg/logger"
)

const (
	defaultMaxConcurrency = 8
	defaultOpTimeout      = 10 * time.Second
)

// Report summarizes one fan-out. Per-recipient persistence failures are
// collected here instead of failing the batch; push failures only affect
// the Pushed counter because persisted records are retrievable by polling.
type Report struct {
	Recipients int              // resolved recipients attempted
	Delivered  int              // persisted successfully
	Pushed     int              // reached a connected session
	Failures   map[string]error // user key -> persistence failure
}

// Failed reports whether any recipient failed to persist.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Orchestrator coordinates the notification pipeline: recipient
// resolution, per-recipient message building, persistence and best-effort
// real-time push. It is the entry point for business-event triggers.
type Orchestrator struct {
	engine    *RulesEngine
	builder   *Builder
	service   *Service
	transport Transport
	logger    *slog.Logger

	maxConcurrency int
	opTimeout      time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger for the Orchestrator.
func WithOrchestratorLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithMaxConcurrency bounds the per-recipient fan-out. Entities with very
// large assignee sets must not open unbounded concurrent work against the
// store and transport. Default is 8.
func WithMaxConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithOpTimeout bounds each external persist/push call so a hung
// collaborator cannot stall the fan-out. Default is 10s.
func WithOpTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.opTimeout = d
		}
	}
}

// NewOrchestrator wires the pipeline together. The transport may be nil
// for polling-only deployments.
func NewOrchestrator(engine *RulesEngine, builder *Builder, service *Service, transport Transport, opts ...OrchestratorOption) *Orchestrator {
	if builder == nil {
		builder = NewBuilder()
	}
	if transport == nil {
		transport = NoopTransport{}
	}

	o := &Orchestrator{
		engine:         engine,
		builder:        builder,
		service:        service,
		transport:      transport,
		logger:         slog.Default(),
		maxConcurrency: defaultMaxConcurrency,
		opTimeout:      defaultOpTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// NotifyEntityChange runs the full pipeline for one entity change. A
// resolution failure fails the whole call and nothing is sent. After
// resolution each recipient is processed independently with bounded
// concurrency; one recipient's failure never aborts the rest. The call
// returns once every recipient has been attempted; it waits for
// persistence, not for push acknowledgement.
func (o *Orchestrator) NotifyEntityChange(ctx context.Context, entityType string, entityID int64, nctx Context, snapshot Snapshot) (*Report, error) {
	o.logger.LogAttrs(ctx, slog.LevelInfo, "starting notification fan-out",
		logger.EntityType(entityType),
		logger.EntityID(entityID),
		logger.EventType(string(nctx.EventType)),
	)

	recipients, err := o.engine.DetermineRecipients(ctx, entityType, entityID, nctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Recipients: len(recipients),
		Failures:   make(map[string]error),
	}
	if len(recipients) == 0 {
		o.logger.LogAttrs(ctx, slog.LevelInfo, "no recipients after resolution",
			logger.EntityType(entityType),
			logger.EntityID(entityID),
		)
		return report, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.maxConcurrency)
	)

	for _, recipient := range recipients {
		// Respect caller cancellation between dispatches; recipients not
		// yet started are skipped cleanly since nothing was persisted.
		select {
		case <-ctx.Done():
			mu.Lock()
			report.Failures[recipient.UserKey] = ctx.Err()
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(rec ResolvedRecipient) {
			defer wg.Done()
			defer func() { <-sem }()

			persisted, pushed, err := o.deliverOne(ctx, rec, nctx, snapshot)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures[rec.UserKey] = err
				return
			}
			if persisted {
				report.Delivered++
			}
			if pushed {
				report.Pushed++
			}
		}(recipient)
	}

	wg.Wait()

	o.logger.LogAttrs(ctx, slog.LevelInfo, "notification fan-out completed",
		logger.EntityType(entityType),
		logger.EntityID(entityID),
		slog.Int("delivered", report.Delivered),
		slog.Int("pushed", report.Pushed),
		slog.Int("failed", len(report.Failures)),
	)

	return report, nil
}

// deliverOne runs build+persist+push for a single recipient. Persistence
// is the commit point: cancellation before it is clean, cancellation after
// it simply forgoes the push.
func (o *Orchestrator) deliverOne(ctx context.Context, rec ResolvedRecipient, nctx Context, snapshot Snapshot) (persisted, pushed bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, false, err
	}

	notif := o.builder.Build(rec, nctx, snapshot)

	persistCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	stored, err := o.service.Create(persistCtx, notif)
	cancel()
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to persist notification",
			logger.UserKey(rec.UserKey),
			logger.EntityType(nctx.EntityType),
			logger.EntityID(nctx.EntityID),
			logger.Error(err),
		)
		return false, false, err
	}

	if ctx.Err() != nil {
		// Record is committed; the client will pick it up on next poll.
		return true, false, nil
	}

	// Push is best effort and detached from caller cancellation beyond the
	// operation timeout.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opTimeout)
	defer cancel()

	delivered, pushErr := o.transport.PushToUser(pushCtx, stored.UserKey, stored)
	if pushErr != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "real-time push failed, notification stored",
			logger.UserKey(rec.UserKey),
			logger.NotificationID(stored.ID),
			logger.Error(pushErr),
		)
		delivered = false
	}

	// Badge refresh follows every successful persistence so a connected
	// client stays accurate even when the payload push was dropped.
	o.service.pushUnreadCount(pushCtx, stored.UserKey)

	return true, delivered, nil
}
