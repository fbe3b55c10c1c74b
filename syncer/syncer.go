package syncer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"minigameshub-edge/backend"
	"minigameshub-edge/db"
	"minigameshub-edge/queue"
)

// Applier is the slice of the backend client the reconciler needs.
type Applier interface {
	ApplyMutation(ctx context.Context, m backend.Mutation) error
}

// Reconciler opportunistically flushes the persistent mutation queue against
// the remote store. Delivery is at-least-once: a pass that dies between the
// remote apply and the queue delete will replay the mutation, and a replayed
// play increment double-counts. The remote interface (increment-by-N) cannot
// express a dedup token, so exactly-once accounting is explicitly not a
// guarantee here.
type Reconciler struct {
	queue   *queue.Queue
	applier Applier
	log     *zap.SugaredLogger

	interval time.Duration
	kick     chan struct{}
}

// New returns a reconciler draining q through applier every interval, or
// sooner when Notify is called.
func New(q *queue.Queue, applier Applier, interval time.Duration, log *zap.SugaredLogger) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{
		queue:    q,
		applier:  applier,
		log:      log,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Notify requests a drain pass soon, typically on a connectivity-restored
// signal. Multiple notifications coalesce into one pass.
func (r *Reconciler) Notify() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// RunOnce performs a single drain pass. Successfully applied mutations are
// removed; mutations the store rejects permanently are dropped with a log
// line; transient failures stay queued for the next pass. Overlapping calls
// coalesce into one pass via the queue's drain guard.
func (r *Reconciler) RunOnce(ctx context.Context) (applied, dropped, kept int, err error) {
	_, keptCount, err := r.queue.Drain(func(rec db.PendingMutation) error {
		applyErr := r.applier.ApplyMutation(ctx, queue.ToMutation(rec))
		if applyErr == nil {
			applied++
			return nil
		}
		if errors.Is(applyErr, backend.ErrRejected) {
			// Poison mutation: retrying forever would wedge the queue.
			r.log.Warnw("Dropping rejected mutation",
				zap.String("kind", rec.Kind),
				zap.Int("target_id", rec.TargetID),
				zap.Error(applyErr),
			)
			dropped++
			return nil // remove from the queue
		}
		return applyErr // transient, keep for the next pass
	})
	if err != nil {
		return applied, dropped, kept, err
	}
	kept = keptCount
	if applied > 0 || dropped > 0 || kept > 0 {
		r.log.Infow("Reconciliation pass finished",
			zap.Int("applied", applied),
			zap.Int("dropped", dropped),
			zap.Int("kept", kept),
		)
	}
	return applied, dropped, kept, nil
}

// Run drains on a periodic tick and on Notify kicks until ctx is cancelled.
// The schedule is at-least-once-eventually, not strictly periodic: a kick
// resets nothing and simply triggers an extra pass.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.kick:
		}
		if _, _, _, err := r.RunOnce(ctx); err != nil {
			r.log.Warnw("Reconciliation pass failed", zap.Error(err))
		}
	}
}
