package matchmaker

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Recover restores a consistent cold-start state and must run before the
// scan loop or any chat traffic. Sessions left active by a crash are
// force-ended, the waiting pool is drained, the pairing index and the
// conversation states of everyone involved are reset, and drained searchers
// get a best-effort cancellation notice. Durable-store failures here are
// returned to the caller, which should treat them as fatal.
func (e *Engine) Recover() error {
	stale, err := e.Storage.ReconcileActiveSessions()
	if err != nil {
		return fmt.Errorf("reconcile active sessions: %w", err)
	}
	queued, err := e.Storage.ClearSearchQueue()
	if err != nil {
		return fmt.Errorf("clear search queue: %w", err)
	}

	e.Pairings.Reset()

	for _, sess := range stale {
		for _, id := range []int64{sess.UserA, sess.UserB} {
			if err := e.States.Clear(id); err != nil {
				e.log.WithError(err).WithField("user_id", id).Warn("state reset failed during recovery")
			}
		}
	}
	for _, id := range queued {
		if err := e.States.Clear(id); err != nil {
			e.log.WithError(err).WithField("user_id", id).Warn("state reset failed during recovery")
		}
		e.Notifier.SearchCancelled(id)
	}

	e.log.WithFields(logrus.Fields{
		"sessions_ended":     len(stale),
		"searches_cancelled": len(queued),
	}).Info("recovery completed")
	return nil
}
