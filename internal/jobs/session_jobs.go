package jobs

import (
	"context"

	"locker-rental-backend/internal/logger"
)

// PruneExpiredSessions drops device-local credentials that expired longer
// ago than the session max age. Cookie credentials expire in the browser.
func (jr *JobRunner) PruneExpiredSessions() {
	jr.runWithRecovery("PruneExpiredSessions", func() {
		if jr.services.Sessions == nil {
			logger.Debug("No device-local session store configured")
			return
		}
		ctx := context.Background()
		cutoff := jr.now().Add(-jr.config.SessionMaxAge())

		creds, err := jr.services.Sessions.ListAll(ctx)
		if err != nil {
			logger.Error("Failed to list sessions", "error", err)
			return
		}

		removed := 0
		for _, cred := range creds {
			if !cred.ExpiresAt.Before(cutoff) {
				continue
			}
			if err := jr.services.Sessions.Remove(ctx, cred.LockerID); err != nil {
				logger.Error("Failed to remove expired session", "locker_id", cred.LockerID, "error", err)
				continue
			}
			removed++
		}
		logger.Info("Expired sessions pruned", "checked", len(creds), "removed", removed)
	})
}
