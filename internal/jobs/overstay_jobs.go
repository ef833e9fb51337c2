package jobs

import (
	"context"

	"locker-rental-backend/internal/logger"
)

// SendOverstayReminders mails every overstaying renter who left an e-mail
// address. A renter is mailed again only once another block has started.
func (jr *JobRunner) SendOverstayReminders() {
	jr.runWithRecovery("SendOverstayReminders", func() {
		ctx := context.Background()
		now := jr.now()
		pricing := jr.services.Rental.Pricing()

		lockers, err := jr.services.Rental.Overstays(ctx, now)
		if err != nil {
			logger.Error("Failed to list overstaying lockers", "error", err)
			return
		}

		active := make(map[string]bool, len(lockers))
		sent, skipped := 0, 0
		for i := range lockers {
			l := &lockers[i]
			ri := l.RentalInfo
			active[ri.SessionToken] = true

			blocks, charge := pricing.OverstayCharge(ri.EndTime, now)
			if ri.Email == "" {
				logger.Debug("Overstay without contact e-mail", "locker_id", l.ID, "blocks", blocks)
				skipped++
				continue
			}

			jr.mu.Lock()
			last := jr.reminded[ri.SessionToken]
			jr.mu.Unlock()
			if blocks <= last {
				skipped++
				continue
			}

			if err := jr.services.Notification.SendOverstayReminder(ctx, ri.Email, l, blocks, charge); err != nil {
				logger.Error("Failed to send overstay reminder", "locker_id", l.ID, "error", err)
				continue
			}
			jr.mu.Lock()
			jr.reminded[ri.SessionToken] = blocks
			jr.mu.Unlock()
			sent++
		}

		// Forget rentals that were extended or ended.
		jr.mu.Lock()
		for token := range jr.reminded {
			if !active[token] {
				delete(jr.reminded, token)
			}
		}
		jr.mu.Unlock()

		logger.Info("Overstay reminders processed", "overstaying", len(lockers), "sent", sent, "skipped", skipped)
	})
}
