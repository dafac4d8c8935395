package reminders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"telegram-reminder-bot/internal/scheduler"
)

// Reconciler re-arms every persisted active reminder at process start,
// bridging the gap between stored state and the in-process timers a
// restart wiped out.
type Reconciler struct {
	store  Store
	engine Engine
}

func NewReconciler(store Store, engine Engine) *Reconciler {
	return &Reconciler{store: store, engine: engine}
}

// Run arms each active reminder exactly once. One-shots whose fire time
// elapsed while the process was down are skipped and logged, never
// fired late.
func (rc *Reconciler) Run(ctx context.Context) error {
	reminders, err := rc.store.ListAllActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminders for reconciliation: %w", err)
	}

	armed := 0
	for _, r := range reminders {
		var armErr error
		switch {
		case r.IsRecurring:
			_, armErr = rc.engine.ScheduleRecurring(r)
		case r.FireAt != nil:
			_, armErr = rc.engine.ScheduleOneShot(r)
		default:
			log.Printf("Reminder %d has neither fire time nor recurrence, skipping", r.ID)
			continue
		}

		switch {
		case errors.Is(armErr, scheduler.ErrPastDate):
			log.Printf("Skipping reminder %d: fire time %s already elapsed", r.ID, r.FireAt)
		case armErr != nil:
			log.Printf("Failed to re-arm reminder %d: %v", r.ID, armErr)
		default:
			armed++
		}
	}

	log.Printf("Startup reconciliation armed %d of %d active reminder(s)", armed, len(reminders))
	return nil
}
