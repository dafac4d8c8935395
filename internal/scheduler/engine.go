// Package scheduler arms one timer or cron trigger per active reminder
// and fires notifications when they come due. There is no polling loop:
// every reminder owns an independent gocron job that wakes exactly at
// its deadline or recurrence instant.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"telegram-reminder-bot/internal/format"
	"telegram-reminder-bot/internal/models"
	"telegram-reminder-bot/internal/session"
)

// ErrPastDate rejects one-shot reminders whose fire time has already
// elapsed.
var ErrPastDate = errors.New("reminder time is in the past")

// Handle identifies one armed timer or cron trigger. Cancelling the
// handle guarantees it can no longer fire.
type Handle uuid.UUID

type Messenger interface {
	Send(chatID int64, text string) error
}

// Store is the slice of the reminder store the engine touches at fire
// time.
type Store interface {
	IsActive(ctx context.Context, id int64) (bool, error)
	SoftDelete(ctx context.Context, id, chatID int64) (int64, error)
}

type Engine struct {
	sched     gocron.Scheduler
	messenger Messenger
	store     Store
	pending   *session.Store

	mu      sync.Mutex
	handles map[int64]Handle // reminder id -> armed handle, at most one each
}

func New(messenger Messenger, store Store, pending *session.Store) (*Engine, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(format.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	e := &Engine{
		sched:     sched,
		messenger: messenger,
		store:     store,
		pending:   pending,
		handles:   make(map[int64]Handle),
	}
	sched.Start()
	return e, nil
}

// ScheduleOneShot arms a timer that fires once at the reminder's
// absolute time. Elapsed times are rejected, never armed.
func (e *Engine) ScheduleOneShot(r *models.Reminder) (Handle, error) {
	if r.FireAt == nil {
		return Handle{}, fmt.Errorf("reminder %d has no fire time", r.ID)
	}
	if time.Until(*r.FireAt) <= 0 {
		return Handle{}, ErrPastDate
	}

	job, err := e.sched.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(*r.FireAt)),
		gocron.NewTask(e.fireOneShot, r.ID, r.ChatID, r.Message),
	)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to arm reminder %d: %w", r.ID, err)
	}

	h := Handle(job.ID())
	e.register(r.ID, h)
	return h, nil
}

// ScheduleRecurring arms a cron trigger evaluated against the
// reminder's 5-field rule in the fixed timezone. Invalid rules are
// rejected here, synchronously.
func (e *Engine) ScheduleRecurring(r *models.Reminder) (Handle, error) {
	job, err := e.sched.NewJob(
		gocron.CronJob(r.RecurrenceRule, false),
		gocron.NewTask(e.fireRecurring, r.ID, r.ChatID, r.Message),
	)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to arm recurring reminder %d: %w", r.ID, err)
	}

	h := Handle(job.ID())
	e.register(r.ID, h)
	return h, nil
}

// Cancel invalidates an armed handle so it can no longer fire.
func (e *Engine) Cancel(h Handle) {
	e.mu.Lock()
	for id, cur := range e.handles {
		if cur == h {
			delete(e.handles, id)
			break
		}
	}
	e.mu.Unlock()
	_ = e.sched.RemoveJob(uuid.UUID(h))
}

// CancelReminder cancels the reminder's current handle, if any armed.
func (e *Engine) CancelReminder(id int64) {
	e.mu.Lock()
	h, ok := e.handles[id]
	if ok {
		delete(e.handles, id)
	}
	e.mu.Unlock()
	if ok {
		_ = e.sched.RemoveJob(uuid.UUID(h))
	}
}

func (e *Engine) Shutdown() error {
	return e.sched.Shutdown()
}

// register stores the reminder's handle, cancelling any handle armed
// for the same id before. One live handle per reminder.
func (e *Engine) register(id int64, h Handle) {
	e.mu.Lock()
	prev, replaced := e.handles[id]
	e.handles[id] = h
	e.mu.Unlock()
	if replaced {
		_ = e.sched.RemoveJob(uuid.UUID(prev))
	}
}

// fireOneShot delivers a one-shot reminder, then retires it: soft
// delete exactly once and release the handle. Delivery failure is
// logged and does not keep the reminder alive.
func (e *Engine) fireOneShot(id, chatID int64, message string) {
	if err := e.messenger.Send(chatID, "⏰ Recordatorio: "+message); err != nil {
		log.Printf("Failed to deliver reminder %d: %v", id, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := e.store.SoftDelete(ctx, id, chatID); err != nil {
		log.Printf("Failed to retire reminder %d: %v", id, err)
	}

	e.CancelReminder(id)
}

// fireRecurring delivers one occurrence of a recurring reminder. The
// trigger outlives the firing; only a negative confirmation deactivates
// the reminder, and a deactivated reminder is suppressed here even
// while its trigger stays registered.
func (e *Engine) fireRecurring(id, chatID int64, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	active, err := e.store.IsActive(ctx, id)
	if err != nil {
		log.Printf("Failed to check reminder %d before firing: %v", id, err)
		return
	}
	if !active {
		return
	}

	text := "⏰ Recordatorio: " + message + "\n¿Deseas seguir recibiendo este recordatorio? (sí/no)"
	if err := e.messenger.Send(chatID, text); err != nil {
		log.Printf("Failed to deliver recurring reminder %d: %v", id, err)
		return
	}

	e.pending.Set(chatID, &session.Operation{
		Kind:       session.AwaitingRecurringConfirm,
		ReminderID: id,
	})
}
