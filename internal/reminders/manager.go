// Package reminders orchestrates the reminder lifecycle: creation with
// deduplication and validation, edits with cancel-then-replace
// rescheduling, listings, and soft deletes. Replies go straight to the
// chat through the messaging collaborator.
package reminders

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"telegram-reminder-bot/internal/cronrule"
	"telegram-reminder-bot/internal/format"
	"telegram-reminder-bot/internal/models"
	"telegram-reminder-bot/internal/parser"
	"telegram-reminder-bot/internal/repository"
	"telegram-reminder-bot/internal/scheduler"
)

type Store interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	ListActive(ctx context.Context, chatID int64) ([]*models.Reminder, error)
	ListAllActive(ctx context.Context) ([]*models.Reminder, error)
	GetByID(ctx context.Context, id, chatID int64) (*models.Reminder, error)
	Update(ctx context.Context, id, chatID int64, fields repository.UpdateFields) (int64, error)
	SoftDelete(ctx context.Context, id, chatID int64) (int64, error)
	SoftDeleteAll(ctx context.Context, chatID int64) (int64, error)
}

type Engine interface {
	ScheduleOneShot(r *models.Reminder) (scheduler.Handle, error)
	ScheduleRecurring(r *models.Reminder) (scheduler.Handle, error)
	CancelReminder(id int64)
}

type Messenger interface {
	Send(chatID int64, text string) error
}

const (
	msgParseFail     = "🚫 No pude entender el recordatorio. Intenta con otra frase."
	msgEditParseFail = "🚫 No pude entender la nueva fecha/texto. Intenta con otra frase."
	msgAmbiguous     = "⚠️ No pude identificar una fecha o patrón de recurrencia válidos. " +
		"Ejemplo: `!recordar comprar pan el 5 de agosto a las 4pm` o " +
		"`!recordar hidratarte todos los días a las 10am`"
	msgPastDate      = "⚠️ La fecha indicada ya pasó. Por favor elige una fecha futura."
	msgDupOneShot    = "⚠️ Ya tienes un recordatorio igual en esa fecha."
	msgDupRecurring  = "⚠️ Ya tienes un recordatorio recurrente idéntico."
	msgStorage       = "🚫 Ocurrió un error con la base de datos. Intenta de nuevo en unos minutos."
	msgEditNotFound  = "⚠️ No se encontró o no tienes permiso."
	msgNoReminders   = "🔍 No tienes recordatorios activos."
	msgDeleted       = "🗑️ Recordatorio eliminado correctamente."
	msgDeleteMissing = "⚠️ No se encontró o ya estaba eliminado."
)

var createPrefix = regexp.MustCompile(`(?i)^!recordar\s*`)

type Manager struct {
	store     Store
	engine    Engine
	parser    parser.Parser
	messenger Messenger
	now       func() time.Time
}

func NewManager(store Store, engine Engine, p parser.Parser, messenger Messenger) *Manager {
	return &Manager{
		store:     store,
		engine:    engine,
		parser:    p,
		messenger: messenger,
		now:       time.Now,
	}
}

// Create parses the free text after the !recordar prefix and stores and
// arms the resulting reminder. Duplicates, elapsed dates, and ambiguous
// parses are rejected without writing anything.
func (m *Manager) Create(ctx context.Context, chatID int64, rawText string) error {
	content := strings.TrimSpace(createPrefix.ReplaceAllString(rawText, ""))

	parsed, err := m.parser.Parse(ctx, content)
	if err != nil {
		m.send(chatID, msgParseFail)
		return err
	}

	switch {
	case parsed.FireAt != nil && parsed.Rule != "", parsed.FireAt == nil && parsed.Rule == "":
		m.send(chatID, msgAmbiguous)
		return ErrAmbiguous
	case parsed.FireAt != nil:
		return m.createOneShot(ctx, chatID, parsed.Message, *parsed.FireAt)
	default:
		return m.createRecurring(ctx, chatID, parsed.Message, parsed.Rule)
	}
}

func (m *Manager) createOneShot(ctx context.Context, chatID int64, message string, fireAt time.Time) error {
	if !fireAt.After(m.now()) {
		m.send(chatID, msgPastDate)
		return scheduler.ErrPastDate
	}

	existing, err := m.store.ListActive(ctx, chatID)
	if err != nil {
		return m.storageFailure(chatID, err)
	}
	for _, r := range existing {
		if !r.IsRecurring && r.FireAt != nil && r.FireAt.Equal(fireAt) && r.Message == message {
			m.send(chatID, msgDupOneShot)
			return ErrDuplicate
		}
	}

	reminder := &models.Reminder{ChatID: chatID, Message: message, FireAt: &fireAt}
	if err := m.store.Create(ctx, reminder); err != nil {
		return m.storageFailure(chatID, err)
	}

	if _, err := m.engine.ScheduleOneShot(reminder); err != nil {
		log.Printf("Failed to arm reminder %d: %v", reminder.ID, err)
	}

	m.send(chatID, fmt.Sprintf("✅ Recordatorio programado para %s", format.LongDateTime(fireAt)))
	return nil
}

func (m *Manager) createRecurring(ctx context.Context, chatID int64, message, rule string) error {
	if err := cronrule.Validate(rule); err != nil {
		m.send(chatID, msgParseFail)
		return err
	}

	existing, err := m.store.ListActive(ctx, chatID)
	if err != nil {
		return m.storageFailure(chatID, err)
	}
	for _, r := range existing {
		if r.IsRecurring && r.RecurrenceRule == rule && r.Message == message {
			m.send(chatID, msgDupRecurring)
			return ErrDuplicate
		}
	}

	reminder := &models.Reminder{
		ChatID:         chatID,
		Message:        message,
		RecurrenceRule: rule,
		IsRecurring:    true,
	}
	if err := m.store.Create(ctx, reminder); err != nil {
		return m.storageFailure(chatID, err)
	}

	if _, err := m.engine.ScheduleRecurring(reminder); err != nil {
		log.Printf("Failed to arm recurring reminder %d: %v", reminder.ID, err)
	}

	m.send(chatID, fmt.Sprintf("✅ Recordatorio recurrente guardado: %s", message))
	return nil
}

// Edit re-parses the new text, applies the field update, and replaces
// the reminder's armed schedule. The schedule is re-armed from the
// stored record so a message-only edit also refreshes the timer payload.
func (m *Manager) Edit(ctx context.Context, id, chatID int64, rawText string) error {
	parsed, err := m.parser.Parse(ctx, rawText)
	if err != nil {
		m.send(chatID, msgEditParseFail)
		return err
	}

	fields := repository.UpdateFields{Message: parsed.Message}
	switch {
	case parsed.FireAt != nil && parsed.Rule != "":
		m.send(chatID, msgAmbiguous)
		return ErrAmbiguous
	case parsed.FireAt != nil:
		fields.OneShotAt = parsed.FireAt
	case parsed.Rule != "":
		if err := cronrule.Validate(parsed.Rule); err != nil {
			m.send(chatID, msgEditParseFail)
			return err
		}
		fields.Recurrence = parsed.Rule
	}

	affected, err := m.store.Update(ctx, id, chatID, fields)
	if err != nil {
		return m.storageFailure(chatID, err)
	}
	if affected == 0 {
		m.send(chatID, msgEditNotFound)
		return ErrNotFound
	}

	m.engine.CancelReminder(id)
	updated, err := m.store.GetByID(ctx, id, chatID)
	if err != nil {
		log.Printf("Failed to reload reminder %d after edit: %v", id, err)
	} else if updated != nil {
		if err := m.arm(updated); err != nil {
			log.Printf("Failed to re-arm reminder %d after edit: %v", id, err)
		}
	}

	m.send(chatID, fmt.Sprintf("✏️ Recordatorio #%d actualizado: %s", id, describeEdit(parsed)))
	return nil
}

func describeEdit(parsed *parser.Result) string {
	switch {
	case parsed.FireAt != nil:
		return fmt.Sprintf("%s para %s", parsed.Message, format.LongDateTime(*parsed.FireAt))
	case parsed.Rule != "":
		return fmt.Sprintf("%s (recurrente %s)", parsed.Message, parsed.Rule)
	default:
		return parsed.Message
	}
}

// List sends the chat's active reminders, one line each: localized
// date and 12-hour time for one-shots, humanized recurrence otherwise.
func (m *Manager) List(ctx context.Context, chatID int64) error {
	rows, err := m.store.ListActive(ctx, chatID)
	if err != nil {
		return m.storageFailure(chatID, err)
	}
	if len(rows) == 0 {
		m.send(chatID, msgNoReminders)
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📋 *Tus recordatorios activos:*")
	for i, r := range rows {
		var when string
		switch {
		case r.IsRecurring:
			when = cronrule.Humanize(r.RecurrenceRule)
		case r.FireAt != nil:
			when = format.ShortDateTime(*r.FireAt)
		}
		fmt.Fprintf(&sb, "\n%d. %s • %s", i+1, r.Message, when)
	}
	m.send(chatID, sb.String())
	return nil
}

// ActiveReminders returns the chat's active reminders for the id
// selection prompts of the delete and edit flows.
func (m *Manager) ActiveReminders(ctx context.Context, chatID int64) ([]*models.Reminder, error) {
	return m.store.ListActive(ctx, chatID)
}

// DeleteOne soft-deletes a confirmed reminder and cancels its armed
// schedule. A foreign or already-inactive id affects nothing.
func (m *Manager) DeleteOne(ctx context.Context, id, chatID int64) error {
	affected, err := m.store.SoftDelete(ctx, id, chatID)
	if err != nil {
		return m.storageFailure(chatID, err)
	}
	if affected == 0 {
		m.send(chatID, msgDeleteMissing)
		return ErrNotFound
	}

	m.engine.CancelReminder(id)
	m.send(chatID, msgDeleted)
	return nil
}

// DeleteAll soft-deletes every active reminder of the chat and cancels
// their schedules. Always reached through the confirmation flow.
func (m *Manager) DeleteAll(ctx context.Context, chatID int64) error {
	rows, err := m.store.ListActive(ctx, chatID)
	if err != nil {
		return m.storageFailure(chatID, err)
	}

	affected, err := m.store.SoftDeleteAll(ctx, chatID)
	if err != nil {
		return m.storageFailure(chatID, err)
	}
	for _, r := range rows {
		m.engine.CancelReminder(r.ID)
	}

	m.send(chatID, fmt.Sprintf("🗑️ Se eliminaron %d recordatorio(s) correctamente.", affected))
	return nil
}

// Deactivate soft-deletes a recurring reminder after a negative
// confirmation. The cron trigger stays registered; the engine's active
// check suppresses any further delivery.
func (m *Manager) Deactivate(ctx context.Context, id, chatID int64) error {
	affected, err := m.store.SoftDelete(ctx, id, chatID)
	if err != nil {
		return m.storageFailure(chatID, err)
	}
	if affected == 0 {
		m.send(chatID, msgDeleteMissing)
		return ErrNotFound
	}

	m.send(chatID, fmt.Sprintf("❌ El recordatorio #%d ha sido desactivado.", id))
	return nil
}

// arm schedules a reminder according to its kind.
func (m *Manager) arm(r *models.Reminder) error {
	if r.IsRecurring {
		_, err := m.engine.ScheduleRecurring(r)
		return err
	}
	if r.FireAt == nil {
		return fmt.Errorf("reminder %d has neither fire time nor recurrence", r.ID)
	}
	_, err := m.engine.ScheduleOneShot(r)
	return err
}

// storageFailure surfaces a retry-safe message instead of crashing the
// flow when the store is unreachable.
func (m *Manager) storageFailure(chatID int64, err error) error {
	m.send(chatID, msgStorage)
	return err
}

func (m *Manager) send(chatID int64, text string) {
	if err := m.messenger.Send(chatID, text); err != nil {
		log.Printf("Failed to send message to chat %d: %v", chatID, err)
	}
}
