package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"telegram-reminder-bot/internal/database"
	"telegram-reminder-bot/internal/models"
)

// UpdateFields is the field-update set applied by an edit. Message is
// always set; at most one of OneShotAt/Recurrence may be set, switching
// the reminder to that kind and clearing the other.
type UpdateFields struct {
	Message    string
	OneShotAt  *time.Time
	Recurrence string
}

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

const reminderColumns = `id, chat_id, message, fire_at, recurrence_rule, is_recurring, active, created_at`

func scanReminder(row pgx.Row) (*models.Reminder, error) {
	r := &models.Reminder{}
	var rule *string
	if err := row.Scan(&r.ID, &r.ChatID, &r.Message, &r.FireAt, &rule,
		&r.IsRecurring, &r.Active, &r.CreatedAt); err != nil {
		return nil, err
	}
	if rule != nil {
		r.RecurrenceRule = *rule
	}
	return r, nil
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	var rule *string
	if reminder.RecurrenceRule != "" {
		rule = &reminder.RecurrenceRule
	}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (chat_id, message, fire_at, recurrence_rule, is_recurring, active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id, created_at`,
		reminder.ChatID, reminder.Message, reminder.FireAt, rule, reminder.IsRecurring,
	).Scan(&reminder.ID, &reminder.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	reminder.Active = true
	return nil
}

// ListActive returns the active reminders of one chat.
func (r *ReminderRepository) ListActive(ctx context.Context, chatID int64) ([]*models.Reminder, error) {
	return r.list(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE active AND chat_id = $1 ORDER BY id`,
		chatID)
}

// ListAllActive returns every active reminder across all chats. Used by
// the startup reconciler.
func (r *ReminderRepository) ListAllActive(ctx context.Context) ([]*models.Reminder, error) {
	return r.list(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE active ORDER BY id`)
}

func (r *ReminderRepository) list(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

// GetByID returns an active reminder owned by chatID, or nil when no
// such row exists.
func (r *ReminderRepository) GetByID(ctx context.Context, id, chatID int64) (*models.Reminder, error) {
	reminder, err := scanReminder(r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1 AND chat_id = $2 AND active`,
		id, chatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

// IsActive reports whether the reminder is still active. Fire-time
// suppression check for recurring triggers.
func (r *ReminderRepository) IsActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT active FROM reminders WHERE id = $1`, id,
	).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check reminder: %w", err)
	}
	return active, nil
}

// Update applies the field set to an active reminder owned by chatID and
// returns the number of affected rows. Zero means not found or not owned,
// never an error.
func (r *ReminderRepository) Update(ctx context.Context, id, chatID int64, fields UpdateFields) (int64, error) {
	sets := []string{"message = $1"}
	args := []any{fields.Message}

	switch {
	case fields.OneShotAt != nil:
		sets = append(sets, fmt.Sprintf("fire_at = $%d", len(args)+1),
			"recurrence_rule = NULL", "is_recurring = FALSE")
		args = append(args, *fields.OneShotAt)
	case fields.Recurrence != "":
		sets = append(sets, fmt.Sprintf("recurrence_rule = $%d", len(args)+1),
			"fire_at = NULL", "is_recurring = TRUE")
		args = append(args, fields.Recurrence)
	}

	query := "UPDATE reminders SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += fmt.Sprintf(" WHERE id = $%d AND chat_id = $%d AND active", len(args)+1, len(args)+2)
	args = append(args, id, chatID)

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update reminder: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SoftDelete deactivates one reminder. Idempotent: deactivating an
// inactive or foreign id affects zero rows.
func (r *ReminderRepository) SoftDelete(ctx context.Context, id, chatID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET active = FALSE WHERE id = $1 AND chat_id = $2 AND active`,
		id, chatID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminder: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SoftDeleteAll deactivates every active reminder of a chat and returns
// how many were deactivated.
func (r *ReminderRepository) SoftDeleteAll(ctx context.Context, chatID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET active = FALSE WHERE chat_id = $1 AND active`,
		chatID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}
