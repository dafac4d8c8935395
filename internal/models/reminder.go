package models

import "time"

// Reminder is one row of the reminders table. A reminder is either
// one-shot (FireAt set) or recurring (RecurrenceRule set), never both.
// Deletion is logical: Active flips to false and the row stays.
type Reminder struct {
	ID             int64      `json:"id"`
	ChatID         int64      `json:"chat_id"`
	Message        string     `json:"message"`
	FireAt         *time.Time `json:"fire_at"`         // absolute instant for one-shot reminders
	RecurrenceRule string     `json:"recurrence_rule"` // 5-field cron spec, empty for one-shot
	IsRecurring    bool       `json:"is_recurring"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}
