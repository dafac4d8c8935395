// Package cronrule validates and humanizes the 5-field recurrence
// rules ("MM HH DOM MON DOW") attached to recurring reminders.
package cronrule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"telegram-reminder-bot/internal/format"
)

// Same field set gocron arms jobs with, so a rule accepted here is a
// rule the engine can schedule.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate rejects rules the scheduler could not arm.
func Validate(rule string) error {
	if _, err := parser.Parse(rule); err != nil {
		return fmt.Errorf("invalid recurrence rule %q: %w", rule, err)
	}
	return nil
}

// Humanize renders a rule as Spanish text for listings:
// day-of-week "*" → "Todos los días a las h:mm", "1-5" → "De lunes a
// viernes a las h:mm", anything else falls back to the raw rule.
func Humanize(rule string) string {
	fields := strings.Fields(rule)
	if len(fields) != 5 {
		return fmt.Sprintf("Recurrente (%s)", rule)
	}

	minute, errM := strconv.Atoi(fields[0])
	hour, errH := strconv.Atoi(fields[1])
	if errM != nil || errH != nil {
		return fmt.Sprintf("Recurrente (%s)", rule)
	}
	clock := format.Clock12(hour, minute)

	switch fields[4] {
	case "*":
		return fmt.Sprintf("Todos los días a las %s", clock)
	case "1-5":
		return fmt.Sprintf("De lunes a viernes a las %s", clock)
	default:
		return fmt.Sprintf("Recurrente (%s)", rule)
	}
}
