// Package format renders dates and times in Spanish for user-facing
// replies. All output uses the bot's fixed timezone (UTC−05:00).
package format

import (
	"fmt"
	"time"
)

// Location is the single timezone every user-facing time is rendered
// and evaluated in.
var Location = time.FixedZone("UTC-05:00", -5*60*60)

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Time12 renders a clock time as 12-hour "h:mm AM/PM".
func Time12(t time.Time) string {
	t = t.In(Location)
	return Clock12(t.Hour(), t.Minute())
}

// Clock12 renders an hour/minute pair as 12-hour "h:mm AM/PM".
func Clock12(hour, minute int) string {
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, ampm)
}

// LongDateTime renders an instant as "5 de agosto de 2025, 4:00 PM".
// Used in creation and edit confirmations.
func LongDateTime(t time.Time) string {
	t = t.In(Location)
	return fmt.Sprintf("%d de %s de %d, %s", t.Day(), months[t.Month()-1], t.Year(), Time12(t))
}

// ShortDateTime renders an instant as "05/08/2025 4:00 PM". Used in
// reminder listings.
func ShortDateTime(t time.Time) string {
	t = t.In(Location)
	return fmt.Sprintf("%02d/%02d/%04d %s", t.Day(), int(t.Month()), t.Year(), Time12(t))
}
