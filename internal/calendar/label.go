package calendar

import (
	"fmt"
	"time"
)

// French day and month names, indexed by time.Weekday and time.Month.
var (
	frDays = [7]string{
		"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
	}
	frMonths = [13]string{
		"", "janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre",
	}
)

// FormatLabel renders a slot start time in the French spoken form used by
// the slot-proposal prompt: "mardi 3 mars à 9h00".
func FormatLabel(t time.Time) string {
	return fmt.Sprintf("%s %d %s à %dh%02d",
		frDays[t.Weekday()], t.Day(), frMonths[t.Month()], t.Hour(), t.Minute())
}
