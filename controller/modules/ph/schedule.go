package ph

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

// ParseSchedule parses an RRULE string (e.g. "FREQ=WEEKLY").
// Empty string → no schedule.
func ParseSchedule(ruleStr string) (*rrule.RRule, error) {
	if ruleStr == "" {
		return nil, nil
	}
	// Prepend DTSTART=now in UTC
	start := time.Now().UTC().Format("20060102T150405Z")
	return rrule.StrToRRule("DTSTART=" + start + ";" + ruleStr)
}

// StartSchedule spawns a goroutine that waits for each recurrence, then
// calls the provided callback. It stops when quit is closed.
func StartSchedule(ruleStr string, quit <-chan struct{}, callback func()) {
	if ruleStr == "" {
		return
	}
	rr, err := ParseSchedule(ruleStr)
	if err != nil {
		logrus.Warnf("invalid schedule %q: %v", ruleStr, err)
		return
	}
	go func() {
		for {
			next := rr.After(time.Now(), false)
			if next.IsZero() {
				return
			}
			select {
			case <-time.After(time.Until(next)):
				callback()
			case <-quit:
				return
			}
		}
	}()
}
