package attendance

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/shule/core"
)

// Classifier derives an attendance Status from a scan's wall-clock time.
// Cut-offs are policy, not physics: they come from configuration and default
// to 08:00/10:00 (morning) and 14:00/15:00 (afternoon). A time strictly before
// the late cut-off is Present, before the absent cut-off is Late, Absent otherwise.
type Classifier struct {
	morningLate     int // minutes since midnight
	morningAbsent   int
	afternoonLate   int
	afternoonAbsent int
}

func NewClassifier(conf core.AttendanceConfig) (*Classifier, error) {
	c := &Classifier{}
	for _, cutoff := range []struct {
		val  string
		dest *int
	}{
		{conf.MorningLateAt, &c.morningLate},
		{conf.MorningAbsentAt, &c.morningAbsent},
		{conf.AfternoonLateAt, &c.afternoonLate},
		{conf.AfternoonAbsentAt, &c.afternoonAbsent},
	} {
		min, err := parseClock(cutoff.val)
		if err != nil {
			return nil, err
		}
		*cutoff.dest = min
	}
	if c.morningAbsent < c.morningLate || c.afternoonAbsent < c.afternoonLate {
		return nil, errors.New("attendance cut-offs out of order")
	}
	return c, nil
}

// Classify is pure and total: every (time, period) pair maps to a Status.
func (c *Classifier) Classify(t time.Time, period Period) Status {
	min := t.Hour()*60 + t.Minute()

	late, absent := c.morningLate, c.morningAbsent
	if period == PeriodAfternoon {
		late, absent = c.afternoonLate, c.afternoonAbsent
	}

	switch {
	case min < late:
		return StatusPresent
	case min < absent:
		return StatusLate
	default:
		return StatusAbsent
	}
}

// parseClock parses "HH:MM" (24h) into minutes since midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, errors.Wrapf(err, "parsing clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errors.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}
