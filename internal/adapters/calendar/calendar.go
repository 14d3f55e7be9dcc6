// Package calendar provides named weekly trading windows. None of them is
// authoritative; the operator picks one per deployment.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"zonebot/internal/ports"
)

// Session is an inclusive range of minutes since local midnight.
type Session struct {
	From int
	To   int
}

// Contains reports whether minute falls inside the session.
func (s Session) Contains(minute int) bool {
	return minute >= s.From && minute <= s.To
}

// Schedule is a weekly trading calendar evaluated in Location.
type Schedule struct {
	Name     string
	Days     [7][]Session // Indexed by time.Weekday
	Location *time.Location
}

var _ ports.TradingWindow = (*Schedule)(nil)

// IsTradingWindow reports whether now falls in one of the day's sessions.
func (s *Schedule) IsTradingWindow(now time.Time) bool {
	if s.Location != nil {
		now = now.In(s.Location)
	}
	minute := now.Hour()*60 + now.Minute()
	for _, session := range s.Days[now.Weekday()] {
		if session.Contains(minute) {
			return true
		}
	}
	return false
}

func hm(h, m int) int { return h*60 + m }

var allDay = []Session{{From: 0, To: hm(23, 59)}}

// weekdays builds a week with the same sessions Monday to Friday.
func weekdays(sessions ...Session) [7][]Session {
	var days [7][]Session
	for d := time.Monday; d <= time.Friday; d++ {
		days[d] = sessions
	}
	return days
}

// schedules holds the built-in calendars keyed by name.
var schedules = map[string]func() [7][]Session{
	"always": func() [7][]Session {
		var days [7][]Session
		for d := range days {
			days[d] = allDay
		}
		return days
	},
	// Around the clock except after the Saturday 04:30 close.
	"24x6-sat-0430": func() [7][]Session {
		days := weekdays(allDay...)
		days[time.Sunday] = allDay
		days[time.Saturday] = []Session{{From: 0, To: hm(4, 30)}}
		return days
	},
	// Weekdays all day, Sunday evening open, Saturday until 05:30.
	"evening-overnight": func() [7][]Session {
		days := weekdays(allDay...)
		days[time.Sunday] = []Session{{From: hm(18, 0), To: hm(23, 59)}}
		days[time.Saturday] = []Session{{From: 0, To: hm(5, 30)}}
		return days
	},
	"midnight-to-1559": func() [7][]Session {
		days := weekdays(Session{From: 0, To: hm(15, 59)})
		days[time.Monday] = []Session{{From: hm(6, 0), To: hm(15, 59)}}
		days[time.Sunday] = []Session{{From: hm(20, 0), To: hm(23, 59)}}
		days[time.Saturday] = []Session{{From: 0, To: hm(5, 30)}}
		return days
	},
	"asia-london": func() [7][]Session {
		london := Session{From: hm(10, 0), To: hm(17, 59)}
		days := weekdays(Session{From: hm(1, 0), To: hm(4, 59)}, london)
		days[time.Monday] = []Session{london}
		days[time.Saturday] = []Session{{From: hm(1, 0), To: hm(4, 30)}}
		return days
	},
	"weekdays-0200-1800": func() [7][]Session {
		return weekdays(Session{From: hm(2, 0), To: hm(18, 0)})
	},
}

// Lookup returns the named schedule evaluated in loc (time.Local when nil).
func Lookup(name string, loc *time.Location) (*Schedule, error) {
	build, ok := schedules[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown trading calendar %q (known: %v)", ports.ErrConfigurationError, name, Names())
	}
	if loc == nil {
		loc = time.Local
	}
	return &Schedule{Name: name, Days: build(), Location: loc}, nil
}

// Names lists the built-in calendars in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(schedules))
	for name := range schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
