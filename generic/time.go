package generic

import "fmt"

// =============================================================================
// SIMULATED TIME - Working hours and 1-based days
// =============================================================================

// Hour is a zero-based index of a simulated working hour.
type Hour int

// Day is a one-based simulated calendar day. Day 0 holds the opening balance.
type Day int

func (d Day) String() string { return fmt.Sprintf("day %d", int(d)) }

// Clock maps working hours to days. Only working hours are simulated,
// so hour 0..HoursPerDay-1 is day 1, the next block is day 2, and so on.
type Clock struct {
	HoursPerDay int
}

func NewClock(hoursPerDay int) Clock {
	if hoursPerDay <= 0 {
		hoursPerDay = 8
	}
	return Clock{HoursPerDay: hoursPerDay}
}

// DayOf returns the day an hour belongs to.
func (c Clock) DayOf(h Hour) Day { return Day(int(h)/c.HoursPerDay + 1) }

// HourOfDay returns the position of h inside its day (0-based).
func (c Clock) HourOfDay(h Hour) int { return int(h) % c.HoursPerDay }

// IsDayStart reports whether h is the first working hour of a day.
func (c Clock) IsDayStart(h Hour) bool { return c.HourOfDay(h) == 0 }

// FirstHour returns the first working hour of day d.
func (c Clock) FirstHour(d Day) Hour { return Hour((int(d) - 1) * c.HoursPerDay) }

// DaysFor returns how many days are needed to cover n hours (at least 1).
func (c Clock) DaysFor(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + c.HoursPerDay - 1) / c.HoursPerDay
}

// DayRange is an inclusive span of days.
type DayRange struct {
	From Day
	To   Day
}

// Contains returns true if d is within [From, To].
func (r DayRange) Contains(d Day) bool { return d >= r.From && d <= r.To }

// Days returns every day in the range.
func (r DayRange) Days() []Day {
	if r.To < r.From {
		return nil
	}
	days := make([]Day, 0, int(r.To-r.From)+1)
	for d := r.From; d <= r.To; d++ {
		days = append(days, d)
	}
	return days
}
