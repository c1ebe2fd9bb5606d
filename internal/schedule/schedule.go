// Package schedule computes weekly time-slot availability for the booking
// flow. Everything here is a pure function of (now, weekOffset, bookedSlots);
// callers refresh the booked-slot snapshot from the appointment store
// whenever the displayed week changes.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Days are the bookable days of a week, Monday first. Sunday is never
// bookable.
var Days = [6]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Slots carries the operator-configured time-slot sets per weekday class.
type Slots struct {
	Saturday []string
	Weekday  []string
}

// For returns the slot labels offered on the given day.
func (s Slots) For(day string) []string {
	if day == "Saturday" {
		return s.Saturday
	}
	return s.Weekday
}

// Contains reports whether the label belongs to the slot set for the day.
func (s Slots) Contains(day, label string) bool {
	for _, l := range s.For(day) {
		if l == label {
			return true
		}
	}
	return false
}

// SlotSet is the snapshot of already-booked "{M/D}-{time label}" keys.
type SlotSet map[string]struct{}

func NewSlotSet(keys ...string) SlotSet {
	s := make(SlotSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s SlotSet) Add(key string) { s[key] = struct{}{} }

func (s SlotSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

type SlotStatus struct {
	Label  string `json:"label"`
	Past   bool   `json:"past"`
	Booked bool   `json:"booked"`
}

func (s SlotStatus) Selectable() bool { return !s.Past && !s.Booked }

type DayAvailability struct {
	Day       string       `json:"day"`
	Date      time.Time    `json:"-"`
	DateLabel string       `json:"date"` // "M/D"
	Past      bool         `json:"past"`
	Slots     []SlotStatus `json:"slots"`
}

// FullyBooked reports whether every slot of the day is past or booked.
func (d DayAvailability) FullyBooked() bool {
	for _, s := range d.Slots {
		if s.Selectable() {
			return false
		}
	}
	return true
}

type Week struct {
	Offset int                `json:"offset"`
	Days   [6]DayAvailability `json:"days"`
}

func (w Week) FullyBooked() bool {
	for _, d := range w.Days {
		if !d.FullyBooked() {
			return false
		}
	}
	return true
}

// FormatDate renders a date the way slot keys and stored rows spell it.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// WeekDates returns the Monday..Saturday dates of the week `offset` weeks
// from the current one. Weeks start on Monday; a Sunday "now" belongs to the
// week that started the previous Monday.
func WeekDates(now time.Time, offset int) [6]time.Time {
	sinceMonday := (int(now.Weekday()) + 6) % 7
	monday := midnight(now).AddDate(0, 0, -sinceMonday+offset*7)

	var dates [6]time.Time
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i)
	}
	return dates
}

// Compute evaluates every day and slot of the requested week against the
// booked-slot snapshot. Idempotent: identical inputs yield identical output.
func Compute(now time.Time, offset int, booked SlotSet, slots Slots) Week {
	dates := WeekDates(now, offset)
	week := Week{Offset: offset}

	for i, day := range Days {
		date := dates[i]
		da := DayAvailability{
			Day:       day,
			Date:      date,
			DateLabel: FormatDate(date),
			Past:      dayInPast(now, offset, date),
		}
		for _, label := range slots.For(day) {
			da.Slots = append(da.Slots, SlotStatus{
				Label:  label,
				Past:   slotInPast(now, offset, date, da.Past, label),
				Booked: booked.Has(da.DateLabel + "-" + label),
			})
		}
		week.Days[i] = da
	}
	return week
}

// PreviousWeekFullyBooked decides whether backward navigation from `offset`
// should be disabled. The week before the displayed one is evaluated with
// past days counted as fully booked outright.
func PreviousWeekFullyBooked(now time.Time, offset int, booked SlotSet, slots Slots) bool {
	if offset == 0 {
		return false
	}

	dates := WeekDates(now, offset-1)
	today := midnight(now)

	for i, day := range Days {
		date := dates[i]
		if date.Before(today) {
			continue // past day counts as fully booked
		}
		dateLabel := FormatDate(date)
		for _, label := range slots.For(day) {
			if !booked.Has(dateLabel + "-" + label) {
				return false
			}
		}
	}
	return true
}

func dayInPast(now time.Time, offset int, date time.Time) bool {
	if offset > 0 {
		return false
	}
	return date.Before(midnight(now))
}

// slotInPast applies the inclusive boundary: a slot starting exactly at the
// current time-of-day on today's date is already past.
func slotInPast(now time.Time, offset int, date time.Time, dayPast bool, label string) bool {
	if offset > 0 {
		return false
	}
	if dayPast {
		return true
	}
	if !sameDate(date, now) {
		return false
	}
	slotMin, ok := ParseSlotLabel(label)
	if !ok {
		return false
	}
	return slotMin <= now.Hour()*60+now.Minute()
}

// ParseSlotLabel converts a "4:00PM"-style label to minutes since midnight.
func ParseSlotLabel(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	var pm bool
	switch {
	case strings.HasSuffix(s, "PM"):
		pm = true
	case strings.HasSuffix(s, "AM"):
	default:
		return 0, false
	}
	s = s[:len(s)-2]

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 1 || hour > 12 {
		return 0, false
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	if pm && hour != 12 {
		hour += 12
	}
	if !pm && hour == 12 {
		hour = 0
	}
	return hour*60 + minute, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
