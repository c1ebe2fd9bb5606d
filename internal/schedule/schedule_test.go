package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSlots = Slots{
	Saturday: []string{"12:00PM", "2:00PM", "4:00PM", "6:00PM"},
	Weekday:  []string{"4:00PM", "6:00PM"},
}

// Tuesday, June 10 2025, 10:00 local. The surrounding week runs Monday 6/9
// through Saturday 6/14.
var tuesdayMorning = time.Date(2025, time.June, 10, 10, 0, 0, 0, time.Local)

func allKeysFor(now time.Time, offset int, slots Slots) []string {
	dates := WeekDates(now, offset)
	var keys []string
	for i, day := range Days {
		for _, label := range slots.For(day) {
			keys = append(keys, FormatDate(dates[i])+"-"+label)
		}
	}
	return keys
}

func TestWeekDatesMondayStart(t *testing.T) {
	dates := WeekDates(tuesdayMorning, 0)

	assert.Equal(t, time.Monday, dates[0].Weekday())
	assert.Equal(t, "6/9", FormatDate(dates[0]))
	assert.Equal(t, "6/14", FormatDate(dates[5]))

	next := WeekDates(tuesdayMorning, 1)
	assert.Equal(t, "6/16", FormatDate(next[0]))
}

func TestWeekDatesOnSunday(t *testing.T) {
	// Sunday still belongs to the week that started the previous Monday.
	sunday := time.Date(2025, time.June, 15, 9, 0, 0, 0, time.Local)
	dates := WeekDates(sunday, 0)
	assert.Equal(t, "6/9", FormatDate(dates[0]))
}

func TestPastDaysAtZeroOffset(t *testing.T) {
	week := Compute(tuesdayMorning, 0, NewSlotSet(), testSlots)

	assert.True(t, week.Days[0].Past, "Monday 6/9 precedes today")
	assert.False(t, week.Days[1].Past, "today is not past")
	for i := 2; i < 6; i++ {
		assert.False(t, week.Days[i].Past, "%s should not be past", Days[i])
	}

	// Every slot of a past day is past regardless of bookings.
	for _, s := range week.Days[0].Slots {
		assert.True(t, s.Past)
	}
}

func TestFutureWeeksNeverPast(t *testing.T) {
	week := Compute(tuesdayMorning, 1, NewSlotSet(), testSlots)
	for _, d := range week.Days {
		assert.False(t, d.Past)
		for _, s := range d.Slots {
			assert.False(t, s.Past)
		}
	}
}

func TestSlotBoundaryIsInclusive(t *testing.T) {
	// 4:00PM today with now exactly 16:00: the slot is past.
	atFour := time.Date(2025, time.June, 10, 16, 0, 0, 0, time.Local)
	week := Compute(atFour, 0, NewSlotSet(), testSlots)

	today := week.Days[1] // Tuesday
	require.Equal(t, "6/10", today.DateLabel)
	require.Len(t, today.Slots, 2)
	assert.True(t, today.Slots[0].Past, "4:00PM at 16:00 sharp is past")
	assert.False(t, today.Slots[1].Past, "6:00PM is still ahead")
}

func TestSaturdaySlotSelectable(t *testing.T) {
	// Tuesday 10:00, offset 0, Saturday 12:00PM unbooked.
	week := Compute(tuesdayMorning, 0, NewSlotSet(), testSlots)

	sat := week.Days[5]
	require.Equal(t, "Saturday", sat.Day)
	require.Len(t, sat.Slots, 4)
	assert.Equal(t, "12:00PM", sat.Slots[0].Label)
	assert.True(t, sat.Slots[0].Selectable())
}

func TestBookedSlotNotSelectable(t *testing.T) {
	booked := NewSlotSet("6/14-12:00PM")
	week := Compute(tuesdayMorning, 0, booked, testSlots)

	sat := week.Days[5]
	assert.True(t, sat.Slots[0].Booked)
	assert.False(t, sat.Slots[0].Selectable())
	assert.True(t, sat.Slots[1].Selectable(), "other slots unaffected")
}

func TestSelectableDefinition(t *testing.T) {
	booked := NewSlotSet("6/12-4:00PM")
	week := Compute(tuesdayMorning, 0, booked, testSlots)

	for _, d := range week.Days {
		for _, s := range d.Slots {
			assert.Equal(t, !s.Past && !s.Booked, s.Selectable())
		}
	}
}

func TestDayFullyBooked(t *testing.T) {
	booked := NewSlotSet("6/12-4:00PM", "6/12-6:00PM")
	week := Compute(tuesdayMorning, 0, booked, testSlots)

	assert.True(t, week.Days[3].FullyBooked(), "Thursday has both slots booked")
	assert.True(t, week.Days[0].FullyBooked(), "past Monday counts as fully booked")
	assert.False(t, week.Days[5].FullyBooked())
}

func TestWeekFullyBooked(t *testing.T) {
	booked := NewSlotSet(allKeysFor(tuesdayMorning, 0, testSlots)...)
	week := Compute(tuesdayMorning, 0, booked, testSlots)
	assert.True(t, week.FullyBooked())

	// Freeing one future slot un-fills the week.
	delete(booked, "6/14-6:00PM")
	assert.False(t, Compute(tuesdayMorning, 0, booked, testSlots).FullyBooked())
}

func TestComputeIsPure(t *testing.T) {
	booked := NewSlotSet("6/11-4:00PM", "6/14-2:00PM")
	a := Compute(tuesdayMorning, 0, booked, testSlots)
	b := Compute(tuesdayMorning, 0, booked, testSlots)
	assert.Equal(t, a, b)
}

func TestPreviousWeekFullyBooked(t *testing.T) {
	// Offset 0: never anything to navigate back to.
	assert.False(t, PreviousWeekFullyBooked(tuesdayMorning, 0, NewSlotSet(), testSlots))

	// Offset 1: the current week has open future slots, so back-nav stays on.
	assert.False(t, PreviousWeekFullyBooked(tuesdayMorning, 1, NewSlotSet(), testSlots))

	// Book every remaining (non-past) slot of the current week: Monday 6/9 is
	// past and counts as fully booked on its own.
	booked := NewSlotSet()
	dates := WeekDates(tuesdayMorning, 0)
	for i, day := range Days {
		if i == 0 {
			continue
		}
		for _, label := range testSlots.For(day) {
			booked.Add(FormatDate(dates[i]) + "-" + label)
		}
	}
	assert.True(t, PreviousWeekFullyBooked(tuesdayMorning, 1, booked, testSlots))

	// Today's already-elapsed slots still require a booking for the back-nav
	// comparison; unbook one of today's and the week opens up.
	delete(booked, "6/10-4:00PM")
	assert.False(t, PreviousWeekFullyBooked(tuesdayMorning, 1, booked, testSlots))
}

func TestParseSlotLabel(t *testing.T) {
	cases := []struct {
		label string
		min   int
		ok    bool
	}{
		{"12:00PM", 12 * 60, true},
		{"12:00AM", 0, true},
		{"4:00PM", 16 * 60, true},
		{"6:30PM", 18*60 + 30, true},
		{"9:15AM", 9*60 + 15, true},
		{"4:00", 0, false},
		{"25:00PM", 0, false},
		{"4:75PM", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		min, ok := ParseSlotLabel(c.label)
		assert.Equal(t, c.ok, ok, "label %q", c.label)
		if c.ok {
			assert.Equal(t, c.min, min, "label %q", c.label)
		}
	}
}

func TestSlotsContains(t *testing.T) {
	assert.True(t, testSlots.Contains("Saturday", "12:00PM"))
	assert.False(t, testSlots.Contains("Monday", "12:00PM"))
	assert.True(t, testSlots.Contains("Monday", "4:00PM"))
}
