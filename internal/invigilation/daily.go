package invigilation

import (
	"sort"
	"time"
)

var arabicWeekdays = map[time.Weekday]string{
	time.Sunday:    "الأحد",
	time.Monday:    "الاثنين",
	time.Tuesday:   "الثلاثاء",
	time.Wednesday: "الأربعاء",
	time.Thursday:  "الخميس",
	time.Friday:    "الجمعة",
	time.Saturday:  "السبت",
}

// ArabicWeekday returns the Arabic weekday name of a date.
func ArabicWeekday(date time.Time) string {
	return arabicWeekdays[date.Weekday()]
}

// SessionSheet is a session with its slots laid out positionally. Unfilled
// slots hold an empty string.
type SessionSheet struct {
	Session     Session
	Supervisors []string
	Notes       []string
}

// DaySchedule groups the sheets of one exam day.
type DaySchedule struct {
	Date          time.Time
	Weekday       string
	WeekdayArabic string
	Sessions      []SessionSheet
}

// sheetKey identifies a session sheet. The session ID separates section
// copies and repeated rows; the content fields keep sessions built without
// an ID apart.
type sheetKey struct {
	id      int
	date    string
	start   Clock
	end     Clock
	subject string
	grade   string
	section string
	period  string
}

func sheetKeyOf(s Session) sheetKey {
	return sheetKey{
		id:      s.ID,
		date:    DateKey(s.Date),
		start:   s.Start,
		end:     s.End,
		subject: s.Subject,
		grade:   s.Grade,
		section: s.Section,
		period:  s.Period,
	}
}

// GroupByDay rebuilds per-session sheets from assignments and shortages and
// groups them by date. Sessions that received nobody appear through their
// shortage record.
func GroupByDay(assignments []Assignment, shortages []Shortage) []DaySchedule {
	sheets := make(map[sheetKey]*SessionSheet)
	order := make([]sheetKey, 0)
	sheetFor := func(session Session, width int) *SessionSheet {
		key := sheetKeyOf(session)
		sheet, ok := sheets[key]
		if !ok {
			sheet = &SessionSheet{Session: session}
			sheets[key] = sheet
			order = append(order, key)
		}
		for len(sheet.Supervisors) < width {
			sheet.Supervisors = append(sheet.Supervisors, "")
			sheet.Notes = append(sheet.Notes, "")
		}
		return sheet
	}

	for _, a := range assignments {
		width := a.SlotIndex + 1
		if a.Session.Needed > width {
			width = a.Session.Needed
		}
		sheet := sheetFor(a.Session, width)
		sheet.Supervisors[a.SlotIndex] = a.Supervisor
		if a.DifferentSpecialty {
			sheet.Notes[a.SlotIndex] = "different specialty"
		} else {
			sheet.Notes[a.SlotIndex] = "same specialty"
		}
	}
	for _, s := range shortages {
		sheetFor(s.Session, s.Required)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := sheets[order[i]].Session, sheets[order[j]].Session
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Start.Before(b.Start)
	})

	days := make([]DaySchedule, 0)
	for _, key := range order {
		sheet := sheets[key]
		if len(days) == 0 || DateKey(days[len(days)-1].Date) != key.date {
			date := sheet.Session.Date
			days = append(days, DaySchedule{
				Date:          date,
				Weekday:       date.Weekday().String(),
				WeekdayArabic: ArabicWeekday(date),
			})
		}
		last := &days[len(days)-1]
		last.Sessions = append(last.Sessions, *sheet)
	}
	return days
}
