package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-invigilation-api/internal/invigilation"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/pkg/export"
)

const localeArabic = "ar"

type columnLabels struct {
	Date, Weekday, Start, End, Subject, Grade, Section, Period   string
	Slot, Supervisor, Pool, Specialty, Note                      string
	Required, Filled, Missing, Metric, Value, Assignments, Share string
}

var englishColumns = columnLabels{
	Date: "Date", Weekday: "Day", Start: "Start", End: "End", Subject: "Subject",
	Grade: "Grade", Section: "Section", Period: "Period", Slot: "Slot",
	Supervisor: "Supervisor", Pool: "Pool", Specialty: "Specialty", Note: "Note",
	Required: "Required", Filled: "Filled", Missing: "Missing",
	Metric: "Metric", Value: "Value", Assignments: "Assignments", Share: "Share (%)",
}

var arabicColumns = columnLabels{
	Date: "التاريخ", Weekday: "اليوم", Start: "من", End: "إلى", Subject: "المادة",
	Grade: "المستوى", Section: "الفصل", Period: "الحصة", Slot: "رقم المراقب",
	Supervisor: "المراقب", Pool: "النوع", Specialty: "التخصص", Note: "ملاحظة",
	Required: "المطلوب", Filled: "المكلف", Missing: "العجز",
	Metric: "البند", Value: "القيمة", Assignments: "عدد المراقبات", Share: "النسبة (%)",
}

func labelsFor(locale string) columnLabels {
	if locale == localeArabic {
		return arabicColumns
	}
	return englishColumns
}

func weekdayLabel(locale string, s invigilation.Session) string {
	if locale == localeArabic {
		return invigilation.ArabicWeekday(s.Date)
	}
	return s.Date.Weekday().String()
}

func specialtyNote(locale string, different bool) string {
	switch {
	case locale == localeArabic && different:
		return "تخصص مختلف"
	case locale == localeArabic:
		return "نفس التخصص"
	case different:
		return "different specialty"
	default:
		return "same specialty"
	}
}

// filterResult narrows a roster to one supervisor and/or one exam day.
// Shortages are only narrowed by day.
func filterResult(result invigilation.Result, params models.ExportJobParams) invigilation.Result {
	supervisor := strings.TrimSpace(params.Supervisor)
	if supervisor == "" && params.Date == "" {
		return result
	}
	out := invigilation.Result{
		Assignments: make([]invigilation.Assignment, 0, len(result.Assignments)),
		Shortages:   make([]invigilation.Shortage, 0, len(result.Shortages)),
	}
	for _, a := range result.Assignments {
		if params.Date != "" && invigilation.DateKey(a.Session.Date) != params.Date {
			continue
		}
		if supervisor != "" && !strings.EqualFold(a.Supervisor, supervisor) {
			continue
		}
		out.Assignments = append(out.Assignments, a)
	}
	for _, s := range result.Shortages {
		if params.Date != "" && invigilation.DateKey(s.Session.Date) != params.Date {
			continue
		}
		out.Shortages = append(out.Shortages, s)
	}
	return out
}

func assignmentDataset(result invigilation.Result, locale string) export.Dataset {
	l := labelsFor(locale)
	rows := make([]map[string]string, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		rows = append(rows, map[string]string{
			l.Date:       invigilation.DateKey(a.Session.Date),
			l.Weekday:    weekdayLabel(locale, a.Session),
			l.Start:      a.Session.Start.String(),
			l.End:        a.Session.End.String(),
			l.Subject:    a.Session.Subject,
			l.Grade:      a.Session.Grade,
			l.Section:    a.Session.Section,
			l.Period:     a.Session.Period,
			l.Slot:       strconv.Itoa(a.SlotIndex + 1),
			l.Supervisor: a.Supervisor,
			l.Pool:       string(a.Pool),
			l.Specialty:  a.Specialty,
			l.Note:       specialtyNote(locale, a.DifferentSpecialty),
		})
	}
	return export.Dataset{
		Headers: []string{l.Date, l.Weekday, l.Start, l.End, l.Subject, l.Grade, l.Section, l.Period, l.Slot, l.Supervisor, l.Pool, l.Specialty, l.Note},
		Rows:    rows,
	}
}

func shortageDataset(result invigilation.Result, locale string) export.Dataset {
	l := labelsFor(locale)
	rows := make([]map[string]string, 0, len(result.Shortages))
	for _, s := range result.Shortages {
		rows = append(rows, map[string]string{
			l.Date:     invigilation.DateKey(s.Session.Date),
			l.Start:    s.Session.Start.String(),
			l.End:      s.Session.End.String(),
			l.Subject:  s.Session.Subject,
			l.Grade:    s.Session.Grade,
			l.Section:  s.Session.Section,
			l.Period:   s.Session.Period,
			l.Required: strconv.Itoa(s.Required),
			l.Filled:   strconv.Itoa(s.Filled),
			l.Missing:  strconv.Itoa(s.Required - s.Filled),
		})
	}
	return export.Dataset{
		Headers: []string{l.Date, l.Start, l.End, l.Subject, l.Grade, l.Section, l.Period, l.Required, l.Filled, l.Missing},
		Rows:    rows,
	}
}

// statsDataset lists the per-supervisor shares followed by the summary
// figures.
func statsDataset(result invigilation.Result, locale string) export.Dataset {
	l := labelsFor(locale)
	stats := invigilation.Summarize(result.Assignments, result.Shortages)
	rows := make([]map[string]string, 0, len(stats.Shares)+7)
	for _, share := range stats.Shares {
		rows = append(rows, map[string]string{
			l.Supervisor:  share.Name,
			l.Assignments: strconv.Itoa(share.Count),
			l.Share:       fmt.Sprintf("%.2f", share.Percent),
		})
	}
	summary := []struct{ metric, value string }{
		{"total", strconv.Itoa(stats.Total)},
		{"min_load", strconv.Itoa(stats.MinLoad)},
		{"max_load", strconv.Itoa(stats.MaxLoad)},
		{"avg_load", fmt.Sprintf("%.2f", stats.AvgLoad)},
		{"different_specialty", strconv.Itoa(stats.DifferentSpecialtyCount)},
		{"different_specialty_percent", fmt.Sprintf("%.2f", stats.DifferentSpecialtyPercent)},
		{"shortages", strconv.Itoa(stats.ShortageCount)},
	}
	for _, item := range summary {
		rows = append(rows, map[string]string{l.Metric: item.metric, l.Value: item.value})
	}
	return export.Dataset{
		Headers: []string{l.Supervisor, l.Assignments, l.Share, l.Metric, l.Value},
		Rows:    rows,
	}
}

// dailyDataset flattens the daily sheets with one supervisor column per slot.
func dailyDataset(result invigilation.Result, locale string) export.Dataset {
	l := labelsFor(locale)
	days := invigilation.GroupByDay(result.Assignments, result.Shortages)
	width := 0
	for _, day := range days {
		for _, sheet := range day.Sessions {
			if len(sheet.Supervisors) > width {
				width = len(sheet.Supervisors)
			}
		}
	}
	headers := []string{l.Date, l.Weekday, l.Start, l.End, l.Subject, l.Grade, l.Section, l.Period}
	slots := make([]string, width)
	for i := range slots {
		slots[i] = fmt.Sprintf("%s %d", l.Supervisor, i+1)
	}
	headers = append(headers, slots...)

	rows := make([]map[string]string, 0)
	for _, day := range days {
		weekday := day.Weekday
		if locale == localeArabic {
			weekday = day.WeekdayArabic
		}
		for _, sheet := range day.Sessions {
			row := map[string]string{
				l.Date:    invigilation.DateKey(day.Date),
				l.Weekday: weekday,
				l.Start:   sheet.Session.Start.String(),
				l.End:     sheet.Session.End.String(),
				l.Subject: sheet.Session.Subject,
				l.Grade:   sheet.Session.Grade,
				l.Section: sheet.Session.Section,
				l.Period:  sheet.Session.Period,
			}
			for i, name := range sheet.Supervisors {
				row[slots[i]] = name
			}
			rows = append(rows, row)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// dailySheets converts grouped days into PDF pages.
func dailySheets(result invigilation.Result, locale string) []export.DailySheet {
	days := invigilation.GroupByDay(result.Assignments, result.Shortages)
	sheets := make([]export.DailySheet, 0, len(days))
	for _, day := range days {
		label := day.Weekday
		if locale == localeArabic {
			label = day.WeekdayArabic
		}
		rows := make([]export.DailyRow, 0, len(day.Sessions))
		for _, sheet := range day.Sessions {
			window := sheet.Session.Start.String()
			if end := sheet.Session.End.String(); end != "" {
				window = window + " - " + end
			}
			rows = append(rows, export.DailyRow{
				Subject:     sheet.Session.Subject,
				Grade:       sheet.Session.Grade,
				Section:     sheet.Session.Section,
				Period:      sheet.Session.Period,
				Time:        window,
				Supervisors: sheet.Supervisors,
			})
		}
		sheets = append(sheets, export.DailySheet{
			DayLabel:  label,
			DateLabel: invigilation.DateKey(day.Date),
			Rows:      rows,
		})
	}
	return sheets
}
