package service

import (
	"time"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/invigilation"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
)

func assignmentViews(assignments []invigilation.Assignment) []dto.AssignmentView {
	views := make([]dto.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, dto.AssignmentView{
			SessionID:          a.Session.ID,
			Date:               invigilation.DateKey(a.Session.Date),
			Weekday:            a.Session.Date.Weekday().String(),
			StartTime:          a.Session.Start.String(),
			EndTime:            a.Session.End.String(),
			Subject:            a.Session.Subject,
			Grade:              a.Session.Grade,
			Section:            a.Session.Section,
			Period:             a.Session.Period,
			SlotIndex:          a.SlotIndex,
			SupervisorName:     a.Supervisor,
			Pool:               string(a.Pool),
			Specialty:          a.Specialty,
			DifferentSpecialty: a.DifferentSpecialty,
		})
	}
	return views
}

func shortageViews(shortages []invigilation.Shortage) []dto.ShortageView {
	views := make([]dto.ShortageView, 0, len(shortages))
	for _, s := range shortages {
		views = append(views, dto.ShortageView{
			SessionID: s.Session.ID,
			Date:      invigilation.DateKey(s.Session.Date),
			StartTime: s.Session.Start.String(),
			EndTime:   s.Session.End.String(),
			Subject:   s.Session.Subject,
			Grade:     s.Session.Grade,
			Section:   s.Session.Section,
			Period:    s.Session.Period,
			Required:  s.Required,
			Filled:    s.Filled,
			Missing:   s.Required - s.Filled,
		})
	}
	return views
}

func statsView(stats invigilation.Statistics) dto.RosterStatsView {
	shares := make([]dto.SupervisorShareView, 0, len(stats.Shares))
	for _, share := range stats.Shares {
		shares = append(shares, dto.SupervisorShareView{Name: share.Name, Count: share.Count, Percent: share.Percent})
	}
	return dto.RosterStatsView{
		Total:                     stats.Total,
		MinLoad:                   stats.MinLoad,
		MaxLoad:                   stats.MaxLoad,
		AvgLoad:                   stats.AvgLoad,
		DifferentSpecialtyCount:   stats.DifferentSpecialtyCount,
		DifferentSpecialtyPercent: stats.DifferentSpecialtyPercent,
		ShortageCount:             stats.ShortageCount,
		Shares:                    shares,
		PerDay:                    stats.PerDay,
	}
}

func dailyViews(days []invigilation.DaySchedule) []dto.DailyScheduleView {
	views := make([]dto.DailyScheduleView, 0, len(days))
	for _, day := range days {
		sessions := make([]dto.DailySessionView, 0, len(day.Sessions))
		for _, sheet := range day.Sessions {
			sessions = append(sessions, dto.DailySessionView{
				StartTime:   sheet.Session.Start.String(),
				EndTime:     sheet.Session.End.String(),
				Subject:     sheet.Session.Subject,
				Grade:       sheet.Session.Grade,
				Section:     sheet.Session.Section,
				Period:      sheet.Session.Period,
				Supervisors: sheet.Supervisors,
				Notes:       sheet.Notes,
			})
		}
		views = append(views, dto.DailyScheduleView{
			Date:          invigilation.DateKey(day.Date),
			Weekday:       day.Weekday,
			WeekdayArabic: day.WeekdayArabic,
			Sessions:      sessions,
		})
	}
	return views
}

func rosterPolicy(p invigilation.Policy) models.RosterPolicy {
	tiers := make(map[string]int, len(p.GradeTiers))
	for grade, tier := range p.GradeTiers {
		tiers[grade] = int(tier)
	}
	return models.RosterPolicy{
		SpecialtyMode:        string(p.SpecialtyMode),
		SecondaryRule:        string(p.SecondaryRule),
		DefaultDailyCapacity: p.DefaultDailyCapacity,
		SectionDailyCapacity: p.SectionDailyCapacity,
		DefaultNeeded:        p.DefaultNeeded,
		GradeTiers:           tiers,
		DefaultTier:          int(p.DefaultTier),
	}
}

func rosterStats(stats invigilation.Statistics) models.RosterStats {
	return models.RosterStats{
		Total:                     stats.Total,
		MinLoad:                   stats.MinLoad,
		MaxLoad:                   stats.MaxLoad,
		AvgLoad:                   stats.AvgLoad,
		DifferentSpecialtyCount:   stats.DifferentSpecialtyCount,
		DifferentSpecialtyPercent: stats.DifferentSpecialtyPercent,
		ShortageCount:             stats.ShortageCount,
		SupervisorCounts:          stats.SupervisorCounts,
		PerDay:                    stats.PerDay,
	}
}

func rosterRows(result invigilation.Result) ([]models.RosterAssignment, []models.RosterShortage) {
	assignments := make([]models.RosterAssignment, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		assignments = append(assignments, models.RosterAssignment{
			SessionID:          a.Session.ID,
			ExamDate:           a.Session.Date,
			StartTime:          a.Session.Start.String(),
			EndTime:            a.Session.End.String(),
			Subject:            a.Session.Subject,
			Grade:              a.Session.Grade,
			Section:            a.Session.Section,
			Period:             a.Session.Period,
			SlotIndex:          a.SlotIndex,
			SupervisorName:     a.Supervisor,
			Pool:               string(a.Pool),
			Specialty:          a.Specialty,
			DifferentSpecialty: a.DifferentSpecialty,
		})
	}
	shortages := make([]models.RosterShortage, 0, len(result.Shortages))
	for _, s := range result.Shortages {
		shortages = append(shortages, models.RosterShortage{
			SessionID: s.Session.ID,
			ExamDate:  s.Session.Date,
			StartTime: s.Session.Start.String(),
			EndTime:   s.Session.End.String(),
			Subject:   s.Session.Subject,
			Grade:     s.Session.Grade,
			Section:   s.Session.Section,
			Period:    s.Session.Period,
			Required:  s.Required,
			Filled:    s.Filled,
		})
	}
	return assignments, shortages
}

// restoreResult rebuilds engine records from stored rows. A session's
// requirement is its shortage requirement, or the number of filled slots
// when it was fully staffed.
func restoreResult(assignments []models.RosterAssignment, shortages []models.RosterShortage) invigilation.Result {
	required := make(map[int]int)
	for _, s := range shortages {
		required[s.SessionID] = s.Required
	}
	filled := make(map[int]int)
	for _, a := range assignments {
		if a.SlotIndex+1 > filled[a.SessionID] {
			filled[a.SessionID] = a.SlotIndex + 1
		}
	}
	neededFor := func(id int) int {
		if n, ok := required[id]; ok {
			return n
		}
		return filled[id]
	}

	session := func(id int, date time.Time, start, end, subject, grade, section, period string) invigilation.Session {
		startClock, _ := invigilation.ParseClock(start)
		endClock, _ := invigilation.ParseClock(end)
		return invigilation.Session{
			ID:      id,
			Date:    time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
			Start:   startClock,
			End:     endClock,
			Subject: subject,
			Grade:   grade,
			Section: section,
			Period:  period,
			Needed:  neededFor(id),
		}
	}

	result := invigilation.Result{
		Assignments: make([]invigilation.Assignment, 0, len(assignments)),
		Shortages:   make([]invigilation.Shortage, 0, len(shortages)),
	}
	for _, a := range assignments {
		result.Assignments = append(result.Assignments, invigilation.Assignment{
			Session:            session(a.SessionID, a.ExamDate, a.StartTime, a.EndTime, a.Subject, a.Grade, a.Section, a.Period),
			SlotIndex:          a.SlotIndex,
			Supervisor:         a.SupervisorName,
			Pool:               invigilation.Pool(a.Pool),
			Specialty:          a.Specialty,
			DifferentSpecialty: a.DifferentSpecialty,
		})
	}
	for _, s := range shortages {
		result.Shortages = append(result.Shortages, invigilation.Shortage{
			Session:  session(s.SessionID, s.ExamDate, s.StartTime, s.EndTime, s.Subject, s.Grade, s.Section, s.Period),
			Required: s.Required,
			Filled:   s.Filled,
		})
	}
	return result
}
