package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/invigilation"
	"github.com/noah-isme/sma-invigilation-api/pkg/tabular"
)

// Canonical import columns.
const (
	colTeacherName      = "teacher_name"
	colSpecialty        = "specialty"
	colDailyCapacity    = "daily_capacity"
	colUnavailable      = "unavailable"
	colPool             = "pool"
	colLevel            = "level"
	colSection          = "section"
	colSupervisorsCount = "supervisors_needed"
)

// Table names used in dropped-row reports and missing-column errors.
const (
	tableSupervisors = "supervisors"
	tableSessions    = "sessions"
	tableSections    = "sections"
)

var supervisorHeaders = map[string][]string{
	colTeacherName:   {"name", "teacher", "supervisor", "supervisor_name", "اسم المعلم", "اسم المعلمة", "المعلم", "المعلمة", "اسم المراقب", "الاسم"},
	colSpecialty:     {"subject", "specialization", "التخصص", "المادة الدراسية"},
	colDailyCapacity: {"max_per_day", "capacity", "الحد اليومي", "الحد الأقصى اليومي"},
	colUnavailable:   {"unavailable_dates", "unavailability", "غير متاح", "أيام عدم التوفر", "أيام الغياب"},
	colPool:          {"type", "role", "النوع"},
}

var sessionHeaders = map[string][]string{
	tabular.ColumnExamDate:  {"date", "exam_day", "التاريخ", "تاريخ الاختبار", "اليوم والتاريخ"},
	tabular.ColumnStartTime: {"start", "from", "وقت البداية", "بداية الاختبار", "من"},
	tabular.ColumnEndTime:   {"end", "to", "وقت النهاية", "نهاية الاختبار", "إلى"},
	tabular.ColumnSubject:   {"exam_subject", "course", "المادة", "مادة الاختبار"},
	tabular.ColumnGrade:     {"grade_level", "الصف الدراسي"},
	colLevel:                {"stage", "المستوى", "المرحلة"},
	colSection:              {"class", "الفصل", "الشعبة"},
	tabular.ColumnPeriod:    {"session", "الحصة", "الفترة"},
	colSupervisorsCount:     {"needed", "supervisors", "عدد المراقبين"},
	"second_period":         {"الحصة الثانية", "period_2"},
	"third_fourth_period":   {"الحصة الثالثة والرابعة", "period_3_4"},
}

var sectionHeaders = map[string][]string{
	tabular.ColumnGrade: {"level", "grade_level", "المستوى", "الصف الدراسي"},
	colSection:          {"class", "section_name", "الصف", "الفصل", "الشعبة"},
}

// importAliases holds the header alias table for each input table.
type importAliases struct {
	supervisors tabular.Aliases
	sessions    tabular.Aliases
	sections    tabular.Aliases
}

// newImportAliases merges configured spellings (canonical -> spellings) into
// every table's defaults.
func newImportAliases(extra map[string][]string) importAliases {
	merge := func(base map[string][]string) tabular.Aliases {
		combined := make(map[string][]string, len(base)+len(extra))
		for canonical, spellings := range base {
			combined[canonical] = append([]string(nil), spellings...)
		}
		for canonical, spellings := range extra {
			combined[canonical] = append(combined[canonical], spellings...)
		}
		return tabular.NewAliases(combined)
	}
	return importAliases{
		supervisors: merge(supervisorHeaders),
		sessions:    merge(sessionHeaders),
		sections:    merge(sectionHeaders),
	}
}

// sessionRow keeps the source line of a session for dropped-row reports.
type sessionRow struct {
	line  int
	input dto.ExamSessionInput
}

// parseCount reads a non-negative whole number, accepting the "3.0" that
// spreadsheet exports write for integer columns. Blank cells read as zero.
func parseCount(raw string) (int, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, true
	}
	number, err := strconv.ParseFloat(value, 64)
	if err != nil || number < 0 || number != math.Trunc(number) || number > math.MaxInt32 {
		return 0, false
	}
	return int(number), true
}

// countCell parses a count column and logs values it has to ignore.
func countCell(logger *zap.Logger, t *tabular.Table, row tabular.Row, column string) int {
	raw := row.Get(column)
	count, ok := parseCount(raw)
	if !ok {
		logger.Warn("ignoring non-numeric count",
			zap.String("table", t.Name),
			zap.Int("row", row.Line),
			zap.String("column", column),
			zap.String("value", raw),
		)
	}
	return count
}

func supervisorsFromTable(t *tabular.Table, logger *zap.Logger) ([]dto.SupervisorInput, error) {
	if err := t.Require(colTeacherName); err != nil {
		return nil, err
	}
	out := make([]dto.SupervisorInput, 0, len(t.Rows))
	for _, row := range t.Rows {
		capacity := countCell(logger, t, row, colDailyCapacity)
		out = append(out, dto.SupervisorInput{
			Name:             row.Get(colTeacherName),
			Specialty:        row.Get(colSpecialty),
			DailyCapacity:    capacity,
			UnavailableDates: row.Get(colUnavailable),
			Pool:             poolLabel(row.Get(colPool)),
		})
	}
	return out, nil
}

// poolLabel maps spreadsheet role labels onto pool names.
func poolLabel(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "section", "assistant", "ta", "مساعد", "مساعدة", "إدارية":
		return string(invigilation.PoolSection)
	case "":
		return ""
	default:
		return string(invigilation.PoolTeacher)
	}
}

func sessionsFromTable(t *tabular.Table, layout tabular.PeriodLayout, mode string, logger *zap.Logger) ([]sessionRow, error) {
	wide := layout.IsWide(t)
	switch mode {
	case "wide":
		wide = true
	case "long":
		wide = false
	}
	if wide {
		unpivoted, err := layout.Unpivot(t)
		if err != nil {
			return nil, err
		}
		t = unpivoted
	}

	missing := make([]string, 0)
	if err := t.Require(tabular.ColumnExamDate, tabular.ColumnSubject); err != nil {
		missing = append(missing, missingColumns(err)...)
	}
	if err := t.RequireOneOf(tabular.ColumnGrade, colLevel); err != nil {
		missing = append(missing, missingColumns(err)...)
	}
	if len(missing) > 0 {
		return nil, &tabular.MissingColumnsError{Table: t.Name, Columns: missing}
	}

	out := make([]sessionRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		grade := row.Get(tabular.ColumnGrade)
		if grade == "" {
			grade = row.Get(colLevel)
		}
		needed := countCell(logger, t, row, colSupervisorsCount)
		out = append(out, sessionRow{
			line: row.Line,
			input: dto.ExamSessionInput{
				Date:              row.Get(tabular.ColumnExamDate),
				StartTime:         row.Get(tabular.ColumnStartTime),
				EndTime:           row.Get(tabular.ColumnEndTime),
				Subject:           row.Get(tabular.ColumnSubject),
				Grade:             grade,
				Section:           row.Get(colSection),
				Period:            row.Get(tabular.ColumnPeriod),
				SupervisorsNeeded: needed,
			},
		})
	}
	return out, nil
}

func missingColumns(err error) []string {
	if mc, ok := err.(*tabular.MissingColumnsError); ok {
		return mc.Columns
	}
	return []string{err.Error()}
}

func sectionsFromTable(t *tabular.Table) ([]dto.SectionInput, []dto.DroppedRowView, error) {
	if err := t.Require(colSection); err != nil {
		return nil, nil, err
	}
	out := make([]dto.SectionInput, 0, len(t.Rows))
	dropped := make([]dto.DroppedRowView, 0)
	for _, row := range t.Rows {
		section := row.Get(colSection)
		grade := row.Get(tabular.ColumnGrade)
		if grade == "" {
			grade = gradeOfSection(section)
		}
		if section == "" || grade == "" {
			dropped = append(dropped, dto.DroppedRowView{Table: tableSections, Row: row.Line, Reason: "section without a grade"})
			continue
		}
		out = append(out, dto.SectionInput{Grade: grade, Section: section})
	}
	return out, dropped, nil
}

// gradeOfSection derives the grade from section labels such as "3/1",
// "Grade 3-A" or "3A".
func gradeOfSection(section string) string {
	if i := strings.LastIndexAny(section, "/-"); i > 0 {
		return strings.TrimSpace(section[:i])
	}
	end := 0
	for end < len(section) && section[end] >= '0' && section[end] <= '9' {
		end++
	}
	if end == 0 || end == len(section) {
		return ""
	}
	return section[:end]
}

func jsonSessionRows(inputs []dto.ExamSessionInput) []sessionRow {
	rows := make([]sessionRow, len(inputs))
	for i, input := range inputs {
		rows[i] = sessionRow{line: i + 1, input: input}
	}
	return rows
}

func toSupervisors(inputs []dto.SupervisorInput) []invigilation.Supervisor {
	out := make([]invigilation.Supervisor, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, invigilation.Supervisor{
			Name:          strings.TrimSpace(in.Name),
			Specialty:     strings.TrimSpace(in.Specialty),
			DailyCapacity: in.DailyCapacity,
			Unavailable:   in.UnavailableDates,
			Pool:          invigilation.Pool(in.Pool),
		})
	}
	return out
}

// toSessions normalises dates and times. Rows without a usable date or
// subject, or whose start is not before their end, are dropped.
func toSessions(rows []sessionRow) ([]invigilation.Session, []dto.DroppedRowView) {
	sessions := make([]invigilation.Session, 0, len(rows))
	dropped := make([]dto.DroppedRowView, 0)
	drop := func(line int, reason string) {
		dropped = append(dropped, dto.DroppedRowView{Table: tableSessions, Row: line, Reason: reason})
	}
	for _, row := range rows {
		in := row.input
		date, ok := invigilation.ParseDate(in.Date)
		if !ok {
			drop(row.line, fmt.Sprintf("unparsable exam date %q", in.Date))
			continue
		}
		subject := strings.TrimSpace(in.Subject)
		if subject == "" {
			drop(row.line, "missing subject")
			continue
		}
		start, _ := invigilation.ParseClock(in.StartTime)
		end, _ := invigilation.ParseClock(in.EndTime)
		if start.Valid() && end.Valid() && !start.Before(end) {
			drop(row.line, "start time is not before end time")
			continue
		}
		sessions = append(sessions, invigilation.Session{
			ID:      len(sessions) + 1,
			Date:    date,
			Start:   start,
			End:     end,
			Subject: subject,
			Grade:   strings.TrimSpace(in.Grade),
			Section: strings.TrimSpace(in.Section),
			Period:  strings.TrimSpace(in.Period),
			Needed:  in.SupervisorsNeeded,
		})
	}
	return sessions, dropped
}

// mergeSections overlays request sections on the configured table. A grade
// listed in the request replaces its configured sections.
func mergeSections(base invigilation.SectionTable, inputs []dto.SectionInput, normalizer *invigilation.Normalizer) invigilation.SectionTable {
	if len(inputs) == 0 {
		return base
	}
	requested := make(invigilation.SectionTable)
	for _, in := range inputs {
		grade := normalizer.Normalize(in.Grade)
		requested[grade] = append(requested[grade], strings.TrimSpace(in.Section))
	}
	merged := make(invigilation.SectionTable, len(base)+len(requested))
	for grade, sections := range base {
		if _, replaced := requested[normalizer.Normalize(grade)]; !replaced {
			merged[grade] = sections
		}
	}
	for grade, sections := range requested {
		merged[grade] = sections
	}
	return merged
}
