package tabular

import "strings"

// Canonical columns produced by Unpivot.
const (
	ColumnExamDate  = "exam_date"
	ColumnStartTime = "start_time"
	ColumnEndTime   = "end_time"
	ColumnSubject   = "subject"
	ColumnGrade     = "grade"
	ColumnPeriod    = "period"
)

// Period maps a timetable column to the fixed time window of that period.
type Period struct {
	Column string `mapstructure:"column"`
	Label  string `mapstructure:"label"`
	Start  string `mapstructure:"start"`
	End    string `mapstructure:"end"`
}

// PeriodLayout describes a wide timetable: one row per date and level with
// the subject of each period in its own column.
type PeriodLayout struct {
	DateColumn  string   `mapstructure:"date_column"`
	LevelColumn string   `mapstructure:"level_column"`
	Periods     []Period `mapstructure:"periods"`
	// NoExamMarkers are substrings that mark a cell as "no exam".
	NoExamMarkers []string `mapstructure:"no_exam_markers"`
}

// DefaultPeriodLayout is the school timetable with a morning sitting in the
// second period and a double sitting across the third and fourth.
func DefaultPeriodLayout() PeriodLayout {
	return PeriodLayout{
		DateColumn:  ColumnExamDate,
		LevelColumn: "level",
		Periods: []Period{
			{Column: "second_period", Label: "الحصة الثانية", Start: "08:00", End: "10:00"},
			{Column: "third_fourth_period", Label: "الحصة الثالثة والرابعة", Start: "10:30", End: "12:30"},
		},
		NoExamMarkers: []string{"يوجد", "no exam"},
	}
}

// IsWide reports whether the table looks like a wide timetable rather than
// one row per session.
func (l PeriodLayout) IsWide(t *Table) bool {
	if t.Has(ColumnSubject) {
		return false
	}
	for _, p := range l.Periods {
		if t.Has(p.Column) {
			return true
		}
	}
	return false
}

// Unpivot turns a wide timetable into one row per (date, level, period).
// Blank cells and cells carrying a no-exam marker produce no row. Output rows
// keep the source line number.
func (l PeriodLayout) Unpivot(t *Table) (*Table, error) {
	if err := t.Require(l.DateColumn, l.LevelColumn); err != nil {
		return nil, err
	}
	out := &Table{
		Name:    t.Name,
		Columns: []string{ColumnExamDate, ColumnStartTime, ColumnEndTime, ColumnSubject, ColumnGrade, ColumnPeriod},
		Rows:    make([]Row, 0, len(t.Rows)*len(l.Periods)),
	}
	for _, row := range t.Rows {
		for _, period := range l.Periods {
			subject := row.Get(period.Column)
			if subject == "" || l.noExam(subject) {
				continue
			}
			label := period.Label
			if label == "" {
				label = period.Column
			}
			out.Rows = append(out.Rows, Row{
				Line: row.Line,
				Values: map[string]string{
					ColumnExamDate:  row.Get(l.DateColumn),
					ColumnStartTime: period.Start,
					ColumnEndTime:   period.End,
					ColumnSubject:   subject,
					ColumnGrade:     row.Get(l.LevelColumn),
					ColumnPeriod:    label,
				},
			})
		}
	}
	return out, nil
}

func (l PeriodLayout) noExam(cell string) bool {
	lowered := strings.ToLower(cell)
	for _, marker := range l.NoExamMarkers {
		if marker != "" && strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
