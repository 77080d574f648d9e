package export

import (
	"fmt"
	"strings"
)

// DailyLabels holds the captions printed on daily sheets.
type DailyLabels struct {
	Title         string
	AcademicYear  string
	Semester      string
	Day           string
	Date          string
	Subject       string
	Grade         string
	Section       string
	Period        string
	Time          string
	Supervisor    string
	CommitteeHead string
	Principal     string
}

// EnglishDailyLabels are used with the core PDF font.
func EnglishDailyLabels() DailyLabels {
	return DailyLabels{
		Title:         "Exam Invigilation Schedule",
		AcademicYear:  "Academic year",
		Semester:      "Semester",
		Day:           "Day",
		Date:          "Date",
		Subject:       "Subject",
		Grade:         "Grade",
		Section:       "Section",
		Period:        "Period",
		Time:          "Time",
		Supervisor:    "Supervisor",
		CommitteeHead: "Exam committee head",
		Principal:     "School principal",
	}
}

// ArabicDailyLabels need a UTF-8 font.
func ArabicDailyLabels() DailyLabels {
	return DailyLabels{
		Title:         "جدول المراقبة اليومي للاختبارات",
		AcademicYear:  "العام الدراسي",
		Semester:      "الفصل الدراسي",
		Day:           "اليوم",
		Date:          "التاريخ",
		Subject:       "المادة",
		Grade:         "المستوى",
		Section:       "الفصل",
		Period:        "الحصة",
		Time:          "الوقت",
		Supervisor:    "المراقب",
		CommitteeHead: "رئيس لجنة الاختبارات",
		Principal:     "مدير المدرسة",
	}
}

// DailyHeader is printed at the top of every daily page.
type DailyHeader struct {
	SchoolName   string
	AcademicYear string
	Semester     string
	Labels       DailyLabels
}

// DailyRow is one session on a daily sheet.
type DailyRow struct {
	Subject     string
	Grade       string
	Section     string
	Period      string
	Time        string
	Supervisors []string
}

// DailySheet is one exam day.
type DailySheet struct {
	DayLabel  string
	DateLabel string
	Rows      []DailyRow
}

// RenderDaily prints one page per exam day. Consecutive rows with the same
// subject and time share a merged subject cell.
func (e *PDFExporter) RenderDaily(header DailyHeader, sheets []DailySheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("daily pdf requires at least one day")
	}
	labels := header.Labels
	if labels.Subject == "" {
		labels = EnglishDailyLabels()
	}
	doc := e.newDocument("P")

	for _, sheet := range sheets {
		doc.pdf.AddPage()
		e.drawDailyHeader(doc, header, labels, sheet)

		slots := 1
		for _, row := range sheet.Rows {
			if len(row.Supervisors) > slots {
				slots = len(row.Supervisors)
			}
		}
		fixed := []float64{38, 22, 18, 30, 24}
		supervisorWidth := (doc.usableWidth() - sum(fixed)) / float64(slots)
		drawColumns := func() {
			doc.font("B", 9)
			doc.pdf.SetFillColor(220, 230, 241)
			for i, caption := range []string{labels.Subject, labels.Grade, labels.Section, labels.Period, labels.Time} {
				doc.cell(fixed[i], 8, caption, "1", "C", true)
			}
			for i := 0; i < slots; i++ {
				doc.cell(supervisorWidth, 8, fmt.Sprintf("%s %d", labels.Supervisor, i+1), "1", "C", true)
			}
			doc.pdf.Ln(-1)
			doc.font("", 9)
		}
		drawColumns()

		const rowHeight = 7.0
		for start := 0; start < len(sheet.Rows); {
			end := start + 1
			for end < len(sheet.Rows) && sameSitting(sheet.Rows[start], sheet.Rows[end]) {
				end++
			}
			groupHeight := rowHeight * float64(end-start)
			if !doc.fits(groupHeight) {
				doc.pdf.AddPage()
				drawColumns()
			}

			left, top := doc.pdf.GetXY()
			doc.pdf.SetXY(left, top)
			doc.cell(fixed[0], groupHeight, sheet.Rows[start].Subject, "1", "C", false)
			for i := start; i < end; i++ {
				row := sheet.Rows[i]
				doc.pdf.SetXY(left+fixed[0], top+rowHeight*float64(i-start))
				doc.cell(fixed[1], rowHeight, row.Grade, "1", "C", false)
				doc.cell(fixed[2], rowHeight, row.Section, "1", "C", false)
				doc.cell(fixed[3], rowHeight, row.Period, "1", "C", false)
				doc.cell(fixed[4], rowHeight, row.Time, "1", "C", false)
				for slot := 0; slot < slots; slot++ {
					name := ""
					if slot < len(row.Supervisors) {
						name = row.Supervisors[slot]
					}
					doc.cell(supervisorWidth, rowHeight, name, "1", "C", false)
				}
			}
			doc.pdf.SetXY(left, top+groupHeight)
			start = end
		}

		e.drawSignatures(doc, labels)
	}
	return doc.output()
}

func (e *PDFExporter) drawDailyHeader(doc *document, header DailyHeader, labels DailyLabels, sheet DailySheet) {
	if header.SchoolName != "" {
		doc.font("B", 14)
		doc.cell(0, 8, header.SchoolName, "", "C", false)
		doc.pdf.Ln(8)
	}
	meta := make([]string, 0, 2)
	if header.AcademicYear != "" {
		meta = append(meta, fmt.Sprintf("%s: %s", labels.AcademicYear, header.AcademicYear))
	}
	if header.Semester != "" {
		meta = append(meta, fmt.Sprintf("%s: %s", labels.Semester, header.Semester))
	}
	if len(meta) > 0 {
		doc.font("", 10)
		doc.cell(0, 6, strings.Join(meta, "   "), "", "C", false)
		doc.pdf.Ln(7)
	}
	doc.font("B", 12)
	doc.cell(0, 8, labels.Title, "", "C", false)
	doc.pdf.Ln(10)

	half := doc.usableWidth() / 2
	doc.font("B", 10)
	doc.cell(half, 7, fmt.Sprintf("%s: %s", labels.Day, sheet.DayLabel), "", "L", false)
	doc.cell(half, 7, fmt.Sprintf("%s: %s", labels.Date, sheet.DateLabel), "", "R", false)
	doc.pdf.Ln(9)
}

func (e *PDFExporter) drawSignatures(doc *document, labels DailyLabels) {
	const block = 24.0
	if !doc.fits(block) {
		doc.pdf.AddPage()
	}
	doc.pdf.Ln(12)
	half := doc.usableWidth() / 2
	doc.font("B", 10)
	doc.cell(half, 6, labels.CommitteeHead, "", "C", false)
	doc.cell(half, 6, labels.Principal, "", "C", false)
	doc.pdf.Ln(10)
	doc.font("", 10)
	doc.cell(half, 6, "....................................", "", "C", false)
	doc.cell(half, 6, "....................................", "", "C", false)
	doc.pdf.Ln(-1)
}

func sameSitting(a, b DailyRow) bool {
	return a.Subject == b.Subject && a.Time == b.Time
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
