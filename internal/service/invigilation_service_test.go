package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/invigilation"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/pkg/config"
	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
)

type rosterRepoStub struct {
	rosters     map[string]*models.Roster
	assignments map[string][]models.RosterAssignment
	shortages   map[string][]models.RosterShortage
	filter      models.RosterFilter
	createErr   error
}

func newRosterRepoStub() *rosterRepoStub {
	return &rosterRepoStub{
		rosters:     make(map[string]*models.Roster),
		assignments: make(map[string][]models.RosterAssignment),
		shortages:   make(map[string][]models.RosterShortage),
	}
}

func (r *rosterRepoStub) Create(_ context.Context, roster *models.Roster, assignments []models.RosterAssignment, shortages []models.RosterShortage) error {
	if r.createErr != nil {
		return r.createErr
	}
	roster.ID = "roster-" + string(rune('a'+len(r.rosters)))
	roster.Status = models.RosterStatusDraft
	roster.AssignmentCount = len(assignments)
	roster.ShortageCount = len(shortages)
	copied := *roster
	r.rosters[roster.ID] = &copied
	r.assignments[roster.ID] = assignments
	r.shortages[roster.ID] = shortages
	return nil
}

func (r *rosterRepoStub) FindByID(_ context.Context, id string) (*models.Roster, error) {
	roster, ok := r.rosters[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *roster
	return &copied, nil
}

func (r *rosterRepoStub) List(_ context.Context, filter models.RosterFilter) ([]models.Roster, int, error) {
	r.filter = filter
	out := make([]models.Roster, 0, len(r.rosters))
	for _, roster := range r.rosters {
		out = append(out, *roster)
	}
	return out, len(out), nil
}

func (r *rosterRepoStub) ListAssignments(_ context.Context, id string) ([]models.RosterAssignment, error) {
	return r.assignments[id], nil
}

func (r *rosterRepoStub) ListShortages(_ context.Context, id string) ([]models.RosterShortage, error) {
	return r.shortages[id], nil
}

func (r *rosterRepoStub) Publish(_ context.Context, id string, at time.Time) error {
	roster, ok := r.rosters[id]
	if !ok || roster.Status != models.RosterStatusDraft {
		return sql.ErrNoRows
	}
	roster.Status = models.RosterStatusPublished
	roster.PublishedAt = &at
	return nil
}

func (r *rosterRepoStub) Delete(_ context.Context, id string) error {
	roster, ok := r.rosters[id]
	if !ok || roster.Status != models.RosterStatusDraft {
		return sql.ErrNoRows
	}
	delete(r.rosters, id)
	return nil
}

type runCacheStub struct {
	entries     map[string][]byte
	invalidated []string
}

func newRunCacheStub() *runCacheStub {
	return &runCacheStub{entries: make(map[string][]byte)}
}

func (c *runCacheStub) Enabled() bool { return true }

func (c *runCacheStub) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *runCacheStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *runCacheStub) Invalidate(_ context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		for key := range c.entries {
			if strings.HasPrefix(key, prefix) {
				delete(c.entries, key)
			}
		}
		return nil
	}
	delete(c.entries, pattern)
	return nil
}

type runRecorderStub struct {
	runs    int
	hits    int
	dropped map[string]int
}

func (m *runRecorderStub) ObserveRun(_ time.Duration, cacheHit bool, _, _ int) {
	m.runs++
	if cacheHit {
		m.hits++
	}
}

func (m *runRecorderStub) RecordDroppedRows(table string, count int) {
	if m.dropped == nil {
		m.dropped = make(map[string]int)
	}
	m.dropped[table] += count
}

type invigilationFixture struct {
	service *InvigilationService
	repo    *rosterRepoStub
	cache   *runCacheStub
	metrics *runRecorderStub
}

func newInvigilationFixture(cfg InvigilationServiceConfig) invigilationFixture {
	repo := newRosterRepoStub()
	cache := newRunCacheStub()
	metrics := &runRecorderStub{}
	return invigilationFixture{
		service: NewInvigilationService(repo, cache, metrics, nil, zap.NewNop(), cfg),
		repo:    repo,
		cache:   cache,
		metrics: metrics,
	}
}

func sampleRosterRequest() dto.GenerateRosterRequest {
	return dto.GenerateRosterRequest{
		Supervisors: []dto.SupervisorInput{
			{Name: "Amal", Specialty: "Math"},
			{Name: "Badr", Specialty: "Art"},
		},
		Sessions: []dto.ExamSessionInput{
			{Date: "2025-01-12", StartTime: "08:00", EndTime: "10:00", Subject: "Math", Grade: "Grade 3"},
			{Date: "2025-01-12", StartTime: "10:00", EndTime: "12:00", Subject: "Art", Grade: "Grade 3"},
		},
	}
}

func TestInvigilationServiceGenerate(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	resp, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, "Math", resp.Assignments[0].Subject)
	assert.Equal(t, "Badr", resp.Assignments[0].SupervisorName)
	assert.Equal(t, "Amal", resp.Assignments[1].SupervisorName)
	assert.Equal(t, "Sunday", resp.Assignments[0].Weekday)
	assert.Empty(t, resp.Shortages)
	assert.Empty(t, resp.Dropped)
	assert.Equal(t, []string{"Grade 3"}, resp.Levels)
	assert.Equal(t, 2, resp.Stats.Total)
	assert.Equal(t, 100.0, resp.Stats.DifferentSpecialtyPercent)
	assert.False(t, resp.CacheHit)
	assert.Len(t, resp.Fingerprint, 32)
	assert.Equal(t, 1, fx.metrics.runs)

	again, err := fx.service.GetProposal(context.Background(), resp.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, resp.Assignments, again.Assignments)
}

func TestInvigilationServiceProposalSnapshot(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	resp, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)

	snapshot, err := fx.service.ProposalSnapshot(context.Background(), resp.ProposalID, "")
	require.NoError(t, err)
	assert.Equal(t, "roster", snapshot.Roster.Name)
	assert.Equal(t, models.RosterStatusDraft, snapshot.Roster.Status)
	assert.Equal(t, resp.Fingerprint, snapshot.Roster.Fingerprint)
	assert.Len(t, snapshot.Result.Assignments, 2)

	_, err = fx.service.ProposalSnapshot(context.Background(), "missing", "Finals")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestInvigilationServiceGenerateUsesRunCache(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	first, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)
	second, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)

	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Assignments, second.Assignments)
	assert.NotEqual(t, first.ProposalID, second.ProposalID)
	assert.Equal(t, 1, fx.metrics.hits)
	assert.Contains(t, fx.cache.entries, RunCacheKey(first.Fingerprint))
}

func TestInvigilationServiceFingerprintTracksPolicy(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	base, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)

	req := sampleRosterRequest()
	mode := "exclude"
	req.Policy = &dto.PolicyOverrides{SpecialtyMode: &mode}
	excluded, err := fx.service.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, base.Fingerprint, excluded.Fingerprint)
	assert.False(t, excluded.CacheHit)

	req.Policy = &dto.PolicyOverrides{SpecialtyAliases: map[string]string{"Art": "drawing"}}
	aliased, err := fx.service.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, base.Fingerprint, aliased.Fingerprint)
}

func TestInvigilationServiceGenerateReportsShortagesAndDroppedRows(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})
	req := sampleRosterRequest()
	req.Sessions[0].SupervisorsNeeded = 3
	req.Sessions = append(req.Sessions,
		dto.ExamSessionInput{Date: "someday", Subject: "Math"},
		dto.ExamSessionInput{Date: "2025-01-13", StartTime: "10:00", EndTime: "09:00", Subject: "Art"},
	)

	resp, err := fx.service.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Shortages, 1)
	assert.Equal(t, 3, resp.Shortages[0].Required)
	assert.Equal(t, 2, resp.Shortages[0].Filled)
	assert.Equal(t, 1, resp.Shortages[0].Missing)
	require.Len(t, resp.Dropped, 2)
	assert.Equal(t, 3, resp.Dropped[0].Row)
	assert.Equal(t, 4, resp.Dropped[1].Row)
	assert.Equal(t, 2, fx.metrics.dropped["sessions"])
}

func TestInvigilationServiceGenerateErrors(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	req := sampleRosterRequest()
	req.Supervisors = nil
	_, err := fx.service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSupervisors.Code, appErrors.FromError(err).Code)

	req = sampleRosterRequest()
	req.Supervisors = append(req.Supervisors, dto.SupervisorInput{Name: "Amal"})
	_, err = fx.service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = sampleRosterRequest()
	req.Sessions = nil
	_, err = fx.service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = sampleRosterRequest()
	req.Level = "Grade 9"
	_, err = fx.service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Grade 9")
}

func TestInvigilationServiceGenerateExpandsSections(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{
		Sections: invigilation.SectionTable{"Grade 3": {"3A", "3B"}},
	})
	req := sampleRosterRequest()
	req.Supervisors = append(req.Supervisors, dto.SupervisorInput{Name: "Citra", Specialty: "Science"})
	req.Sessions = req.Sessions[:1]

	resp, err := fx.service.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, "3A", resp.Assignments[0].Section)
	assert.Equal(t, "3B", resp.Assignments[1].Section)
	assert.NotEqual(t, resp.Assignments[0].SupervisorName, resp.Assignments[1].SupervisorName)

	req.Sections = []dto.SectionInput{{Grade: "grade 3", Section: "3C"}}
	resp, err = fx.service.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, "3C", resp.Assignments[0].Section)
}

func TestInvigilationServiceSaveKeepsSectionCopiesDistinct(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{
		Sections: invigilation.SectionTable{"Grade 3": {"3A", "3B"}},
	})
	ctx := context.Background()
	req := sampleRosterRequest()
	req.Supervisors = append(req.Supervisors, dto.SupervisorInput{Name: "Citra", Specialty: "Science"})
	req.Sessions = req.Sessions[:1]
	req.Sessions[0].SupervisorsNeeded = 4

	proposal, err := fx.service.Generate(ctx, req)
	require.NoError(t, err)
	roster, err := fx.service.Save(ctx, dto.SaveRosterRequest{ProposalID: proposal.ProposalID, Name: "Sections"}, "user-1")
	require.NoError(t, err)

	type slotKey struct{ session, slot int }
	slots := make(map[slotKey]bool)
	sessions := make(map[int]string)
	for _, row := range fx.repo.assignments[roster.ID] {
		key := slotKey{row.SessionID, row.SlotIndex}
		assert.False(t, slots[key], "duplicate assignment key %+v", key)
		slots[key] = true
		if section, ok := sessions[row.SessionID]; ok {
			assert.Equal(t, section, row.Section)
		}
		sessions[row.SessionID] = row.Section
	}
	require.Len(t, fx.repo.shortages[roster.ID], 2)
	shortages := make(map[int]bool)
	for _, row := range fx.repo.shortages[roster.ID] {
		assert.False(t, shortages[row.SessionID], "duplicate shortage session %d", row.SessionID)
		shortages[row.SessionID] = true
	}

	detail, err := fx.service.Get(ctx, roster.ID)
	require.NoError(t, err)
	require.Len(t, detail.Days, 1)
	require.Len(t, detail.Days[0].Sessions, 2)
	assert.Equal(t, "3A", detail.Days[0].Sessions[0].Section)
	assert.Equal(t, "3B", detail.Days[0].Sessions[1].Section)
}

func TestInvigilationServiceUploadLongTable(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	resp, err := fx.service.Upload(context.Background(), RosterUpload{
		Supervisors: UploadedTable{Filename: "teachers.csv", Reader: strings.NewReader("اسم المعلم,التخصص\nAmal,Math\nBadr,Art\n")},
		Sessions: UploadedTable{Filename: "exams.csv", Reader: strings.NewReader(
			"date,start,end,subject,grade\n" +
				"2025-01-12,08:00,10:00,Math,Grade 3\n" +
				"2025-01-12,10:00,12:00,Art,Grade 3\n" +
				"not-a-date,08:00,09:00,Art,Grade 3\n")},
		Form: dto.UploadRosterForm{Layout: "long"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, "Badr", resp.Assignments[0].SupervisorName)
	require.Len(t, resp.Dropped, 1)
	assert.Equal(t, 4, resp.Dropped[0].Row)
	assert.Equal(t, "sessions", resp.Dropped[0].Table)
}

func TestInvigilationServiceUploadWideTimetable(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	resp, err := fx.service.Upload(context.Background(), RosterUpload{
		Supervisors: UploadedTable{Filename: "teachers.csv", Reader: strings.NewReader("name,specialty\nAmal,Math\nBadr,Art\n")},
		Sessions: UploadedTable{Filename: "timetable.csv", Reader: strings.NewReader(
			"التاريخ,المستوى,الحصة الثانية,الحصة الثالثة والرابعة\n" +
				"2025-01-12,Grade 3,Math,Art\n")},
	})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, "08:00", resp.Assignments[0].StartTime)
	assert.Equal(t, "Badr", resp.Assignments[0].SupervisorName)
	assert.Equal(t, "10:30", resp.Assignments[1].StartTime)
	assert.Equal(t, "Amal", resp.Assignments[1].SupervisorName)
}

func workbook(t *testing.T, fill func(f *excelize.File, sheet string)) *bytes.Reader {
	t.Helper()
	book := excelize.NewFile()
	fill(book, book.GetSheetName(0))
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestInvigilationServiceUploadWorkbookDateCells(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})
	sunday := time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC)

	supervisors := workbook(t, func(f *excelize.File, sheet string) {
		require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "specialty", "unavailable"}))
		require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Amal", "Science", sunday}))
		require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Badr", "Art"}))
		require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"Citra", "History"}))
	})
	sessions := workbook(t, func(f *excelize.File, sheet string) {
		require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"date", "start", "end", "subject", "grade", "needed"}))
		require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{sunday, 8.0 / 24, sunday.Add(10 * time.Hour), "Math", "Grade 3", 2}))
		shortDate, err := f.NewStyle(&excelize.Style{NumFmt: 14})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(sheet, "A2", "A2", shortDate))
		clockStyle, err := f.NewStyle(&excelize.Style{NumFmt: 20})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(sheet, "B2", "B2", clockStyle))
	})

	resp, err := fx.service.Upload(context.Background(), RosterUpload{
		Supervisors: UploadedTable{Filename: "teachers.xlsx", Reader: supervisors},
		Sessions:    UploadedTable{Filename: "exams.xlsx", Reader: sessions},
		Form:        dto.UploadRosterForm{Layout: "long"},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Dropped)
	assert.Empty(t, resp.Shortages)
	require.Len(t, resp.Assignments, 2)
	names := []string{resp.Assignments[0].SupervisorName, resp.Assignments[1].SupervisorName}
	assert.ElementsMatch(t, []string{"Badr", "Citra"}, names)
	assert.Equal(t, "2025-01-12", resp.Assignments[0].Date)
	assert.Equal(t, "08:00", resp.Assignments[0].StartTime)
	assert.Equal(t, "10:00", resp.Assignments[0].EndTime)
}

func TestInvigilationServiceUploadReadsDecimalCounts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewInvigilationService(newRosterRepoStub(), nil, nil, nil, zap.New(core), InvigilationServiceConfig{})

	resp, err := svc.Upload(context.Background(), RosterUpload{
		Supervisors: UploadedTable{Filename: "teachers.csv", Reader: strings.NewReader("name,specialty,capacity\nAmal,Math,1.0\nBadr,Art,1.0\n")},
		Sessions: UploadedTable{Filename: "exams.csv", Reader: strings.NewReader(
			"date,start,end,subject,grade,needed\n" +
				"2025-01-12,08:00,09:00,Science,Grade 3,2.0\n" +
				"2025-01-12,10:00,11:00,History,Grade 3,two\n")},
		Form: dto.UploadRosterForm{Layout: "long"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, 1, resp.Assignments[0].SessionID)
	assert.Equal(t, 1, resp.Assignments[1].SessionID)
	require.Len(t, resp.Shortages, 1)
	assert.Equal(t, 2, resp.Shortages[0].SessionID)
	assert.Equal(t, 1, resp.Shortages[0].Required)
	assert.Equal(t, 0, resp.Shortages[0].Filled)

	warnings := logs.FilterMessage("ignoring non-numeric count").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.Equal(t, "supervisors_needed", fields["column"])
	assert.Equal(t, "two", fields["value"])
	assert.EqualValues(t, 3, fields["row"])
}

func TestParseCount(t *testing.T) {
	cases := map[string]struct {
		want int
		ok   bool
	}{
		"":     {0, true},
		"3":    {3, true},
		" 3.0": {3, true},
		"2.5":  {0, false},
		"-1":   {0, false},
		"two":  {0, false},
	}
	for raw, tc := range cases {
		got, ok := parseCount(raw)
		assert.Equal(t, tc.ok, ok, raw)
		assert.Equal(t, tc.want, got, raw)
	}
}

func TestInvigilationServiceUploadMissingColumns(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	_, err := fx.service.Upload(context.Background(), RosterUpload{
		Supervisors: UploadedTable{Filename: "teachers.csv", Reader: strings.NewReader("name\nAmal\n")},
		Sessions:    UploadedTable{Filename: "exams.csv", Reader: strings.NewReader("start,end\n08:00,10:00\n")},
		Form:        dto.UploadRosterForm{Layout: "long"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrMissingColumns.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "exam_date")
	assert.Contains(t, appErr.Message, "subject")
	assert.Contains(t, appErr.Message, "grade")

	_, err = fx.service.Upload(context.Background(), RosterUpload{
		Supervisors: UploadedTable{Filename: "teachers.pdf", Reader: strings.NewReader("")},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestInvigilationServiceSaveAndLifecycle(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})
	ctx := context.Background()
	req := sampleRosterRequest()
	req.Sessions[1].SupervisorsNeeded = 3

	proposal, err := fx.service.Generate(ctx, req)
	require.NoError(t, err)

	roster, err := fx.service.Save(ctx, dto.SaveRosterRequest{ProposalID: proposal.ProposalID, Name: " Midterm "}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Midterm", roster.Name)
	assert.Equal(t, "user-1", roster.CreatedBy)
	assert.Equal(t, proposal.Fingerprint, roster.Fingerprint)
	assert.Equal(t, 1, roster.Stats.ShortageCount)
	assert.Contains(t, fx.cache.invalidated, ProposalCacheKey(proposal.ProposalID))

	_, err = fx.service.Save(ctx, dto.SaveRosterRequest{ProposalID: proposal.ProposalID, Name: "again"}, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	detail, err := fx.service.Get(ctx, roster.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.Assignments, detail.Assignments)
	require.Len(t, detail.Shortages, 1)
	assert.Equal(t, 3, detail.Shortages[0].Required)
	require.Len(t, detail.Days, 1)
	assert.Equal(t, "الأحد", detail.Days[0].WeekdayArabic)
	assert.Len(t, detail.Days[0].Sessions[1].Supervisors, 3)

	published, err := fx.service.Publish(ctx, roster.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RosterStatusPublished, published.Status)
	assert.NotNil(t, published.PublishedAt)

	_, err = fx.service.Publish(ctx, roster.ID)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	err = fx.service.Delete(ctx, roster.ID)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = fx.service.Get(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestInvigilationServiceSaveFailure(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})
	fx.repo.createErr = errors.New("db down")

	proposal, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)
	_, err = fx.service.Save(context.Background(), dto.SaveRosterRequest{ProposalID: proposal.ProposalID, Name: "x"}, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, err = fx.service.GetProposal(context.Background(), proposal.ProposalID)
	assert.NoError(t, err)
}

func TestInvigilationServiceProposalFallsBackToSharedCache(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})
	proposal, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)

	other := NewInvigilationService(fx.repo, fx.cache, nil, nil, nil, InvigilationServiceConfig{})
	got, err := other.GetProposal(context.Background(), proposal.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, proposal.Assignments, got.Assignments)
}

func TestInvigilationServiceListDefaults(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})

	_, pagination, err := fx.service.List(context.Background(), dto.RosterQuery{Status: "DRAFT"})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	require.NotNil(t, fx.repo.filter.Status)
	assert.Equal(t, models.RosterStatusDraft, *fx.repo.filter.Status)

	_, _, err = fx.service.List(context.Background(), dto.RosterQuery{Status: "ARCHIVED"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestInvigilationServiceFlushCache(t *testing.T) {
	fx := newInvigilationFixture(InvigilationServiceConfig{})
	_, err := fx.service.Generate(context.Background(), sampleRosterRequest())
	require.NoError(t, err)

	require.NoError(t, fx.service.FlushCache(context.Background()))
	assert.Empty(t, fx.cache.entries)

	disabled := NewInvigilationService(fx.repo, nil, nil, nil, nil, InvigilationServiceConfig{})
	err = disabled.FlushCache(context.Background())
	assert.Equal(t, appErrors.ErrFeatureDisabled.Code, appErrors.FromError(err).Code)
}

func TestInvigilationSettingsMergesPolicyFile(t *testing.T) {
	env := config.InvigilationConfig{
		SpecialtyMode: "exclude",
		Tier2Grades:   []string{"Grade 10", "Grade 11"},
		DefaultNeeded: 2,
		ProposalTTL:   time.Minute,
	}

	settings := InvigilationSettings(env, nil)
	assert.Equal(t, invigilation.TierUpper, settings.Policy.GradeTiers["Grade 10"])
	assert.Equal(t, invigilation.SpecialtyExclude, settings.Policy.SpecialtyMode)
	assert.Equal(t, 2, settings.Policy.DefaultNeeded)
	assert.Nil(t, settings.Layout)

	settings = InvigilationSettings(env, &config.PolicyFile{
		GradeTiers:       map[string]int{"Grade 11": 1},
		Sections:         map[string][]string{"Grade 10": {"10A"}},
		SpecialtyAliases: map[string]string{"Maths": "math"},
	})
	assert.Equal(t, invigilation.TierLower, settings.Policy.GradeTiers["Grade 11"])
	assert.Equal(t, []string{"10A"}, settings.Sections["Grade 10"])
	assert.Equal(t, "math", settings.SpecialtyAliases["Maths"])
}

func TestProposalStoreSweepsExpiredEntries(t *testing.T) {
	now := time.Date(2025, 1, 12, 8, 0, 0, 0, time.UTC)
	store := newProposalStore(time.Minute)
	store.now = func() time.Time { return now }
	store.lastSweep = now

	store.Save(rosterProposal{ProposalID: "old", RequestedAt: now})
	now = now.Add(30 * time.Second)
	store.Save(rosterProposal{ProposalID: "recent", RequestedAt: now})
	assert.Equal(t, 2, store.Len())

	now = now.Add(45 * time.Second)
	store.Save(rosterProposal{ProposalID: "fresh", RequestedAt: now})
	assert.Equal(t, 2, store.Len())
	_, ok := store.Get("old")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, store.sweep())
	assert.Zero(t, store.Len())
}
