package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/invigilation"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
	"github.com/noah-isme/sma-invigilation-api/pkg/tabular"
)

type rosterRepository interface {
	Create(ctx context.Context, roster *models.Roster, assignments []models.RosterAssignment, shortages []models.RosterShortage) error
	FindByID(ctx context.Context, id string) (*models.Roster, error)
	List(ctx context.Context, filter models.RosterFilter) ([]models.Roster, int, error)
	ListAssignments(ctx context.Context, rosterID string) ([]models.RosterAssignment, error)
	ListShortages(ctx context.Context, rosterID string) ([]models.RosterShortage, error)
	Publish(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type runCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type runRecorder interface {
	ObserveRun(duration time.Duration, cacheHit bool, assignments, shortages int)
	RecordDroppedRows(table string, count int)
}

// UploadedTable is one spreadsheet received by the upload endpoint.
type UploadedTable struct {
	Filename string
	Reader   io.Reader
}

// RosterUpload bundles the files and form fields of a spreadsheet run.
// Sections is optional.
type RosterUpload struct {
	Supervisors UploadedTable
	Sessions    UploadedTable
	Sections    *UploadedTable
	Form        dto.UploadRosterForm
}

// RosterSnapshot is a saved roster with its engine records restored.
type RosterSnapshot struct {
	Roster models.Roster
	Result invigilation.Result
}

// InvigilationService runs the assignment engine and manages saved rosters.
type InvigilationService struct {
	repo      rosterRepository
	cache     runCache
	metrics   runRecorder
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore

	policy   invigilation.Policy
	aliases  map[string]string
	sections invigilation.SectionTable
	headers  importAliases
	layout   tabular.PeriodLayout
	cacheTTL time.Duration
}

// NewInvigilationService wires the roster dependencies.
func NewInvigilationService(
	repo rosterRepository,
	cache runCache,
	metrics runRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg InvigilationServiceConfig,
) *InvigilationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	layout := tabular.DefaultPeriodLayout()
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}
	return &InvigilationService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(cfg.ProposalTTL),
		policy:    cfg.Policy,
		aliases:   cfg.SpecialtyAliases,
		sections:  cfg.Sections,
		headers:   newImportAliases(cfg.HeaderAliases),
		layout:    layout,
		cacheTTL:  cfg.CacheTTL,
	}
}

type runInput struct {
	supervisors []invigilation.Supervisor
	rows        []sessionRow
	sections    []dto.SectionInput
	level       string
	overrides   *dto.PolicyOverrides
	dropped     []dto.DroppedRowView
}

// Generate runs the engine over a JSON payload and stores the proposal.
func (s *InvigilationService) Generate(ctx context.Context, req dto.GenerateRosterRequest) (*dto.GenerateRosterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster generation payload")
	}
	return s.run(ctx, runInput{
		supervisors: toSupervisors(req.Supervisors),
		rows:        jsonSessionRows(req.Sessions),
		sections:    req.Sections,
		level:       req.Level,
		overrides:   req.Policy,
	})
}

// Upload reads the supervisor, session and optional section spreadsheets and
// runs the engine over them.
func (s *InvigilationService) Upload(ctx context.Context, upload RosterUpload) (*dto.GenerateRosterResponse, error) {
	if err := s.validator.Struct(upload.Form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload form")
	}

	supervisorTable, err := tabular.Read(upload.Supervisors.Filename, upload.Supervisors.Reader, tableSupervisors, s.headers.supervisors)
	if err != nil {
		return nil, importError(err)
	}
	supervisors, err := supervisorsFromTable(supervisorTable, s.logger)
	if err != nil {
		return nil, importError(err)
	}

	sessionTable, err := tabular.Read(upload.Sessions.Filename, upload.Sessions.Reader, tableSessions, s.headers.sessions)
	if err != nil {
		return nil, importError(err)
	}
	rows, err := sessionsFromTable(sessionTable, s.layout, upload.Form.Layout, s.logger)
	if err != nil {
		return nil, importError(err)
	}

	var (
		sections []dto.SectionInput
		dropped  []dto.DroppedRowView
	)
	if upload.Sections != nil {
		sectionTable, err := tabular.Read(upload.Sections.Filename, upload.Sections.Reader, tableSections, s.headers.sections)
		if err != nil {
			return nil, importError(err)
		}
		sections, dropped, err = sectionsFromTable(sectionTable)
		if err != nil {
			return nil, importError(err)
		}
	}

	return s.run(ctx, runInput{
		supervisors: toSupervisors(supervisors),
		rows:        rows,
		sections:    sections,
		level:       upload.Form.Level,
		overrides:   formOverrides(upload.Form),
		dropped:     dropped,
	})
}

func (s *InvigilationService) run(ctx context.Context, in runInput) (*dto.GenerateRosterResponse, error) {
	policy, aliases := s.policyFor(in.overrides)
	engine, err := invigilation.NewEngine(policy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	policy = engine.Policy()

	sessions, dropped := toSessions(in.rows)
	dropped = append(append(make([]dto.DroppedRowView, 0, len(in.dropped)+len(dropped)), in.dropped...), dropped...)
	for _, row := range dropped {
		s.logger.Warn("input row dropped", zap.String("table", row.Table), zap.Int("row", row.Row), zap.String("reason", row.Reason))
	}

	levels := invigilation.Levels(sessions)
	sessions = invigilation.FilterLevel(sessions, in.level, policy.Normalizer)
	if len(sessions) == 0 {
		if strings.TrimSpace(in.level) != "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no exam sessions found for level %q", in.level))
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "no usable exam sessions in input")
	}
	sessions = invigilation.ExpandSections(sessions, mergeSections(s.sections, in.sections, policy.Normalizer), policy.Normalizer)

	fingerprint, err := fingerprintRun(in.supervisors, sessions, policy, aliases)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint run")
	}

	start := time.Now()
	var result invigilation.Result
	hit := s.cachedResult(ctx, fingerprint, &result)
	if !hit {
		computed, err := engine.Run(in.supervisors, sessions)
		if err != nil {
			return nil, runError(err)
		}
		result = *computed
		s.storeResult(ctx, fingerprint, result)
	}
	s.observe(time.Since(start), hit, result, dropped)

	for _, shortage := range result.Shortages {
		s.logger.Info("session under-staffed",
			zap.String("date", invigilation.DateKey(shortage.Session.Date)),
			zap.String("start", shortage.Session.Start.String()),
			zap.String("subject", shortage.Session.Subject),
			zap.String("grade", shortage.Session.Grade),
			zap.Int("required", shortage.Required),
			zap.Int("filled", shortage.Filled),
		)
	}
	s.logger.Info("invigilation run completed",
		zap.String("fingerprint", fingerprint),
		zap.Bool("cache_hit", hit),
		zap.Int("sessions", len(sessions)),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("shortages", len(result.Shortages)),
		zap.Int("dropped", len(dropped)),
	)

	proposal := rosterProposal{
		ProposalID:  uuid.NewString(),
		Fingerprint: fingerprint,
		CacheHit:    hit,
		Level:       strings.TrimSpace(in.level),
		Levels:      levels,
		Policy:      rosterPolicy(policy),
		Result:      result,
		Dropped:     dropped,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)
	s.mirrorProposal(ctx, proposal)

	return s.proposalResponse(proposal), nil
}

// GetProposal returns a proposal that has not expired yet.
func (s *InvigilationService) GetProposal(ctx context.Context, proposalID string) (*dto.GenerateRosterResponse, error) {
	proposal, ok := s.lookupProposal(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return s.proposalResponse(proposal), nil
}

// Save persists a proposal as a draft roster. Shortages do not block saving.
func (s *InvigilationService) Save(ctx context.Context, req dto.SaveRosterRequest, actorID string) (*models.Roster, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save payload")
	}
	proposal, ok := s.lookupProposal(ctx, req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	stats := invigilation.Summarize(proposal.Result.Assignments, proposal.Result.Shortages)
	roster := &models.Roster{
		Name:        strings.TrimSpace(req.Name),
		Level:       proposal.Level,
		Fingerprint: proposal.Fingerprint,
		Policy:      proposal.Policy,
		Stats:       rosterStats(stats),
		CreatedBy:   actorID,
	}
	assignments, shortages := rosterRows(proposal.Result)
	if err := s.repo.Create(ctx, roster, assignments, shortages); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save roster")
	}

	s.store.Delete(proposal.ProposalID)
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, ProposalCacheKey(proposal.ProposalID))
	}
	s.logger.Info("roster saved",
		zap.String("roster_id", roster.ID),
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("actor", actorID),
		zap.Int("shortages", len(shortages)),
	)
	return roster, nil
}

// List returns rosters with pagination metadata.
func (s *InvigilationService) List(ctx context.Context, query dto.RosterQuery) ([]models.Roster, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster query")
	}
	filter := models.RosterFilter{
		Level:     query.Level,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if query.Status != "" {
		status := models.RosterStatus(query.Status)
		filter.Status = &status
	}
	rosters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rosters")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rosters, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Snapshot loads a saved roster and rebuilds its engine records.
func (s *InvigilationService) Snapshot(ctx context.Context, id string) (*RosterSnapshot, error) {
	roster, err := s.findRoster(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster assignments")
	}
	shortages, err := s.repo.ListShortages(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster shortages")
	}
	return &RosterSnapshot{Roster: *roster, Result: restoreResult(assignments, shortages)}, nil
}

// ProposalSnapshot exposes an unsaved proposal as a draft roster snapshot so
// it can be rendered without persisting it first.
func (s *InvigilationService) ProposalSnapshot(ctx context.Context, proposalID, name string) (*RosterSnapshot, error) {
	proposal, ok := s.lookupProposal(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if strings.TrimSpace(name) == "" {
		name = "roster"
	}
	return &RosterSnapshot{
		Roster: models.Roster{
			ID:              proposal.ProposalID,
			Name:            name,
			Level:           proposal.Level,
			Status:          models.RosterStatusDraft,
			Fingerprint:     proposal.Fingerprint,
			Policy:          proposal.Policy,
			AssignmentCount: len(proposal.Result.Assignments),
			ShortageCount:   len(proposal.Result.Shortages),
			CreatedAt:       proposal.RequestedAt,
			UpdatedAt:       proposal.RequestedAt,
		},
		Result: proposal.Result,
	}, nil
}

// Get returns a saved roster with its rows, statistics and daily sheets.
func (s *InvigilationService) Get(ctx context.Context, id string) (*dto.RosterDetailResponse, error) {
	snapshot, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	result := snapshot.Result
	return &dto.RosterDetailResponse{
		Roster:      snapshot.Roster,
		Assignments: assignmentViews(result.Assignments),
		Shortages:   shortageViews(result.Shortages),
		Stats:       statsView(invigilation.Summarize(result.Assignments, result.Shortages)),
		Days:        dailyViews(invigilation.GroupByDay(result.Assignments, result.Shortages)),
	}, nil
}

// Publish marks a draft roster as published.
func (s *InvigilationService) Publish(ctx context.Context, id string) (*models.Roster, error) {
	roster, err := s.findRoster(ctx, id)
	if err != nil {
		return nil, err
	}
	if roster.Status == models.RosterStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roster already published")
	}
	now := time.Now().UTC()
	if err := s.repo.Publish(ctx, id, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "roster already published")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish roster")
	}
	roster.Status = models.RosterStatusPublished
	roster.PublishedAt = &now
	roster.UpdatedAt = now
	return roster, nil
}

// Delete removes a draft roster. Published rosters are kept.
func (s *InvigilationService) Delete(ctx context.Context, id string) error {
	roster, err := s.findRoster(ctx, id)
	if err != nil {
		return err
	}
	if roster.Status != models.RosterStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft rosters can be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "only draft rosters can be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete roster")
	}
	return nil
}

// FlushCache drops cached runs and mirrored proposals.
func (s *InvigilationService) FlushCache(ctx context.Context) error {
	if s.cache == nil || !s.cache.Enabled() {
		return appErrors.Clone(appErrors.ErrFeatureDisabled, "run cache is disabled")
	}
	if err := s.cache.Invalidate(ctx, CachePattern("")); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flush run cache")
	}
	return nil
}

// StartProposalSweeper drops expired in-memory proposals every interval until
// ctx is cancelled. A non-positive interval uses the proposal TTL.
func (s *InvigilationService) StartProposalSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.store.ttl
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.store.sweep(); removed > 0 {
					s.logger.Debug("expired proposals swept", zap.Int("removed", removed), zap.Int("remaining", s.store.Len()))
				}
			}
		}
	}()
}

func (s *InvigilationService) findRoster(ctx context.Context, id string) (*models.Roster, error) {
	roster, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "roster not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// policyFor applies run overrides to the configured policy. It returns the
// effective alias table alongside for fingerprinting.
func (s *InvigilationService) policyFor(o *dto.PolicyOverrides) (invigilation.Policy, map[string]string) {
	policy := s.policy
	aliases := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		aliases[k] = v
	}
	tiers := make(map[string]invigilation.Tier, len(policy.GradeTiers))
	for grade, tier := range policy.GradeTiers {
		tiers[grade] = tier
	}
	if o != nil {
		if o.SpecialtyMode != nil {
			policy.SpecialtyMode = invigilation.SpecialtyMode(*o.SpecialtyMode)
		}
		if o.SecondaryRule != nil {
			policy.SecondaryRule = invigilation.SecondaryRule(*o.SecondaryRule)
		}
		if o.DailyCapacity != nil {
			policy.DefaultDailyCapacity = *o.DailyCapacity
		}
		if o.SectionDailyCapacity != nil {
			policy.SectionDailyCapacity = *o.SectionDailyCapacity
		}
		if o.SupervisorsNeeded != nil {
			policy.DefaultNeeded = *o.SupervisorsNeeded
		}
		if o.DefaultTier != nil {
			policy.DefaultTier = invigilation.Tier(*o.DefaultTier)
		}
		for grade, tier := range o.GradeTiers {
			tiers[grade] = invigilation.Tier(tier)
		}
		for k, v := range o.SpecialtyAliases {
			aliases[k] = v
		}
	}
	policy.GradeTiers = tiers
	policy.Normalizer = invigilation.NewNormalizer(aliases)
	return policy, aliases
}

func formOverrides(form dto.UploadRosterForm) *dto.PolicyOverrides {
	o := &dto.PolicyOverrides{}
	if form.SpecialtyMode != "" {
		o.SpecialtyMode = &form.SpecialtyMode
	}
	if form.SecondaryRule != "" {
		o.SecondaryRule = &form.SecondaryRule
	}
	if form.SupervisorsNeeded > 0 {
		o.SupervisorsNeeded = &form.SupervisorsNeeded
	}
	if form.DailyCapacity > 0 {
		o.DailyCapacity = &form.DailyCapacity
	}
	return o
}

type runFingerprint struct {
	Supervisors []invigilation.Supervisor `json:"supervisors"`
	Sessions    []invigilation.Session    `json:"sessions"`
	Policy      models.RosterPolicy       `json:"policy"`
	Aliases     map[string]string         `json:"aliases,omitempty"`
}

// fingerprintRun hashes the normalised inputs of a run. Maps are encoded
// with sorted keys so equal inputs hash equally.
func fingerprintRun(supervisors []invigilation.Supervisor, sessions []invigilation.Session, policy invigilation.Policy, aliases map[string]string) (string, error) {
	payload, err := json.Marshal(runFingerprint{
		Supervisors: supervisors,
		Sessions:    sessions,
		Policy:      rosterPolicy(policy),
		Aliases:     aliases,
	})
	if err != nil {
		return "", err
	}
	sum := xxh3.Hash128(payload)
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo), nil
}

func (s *InvigilationService) cachedResult(ctx context.Context, fingerprint string, dest *invigilation.Result) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, RunCacheKey(fingerprint), dest)
	return err == nil && hit
}

func (s *InvigilationService) storeResult(ctx context.Context, fingerprint string, result invigilation.Result) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, RunCacheKey(fingerprint), result, s.cacheTTL)
}

func (s *InvigilationService) mirrorProposal(ctx context.Context, proposal rosterProposal) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, ProposalCacheKey(proposal.ProposalID), proposal, s.store.ttl)
}

// lookupProposal checks the local store first and falls back to the shared
// cache so proposals survive across instances.
func (s *InvigilationService) lookupProposal(ctx context.Context, id string) (rosterProposal, bool) {
	if proposal, ok := s.store.Get(id); ok {
		return proposal, true
	}
	if s.cache == nil {
		return rosterProposal{}, false
	}
	var proposal rosterProposal
	hit, err := s.cache.Get(ctx, ProposalCacheKey(id), &proposal)
	if err != nil || !hit || s.store.expired(proposal) {
		return rosterProposal{}, false
	}
	s.store.Save(proposal)
	return proposal, true
}

func (s *InvigilationService) observe(duration time.Duration, hit bool, result invigilation.Result, dropped []dto.DroppedRowView) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveRun(duration, hit, len(result.Assignments), len(result.Shortages))
	perTable := make(map[string]int)
	for _, row := range dropped {
		perTable[row.Table]++
	}
	for table, count := range perTable {
		s.metrics.RecordDroppedRows(table, count)
	}
}

func (s *InvigilationService) proposalResponse(p rosterProposal) *dto.GenerateRosterResponse {
	stats := invigilation.Summarize(p.Result.Assignments, p.Result.Shortages)
	dropped := p.Dropped
	if dropped == nil {
		dropped = make([]dto.DroppedRowView, 0)
	}
	levels := p.Levels
	if levels == nil {
		levels = make([]string, 0)
	}
	return &dto.GenerateRosterResponse{
		ProposalID:  p.ProposalID,
		Fingerprint: p.Fingerprint,
		CacheHit:    p.CacheHit,
		Level:       p.Level,
		Levels:      levels,
		ExpiresAt:   p.RequestedAt.Add(s.store.ttl),
		Assignments: assignmentViews(p.Result.Assignments),
		Shortages:   shortageViews(p.Result.Shortages),
		Dropped:     dropped,
		Stats:       statsView(stats),
	}
}

func runError(err error) error {
	switch {
	case errors.Is(err, invigilation.ErrNoSupervisors):
		return appErrors.Wrap(err, appErrors.ErrNoSupervisors.Code, appErrors.ErrNoSupervisors.Status, "no teacher supervisors were provided")
	case errors.Is(err, invigilation.ErrDuplicateSupervisor), errors.Is(err, invigilation.ErrInvalidPolicy):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "assignment run failed")
	}
}

func importError(err error) error {
	var missing *tabular.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return appErrors.Wrap(err, appErrors.ErrMissingColumns.Code, appErrors.ErrMissingColumns.Status, err.Error())
	case errors.Is(err, tabular.ErrUnsupportedFormat):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable spreadsheet")
	}
}

type rosterProposal struct {
	ProposalID  string               `json:"proposalId"`
	Fingerprint string               `json:"fingerprint"`
	CacheHit    bool                 `json:"cacheHit"`
	Level       string               `json:"level,omitempty"`
	Levels      []string             `json:"levels"`
	Policy      models.RosterPolicy  `json:"policy"`
	Result      invigilation.Result  `json:"result"`
	Dropped     []dto.DroppedRowView `json:"dropped"`
	RequestedAt time.Time            `json:"requestedAt"`
}

// proposalStore keeps unsaved proposals in memory. Expired entries are
// dropped on lookup, swept on Save once per TTL window, and swept by
// StartProposalSweeper when it runs.
type proposalStore struct {
	ttl       time.Duration
	now       func() time.Time
	mu        sync.RWMutex
	items     map[string]rosterProposal
	lastSweep time.Time
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:       ttl,
		now:       time.Now,
		items:     make(map[string]rosterProposal),
		lastSweep: time.Now(),
	}
}

func (s *proposalStore) Save(proposal rosterProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now := s.now(); now.Sub(s.lastSweep) >= s.ttl {
		s.sweepLocked(now)
	}
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (rosterProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return rosterProposal{}, false
	}
	if s.expired(proposal) {
		s.Delete(id)
		return rosterProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Len reports how many proposals are held, expired or not.
func (s *proposalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// sweep removes every expired proposal and returns how many were dropped.
func (s *proposalStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *proposalStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, proposal := range s.items {
		if now.Sub(proposal.RequestedAt) > s.ttl {
			delete(s.items, id)
			removed++
		}
	}
	s.lastSweep = now
	return removed
}

func (s *proposalStore) expired(proposal rosterProposal) bool {
	return s.now().Sub(proposal.RequestedAt) > s.ttl
}
