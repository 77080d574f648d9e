package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/pkg/export"
	"github.com/noah-isme/sma-invigilation-api/pkg/storage"
)

type rosterSnapshotter interface {
	Snapshot(ctx context.Context, id string) (*RosterSnapshot, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
	ContentType() string
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
	RenderDaily(header export.DailyHeader, sheets []export.DailySheet) ([]byte, error)
	Unicode() bool
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix    string
	ResultTTL    time.Duration
	SchoolName   string
	AcademicYear string
	Semester     string
}

// ExportRenderers groups the format renderers. Nil fields get defaults.
type ExportRenderers struct {
	CSV     csvRenderer
	XLSX    xlsxRenderer
	XLSXRTL xlsxRenderer
	PDF     pdfRenderer
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders roster snapshots and persists the files.
type ExportService struct {
	rosters   rosterSnapshotter
	storage   fileStorage
	renderers ExportRenderers
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(rosters rosterSnapshotter, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers ExportRenderers) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderers.CSV == nil {
		renderers.CSV = export.NewCSVExporter()
	}
	if renderers.XLSX == nil {
		renderers.XLSX = export.NewXLSXExporter(false)
	}
	if renderers.XLSXRTL == nil {
		renderers.XLSXRTL = export.NewXLSXExporter(true)
	}
	if renderers.PDF == nil {
		renderers.PDF = export.NewPDFExporter("")
	}
	return &ExportService{
		rosters:   rosters,
		storage:   storage,
		renderers: renderers,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the job's roster view and stores the file behind a
// signed download token.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	snapshot, err := s.rosters.Snapshot(ctx, job.RosterID)
	if err != nil {
		return nil, err
	}

	payload, err := s.Render(snapshot, job.Kind, job.Format, job.Params)
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job, snapshot.Roster.Name)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/invigilation/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Render produces the bytes of one roster view. Shortages never prevent an
// export; they are part of the output.
func (s *ExportService) Render(snapshot *RosterSnapshot, kind models.ExportKind, format models.ExportFormat, params models.ExportJobParams) ([]byte, error) {
	result := filterResult(snapshot.Result, params)
	locale := params.Locale
	if format == models.ExportFormatPDF && locale == localeArabic && !s.renderers.PDF.Unicode() {
		s.logger.Warn("arabic pdf requested without a unicode font, using english labels", zap.String("roster_id", snapshot.Roster.ID))
		locale = ""
	}

	if kind == models.ExportKindDaily && format == models.ExportFormatPDF {
		if len(result.Assignments) == 0 && len(result.Shortages) == 0 {
			return nil, fmt.Errorf("roster has no sessions to print")
		}
		labels := export.EnglishDailyLabels()
		if locale == localeArabic {
			labels = export.ArabicDailyLabels()
		}
		return s.renderers.PDF.RenderDaily(export.DailyHeader{
			SchoolName:   s.cfg.SchoolName,
			AcademicYear: s.cfg.AcademicYear,
			Semester:     s.cfg.Semester,
			Labels:       labels,
		}, dailySheets(result, locale))
	}

	var (
		dataset export.Dataset
		title   string
	)
	switch kind {
	case models.ExportKindAssignments:
		dataset, title = assignmentDataset(result, locale), "Invigilation Assignments"
	case models.ExportKindShortages:
		dataset, title = shortageDataset(result, locale), "Invigilation Shortages"
	case models.ExportKindStats:
		dataset, title = statsDataset(result, locale), "Invigilation Statistics"
	case models.ExportKindDaily:
		dataset, title = dailyDataset(result, locale), "Daily Invigilation Schedule"
	default:
		return nil, fmt.Errorf("unsupported export kind %s", kind)
	}
	if snapshot.Roster.Name != "" {
		title = fmt.Sprintf("%s - %s", title, snapshot.Roster.Name)
	}

	switch format {
	case models.ExportFormatCSV:
		return s.renderers.CSV.Render(dataset)
	case models.ExportFormatXLSX:
		if locale == localeArabic {
			return s.renderers.XLSXRTL.Render(dataset, string(kind))
		}
		return s.renderers.XLSX.Render(dataset, string(kind))
	case models.ExportFormatPDF:
		return s.renderers.PDF.Render(dataset, title)
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// ContentType returns the MIME type served for a format.
func (s *ExportService) ContentType(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatCSV:
		return s.renderers.CSV.ContentType()
	case models.ExportFormatXLSX:
		return s.renderers.XLSX.ContentType()
	case models.ExportFormatPDF:
		return s.renderers.PDF.ContentType()
	default:
		return "application/octet-stream"
	}
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob, rosterName string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	name := sanitizeFilename(rosterName)
	if job.Params.Date != "" {
		name = name + "_" + job.Params.Date
	}
	return fmt.Sprintf("%s_%s_%s.%s", string(job.Kind), name, timestamp, job.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "roster"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
