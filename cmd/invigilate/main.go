// Command invigilate runs the supervisor assignment engine over local
// spreadsheets and writes the export files next to them. It also mints
// bearer tokens for the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/internal/service"
	"github.com/noah-isme/sma-invigilation-api/pkg/config"
	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
	"github.com/noah-isme/sma-invigilation-api/pkg/export"
	"github.com/noah-isme/sma-invigilation-api/pkg/logger"
	"github.com/noah-isme/sma-invigilation-api/pkg/storage"
)

const usage = `usage:
  invigilate run -supervisors FILE -sessions FILE [-sections FILE] [flags]
  invigilate token -subject ID -role ROLE [-name NAME]`

// errShortages signals a completed run that left sessions under-staffed.
var errShortages = errors.New("run finished with shortages")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := dispatch(context.Background(), cfg, logr, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "run":
		return runCommand(ctx, cfg, logr, args[1:], out)
	case "token":
		return tokenCommand(cfg, logr, args[1:], out)
	default:
		fmt.Fprintln(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type runOptions struct {
	supervisors   string
	sessions      string
	sections      string
	level         string
	layout        string
	specialtyMode string
	secondaryRule string
	needed        int
	capacity      int
	name          string
	outDir        string
	kinds         string
	formats       string
	locale        string
	strict        bool
}

func parseRunFlags(args []string) (runOptions, error) {
	var opts runOptions
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&opts.supervisors, "supervisors", "", "Supervisor spreadsheet (csv or xlsx)")
	fs.StringVar(&opts.sessions, "sessions", "", "Exam session spreadsheet (csv or xlsx)")
	fs.StringVar(&opts.sections, "sections", "", "Optional section spreadsheet")
	fs.StringVar(&opts.level, "level", "", "Only assign sessions of this grade")
	fs.StringVar(&opts.layout, "layout", "", "Session layout: long or wide (detected when empty)")
	fs.StringVar(&opts.specialtyMode, "specialty-mode", "", "deprioritize or exclude")
	fs.StringVar(&opts.secondaryRule, "secondary-rule", "", "teacher or grade_tier")
	fs.IntVar(&opts.needed, "needed", 0, "Supervisors per session when the sheet has no count")
	fs.IntVar(&opts.capacity, "capacity", 0, "Daily duty limit per teacher (0 = unlimited)")
	fs.StringVar(&opts.name, "name", "roster", "Roster name used in titles and file names")
	fs.StringVar(&opts.outDir, "out", "./exports", "Output directory")
	fs.StringVar(&opts.kinds, "kinds", "assignments,shortages,stats,daily", "Views to export")
	fs.StringVar(&opts.formats, "formats", "csv", "Formats to export (csv, xlsx, pdf)")
	fs.StringVar(&opts.locale, "locale", "", "Export labels: empty for English, ar for Arabic")
	fs.BoolVar(&opts.strict, "strict", false, "Exit non-zero when any session is under-staffed")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.supervisors == "" || opts.sessions == "" {
		return opts, errors.New("-supervisors and -sessions are required")
	}
	return opts, nil
}

func runCommand(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, out io.Writer) error {
	opts, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	kinds, err := parseKinds(opts.kinds)
	if err != nil {
		return err
	}
	formats, err := parseFormats(opts.formats)
	if err != nil {
		return err
	}

	policyFile, err := config.LoadPolicyFile(cfg.Invigilation.PolicyFile)
	if err != nil {
		return err
	}
	svc := service.NewInvigilationService(nil, nil, nil, nil, logr, service.InvigilationSettings(cfg.Invigilation, policyFile))

	upload, closeFiles, err := openUpload(opts)
	if err != nil {
		return err
	}
	defer closeFiles()

	proposal, err := svc.Upload(ctx, upload)
	if err != nil {
		return describe(err)
	}
	printSummary(out, proposal)

	snapshot, err := svc.ProposalSnapshot(ctx, proposal.ProposalID, opts.name)
	if err != nil {
		return describe(err)
	}

	store, err := storage.NewLocalStorage(opts.outDir)
	if err != nil {
		return err
	}
	exporter := service.NewExportService(nil, store, nil, service.ExportConfig{
		SchoolName:   cfg.Exports.SchoolName,
		AcademicYear: cfg.Exports.AcademicYear,
		Semester:     cfg.Exports.Semester,
	}, logr, service.ExportRenderers{PDF: export.NewPDFExporter(cfg.Exports.FontPath)})

	params := models.ExportJobParams{Locale: opts.locale}
	base := sanitizeName(opts.name)
	for _, kind := range kinds {
		for _, format := range formats {
			data, err := exporter.Render(snapshot, kind, format, params)
			if err != nil {
				logr.Warn("export skipped", zap.String("kind", string(kind)), zap.String("format", string(format)), zap.Error(err))
				continue
			}
			rel, err := store.Save(fmt.Sprintf("%s_%s.%s", kind, base, format), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", filepath.Join(opts.outDir, rel))
		}
	}

	if opts.strict && len(proposal.Shortages) > 0 {
		return errShortages
	}
	return nil
}

func openUpload(opts runOptions) (service.RosterUpload, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	open := func(path string) (service.UploadedTable, error) {
		f, err := os.Open(path)
		if err != nil {
			return service.UploadedTable{}, err
		}
		files = append(files, f)
		return service.UploadedTable{Filename: filepath.Base(path), Reader: f}, nil
	}

	upload := service.RosterUpload{Form: dto.UploadRosterForm{
		Level:             opts.level,
		SpecialtyMode:     opts.specialtyMode,
		SecondaryRule:     opts.secondaryRule,
		SupervisorsNeeded: opts.needed,
		DailyCapacity:     opts.capacity,
		Layout:            opts.layout,
	}}
	var err error
	if upload.Supervisors, err = open(opts.supervisors); err != nil {
		closeAll()
		return upload, nil, err
	}
	if upload.Sessions, err = open(opts.sessions); err != nil {
		closeAll()
		return upload, nil, err
	}
	if opts.sections != "" {
		sections, err := open(opts.sections)
		if err != nil {
			closeAll()
			return upload, nil, err
		}
		upload.Sections = &sections
	}
	return upload, closeAll, nil
}

func printSummary(out io.Writer, proposal *dto.GenerateRosterResponse) {
	fmt.Fprintf(out, "fingerprint %s\n", proposal.Fingerprint)
	fmt.Fprintf(out, "assignments %d, shortages %d, dropped rows %d\n", len(proposal.Assignments), len(proposal.Shortages), len(proposal.Dropped))
	for _, row := range proposal.Dropped {
		fmt.Fprintf(out, "  dropped %s row %d: %s\n", row.Table, row.Row, row.Reason)
	}
	for _, s := range proposal.Shortages {
		fmt.Fprintf(out, "  short %s %s-%s %s %s: %d of %d\n", s.Date, s.StartTime, s.EndTime, s.Subject, s.Grade, s.Filled, s.Required)
	}
}

func tokenCommand(cfg *config.Config, logr *zap.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "", "User id placed in the token")
	role := fs.String("role", string(models.RoleCoordinator), "SUPERADMIN, ADMIN, COORDINATOR or TEACHER")
	name := fs.String("name", "", "Display name")
	ttl := fs.Duration("ttl", cfg.JWT.TokenTTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: *ttl,
		Issuer:            cfg.JWT.Issuer,
	})
	token, expiresAt, err := auth.IssueToken(*subject, models.UserRole(strings.ToUpper(*role)), *name)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func parseKinds(raw string) ([]models.ExportKind, error) {
	var kinds []models.ExportKind
	for _, part := range splitList(raw) {
		kind := models.ExportKind(part)
		switch kind {
		case models.ExportKindAssignments, models.ExportKindShortages, models.ExportKindStats, models.ExportKindDaily:
			kinds = append(kinds, kind)
		default:
			return nil, fmt.Errorf("unknown export kind %q", part)
		}
	}
	return kinds, nil
}

func parseFormats(raw string) ([]models.ExportFormat, error) {
	var formats []models.ExportFormat
	for _, part := range splitList(raw) {
		format := models.ExportFormat(part)
		switch format {
		case models.ExportFormatCSV, models.ExportFormatXLSX, models.ExportFormatPDF:
			formats = append(formats, format)
		default:
			return nil, fmt.Errorf("unknown export format %q", part)
		}
	}
	return formats, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "roster"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '/' || r == '\\':
			return '_'
		case r < 32:
			return -1
		}
		return r
	}, name)
}

func describe(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
	}
	return err
}
