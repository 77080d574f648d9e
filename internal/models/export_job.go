package models

import (
	"database/sql/driver"
	"time"
)

// ExportKind enumerates the roster views that can be exported.
type ExportKind string

const (
	ExportKindAssignments ExportKind = "assignments"
	ExportKindShortages   ExportKind = "shortages"
	ExportKindStats       ExportKind = "stats"
	ExportKindDaily       ExportKind = "daily"
)

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob persisted background export metadata.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	RosterID     string          `db:"roster_id" json:"roster_id"`
	Kind         ExportKind      `db:"kind" json:"kind"`
	Format       ExportFormat    `db:"format" json:"format"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}

// ExportJobParams stores request-scoped options persisted as JSONB.
type ExportJobParams struct {
	// Supervisor restricts assignment exports to one supervisor's duties.
	Supervisor string `json:"supervisor,omitempty"`
	// Date restricts exports to a single exam day (YYYY-MM-DD).
	Date   string            `json:"date,omitempty"`
	Locale string            `json:"locale,omitempty"`
	Extras map[string]string `json:"extras,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	if p.Extras == nil {
		p.Extras = map[string]string{}
	}
	return jsonValue(p, "export job params")
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	var decoded ExportJobParams
	if _, err := scanJSON(value, &decoded, "export job params"); err != nil {
		return err
	}
	*p = decoded
	return nil
}
