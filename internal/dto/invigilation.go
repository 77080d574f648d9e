package dto

import (
	"time"

	"github.com/noah-isme/sma-invigilation-api/internal/models"
)

// SupervisorInput is one row of the supervisors table.
type SupervisorInput struct {
	Name             string `json:"name" validate:"required,max=200"`
	Specialty        string `json:"specialty"`
	DailyCapacity    int    `json:"dailyCapacity" validate:"omitempty,min=0"`
	UnavailableDates string `json:"unavailableDates"`
	Pool             string `json:"pool" validate:"omitempty,oneof=teacher section"`
}

// ExamSessionInput is one row of the exam timetable. Dates and times are
// raw strings; rows that cannot be normalised are dropped and reported.
type ExamSessionInput struct {
	Date              string `json:"date"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	Subject           string `json:"subject"`
	Grade             string `json:"grade"`
	Section           string `json:"section"`
	Period            string `json:"period"`
	SupervisorsNeeded int    `json:"supervisorsNeeded" validate:"omitempty,min=0,max=20"`
}

// SectionInput maps a grade to one of its class sections.
type SectionInput struct {
	Grade   string `json:"grade" validate:"required"`
	Section string `json:"section" validate:"required"`
}

// PolicyOverrides adjusts the configured assignment policy for one run.
type PolicyOverrides struct {
	SpecialtyMode        *string           `json:"specialtyMode,omitempty" validate:"omitempty,oneof=deprioritize exclude"`
	SecondaryRule        *string           `json:"secondaryRule,omitempty" validate:"omitempty,oneof=teacher grade_tier"`
	DailyCapacity        *int              `json:"dailyCapacity,omitempty" validate:"omitempty,min=0"`
	SectionDailyCapacity *int              `json:"sectionDailyCapacity,omitempty" validate:"omitempty,min=0"`
	SupervisorsNeeded    *int              `json:"supervisorsNeeded,omitempty" validate:"omitempty,min=1,max=20"`
	GradeTiers           map[string]int    `json:"gradeTiers,omitempty" validate:"omitempty,dive,min=1,max=2"`
	DefaultTier          *int              `json:"defaultTier,omitempty" validate:"omitempty,min=1,max=2"`
	SpecialtyAliases     map[string]string `json:"specialtyAliases,omitempty"`
}

// GenerateRosterRequest captures POST /invigilation/generate payload.
type GenerateRosterRequest struct {
	Supervisors []SupervisorInput  `json:"supervisors" validate:"dive"`
	Sessions    []ExamSessionInput `json:"sessions" validate:"required,min=1,dive"`
	Sections    []SectionInput     `json:"sections" validate:"omitempty,dive"`
	Level       string             `json:"level"`
	Policy      *PolicyOverrides   `json:"policy,omitempty"`
}

// UploadRosterForm carries the non-file fields of the multipart upload.
type UploadRosterForm struct {
	Level             string `form:"level"`
	SpecialtyMode     string `form:"specialtyMode" validate:"omitempty,oneof=deprioritize exclude"`
	SecondaryRule     string `form:"secondaryRule" validate:"omitempty,oneof=teacher grade_tier"`
	SupervisorsNeeded int    `form:"supervisorsNeeded" validate:"omitempty,min=1,max=20"`
	DailyCapacity     int    `form:"dailyCapacity" validate:"omitempty,min=0"`
	Layout            string `form:"layout" validate:"omitempty,oneof=long wide"`
}

// AssignmentView is an assignment row as returned by the API.
type AssignmentView struct {
	SessionID          int    `json:"sessionId"`
	Date               string `json:"date"`
	Weekday            string `json:"weekday"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	Subject            string `json:"subject"`
	Grade              string `json:"grade"`
	Section            string `json:"section,omitempty"`
	Period             string `json:"period,omitempty"`
	SlotIndex          int    `json:"slotIndex"`
	SupervisorName     string `json:"supervisorName"`
	Pool               string `json:"pool"`
	Specialty          string `json:"specialty"`
	DifferentSpecialty bool   `json:"differentSpecialty"`
}

// ShortageView is an under-staffed session as returned by the API.
type ShortageView struct {
	SessionID int    `json:"sessionId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Subject   string `json:"subject"`
	Grade     string `json:"grade"`
	Section   string `json:"section,omitempty"`
	Period    string `json:"period,omitempty"`
	Required  int    `json:"required"`
	Filled    int    `json:"filled"`
	Missing   int    `json:"missing"`
}

// DroppedRowView reports an input row excluded before the run.
type DroppedRowView struct {
	Table  string `json:"table"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// SupervisorShareView is one supervisor's share of all assignments.
type SupervisorShareView struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// RosterStatsView summarises a run.
type RosterStatsView struct {
	Total                     int                   `json:"total"`
	MinLoad                   int                   `json:"minLoad"`
	MaxLoad                   int                   `json:"maxLoad"`
	AvgLoad                   float64               `json:"avgLoad"`
	DifferentSpecialtyCount   int                   `json:"differentSpecialtyCount"`
	DifferentSpecialtyPercent float64               `json:"differentSpecialtyPercent"`
	ShortageCount             int                   `json:"shortageCount"`
	Shares                    []SupervisorShareView `json:"shares"`
	PerDay                    map[string]int        `json:"perDay"`
}

// DailySessionView is one session row on a daily sheet.
type DailySessionView struct {
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Subject     string   `json:"subject"`
	Grade       string   `json:"grade"`
	Section     string   `json:"section,omitempty"`
	Period      string   `json:"period,omitempty"`
	Supervisors []string `json:"supervisors"`
	Notes       []string `json:"notes"`
}

// DailyScheduleView groups a roster by exam day.
type DailyScheduleView struct {
	Date          string             `json:"date"`
	Weekday       string             `json:"weekday"`
	WeekdayArabic string             `json:"weekdayArabic"`
	Sessions      []DailySessionView `json:"sessions"`
}

// GenerateRosterResponse returns a proposal built by the assignment engine.
type GenerateRosterResponse struct {
	ProposalID  string           `json:"proposalId"`
	Fingerprint string           `json:"fingerprint"`
	CacheHit    bool             `json:"cacheHit"`
	Level       string           `json:"level,omitempty"`
	Levels      []string         `json:"levels"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Assignments []AssignmentView `json:"assignments"`
	Shortages   []ShortageView   `json:"shortages"`
	Dropped     []DroppedRowView `json:"dropped"`
	Stats       RosterStatsView  `json:"stats"`
}

// SaveRosterRequest persists a proposal as a draft roster.
type SaveRosterRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Name       string `json:"name" validate:"required,max=200"`
}

// RosterQuery filters roster listings.
type RosterQuery struct {
	Status    string `form:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	Level     string `form:"level"`
	Search    string `form:"search"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// RosterDetailResponse is a saved roster with its rows.
type RosterDetailResponse struct {
	Roster      models.Roster       `json:"roster"`
	Assignments []AssignmentView    `json:"assignments"`
	Shortages   []ShortageView      `json:"shortages"`
	Stats       RosterStatsView     `json:"stats"`
	Days        []DailyScheduleView `json:"days"`
}

// ExportRequest captures POST /invigilation/rosters/:id/exports payload.
type ExportRequest struct {
	Kind       models.ExportKind   `json:"kind" validate:"required,oneof=assignments shortages stats daily"`
	Format     models.ExportFormat `json:"format" validate:"required,oneof=csv xlsx pdf"`
	Supervisor string              `json:"supervisor"`
	Date       string              `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Locale     string              `json:"locale" validate:"omitempty,oneof=ar en"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	RosterID  string              `json:"rosterId"`
	Kind      models.ExportKind   `json:"kind"`
	Format    models.ExportFormat `json:"format"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
