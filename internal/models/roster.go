package models

import (
	"database/sql/driver"
	"time"
)

// RosterStatus captures the lifecycle of a saved roster.
type RosterStatus string

const (
	RosterStatusDraft     RosterStatus = "DRAFT"
	RosterStatusPublished RosterStatus = "PUBLISHED"
)

// Roster is a persisted assignment run.
type Roster struct {
	ID              string       `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	Level           string       `db:"level" json:"level,omitempty"`
	Status          RosterStatus `db:"status" json:"status"`
	Fingerprint     string       `db:"fingerprint" json:"fingerprint"`
	Policy          RosterPolicy `db:"policy" json:"policy"`
	Stats           RosterStats  `db:"stats" json:"stats"`
	AssignmentCount int          `db:"assignment_count" json:"assignment_count"`
	ShortageCount   int          `db:"shortage_count" json:"shortage_count"`
	CreatedBy       string       `db:"created_by" json:"created_by"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
	PublishedAt     *time.Time   `db:"published_at" json:"published_at,omitempty"`
}

// RosterPolicy is the assignment policy a roster was generated with.
type RosterPolicy struct {
	SpecialtyMode        string         `json:"specialtyMode"`
	SecondaryRule        string         `json:"secondaryRule"`
	DefaultDailyCapacity int            `json:"defaultDailyCapacity"`
	SectionDailyCapacity int            `json:"sectionDailyCapacity"`
	DefaultNeeded        int            `json:"defaultNeeded"`
	GradeTiers           map[string]int `json:"gradeTiers,omitempty"`
	DefaultTier          int            `json:"defaultTier"`
}

// Value marshals the policy for the JSONB column.
func (p RosterPolicy) Value() (driver.Value, error) {
	return jsonValue(p, "roster policy")
}

// Scan unmarshals the JSONB column.
func (p *RosterPolicy) Scan(value interface{}) error {
	var decoded RosterPolicy
	if _, err := scanJSON(value, &decoded, "roster policy"); err != nil {
		return err
	}
	*p = decoded
	return nil
}

// RosterStats is the statistics summary stored alongside a roster.
type RosterStats struct {
	Total                     int            `json:"total"`
	MinLoad                   int            `json:"minLoad"`
	MaxLoad                   int            `json:"maxLoad"`
	AvgLoad                   float64        `json:"avgLoad"`
	DifferentSpecialtyCount   int            `json:"differentSpecialtyCount"`
	DifferentSpecialtyPercent float64        `json:"differentSpecialtyPercent"`
	ShortageCount             int            `json:"shortageCount"`
	SupervisorCounts          map[string]int `json:"supervisorCounts,omitempty"`
	PerDay                    map[string]int `json:"perDay,omitempty"`
}

// Value marshals the stats for the JSONB column.
func (s RosterStats) Value() (driver.Value, error) {
	return jsonValue(s, "roster stats")
}

// Scan unmarshals the JSONB column.
func (s *RosterStats) Scan(value interface{}) error {
	var decoded RosterStats
	if _, err := scanJSON(value, &decoded, "roster stats"); err != nil {
		return err
	}
	*s = decoded
	return nil
}

// RosterAssignment is one filled slot of a saved roster.
type RosterAssignment struct {
	RosterID           string    `db:"roster_id" json:"roster_id"`
	SessionID          int       `db:"session_id" json:"session_id"`
	ExamDate           time.Time `db:"exam_date" json:"exam_date"`
	StartTime          string    `db:"start_time" json:"start_time"`
	EndTime            string    `db:"end_time" json:"end_time"`
	Subject            string    `db:"subject" json:"subject"`
	Grade              string    `db:"grade" json:"grade"`
	Section            string    `db:"section" json:"section"`
	Period             string    `db:"period" json:"period"`
	SlotIndex          int       `db:"slot_index" json:"slot_index"`
	SupervisorName     string    `db:"supervisor_name" json:"supervisor_name"`
	Pool               string    `db:"pool" json:"pool"`
	Specialty          string    `db:"specialty" json:"specialty"`
	DifferentSpecialty bool      `db:"different_specialty" json:"different_specialty"`
}

// RosterShortage is one under-staffed session of a saved roster.
type RosterShortage struct {
	RosterID  string    `db:"roster_id" json:"roster_id"`
	SessionID int       `db:"session_id" json:"session_id"`
	ExamDate  time.Time `db:"exam_date" json:"exam_date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Subject   string    `db:"subject" json:"subject"`
	Grade     string    `db:"grade" json:"grade"`
	Section   string    `db:"section" json:"section"`
	Period    string    `db:"period" json:"period"`
	Required  int       `db:"required" json:"required"`
	Filled    int       `db:"filled" json:"filled"`
}

// RosterFilter captures list criteria.
type RosterFilter struct {
	Status    *RosterStatus
	Level     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
