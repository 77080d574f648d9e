// Package invigilation assigns exam supervisors to timetabled exam sessions.
//
// The engine is a deterministic greedy heuristic: sessions are processed in
// chronological order and every slot goes to the best ranked eligible
// supervisor at that moment. Nothing here performs I/O; callers normalise
// their inputs into Supervisor and Session values first.
package invigilation

import "time"

// Pool identifies which supervisor pool a record belongs to.
type Pool string

const (
	PoolTeacher Pool = "teacher"
	// PoolSection holds teaching assistants attached to class sections.
	PoolSection Pool = "section"
)

// Supervisor is a person eligible to supervise exams.
type Supervisor struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	// DailyCapacity of zero defers to the policy.
	DailyCapacity int `json:"dailyCapacity,omitempty"`
	// Unavailable is the free-text list of dates the supervisor cannot attend.
	Unavailable string `json:"unavailable,omitempty"`
	Pool        Pool   `json:"pool"`
}

// Session is one exam sitting that needs supervising.
type Session struct {
	// ID is the caller's reference, typically the source row number.
	ID      int       `json:"id"`
	Date    time.Time `json:"date"`
	Start   Clock     `json:"start"`
	End     Clock     `json:"end"`
	Subject string    `json:"subject"`
	Grade   string    `json:"grade,omitempty"`
	Section string    `json:"section,omitempty"`
	Period  string    `json:"period,omitempty"`
	// Needed below one defers to the policy.
	Needed int `json:"needed,omitempty"`
}

// Assignment binds one supervisor to one slot of a session.
type Assignment struct {
	Session            Session `json:"session"`
	SlotIndex          int     `json:"slotIndex"`
	Supervisor         string  `json:"supervisor"`
	Pool               Pool    `json:"pool"`
	Specialty          string  `json:"specialty,omitempty"`
	DifferentSpecialty bool    `json:"differentSpecialty"`
}

// Shortage records a session that could not be fully staffed.
type Shortage struct {
	Session  Session `json:"session"`
	Required int     `json:"required"`
	Filled   int     `json:"filled"`
}

// Result is the outcome of one run, in processing order.
type Result struct {
	Assignments []Assignment `json:"assignments"`
	Shortages   []Shortage   `json:"shortages"`
}
