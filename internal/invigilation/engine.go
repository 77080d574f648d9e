package invigilation

import (
	"sort"
	"strings"
)

// Engine runs the greedy assignment for a fixed policy. An Engine holds no
// per-run state and may be shared between goroutines.
type Engine struct {
	policy Policy
}

// NewEngine validates the policy and fills its defaults.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy.withDefaults()}, nil
}

// Policy returns the effective policy after defaults.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Run assigns supervisors to sessions. Sessions are processed in
// chronological order and each slot is given to the best ranked eligible
// supervisor; sessions that cannot be fully staffed are reported as
// shortages rather than failing the run.
func (e *Engine) Run(supervisors []Supervisor, sessions []Session) (*Result, error) {
	teachers, sections, err := ValidateSupervisors(supervisors)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Assignments: make([]Assignment, 0, len(sessions)),
		Shortages:   make([]Shortage, 0),
	}
	state := newLoadState()
	for _, session := range orderSessions(sessions) {
		needed := session.Needed
		if needed < 1 {
			needed = e.policy.DefaultNeeded
		}
		session.Needed = needed

		placed := make(map[memberKey]bool, needed)
		teacherSlots, sectionSlots := e.policy.split(session, needed)

		teacherCandidates := eligibleTeachers(session, teachers, state, e.policy, placed)
		rankTeachers(teacherCandidates)
		filled := e.fill(result, state, session, teacherCandidates, 0, teacherSlots, placed)

		if sectionSlots > 0 {
			sectionCandidates := eligibleSectionStaff(session, sections, state, e.policy, placed)
			rankSectionStaff(sectionCandidates)
			filled += e.fill(result, state, session, sectionCandidates, teacherSlots, sectionSlots, placed)
		}

		if filled < needed {
			result.Shortages = append(result.Shortages, Shortage{Session: session, Required: needed, Filled: filled})
		}
	}
	return result, nil
}

// fill takes up to slots candidates in ranked order starting at firstSlot and
// reserves each one before moving on.
func (e *Engine) fill(result *Result, state *loadState, session Session, ranked []candidate, firstSlot, slots int, placed map[memberKey]bool) int {
	filled := 0
	for _, c := range ranked {
		if filled == slots {
			break
		}
		state.Reserve(c.supervisor, session)
		placed[keyOf(c.supervisor)] = true
		result.Assignments = append(result.Assignments, Assignment{
			Session:            session,
			SlotIndex:          firstSlot + filled,
			Supervisor:         c.supervisor.Name,
			Pool:               c.supervisor.Pool,
			Specialty:          c.supervisor.Specialty,
			DifferentSpecialty: c.differentSpecialty,
		})
		filled++
	}
	return filled
}

// orderSessions sorts a copy of sessions by date and start time. Missing
// start times go last within their day; ties keep input order.
func orderSessions(sessions []Session) []Session {
	ordered := make([]Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Start.Before(b.Start)
	})
	return ordered
}

// Levels lists the distinct grades present in sessions, sorted.
func Levels(sessions []Session) []string {
	seen := make(map[string]struct{})
	levels := make([]string, 0)
	for _, s := range sessions {
		grade := strings.TrimSpace(s.Grade)
		if grade == "" {
			continue
		}
		if _, ok := seen[grade]; ok {
			continue
		}
		seen[grade] = struct{}{}
		levels = append(levels, grade)
	}
	sort.Strings(levels)
	return levels
}

// FilterLevel keeps sessions for one grade. An empty level keeps everything.
func FilterLevel(sessions []Session, level string, normalizer *Normalizer) []Session {
	if strings.TrimSpace(level) == "" {
		return sessions
	}
	want := normalizer.Normalize(level)
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if normalizer.Normalize(s.Grade) == want {
			out = append(out, s)
		}
	}
	return out
}
