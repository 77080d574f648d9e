package invigilation

type candidate struct {
	supervisor         Supervisor
	differentSpecialty bool
	totalLoad          int
}

// eligibleTeachers applies the hard exclusions in order: time overlap on the
// same day, stated unavailability, daily capacity and, in exclude mode, a
// matching specialty. Supervisors already placed in the session are skipped.
func eligibleTeachers(session Session, pool []Supervisor, state *loadState, policy Policy, placed map[memberKey]bool) []candidate {
	date := DateKey(session.Date)
	out := make([]candidate, 0, len(pool))
	for _, s := range pool {
		if placed[keyOf(s)] {
			continue
		}
		if state.Conflicts(s, session) {
			continue
		}
		if UnavailableOn(s.Unavailable, session.Date) {
			continue
		}
		if state.onDay(s, date) >= policy.capacityFor(s) {
			continue
		}
		same := policy.Normalizer.SameSpecialty(s.Specialty, session.Subject)
		if same && policy.SpecialtyMode == SpecialtyExclude {
			continue
		}
		out = append(out, candidate{supervisor: s, differentSpecialty: !same, totalLoad: state.total(s)})
	}
	return out
}

// eligibleSectionStaff filters the section pool by same-day capacity. Time
// overlap is still enforced so one assistant is never in two rooms at once.
func eligibleSectionStaff(session Session, pool []Supervisor, state *loadState, policy Policy, placed map[memberKey]bool) []candidate {
	date := DateKey(session.Date)
	out := make([]candidate, 0, len(pool))
	for _, s := range pool {
		if placed[keyOf(s)] || state.Conflicts(s, session) {
			continue
		}
		if state.onDay(s, date) >= policy.capacityFor(s) {
			continue
		}
		out = append(out, candidate{
			supervisor:         s,
			differentSpecialty: !policy.Normalizer.SameSpecialty(s.Specialty, session.Subject),
			totalLoad:          state.total(s),
		})
	}
	return out
}
