package invigilation

import "sort"

// SectionTable lists the sections of each grade, keyed by grade label.
type SectionTable map[string][]string

// ExpandSections emits one copy of every grade-level session per section of
// that grade. Sessions that already name a section, or whose grade has no
// sections, pass through unchanged. Output order follows input order and
// every output session is renumbered 1..n in that order, so section copies
// never share an ID.
func ExpandSections(sessions []Session, table SectionTable, normalizer *Normalizer) []Session {
	if len(table) == 0 {
		return sessions
	}
	grades := make([]string, 0, len(table))
	for grade := range table {
		grades = append(grades, grade)
	}
	// labels that normalise alike are merged in a stable order
	sort.Strings(grades)
	index := make(map[string][]string, len(table))
	for _, grade := range grades {
		key := normalizer.Normalize(grade)
		index[key] = append(index[key], table[grade]...)
	}

	out := make([]Session, 0, len(sessions))
	for _, session := range sessions {
		sections := index[normalizer.Normalize(session.Grade)]
		if session.Section != "" || len(sections) == 0 {
			session.ID = len(out) + 1
			out = append(out, session)
			continue
		}
		for _, section := range sections {
			expanded := session
			expanded.ID = len(out) + 1
			expanded.Section = section
			out = append(out, expanded)
		}
	}
	return out
}
