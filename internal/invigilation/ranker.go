package invigilation

import "sort"

// rankTeachers orders candidates by different specialty first, then lowest
// total load, then name. In exclude mode every candidate already has a
// different specialty so the first key is inert.
func rankTeachers(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.differentSpecialty != b.differentSpecialty {
			return a.differentSpecialty
		}
		if a.totalLoad != b.totalLoad {
			return a.totalLoad < b.totalLoad
		}
		return a.supervisor.Name < b.supervisor.Name
	})
}

// rankSectionStaff orders section pool candidates by load, then name.
func rankSectionStaff(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.totalLoad != b.totalLoad {
			return a.totalLoad < b.totalLoad
		}
		return a.supervisor.Name < b.supervisor.Name
	})
}
